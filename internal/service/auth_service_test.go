package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/qs3c/premium_bot/config"
	"github.com/qs3c/premium_bot/internal/pkg/jwt"
	"github.com/qs3c/premium_bot/internal/pkg/oauth"
)

type fakeOAuthProvider struct {
	user        *oauth.DiscordUser
	exchangeErr error
	userErr     error
}

func (f *fakeOAuthProvider) GetAuthURL(state string) string {
	return "https://discord.com/oauth2/authorize?state=" + state
}

func (f *fakeOAuthProvider) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{AccessToken: "token-" + code}, nil
}

func (f *fakeOAuthProvider) GetUser(_ context.Context, _ *oauth2.Token) (*oauth.DiscordUser, error) {
	if f.userErr != nil {
		return nil, f.userErr
	}
	return f.user, nil
}

func setupAuthService(t *testing.T, provider OAuthProvider) *AuthService {
	t.Helper()

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:      "test-secret-key-for-testing",
			ExpireHours: 24,
		},
		OAuth: config.OAuthConfig{
			Discord: config.DiscordOAuthConfig{
				ClientID:     "test-client-id",
				ClientSecret: "test-client-secret",
				RedirectURI:  "http://localhost:8080/callback",
			},
		},
		Admin: config.AdminConfig{UserIDs: []string{alice}},
	}

	return NewAuthService(cfg, provider)
}

func TestAuthService_GetDiscordAuthURL(t *testing.T) {
	service := setupAuthService(t, &fakeOAuthProvider{})

	url, err := service.GetDiscordAuthURL("abc")
	require.NoError(t, err)
	assert.Contains(t, url, "state=abc")

	unconfigured := NewAuthService(&config.Config{}, nil)
	_, err = unconfigured.GetDiscordAuthURL("abc")
	assert.ErrorIs(t, err, ErrOAuthUnavailable)
}

func TestAuthService_DiscordCallback_Admin(t *testing.T) {
	service := setupAuthService(t, &fakeOAuthProvider{
		user: &oauth.DiscordUser{ID: alice, Username: "alice", GlobalName: "Alice", Avatar: "hash"},
	})

	resp, err := service.DiscordCallback(context.Background(), "code")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, alice, resp.Admin.ID)
	assert.Equal(t, "Alice", resp.Admin.Username)
	assert.Contains(t, resp.Admin.Avatar, "hash")

	claims, err := service.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.AdminID)
}

func TestAuthService_DiscordCallback_NotAdmin(t *testing.T) {
	service := setupAuthService(t, &fakeOAuthProvider{
		user: &oauth.DiscordUser{ID: bob, Username: "bob"},
	})

	_, err := service.DiscordCallback(context.Background(), "code")
	assert.ErrorIs(t, err, ErrNotAdmin)
}

func TestAuthService_DiscordCallback_ExchangeFails(t *testing.T) {
	service := setupAuthService(t, &fakeOAuthProvider{exchangeErr: errors.New("invalid_grant")})

	_, err := service.DiscordCallback(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrOAuthExchange)
}

func TestAuthService_ValidateToken_RemovedAdmin(t *testing.T) {
	service := setupAuthService(t, &fakeOAuthProvider{})

	token, err := jwt.GenerateToken(bob, "bob", "test-secret-key-for-testing", 1)
	require.NoError(t, err)

	_, err = service.ValidateToken(token)
	assert.ErrorIs(t, err, ErrNotAdmin)

	_, err = service.ValidateToken("garbage")
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
}
