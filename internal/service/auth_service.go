package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/qs3c/premium_bot/config"
	"github.com/qs3c/premium_bot/internal/model/dto"
	"github.com/qs3c/premium_bot/internal/pkg/jwt"
	"github.com/qs3c/premium_bot/internal/pkg/oauth"
)

var (
	ErrNotAdmin         = errors.New("ce compte n'est pas autorisé à administrer le bot")
	ErrOAuthExchange    = errors.New("échec de l'authentification Discord")
	ErrOAuthUnavailable = errors.New("connexion Discord non configurée")
)

// OAuthProvider Discord OAuth2 授权码流程
type OAuthProvider interface {
	GetAuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	GetUser(ctx context.Context, token *oauth2.Token) (*oauth.DiscordUser, error)
}

// AuthService 管理后台登录：Discord OAuth2 + 白名单 + JWT
type AuthService struct {
	cfg      *config.Config
	provider OAuthProvider
}

func NewAuthService(cfg *config.Config, provider OAuthProvider) *AuthService {
	return &AuthService{
		cfg:      cfg,
		provider: provider,
	}
}

// GetDiscordAuthURL 获取 Discord 授权 URL
func (s *AuthService) GetDiscordAuthURL(state string) (string, error) {
	if s.provider == nil || s.cfg.OAuth.Discord.ClientID == "" {
		return "", ErrOAuthUnavailable
	}
	return s.provider.GetAuthURL(state), nil
}

// DiscordCallback 处理 Discord OAuth 回调，只有白名单中的用户能拿到 token
func (s *AuthService) DiscordCallback(ctx context.Context, code string) (*dto.LoginResponse, error) {
	if s.provider == nil {
		return nil, ErrOAuthUnavailable
	}

	token, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}

	user, err := s.provider.GetUser(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOAuthExchange, err)
	}

	if !s.cfg.Admin.IsAdmin(user.ID) {
		return nil, ErrNotAdmin
	}

	jwtToken, err := jwt.GenerateToken(user.ID, user.DisplayName(), s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token: jwtToken,
		Admin: &dto.AdminInfo{
			ID:       user.ID,
			Username: user.DisplayName(),
			Avatar:   user.AvatarURL(),
		},
	}, nil
}

// ValidateToken 校验 token，并重新检查白名单（配置可能已变更）
func (s *AuthService) ValidateToken(token string) (*jwt.Claims, error) {
	claims, err := jwt.ParseToken(token, s.cfg.JWT.Secret)
	if err != nil {
		return nil, err
	}
	if !s.cfg.Admin.IsAdmin(claims.AdminID) {
		return nil, ErrNotAdmin
	}
	return claims, nil
}
