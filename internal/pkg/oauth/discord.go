package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

const DiscordAPIBase = "https://discord.com/api"

// DiscordUser /users/@me 返回的字段
type DiscordUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	GlobalName string `json:"global_name"`
	Avatar     string `json:"avatar"`
}

// DisplayName 优先使用全局昵称
func (u *DiscordUser) DisplayName() string {
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// AvatarURL 头像 CDN 地址，没有自定义头像时返回空
func (u *DiscordUser) AvatarURL() string {
	if u.Avatar == "" {
		return ""
	}
	return fmt.Sprintf("https://cdn.discordapp.com/avatars/%s/%s.png", u.ID, u.Avatar)
}

type DiscordOAuth struct {
	config  *oauth2.Config
	apiBase string
}

func NewDiscordOAuth(clientID, clientSecret, redirectURI string) *DiscordOAuth {
	return newDiscordOAuth(clientID, clientSecret, redirectURI, DiscordAPIBase)
}

func newDiscordOAuth(clientID, clientSecret, redirectURI, apiBase string) *DiscordOAuth {
	apiBase = strings.TrimRight(apiBase, "/")
	return &DiscordOAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   "https://discord.com/oauth2/authorize",
				TokenURL:  apiBase + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBase: apiBase,
	}
}

// GetAuthURL 获取 Discord 授权 URL
func (d *DiscordOAuth) GetAuthURL(state string) string {
	return d.config.AuthCodeURL(state)
}

// Exchange 用授权码换取 access token
func (d *DiscordOAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return d.config.Exchange(ctx, code)
}

// GetUser 获取当前授权用户
func (d *DiscordOAuth) GetUser(ctx context.Context, token *oauth2.Token) (*DiscordUser, error) {
	client := d.config.Client(ctx, token)

	resp, err := client.Get(d.apiBase + "/users/@me")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("discord api error: %s", string(body))
	}

	var user DiscordUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("discord api returned no user id")
	}

	return &user, nil
}
