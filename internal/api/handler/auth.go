package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/premium_bot/internal/model/dto"
	"github.com/qs3c/premium_bot/internal/pkg/oauth"
	"github.com/qs3c/premium_bot/internal/pkg/response"
	"github.com/qs3c/premium_bot/internal/service"
)

// StateStore OAuth state 的生成与一次性校验
type StateStore interface {
	GenerateState(ctx context.Context, returnTo string) (string, error)
	ConsumeState(ctx context.Context, state string) (string, error)
}

type AuthHandler struct {
	authService *service.AuthService
	states      StateStore
}

func NewAuthHandler(authService *service.AuthService, states StateStore) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		states:      states,
	}
}

// DiscordAuth 返回 Discord 授权地址
// GET /api/v1/auth/discord?return_to=xxx
func (h *AuthHandler) DiscordAuth(c *gin.Context) {
	state, err := h.states.GenerateState(c.Request.Context(), c.Query("return_to"))
	if err != nil {
		response.ServerError(c, "")
		return
	}

	authURL, err := h.authService.GetDiscordAuthURL(state)
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}

	response.Success(c, dto.LoginURLResponse{URL: authURL})
}

// DiscordCallback Discord 回调；带 return_to 时重定向并在 fragment 中携带 token
// GET /api/v1/auth/discord/callback
func (h *AuthHandler) DiscordCallback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		response.ParamError(c, "缺少 code 或 state")
		return
	}

	returnTo, err := h.states.ConsumeState(c.Request.Context(), state)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidState) || errors.Is(err, oauth.ErrEmptyState) {
			response.AuthError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	resp, err := h.authService.DiscordCallback(c.Request.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotAdmin):
			response.PermissionError(c, err.Error())
		case errors.Is(err, service.ErrOAuthExchange):
			response.AuthError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	if returnTo != "" {
		c.Redirect(http.StatusFound, returnTo+"#token="+url.QueryEscape(resp.Token))
		return
	}
	response.Success(c, resp)
}
