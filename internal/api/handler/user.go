package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/premium_bot/internal/model/dto"
	"github.com/qs3c/premium_bot/internal/pkg/response"
	"github.com/qs3c/premium_bot/internal/service"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// Get 查询用户
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.userService.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, user)
}

// Blacklist 拉黑用户，reason 可省略
// PUT /api/v1/users/:id/blacklist
func (h *UserHandler) Blacklist(c *gin.Context) {
	var req dto.BlacklistRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ParamError(c, err.Error())
		return
	}

	user, err := h.userService.Blacklist(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, user)
}

// Unblacklist 解除拉黑
// DELETE /api/v1/users/:id/blacklist
func (h *UserHandler) Unblacklist(c *gin.Context) {
	user, err := h.userService.Unblacklist(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, user)
}
