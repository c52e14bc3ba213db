package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/premium_bot/internal/model/dto"
	"github.com/qs3c/premium_bot/internal/pkg/response"
	"github.com/qs3c/premium_bot/internal/service"
)

// ReconcileRunner 立即执行一次过期清理
type ReconcileRunner interface {
	RunNow(ctx context.Context, dryRun bool) (*service.ReconcileResult, error)
}

type ReconcileHandler struct {
	runner ReconcileRunner
}

func NewReconcileHandler(runner ReconcileRunner) *ReconcileHandler {
	return &ReconcileHandler{
		runner: runner,
	}
}

// Run 手动触发清理，请求体可省略
// POST /api/v1/reconcile
func (h *ReconcileHandler) Run(c *gin.Context) {
	var req dto.ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ParamError(c, err.Error())
		return
	}

	result, err := h.runner.RunNow(c.Request.Context(), req.DryRun)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := dto.ReconcileResponse{
		Expired: len(result.Expired),
		Revoked: result.Revoked,
		Deleted: result.Deleted,
		DryRun:  result.DryRun,
	}
	for i := range result.Expired {
		resp.Items = append(resp.Items, toSubscriptionInfo(&result.Expired[i]))
	}
	response.Success(c, resp)
}
