package handler

import (
	"errors"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/premium_bot/internal/api/middleware"
	"github.com/qs3c/premium_bot/internal/model"
	"github.com/qs3c/premium_bot/internal/model/dto"
	"github.com/qs3c/premium_bot/internal/pkg/response"
	"github.com/qs3c/premium_bot/internal/repository"
	"github.com/qs3c/premium_bot/internal/service"
)

type SubscriptionHandler struct {
	subService *service.SubscriptionService
}

func NewSubscriptionHandler(subService *service.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subService: subService,
	}
}

// List 账本列表
// GET /api/v1/subscriptions
func (h *SubscriptionHandler) List(c *gin.Context) {
	var query dto.SubscriptionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	filter := repository.SubscriptionFilter{UserID: query.UserID, Approved: query.Approved}
	subs, total, err := h.subService.List(c.Request.Context(), filter, query.Page, query.PageSize)
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]dto.SubscriptionInfo, 0, len(subs))
	for i := range subs {
		items = append(items, toSubscriptionInfo(&subs[i]))
	}
	response.SuccessPage(c, total, query.Page, query.PageSize, items)
}

// Get 按交易号查询
// GET /api/v1/subscriptions/:id
func (h *SubscriptionHandler) Get(c *gin.Context) {
	sub, err := h.subService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, toSubscriptionInfo(sub))
}

// Register 登记交易号
// POST /api/v1/subscriptions
func (h *SubscriptionHandler) Register(c *gin.Context) {
	var req dto.RegisterSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	actorID, _ := middleware.GetAdminID(c)
	result, err := h.subService.Register(c.Request.Context(), service.RegisterInput{
		TransactionID: req.TransactionID,
		Expires:       req.Expires,
		ActorID:       actorID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	info := toSubscriptionInfo(result.Subscription)
	response.Success(c, dto.RegisterSubscriptionResponse{
		Subscription:   &info,
		Granted:        result.Granted,
		BindingCleared: result.BindingCleared,
	})
}

// Terminate 删除记录
// POST /api/v1/subscriptions/terminate
func (h *SubscriptionHandler) Terminate(c *gin.Context) {
	var req dto.TerminateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	mode := service.TerminateModeAnd
	if req.Mode == string(service.TerminateModeOr) {
		mode = service.TerminateModeOr
	}

	actorID, _ := middleware.GetAdminID(c)
	records, err := h.subService.Terminate(c.Request.Context(), service.TerminateInput{
		TransactionID: req.TransactionID,
		UserID:        req.UserID,
		Mode:          mode,
		ActorID:       actorID,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	items := make([]dto.TerminatedRecord, 0, len(records))
	for _, r := range records {
		items = append(items, dto.TerminatedRecord{
			DisplayName:   r.DisplayName,
			TransactionID: r.TransactionID,
			UserID:        r.UserID,
		})
	}
	response.Success(c, items)
}

func toSubscriptionInfo(sub *model.Subscription) dto.SubscriptionInfo {
	info := dto.SubscriptionInfo{
		TransactionID: sub.TransactionID,
		Approved:      sub.Approved,
		RegisteredAt:  sub.RegisteredAt.UTC().Format(time.RFC3339),
	}
	if sub.UserID != nil {
		info.UserID = *sub.UserID
	}
	if sub.ExpireAt != nil {
		info.ExpireAt = sub.ExpireAt.UTC().Format(time.RFC3339)
	}
	if sub.ClaimedAt != nil {
		info.ClaimedAt = sub.ClaimedAt.UTC().Format(time.RFC3339)
	}
	return info
}

// writeError 将业务错误映射为响应码，其余按服务器错误处理
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidTransaction),
		errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrExpiryInPast),
		errors.Is(err, service.ErrMissingFilter),
		errors.Is(err, service.ErrInvalidUserID):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrClaimedByOther),
		errors.Is(err, service.ErrClaimConflict),
		errors.Is(err, service.ErrTransactionGone):
		response.ConflictError(c, err.Error())
	case errors.Is(err, service.ErrNothingDeleted),
		errors.Is(err, service.ErrSubscriptionAbsent),
		errors.Is(err, service.ErrUserNotFound):
		response.NotFoundError(c, err.Error())
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		response.ServerError(c, "")
	}
}
