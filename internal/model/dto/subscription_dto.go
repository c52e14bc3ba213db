package dto

// RegisterSubscriptionRequest 管理员登记交易号
type RegisterSubscriptionRequest struct {
	TransactionID string `json:"transaction_id" binding:"required,max=100"`
	Expires       string `json:"expires" binding:"required,max=100"` // 时长或日期，例如 "30d"、"2026-12-31"
}

// TerminateRequest 终止订阅；至少提供一个条件
type TerminateRequest struct {
	TransactionID string `json:"transaction_id,omitempty" binding:"omitempty,max=100"`
	UserID        string `json:"user_id,omitempty" binding:"omitempty,max=32"`
	Mode          string `json:"mode,omitempty" binding:"omitempty,oneof=and or"`
}

// ReconcileRequest 手动触发过期清理
type ReconcileRequest struct {
	DryRun bool `json:"dry_run"`
}

// BlacklistRequest 拉黑用户
type BlacklistRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=255"`
}

// SubscriptionListQuery 列表过滤条件
type SubscriptionListQuery struct {
	UserID   string `form:"user_id"`
	Approved *bool  `form:"approved"`
	Page     int    `form:"page,default=1" binding:"min=1"`
	PageSize int    `form:"page_size,default=20" binding:"min=1,max=100"`
}

// SubscriptionInfo 账本记录（返回给前端）
type SubscriptionInfo struct {
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id,omitempty"`
	Approved      bool   `json:"approved"`
	RegisteredAt  string `json:"registered_at"`
	ExpireAt      string `json:"expire_at,omitempty"`
	ClaimedAt     string `json:"claimed_at,omitempty"`
}

// RegisterSubscriptionResponse 登记结果
type RegisterSubscriptionResponse struct {
	Subscription   *SubscriptionInfo `json:"subscription"`
	Granted        bool              `json:"granted"`
	BindingCleared bool              `json:"binding_cleared"`
}

// TerminatedRecord 被删除的记录
type TerminatedRecord struct {
	DisplayName   string `json:"display_name"`
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id,omitempty"`
}

// ReconcileResponse 清理结果
type ReconcileResponse struct {
	Expired int                `json:"expired"`
	Revoked int                `json:"revoked"`
	Deleted int64              `json:"deleted"`
	DryRun  bool               `json:"dry_run"`
	Items   []SubscriptionInfo `json:"items,omitempty"`
}
