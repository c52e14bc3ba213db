package dto

// RegisteredUserInfo 用户信息（返回给前端）
type RegisteredUserInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	IsBlacklisted bool   `json:"is_blacklisted"`
	Reason        string `json:"reason,omitempty"`
}
