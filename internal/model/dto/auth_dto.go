package dto

// LoginURLResponse Discord 授权地址
type LoginURLResponse struct {
	URL string `json:"url"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token string     `json:"token"`
	Admin *AdminInfo `json:"admin"`
}

// AdminInfo 管理员信息（返回给前端）
type AdminInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}
