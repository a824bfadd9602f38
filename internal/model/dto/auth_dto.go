package dto

// LoginRequest 后台登录请求
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// LoginResponse 后台登录响应
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"` // 秒
}
