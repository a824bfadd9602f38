package dto

// SetModeRequest 切换访问模式请求
type SetModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// EventRequest 网关转发的入站事件
type EventRequest struct {
	TelegramID   int64  `json:"telegram_id" binding:"required"`
	Username     string `json:"username"`
	CallbackData string `json:"callback_data"`
}

// EventResponse 准入判定结果
type EventResponse struct {
	Allowed bool `json:"allowed"`
}
