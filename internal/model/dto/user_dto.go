package dto

import (
	"time"

	"github.com/nyxv/vpn_bot_server/internal/model"
)

// User 用户 DTO，可 JSON 序列化后进 redis 缓存
type User struct {
	TelegramID            int64          `json:"telegram_id"`
	Username              string         `json:"username"`
	Role                  model.UserRole `json:"role"`
	IsBlocked             bool           `json:"is_blocked"`
	CurrentSubscriptionID *int64         `json:"current_subscription_id,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
}

// UserFromModel 从数据库模型构建 DTO，入参为 nil 时返回 nil
func UserFromModel(m *model.User) *User {
	if m == nil {
		return nil
	}
	return &User{
		TelegramID:            m.TelegramID,
		Username:              m.Username,
		Role:                  m.Role,
		IsBlocked:             m.IsBlocked,
		CurrentSubscriptionID: m.CurrentSubscriptionID,
		CreatedAt:             m.CreatedAt,
	}
}

// UsersFromModelList 批量转换
func UsersFromModelList(ms []*model.User) []*User {
	result := make([]*User, 0, len(ms))
	for _, m := range ms {
		result = append(result, UserFromModel(m))
	}
	return result
}

// IsPrivileged 管理员不受访问模式限制
func (u *User) IsPrivileged() bool {
	return u.Role == model.UserRoleAdmin
}
