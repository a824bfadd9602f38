package model

import (
	"time"
)

type User struct {
	TelegramID            int64     `gorm:"primaryKey;autoIncrement:false" json:"telegram_id"`
	Username              string    `gorm:"size:64" json:"username"`
	Role                  UserRole  `gorm:"size:20;default:user" json:"role"`
	IsBlocked             bool      `gorm:"default:false" json:"is_blocked"`
	CurrentSubscriptionID *int64    `json:"current_subscription_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsPrivileged 管理员不受访问模式限制
func (u *User) IsPrivileged() bool {
	return u.Role == UserRoleAdmin
}
