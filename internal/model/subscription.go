package model

import (
	"time"

	"github.com/google/uuid"
)

// PlanSnapshot 购买时固化的套餐快照，随订阅落库（JSON 列），
// 套餐目录后续修改不会影响已有订阅
type PlanSnapshot struct {
	ID                   int64                `json:"id"`
	Tag                  string               `json:"tag"`
	Type                 PlanType             `json:"type"`
	DurationDays         int                  `json:"duration_days"`
	TrafficLimit         int                  `json:"traffic_limit"`
	DeviceLimit          int                  `json:"device_limit"`
	TrafficResetStrategy TrafficResetStrategy `json:"traffic_reset_strategy"`
	InternalSquads       []uuid.UUID          `json:"internal_squads"`
	ExternalSquad        *uuid.UUID           `json:"external_squad,omitempty"`
}

type Subscription struct {
	ID             int64              `gorm:"primaryKey" json:"id"`
	UserTelegramID int64              `gorm:"not null;index" json:"user_telegram_id"`
	PlanID         int64              `gorm:"index" json:"plan_id"` // 快照里 plan.id 的冗余列，供按套餐查询
	PanelUUID      uuid.UUID          `gorm:"type:char(36);index" json:"panel_uuid"`
	Status         SubscriptionStatus `gorm:"size:20;default:ACTIVE;index" json:"status"`
	IsTrial        bool               `gorm:"default:false" json:"is_trial"`
	TrafficLimit   int                `json:"traffic_limit"` // GB，0 表示不限
	DeviceLimit    int                `json:"device_limit"`  // 0 表示不限
	InternalSquads []uuid.UUID        `gorm:"serializer:json" json:"internal_squads"`
	ExternalSquad  *uuid.UUID         `gorm:"type:char(36)" json:"external_squad,omitempty"`
	ExpireAt       time.Time          `gorm:"not null;index" json:"expire_at"`
	URL            string             `gorm:"size:500" json:"url"`
	Plan           PlanSnapshot       `gorm:"serializer:json" json:"plan"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}
