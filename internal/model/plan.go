package model

import (
	"time"

	"github.com/google/uuid"
)

// Plan 套餐目录条目，独立于已固化快照的订阅
type Plan struct {
	ID                   int64                `gorm:"primaryKey" json:"id"`
	Tag                  string               `gorm:"size:64;index" json:"tag"`
	Type                 PlanType             `gorm:"size:20" json:"type"`
	DurationDays         int                  `json:"duration_days"`
	TrafficLimit         int                  `json:"traffic_limit"` // GB，0 表示不限
	DeviceLimit          int                  `json:"device_limit"`  // 0 表示不限
	TrafficResetStrategy TrafficResetStrategy `gorm:"size:20;default:NO_RESET" json:"traffic_reset_strategy"`
	InternalSquads       []uuid.UUID          `gorm:"serializer:json" json:"internal_squads"`
	ExternalSquad        *uuid.UUID           `gorm:"type:char(36)" json:"external_squad,omitempty"`
	Price                float64              `gorm:"type:decimal(10,2)" json:"price"`
	IsActive             bool                 `gorm:"default:true;index" json:"is_active"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

func (Plan) TableName() string {
	return "plans"
}

// Snapshot 生成可随订阅固化的套餐快照
func (p *Plan) Snapshot() PlanSnapshot {
	return PlanSnapshot{
		ID:                   p.ID,
		Tag:                  p.Tag,
		Type:                 p.Type,
		DurationDays:         p.DurationDays,
		TrafficLimit:         p.TrafficLimit,
		DeviceLimit:          p.DeviceLimit,
		TrafficResetStrategy: p.TrafficResetStrategy,
		InternalSquads:       p.InternalSquads,
		ExternalSquad:        p.ExternalSquad,
	}
}
