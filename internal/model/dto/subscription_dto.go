package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nyxv/vpn_bot_server/internal/model"
)

// UnlimitedYear 到期年份为 2099 的订阅视为永久订阅，不参与过期判断
const UnlimitedYear = 2099

// Subscription 本地订阅 DTO（权威的订购记录）
type Subscription struct {
	ID             int64                    `json:"id"`
	UserTelegramID int64                    `json:"user_telegram_id"`
	PanelUUID      uuid.UUID                `json:"panel_uuid"`
	Status         model.SubscriptionStatus `json:"status"`
	IsTrial        bool                     `json:"is_trial"`
	TrafficLimit   int                      `json:"traffic_limit"`
	DeviceLimit    int                      `json:"device_limit"`
	InternalSquads []uuid.UUID              `json:"internal_squads"`
	ExternalSquad  *uuid.UUID               `json:"external_squad,omitempty"`
	ExpireAt       time.Time                `json:"expire_at"`
	URL            string                   `json:"url"`
	Plan           model.PlanSnapshot       `json:"plan"`
	CreatedAt      time.Time                `json:"created_at"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// SubscriptionFromModel 从数据库模型构建 DTO，入参为 nil 时返回 nil
func SubscriptionFromModel(m *model.Subscription) *Subscription {
	if m == nil {
		return nil
	}
	return &Subscription{
		ID:             m.ID,
		UserTelegramID: m.UserTelegramID,
		PanelUUID:      m.PanelUUID,
		Status:         m.Status,
		IsTrial:        m.IsTrial,
		TrafficLimit:   m.TrafficLimit,
		DeviceLimit:    m.DeviceLimit,
		InternalSquads: m.InternalSquads,
		ExternalSquad:  m.ExternalSquad,
		ExpireAt:       m.ExpireAt,
		URL:            m.URL,
		Plan:           m.Plan,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// SubscriptionsFromModelList 批量转换
func SubscriptionsFromModelList(ms []*model.Subscription) []*Subscription {
	result := make([]*Subscription, 0, len(ms))
	for _, m := range ms {
		result = append(result, SubscriptionFromModel(m))
	}
	return result
}

// ToModel 转回数据库模型（审计字段由数据库负责，不回写）
func (s *Subscription) ToModel() *model.Subscription {
	return &model.Subscription{
		ID:             s.ID,
		UserTelegramID: s.UserTelegramID,
		PanelUUID:      s.PanelUUID,
		Status:         s.Status,
		IsTrial:        s.IsTrial,
		TrafficLimit:   s.TrafficLimit,
		DeviceLimit:    s.DeviceLimit,
		InternalSquads: s.InternalSquads,
		ExternalSquad:  s.ExternalSquad,
		ExpireAt:       s.ExpireAt,
		URL:            s.URL,
		Plan:           s.Plan,
	}
}

// IsUnlimited 永久订阅判断
func (s *Subscription) IsUnlimited() bool {
	return s.ExpireAt.Year() == UnlimitedYear
}

// EffectiveStatus 惰性修正的状态：到期时间优先于可能过时的 status 字段
func (s *Subscription) EffectiveStatus(now time.Time) model.SubscriptionStatus {
	if !s.IsUnlimited() && now.After(s.ExpireAt) {
		return model.SubscriptionStatusExpired
	}
	return s.Status
}

// IsActive 状态为 ACTIVE 且未到期
func (s *Subscription) IsActive(now time.Time) bool {
	return s.EffectiveStatus(now) == model.SubscriptionStatusActive
}

// Type 按限制维度派生套餐类型
func (s *Subscription) Type() model.PlanType {
	hasTraffic := s.TrafficLimit > 0
	hasDevices := s.DeviceLimit > 0

	switch {
	case hasTraffic && hasDevices:
		return model.PlanTypeBoth
	case hasTraffic:
		return model.PlanTypeTraffic
	case hasDevices:
		return model.PlanTypeDevices
	default:
		return model.PlanTypeUnlimited
	}
}

// HasTrafficLimit 是否存在流量限制
func (s *Subscription) HasTrafficLimit() bool {
	t := s.Type()
	return t == model.PlanTypeTraffic || t == model.PlanTypeBoth
}

// HasDeviceLimit 是否存在设备数限制
func (s *Subscription) HasDeviceLimit() bool {
	t := s.Type()
	return t == model.PlanTypeDevices || t == model.PlanTypeBoth
}

// SyncFields 参与双向同步的字段表（静态枚举，键名跨 DTO 对齐）
func (s *Subscription) SyncFields() map[string]interface{} {
	return map[string]interface{}{
		"id":              s.ID,
		"panel_uuid":      s.PanelUUID,
		"status":          s.Status,
		"is_trial":        s.IsTrial,
		"traffic_limit":   s.TrafficLimit,
		"device_limit":    s.DeviceLimit,
		"internal_squads": s.InternalSquads,
		"external_squad":  s.ExternalSquad,
		"expire_at":       s.ExpireAt,
		"url":             s.URL,
	}
}

// SetSyncField 同步写回，未知字段名是编程错误
func (s *Subscription) SetSyncField(name string, value interface{}) {
	switch name {
	case "id":
		s.ID = value.(int64)
	case "panel_uuid":
		s.PanelUUID = value.(uuid.UUID)
	case "status":
		s.Status = value.(model.SubscriptionStatus)
	case "is_trial":
		s.IsTrial = value.(bool)
	case "traffic_limit":
		s.TrafficLimit = value.(int)
	case "device_limit":
		s.DeviceLimit = value.(int)
	case "internal_squads":
		s.InternalSquads = value.([]uuid.UUID)
	case "external_squad":
		s.ExternalSquad = value.(*uuid.UUID)
	case "expire_at":
		s.ExpireAt = value.(time.Time)
	case "url":
		s.URL = value.(string)
	default:
		panic(fmt.Sprintf("dto: unknown sync field %q", name))
	}
}
