package dto

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nyxv/vpn_bot_server/internal/model"
)

const bytesPerGB = 1 << 30

// RemoteSubscription 面板侧用户状态的规范化表示。
// 每次拉取时新建，仅用于一轮比对，不落库。
type RemoteSubscription struct {
	UUID                 uuid.UUID                  `json:"uuid"`
	Status               model.SubscriptionStatus   `json:"status"`
	ExpireAt             time.Time                  `json:"expire_at"`
	URL                  string                     `json:"url"`
	TrafficLimit         int                        `json:"traffic_limit"`
	DeviceLimit          int                        `json:"device_limit"`
	TrafficResetStrategy model.TrafficResetStrategy `json:"traffic_reset_strategy"`
	Tag                  string                     `json:"tag"`
	InternalSquads       []uuid.UUID                `json:"internal_squads"`
	ExternalSquad        *uuid.UUID                 `json:"external_squad,omitempty"`
}

// RemoteSubscriptionFromPanelUser 把面板返回的用户 JSON 规范化为内部形状。
// 面板存在两代命名（snake_case / camelCase），同一逻辑字段取先出现的那个。
func RemoteSubscriptionFromPanelUser(user map[string]interface{}) (*RemoteSubscription, error) {
	rawUUID, ok := pickString(user, "uuid")
	if !ok {
		return nil, fmt.Errorf("panel user missing uuid")
	}
	id, err := uuid.Parse(rawUUID)
	if err != nil {
		return nil, fmt.Errorf("invalid panel user uuid %q: %w", rawUUID, err)
	}

	rawExpire, ok := pickString(user, "expire_at", "expireAt")
	if !ok {
		return nil, fmt.Errorf("panel user %s missing expire_at", rawUUID)
	}
	expireAt, err := time.Parse(time.RFC3339, rawExpire)
	if err != nil {
		return nil, fmt.Errorf("invalid expire_at %q: %w", rawExpire, err)
	}

	status, _ := pickString(user, "status")
	url, _ := pickString(user, "subscription_url", "subscriptionUrl")
	tag, _ := pickString(user, "tag")
	strategy, _ := pickString(user, "traffic_limit_strategy", "trafficLimitStrategy")

	trafficBytes := pickInt(user, "traffic_limit_bytes", "trafficLimitBytes")
	deviceLimit := pickInt(user, "hwid_device_limit", "hwidDeviceLimit")

	squads, err := parseSquads(pick(user, "active_internal_squads", "activeInternalSquads"))
	if err != nil {
		return nil, fmt.Errorf("panel user %s: %w", rawUUID, err)
	}

	var externalSquad *uuid.UUID
	if raw, ok := pickString(user, "external_squad_uuid", "externalSquadUuid"); ok && raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid external squad uuid %q: %w", raw, err)
		}
		externalSquad = &parsed
	}

	return &RemoteSubscription{
		UUID:                 id,
		Status:               model.SubscriptionStatus(status),
		ExpireAt:             expireAt,
		URL:                  url,
		TrafficLimit:         int(trafficBytes / bytesPerGB),
		DeviceLimit:          int(deviceLimit),
		TrafficResetStrategy: model.TrafficResetStrategy(strategy),
		Tag:                  tag,
		InternalSquads:       squads,
		ExternalSquad:        externalSquad,
	}, nil
}

// SyncFields 参与双向同步的字段表
func (r *RemoteSubscription) SyncFields() map[string]interface{} {
	return map[string]interface{}{
		"uuid":                   r.UUID,
		"status":                 r.Status,
		"expire_at":              r.ExpireAt,
		"url":                    r.URL,
		"traffic_limit":          r.TrafficLimit,
		"device_limit":           r.DeviceLimit,
		"traffic_reset_strategy": r.TrafficResetStrategy,
		"tag":                    r.Tag,
		"internal_squads":        r.InternalSquads,
		"external_squad":         r.ExternalSquad,
	}
}

// SetSyncField 同步写回，未知字段名是编程错误
func (r *RemoteSubscription) SetSyncField(name string, value interface{}) {
	switch name {
	case "uuid":
		r.UUID = value.(uuid.UUID)
	case "status":
		r.Status = value.(model.SubscriptionStatus)
	case "expire_at":
		r.ExpireAt = value.(time.Time)
	case "url":
		r.URL = value.(string)
	case "traffic_limit":
		r.TrafficLimit = value.(int)
	case "device_limit":
		r.DeviceLimit = value.(int)
	case "traffic_reset_strategy":
		r.TrafficResetStrategy = value.(model.TrafficResetStrategy)
	case "tag":
		r.Tag = value.(string)
	case "internal_squads":
		r.InternalSquads = value.([]uuid.UUID)
	case "external_squad":
		r.ExternalSquad = value.(*uuid.UUID)
	default:
		panic(fmt.Sprintf("dto: unknown sync field %q", name))
	}
}

// pick 取第一个存在且非 nil 的键
func pick(m map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func pickString(m map[string]interface{}, keys ...string) (string, bool) {
	v := pick(m, keys...)
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func pickInt(m map[string]interface{}, keys ...string) int64 {
	switch v := pick(m, keys...).(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	default:
		return 0
	}
}

// parseSquads 分队列表元素可能是 uuid 字符串，也可能是 {"uuid": ...} 对象
func parseSquads(raw interface{}) ([]uuid.UUID, error) {
	if raw == nil {
		return []uuid.UUID{}, nil
	}

	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected squad list type %T", raw)
	}

	squads := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		var rawID string
		switch v := item.(type) {
		case string:
			rawID = v
		case map[string]interface{}:
			s, ok := v["uuid"].(string)
			if !ok {
				return nil, fmt.Errorf("squad object missing uuid")
			}
			rawID = s
		default:
			return nil, fmt.Errorf("unexpected squad entry type %T", item)
		}

		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("invalid squad uuid %q: %w", rawID, err)
		}
		squads = append(squads, id)
	}
	return squads, nil
}
