package service

import (
	"fmt"
	"log"
	"reflect"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/nyxv/vpn_bot_server/internal/model"
	"github.com/nyxv/vpn_bot_server/internal/model/dto"
)

// Syncable 参与结构化合并的 DTO。每个实现静态枚举自己可合并的字段表，
// 不依赖运行时的 schema 反射。
type Syncable interface {
	SyncFields() map[string]interface{}
	SetSyncField(name string, value interface{})
}

// SubscriptionsMatch 判断本地订阅与面板侧状态是否一致。
// 任一侧缺失视为不一致（需要同步，而不是错误）。
func SubscriptionsMatch(local *dto.Subscription, remote *dto.RemoteSubscription) bool {
	if local == nil || remote == nil {
		return false
	}

	return local.PanelUUID == remote.UUID &&
		local.Status == remote.Status &&
		local.URL == remote.URL &&
		local.TrafficLimit == remote.TrafficLimit &&
		local.DeviceLimit == remote.DeviceLimit &&
		local.ExpireAt.Equal(remote.ExpireAt) &&
		uuidPtrEqual(local.ExternalSquad, remote.ExternalSquad) &&
		local.Plan.TrafficResetStrategy == remote.TrafficResetStrategy &&
		local.Plan.Tag == remote.Tag &&
		uuidSetEqual(local.InternalSquads, remote.InternalSquads)
}

// PlanMatch 判断套餐快照与目录条目是否逐字段一致（分队集合不看顺序）
func PlanMatch(snapshot *model.PlanSnapshot, plan *model.Plan) bool {
	if snapshot == nil || plan == nil {
		return false
	}

	return snapshot.ID == plan.ID &&
		snapshot.Tag == plan.Tag &&
		snapshot.Type == plan.Type &&
		snapshot.TrafficLimit == plan.TrafficLimit &&
		snapshot.DeviceLimit == plan.DeviceLimit &&
		snapshot.TrafficResetStrategy == plan.TrafficResetStrategy &&
		uuidSetEqual(snapshot.InternalSquads, plan.InternalSquads) &&
		uuidPtrEqual(snapshot.ExternalSquad, plan.ExternalSquad)
}

// FindMatchingPlan 在目录里找第一个与快照一致的套餐，没有则返回 nil。
// “第一个”以目录自身顺序为准，不做额外的并列裁决。
func FindMatchingPlan(snapshot *model.PlanSnapshot, plans []*model.Plan) *model.Plan {
	for _, plan := range plans {
		if PlanMatch(snapshot, plan) {
			return plan
		}
	}
	return nil
}

// ApplySync 结构化合并：对 target 与 source 字段表的交集逐字段比较，
// 不同则以 source 为准覆盖并记日志。仅存在于一侧的字段不动。
// 原地修改 target 并返回。
func ApplySync[T Syncable](target T, source Syncable) T {
	targetFields := target.SyncFields()
	sourceFields := source.SyncFields()

	common := make([]string, 0, len(targetFields))
	for name := range targetFields {
		if _, ok := sourceFields[name]; ok {
			common = append(common, name)
		}
	}
	sort.Strings(common) // 日志顺序稳定

	for _, name := range common {
		oldValue := targetFields[name]
		newValue := sourceFields[name]
		if !syncValuesEqual(oldValue, newValue) {
			log.Printf("Field '%s' changed from '%v' to '%v'", name, oldValue, newValue)
			target.SetSyncField(name, newValue)
		}
	}

	return target
}

// ChangedSyncFields 预演一次合并，返回会被覆盖的字段名（不修改任何一侧）
func ChangedSyncFields(target, source Syncable) []string {
	targetFields := target.SyncFields()
	sourceFields := source.SyncFields()

	changed := make([]string, 0)
	for name, oldValue := range targetFields {
		newValue, ok := sourceFields[name]
		if ok && !syncValuesEqual(oldValue, newValue) {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

// GetTrafficResetDelta 计算距下一次流量重置边界的剩余时长。
// 纯函数：同一 (now, strategy) 必须得到同一结果。
// NO_RESET 返回 nil；未知策略是编程错误，返回 error 而不是静默跳过。
func GetTrafficResetDelta(now time.Time, strategy model.TrafficResetStrategy) (*time.Duration, error) {
	loc := now.Location()

	switch strategy {
	case model.TrafficResetNoReset:
		return nil, nil

	case model.TrafficResetDay:
		// 下一个 00:00:00
		resetAt := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, loc)
		delta := resetAt.Sub(now)
		return &delta, nil

	case model.TrafficResetWeek:
		// 下一个周一 00:05:00；当天就是周一时取下周，边界永远严格在未来
		weekday := (int(now.Weekday()) + 6) % 7 // 周一 = 0
		daysUntil := (7 - weekday) % 7
		if daysUntil == 0 {
			daysUntil = 7
		}
		resetAt := time.Date(now.Year(), now.Month(), now.Day()+daysUntil, 0, 5, 0, 0, loc)
		delta := resetAt.Sub(now)
		return &delta, nil

	case model.TrafficResetMonth:
		// 下月 1 号 00:10:00，12 月自动跨年
		resetAt := time.Date(now.Year(), now.Month()+1, 1, 0, 10, 0, 0, loc)
		delta := resetAt.Sub(now)
		return &delta, nil

	default:
		return nil, fmt.Errorf("unsupported traffic reset strategy: %q", strategy)
	}
}

func uuidSetEqual(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}

	sortedA := make([]uuid.UUID, len(a))
	copy(sortedA, a)
	sortedB := make([]uuid.UUID, len(b))
	copy(sortedB, b)

	sort.Slice(sortedA, func(i, j int) bool { return sortedA[i].String() < sortedA[j].String() })
	sort.Slice(sortedB, func(i, j int) bool { return sortedB[i].String() < sortedB[j].String() })

	for i := range sortedA {
		if sortedA[i] != sortedB[i] {
			return false
		}
	}
	return true
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// syncValuesEqual 字段值比较；time.Time 按时刻比较，避免时区表示差异造成假漂移
func syncValuesEqual(a, b interface{}) bool {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}
