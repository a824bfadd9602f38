package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxv/vpn_bot_server/internal/model"
	"github.com/nyxv/vpn_bot_server/internal/model/dto"
)

var (
	squadA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	squadB = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func matchingPair() (*dto.Subscription, *dto.RemoteSubscription) {
	panelUUID := uuid.MustParse("8a6472eb-40a7-4f07-9039-67e5e4b9c2f1")
	expireAt := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	local := &dto.Subscription{
		ID:             1,
		UserTelegramID: 42,
		PanelUUID:      panelUUID,
		Status:         model.SubscriptionStatusActive,
		TrafficLimit:   100,
		DeviceLimit:    3,
		InternalSquads: []uuid.UUID{squadA, squadB},
		ExpireAt:       expireAt,
		URL:            "https://sub.example.com/abc",
		Plan: model.PlanSnapshot{
			ID:                   7,
			Tag:                  "BASE",
			TrafficResetStrategy: model.TrafficResetMonth,
		},
	}

	remote := &dto.RemoteSubscription{
		UUID:                 panelUUID,
		Status:               model.SubscriptionStatusActive,
		ExpireAt:             expireAt,
		URL:                  "https://sub.example.com/abc",
		TrafficLimit:         100,
		DeviceLimit:          3,
		TrafficResetStrategy: model.TrafficResetMonth,
		Tag:                  "BASE",
		InternalSquads:       []uuid.UUID{squadA, squadB},
	}

	return local, remote
}

func TestSubscriptionsMatch_Identical(t *testing.T) {
	local, remote := matchingPair()
	assert.True(t, SubscriptionsMatch(local, remote))
}

func TestSubscriptionsMatch_SquadOrderIrrelevant(t *testing.T) {
	local, remote := matchingPair()
	remote.InternalSquads = []uuid.UUID{squadB, squadA}

	assert.True(t, SubscriptionsMatch(local, remote))
}

func TestSubscriptionsMatch_NilOperands(t *testing.T) {
	local, remote := matchingPair()

	assert.False(t, SubscriptionsMatch(nil, remote))
	assert.False(t, SubscriptionsMatch(local, nil))
	assert.False(t, SubscriptionsMatch(nil, nil))
}

func TestSubscriptionsMatch_FieldMismatches(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*dto.Subscription, *dto.RemoteSubscription)
	}{
		{"uuid", func(l *dto.Subscription, r *dto.RemoteSubscription) { r.UUID = uuid.New() }},
		{"status", func(l *dto.Subscription, r *dto.RemoteSubscription) { r.Status = model.SubscriptionStatusExpired }},
		{"url", func(l *dto.Subscription, r *dto.RemoteSubscription) { r.URL = "https://other.example.com" }},
		{"traffic limit", func(l *dto.Subscription, r *dto.RemoteSubscription) { r.TrafficLimit = 200 }},
		{"device limit", func(l *dto.Subscription, r *dto.RemoteSubscription) { r.DeviceLimit = 5 }},
		{"expire at", func(l *dto.Subscription, r *dto.RemoteSubscription) { r.ExpireAt = r.ExpireAt.Add(time.Hour) }},
		{"external squad", func(l *dto.Subscription, r *dto.RemoteSubscription) { s := uuid.New(); r.ExternalSquad = &s }},
		{"reset strategy", func(l *dto.Subscription, r *dto.RemoteSubscription) { r.TrafficResetStrategy = model.TrafficResetDay }},
		{"tag", func(l *dto.Subscription, r *dto.RemoteSubscription) { r.Tag = "OTHER" }},
		{"internal squads", func(l *dto.Subscription, r *dto.RemoteSubscription) { r.InternalSquads = []uuid.UUID{squadA} }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			local, remote := matchingPair()
			tc.mutate(local, remote)
			assert.False(t, SubscriptionsMatch(local, remote))
		})
	}
}

func TestPlanMatch(t *testing.T) {
	external := uuid.New()
	plan := &model.Plan{
		ID:                   7,
		Tag:                  "BASE",
		Type:                 model.PlanTypeTraffic,
		TrafficLimit:         100,
		DeviceLimit:          3,
		TrafficResetStrategy: model.TrafficResetMonth,
		InternalSquads:       []uuid.UUID{squadA, squadB},
		ExternalSquad:        &external,
	}
	snapshot := &model.PlanSnapshot{
		ID:                   7,
		Tag:                  "BASE",
		Type:                 model.PlanTypeTraffic,
		TrafficLimit:         100,
		DeviceLimit:          3,
		TrafficResetStrategy: model.TrafficResetMonth,
		InternalSquads:       []uuid.UUID{squadB, squadA}, // 顺序不同
		ExternalSquad:        &external,
	}

	t.Run("squad order does not matter", func(t *testing.T) {
		assert.True(t, PlanMatch(snapshot, plan))
	})

	t.Run("nil operands never match", func(t *testing.T) {
		assert.False(t, PlanMatch(nil, plan))
		assert.False(t, PlanMatch(snapshot, nil))
	})

	t.Run("changed catalog entry", func(t *testing.T) {
		changed := *plan
		changed.TrafficLimit = 500
		assert.False(t, PlanMatch(snapshot, &changed))
	})
}

func TestFindMatchingPlan(t *testing.T) {
	snapshot := &model.PlanSnapshot{ID: 7, Tag: "BASE", Type: model.PlanTypeTraffic, TrafficLimit: 100}
	match := &model.Plan{ID: 7, Tag: "BASE", Type: model.PlanTypeTraffic, TrafficLimit: 100}
	other := &model.Plan{ID: 8, Tag: "PRO", Type: model.PlanTypeBoth, TrafficLimit: 500}

	assert.Equal(t, match, FindMatchingPlan(snapshot, []*model.Plan{other, match}))
	assert.Nil(t, FindMatchingPlan(snapshot, []*model.Plan{other}))
	assert.Nil(t, FindMatchingPlan(snapshot, nil))
}

func TestApplySync_RemoteToLocal(t *testing.T) {
	local, remote := matchingPair()

	remote.Status = model.SubscriptionStatusExpired
	remote.TrafficLimit = 250
	remote.ExpireAt = remote.ExpireAt.Add(48 * time.Hour)
	remote.Tag = "CHANGED" // local 侧没有 tag 同步字段，不应影响 local

	result := ApplySync(local, remote)

	assert.Same(t, local, result) // 原地修改
	assert.Equal(t, model.SubscriptionStatusExpired, local.Status)
	assert.Equal(t, 250, local.TrafficLimit)
	assert.True(t, local.ExpireAt.Equal(remote.ExpireAt))

	// 仅存在于 target 的字段不动
	assert.Equal(t, int64(1), local.ID)
	assert.False(t, local.IsTrial)
	assert.Equal(t, "BASE", local.Plan.Tag)
}

func TestApplySync_Idempotent(t *testing.T) {
	local, remote := matchingPair()
	remote.DeviceLimit = 10

	ApplySync(local, remote)
	assert.Empty(t, ChangedSyncFields(local, remote))

	// 第二次应用不再有任何变化
	before := *local
	ApplySync(local, remote)
	assert.Equal(t, before.DeviceLimit, local.DeviceLimit)
	assert.True(t, before.ExpireAt.Equal(local.ExpireAt))
}

func TestChangedSyncFields(t *testing.T) {
	local, remote := matchingPair()
	assert.Empty(t, ChangedSyncFields(local, remote))

	remote.Status = model.SubscriptionStatusExpired
	remote.URL = "https://other.example.com"
	assert.Equal(t, []string{"status", "url"}, ChangedSyncFields(local, remote))
}

func TestGetTrafficResetDelta_NoReset(t *testing.T) {
	delta, err := GetTrafficResetDelta(time.Now(), model.TrafficResetNoReset)
	require.NoError(t, err)
	assert.Nil(t, delta)
}

func TestGetTrafficResetDelta_Day(t *testing.T) {
	// 23:59:59 → 次日 00:00:00，恰好 1 秒
	now := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)

	delta, err := GetTrafficResetDelta(now, model.TrafficResetDay)
	require.NoError(t, err)
	require.NotNil(t, delta)
	assert.Equal(t, time.Second, *delta)
}

func TestGetTrafficResetDelta_Week(t *testing.T) {
	t.Run("on boundary day the next week is used", func(t *testing.T) {
		// 2026-03-16 是周一；00:05:01 已过边界，取下周一 00:05:00
		now := time.Date(2026, 3, 16, 0, 5, 1, 0, time.UTC)

		delta, err := GetTrafficResetDelta(now, model.TrafficResetWeek)
		require.NoError(t, err)
		require.NotNil(t, delta)
		assert.Equal(t, 7*24*time.Hour-time.Second, *delta)
		assert.Greater(t, *delta, time.Duration(0))
	})

	t.Run("midweek", func(t *testing.T) {
		// 周三中午 → 下周一 00:05:00
		now := time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)

		delta, err := GetTrafficResetDelta(now, model.TrafficResetWeek)
		require.NoError(t, err)
		require.NotNil(t, delta)

		resetAt := now.Add(*delta)
		assert.Equal(t, time.Monday, resetAt.Weekday())
		assert.Equal(t, 0, resetAt.Hour())
		assert.Equal(t, 5, resetAt.Minute())
	})
}

func TestGetTrafficResetDelta_Month(t *testing.T) {
	t.Run("regular month", func(t *testing.T) {
		now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

		delta, err := GetTrafficResetDelta(now, model.TrafficResetMonth)
		require.NoError(t, err)
		require.NotNil(t, delta)

		resetAt := now.Add(*delta)
		assert.Equal(t, time.Date(2026, 4, 1, 0, 10, 0, 0, time.UTC), resetAt)
	})

	t.Run("december rolls over to january", func(t *testing.T) {
		now := time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC)

		delta, err := GetTrafficResetDelta(now, model.TrafficResetMonth)
		require.NoError(t, err)
		require.NotNil(t, delta)

		resetAt := now.Add(*delta)
		assert.Equal(t, time.Date(2027, 1, 1, 0, 10, 0, 0, time.UTC), resetAt)
	})
}

func TestGetTrafficResetDelta_UnknownStrategy(t *testing.T) {
	_, err := GetTrafficResetDelta(time.Now(), model.TrafficResetStrategy("BOGUS"))
	assert.Error(t, err)
}

func TestGetTrafficResetDelta_Deterministic(t *testing.T) {
	now := time.Date(2026, 3, 18, 12, 0, 0, 0, time.UTC)

	first, err := GetTrafficResetDelta(now, model.TrafficResetWeek)
	require.NoError(t, err)
	second, err := GetTrafficResetDelta(now, model.TrafficResetWeek)
	require.NoError(t, err)

	assert.Equal(t, *first, *second)
}
