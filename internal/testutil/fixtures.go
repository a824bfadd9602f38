package testutil

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nyxv/vpn_bot_server/internal/model"
)

var nextTelegramID int64 = 1000

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	user := &model.User{
		TelegramID: atomic.AddInt64(&nextTelegramID, 1),
		Username:   "testuser",
		Role:       model.UserRoleUser,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithTelegramID 指定 telegram id
func WithTelegramID(id int64) func(*model.User) {
	return func(u *model.User) {
		u.TelegramID = id
	}
}

// WithRole 设置角色
func WithRole(role model.UserRole) func(*model.User) {
	return func(u *model.User) {
		u.Role = role
	}
}

// WithBlocked 标记封禁
func WithBlocked() func(*model.User) {
	return func(u *model.User) {
		u.IsBlocked = true
	}
}

// TestPlan 创建测试套餐
func TestPlan(t *testing.T, db *gorm.DB, opts ...func(*model.Plan)) *model.Plan {
	t.Helper()

	plan := &model.Plan{
		Tag:                  "BASE",
		Type:                 model.PlanTypeTraffic,
		DurationDays:         30,
		TrafficLimit:         100,
		DeviceLimit:          3,
		TrafficResetStrategy: model.TrafficResetMonth,
		InternalSquads:       []uuid.UUID{uuid.New()},
		IsActive:             true,
	}

	for _, opt := range opts {
		opt(plan)
	}

	if err := db.Create(plan).Error; err != nil {
		t.Fatalf("Failed to create test plan: %v", err)
	}

	return plan
}

// WithPlanTag 设置套餐 tag
func WithPlanTag(tag string) func(*model.Plan) {
	return func(p *model.Plan) {
		p.Tag = tag
	}
}

// TestSubscription 创建测试订阅并链接为用户当前订阅
func TestSubscription(t *testing.T, db *gorm.DB, user *model.User, plan *model.Plan, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	sub := &model.Subscription{
		UserTelegramID: user.TelegramID,
		PlanID:         plan.ID,
		PanelUUID:      uuid.New(),
		Status:         model.SubscriptionStatusActive,
		TrafficLimit:   plan.TrafficLimit,
		DeviceLimit:    plan.DeviceLimit,
		InternalSquads: plan.InternalSquads,
		ExpireAt:       time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second),
		URL:            "https://sub.example.com/abc",
		Plan:           plan.Snapshot(),
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	if err := db.Model(&model.User{}).Where("telegram_id = ?", user.TelegramID).
		Update("current_subscription_id", sub.ID).Error; err != nil {
		t.Fatalf("Failed to link current subscription: %v", err)
	}
	user.CurrentSubscriptionID = &sub.ID

	return sub
}

// WithStatus 设置订阅状态
func WithStatus(status model.SubscriptionStatus) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.Status = status
	}
}

// WithTrial 标记试用订阅
func WithTrial() func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.IsTrial = true
	}
}

// WithExpireAt 设置到期时间
func WithExpireAt(expireAt time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		s.ExpireAt = expireAt
	}
}
