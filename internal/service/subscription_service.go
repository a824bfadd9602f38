package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/nyxv/vpn_bot_server/internal/model"
	"github.com/nyxv/vpn_bot_server/internal/model/dto"
	"github.com/nyxv/vpn_bot_server/internal/pkg/storage"
	"github.com/nyxv/vpn_bot_server/internal/repository"
)

// SubscriptionService 订阅的权威存储层。
// 过期状态采用惰性修正：读取路径按 expire_at 实时判定，
// 持久化的 status 列由同步 worker 在下一轮回写。
type SubscriptionService struct {
	subRepo  *repository.SubscriptionRepository
	userRepo *repository.UserRepository
	storage  *storage.Storage
}

func NewSubscriptionService(subRepo *repository.SubscriptionRepository, userRepo *repository.UserRepository, st *storage.Storage) *SubscriptionService {
	return &SubscriptionService{
		subRepo:  subRepo,
		userRepo: userRepo,
		storage:  st,
	}
}

// Create 创建订阅并把它链接为用户的当前订阅
func (s *SubscriptionService) Create(ctx context.Context, sub *dto.Subscription) (*dto.Subscription, error) {
	m := sub.ToModel()
	if err := s.subRepo.Create(m); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	if err := s.userRepo.SetCurrentSubscription(m.UserTelegramID, &m.ID); err != nil {
		return nil, fmt.Errorf("failed to link current subscription: %w", err)
	}
	s.clearUserCache(ctx, m.UserTelegramID)

	log.Printf("Created subscription '%d' for user '%d' (plan: %s)", m.ID, m.UserTelegramID, m.Plan.Tag)
	return dto.SubscriptionFromModel(m), nil
}

// Get 按 ID 查询，不存在时返回 nil 而非错误
func (s *SubscriptionService) Get(id int64) (*dto.Subscription, error) {
	m, err := s.subRepo.GetByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription %d: %w", id, err)
	}
	return dto.SubscriptionFromModel(m), nil
}

// GetCurrent 用户当前订阅。链接悬空（指向已不存在的记录）时
// 记告警并按无订阅处理，不让脏链接炸穿调用方。
func (s *SubscriptionService) GetCurrent(telegramID int64) (*dto.Subscription, error) {
	user, err := s.userRepo.GetByID(telegramID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", telegramID, err)
	}

	if user.CurrentSubscriptionID == nil {
		return nil, nil
	}

	m, err := s.subRepo.GetByID(*user.CurrentSubscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("Warning: user '%d' links to missing subscription '%d'", telegramID, *user.CurrentSubscriptionID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription %d: %w", *user.CurrentSubscriptionID, err)
	}
	return dto.SubscriptionFromModel(m), nil
}

func (s *SubscriptionService) GetAll() ([]*dto.Subscription, error) {
	ms, err := s.subRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return dto.SubscriptionsFromModelList(ms), nil
}

func (s *SubscriptionService) GetAllByUser(telegramID int64) ([]*dto.Subscription, error) {
	ms, err := s.subRepo.GetAllByUser(telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for user %d: %w", telegramID, err)
	}
	return dto.SubscriptionsFromModelList(ms), nil
}

// Update 部分字段更新并返回更新后的订阅，记录不存在时返回 nil
func (s *SubscriptionService) Update(ctx context.Context, id int64, fields map[string]interface{}) (*dto.Subscription, error) {
	affected, err := s.subRepo.UpdateFields(id, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update subscription %d: %w", id, err)
	}
	if affected == 0 {
		return nil, nil
	}

	updated, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if updated != nil {
		s.clearUserCache(ctx, updated.UserTelegramID)
	}
	return updated, nil
}

// NextTrafficReset 距订阅下一次流量重置边界的剩余时长。
// found 为 false 表示订阅不存在；NO_RESET 策略返回 (nil, true, nil)。
func (s *SubscriptionService) NextTrafficReset(id int64, now time.Time) (*time.Duration, bool, error) {
	sub, err := s.Get(id)
	if err != nil {
		return nil, false, err
	}
	if sub == nil {
		return nil, false, nil
	}

	delta, err := GetTrafficResetDelta(now, sub.Plan.TrafficResetStrategy)
	if err != nil {
		return nil, true, err
	}
	return delta, true, nil
}

// HasAnySubscription 用户是否有过任何订阅记录
func (s *SubscriptionService) HasAnySubscription(telegramID int64) (bool, error) {
	count, err := s.subRepo.CountByUser(telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to count subscriptions for user %d: %w", telegramID, err)
	}
	return count > 0, nil
}

// HasUsedTrial 用户是否已消耗试用资格（已删除的试用不计）
func (s *SubscriptionService) HasUsedTrial(telegramID int64) (bool, error) {
	count, err := s.subRepo.CountUsedTrialsByUser(telegramID)
	if err != nil {
		return false, fmt.Errorf("failed to count trials for user %d: %w", telegramID, err)
	}
	return count > 0, nil
}

// GetSubscribedUsers 当前订阅仍有效的用户
func (s *SubscriptionService) GetSubscribedUsers(now time.Time) ([]int64, error) {
	return s.filterUsersByCurrent(func(sub *dto.Subscription) bool {
		return sub != nil && sub.IsActive(now)
	})
}

// GetUnsubscribedUsers 没有有效当前订阅的用户
func (s *SubscriptionService) GetUnsubscribedUsers(now time.Time) ([]int64, error) {
	return s.filterUsersByCurrent(func(sub *dto.Subscription) bool {
		return sub == nil || !sub.IsActive(now)
	})
}

// GetExpiredUsers 当前订阅已到期的用户（无订阅的不算）
func (s *SubscriptionService) GetExpiredUsers(now time.Time) ([]int64, error) {
	return s.filterUsersByCurrent(func(sub *dto.Subscription) bool {
		return sub != nil && sub.EffectiveStatus(now) == model.SubscriptionStatusExpired
	})
}

// GetTrialUsers 当前订阅为试用的用户
func (s *SubscriptionService) GetTrialUsers() ([]int64, error) {
	return s.filterUsersByCurrent(func(sub *dto.Subscription) bool {
		return sub != nil && sub.IsTrial
	})
}

// GetUsersByPlan 持有指定套餐的有效订阅的用户，按套餐冗余列直查
func (s *SubscriptionService) GetUsersByPlan(planID int64, now time.Time) ([]int64, error) {
	ms, err := s.subRepo.FilterByPlanID(planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions for plan %d: %w", planID, err)
	}

	seen := make(map[int64]bool)
	result := make([]int64, 0, len(ms))
	for _, m := range ms {
		sub := dto.SubscriptionFromModel(m)
		if !sub.IsActive(now) || seen[sub.UserTelegramID] {
			continue
		}
		seen[sub.UserTelegramID] = true
		result = append(result, sub.UserTelegramID)
	}
	return result, nil
}

// filterUsersByCurrent 按当前订阅谓词筛选用户，悬空链接按无订阅处理
func (s *SubscriptionService) filterUsersByCurrent(keep func(*dto.Subscription) bool) ([]int64, error) {
	users, err := s.userRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	result := make([]int64, 0)
	for _, user := range users {
		current, err := s.GetCurrent(user.TelegramID)
		if err != nil {
			return nil, err
		}
		if keep(current) {
			result = append(result, user.TelegramID)
		}
	}
	return result, nil
}

func (s *SubscriptionService) clearUserCache(ctx context.Context, telegramID int64) {
	if err := s.storage.Delete(ctx, storage.UserCacheKey(telegramID)); err != nil {
		log.Printf("Failed to clear user cache for '%d': %v", telegramID, err)
	}
}
