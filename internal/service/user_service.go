package service

import (
	"context"
	"encoding/json"
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

// UserService 用户读写，读路径走 redis DTO 缓存。
// 缓存只是旁路加速，读写失败都降级为直查数据库。
type UserService struct {
	userRepo *repository.UserRepository
	storage  *storage.Storage
	cacheTTL time.Duration
}

func NewUserService(userRepo *repository.UserRepository, st *storage.Storage, cacheTTL time.Duration) *UserService {
	return &UserService{
		userRepo: userRepo,
		storage:  st,
		cacheTTL: cacheTTL,
	}
}

// Get 按 telegram id 查询，不存在时返回 nil
func (s *UserService) Get(ctx context.Context, telegramID int64) (*dto.User, error) {
	if cached := s.readCache(ctx, telegramID); cached != nil {
		return cached, nil
	}

	m, err := s.userRepo.GetByID(telegramID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", telegramID, err)
	}

	user := dto.UserFromModel(m)
	s.writeCache(ctx, user)
	return user, nil
}

// GetOrCreate 首次见到的用户自动落库
func (s *UserService) GetOrCreate(ctx context.Context, telegramID int64, username string) (*dto.User, error) {
	user, err := s.Get(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	m := &model.User{
		TelegramID: telegramID,
		Username:   username,
		Role:       model.UserRoleUser,
	}
	if err := s.userRepo.Create(m); err != nil {
		return nil, fmt.Errorf("failed to create user %d: %w", telegramID, err)
	}
	log.Printf("Created user '%d' (username: %s)", telegramID, username)

	user = dto.UserFromModel(m)
	s.writeCache(ctx, user)
	return user, nil
}

func (s *UserService) GetAll() ([]*dto.User, error) {
	ms, err := s.userRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return dto.UsersFromModelList(ms), nil
}

// SetCurrentSubscription 维护当前订阅链接，传 nil 解除
func (s *UserService) SetCurrentSubscription(ctx context.Context, telegramID int64, subscriptionID *int64) error {
	if err := s.userRepo.SetCurrentSubscription(telegramID, subscriptionID); err != nil {
		return fmt.Errorf("failed to set current subscription for user %d: %w", telegramID, err)
	}
	s.ClearUserCache(ctx, telegramID)
	return nil
}

// SetBlocked 封禁/解封
func (s *UserService) SetBlocked(ctx context.Context, telegramID int64, blocked bool) error {
	if err := s.userRepo.UpdateFields(telegramID, map[string]interface{}{"is_blocked": blocked}); err != nil {
		return fmt.Errorf("failed to update block state for user %d: %w", telegramID, err)
	}
	log.Printf("User '%d' blocked state set to %v", telegramID, blocked)
	s.ClearUserCache(ctx, telegramID)
	return nil
}

// ClearUserCache 订阅或用户状态变更后缓存失效
func (s *UserService) ClearUserCache(ctx context.Context, telegramID int64) {
	if err := s.storage.Delete(ctx, storage.UserCacheKey(telegramID)); err != nil {
		log.Printf("Failed to clear user cache for '%d': %v", telegramID, err)
	}
}

func (s *UserService) readCache(ctx context.Context, telegramID int64) *dto.User {
	raw, err := s.storage.Get(ctx, storage.UserCacheKey(telegramID), "")
	if err != nil {
		log.Printf("Failed to read user cache for '%d': %v", telegramID, err)
		return nil
	}
	if raw == "" {
		return nil
	}

	var user dto.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		log.Printf("Failed to decode cached user '%d': %v", telegramID, err)
		return nil
	}
	return &user
}

func (s *UserService) writeCache(ctx context.Context, user *dto.User) {
	raw, err := json.Marshal(user)
	if err != nil {
		log.Printf("Failed to encode user '%d' for cache: %v", user.TelegramID, err)
		return
	}
	if err := s.storage.Set(ctx, storage.UserCacheKey(user.TelegramID), string(raw), s.cacheTTL); err != nil {
		log.Printf("Failed to write user cache for '%d': %v", user.TelegramID, err)
	}
}
