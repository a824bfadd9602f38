package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// Storage 带固定命名空间键的 redis 读写封装。
// 访问模式、等待队列等进程间共享状态都经由这里，
// 任何一层都不允许把这些值缓存在进程内。
type Storage struct {
	client *redis.Client
}

func NewStorage(client *redis.Client) *Storage {
	return &Storage{client: client}
}

// Get 读取标量，键不存在时返回 defaultValue
func (s *Storage) Get(ctx context.Context, key, defaultValue string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return defaultValue, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key %s: %w", key, err)
	}
	return value, nil
}

// Set 写入标量，ttl 为 0 表示不过期
func (s *Storage) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Delete 删除键（集合整删也走这里）
func (s *Storage) Delete(ctx context.Context, keys ...string) error {
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys %v: %w", keys, err)
	}
	return nil
}

// CollectionAdd 集合添加，返回本次是否真的新增了成员
func (s *Storage) CollectionAdd(ctx context.Context, key, member string) (bool, error) {
	added, err := s.client.SAdd(ctx, key, member).Result()
	if err != nil {
		return false, fmt.Errorf("failed to add to collection %s: %w", key, err)
	}
	return added > 0, nil
}

// CollectionRemove 集合移除，返回本次是否真的移除了成员
func (s *Storage) CollectionRemove(ctx context.Context, key, member string) (bool, error) {
	removed, err := s.client.SRem(ctx, key, member).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove from collection %s: %w", key, err)
	}
	return removed > 0, nil
}

// CollectionMembers 集合全量成员
func (s *Storage) CollectionMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %s: %w", key, err)
	}
	return members, nil
}

// CollectionIsMember 成员存在性检查
func (s *Storage) CollectionIsMember(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check collection %s: %w", key, err)
	}
	return ok, nil
}
