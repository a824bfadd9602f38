package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelSyncEvents = "subscription_sync_events"
)

// 对账结果
const (
	ResultInSync    = "in_sync"    // 本地与面板一致，无动作
	ResultSynced    = "synced"     // 检测到漂移并已同步
	ResultRecreated = "recreated"  // 面板侧缺失，已重建
	ResultOrphan    = "orphan"     // 本地无订阅记录
	ResultFailed    = "failed"
)

// SyncEvent 一次对账的结果事件，经 redis pub/sub 广播给后台面板
type SyncEvent struct {
	Type           string   `json:"type"`
	UserID         int64    `json:"user_id"`
	SubscriptionID int64    `json:"subscription_id,omitempty"`
	Result         string   `json:"result"`
	ChangedFields  []string `json:"changed_fields,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishSyncEvent 发布对账事件
func (p *Publisher) PublishSyncEvent(ctx context.Context, event *SyncEvent) error {
	event.Type = "sync_event"

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal sync event: %w", err)
	}

	return p.client.Publish(ctx, ChannelSyncEvents, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅对账事件，阻塞直到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*SyncEvent)) error {
	pubsub := s.client.Subscribe(ctx, ChannelSyncEvents)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event SyncEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue // 忽略解析错误
			}

			handler(&event)
		}
	}
}
