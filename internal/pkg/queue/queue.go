package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// 通知任务类型
const (
	KindAccessDenied         = "access_denied"
	KindAccessDeniedPurchase = "access_denied_purchase"
	KindAccessOpened         = "access_opened"
	KindSubscriptionSynced   = "subscription_synced"
)

// SyncMessage 订阅对账任务
type SyncMessage struct {
	UserID int64  `json:"user_id"`
	Reason string `json:"reason,omitempty"` // manual / cron / event
}

// NotificationMessage 通知任务，投递是 fire-and-forget 的
type NotificationMessage struct {
	Kind      string  `json:"kind"`
	UserIDs   []int64 `json:"user_ids"`
	ReasonKey string  `json:"reason_key,omitempty"` // i18n 键，渲染交给投递侧
}

type Queue struct {
	client    *redis.Client
	queueName string
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

// PushSync 将对账任务加入队列
func (q *Queue) PushSync(ctx context.Context, msg *SyncMessage) error {
	return q.push(ctx, msg)
}

// PopSync 从队列获取对账任务（阻塞）
func (q *Queue) PopSync(ctx context.Context, timeout time.Duration) (*SyncMessage, error) {
	var msg SyncMessage
	ok, err := q.pop(ctx, timeout, &msg)
	if err != nil || !ok {
		return nil, err
	}
	return &msg, nil
}

// PushNotification 将通知任务加入队列
func (q *Queue) PushNotification(ctx context.Context, msg *NotificationMessage) error {
	return q.push(ctx, msg)
}

// PopNotification 从队列获取通知任务（阻塞）
func (q *Queue) PopNotification(ctx context.Context, timeout time.Duration) (*NotificationMessage, error) {
	var msg NotificationMessage
	ok, err := q.pop(ctx, timeout, &msg)
	if err != nil || !ok {
		return nil, err
	}
	return &msg, nil
}

// Length 获取队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}

func (q *Queue) push(ctx context.Context, msg interface{}) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

func (q *Queue) pop(ctx context.Context, timeout time.Duration, out interface{}) (bool, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil // 超时，无任务
		}
		return false, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return false, nil
	}

	if err := json.Unmarshal([]byte(result[1]), out); err != nil {
		return false, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return true, nil
}
