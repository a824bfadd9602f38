package service

import (
	"context"
	"log"

	"github.com/nyxv/vpn_bot_server/internal/pkg/queue"
)

// 通知文案的 i18n 键，渲染在投递侧完成
const (
	NtfAccessDenied         = "ntf-access-denied"
	NtfAccessDeniedPurchase = "ntf-access-denied-purchase"
	NtfAccessOpened         = "ntf-access-opened"
)

// Notifier 通知派发。所有通知都是 fire-and-forget：
// 投递失败只记日志，绝不回滚触发它的访问判定或模式切换。
type Notifier interface {
	NotifyAccessDenied(ctx context.Context, telegramID int64, reasonKey string)
	NotifyAccessOpened(ctx context.Context, telegramIDs []int64)
}

// QueueNotifier 把通知任务丢进 redis 队列，由 worker 异步投递
type QueueNotifier struct {
	q *queue.Queue
}

func NewQueueNotifier(q *queue.Queue) *QueueNotifier {
	return &QueueNotifier{q: q}
}

func (n *QueueNotifier) NotifyAccessDenied(ctx context.Context, telegramID int64, reasonKey string) {
	kind := queue.KindAccessDenied
	if reasonKey == NtfAccessDeniedPurchase {
		kind = queue.KindAccessDeniedPurchase
	}

	err := n.q.PushNotification(ctx, &queue.NotificationMessage{
		Kind:      kind,
		UserIDs:   []int64{telegramID},
		ReasonKey: reasonKey,
	})
	if err != nil {
		log.Printf("Failed to enqueue access denied notification for user '%d': %v", telegramID, err)
	}
}

func (n *QueueNotifier) NotifyAccessOpened(ctx context.Context, telegramIDs []int64) {
	err := n.q.PushNotification(ctx, &queue.NotificationMessage{
		Kind:      queue.KindAccessOpened,
		UserIDs:   telegramIDs,
		ReasonKey: NtfAccessOpened,
	})
	if err != nil {
		log.Printf("Failed to enqueue access opened notification for %d users: %v", len(telegramIDs), err)
	}
}
