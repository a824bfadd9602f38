package worker

import (
	"context"
	"log"
	"time"

	"github.com/nyxv/vpn_bot_server/internal/pkg/queue"
	"github.com/nyxv/vpn_bot_server/internal/pkg/telegram"
)

const defaultChunkSize = 25

// 通知文案，键与通知类型对应
var notificationTexts = map[string]string{
	queue.KindAccessDenied:         "服务暂未开放，开放后会第一时间通知你",
	queue.KindAccessDeniedPurchase: "购买功能暂时关闭，开放后会第一时间通知你",
	queue.KindAccessOpened:         "服务已重新开放，欢迎回来",
	queue.KindSubscriptionSynced:   "你的订阅信息已更新",
}

// Dispatcher 通知投递器。收件人按块分批发送，
// 单个用户投递失败只记日志，不影响同批其他用户。
type Dispatcher struct {
	notifications *queue.Queue
	telegram      *telegram.Client
	chunkSize     int
}

func NewDispatcher(notifications *queue.Queue, tg *telegram.Client, chunkSize int) *Dispatcher {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &Dispatcher{
		notifications: notifications,
		telegram:      tg,
		chunkSize:     chunkSize,
	}
}

// Run 消费通知队列，阻塞直到 ctx 取消
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := d.notifications.PopNotification(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Failed to pop notification task: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		d.Deliver(ctx, msg)
	}
}

// Deliver 投递单条通知任务
func (d *Dispatcher) Deliver(ctx context.Context, msg *queue.NotificationMessage) {
	text, ok := notificationTexts[msg.Kind]
	if !ok {
		log.Printf("Warning: dropping notification with unknown kind '%s'", msg.Kind)
		return
	}

	delivered := 0
	for _, chunk := range chunkUserIDs(msg.UserIDs, d.chunkSize) {
		for _, userID := range chunk {
			if err := d.telegram.SendMessage(ctx, userID, text); err != nil {
				log.Printf("Failed to deliver '%s' notification to user '%d': %v", msg.Kind, userID, err)
				continue
			}
			delivered++
		}
	}

	log.Printf("Delivered '%s' notification to %d/%d users", msg.Kind, delivered, len(msg.UserIDs))
}

// chunkUserIDs 按固定大小切块，最后一块可以不满
func chunkUserIDs(ids []int64, size int) [][]int64 {
	if len(ids) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(ids)
	}

	chunks := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
