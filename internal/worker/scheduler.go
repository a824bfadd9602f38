package worker

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/nyxv/vpn_bot_server/internal/pkg/queue"
	"github.com/nyxv/vpn_bot_server/internal/service"
)

// Scheduler 周期性全量对账：按 cron 计划把所有用户逐个丢进对账队列
type Scheduler struct {
	users     *service.UserService
	syncQueue *queue.Queue
	cron      *cron.Cron
}

func NewScheduler(users *service.UserService, syncQueue *queue.Queue) *Scheduler {
	return &Scheduler{
		users:     users,
		syncQueue: syncQueue,
		cron:      cron.New(),
	}
}

// Start 注册计划并启动调度器
func (s *Scheduler) Start(cronSpec string) error {
	_, err := s.cron.AddFunc(cronSpec, func() {
		s.EnqueueFullSync(context.Background())
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("Full sync scheduled with spec '%s'", cronSpec)
	return nil
}

// Stop 停止调度器，等待在途任务入队完成
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// EnqueueFullSync 给每个用户入队一个对账任务
func (s *Scheduler) EnqueueFullSync(ctx context.Context) {
	users, err := s.users.GetAll()
	if err != nil {
		log.Printf("Failed to list users for full sync: %v", err)
		return
	}

	enqueued := 0
	for _, user := range users {
		err := s.syncQueue.PushSync(ctx, &queue.SyncMessage{UserID: user.TelegramID, Reason: "cron"})
		if err != nil {
			log.Printf("Failed to enqueue sync for user '%d': %v", user.TelegramID, err)
			continue
		}
		enqueued++
	}

	log.Printf("Full sync enqueued for %d users", enqueued)
}
