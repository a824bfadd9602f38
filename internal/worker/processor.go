package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/nyxv/vpn_bot_server/internal/model"
	"github.com/nyxv/vpn_bot_server/internal/model/dto"
	"github.com/nyxv/vpn_bot_server/internal/pkg/pubsub"
	"github.com/nyxv/vpn_bot_server/internal/pkg/queue"
	"github.com/nyxv/vpn_bot_server/internal/pkg/remnawave"
	"github.com/nyxv/vpn_bot_server/internal/repository"
	"github.com/nyxv/vpn_bot_server/internal/service"
)

const popTimeout = 5 * time.Second

// Processor 订阅对账处理器。每个任务对账一个用户：
// 拉取面板侧状态，与本地权威记录比对，把漂移拉回本地，
// 面板侧缺失时按本地记录重建。
type Processor struct {
	subscriptions *service.SubscriptionService
	plans         *repository.PlanRepository
	panel         *remnawave.Client
	publisher     *pubsub.Publisher
	syncQueue     *queue.Queue
	notifications *queue.Queue
}

func NewProcessor(
	subscriptions *service.SubscriptionService,
	plans *repository.PlanRepository,
	panel *remnawave.Client,
	publisher *pubsub.Publisher,
	syncQueue *queue.Queue,
	notifications *queue.Queue,
) *Processor {
	return &Processor{
		subscriptions: subscriptions,
		plans:         plans,
		panel:         panel,
		publisher:     publisher,
		syncQueue:     syncQueue,
		notifications: notifications,
	}
}

// Run 消费对账队列，阻塞直到 ctx 取消
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := p.syncQueue.PopSync(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Failed to pop sync task: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue // 超时，无任务
		}

		p.ProcessSync(ctx, msg)
	}
}

// ProcessSync 对账单个用户并广播结果事件
func (p *Processor) ProcessSync(ctx context.Context, msg *queue.SyncMessage) {
	log.Printf("Syncing subscription for user '%d' (reason: %s)", msg.UserID, msg.Reason)

	event := p.reconcile(ctx, msg.UserID)
	if err := p.publisher.PublishSyncEvent(ctx, event); err != nil {
		log.Printf("Failed to publish sync event for user '%d': %v", msg.UserID, err)
	}

	if event.Result == pubsub.ResultSynced || event.Result == pubsub.ResultRecreated {
		err := p.notifications.PushNotification(ctx, &queue.NotificationMessage{
			Kind:    queue.KindSubscriptionSynced,
			UserIDs: []int64{msg.UserID},
		})
		if err != nil {
			log.Printf("Failed to enqueue sync notification for user '%d': %v", msg.UserID, err)
		}
	}
}

func (p *Processor) reconcile(ctx context.Context, userID int64) *pubsub.SyncEvent {
	now := time.Now()

	sub, err := p.subscriptions.GetCurrent(userID)
	if err != nil {
		return failedEvent(userID, 0, err)
	}
	if sub == nil {
		return &pubsub.SyncEvent{UserID: userID, Result: pubsub.ResultOrphan}
	}

	// 惰性过期修正：status 列可能落后于 expire_at
	if effective := sub.EffectiveStatus(now); effective != sub.Status {
		log.Printf("Subscription '%d' status corrected from '%s' to '%s'", sub.ID, sub.Status, effective)
		updated, err := p.subscriptions.Update(ctx, sub.ID, map[string]interface{}{"status": effective})
		if err != nil {
			return failedEvent(userID, sub.ID, err)
		}
		if updated != nil {
			sub = updated
		}
	}

	panelUsers, err := p.panel.GetUserByTelegramID(ctx, userID)
	if err != nil {
		return failedEvent(userID, sub.ID, err)
	}

	remote := findPanelUser(panelUsers, sub.PanelUUID)
	if remote == nil {
		return p.recreate(ctx, userID, sub, panelUsers)
	}

	// 本地已判过期而面板仍放行时，先停用面板侧，
	// 避免随后的回拉把过期状态冲回 ACTIVE
	if sub.Status == model.SubscriptionStatusExpired && remote.Status == model.SubscriptionStatusActive {
		if err := p.panel.DisableUser(ctx, remote.UUID.String()); err != nil {
			return failedEvent(userID, sub.ID, err)
		}
		log.Printf("Disabled panel user '%s' for expired subscription '%d'", remote.UUID, sub.ID)
		remote.Status = model.SubscriptionStatusExpired
	}

	if service.SubscriptionsMatch(sub, remote) {
		return &pubsub.SyncEvent{UserID: userID, SubscriptionID: sub.ID, Result: pubsub.ResultInSync}
	}

	changed := service.ChangedSyncFields(sub, remote)
	service.ApplySync(sub, remote)
	changed = append(changed, p.refreshPlanSnapshot(sub, remote)...)

	if _, err := p.subscriptions.Update(ctx, sub.ID, syncedColumns(sub)); err != nil {
		return failedEvent(userID, sub.ID, err)
	}

	log.Printf("Synced subscription '%d' for user '%d' (fields: %v)", sub.ID, userID, changed)
	return &pubsub.SyncEvent{
		UserID:         userID,
		SubscriptionID: sub.ID,
		Result:         pubsub.ResultSynced,
		ChangedFields:  changed,
	}
}

// recreate 面板侧按 uuid 找不到用户时的重建路径。
// 面板上已有同 telegram id 的用户（本地 panel_uuid 已失效）就收编它，
// 把本地状态推上去；完全没有才新建。面板侧的 uuid 和订阅链接回写本地。
func (p *Processor) recreate(ctx context.Context, userID int64, sub *dto.Subscription, panelUsers []map[string]interface{}) *pubsub.SyncEvent {
	var created map[string]interface{}
	var err error

	if existing := firstPanelUser(panelUsers); existing != nil {
		log.Printf("Adopting panel user '%s' for subscription '%d' (stale uuid '%s')", existing.UUID, sub.ID, sub.PanelUUID)
		created, err = p.panel.UpdateUser(ctx, &remnawave.UpdateUserRequest{
			UUID:                 existing.UUID.String(),
			Status:               string(sub.Status),
			ExpireAt:             sub.ExpireAt.Format(time.RFC3339),
			TrafficLimitBytes:    gbToBytes(sub.TrafficLimit),
			HwidDeviceLimit:      sub.DeviceLimit,
			ActiveInternalSquads: squadStrings(sub.InternalSquads),
		})
	} else {
		log.Printf("Panel user missing for subscription '%d', recreating", sub.ID)
		created, err = p.panel.CreateUser(ctx, &remnawave.CreateUserRequest{
			Username:             fmt.Sprintf("tg_%d", userID),
			Status:               string(sub.Status),
			ExpireAt:             sub.ExpireAt.Format(time.RFC3339),
			TrafficLimitBytes:    gbToBytes(sub.TrafficLimit),
			HwidDeviceLimit:      sub.DeviceLimit,
			TelegramID:           userID,
			ActiveInternalSquads: squadStrings(sub.InternalSquads),
		})
	}
	if err != nil {
		return failedEvent(userID, sub.ID, err)
	}

	remote, err := dto.RemoteSubscriptionFromPanelUser(created)
	if err != nil {
		return failedEvent(userID, sub.ID, err)
	}

	_, err = p.subscriptions.Update(ctx, sub.ID, map[string]interface{}{
		"panel_uuid": remote.UUID,
		"url":        remote.URL,
	})
	if err != nil {
		return failedEvent(userID, sub.ID, err)
	}

	log.Printf("Recreated panel user '%s' for subscription '%d'", remote.UUID, sub.ID)
	return &pubsub.SyncEvent{
		UserID:         userID,
		SubscriptionID: sub.ID,
		Result:         pubsub.ResultRecreated,
	}
}

// refreshPlanSnapshot 套餐层面的漂移（tag、重置策略）不在字段交集里，
// 单独收敛：先把面板值写进快照，再尝试用目录里的同一套餐刷新整个快照，
// 套餐目录被改过的场景下快照能一次追平
func (p *Processor) refreshPlanSnapshot(sub *dto.Subscription, remote *dto.RemoteSubscription) []string {
	changed := make([]string, 0, 2)
	if sub.Plan.Tag != remote.Tag {
		log.Printf("Field 'plan.tag' changed from '%s' to '%s'", sub.Plan.Tag, remote.Tag)
		sub.Plan.Tag = remote.Tag
		changed = append(changed, "plan.tag")
	}
	if sub.Plan.TrafficResetStrategy != remote.TrafficResetStrategy {
		log.Printf("Field 'plan.traffic_reset_strategy' changed from '%s' to '%s'",
			sub.Plan.TrafficResetStrategy, remote.TrafficResetStrategy)
		sub.Plan.TrafficResetStrategy = remote.TrafficResetStrategy
		changed = append(changed, "plan.traffic_reset_strategy")
	}
	if len(changed) == 0 {
		return changed
	}

	plans, err := p.plans.GetAll()
	if err != nil {
		log.Printf("Failed to load plan catalog: %v", err)
		return changed
	}
	if plan := service.FindMatchingPlan(&sub.Plan, plans); plan != nil {
		sub.Plan = plan.Snapshot()
	}
	return changed
}

// findPanelUser 规范化面板用户列表并按 uuid 定位，坏记录跳过
func findPanelUser(users []map[string]interface{}, panelUUID uuid.UUID) *dto.RemoteSubscription {
	for _, user := range users {
		remote, err := dto.RemoteSubscriptionFromPanelUser(user)
		if err != nil {
			log.Printf("Skipping malformed panel user: %v", err)
			continue
		}
		if remote.UUID == panelUUID {
			return remote
		}
	}
	return nil
}

// firstPanelUser 列表里第一个可规范化的面板用户
func firstPanelUser(users []map[string]interface{}) *dto.RemoteSubscription {
	for _, user := range users {
		remote, err := dto.RemoteSubscriptionFromPanelUser(user)
		if err != nil {
			log.Printf("Skipping malformed panel user: %v", err)
			continue
		}
		return remote
	}
	return nil
}

// syncedColumns 回拉后需要持久化的列
func syncedColumns(sub *dto.Subscription) map[string]interface{} {
	return map[string]interface{}{
		"panel_uuid":      sub.PanelUUID,
		"plan_id":         sub.Plan.ID,
		"status":          sub.Status,
		"traffic_limit":   sub.TrafficLimit,
		"device_limit":    sub.DeviceLimit,
		"internal_squads": sub.InternalSquads,
		"external_squad":  sub.ExternalSquad,
		"expire_at":       sub.ExpireAt,
		"url":             sub.URL,
		"plan":            sub.Plan,
	}
}

func failedEvent(userID, subscriptionID int64, err error) *pubsub.SyncEvent {
	log.Printf("Sync failed for user '%d': %v", userID, err)
	return &pubsub.SyncEvent{
		UserID:         userID,
		SubscriptionID: subscriptionID,
		Result:         pubsub.ResultFailed,
		Error:          err.Error(),
	}
}

func squadStrings(squads []uuid.UUID) []string {
	result := make([]string, 0, len(squads))
	for _, squad := range squads {
		result = append(result, squad.String())
	}
	return result
}

func gbToBytes(gb int) int64 {
	return int64(gb) * (1 << 30)
}
