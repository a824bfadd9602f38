package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nyxv/vpn_bot_server/internal/pkg/queue"
	"github.com/nyxv/vpn_bot_server/internal/pkg/response"
	"github.com/nyxv/vpn_bot_server/internal/service"
)

// SyncHandler 手动触发对账，任务进队列由 worker 异步消费
type SyncHandler struct {
	userService *service.UserService
	syncQueue   *queue.Queue
}

func NewSyncHandler(userService *service.UserService, syncQueue *queue.Queue) *SyncHandler {
	return &SyncHandler{
		userService: userService,
		syncQueue:   syncQueue,
	}
}

// SyncUser 对账单个用户
// POST /api/v1/sync/users/:id
func (h *SyncHandler) SyncUser(c *gin.Context) {
	telegramID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户 ID")
		return
	}

	msg := &queue.SyncMessage{UserID: telegramID, Reason: "manual"}
	if err := h.syncQueue.PushSync(c.Request.Context(), msg); err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"enqueued": 1})
}

// SyncAll 对账全部用户
// POST /api/v1/sync/all
func (h *SyncHandler) SyncAll(c *gin.Context) {
	users, err := h.userService.GetAll()
	if err != nil {
		response.ServerError(c, "")
		return
	}

	ctx := c.Request.Context()
	enqueued := 0
	for _, user := range users {
		msg := &queue.SyncMessage{UserID: user.TelegramID, Reason: "manual"}
		if err := h.syncQueue.PushSync(ctx, msg); err != nil {
			continue
		}
		enqueued++
	}

	response.Success(c, gin.H{"enqueued": enqueued})
}
