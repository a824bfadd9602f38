package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nyxv/vpn_bot_server/internal/pkg/response"
	"github.com/nyxv/vpn_bot_server/internal/service"
)

type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
	loc                 *time.Location // 流量重置边界所用时区
}

func NewSubscriptionHandler(subscriptionService *service.SubscriptionService, loc *time.Location) *SubscriptionHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		loc:                 loc,
	}
}

// List 全部订阅
// GET /api/v1/subscriptions
func (h *SubscriptionHandler) List(c *gin.Context) {
	subs, err := h.subscriptionService.GetAll()
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"subscriptions": subs, "count": len(subs)})
}

// Get 单个订阅
// GET /api/v1/subscriptions/:id
func (h *SubscriptionHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的订阅 ID")
		return
	}

	sub, err := h.subscriptionService.Get(id)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	if sub == nil {
		response.NotFoundError(c, "")
		return
	}

	response.Success(c, sub)
}

// GetTrafficReset 距下一次流量重置的剩余时长
// GET /api/v1/subscriptions/:id/traffic-reset
func (h *SubscriptionHandler) GetTrafficReset(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的订阅 ID")
		return
	}

	now := time.Now().In(h.loc)
	delta, found, err := h.subscriptionService.NextTrafficReset(id, now)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	if !found {
		response.NotFoundError(c, "")
		return
	}

	if delta == nil {
		response.Success(c, gin.H{"resets": false})
		return
	}

	response.Success(c, gin.H{
		"resets":       true,
		"next_reset_in": int64(delta.Seconds()),
	})
}

// ListByUser 用户的全部订阅
// GET /api/v1/users/:id/subscriptions
func (h *SubscriptionHandler) ListByUser(c *gin.Context) {
	telegramID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户 ID")
		return
	}

	subs, err := h.subscriptionService.GetAllByUser(telegramID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"subscriptions": subs, "count": len(subs)})
}

// GetCurrent 用户当前订阅
// GET /api/v1/users/:id/subscriptions/current
func (h *SubscriptionHandler) GetCurrent(c *gin.Context) {
	telegramID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户 ID")
		return
	}

	sub, err := h.subscriptionService.GetCurrent(telegramID)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	if sub == nil {
		response.NotFoundError(c, "用户没有当前订阅")
		return
	}

	response.Success(c, sub)
}
