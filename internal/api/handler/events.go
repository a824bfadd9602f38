package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/nyxv/vpn_bot_server/internal/model/dto"
	"github.com/nyxv/vpn_bot_server/internal/pkg/response"
	"github.com/nyxv/vpn_bot_server/internal/service"
)

// EventsHandler 网关事件准入口。网关把每个入站事件投到这里，
// 按当前访问模式拿到放行/拒绝的判定。
type EventsHandler struct {
	userService   *service.UserService
	accessService *service.AccessService
}

func NewEventsHandler(userService *service.UserService, accessService *service.AccessService) *EventsHandler {
	return &EventsHandler{
		userService:   userService,
		accessService: accessService,
	}
}

// Handle 事件准入判定
// POST /api/v1/events
func (h *EventsHandler) Handle(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	user, err := h.userService.GetOrCreate(ctx, req.TelegramID, req.Username)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	allowed, err := h.accessService.IsAccessAllowed(ctx, user, &service.Event{CallbackData: req.CallbackData})
	if err != nil {
		// 拿不到策略状态时不能猜，放行和拒绝都不安全
		response.ServerError(c, "")
		return
	}

	if !allowed {
		response.AccessDeniedError(c, "")
		return
	}

	response.Success(c, dto.EventResponse{Allowed: true})
}
