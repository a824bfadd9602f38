package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/nyxv/vpn_bot_server/internal/model"
	"github.com/nyxv/vpn_bot_server/internal/model/dto"
	"github.com/nyxv/vpn_bot_server/internal/pkg/response"
	"github.com/nyxv/vpn_bot_server/internal/service"
)

type AccessHandler struct {
	accessService *service.AccessService
}

func NewAccessHandler(accessService *service.AccessService) *AccessHandler {
	return &AccessHandler{
		accessService: accessService,
	}
}

// GetMode 当前访问模式
// GET /api/v1/access/mode
func (h *AccessHandler) GetMode(c *gin.Context) {
	mode, err := h.accessService.CurrentMode(c.Request.Context())
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"mode": mode})
}

// SetMode 切换访问模式
// PUT /api/v1/access/mode
func (h *AccessHandler) SetMode(c *gin.Context) {
	var req dto.SetModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	err := h.accessService.SetMode(c.Request.Context(), model.AccessMode(req.Mode))
	if err != nil {
		if errors.Is(err, service.ErrUnknownAccessMode) {
			response.ParamError(c, err.Error())
		} else {
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, gin.H{"mode": req.Mode})
}

// ListModes 可切换的其余模式
// GET /api/v1/access/modes
func (h *AccessHandler) ListModes(c *gin.Context) {
	modes, err := h.accessService.AvailableModes(c.Request.Context())
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"modes": modes})
}

// GetWaitlist 等待队列成员
// GET /api/v1/access/waitlist
func (h *AccessHandler) GetWaitlist(c *gin.Context) {
	users, err := h.accessService.WaitingUsers(c.Request.Context())
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"users": users, "count": len(users)})
}

// RemoveFromWaitlist 移除单个等待用户
// DELETE /api/v1/access/waitlist/:id
func (h *AccessHandler) RemoveFromWaitlist(c *gin.Context) {
	telegramID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户 ID")
		return
	}

	removed, err := h.accessService.RemoveUserFromWaitlist(c.Request.Context(), telegramID)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	if !removed {
		response.NotFoundError(c, "用户不在等待队列中")
		return
	}

	response.Success(c, nil)
}

// ClearWaitlist 清空等待队列
// DELETE /api/v1/access/waitlist
func (h *AccessHandler) ClearWaitlist(c *gin.Context) {
	if err := h.accessService.ClearWaitlist(c.Request.Context()); err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, nil)
}
