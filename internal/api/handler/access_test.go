package handler

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxv/vpn_bot_server/internal/model/dto"
	"github.com/nyxv/vpn_bot_server/internal/pkg/queue"
	"github.com/nyxv/vpn_bot_server/internal/pkg/response"
	"github.com/nyxv/vpn_bot_server/internal/pkg/storage"
	"github.com/nyxv/vpn_bot_server/internal/service"
)

func setupAccessHandler(t *testing.T) (*AccessHandler, *service.AccessService) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	notifier := service.NewQueueNotifier(queue.NewQueue(client, "test:notifications"))
	accessService := service.NewAccessService(storage.NewStorage(client), notifier)
	return NewAccessHandler(accessService), accessService
}

func accessRouter(h *AccessHandler) *gin.Engine {
	router := gin.New()
	router.GET("/access/mode", h.GetMode)
	router.PUT("/access/mode", h.SetMode)
	router.GET("/access/modes", h.ListModes)
	router.GET("/access/waitlist", h.GetWaitlist)
	router.DELETE("/access/waitlist", h.ClearWaitlist)
	router.DELETE("/access/waitlist/:id", h.RemoveFromWaitlist)
	return router
}

func TestAccessHandler_GetMode_Default(t *testing.T) {
	handler, _ := setupAccessHandler(t)
	router := accessRouter(handler)

	w := performRequest(router, "GET", "/access/mode", nil)
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "all", data["mode"])
}

func TestAccessHandler_SetMode(t *testing.T) {
	handler, accessService := setupAccessHandler(t)
	router := accessRouter(handler)

	w := performRequest(router, "PUT", "/access/mode", dto.SetModeRequest{Mode: "blocked"})
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	mode, err := accessService.CurrentMode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "blocked", string(mode))
}

func TestAccessHandler_SetMode_Invalid(t *testing.T) {
	handler, _ := setupAccessHandler(t)
	router := accessRouter(handler)

	w := performRequest(router, "PUT", "/access/mode", dto.SetModeRequest{Mode: "maintenance"})
	resp := parseResponse(t, w)

	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestAccessHandler_ListModes(t *testing.T) {
	handler, _ := setupAccessHandler(t)
	router := accessRouter(handler)

	w := performRequest(router, "GET", "/access/modes", nil)
	resp := parseResponse(t, w)

	require.Equal(t, response.CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	modes := data["modes"].([]interface{})
	assert.Len(t, modes, 3)
	assert.NotContains(t, modes, "all")
}

func TestAccessHandler_Waitlist(t *testing.T) {
	handler, accessService := setupAccessHandler(t)
	router := accessRouter(handler)
	ctx := context.Background()

	_, err := accessService.AddUserToWaitlist(ctx, 500)
	require.NoError(t, err)

	w := performRequest(router, "GET", "/access/waitlist", nil)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])

	w = performRequest(router, "DELETE", "/access/waitlist/500", nil)
	resp = parseResponse(t, w)
	assert.Equal(t, response.CodeSuccess, resp.Code)

	// 再删一次应报不存在
	w = performRequest(router, "DELETE", "/access/waitlist/500", nil)
	resp = parseResponse(t, w)
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)
}

func TestAccessHandler_ClearWaitlist(t *testing.T) {
	handler, accessService := setupAccessHandler(t)
	router := accessRouter(handler)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		_, err := accessService.AddUserToWaitlist(ctx, id)
		require.NoError(t, err)
	}

	w := performRequest(router, "DELETE", "/access/waitlist", nil)
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	waiting, err := accessService.WaitingUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, waiting)
}
