package api

import (
	"github.com/gin-gonic/gin"

	"github.com/nyxv/vpn_bot_server/config"
	"github.com/nyxv/vpn_bot_server/internal/api/handler"
	"github.com/nyxv/vpn_bot_server/internal/api/middleware"
)

type Router struct {
	authHandler         *handler.AuthHandler
	accessHandler       *handler.AccessHandler
	eventsHandler       *handler.EventsHandler
	subscriptionHandler *handler.SubscriptionHandler
	syncHandler         *handler.SyncHandler
	websocketHandler    *handler.WebSocketHandler
	cfg                 *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	accessHandler *handler.AccessHandler,
	eventsHandler *handler.EventsHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	syncHandler *handler.SyncHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:         authHandler,
		accessHandler:       accessHandler,
		eventsHandler:       eventsHandler,
		subscriptionHandler: subscriptionHandler,
		syncHandler:         syncHandler,
		websocketHandler:    websocketHandler,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		api.POST("/auth/login", r.authHandler.Login)

		// 网关事件准入（网关在内网，入口不走后台 JWT）
		api.POST("/events", r.eventsHandler.Handle)

		// 需要认证的后台接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 访问模式
			access := authenticated.Group("/access")
			{
				access.GET("/mode", r.accessHandler.GetMode)
				access.PUT("/mode", r.accessHandler.SetMode)
				access.GET("/modes", r.accessHandler.ListModes)
				access.GET("/waitlist", r.accessHandler.GetWaitlist)
				access.DELETE("/waitlist", r.accessHandler.ClearWaitlist)
				access.DELETE("/waitlist/:id", r.accessHandler.RemoveFromWaitlist)
			}

			// 订阅
			authenticated.GET("/subscriptions", r.subscriptionHandler.List)
			authenticated.GET("/subscriptions/:id", r.subscriptionHandler.Get)
			authenticated.GET("/subscriptions/:id/traffic-reset", r.subscriptionHandler.GetTrafficReset)
			authenticated.GET("/users/:id/subscriptions", r.subscriptionHandler.ListByUser)
			authenticated.GET("/users/:id/subscriptions/current", r.subscriptionHandler.GetCurrent)

			// 对账
			authenticated.POST("/sync/users/:id", r.syncHandler.SyncUser)
			authenticated.POST("/sync/all", r.syncHandler.SyncAll)
		}
	}

	return engine
}
