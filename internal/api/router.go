package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qs3c/premium_bot/config"
	"github.com/qs3c/premium_bot/internal/api/handler"
	"github.com/qs3c/premium_bot/internal/api/middleware"
)

type Router struct {
	authHandler         *handler.AuthHandler
	subscriptionHandler *handler.SubscriptionHandler
	reconcileHandler    *handler.ReconcileHandler
	userHandler         *handler.UserHandler
	websocketHandler    *handler.WebSocketHandler
	validator           middleware.TokenValidator
	cfg                 *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	reconcileHandler *handler.ReconcileHandler,
	userHandler *handler.UserHandler,
	websocketHandler *handler.WebSocketHandler,
	validator middleware.TokenValidator,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:         authHandler,
		subscriptionHandler: subscriptionHandler,
		reconcileHandler:    reconcileHandler,
		userHandler:         userHandler,
		websocketHandler:    websocketHandler,
		validator:           validator,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Metrics())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := engine.Group("/api/v1")
	{
		// WebSocket，token 通过 query 传递
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 管理员登录
		auth := api.Group("/auth")
		{
			auth.GET("/discord", r.authHandler.DiscordAuth)
			auth.GET("/discord/callback", r.authHandler.DiscordCallback)
		}

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.validator))
		{
			subs := authenticated.Group("/subscriptions")
			{
				subs.GET("", r.subscriptionHandler.List)
				subs.POST("", r.subscriptionHandler.Register)
				subs.POST("/terminate", r.subscriptionHandler.Terminate)
				subs.GET("/:id", r.subscriptionHandler.Get)
			}

			authenticated.POST("/reconcile", r.reconcileHandler.Run)

			users := authenticated.Group("/users")
			{
				users.GET("/:id", r.userHandler.Get)
				users.PUT("/:id/blacklist", r.userHandler.Blacklist)
				users.DELETE("/:id/blacklist", r.userHandler.Unblacklist)
			}
		}
	}

	return engine
}
