package router

import (
	"github.com/cloudwego/hertz/pkg/app/server"

	"quick-swgoh/pkg/common/config"
	"quick-swgoh/pkg/core/history/repository/dao"
	"quick-swgoh/pkg/core/lookup/backend"
	"quick-swgoh/pkg/core/lookup/service"
	"quick-swgoh/pkg/core/session"
	"quick-swgoh/pkg/web/handler"
	"quick-swgoh/pkg/web/middleware"
)

// Dependencies 路由需要的服务实例
type Dependencies struct {
	Lookup   service.LookupService
	Backend  backend.API
	History  dao.HistoryRepository
	Verifier *session.Verifier
}

// RegisterAPIs 注册所有路由
func RegisterAPIs(h *server.Hertz, cfg *config.Config, deps Dependencies) {
	healthHandler := handler.NewHealthCheckHandler(deps.Backend, deps.History, cfg.Database.Enabled)
	lookupHandler := handler.NewLookupHandler(deps.Lookup, deps.Verifier, cfg)
	apiHandler := handler.NewAPIHandler(deps.Lookup)

	// 注册全局中间件（按执行顺序）
	h.Use(
		middleware.RecoveryMiddleware(cfg),
		middleware.RequestIDMiddleware(),
		middleware.LoggerMiddleware(),
		middleware.SecurityCheckMiddleware(
			cfg.Middleware.Security.MaxBodySize,
			cfg.Middleware.Security.AllowedMethods,
		),
		middleware.TimeoutMiddleware(cfg.Middleware.Timeout.RequestTimeout),
		middleware.CORSMiddleware(cfg.Middleware.CORS),
		middleware.ClientIDMiddleware(cfg.Middleware.Session.ClientCookie),
	)

	h.GET("/health", healthHandler.AdvancedHealthCheck)

	// 页面与表单提交
	h.GET("/", lookupHandler.Index)

	limiter := middleware.RateLimitMiddleware(
		cfg.Middleware.RateLimit.Rate,
		cfg.Middleware.RateLimit.Interval,
	)

	lookupGroup := h.Group("/lookup", limiter)
	{
		lookupGroup.POST("/characters", lookupHandler.SubmitCharacter)
		lookupGroup.POST("/account", lookupHandler.SubmitAccount)
		lookupGroup.POST("/refresh",
			middleware.SessionAuthMiddleware(cfg.Middleware.Session, lookupHandler.Unauthorized),
			lookupHandler.Refresh,
		)
	}

	sessionGroup := h.Group("/session")
	{
		sessionGroup.POST("/signin", limiter, lookupHandler.SignIn)
		sessionGroup.POST("/signup", limiter, lookupHandler.SignUp)
		sessionGroup.POST("/signout", lookupHandler.SignOut)
	}

	apiGroup := h.Group("/api")
	{
		apiGroup.POST("/characters", limiter, apiHandler.Characters)
		apiGroup.POST("/account", limiter, apiHandler.Account)
		apiGroup.POST("/signup", limiter, apiHandler.SignUp)
		apiGroup.GET("/output", apiHandler.Output)
	}
}
