package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"shortlink/internal/auth"
	"shortlink/internal/ratelimit"
)

// RouterConfig collects what NewRouter mounts.
type RouterConfig struct {
	Handler  *Handler
	Verifier *auth.Verifier
	// LimitStore is nil when rate limiting is disabled.
	LimitStore    limiter.Store
	GeneralPolicy ratelimit.Policy
	CreatePolicy  ratelimit.Policy
	Logger        *slog.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := cfg.Handler

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(logger))
	router.GET("/health", h.HandleHealth)

	requireAuth := RequireAuth(cfg.Verifier, logger)

	api := router.Group("/api")
	shorten := []gin.HandlerFunc{OptionalAuth(cfg.Verifier, logger)}
	if cfg.LimitStore != nil {
		api.Use(ratelimit.Middleware(cfg.LimitStore, cfg.GeneralPolicy, logger))
		shorten = append(shorten, ratelimit.Middleware(cfg.LimitStore, cfg.CreatePolicy, logger))
	}

	api.POST("/shorten", append(shorten, h.HandleShorten)...)
	api.GET("/analytics/:shortCode", requireAuth, h.HandleAnalytics)
	api.GET("/allUrls", requireAuth, h.HandleListLinks)
	api.GET("/cache/stats", requireAuth, h.HandleCacheStats)
	api.GET("/qr/:shortCode", h.HandleQRCode)
	api.DELETE("/:shortCode", requireAuth, h.HandleDelete)
	api.GET("/:shortCode", h.HandleRedirect)

	return router
}
