package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/turtacn/authcore/internal/application/dto"
	"github.com/turtacn/authcore/internal/config"
	"github.com/turtacn/authcore/internal/interfaces/http/handlers"
	"github.com/turtacn/authcore/internal/interfaces/http/middleware"
	"github.com/turtacn/authcore/pkg/constants"
	"github.com/turtacn/authcore/pkg/errors"
	"github.com/turtacn/authcore/pkg/logger"
)

// Observability 路由器使用的可观测性组件
type Observability struct {
	Tracer   trace.Tracer
	Metrics  middleware.HTTPMetrics
	Gatherer prometheus.Gatherer
}

// Router HTTP 路由器
type Router struct {
	engine        *gin.Engine
	config        *config.Config
	logger        logger.Logger
	healthHandler *handlers.HealthHandler
	authHandler   *handlers.AuthHandler
	adminHandler  *handlers.AdminHandler
	authenticator middleware.Authenticator
	obs           Observability
	server        *http.Server
}

// NewRouter 创建路由器
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	healthHandler *handlers.HealthHandler,
	authHandler *handlers.AuthHandler,
	adminHandler *handlers.AdminHandler,
	authenticator middleware.Authenticator,
	obs Observability,
) *Router {
	// 设置 Gin 模式
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:        gin.New(),
		config:        cfg,
		logger:        log.WithComponent("Router"),
		healthHandler: healthHandler,
		authHandler:   authHandler,
		adminHandler:  adminHandler,
		authenticator: authenticator,
		obs:           obs,
	}
	r.setupRoutes()
	return r
}

// Handler 返回 HTTP 处理器，便于测试
func (r *Router) Handler() http.Handler {
	return r.engine
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 全局中间件
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logger(r.logger))
	r.engine.Use(middleware.ObservabilityMiddleware(r.obs.Tracer, r.obs.Metrics))

	// CORS 配置
	if len(r.config.Server.AllowedOrigins) > 0 {
		r.engine.Use(cors.New(cors.Config{
			AllowOrigins:     r.config.Server.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", constants.HeaderAuthorization, constants.HeaderRequestID},
			ExposeHeaders:    []string{constants.HeaderRequestID, constants.HeaderReauthenticate},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// 健康检查路由（不需要认证）
	r.engine.GET("/health", r.healthHandler.HealthCheck)
	r.engine.GET("/ready", r.healthHandler.ReadinessCheck)
	r.engine.GET("/live", r.healthHandler.LivenessCheck)

	// Prometheus metrics
	if r.obs.Gatherer != nil {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.obs.Gatherer, promhttp.HandlerOpts{})))
	}

	// Pprof 性能分析（仅在非生产环境）
	if !r.config.Server.IsProduction() {
		pprof.Register(r.engine)
	}

	// API 路由组
	v1 := r.engine.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.Use(middleware.RequireAuth(r.authenticator, r.logger))
		{
			auth.GET("/me", r.authHandler.Me)
			auth.POST("/logout", r.authHandler.Logout)
		}
	}

	// 管理路由：未配置管理令牌时不注册
	if r.config.Admin.Token != "" {
		admin := r.engine.Group("/admin")
		admin.Use(middleware.RequireAdmin(r.config.Admin.Token, r.logger))
		{
			admin.POST("/keys/rotate", r.adminHandler.RotateKey)
			admin.POST("/keys/cleanup", r.adminHandler.CleanupKeys)
			admin.GET("/keys/info", r.adminHandler.KeyInfo)
			admin.POST("/tokens", r.adminHandler.IssueToken)
			admin.POST("/tokens/revoke", r.adminHandler.RevokeToken)
		}
	} else {
		r.logger.Warn(context.Background(), "Admin token not configured, administrative routes are disabled")
	}

	// 404 处理
	r.engine.NoRoute(func(c *gin.Context) {
		dto.SendError(c, errors.ErrNotFound)
	})
}

// Start 启动 HTTP 服务器，ctx 结束时优雅关闭
func (r *Router) Start(ctx context.Context) error {
	addr := r.config.Server.Address()
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info(ctx, "Starting HTTP server", logger.String("address", addr))
		if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	r.logger.Info(context.Background(), "Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := r.server.Shutdown(shutdownCtx); err != nil {
		r.logger.Error(context.Background(), "Server forced to shutdown", err)
		return err
	}
	r.logger.Info(context.Background(), "HTTP server stopped")
	return nil
}
