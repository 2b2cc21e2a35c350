package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/uniedit/enhancer/cmd/server/docs" // swagger docs
	enhancehttp "github.com/uniedit/enhancer/internal/adapter/inbound/gin"
	"github.com/uniedit/enhancer/internal/shared/config"
	"github.com/uniedit/enhancer/internal/utils/metrics"
	"github.com/uniedit/enhancer/internal/utils/middleware"
)

// Dependencies holds all injected dependencies.
type Dependencies struct {
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	// HTTP Handlers
	EnhanceHandler *enhancehttp.EnhanceHandler
	FilesHandler   *enhancehttp.FilesHandler
}

// App represents the application.
type App struct {
	config  *config.Config
	deps    *Dependencies
	cleanup func()
	router  *gin.Engine
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	deps, cleanup, err := InitializeDependencies(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		config:  cfg,
		deps:    deps,
		cleanup: cleanup,
	}
	app.router = app.setupRouter()

	deps.Logger.Info("Application initialized",
		zap.String("quota_schema", cfg.Quota.Schema),
		zap.String("quota_backend", cfg.Quota.Backend),
		zap.String("storage_backend", cfg.Storage.Backend),
	)
	return app, nil
}

// Router returns the HTTP handler.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.deps.Logger
}

// Stop releases external connections.
func (a *App) Stop() {
	if a.cleanup != nil {
		a.cleanup()
	}
	_ = a.deps.Logger.Sync()
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Server.Mode != "" {
		gin.SetMode(a.config.Server.Mode)
	}

	r := gin.New()

	// Apply global middleware
	r.Use(middleware.Recovery(a.deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.deps.Logger))
	r.Use(middleware.Metrics(a.deps.Metrics))

	corsCfg := middleware.DefaultCORSConfig()
	if len(a.config.CORS.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = a.config.CORS.AllowOrigins
	}
	r.Use(middleware.CORS(corsCfg))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Swagger documentation endpoint
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	if a.config.Metrics.Enabled {
		path := a.config.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.HandlerFor(a.deps.Registry, promhttp.HandlerOpts{})))
	}

	a.deps.FilesHandler.RegisterRoutes(r)
	a.deps.EnhanceHandler.RegisterRoutes(r.Group("/api/v1"))

	return r
}
