package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/betminds/linx-orders/docs"
	"github.com/betminds/linx-orders/internal/infrastructure/auth"
	"github.com/betminds/linx-orders/internal/infrastructure/logger"
	"github.com/betminds/linx-orders/internal/interfaces/http/handler"
	"github.com/betminds/linx-orders/internal/interfaces/http/middleware"
)

// Health check paths: unauthenticated, untraced, logged at debug.
var healthPaths = []string{"/", "/healthz"}

const swaggerPrefix = "/swagger/"

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Config holds engine-wide settings
type Config struct {
	ServiceName    string
	MaxBodySize    int64
	TrustedProxies []string
	TracingEnabled bool
	// Auth enables bearer-token checks when non-nil.
	Auth *middleware.JWTMiddlewareConfig
	// Swagger serves the API docs under /swagger/.
	Swagger bool
	// SwaggerRequireAuth keeps the docs behind Auth.
	SwaggerRequireAuth bool
}

// Router manages HTTP route registration
type Router struct {
	engine     *gin.Engine
	registrars []RouteRegistrar
	swagger    bool
}

// NewRouter creates the engine with the shared middleware chain.
func NewRouter(cfg Config, log *zap.Logger) (*Router, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		logger.Recovery(log),
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.ServiceName,
			Enabled:     cfg.TracingEnabled,
			SkipPaths:   healthPaths,
		}),
		logger.GinMiddleware(log, healthPaths...),
		middleware.BodyLimit(cfg.MaxBodySize),
	)
	if cfg.Auth != nil {
		authCfg := *cfg.Auth
		authCfg.SkipPaths = append(authCfg.SkipPaths, healthPaths...)
		if cfg.Swagger && !cfg.SwaggerRequireAuth {
			authCfg.SkipPathPrefixes = append(authCfg.SkipPathPrefixes, swaggerPrefix)
		}
		if authCfg.Logger == nil {
			authCfg.Logger = log
		}
		engine.Use(middleware.JWTAuth(authCfg))
	}
	engine.Use(middleware.SpanEnricher())

	return &Router{engine: engine, swagger: cfg.Swagger}, nil
}

// Register adds a RouteRegistrar to be registered later
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Setup registers all routes and returns the engine.
func (r *Router) Setup() *gin.Engine {
	root := r.engine.Group("")
	if r.swagger {
		root.GET(swaggerPrefix+"*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(root)
	}
	return r.engine
}

// HealthRoutes serves GET / and GET /healthz.
type HealthRoutes struct {
	Handler *handler.HealthHandler
}

func (hr HealthRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/", hr.Handler.Root)
	rg.GET("/healthz", hr.Handler.Healthz)
}

// SyncRoutes serves the trigger and job history endpoints.
type SyncRoutes struct {
	Handler *handler.SyncHandler
}

func (sr SyncRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	trigger := rg.Group("", middleware.RequireScope(auth.ScopeTrigger))
	trigger.POST("/import", sr.Handler.Import)
	trigger.POST("/import-test", sr.Handler.ImportTest)
	trigger.POST("/queue/drain", sr.Handler.DrainQueue)
	trigger.POST("/reconcile", sr.Handler.Reconcile)

	read := rg.Group("/jobs", middleware.RequireScope(auth.ScopeRead))
	read.GET("", sr.Handler.ListJobs)
	read.GET("/:id", sr.Handler.GetJob)
}
