package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/betminds/linx-orders/internal/bootstrap"
	"github.com/betminds/linx-orders/internal/infrastructure/scheduler"
	"github.com/betminds/linx-orders/internal/interfaces/http/handler"
	"github.com/betminds/linx-orders/internal/interfaces/http/middleware"
	"github.com/betminds/linx-orders/internal/interfaces/http/router"
)

const shutdownTimeout = 30 * time.Second

//go:generate swag init -g main.go -d ./,../../internal/interfaces/http/handler -o ../../docs --parseDependency

//	@title			LINX Order Sync API
//	@version		1.0
//	@description	Triggers and inspects the LINX Commerce order import into the analytics sink

//	@BasePath	/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	configFile := flag.String("config", "", "Path to config file (default: search ./config.yaml, ./config, /app)")
	flag.Parse()

	ctx := context.Background()
	app, err := bootstrap.New(ctx, bootstrap.Options{ConfigFile: *configFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
		}
	}()

	cfg := app.Config
	log := app.Logger

	log.Info("Starting LINX order sync service",
		zap.String("port", cfg.App.Port),
		zap.String("version", cfg.App.Version),
		zap.String("sink_table", cfg.Sink.Table),
		zap.Bool("source_configured", app.Source != nil),
		zap.Bool("auth_enabled", cfg.Auth.Enabled),
		zap.Bool("swagger_enabled", cfg.Swagger.Enabled),
	)

	// Sync scheduler
	syncScheduler, err := app.NewScheduler()
	if err != nil {
		log.Fatal("Failed to create sync scheduler", zap.Error(err))
	}
	if err := syncScheduler.Start(ctx); err != nil {
		log.Fatal("Failed to start sync scheduler", zap.Error(err))
	}

	periodic := scheduler.NewPeriodicTrigger(app.PeriodicTriggerConfig(), syncScheduler, log.Named("periodic"))
	if err := periodic.Start(ctx); err != nil {
		log.Fatal("Failed to start periodic trigger", zap.Error(err))
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	routerCfg := router.Config{
		ServiceName:        cfg.App.Name,
		MaxBodySize:        cfg.HTTP.MaxBodySize,
		TrustedProxies:     cfg.HTTP.TrustedProxies,
		TracingEnabled:     cfg.Telemetry.Enabled,
		Swagger:            cfg.Swagger.Enabled,
		SwaggerRequireAuth: cfg.Swagger.RequireAuth,
	}
	if cfg.Auth.Enabled {
		routerCfg.Auth = &middleware.JWTMiddlewareConfig{
			JWTService:  app.JWT,
			Revocations: app.Revocations,
		}
	}
	r, err := router.NewRouter(routerCfg, log)
	if err != nil {
		log.Fatal("Failed to create router", zap.Error(err))
	}

	engine := r.
		Register(router.HealthRoutes{Handler: handler.NewHealthHandler(cfg.App.Name, cfg.App.Version, app.Orders, syncScheduler)}).
		Register(router.SyncRoutes{Handler: handler.NewSyncHandler(syncScheduler, handler.SyncHandlerConfig{
			MaxOrders:     cfg.Import.MaxOrders,
			TestMaxOrders: cfg.Import.TestMaxOrders,
		})}).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := periodic.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping periodic trigger", zap.Error(err))
	}
	if err := syncScheduler.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping sync scheduler", zap.Error(err))
	}

	log.Info("Server exited")
}
