package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/referral-service/referral_service/internal/api/routes"
	"github.com/referral-service/referral_service/internal/infrastructure/config"
	"github.com/referral-service/referral_service/internal/infrastructure/database"
	"github.com/referral-service/referral_service/internal/infrastructure/di"
	"github.com/referral-service/referral_service/pkg/logger"
	"github.com/referral-service/referral_service/pkg/metrics"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New(cfg.LogLevel, cfg.Environment)
	defer log.Sync()

	if err := database.RunMigrations(cfg.Database.URL); err != nil {
		log.Fatal("Failed to run migrations", "error", err)
	}

	container, err := di.New(cfg, log, version)
	if err != nil {
		log.Fatal("Failed to build container", "error", err)
	}
	defer container.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go reportPoolStats(ctx, container)

	if container.SnapshotWorker != nil {
		if err := container.SnapshotWorker.Start(ctx); err != nil {
			log.Fatal("Failed to start snapshot worker", "error", err)
		}
	}

	router := routes.Setup(cfg, routes.Handlers{
		Health:        container.HealthHandler,
		Fees:          container.FeeHandler,
		Revenue:       container.RevenueHandler,
		Sellers:       container.SellerHandler,
		Notifications: container.NotificationHandler,
		Coupons:       container.CouponHandler,
	}, log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("Starting server",
			"addr", server.Addr,
			"environment", cfg.Environment,
			"version", version)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Server exited")
}

// reportPoolStats exports connection pool gauges every 15 seconds
func reportPoolStats(ctx context.Context, container *di.Container) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := container.DB.Stats()
			metrics.DatabaseConnectionsGauge.WithLabelValues("open").Set(float64(stats.OpenConnections))
			metrics.DatabaseConnectionsGauge.WithLabelValues("in_use").Set(float64(stats.InUse))
			metrics.DatabaseConnectionsGauge.WithLabelValues("idle").Set(float64(stats.Idle))
		}
	}
}
