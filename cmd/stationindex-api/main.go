// @title Station Index API
// @version 1.0
// @description Bike-share trip-to-station aggregation and validation engine
// @BasePath /api/v1
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go-station-index/internal/api"
	"go-station-index/internal/config"
	"go-station-index/internal/metrics"
	"go-station-index/internal/store"
)

func main() {
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	if err := store.InitDB(cfg.DBPath); err != nil {
		log.Fatalf("failed to open run store: %v", err)
	}
	defer store.Close()

	var mcol *metrics.Collector
	if cfg.MetricsEnabled {
		mcol = metrics.NewCollector()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{Addr: cfg.Addr, Handler: api.NewRouter(mcol)}
	go func() {
		log.Printf("🚀 Station index API listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
