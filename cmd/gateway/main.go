package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gobwas/ws"
	"go.uber.org/zap"

	"github.com/shubham-shewale/signal-pairing/cmd/gateway/internal/api"
	"github.com/shubham-shewale/signal-pairing/cmd/gateway/internal/gateway"
	"github.com/shubham-shewale/signal-pairing/cmd/gateway/internal/hub"
	"github.com/shubham-shewale/signal-pairing/cmd/gateway/internal/repository"
	"github.com/shubham-shewale/signal-pairing/pkg/app"
	"github.com/shubham-shewale/signal-pairing/pkg/config"
	"github.com/shubham-shewale/signal-pairing/pkg/metrics"
	"github.com/shubham-shewale/signal-pairing/pkg/symbol"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger, err := config.NewLogger(cfg.Logger)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Engine startup failed", zap.Error(err))
	}
	defer engine.Close()

	feed := repository.NewRedisFeed(engine.Redis)
	defer feed.Close()

	wsHub := hub.NewHub(ctx, feed, func(s string) bool {
		_, err := symbol.Parse(s)
		return err == nil
	}, logger)

	mux := http.NewServeMux()
	api.NewHandler(engine.Orchestrator, engine.Ledger, logger).Register(mux)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, _, _, err := ws.UpgradeHTTP(r, w)
		if err != nil {
			logger.Debug("WebSocket upgrade failed", zap.Error(err))
			return
		}
		gateway.NewClient(conn, wsHub, logger).Start()
	})

	srv := &http.Server{Addr: cfg.App.Port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Server Started", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("HTTP Error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	cancel()
	logger.Info("Shutdown Complete")
}
