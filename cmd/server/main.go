package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "pos-ledger/internal/adapters/web"
	"pos-ledger/internal/app"
	"pos-ledger/internal/audit"
	"pos-ledger/internal/config"
	"pos-ledger/internal/core"
	"pos-ledger/internal/db"
	"pos-ledger/internal/logger"
	"pos-ledger/internal/metrics"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.IsDevelopment(), cfg.Logger.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	var sink audit.Sink
	if len(cfg.Audit.KafkaBrokers) > 0 {
		sink = audit.NewKafkaSink(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
		log.Info("audit events published to kafka",
			zap.Strings("brokers", cfg.Audit.KafkaBrokers),
			zap.String("topic", cfg.Audit.KafkaTopic))
	} else {
		sink = audit.NewLogSink(log)
	}
	dispatcher := audit.NewDispatcher(sink, cfg.Audit.BufferSize, log)
	defer dispatcher.Close()

	m := metrics.New()

	svc := app.NewAppService(
		core.NewProductService(pool),
		core.NewInventoryService(pool),
		core.NewSaleService(pool, log),
		core.NewReportingService(pool),
		core.NewUserService(pool),
		dispatcher,
		m,
		log,
	)

	handler := webAdapter.NewHandler(svc, m, log, webAdapter.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		JWTSecret:      cfg.Auth.JWTSecret,
		TokenTTL:       cfg.Auth.TokenTTL,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Server.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}
