package main

import (
	"context"
	"fmt"
	"os"

	"pos-ledger/internal/adapters/cli"
	"pos-ledger/internal/adapters/repl"
	"pos-ledger/internal/app"
	"pos-ledger/internal/audit"
	"pos-ledger/internal/config"
	"pos-ledger/internal/core"
	"pos-ledger/internal/db"
	"pos-ledger/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// app runs one-shot back-office commands, or an interactive counter session
// when called without arguments. The acting user is CLI_USERNAME, or the
// seeded admin when unset.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.IsDevelopment(), "warn")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	users := core.NewUserService(pool)
	username := os.Getenv("CLI_USERNAME")
	if username == "" {
		username = cfg.Seed.AdminUsername
	}
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		log.Fatal("cli user", zap.String("username", username), zap.Error(err))
	}

	dispatcher := audit.NewDispatcher(audit.NewLogSink(log), cfg.Audit.BufferSize, log)

	svc := app.NewAppService(
		core.NewProductService(pool),
		core.NewInventoryService(pool),
		core.NewSaleService(pool, log),
		core.NewReportingService(pool),
		users,
		dispatcher,
		nil,
		log,
	)

	actor := app.Actor{UserID: user.ID, Role: user.Role}
	if len(os.Args) < 2 {
		repl.New(svc, actor, os.Stdin, os.Stdout).Run(ctx)
		dispatcher.Close()
		return
	}

	err = cli.Run(ctx, svc, actor, os.Args[1:], os.Stdout)
	dispatcher.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
