// seed-users creates the default admin and seller accounts. Existing
// usernames are left untouched, so it is safe to run repeatedly.
//
// Usage: go run ./cmd/seed-users
package main

import (
	"context"
	"errors"

	"pos-ledger/internal/config"
	"pos-ledger/internal/core"
	"pos-ledger/internal/db"
	"pos-ledger/internal/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(true, cfg.Logger.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("failed to connect", zap.Error(err))
	}
	defer pool.Close()

	users := core.NewUserService(pool)
	seeds := []struct{ username, password, role string }{
		{cfg.Seed.AdminUsername, cfg.Seed.AdminPassword, core.RoleAdmin},
		{cfg.Seed.SellerUsername, cfg.Seed.SellerPassword, core.RoleSeller},
	}
	for _, s := range seeds {
		u, err := users.CreateUser(ctx, s.username, s.password, s.role)
		switch {
		case errors.Is(err, core.ErrDuplicateUsername):
			log.Info("user exists, skipped", zap.String("username", s.username))
		case err != nil:
			log.Fatal("failed to create user", zap.String("username", s.username), zap.Error(err))
		default:
			log.Info("user created", zap.String("username", u.Username), zap.String("role", u.Role), zap.Int("id", u.ID))
		}
	}
}
