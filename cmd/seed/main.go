package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"kudos-controlplane/pkg/config"
	"kudos-controlplane/pkg/db"
	"kudos-controlplane/pkg/hashistack/secretmanager"
	"kudos-controlplane/pkg/logger"
	"kudos-controlplane/services/treasury"
)

// seed tops up the reward treasury. Replaying the same -ref is a no-op.
func main() {
	amount := flag.Int64("amount", 0, "amount to credit")
	ref := flag.String("ref", "", "idempotency reference")
	account := flag.String("account", "", "account to fund (defaults to REWARD.TREASURY)")
	flag.Parse()

	if *amount <= 0 || *ref == "" {
		log.Fatal("seed: -amount > 0 and -ref are required")
	}

	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		db.Module,
		fx.Provide(provideSnowflakeNode),
		treasury.Module,
		fx.Invoke(func(cfg *config.Config, svc *treasury.Service) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			target := *account
			if target == "" {
				target = cfg.Reward.Treasury
			}

			entry, err := svc.Fund(ctx, treasury.FundRequest{
				Account:     target,
				Amount:      *amount,
				ReferenceID: *ref,
				Description: "treasury top-up",
			})
			if err != nil {
				return err
			}
			zap.L().Info("treasury funded",
				zap.String("account", target),
				zap.String("entry_id", entry.ID),
				zap.Int64("amount", entry.Amount),
			)
			return nil
		}),
		fx.WithLogger(func(*zap.Logger) fxevent.Logger { return fxevent.NopLogger }),
	}

	app := fx.New(opts...)
	if err := app.Err(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
