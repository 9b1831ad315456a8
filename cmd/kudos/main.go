package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"kudos-controlplane/pkg/caller"
	"kudos-controlplane/pkg/config"
	"kudos-controlplane/pkg/db"
	"kudos-controlplane/pkg/hashistack/secretmanager"
	"kudos-controlplane/pkg/health"
	"kudos-controlplane/pkg/httpapi"
	"kudos-controlplane/pkg/logger"
	"kudos-controlplane/pkg/otelcol"
	"kudos-controlplane/pkg/profiling"
	"kudos-controlplane/pkg/redis"
	"kudos-controlplane/pkg/server"
	"kudos-controlplane/pkg/task"
	"kudos-controlplane/services/bootstrap"
	"kudos-controlplane/services/contribution"
	"kudos-controlplane/services/identity"
	"kudos-controlplane/services/intake"
	"kudos-controlplane/services/notification"
	"kudos-controlplane/services/ownership"
	"kudos-controlplane/services/treasury"
)

func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		task.Client,
		caller.Module,
		health.Module,
		fx.Provide(
			provideSnowflakeNode,
		),
		httpapi.Module,
		ownership.Module,
		identity.Module,
		treasury.Module,
		treasury.Gateway,
		notification.Module,
		notification.Gateway,
		notification.Outbox,
		contribution.Module,
		contribution.Gateway,
		intake.Module,
		bootstrap.Module,
		server.ProvideGRPCServer,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func provideSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
