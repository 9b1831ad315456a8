package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"kudos-controlplane/pkg/config"
	"kudos-controlplane/pkg/hashistack/secretmanager"
	"kudos-controlplane/pkg/kafka"
	"kudos-controlplane/pkg/logger"
	"kudos-controlplane/pkg/otelcol"
	"kudos-controlplane/pkg/profiling"
	"kudos-controlplane/pkg/task"
	"kudos-controlplane/services/notification"
)

// worker relays events enqueued by the API process to Kafka.
func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		kafka.Module,
		task.Server,
		notification.Worker,
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
