package notification

import (
	"kudos-controlplane/pkg/db"
	"kudos-controlplane/pkg/task"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("notification.service",
	fx.Provide(
		NewService,
		db.AsModels(Models),
	),
)

// Gateway exposes the event log over HTTP.
var Gateway = fx.Module("notification.gateway",
	fx.Provide(NewHandler),
	fx.Invoke(registerRoutes),
)

// Outbox enqueues committed events for the worker and keeps retrying the
// ones that could not be enqueued. Without redis events are only logged.
var Outbox = fx.Module("notification.outbox",
	fx.Provide(NewOutboxSink),
	fx.Invoke(runRedelivery),
)

type OutboxParams struct {
	fx.In
	Redis    *redis.Client `optional:"true"`
	Enqueuer task.Enqueuer
}

func NewOutboxSink(p OutboxParams) Sink {
	if p.Redis == nil {
		zap.L().Info("redis disabled, events are recorded without a queue")
		return NopSink{}
	}
	return NewTaskSink(p.Enqueuer)
}

// Worker relays queued events to Kafka.
var Worker = fx.Module("notification.worker",
	fx.Provide(
		fx.Annotate(NewKafkaSink, fx.As(new(Sink))),
		NewRelay,
	),
	fx.Invoke(func(r *Relay, mux *asynq.ServeMux) { r.Register(mux) }),
)

func registerRoutes(r *gin.Engine, h *Handler) {
	h.Register(r.Group("/v1"))
}

func Models() []any {
	return []any{&Event{}}
}
