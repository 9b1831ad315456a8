package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"kudos-controlplane/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Relay forwards queued events to a downstream sink from the worker.
type Relay struct {
	sink Sink
}

func NewRelay(sink Sink) *Relay {
	return &Relay{sink: sink}
}

func (r *Relay) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(taskname.EventPublish, r.HandleEventPublish)
}

func (r *Relay) HandleEventPublish(ctx context.Context, t *asynq.Task) error {
	var e Event
	if err := json.Unmarshal(t.Payload(), &e); err != nil {
		// malformed payloads never succeed
		return fmt.Errorf("decode event: %v: %w", err, asynq.SkipRetry)
	}

	if err := r.sink.Publish(ctx, []*Event{&e}); err != nil {
		zap.L().Warn("failed to relay event",
			zap.Int64("event_id", e.ID),
			zap.String("type", string(e.Type)),
			zap.Error(err),
		)
		return err
	}

	zap.L().Info("event relayed", zap.Int64("event_id", e.ID), zap.String("type", string(e.Type)))
	return nil
}
