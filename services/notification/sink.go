package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"kudos-controlplane/pkg/kafka"
	"kudos-controlplane/pkg/task"
	"kudos-controlplane/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Sink receives committed events.
type Sink interface {
	Publish(ctx context.Context, events []*Event) error
}

type NopSink struct{}

func (NopSink) Publish(context.Context, []*Event) error { return nil }

// TaskSink hands each event to the worker as an asynq task. The task id is
// the event id, so redelivering an event that is already queued is a no-op.
type TaskSink struct {
	enqueuer task.Enqueuer
}

func NewTaskSink(enqueuer task.Enqueuer) *TaskSink {
	return &TaskSink{enqueuer: enqueuer}
}

func (s *TaskSink) Publish(ctx context.Context, events []*Event) error {
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}

		info, err := s.enqueuer.Enqueue(ctx,
			asynq.NewTask(taskname.EventPublish, payload),
			asynq.TaskID(strconv.FormatInt(e.ID, 10)),
			asynq.Queue(task.QueueDefault),
			asynq.MaxRetry(10),
		)
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			continue
		}
		if err != nil {
			return err
		}
		zap.L().Debug("event enqueued", zap.String("task_id", info.ID), zap.String("type", string(e.Type)))
	}
	return nil
}

type producer interface {
	ProduceJSON(ctx context.Context, key []byte, v any) error
}

// KafkaSink writes events to the configured topic keyed by Event.Key.
type KafkaSink struct {
	producer producer
}

func NewKafkaSink(p *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: p}
}

func (s *KafkaSink) Publish(ctx context.Context, events []*Event) error {
	for _, e := range events {
		if err := s.producer.ProduceJSON(ctx, []byte(e.Key()), e); err != nil {
			return err
		}
	}
	return nil
}
