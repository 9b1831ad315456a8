package notification

import (
	"context"
	"strconv"
	"time"

	"kudos-controlplane/pkg/db/option"
	"kudos-controlplane/pkg/db/pagination"
	"kudos-controlplane/pkg/errutil"
	"kudos-controlplane/pkg/logger"
	"kudos-controlplane/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const redeliverBatch = 100

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	events repository.Repository[Event]
	sink   Sink
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
	Sink Sink `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	sink := p.Sink
	if sink == nil {
		sink = NopSink{}
	}
	return &Service{
		db:     p.DB,
		node:   p.Node,
		events: repository.ProvideStore[Event](p.DB),
		sink:   sink,
	}
}

// Record appends events to the outbox inside tx. They become visible, and
// dispatchable, only when tx commits.
func (s *Service) Record(ctx context.Context, tx *gorm.DB, events ...*Event) error {
	if len(events) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for _, e := range events {
		e.ID = s.node.Generate().Int64()
		e.CreatedAt = now
	}
	return s.events.WithTrx(tx).BatchCreate(ctx, events)
}

// Dispatch publishes committed events and marks them dispatched. A failing
// sink leaves the events pending for Redeliver.
func (s *Service) Dispatch(ctx context.Context, events ...*Event) {
	if len(events) == 0 {
		return
	}
	log := logger.FromContext(ctx)

	if err := s.sink.Publish(ctx, events); err != nil {
		log.Warn("failed to publish events, left for redelivery", zap.Int("count", len(events)), zap.Error(err))
		return
	}
	if err := s.markDispatched(ctx, events); err != nil {
		log.Warn("failed to mark events dispatched", zap.Error(err))
	}
}

func (s *Service) markDispatched(ctx context.Context, events []*Event) error {
	ids := make([]int64, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.ID)
	}
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&Event{}).Where("id IN ?", ids).Update("dispatched_at", now).Error; err != nil {
		return err
	}
	for _, e := range events {
		e.DispatchedAt = &now
	}
	return nil
}

// Redeliver publishes up to one batch of undispatched events in id order and
// returns how many were delivered.
func (s *Service) Redeliver(ctx context.Context) (int, error) {
	pending, err := s.events.Find(ctx, nil,
		option.IsNull("dispatched_at"),
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "asc", Allow: map[string]bool{"id": true}}),
		option.WithLimit(redeliverBatch),
	)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	if err := s.sink.Publish(ctx, pending); err != nil {
		return 0, err
	}
	if err := s.markDispatched(ctx, pending); err != nil {
		return 0, err
	}

	zap.L().Info("redelivered events", zap.Int("count", len(pending)))
	return len(pending), nil
}

type ListRequest struct {
	pagination.Pagination
	Type EventType `form:"type"`
}

// ListEvents pages through the outbox in append order.
func (s *Service) ListEvents(ctx context.Context, req ListRequest) ([]*Event, *pagination.PageInfo, error) {
	page := req.Pagination.Normalize()

	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{SortBy: "id", OrderBy: "asc", Allow: map[string]bool{"id": true}}),
		option.WithLimit(page.Limit + 1),
	}
	if page.Cursor != "" {
		cursor, err := pagination.DecodeCursor(page.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		after, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "id", Operator: option.GT, Value: after}))
	}

	events, err := s.events.Find(ctx, &Event{Type: req.Type}, opts...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list events", zap.Error(err))
		return nil, nil, err
	}

	return pagination.BuildCursorPageInfo(events, page.Limit, func(e *Event) pagination.Cursor {
		return pagination.Cursor{ID: strconv.FormatInt(e.ID, 10)}
	})
}
