package contribution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"kudos-controlplane/pkg/caller"
	"kudos-controlplane/pkg/config"
	"kudos-controlplane/pkg/db/option"
	"kudos-controlplane/pkg/errutil"
	"kudos-controlplane/pkg/logger"
	"kudos-controlplane/pkg/repository"
	"kudos-controlplane/services/identity"
	"kudos-controlplane/services/notification"
	"kudos-controlplane/services/ownership"
	"kudos-controlplane/services/treasury"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("kudos/contribution")

// Payer moves funds. Transfers made through WithTrx(tx) must roll back with
// tx.
type Payer interface {
	WithTrx(tx *gorm.DB) Payer
	Transfer(ctx context.Context, req treasury.TransferRequest) (*treasury.LedgerEntry, error)
}

// Service drives each contribution through Unset -> Approved -> Claimed.
// Mutations are serialized and each runs in a single database transaction
// together with its outbox event.
type Service struct {
	mu sync.Mutex

	db            *gorm.DB
	contributions repository.Repository[Contribution]
	gate          *ownership.Service
	registry      *identity.Service
	payer         Payer
	events        *notification.Service

	reward   int64
	treasury string

	approvals       metric.Int64Counter
	claims          metric.Int64Counter
	paymentFailures metric.Int64Counter
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Config   *config.Config
	Gate     *ownership.Service
	Registry *identity.Service
	Payer    Payer
	Events   *notification.Service
}

func NewService(p ServiceParams) *Service {
	meter := otel.Meter("kudos/contribution")
	approvals, err := meter.Int64Counter("contribution.approvals", metric.WithDescription("Approved contributions"))
	if err != nil {
		zap.L().Warn("failed to create approvals counter", zap.Error(err))
	}
	claims, err := meter.Int64Counter("contribution.claims", metric.WithDescription("Claimed rewards"))
	if err != nil {
		zap.L().Warn("failed to create claims counter", zap.Error(err))
	}
	paymentFailures, err := meter.Int64Counter("contribution.payment_failures", metric.WithDescription("Failed reward transfers"))
	if err != nil {
		zap.L().Warn("failed to create payment failures counter", zap.Error(err))
	}

	return &Service{
		db:            p.DB,
		contributions: repository.ProvideStore[Contribution](p.DB),
		gate:          p.Gate,
		registry:      p.Registry,
		payer:         p.Payer,
		events:        p.Events,

		reward:   p.Config.Reward.Amount,
		treasury: p.Config.Reward.Treasury,

		approvals:       approvals,
		claims:          claims,
		paymentFailures: paymentFailures,
	}
}

// mutate runs fn in a transaction while holding the workflow lock and
// dispatches the events fn recorded once the transaction has committed.
func (s *Service) mutate(ctx context.Context, fn func(tx *gorm.DB) ([]*notification.Event, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var events []*notification.Event
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		events, err = fn(tx)
		if err != nil {
			return err
		}
		return s.events.Record(ctx, tx, events...)
	})
	if err != nil {
		return err
	}

	s.events.Dispatch(ctx, events...)
	return nil
}

// ValidateID rejects ids outside the signed 64-bit range the stores accept.
func ValidateID(id uint64) error {
	if id > math.MaxInt64 {
		return errutil.BadRequest("invalid contribution id", nil,
			errutil.WithDetails(errutil.Detail{Field: "id", Message: "must not exceed 9223372036854775807"}))
	}
	return nil
}

func (s *Service) find(ctx context.Context, repo repository.Repository[Contribution], id uint64, opts ...option.QueryOption) (*Contribution, error) {
	opts = append([]option.QueryOption{
		option.ApplyOperator(option.Condition{Field: "id", Operator: option.EQ, Value: id}),
	}, opts...)
	return repo.FindOne(ctx, nil, opts...)
}

// RegisterIdentity binds handle to the caller.
func (s *Service) RegisterIdentity(ctx context.Context, handle string) error {
	account, err := caller.Require(ctx)
	if err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "contribution.RegisterIdentity", trace.WithAttributes(attribute.String("handle", handle)))
	defer span.End()

	err = s.mutate(ctx, func(tx *gorm.DB) ([]*notification.Event, error) {
		if err := s.registry.WithTrx(tx).Register(ctx, handle, account); err != nil {
			if errors.Is(err, identity.ErrAlreadyRegistered) {
				return nil, wrap(KindIdentityAlreadyRegistered, err)
			}
			return nil, err
		}
		return []*notification.Event{notification.NewIdentityRegistered(handle, account)}, nil
	})
	if err != nil {
		logger.FromContext(ctx).Info("identity registration rejected", zap.String("handle", handle), zap.Error(err))
		return err
	}

	logger.FromContext(ctx).Info("identity registered", zap.String("handle", handle), zap.String("account", account))
	return nil
}

// Approve records that contribution id was performed by the account bound
// to handle. Only the owner may approve, and only once per id.
func (s *Service) Approve(ctx context.Context, id uint64, handle string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	account, err := caller.Require(ctx)
	if err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "contribution.Approve", trace.WithAttributes(
		attribute.Int64("contribution_id", int64(id)),
		attribute.String("handle", handle),
	))
	defer span.End()
	log := logger.FromContext(ctx).With(zap.Uint64("contribution_id", id), zap.String("handle", handle))

	err = s.mutate(ctx, func(tx *gorm.DB) ([]*notification.Event, error) {
		if err := s.gate.WithTrx(tx).Require(ctx, account); err != nil {
			return nil, ownable(err)
		}

		contributor, ok, err := s.registry.WithTrx(tx).Resolve(ctx, handle)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrUnknownContributor
		}

		repo := s.contributions.WithTrx(tx)
		existing, err := s.find(ctx, repo, id, option.WithLockingUpdate())
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.Claimed {
				return nil, ErrContributionAlreadyClaimed
			}
			return nil, ErrContributionAlreadyApproved
		}

		if err := repo.Create(ctx, &Contribution{
			ID:          id,
			Contributor: contributor,
			ApprovedAt:  time.Now().UTC(),
		}); err != nil {
			return nil, err
		}
		return []*notification.Event{notification.NewContributionApproval(id, contributor)}, nil
	})
	if err != nil {
		log.Info("approval rejected", zap.Error(err))
		return err
	}

	s.approvals.Add(ctx, 1)
	log.Info("contribution approved")
	return nil
}

// ownable converts a gate failure into the workflow's error; other errors
// pass through.
func ownable(err error) error {
	var gateErr ownership.Error
	if errors.As(err, &gateErr) {
		return wrap(KindOwnableError, gateErr)
	}
	return err
}

// canClaim runs the eligibility checks in order; the first failure wins.
func (s *Service) canClaim(ctx context.Context, repo repository.Repository[Contribution], id uint64, account string, opts ...option.QueryOption) (*Contribution, error) {
	record, err := s.find(ctx, repo, id, opts...)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNoContributionApprovedYet
	}
	if record.ID != id {
		return nil, ErrUnknownContribution
	}
	if record.Contributor != account {
		return nil, ErrCallerIsNotContributor
	}
	if record.Claimed {
		return nil, ErrContributionAlreadyClaimed
	}
	return record, nil
}

// CanClaim reports whether the caller may claim contribution id.
func (s *Service) CanClaim(ctx context.Context, id uint64) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	account, err := caller.Require(ctx)
	if err != nil {
		return err
	}
	_, err = s.canClaim(ctx, s.contributions, id, account)
	return err
}

// Claim pays the reward to the caller and marks the contribution claimed.
// The transfer and the claimed flag commit together: when the transfer
// fails nothing is written and the claim may be retried.
func (s *Service) Claim(ctx context.Context, id uint64) (*Receipt, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	account, err := caller.Require(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "contribution.Claim", trace.WithAttributes(attribute.Int64("contribution_id", int64(id))))
	defer span.End()
	log := logger.FromContext(ctx).With(zap.Uint64("contribution_id", id), zap.String("caller", account))

	var receipt *Receipt
	err = s.mutate(ctx, func(tx *gorm.DB) ([]*notification.Event, error) {
		record, err := s.canClaim(ctx, s.contributions.WithTrx(tx), id, account, option.WithLockingUpdate())
		if err != nil {
			return nil, err
		}

		entry, err := s.payer.WithTrx(tx).Transfer(ctx, treasury.TransferRequest{
			From:        s.treasury,
			To:          record.Contributor,
			Amount:      s.reward,
			ReferenceID: fmt.Sprintf("contribution:%d", id),
			Description: fmt.Sprintf("reward for contribution %d", id),
			Metadata:    map[string]any{"contribution_id": id},
		})
		if err != nil {
			s.paymentFailures.Add(ctx, 1)
			return nil, wrap(KindPaymentFailed, err)
		}

		now := time.Now().UTC()
		res := tx.WithContext(ctx).Model(&Contribution{}).
			Where("id = ? AND claimed = ?", id, false).
			Updates(map[string]any{"claimed": true, "claimed_at": now})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected != 1 {
			return nil, ErrContributionAlreadyClaimed
		}

		receipt = &Receipt{
			ContributionID: id,
			Contributor:    record.Contributor,
			Reward:         s.reward,
			TransactionID:  entry.TransactionID,
		}
		return []*notification.Event{notification.NewRewardClaimed(id, record.Contributor, s.reward)}, nil
	})
	if err != nil {
		span.RecordError(err)
		log.Info("claim rejected", zap.Error(err))
		return nil, err
	}

	s.claims.Add(ctx, 1)
	log.Info("reward claimed", zap.Int64("reward", s.reward), zap.String("transaction_id", receipt.TransactionID))
	return receipt, nil
}

// Check reports whether the caller is the contributor of an approved or
// claimed contribution.
func (s *Service) Check(ctx context.Context, id uint64) (bool, error) {
	if err := ValidateID(id); err != nil {
		return false, err
	}
	account, err := caller.Require(ctx)
	if err != nil {
		return false, err
	}
	record, err := s.find(ctx, s.contributions, id)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, ErrNoContributionApprovedYet
	}
	return record.Contributor == account, nil
}

// GetContributor returns the contributor recorded for id.
func (s *Service) GetContributor(ctx context.Context, id uint64) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	record, err := s.find(ctx, s.contributions, id)
	if err != nil {
		return "", err
	}
	if record == nil {
		return "", ErrNoContributionApprovedYet
	}
	return record.Contributor, nil
}

// Get returns the stored record for id.
func (s *Service) Get(ctx context.Context, id uint64) (*Contribution, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	record, err := s.find(ctx, s.contributions, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNoContributionApprovedYet
	}
	return record, nil
}

// Resolve looks up the account bound to handle.
func (s *Service) Resolve(ctx context.Context, handle string) (string, bool, error) {
	return s.registry.Resolve(ctx, handle)
}

func (s *Service) Reward() int64 {
	return s.reward
}

func (s *Service) Owner(ctx context.Context) (string, error) {
	return s.gate.Owner(ctx)
}

// TransferOwnership hands the ownership gate to newOwner.
func (s *Service) TransferOwnership(ctx context.Context, newOwner string) error {
	account, err := caller.Require(ctx)
	if err != nil {
		return err
	}

	return s.mutate(ctx, func(tx *gorm.DB) ([]*notification.Event, error) {
		previous, err := s.gate.WithTrx(tx).TransferOwnership(ctx, account, newOwner)
		if err != nil {
			return nil, ownable(err)
		}
		return []*notification.Event{notification.NewOwnershipTransferred(previous, newOwner)}, nil
	})
}
