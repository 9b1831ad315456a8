package ownership

import (
	"context"
	"time"

	"kudos-controlplane/pkg/db/option"
	"kudos-controlplane/pkg/errutil"
	"kudos-controlplane/pkg/logger"
	"kudos-controlplane/pkg/repository"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service guards privileged operations behind a single owner account.
type Service struct {
	owners repository.Repository[Owner]
}

type ServiceParams struct {
	fx.In
	DB *gorm.DB
}

func NewService(p ServiceParams) *Service {
	return &Service{owners: repository.ProvideStore[Owner](p.DB)}
}

func (s *Service) WithTrx(tx *gorm.DB) *Service {
	return &Service{owners: s.owners.WithTrx(tx)}
}

func (s *Service) load(ctx context.Context, opts ...option.QueryOption) (*Owner, error) {
	row, err := s.owners.FindOne(ctx, &Owner{ID: ownerRowID}, opts...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to query owner", zap.Error(err))
		return nil, err
	}
	if row == nil {
		return nil, errutil.Internal("owner not initialized", nil)
	}
	return row, nil
}

// Owner returns the current owner account.
func (s *Service) Owner(ctx context.Context) (string, error) {
	row, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return row.Account, nil
}

func (s *Service) IsOwner(ctx context.Context, caller string) (bool, error) {
	owner, err := s.Owner(ctx)
	if err != nil {
		return false, err
	}
	return caller != "" && caller == owner, nil
}

// Require fails with ErrCallerIsNotOwner unless caller is the owner.
func (s *Service) Require(ctx context.Context, caller string) error {
	ok, err := s.IsOwner(ctx, caller)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCallerIsNotOwner
	}
	return nil
}

// TransferOwnership hands the gate to newOwner. It returns the previous
// owner.
func (s *Service) TransferOwnership(ctx context.Context, caller, newOwner string) (string, error) {
	row, err := s.load(ctx, option.WithLockingUpdate())
	if err != nil {
		return "", err
	}
	if caller == "" || caller != row.Account {
		return "", ErrCallerIsNotOwner
	}
	if newOwner == "" {
		return "", ErrNewOwnerIsZero
	}

	if err := s.owners.Update(ctx, ownerRowID, map[string]any{
		"account":    newOwner,
		"updated_at": time.Now().UTC(),
	}); err != nil {
		return "", err
	}

	logger.FromContext(ctx).Info("ownership transferred",
		zap.String("previous_owner", row.Account),
		zap.String("new_owner", newOwner),
	)
	return row.Account, nil
}

// Init records owner unless an owner already exists.
func (s *Service) Init(ctx context.Context, owner string) error {
	existing, err := s.owners.FindOne(ctx, &Owner{ID: ownerRowID})
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Account != owner {
			zap.L().Info("owner already initialized, ignoring configured owner",
				zap.String("owner", existing.Account),
				zap.String("configured", owner),
			)
		}
		return nil
	}
	if owner == "" {
		return ErrNewOwnerIsZero
	}

	return s.owners.Create(ctx, &Owner{
		ID:        ownerRowID,
		Account:   owner,
		UpdatedAt: time.Now().UTC(),
	})
}
