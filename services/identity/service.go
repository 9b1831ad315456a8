package identity

import (
	"context"
	"time"

	"kudos-controlplane/pkg/db/option"
	"kudos-controlplane/pkg/logger"
	"kudos-controlplane/pkg/repository"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

type Service struct {
	identities repository.Repository[Identity]
	cache      Cache
	fill       bool
	group      *singleflight.Group
}

type ServiceParams struct {
	fx.In
	DB    *gorm.DB
	Cache Cache `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	return &Service{
		identities: repository.ProvideStore[Identity](p.DB),
		cache:      p.Cache,
		fill:       true,
		group:      &singleflight.Group{},
	}
}

// WithTrx returns a copy bound to tx. The copy reads the cache but never
// fills it, so uncommitted bindings cannot leak into it.
func (s *Service) WithTrx(tx *gorm.DB) *Service {
	return &Service{
		identities: s.identities.WithTrx(tx),
		cache:      s.cache,
		group:      &singleflight.Group{},
	}
}

// Register binds handle to account. A handle is bound at most once; a second
// attempt fails with ErrAlreadyRegistered whoever the caller is.
func (s *Service) Register(ctx context.Context, handle, account string) error {
	if handle == "" {
		return ErrEmptyHandle
	}
	if account == "" {
		return ErrEmptyAccount
	}

	existing, err := s.identities.FindOne(ctx, &Identity{Handle: handle}, option.WithLockingUpdate())
	if err != nil {
		logger.FromContext(ctx).Error("failed to query identity", zap.String("handle", handle), zap.Error(err))
		return err
	}
	if existing != nil {
		return ErrAlreadyRegistered
	}

	return s.identities.Create(ctx, &Identity{
		Handle:    handle,
		Account:   account,
		CreatedAt: time.Now().UTC(),
	})
}

// Resolve looks up the account bound to handle.
func (s *Service) Resolve(ctx context.Context, handle string) (string, bool, error) {
	if handle == "" {
		return "", false, nil
	}
	log := logger.FromContext(ctx)

	if s.cache != nil {
		account, ok, err := s.cache.Get(ctx, handle)
		if err != nil {
			log.Warn("identity cache get failed", zap.String("handle", handle), zap.Error(err))
		} else if ok {
			return account, true, nil
		}
	}

	v, err, _ := s.group.Do(handle, func() (any, error) {
		row, err := s.identities.FindOne(ctx, &Identity{Handle: handle})
		if err != nil || row == nil {
			return "", err
		}
		if s.cache != nil && s.fill {
			if err := s.cache.Set(ctx, handle, row.Account); err != nil {
				log.Warn("identity cache set failed", zap.String("handle", handle), zap.Error(err))
			}
		}
		return row.Account, nil
	})
	if err != nil {
		log.Error("failed to resolve identity", zap.String("handle", handle), zap.Error(err))
		return "", false, err
	}

	account := v.(string)
	return account, account != "", nil
}

func (s *Service) IsKnown(ctx context.Context, handle string) (bool, error) {
	_, ok, err := s.Resolve(ctx, handle)
	return ok, err
}
