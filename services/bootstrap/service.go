package bootstrap

import (
	"context"
	"fmt"

	"kudos-controlplane/pkg/config"
	"kudos-controlplane/services/ownership"
	"kudos-controlplane/services/treasury"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// GenesisReference tags the initial treasury funding so restarts do not
// fund twice.
const GenesisReference = "genesis"

type Service struct {
	config   *config.Config
	gate     *ownership.Service
	treasury *treasury.Service
}

type ServiceParams struct {
	fx.In
	Config   *config.Config
	Gate     *ownership.Service
	Treasury *treasury.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		config:   p.Config,
		gate:     p.Gate,
		treasury: p.Treasury,
	}
}

// Run seeds the initial owner and the treasury's genesis funding. Both steps
// are idempotent.
func (s *Service) Run(ctx context.Context) error {
	reward := s.config.Reward

	if err := s.gate.Init(ctx, reward.Owner); err != nil {
		zap.L().Error("[bootstrap] failed to initialize owner", zap.Error(err))
		return fmt.Errorf("bootstrap: init owner: %w", err)
	}

	if reward.InitialFunding <= 0 {
		zap.L().Info("[bootstrap] no initial funding configured")
		return nil
	}

	entry, err := s.treasury.Fund(ctx, treasury.FundRequest{
		Account:     reward.Treasury,
		Amount:      reward.InitialFunding,
		ReferenceID: GenesisReference,
		Description: "initial treasury funding",
	})
	if err != nil {
		zap.L().Error("[bootstrap] failed to fund treasury", zap.Error(err))
		return fmt.Errorf("bootstrap: fund treasury: %w", err)
	}

	zap.L().Info("[bootstrap] treasury funded",
		zap.String("account", reward.Treasury),
		zap.Int64("amount", entry.Amount),
		zap.String("entry_id", entry.ID),
	)
	return nil
}
