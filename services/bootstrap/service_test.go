package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kudos-controlplane/pkg/config"
	"kudos-controlplane/services/ownership"
	"kudos-controlplane/services/testutil"
	"kudos-controlplane/services/treasury"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newService(t *testing.T, cfg *config.Config) (*Service, *ownership.Service, *treasury.Service) {
	t.Helper()
	var models []any
	models = append(models, ownership.Models()...)
	models = append(models, treasury.Models()...)
	db := testutil.NewTestDB(t, models...)

	gate := ownership.NewService(ownership.ServiceParams{DB: db})
	ledger := treasury.NewService(treasury.ServiceParams{DB: db, Node: testutil.NewNode(t)})
	return NewService(ServiceParams{Config: cfg, Gate: gate, Treasury: ledger}), gate, ledger
}

func TestRunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	cfg.Reward.Owner = "owner-account"
	cfg.Reward.Treasury = "treasury"
	cfg.Reward.InitialFunding = 500

	svc, gate, ledger := newService(t, cfg)
	require.NoError(t, svc.Run(ctx))
	require.NoError(t, svc.Run(ctx))

	owner, err := gate.Owner(ctx)
	require.NoError(t, err)
	require.Equal(t, "owner-account", owner)

	balance, err := ledger.GetBalance(ctx, "treasury")
	require.NoError(t, err)
	require.Equal(t, int64(500), balance.Balance)
}

func TestRunWithoutFunding(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{}
	cfg.Reward.Owner = "owner-account"
	cfg.Reward.Treasury = "treasury"

	svc, _, ledger := newService(t, cfg)
	require.NoError(t, svc.Run(ctx))

	balance, err := ledger.GetBalance(ctx, "treasury")
	require.NoError(t, err)
	require.Zero(t, balance.Balance)
}

func TestRunRequiresOwner(t *testing.T) {
	cfg := &config.Config{}
	cfg.Reward.Treasury = "treasury"

	svc, _, _ := newService(t, cfg)
	require.ErrorIs(t, svc.Run(context.Background()), ownership.ErrNewOwnerIsZero)
}
