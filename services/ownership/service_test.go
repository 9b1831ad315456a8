package ownership

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kudos-controlplane/pkg/errutil"
	"kudos-controlplane/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T, owner string) *Service {
	t.Helper()
	svc := NewService(ServiceParams{DB: testutil.NewTestDB(t, Models()...)})
	require.NoError(t, svc.Init(context.Background(), owner))
	return svc
}

func TestInitIsIdempotent(t *testing.T) {
	svc := newTestService(t, "alice")
	ctx := context.Background()

	require.NoError(t, svc.Init(ctx, "mallory"))

	owner, err := svc.Owner(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", owner)
}

func TestInitRejectsEmptyOwner(t *testing.T) {
	svc := NewService(ServiceParams{DB: testutil.NewTestDB(t, Models()...)})
	require.ErrorIs(t, svc.Init(context.Background(), ""), ErrNewOwnerIsZero)
}

func TestOwnerBeforeInit(t *testing.T) {
	svc := NewService(ServiceParams{DB: testutil.NewTestDB(t, Models()...)})
	_, err := svc.Owner(context.Background())
	require.Equal(t, errutil.StatusInternal, errutil.StatusOf(err))
}

func TestRequire(t *testing.T) {
	svc := newTestService(t, "alice")
	ctx := context.Background()

	require.NoError(t, svc.Require(ctx, "alice"))
	require.ErrorIs(t, svc.Require(ctx, "bob"), ErrCallerIsNotOwner)
	require.ErrorIs(t, svc.Require(ctx, ""), ErrCallerIsNotOwner)
	require.Equal(t, errutil.StatusForbidden, errutil.StatusOf(svc.Require(ctx, "bob")))
}

func TestTransferOwnership(t *testing.T) {
	svc := newTestService(t, "alice")
	ctx := context.Background()

	_, err := svc.TransferOwnership(ctx, "bob", "bob")
	require.ErrorIs(t, err, ErrCallerIsNotOwner)

	_, err = svc.TransferOwnership(ctx, "alice", "")
	require.ErrorIs(t, err, ErrNewOwnerIsZero)

	previous, err := svc.TransferOwnership(ctx, "alice", "bob")
	require.NoError(t, err)
	require.Equal(t, "alice", previous)

	ok, err := svc.IsOwner(ctx, "bob")
	require.NoError(t, err)
	require.True(t, ok)

	require.ErrorIs(t, svc.Require(ctx, "alice"), ErrCallerIsNotOwner)
}
