package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kudos-controlplane/pkg/errutil"
	"kudos-controlplane/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type cacheMock struct {
	mu     sync.Mutex
	items  map[string]string
	gets   int
	sets   int
	getErr error
}

func newCacheMock() *cacheMock {
	return &cacheMock{items: map[string]string{}}
}

func (m *cacheMock) Get(_ context.Context, handle string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return "", false, m.getErr
	}
	account, ok := m.items[handle]
	return account, ok, nil
}

func (m *cacheMock) Set(_ context.Context, handle, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.items[handle] = account
	return nil
}

func newTestService(t *testing.T, cache Cache) *Service {
	t.Helper()
	return NewService(ServiceParams{DB: testutil.NewTestDB(t, Models()...), Cache: cache})
}

func TestRegisterOnce(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "bobby", "alice"))

	// same caller, different caller: both rejected
	require.ErrorIs(t, svc.Register(ctx, "bobby", "alice"), ErrAlreadyRegistered)
	require.ErrorIs(t, svc.Register(ctx, "bobby", "mallory"), ErrAlreadyRegistered)

	account, ok, err := svc.Resolve(ctx, "bobby")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", account)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	err := svc.Register(ctx, "", "alice")
	require.ErrorIs(t, err, ErrEmptyHandle)
	require.Equal(t, errutil.StatusValidationFailed, errutil.StatusOf(err))
	require.ErrorIs(t, svc.Register(ctx, "bobby", ""), ErrEmptyAccount)
}

func TestResolveUnknown(t *testing.T) {
	svc := newTestService(t, nil)

	account, ok, err := svc.Resolve(context.Background(), "ghost")
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, account)

	known, err := svc.IsKnown(context.Background(), "ghost")
	require.NoError(t, err)
	require.False(t, known)
}

func TestResolveFillsCache(t *testing.T) {
	cache := newCacheMock()
	svc := newTestService(t, cache)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "bobby", "alice"))
	require.Zero(t, cache.sets)

	for i := 0; i < 3; i++ {
		account, ok, err := svc.Resolve(ctx, "bobby")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "alice", account)
	}
	require.Equal(t, 1, cache.sets)
	require.Equal(t, "alice", cache.items["bobby"])

	// unknown handles are not cached
	_, ok, err := svc.Resolve(ctx, "ghost")
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 1, cache.sets)
}

func TestResolveFallsBackWhenCacheFails(t *testing.T) {
	cache := newCacheMock()
	cache.getErr = errors.New("redis down")
	svc := newTestService(t, cache)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "bobby", "alice"))

	account, ok, err := svc.Resolve(ctx, "bobby")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", account)
}

func TestWithTrxDoesNotFillCache(t *testing.T) {
	cache := newCacheMock()
	db := testutil.NewTestDB(t, Models()...)
	svc := NewService(ServiceParams{DB: db, Cache: cache})
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "bobby", "alice"))

	_, ok, err := svc.WithTrx(db).Resolve(ctx, "bobby")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, cache.gets)
	require.Zero(t, cache.sets)

	// a binding cached by a committed read is served to transactions
	_, _, err = svc.Resolve(ctx, "bobby")
	require.NoError(t, err)
	require.Equal(t, 1, cache.sets)

	account, ok, err := svc.WithTrx(db).Resolve(ctx, "bobby")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "alice", account)
}
