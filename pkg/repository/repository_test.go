package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"kudos-controlplane/pkg/db/option"
	"kudos-controlplane/services/testutil"
)

type widget struct {
	ID        string    `gorm:"column:id;primaryKey"`
	Owner     string    `gorm:"column:owner"`
	Size      int64     `gorm:"column:size"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func TestStoreCRUD(t *testing.T) {
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, repo.BatchCreate(ctx, []*widget{
		{ID: "a", Owner: "bob", Size: 1, CreatedAt: now},
		{ID: "b", Owner: "bob", Size: 5, CreatedAt: now.Add(time.Second)},
		{ID: "c", Owner: "eve", Size: 9, CreatedAt: now.Add(2 * time.Second)},
	}))

	missing, err := repo.FindOne(ctx, &widget{ID: "zzz"})
	require.NoError(t, err)
	require.Nil(t, missing)

	found, err := repo.Find(ctx, &widget{Owner: "bob"},
		option.ApplyOperator(option.Condition{Field: "size", Operator: option.GT, Value: 2}))
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "b", found[0].ID)

	latest, err := repo.FindOne(ctx, nil, option.WithSortBy(option.QuerySortBy{
		SortBy: "created_at", OrderBy: "desc", Allow: map[string]bool{"created_at": true},
	}))
	require.NoError(t, err)
	require.Equal(t, "c", latest.ID)

	require.NoError(t, repo.Update(ctx, "a", map[string]any{"size": 3}))
	a, err := repo.FindOne(ctx, &widget{ID: "a"})
	require.NoError(t, err)
	require.Equal(t, int64(3), a.Size)

	require.ErrorIs(t, repo.Update(ctx, "nope", map[string]any{"size": 3}), gorm.ErrRecordNotFound)

	n, err := repo.Count(ctx, &widget{Owner: "bob"})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestStoreWithTrxRollsBack(t *testing.T) {
	db := testutil.NewTestDB(t, &widget{})
	repo := ProvideStore[widget](db)
	ctx := context.Background()

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, repo.WithTrx(tx).Create(ctx, &widget{ID: "x", CreatedAt: time.Now()}))
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)

	got, err := repo.FindOne(ctx, &widget{ID: "x"})
	require.NoError(t, err)
	require.Nil(t, got)
}
