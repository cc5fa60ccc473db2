package assets

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homebroker/internal/feed"
	"homebroker/internal/store"
	"homebroker/internal/store/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	changeFeed := feed.New(16)
	st, err := sqlite.NewSqliteStore(filepath.Join(t.TempDir(), "assets.db"), changeFeed)
	require.NoError(t, err)
	svc, err := NewService(st)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = st.Close()
		changeFeed.Close()
	})
	return svc
}

func TestCreateAndGet(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	asset, err := svc.Create(ctx, CreateInput{Symbol: "PETR4", Price: decimal.RequireFromString("28.5")})
	require.NoError(t, err)
	assert.NotEmpty(t, asset.ID, "id defaults to a generated uuid")

	got, err := svc.Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "PETR4", got.Symbol)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("28.5")))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateKeepsCallerID(t *testing.T) {
	svc := newTestService(t)
	asset, err := svc.Create(context.Background(), CreateInput{ID: "petr4", Symbol: "PETR4", Price: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Equal(t, "petr4", asset.ID)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Symbol: "  ", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, CreateInput{Symbol: "PETR4", Price: decimal.Zero})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetMissing(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
