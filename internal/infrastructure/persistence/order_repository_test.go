package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmadist/backend/internal/domain/order"
	"github.com/pharmadist/backend/internal/domain/shared"
)

func setupOrderTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&order.Order{}, &order.OrderLine{})
	require.NoError(t, err)

	return db
}

func newTestOrder(t *testing.T, orderNumber string) *order.Order {
	t.Helper()

	o, err := order.NewOrder(orderNumber, uuid.New(), "St. Anna Apotheke", uuid.New(), false)
	require.NoError(t, err)

	_, err = o.AddLine(uuid.New(), "Amoxicillin 500mg", "AMX-500", 10,
		decimal.NewFromInt(100), decimal.NewFromFloat(0.10))
	require.NoError(t, err)

	return o
}

func TestGormOrderRepository_SaveAndFind(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "SO-20260901-0001")
	require.NoError(t, repo.Save(ctx, o))

	t.Run("finds by ID with lines", func(t *testing.T) {
		found, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, "SO-20260901-0001", found.OrderNumber)
		require.Len(t, found.Lines, 1)
		assert.Equal(t, int64(10), found.Lines[0].Quantity)
		assert.True(t, found.TotalAmount.Equal(decimal.NewFromInt(1100)))
	})

	t.Run("finds by order number", func(t *testing.T) {
		found, err := repo.FindByOrderNumber(ctx, "SO-20260901-0001")
		require.NoError(t, err)
		assert.Equal(t, o.ID, found.ID)
	})

	t.Run("returns not found for unknown ID", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormOrderRepository_SaveReconcilesLines(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "SO-20260901-0001")
	_, err := o.AddLine(uuid.New(), "Ibuprofen 400mg", "IBU-400", 5,
		decimal.NewFromInt(40), decimal.NewFromFloat(0.10))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, o))

	// Drop the second line and save again
	o.Lines = o.Lines[:1]
	require.NoError(t, repo.Save(ctx, o))

	found, err := repo.FindByID(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, found.Lines, 1)
	assert.Equal(t, "AMX-500", found.Lines[0].ProductCode)
}

func TestGormOrderRepository_SaveWithLock(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	o := newTestOrder(t, "SO-20260901-0001")
	require.NoError(t, repo.Save(ctx, o))

	t.Run("persists a status transition", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)

		require.NoError(t, loaded.Confirm(uuid.New(), uuid.New()))
		require.NoError(t, repo.SaveWithLock(ctx, loaded))

		found, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.OrderStatusConfirmed, found.Status)
		assert.Equal(t, loaded.Version, found.Version)
	})

	t.Run("rejects a stale copy", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)
		fresh, err := repo.FindByID(ctx, o.ID)
		require.NoError(t, err)

		require.NoError(t, fresh.StartShipping())
		require.NoError(t, repo.SaveWithLock(ctx, fresh))

		require.NoError(t, stale.StartShipping())
		err = repo.SaveWithLock(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestGormOrderRepository_FindByStatus(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	confirmed := newTestOrder(t, "SO-20260901-0001")
	require.NoError(t, confirmed.Confirm(uuid.New(), uuid.New()))
	require.NoError(t, repo.Save(ctx, confirmed))

	pending := newTestOrder(t, "SO-20260901-0002")
	require.NoError(t, repo.Save(ctx, pending))

	found, err := repo.FindByStatus(ctx, order.OrderStatusConfirmed, shared.DefaultFilter())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, confirmed.ID, found[0].ID)
}

func TestGormOrderRepository_GenerateOrderNumber(t *testing.T) {
	db := setupOrderTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	today := time.Now().Format("20060102")

	first, err := repo.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("SO-%s-0001", today), first)

	o := newTestOrder(t, first)
	require.NoError(t, repo.Save(ctx, o))

	second, err := repo.GenerateOrderNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("SO-%s-0002", today), second)
}
