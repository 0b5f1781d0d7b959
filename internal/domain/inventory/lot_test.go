package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductLot(t *testing.T) {
	t.Run("creates sellable lot", func(t *testing.T) {
		pl, err := NewProductLot(uuid.New(), uuid.New(), "LOT-1", 100,
			time.Now().AddDate(1, 0, 0), decimal.NewFromInt(8), uuid.New())
		require.NoError(t, err)

		assert.Equal(t, ProductLotStatusSellable, pl.Status)
		assert.True(t, pl.IsAvailable())
		assert.Len(t, pl.GetDomainEvents(), 1)
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		_, err := NewProductLot(uuid.New(), uuid.New(), "LOT-1", -1,
			time.Now().AddDate(1, 0, 0), decimal.Zero, uuid.New())
		require.Error(t, err)
	})

	t.Run("requires expiry date", func(t *testing.T) {
		_, err := NewProductLot(uuid.New(), uuid.New(), "LOT-1", 1,
			time.Time{}, decimal.Zero, uuid.New())
		require.Error(t, err)
	})
}

func TestProductLot_Deduct(t *testing.T) {
	pl, err := NewProductLot(uuid.New(), uuid.New(), "LOT-1", 10,
		time.Now().AddDate(0, 6, 0), decimal.Zero, uuid.New())
	require.NoError(t, err)
	startVersion := pl.GetVersion()

	t.Run("deducts and bumps version", func(t *testing.T) {
		require.NoError(t, pl.Deduct(4))
		assert.Equal(t, int64(6), pl.Quantity)
		assert.Equal(t, startVersion+1, pl.GetVersion())
	})

	t.Run("never goes negative", func(t *testing.T) {
		err := pl.Deduct(7)
		require.Error(t, err)
		assert.Equal(t, int64(6), pl.Quantity)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		require.Error(t, pl.Deduct(0))
		require.Error(t, pl.Deduct(-2))
	})
}

func TestProductLot_AddAndOverwrite(t *testing.T) {
	pl, err := NewProductLot(uuid.New(), uuid.New(), "LOT-1", 5,
		time.Now().AddDate(0, 6, 0), decimal.Zero, uuid.New())
	require.NoError(t, err)

	require.NoError(t, pl.Add(3))
	assert.Equal(t, int64(8), pl.Quantity)

	require.NoError(t, pl.OverwriteQuantity(2))
	assert.Equal(t, int64(2), pl.Quantity)

	require.Error(t, pl.OverwriteQuantity(-1))
	require.NoError(t, pl.OverwriteQuantity(0))
	assert.Equal(t, int64(0), pl.Quantity)
}

func TestProductLot_Withdraw(t *testing.T) {
	pl, err := NewProductLot(uuid.New(), uuid.New(), "LOT-1", 5,
		time.Now().AddDate(0, 0, 10), decimal.Zero, uuid.New())
	require.NoError(t, err)

	now := time.Now()
	assert.True(t, pl.ExpiresWithin(now, 30*24*time.Hour))
	assert.False(t, pl.ExpiresWithin(now, 24*time.Hour))
	assert.False(t, pl.IsExpired(now))

	require.NoError(t, pl.MarkWithdrawn())
	assert.False(t, pl.IsAvailable())

	require.Error(t, pl.MarkWithdrawn())
}
