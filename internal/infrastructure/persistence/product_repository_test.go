package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmadist/backend/internal/domain/catalog"
	"github.com/pharmadist/backend/internal/domain/shared"
)

func setupProductTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&catalog.Product{})
	require.NoError(t, err)

	return db
}

func TestGormProductRepository_FindByCode(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	product, err := catalog.NewProduct("amx-500", "Amoxicillin 500mg", "box",
		decimal.NewFromInt(100), decimal.NewFromFloat(0.10))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, product))

	found, err := repo.FindByCode(ctx, "amx-500")
	require.NoError(t, err)
	assert.Equal(t, product.ID, found.ID)

	_, err = repo.FindByCode(ctx, "IBU-400")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormProductRepository_FindByIDs(t *testing.T) {
	db := setupProductTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	first, err := catalog.NewProduct("amx-500", "Amoxicillin 500mg", "box",
		decimal.NewFromInt(100), decimal.NewFromFloat(0.10))
	require.NoError(t, err)
	second, err := catalog.NewProduct("ibu-400", "Ibuprofen 400mg", "box",
		decimal.NewFromInt(40), decimal.NewFromFloat(0.10))
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))

	found, err := repo.FindByIDs(ctx, []uuid.UUID{first.ID, second.ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, found, 2, "unknown IDs are skipped, not an error")

	found, err = repo.FindByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}
