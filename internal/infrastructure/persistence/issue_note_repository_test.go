package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pharmadist/backend/internal/domain/inventory"
	"github.com/pharmadist/backend/internal/domain/shared"
)

func setupIssueNoteTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&inventory.IssueNote{}, &inventory.IssueNoteLine{}, &inventory.ProductLot{})
	require.NoError(t, err)

	return db
}

func newTestIssueNote(t *testing.T, lot *inventory.ProductLot, quantity int64) *inventory.IssueNote {
	t.Helper()

	note, err := inventory.NewIssueNote("IN-20260901-0001", uuid.New(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, note.AddLine(lot.ProductID, lot.ID, lot.LotNumber, quantity, lot.SupplyPrice))
	return note
}

func TestGormIssueNoteRepository_SaveWithLots(t *testing.T) {
	db := setupIssueNoteTestDB(t)
	repo := NewGormIssueNoteRepository(db)
	lotRepo := NewGormProductLotRepository(db)
	ctx := context.Background()

	lot := newTestProductLot(t, uuid.New(), "L-001", 100, 90)
	require.NoError(t, lotRepo.Save(ctx, lot))

	note := newTestIssueNote(t, lot, 30)
	require.NoError(t, lot.Deduct(30))
	require.NoError(t, repo.SaveWithLots(ctx, note, []*inventory.ProductLot{lot}))

	foundNote, err := repo.FindByID(ctx, note.ID)
	require.NoError(t, err)
	require.Len(t, foundNote.Lines, 1)
	assert.Equal(t, int64(30), foundNote.Lines[0].Quantity)

	foundLot, err := lotRepo.FindByID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), foundLot.Quantity)
}

func TestGormIssueNoteRepository_SaveWithLotsRollsBackOnConflict(t *testing.T) {
	db := setupIssueNoteTestDB(t)
	repo := NewGormIssueNoteRepository(db)
	lotRepo := NewGormProductLotRepository(db)
	ctx := context.Background()

	lot := newTestProductLot(t, uuid.New(), "L-001", 100, 90)
	require.NoError(t, lotRepo.Save(ctx, lot))

	// Another writer bumps the lot before our save lands
	concurrent, err := lotRepo.FindByID(ctx, lot.ID)
	require.NoError(t, err)
	require.NoError(t, concurrent.Deduct(5))
	require.NoError(t, lotRepo.SaveWithLock(ctx, concurrent))

	note := newTestIssueNote(t, lot, 30)
	require.NoError(t, lot.Deduct(30))
	err = repo.SaveWithLots(ctx, note, []*inventory.ProductLot{lot})
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	_, err = repo.FindByID(ctx, note.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound, "the note must not survive a lot conflict")

	foundLot, err := lotRepo.FindByID(ctx, lot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(95), foundLot.Quantity)
}

func TestGormIssueNoteRepository_FindByOrderID(t *testing.T) {
	db := setupIssueNoteTestDB(t)
	repo := NewGormIssueNoteRepository(db)
	ctx := context.Background()

	orderID := uuid.New()
	note, err := inventory.NewIssueNote("IN-20260901-0001", orderID, uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, note))

	unrelated, err := inventory.NewIssueNote("IN-20260901-0002", uuid.New(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, unrelated))

	found, err := repo.FindByOrderID(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, note.ID, found[0].ID)
}

func TestGormIssueNoteRepository_GenerateNoteNumber(t *testing.T) {
	db := setupIssueNoteTestDB(t)
	repo := NewGormIssueNoteRepository(db)
	ctx := context.Background()

	today := time.Now().Format("20060102")

	first, err := repo.GenerateNoteNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("IN-%s-0001", today), first)

	note, err := inventory.NewIssueNote(first, uuid.New(), uuid.New())
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, note))

	second, err := repo.GenerateNoteNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("IN-%s-0002", today), second)
}
