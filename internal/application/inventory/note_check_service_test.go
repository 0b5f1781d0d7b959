package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pharmadist/backend/internal/domain/inventory"
	"github.com/pharmadist/backend/internal/domain/shared"
)

// MockNoteCheckRepository is a mock implementation of inventory.NoteCheckRepository
type MockNoteCheckRepository struct {
	mock.Mock
}

func (m *MockNoteCheckRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.NoteCheck, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.NoteCheck), args.Error(1)
}

func (m *MockNoteCheckRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.NoteCheck, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.NoteCheck), args.Error(1)
}

func (m *MockNoteCheckRepository) FindErrorLines(ctx context.Context, filter shared.Filter) ([]inventory.NoteCheckLine, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.NoteCheckLine), args.Error(1)
}

func (m *MockNoteCheckRepository) Save(ctx context.Context, check *inventory.NoteCheck) error {
	args := m.Called(ctx, check)
	return args.Error(0)
}

func (m *MockNoteCheckRepository) SaveWithLots(ctx context.Context, check *inventory.NoteCheck, lots []*inventory.ProductLot) error {
	args := m.Called(ctx, check, lots)
	return args.Error(0)
}

func (m *MockNoteCheckRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNoteCheckRepository) GenerateCheckNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockProductLotRepository is a mock implementation of inventory.ProductLotRepository
type MockProductLotRepository struct {
	mock.Mock
}

func (m *MockProductLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.ProductLot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.ProductLot), args.Error(1)
}

func (m *MockProductLotRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*inventory.ProductLot, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*inventory.ProductLot), args.Error(1)
}

func (m *MockProductLotRepository) FindSellableByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]inventory.ProductLot, error) {
	args := m.Called(ctx, productIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID][]inventory.ProductLot), args.Error(1)
}

func (m *MockProductLotRepository) FindByStorageRoom(ctx context.Context, storageRoomID uuid.UUID, filter shared.Filter) ([]inventory.ProductLot, error) {
	args := m.Called(ctx, storageRoomID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.ProductLot), args.Error(1)
}

func (m *MockProductLotRepository) FindExpiringBefore(ctx context.Context, deadline time.Time, filter shared.Filter) ([]inventory.ProductLot, error) {
	args := m.Called(ctx, deadline, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.ProductLot), args.Error(1)
}

func (m *MockProductLotRepository) Save(ctx context.Context, lot *inventory.ProductLot) error {
	args := m.Called(ctx, lot)
	return args.Error(0)
}

func (m *MockProductLotRepository) SaveWithLock(ctx context.Context, lot *inventory.ProductLot) error {
	args := m.Called(ctx, lot)
	return args.Error(0)
}

func (m *MockProductLotRepository) SaveAllWithLock(ctx context.Context, lots []*inventory.ProductLot) error {
	args := m.Called(ctx, lots)
	return args.Error(0)
}

// MockLotRepository is a mock implementation of inventory.LotRepository
type MockLotRepository struct {
	mock.Mock
}

func (m *MockLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Lot, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Lot), args.Error(1)
}

func (m *MockLotRepository) FindByNumber(ctx context.Context, lotNumber string) (*inventory.Lot, error) {
	args := m.Called(ctx, lotNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.Lot), args.Error(1)
}

func (m *MockLotRepository) Save(ctx context.Context, lot *inventory.Lot) error {
	args := m.Called(ctx, lot)
	return args.Error(0)
}

func storedLot(t *testing.T, roomID uuid.UUID, lotNumber string, quantity int64) *inventory.ProductLot {
	t.Helper()
	pl, err := inventory.NewProductLot(uuid.New(), uuid.New(), lotNumber, quantity,
		time.Now().AddDate(1, 0, 0), decimal.NewFromInt(8), roomID)
	require.NoError(t, err)
	return pl
}

func TestNoteCheckService_Create(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()
	roomID := uuid.New()

	t.Run("snapshots the ledger and computes differences", func(t *testing.T) {
		checkRepo := new(MockNoteCheckRepository)
		lotRepo := new(MockProductLotRepository)

		lot := storedLot(t, roomID, "L-1", 10)

		checkRepo.On("GenerateCheckNumber", ctx).Return("NC-20260901-0001", nil)
		lotRepo.On("FindByIDs", ctx, mock.Anything).Return([]*inventory.ProductLot{lot}, nil)
		checkRepo.On("Save", ctx, mock.Anything).Return(nil)

		svc := NewNoteCheckService(checkRepo, lotRepo, nil)
		resp, err := svc.Create(ctx, actorID, CreateNoteCheckRequest{
			StorageRoomID: roomID,
			Reason:        "monthly count",
			Lines: []NoteCheckLineRequest{
				{ProductLotID: lot.ID, CountedQuantity: 6, DamagedQuantity: 1},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, "NC-20260901-0001", resp.CheckNumber)
		require.Len(t, resp.Lines, 1)
		assert.Equal(t, int64(10), resp.Lines[0].LedgerQuantity)
		assert.Equal(t, int64(4), resp.Lines[0].Difference)
		assert.Equal(t, int64(3), resp.Lines[0].UnexplainedShortage)
	})

	t.Run("rejects lots from another storage room", func(t *testing.T) {
		checkRepo := new(MockNoteCheckRepository)
		lotRepo := new(MockProductLotRepository)

		foreign := storedLot(t, uuid.New(), "L-2", 10)

		checkRepo.On("GenerateCheckNumber", ctx).Return("NC-1", nil)
		lotRepo.On("FindByIDs", ctx, mock.Anything).Return([]*inventory.ProductLot{foreign}, nil)

		svc := NewNoteCheckService(checkRepo, lotRepo, nil)
		_, err := svc.Create(ctx, actorID, CreateNoteCheckRequest{
			StorageRoomID: roomID,
			Lines: []NoteCheckLineRequest{
				{ProductLotID: foreign.ID, CountedQuantity: 10},
			},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "different storage room")
		checkRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestNoteCheckService_Approve(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()
	roomID := uuid.New()

	pendingCheck := func(t *testing.T, lot *inventory.ProductLot, counted, damaged int64) *inventory.NoteCheck {
		t.Helper()
		check, err := inventory.NewNoteCheck("NC-1", roomID, "count", uuid.New())
		require.NoError(t, err)
		_, err = check.AddLine(lot, counted, damaged)
		require.NoError(t, err)
		check.ClearDomainEvents()
		return check
	}

	t.Run("overwrites the ledger with counted quantities", func(t *testing.T) {
		checkRepo := new(MockNoteCheckRepository)
		lotRepo := new(MockProductLotRepository)

		lot := storedLot(t, roomID, "L-1", 10)
		check := pendingCheck(t, lot, 6, 1)

		checkRepo.On("FindByID", ctx, check.ID).Return(check, nil)
		lotRepo.On("FindByIDs", ctx, mock.Anything).Return([]*inventory.ProductLot{lot}, nil)
		checkRepo.On("SaveWithLots", ctx, check, mock.Anything).Return(nil)

		svc := NewNoteCheckService(checkRepo, lotRepo, nil)
		resp, err := svc.Approve(ctx, actorID, check.ID)
		require.NoError(t, err)

		assert.Equal(t, string(inventory.NoteCheckStatusApproved), resp.Status)
		assert.Equal(t, int64(6), lot.Quantity, "approval must overwrite the ledger with the count")
	})

	t.Run("retries after losing the optimistic lock race", func(t *testing.T) {
		checkRepo := new(MockNoteCheckRepository)
		lotRepo := new(MockProductLotRepository)

		lot := storedLot(t, roomID, "L-1", 10)
		first := pendingCheck(t, lot, 6, 0)
		reread := pendingCheck(t, lot, 6, 0)

		checkRepo.On("FindByID", ctx, first.ID).Return(first, nil).Once()
		checkRepo.On("FindByID", ctx, first.ID).Return(reread, nil).Once()
		lotRepo.On("FindByIDs", ctx, mock.Anything).Return([]*inventory.ProductLot{lot}, nil)
		checkRepo.On("SaveWithLots", ctx, mock.Anything, mock.Anything).Return(shared.ErrConcurrencyConflict).Once()
		checkRepo.On("SaveWithLots", ctx, mock.Anything, mock.Anything).Return(nil).Once()

		svc := NewNoteCheckService(checkRepo, lotRepo, nil)
		resp, err := svc.Approve(ctx, actorID, first.ID)
		require.NoError(t, err)
		assert.Equal(t, string(inventory.NoteCheckStatusApproved), resp.Status)
		checkRepo.AssertNumberOfCalls(t, "SaveWithLots", 2)
	})

	t.Run("rejects approving twice", func(t *testing.T) {
		checkRepo := new(MockNoteCheckRepository)
		lotRepo := new(MockProductLotRepository)

		lot := storedLot(t, roomID, "L-1", 10)
		check := pendingCheck(t, lot, 10, 0)
		require.NoError(t, check.Approve(uuid.New()))
		check.ClearDomainEvents()

		checkRepo.On("FindByID", ctx, check.ID).Return(check, nil)

		svc := NewNoteCheckService(checkRepo, lotRepo, nil)
		_, err := svc.Approve(ctx, actorID, check.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already been approved")
		checkRepo.AssertNotCalled(t, "SaveWithLots", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestNoteCheckService_Update(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()
	roomID := uuid.New()

	t.Run("corrects a pending line", func(t *testing.T) {
		checkRepo := new(MockNoteCheckRepository)

		lot := storedLot(t, roomID, "L-1", 10)
		check, err := inventory.NewNoteCheck("NC-1", roomID, "count", uuid.New())
		require.NoError(t, err)
		line, err := check.AddLine(lot, 6, 0)
		require.NoError(t, err)
		check.ClearDomainEvents()

		checkRepo.On("FindByID", ctx, check.ID).Return(check, nil)
		checkRepo.On("Save", ctx, check).Return(nil)

		svc := NewNoteCheckService(checkRepo, new(MockProductLotRepository), nil)
		resp, err := svc.Update(ctx, actorID, check.ID, UpdateNoteCheckRequest{
			Lines: []UpdateNoteCheckLineRequest{
				{LineID: line.ID, CountedQuantity: 8, DamagedQuantity: 2},
			},
		})
		require.NoError(t, err)

		require.Len(t, resp.Lines, 1)
		assert.Equal(t, int64(2), resp.Lines[0].Difference)
		assert.Equal(t, int64(0), resp.Lines[0].UnexplainedShortage)
	})
}

func TestNoteCheckService_VoidErrorLine(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()
	roomID := uuid.New()

	t.Run("voids a damaged line", func(t *testing.T) {
		checkRepo := new(MockNoteCheckRepository)

		lot := storedLot(t, roomID, "L-1", 10)
		check, err := inventory.NewNoteCheck("NC-1", roomID, "count", uuid.New())
		require.NoError(t, err)
		line, err := check.AddLine(lot, 8, 2)
		require.NoError(t, err)
		check.ClearDomainEvents()

		checkRepo.On("FindByID", ctx, check.ID).Return(check, nil)
		checkRepo.On("Save", ctx, check).Return(nil)

		svc := NewNoteCheckService(checkRepo, new(MockProductLotRepository), nil)
		resp, err := svc.VoidErrorLine(ctx, actorID, check.ID, line.ID)
		require.NoError(t, err)
		assert.Equal(t, string(inventory.NoteCheckLineStatusVoided), resp.Lines[0].Status)
	})

	t.Run("rejects voiding an undamaged line", func(t *testing.T) {
		checkRepo := new(MockNoteCheckRepository)

		lot := storedLot(t, roomID, "L-1", 10)
		check, err := inventory.NewNoteCheck("NC-1", roomID, "count", uuid.New())
		require.NoError(t, err)
		line, err := check.AddLine(lot, 10, 0)
		require.NoError(t, err)
		check.ClearDomainEvents()

		checkRepo.On("FindByID", ctx, check.ID).Return(check, nil)

		svc := NewNoteCheckService(checkRepo, new(MockProductLotRepository), nil)
		_, err = svc.VoidErrorLine(ctx, actorID, check.ID, line.ID)
		require.Error(t, err)
		checkRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}
