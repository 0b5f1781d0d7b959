package fulfillment

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
	"github.com/pharmadist/backend/internal/domain/order"
	"github.com/pharmadist/backend/internal/domain/shared"
)

// MockOrderRepository is a mock implementation of order.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByStatus(ctx context.Context, status order.OrderStatus, filter shared.Filter) ([]order.Order, error) {
	args := m.Called(ctx, status, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockIssueNoteRepository is a mock implementation of inventory.IssueNoteRepository
type MockIssueNoteRepository struct {
	mock.Mock
}

func (m *MockIssueNoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.IssueNote, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventory.IssueNote), args.Error(1)
}

func (m *MockIssueNoteRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]inventory.IssueNote, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.IssueNote), args.Error(1)
}

func (m *MockIssueNoteRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.IssueNote, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]inventory.IssueNote), args.Error(1)
}

func (m *MockIssueNoteRepository) Save(ctx context.Context, note *inventory.IssueNote) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}

func (m *MockIssueNoteRepository) SaveWithLots(ctx context.Context, note *inventory.IssueNote, lots []*inventory.ProductLot) error {
	args := m.Called(ctx, note, lots)
	return args.Error(0)
}

func (m *MockIssueNoteRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockIssueNoteRepository) GenerateNoteNumber(ctx context.Context) (string, error) {
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

// MockCarrierQuoter is a mock implementation of CarrierQuoter
type MockCarrierQuoter struct {
	mock.Mock
}

func (m *MockCarrierQuoter) Quote(ctx context.Context, req QuoteRequest) (*CarrierQuote, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CarrierQuote), args.Error(1)
}

func confirmedOrder(t *testing.T, productID uuid.UUID, quantity int64) *order.Order {
	t.Helper()
	o, err := order.NewOrder("SO-1", uuid.New(), "City Pharmacy", uuid.New(), false)
	require.NoError(t, err)
	_, err = o.AddLine(productID, "Amoxicillin 500mg", "AMX-500", quantity, decimal.NewFromInt(100), decimal.Zero)
	require.NoError(t, err)
	require.NoError(t, o.Confirm(uuid.New(), uuid.New()))
	return o
}

func sellableLot(t *testing.T, productID uuid.UUID, lotNumber string, quantity int64, expiresInDays int) *inventory.ProductLot {
	t.Helper()
	pl, err := inventory.NewProductLot(productID, uuid.New(), lotNumber, quantity,
		time.Now().AddDate(0, 0, expiresInDays), decimal.NewFromInt(8), uuid.New())
	require.NoError(t, err)
	return pl
}

func TestFulfillmentService_CreateIssueNote(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	t.Run("allocates FEFO and persists note with lots", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		noteRepo := new(MockIssueNoteRepository)
		lotRepo := new(MockProductLotRepository)

		o := confirmedOrder(t, productID, 10)
		early := sellableLot(t, productID, "L-EARLY", 4, 5)
		late := sellableLot(t, productID, "L-LATE", 10, 10)

		orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		orderRepo.On("SaveWithLock", ctx, o).Return(nil)
		lotRepo.On("FindSellableByProducts", ctx, mock.Anything).
			Return(map[uuid.UUID][]inventory.ProductLot{productID: {*early, *late}}, nil)
		lotRepo.On("FindByIDs", ctx, mock.Anything).
			Return([]*inventory.ProductLot{early, late}, nil)
		noteRepo.On("GenerateNoteNumber", ctx).Return("IN-20260901-0001", nil)
		noteRepo.On("SaveWithLots", ctx, mock.Anything, mock.Anything).Return(nil)

		svc := NewFulfillmentService(orderRepo, noteRepo, lotRepo, nil, nil, nil)
		resp, err := svc.CreateIssueNote(ctx, uuid.New(), CreateIssueNoteRequest{OrderID: o.ID})
		require.NoError(t, err)

		assert.Equal(t, "IN-20260901-0001", resp.NoteNumber)
		assert.Equal(t, int64(10), resp.TotalQuantity)
		require.Len(t, resp.Lines, 2)
		assert.Equal(t, "L-EARLY", resp.Lines[0].LotNumber)
		assert.Equal(t, int64(4), resp.Lines[0].Quantity)
		assert.Equal(t, "L-LATE", resp.Lines[1].LotNumber)
		assert.Equal(t, int64(6), resp.Lines[1].Quantity)

		assert.Equal(t, int64(0), early.Quantity)
		assert.Equal(t, int64(4), late.Quantity)
		assert.Equal(t, order.OrderStatusShipping, o.Status, "an issued note must move the order out of CONFIRMED")
		noteRepo.AssertExpectations(t)
		orderRepo.AssertExpectations(t)
	})

	t.Run("rejects a second issue for the same order", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		noteRepo := new(MockIssueNoteRepository)
		lotRepo := new(MockProductLotRepository)

		o := confirmedOrder(t, productID, 5)
		lot := sellableLot(t, productID, "L-1", 20, 5)

		orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		orderRepo.On("SaveWithLock", ctx, o).Return(nil)
		lotRepo.On("FindSellableByProducts", ctx, mock.Anything).
			Return(map[uuid.UUID][]inventory.ProductLot{productID: {*lot}}, nil)
		lotRepo.On("FindByIDs", ctx, mock.Anything).Return([]*inventory.ProductLot{lot}, nil)
		noteRepo.On("GenerateNoteNumber", ctx).Return("IN-1", nil)
		noteRepo.On("SaveWithLots", ctx, mock.Anything, mock.Anything).Return(nil)

		svc := NewFulfillmentService(orderRepo, noteRepo, lotRepo, nil, nil, nil)
		_, err := svc.CreateIssueNote(ctx, uuid.New(), CreateIssueNoteRequest{OrderID: o.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(15), lot.Quantity)
		assert.Equal(t, order.OrderStatusShipping, o.Status)

		_, err = svc.CreateIssueNote(ctx, uuid.New(), CreateIssueNoteRequest{OrderID: o.ID})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "confirmed order")
		assert.Equal(t, int64(15), lot.Quantity, "a repeated issue request must not deduct the lot again")
		noteRepo.AssertNumberOfCalls(t, "SaveWithLots", 1)
	})

	t.Run("surfaces an order save failure after issuing", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		noteRepo := new(MockIssueNoteRepository)
		lotRepo := new(MockProductLotRepository)

		o := confirmedOrder(t, productID, 5)
		lot := sellableLot(t, productID, "L-1", 20, 5)

		orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		orderRepo.On("SaveWithLock", ctx, o).Return(shared.ErrConcurrencyConflict)
		lotRepo.On("FindSellableByProducts", ctx, mock.Anything).
			Return(map[uuid.UUID][]inventory.ProductLot{productID: {*lot}}, nil)
		lotRepo.On("FindByIDs", ctx, mock.Anything).Return([]*inventory.ProductLot{lot}, nil)
		noteRepo.On("GenerateNoteNumber", ctx).Return("IN-1", nil)
		noteRepo.On("SaveWithLots", ctx, mock.Anything, mock.Anything).Return(nil)

		svc := NewFulfillmentService(orderRepo, noteRepo, lotRepo, nil, nil, nil)
		_, err := svc.CreateIssueNote(ctx, uuid.New(), CreateIssueNoteRequest{OrderID: o.ID})
		require.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		// the order save must not re-run the allocation
		noteRepo.AssertNumberOfCalls(t, "SaveWithLots", 1)
	})

	t.Run("insufficient stock issues nothing", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		noteRepo := new(MockIssueNoteRepository)
		lotRepo := new(MockProductLotRepository)

		o := confirmedOrder(t, productID, 10)
		short := sellableLot(t, productID, "L-SHORT", 3, 5)

		orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		lotRepo.On("FindSellableByProducts", ctx, mock.Anything).
			Return(map[uuid.UUID][]inventory.ProductLot{productID: {*short}}, nil)

		svc := NewFulfillmentService(orderRepo, noteRepo, lotRepo, nil, nil, nil)
		_, err := svc.CreateIssueNote(ctx, uuid.New(), CreateIssueNoteRequest{OrderID: o.ID})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Insufficient stock")
		assert.Equal(t, int64(3), short.Quantity, "failed allocation must not touch the ledger")
		noteRepo.AssertNotCalled(t, "SaveWithLots", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("replans after losing the optimistic lock race", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		noteRepo := new(MockIssueNoteRepository)
		lotRepo := new(MockProductLotRepository)

		o := confirmedOrder(t, productID, 5)

		orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		orderRepo.On("SaveWithLock", ctx, o).Return(nil)

		fresh := sellableLot(t, productID, "L-1", 20, 5)
		lotRepo.On("FindSellableByProducts", ctx, mock.Anything).
			Return(map[uuid.UUID][]inventory.ProductLot{productID: {*fresh}}, nil)
		lotRepo.On("FindByIDs", ctx, mock.Anything).Return([]*inventory.ProductLot{fresh}, nil)
		noteRepo.On("GenerateNoteNumber", ctx).Return("IN-1", nil)
		noteRepo.On("SaveWithLots", ctx, mock.Anything, mock.Anything).Return(shared.ErrConcurrencyConflict).Once()
		noteRepo.On("SaveWithLots", ctx, mock.Anything, mock.Anything).Return(nil).Once()

		svc := NewFulfillmentService(orderRepo, noteRepo, lotRepo, nil, nil, nil)
		resp, err := svc.CreateIssueNote(ctx, uuid.New(), CreateIssueNoteRequest{OrderID: o.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(5), resp.TotalQuantity)
		noteRepo.AssertNumberOfCalls(t, "SaveWithLots", 2)
	})

	t.Run("requires a confirmed order", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		o, err := order.NewOrder("SO-2", uuid.New(), "City Pharmacy", uuid.New(), false)
		require.NoError(t, err)
		orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)

		svc := NewFulfillmentService(orderRepo, new(MockIssueNoteRepository), new(MockProductLotRepository), nil, nil, nil)
		_, err = svc.CreateIssueNote(ctx, uuid.New(), CreateIssueNoteRequest{OrderID: o.ID})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "confirmed order")
	})

	t.Run("stamps carrier quote when the carrier answers", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		noteRepo := new(MockIssueNoteRepository)
		lotRepo := new(MockProductLotRepository)
		carrier := new(MockCarrierQuoter)

		o := confirmedOrder(t, productID, 5)
		lot := sellableLot(t, productID, "L-1", 20, 5)

		orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		orderRepo.On("SaveWithLock", ctx, o).Return(nil)
		lotRepo.On("FindSellableByProducts", ctx, mock.Anything).
			Return(map[uuid.UUID][]inventory.ProductLot{productID: {*lot}}, nil)
		lotRepo.On("FindByIDs", ctx, mock.Anything).Return([]*inventory.ProductLot{lot}, nil)
		noteRepo.On("GenerateNoteNumber", ctx).Return("IN-1", nil)
		noteRepo.On("SaveWithLots", ctx, mock.Anything, mock.Anything).Return(nil)
		carrier.On("Quote", ctx, mock.Anything).Return(&CarrierQuote{Fee: decimal.NewFromInt(25), EstimatedDays: 2}, nil)

		svc := NewFulfillmentService(orderRepo, noteRepo, lotRepo, carrier, nil, nil)
		resp, err := svc.CreateIssueNote(ctx, uuid.New(), CreateIssueNoteRequest{OrderID: o.ID})
		require.NoError(t, err)
		assert.True(t, resp.DeliveryFee.Equal(decimal.NewFromInt(25)))
	})

	t.Run("carrier failure does not roll the allocation back", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		noteRepo := new(MockIssueNoteRepository)
		lotRepo := new(MockProductLotRepository)
		carrier := new(MockCarrierQuoter)

		o := confirmedOrder(t, productID, 5)
		lot := sellableLot(t, productID, "L-1", 20, 5)

		orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		orderRepo.On("SaveWithLock", ctx, o).Return(nil)
		lotRepo.On("FindSellableByProducts", ctx, mock.Anything).
			Return(map[uuid.UUID][]inventory.ProductLot{productID: {*lot}}, nil)
		lotRepo.On("FindByIDs", ctx, mock.Anything).Return([]*inventory.ProductLot{lot}, nil)
		noteRepo.On("GenerateNoteNumber", ctx).Return("IN-1", nil)
		noteRepo.On("SaveWithLots", ctx, mock.Anything, mock.Anything).Return(nil)
		carrier.On("Quote", ctx, mock.Anything).Return(nil, shared.ErrDependencyFailure)

		svc := NewFulfillmentService(orderRepo, noteRepo, lotRepo, carrier, nil, nil)
		resp, err := svc.CreateIssueNote(ctx, uuid.New(), CreateIssueNoteRequest{OrderID: o.ID})
		require.NoError(t, err)
		assert.True(t, resp.DeliveryFee.IsZero())
		assert.Equal(t, int64(15), lot.Quantity)
	})
}

func TestFulfillmentService_CancelIssueNote(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	issuedNote := func(t *testing.T, lot *inventory.ProductLot, quantity int64) *inventory.IssueNote {
		t.Helper()
		note, err := inventory.NewIssueNote("IN-1", uuid.New(), uuid.New())
		require.NoError(t, err)
		require.NoError(t, note.AddLine(productID, lot.ID, lot.LotNumber, quantity, lot.SupplyPrice))
		note.ClearDomainEvents()
		return note
	}

	t.Run("returns quantities to the lots", func(t *testing.T) {
		noteRepo := new(MockIssueNoteRepository)
		lotRepo := new(MockProductLotRepository)

		lot := sellableLot(t, productID, "L-1", 20, 5)
		require.NoError(t, lot.Deduct(6))
		note := issuedNote(t, lot, 6)

		noteRepo.On("FindByID", ctx, note.ID).Return(note, nil)
		lotRepo.On("FindByIDs", ctx, mock.Anything).Return([]*inventory.ProductLot{lot}, nil)
		noteRepo.On("SaveWithLots", ctx, note, mock.Anything).Return(nil)

		svc := NewFulfillmentService(new(MockOrderRepository), noteRepo, lotRepo, nil, nil, nil)
		resp, err := svc.CancelIssueNote(ctx, uuid.New(), note.ID, CancelIssueNoteRequest{Reason: "order cancelled"})
		require.NoError(t, err)

		assert.Equal(t, string(inventory.IssueNoteStatusCancelled), resp.Status)
		assert.Equal(t, int64(20), lot.Quantity, "reversal must restore the deducted units")
	})

	t.Run("rejects a second cancellation", func(t *testing.T) {
		noteRepo := new(MockIssueNoteRepository)
		lotRepo := new(MockProductLotRepository)

		lot := sellableLot(t, productID, "L-1", 20, 5)
		note := issuedNote(t, lot, 6)
		require.NoError(t, note.Cancel(uuid.New(), "first"))
		note.ClearDomainEvents()

		noteRepo.On("FindByID", ctx, note.ID).Return(note, nil)

		svc := NewFulfillmentService(new(MockOrderRepository), noteRepo, lotRepo, nil, nil, nil)
		_, err := svc.CancelIssueNote(ctx, uuid.New(), note.ID, CancelIssueNoteRequest{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already cancelled")
		assert.Equal(t, int64(20), lot.Quantity, "a rejected reversal must not touch the ledger")
		noteRepo.AssertNotCalled(t, "SaveWithLots", mock.Anything, mock.Anything, mock.Anything)
	})
}
