package order

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pharmadist/backend/internal/domain/catalog"
	"github.com/pharmadist/backend/internal/domain/identity"
	"github.com/pharmadist/backend/internal/domain/order"
	"github.com/pharmadist/backend/internal/domain/shared"
	"github.com/pharmadist/backend/internal/infrastructure/cache"
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

// MockProductRepository is a mock implementation of catalog.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByCode(ctx context.Context, code string) (*catalog.Product, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Product), args.Error(1)
}

func (m *MockProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindFirstActiveByRole(ctx context.Context, role identity.UserRole) (*identity.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindAll(ctx context.Context, filter shared.Filter) ([]identity.User, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockIdempotencyStore is a mock implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mock.Mock
}

func (m *MockIdempotencyStore) Remember(ctx context.Context, key, value string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, key, value, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockIdempotencyStore) Forget(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockIdempotencyStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func testProduct(t *testing.T) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct("amx-500", "Amoxicillin 500mg", "box", decimal.NewFromInt(100), decimal.NewFromFloat(0.10))
	require.NoError(t, err)
	return p
}

func TestOrderService_Checkout(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("places an order with gross line amounts", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		productRepo := new(MockProductRepository)

		product := testProduct(t)
		productRepo.On("FindByIDs", ctx, mock.Anything).Return([]catalog.Product{*product}, nil)
		orderRepo.On("GenerateOrderNumber", ctx).Return("SO-20260901-0001", nil)
		orderRepo.On("Save", ctx, mock.Anything).Return(nil)

		svc := NewOrderService(orderRepo, productRepo, new(MockUserRepository), nil, shared.IdempotencyConfig{}, nil)
		resp, err := svc.Checkout(ctx, actorID, CheckoutRequest{
			CustomerID:   uuid.New(),
			CustomerName: "City Pharmacy",
			Lines:        []CheckoutLineRequest{{ProductID: product.ID, Quantity: 10}},
		})
		require.NoError(t, err)

		assert.Equal(t, "SO-20260901-0001", resp.OrderNumber)
		assert.Equal(t, string(order.OrderStatusAwaitingConfirmation), resp.Status)
		require.Len(t, resp.Lines, 1)
		assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(1100)), "10 x 100 at 10%% VAT, got %s", resp.TotalAmount)
		orderRepo.AssertExpectations(t)
	})

	t.Run("payment-first order starts awaiting payment", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		productRepo := new(MockProductRepository)

		product := testProduct(t)
		productRepo.On("FindByIDs", ctx, mock.Anything).Return([]catalog.Product{*product}, nil)
		orderRepo.On("GenerateOrderNumber", ctx).Return("SO-1", nil)
		orderRepo.On("Save", ctx, mock.Anything).Return(nil)

		svc := NewOrderService(orderRepo, productRepo, new(MockUserRepository), nil, shared.IdempotencyConfig{}, nil)
		resp, err := svc.Checkout(ctx, actorID, CheckoutRequest{
			CustomerID:   uuid.New(),
			CustomerName: "City Pharmacy",
			PaymentFirst: true,
			Lines:        []CheckoutLineRequest{{ProductID: product.ID, Quantity: 1}},
		})
		require.NoError(t, err)
		assert.Equal(t, string(order.OrderStatusAwaitingPayment), resp.Status)
	})

	t.Run("rejects unknown products", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		productRepo := new(MockProductRepository)

		productRepo.On("FindByIDs", ctx, mock.Anything).Return([]catalog.Product{}, nil)
		orderRepo.On("GenerateOrderNumber", ctx).Return("SO-1", nil)

		svc := NewOrderService(orderRepo, productRepo, new(MockUserRepository), nil, shared.IdempotencyConfig{}, nil)
		_, err := svc.Checkout(ctx, actorID, CheckoutRequest{
			CustomerID:   uuid.New(),
			CustomerName: "City Pharmacy",
			Lines:        []CheckoutLineRequest{{ProductID: uuid.New(), Quantity: 1}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Unknown product")
		orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("rejects deactivated products", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		productRepo := new(MockProductRepository)

		product := testProduct(t)
		product.Deactivate()
		productRepo.On("FindByIDs", ctx, mock.Anything).Return([]catalog.Product{*product}, nil)
		orderRepo.On("GenerateOrderNumber", ctx).Return("SO-1", nil)

		svc := NewOrderService(orderRepo, productRepo, new(MockUserRepository), nil, shared.IdempotencyConfig{}, nil)
		_, err := svc.Checkout(ctx, actorID, CheckoutRequest{
			CustomerID:   uuid.New(),
			CustomerName: "City Pharmacy",
			Lines:        []CheckoutLineRequest{{ProductID: product.ID, Quantity: 1}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not sellable")
	})

	t.Run("rejects an empty checkout", func(t *testing.T) {
		svc := NewOrderService(new(MockOrderRepository), new(MockProductRepository), new(MockUserRepository), nil, shared.IdempotencyConfig{}, nil)
		_, err := svc.Checkout(ctx, actorID, CheckoutRequest{CustomerID: uuid.New(), CustomerName: "City Pharmacy"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one line")
	})

	t.Run("replayed idempotency key returns the original order", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		productRepo := new(MockProductRepository)
		store := new(MockIdempotencyStore)

		product := testProduct(t)
		existing, err := order.NewOrder("SO-ORIG", uuid.New(), "City Pharmacy", actorID, false)
		require.NoError(t, err)

		productRepo.On("FindByIDs", ctx, mock.Anything).Return([]catalog.Product{*product}, nil)
		orderRepo.On("GenerateOrderNumber", ctx).Return("SO-DUP", nil)
		store.On("Remember", ctx, "checkout:req-42", mock.Anything, mock.Anything).
			Return(existing.ID.String(), false, nil)
		orderRepo.On("FindByID", ctx, existing.ID).Return(existing, nil)

		svc := NewOrderService(orderRepo, productRepo, new(MockUserRepository), store, shared.DefaultIdempotencyConfig(), nil)
		resp, err := svc.Checkout(ctx, actorID, CheckoutRequest{
			CustomerID:     uuid.New(),
			CustomerName:   "City Pharmacy",
			Lines:          []CheckoutLineRequest{{ProductID: product.ID, Quantity: 1}},
			IdempotencyKey: "req-42",
		})
		require.NoError(t, err)
		assert.Equal(t, "SO-ORIG", resp.OrderNumber)
		orderRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("failed save releases the idempotency key", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		productRepo := new(MockProductRepository)
		store := new(MockIdempotencyStore)

		product := testProduct(t)
		productRepo.On("FindByIDs", ctx, mock.Anything).Return([]catalog.Product{*product}, nil)
		orderRepo.On("GenerateOrderNumber", ctx).Return("SO-1", nil)
		store.On("Remember", ctx, "checkout:req-44", mock.Anything, mock.Anything).
			Return("", true, nil)
		orderRepo.On("Save", ctx, mock.Anything).Return(assertAnError())
		store.On("Forget", ctx, "checkout:req-44").Return(nil)

		svc := NewOrderService(orderRepo, productRepo, new(MockUserRepository), store, shared.DefaultIdempotencyConfig(), nil)
		_, err := svc.Checkout(ctx, actorID, CheckoutRequest{
			CustomerID:     uuid.New(),
			CustomerName:   "City Pharmacy",
			Lines:          []CheckoutLineRequest{{ProductID: product.ID, Quantity: 1}},
			IdempotencyKey: "req-44",
		})
		require.Error(t, err)
		store.AssertCalled(t, "Forget", ctx, "checkout:req-44")
	})

	t.Run("retry after a failed save places the order", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		productRepo := new(MockProductRepository)
		store := cache.NewInMemoryIdempotencyStore()
		defer store.Close()

		product := testProduct(t)
		productRepo.On("FindByIDs", ctx, mock.Anything).Return([]catalog.Product{*product}, nil)
		orderRepo.On("GenerateOrderNumber", ctx).Return("SO-1", nil)
		orderRepo.On("Save", ctx, mock.Anything).Return(assertAnError()).Once()
		orderRepo.On("Save", ctx, mock.Anything).Return(nil).Once()

		svc := NewOrderService(orderRepo, productRepo, new(MockUserRepository), store, shared.DefaultIdempotencyConfig(), nil)
		req := CheckoutRequest{
			CustomerID:     uuid.New(),
			CustomerName:   "City Pharmacy",
			Lines:          []CheckoutLineRequest{{ProductID: product.ID, Quantity: 1}},
			IdempotencyKey: "req-45",
		}

		_, err := svc.Checkout(ctx, actorID, req)
		require.Error(t, err)

		// The failed attempt must not poison the key; the retry goes
		// through as a fresh checkout instead of resolving to an order
		// that was never saved.
		resp, err := svc.Checkout(ctx, actorID, req)
		require.NoError(t, err)
		assert.Equal(t, "SO-1", resp.OrderNumber)
		orderRepo.AssertNumberOfCalls(t, "Save", 2)
	})

	t.Run("idempotency store failure surfaces a dependency error", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		productRepo := new(MockProductRepository)
		store := new(MockIdempotencyStore)

		product := testProduct(t)
		productRepo.On("FindByIDs", ctx, mock.Anything).Return([]catalog.Product{*product}, nil)
		orderRepo.On("GenerateOrderNumber", ctx).Return("SO-1", nil)
		store.On("Remember", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return("", false, assertAnError())

		svc := NewOrderService(orderRepo, productRepo, new(MockUserRepository), store, shared.DefaultIdempotencyConfig(), nil)
		_, err := svc.Checkout(ctx, actorID, CheckoutRequest{
			CustomerID:     uuid.New(),
			CustomerName:   "City Pharmacy",
			Lines:          []CheckoutLineRequest{{ProductID: product.ID, Quantity: 1}},
			IdempotencyKey: "req-43",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Idempotency store unavailable")
	})
}

func assertAnError() error {
	return shared.NewDomainError("DEPENDENCY_FAILURE", "redis down")
}

func TestOrderService_Confirm(t *testing.T) {
	ctx := context.Background()

	newPendingOrder := func(t *testing.T) *order.Order {
		t.Helper()
		o, err := order.NewOrder("SO-1", uuid.New(), "City Pharmacy", uuid.New(), false)
		require.NoError(t, err)
		_, err = o.AddLine(uuid.New(), "Amoxicillin 500mg", "AMX-500", 2, decimal.NewFromInt(100), decimal.Zero)
		require.NoError(t, err)
		o.ClearDomainEvents()
		return o
	}

	activeUser := func(t *testing.T, role identity.UserRole) *identity.User {
		t.Helper()
		u, err := identity.NewUser("worker", "Worker", role)
		require.NoError(t, err)
		return u
	}

	t.Run("confirms and assigns a warehouse user", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		userRepo := new(MockUserRepository)

		o := newPendingOrder(t)
		manager := activeUser(t, identity.RoleManager)
		picker := activeUser(t, identity.RoleWarehouse)

		userRepo.On("FindByID", ctx, manager.ID).Return(manager, nil)
		userRepo.On("FindFirstActiveByRole", ctx, identity.RoleWarehouse).Return(picker, nil)
		orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		orderRepo.On("SaveWithLock", ctx, o).Return(nil)

		svc := NewOrderService(orderRepo, new(MockProductRepository), userRepo, nil, shared.IdempotencyConfig{}, nil)
		resp, err := svc.Confirm(ctx, manager.ID, o.ID)
		require.NoError(t, err)

		assert.Equal(t, string(order.OrderStatusConfirmed), resp.Status)
		require.NotNil(t, resp.AssigneeID)
		assert.Equal(t, picker.ID, *resp.AssigneeID)
	})

	t.Run("fails when no warehouse user is available", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		userRepo := new(MockUserRepository)

		o := newPendingOrder(t)
		manager := activeUser(t, identity.RoleManager)
		orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		userRepo.On("FindByID", ctx, manager.ID).Return(manager, nil)
		userRepo.On("FindFirstActiveByRole", ctx, identity.RoleWarehouse).Return(nil, shared.ErrNotFound)

		svc := NewOrderService(orderRepo, new(MockProductRepository), userRepo, nil, shared.IdempotencyConfig{}, nil)
		_, err := svc.Confirm(ctx, manager.ID, o.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No active warehouse user")
		orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("fails when the confirming user is deactivated", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		userRepo := new(MockUserRepository)

		o := newPendingOrder(t)
		manager := activeUser(t, identity.RoleManager)
		manager.Deactivate()
		orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		userRepo.On("FindByID", ctx, manager.ID).Return(manager, nil)

		svc := NewOrderService(orderRepo, new(MockProductRepository), userRepo, nil, shared.IdempotencyConfig{}, nil)
		_, err := svc.Confirm(ctx, manager.ID, o.ID)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "deactivated")
	})

	t.Run("missing order reports not found before actor resolution", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		userRepo := new(MockUserRepository)

		orderID := uuid.New()
		orderRepo.On("FindByID", ctx, orderID).Return(nil, shared.ErrNotFound)

		svc := NewOrderService(orderRepo, new(MockProductRepository), userRepo, nil, shared.IdempotencyConfig{}, nil)
		_, err := svc.Confirm(ctx, uuid.New(), orderID)
		require.ErrorIs(t, err, shared.ErrNotFound)
		userRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		userRepo.AssertNotCalled(t, "FindFirstActiveByRole", mock.Anything, mock.Anything)
	})
}

func TestOrderService_SetStatus(t *testing.T) {
	ctx := context.Background()
	actorID := uuid.New()

	t.Run("walks a confirmed order through shipping to completion", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)

		o, err := order.NewOrder("SO-1", uuid.New(), "City Pharmacy", uuid.New(), false)
		require.NoError(t, err)
		_, err = o.AddLine(uuid.New(), "Amoxicillin 500mg", "AMX-500", 2, decimal.NewFromInt(100), decimal.Zero)
		require.NoError(t, err)
		require.NoError(t, o.Confirm(uuid.New(), uuid.New()))
		o.ClearDomainEvents()

		orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)
		orderRepo.On("SaveWithLock", ctx, o).Return(nil)

		svc := NewOrderService(orderRepo, new(MockProductRepository), new(MockUserRepository), nil, shared.IdempotencyConfig{}, nil)

		resp, err := svc.SetStatus(ctx, actorID, o.ID, string(order.OrderStatusShipping))
		require.NoError(t, err)
		assert.Equal(t, string(order.OrderStatusShipping), resp.Status)

		resp, err = svc.SetStatus(ctx, actorID, o.ID, string(order.OrderStatusCompleted))
		require.NoError(t, err)
		assert.Equal(t, string(order.OrderStatusCompleted), resp.Status)
	})

	t.Run("rejects confirming through the generic transition", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)

		o, err := order.NewOrder("SO-1", uuid.New(), "City Pharmacy", uuid.New(), false)
		require.NoError(t, err)

		orderRepo.On("FindByID", ctx, o.ID).Return(o, nil)

		svc := NewOrderService(orderRepo, new(MockProductRepository), new(MockUserRepository), nil, shared.IdempotencyConfig{}, nil)
		_, err = svc.SetStatus(ctx, actorID, o.ID, string(order.OrderStatusConfirmed))
		require.Error(t, err)
		orderRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})
}
