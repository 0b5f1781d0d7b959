package order

import (
	"context"

	"github.com/google/uuid"

	"github.com/pharmadist/backend/internal/domain/catalog"
	"github.com/pharmadist/backend/internal/domain/identity"
	"github.com/pharmadist/backend/internal/domain/order"
	"github.com/pharmadist/backend/internal/domain/shared"
)

// OrderService provides application services for order operations.
// Every state-changing method takes the acting user explicitly.
type OrderService struct {
	orderRepo   order.OrderRepository
	productRepo catalog.ProductRepository
	userRepo    identity.UserRepository
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	eventBus    shared.EventBus
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo order.OrderRepository,
	productRepo catalog.ProductRepository,
	userRepo identity.UserRepository,
	idempotency shared.IdempotencyStore,
	idemConfig shared.IdempotencyConfig,
	eventBus shared.EventBus,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		idempotency: idempotency,
		idemConfig:  idemConfig,
		eventBus:    eventBus,
	}
}

// ===================== Query Methods =====================

// GetByID retrieves an order by ID
func (s *OrderService) GetByID(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(o)
	return &resp, nil
}

// List retrieves a paginated list of orders
func (s *OrderService) List(ctx context.Context, filter ListFilter) ([]OrderListResponse, int64, error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}

	var (
		orders []order.Order
		err    error
	)
	if filter.Status != "" {
		orders, err = s.orderRepo.FindByStatus(ctx, order.OrderStatus(filter.Status), domainFilter)
	} else {
		orders, err = s.orderRepo.FindAll(ctx, domainFilter)
	}
	if err != nil {
		return nil, 0, err
	}

	total, err := s.orderRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToOrderListResponses(orders), total, nil
}

// ===================== Command Methods =====================

// Checkout validates the requested lines against the catalog and
// places the order. When the request carries an idempotency key a
// repeated checkout returns the originally created order.
func (s *OrderService) Checkout(ctx context.Context, actorID uuid.UUID, req CheckoutRequest) (*OrderResponse, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Checkout requires at least one line")
	}

	productIDs := make([]uuid.UUID, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, shared.NewDomainError("INVALID_INPUT", "Line quantity must be positive")
		}
		productIDs = append(productIDs, line.ProductID)
	}

	products, err := s.productRepo.FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	productByID := make(map[uuid.UUID]*catalog.Product, len(products))
	for i := range products {
		productByID[products[i].ID] = &products[i]
	}

	orderNumber, err := s.orderRepo.GenerateOrderNumber(ctx)
	if err != nil {
		return nil, err
	}

	o, err := order.NewOrder(orderNumber, req.CustomerID, req.CustomerName, actorID, req.PaymentFirst)
	if err != nil {
		return nil, err
	}
	if req.Remark != "" {
		o.SetRemark(req.Remark)
	}

	for _, line := range req.Lines {
		product, ok := productByID[line.ProductID]
		if !ok {
			return nil, shared.NewDomainError("INVALID_INPUT", "Unknown product on checkout: "+line.ProductID.String())
		}
		if !product.IsSellable() {
			return nil, shared.NewDomainError("INVALID_INPUT", "Product is not sellable: "+product.Code)
		}
		if _, err := o.AddLine(product.ID, product.Name, product.Code, line.Quantity, product.UnitPrice, product.VATRate); err != nil {
			return nil, err
		}
	}

	keyRecorded := false
	idemKey := "checkout:" + req.IdempotencyKey
	if req.IdempotencyKey != "" && s.idempotency != nil && s.idemConfig.Enabled {
		stored, created, err := s.idempotency.Remember(ctx, idemKey, o.ID.String(), s.idemConfig.TTL)
		if err != nil {
			return nil, shared.NewDomainError("DEPENDENCY_FAILURE", "Idempotency store unavailable")
		}
		if !created {
			existingID, parseErr := uuid.Parse(stored)
			if parseErr != nil {
				return nil, shared.NewDomainError("DEPENDENCY_FAILURE", "Idempotency record is corrupt")
			}
			return s.GetByID(ctx, existingID)
		}
		keyRecorded = true
	}

	if err := s.orderRepo.Save(ctx, o); err != nil {
		// The key must not keep pointing at an order that was never
		// persisted, or every retry would resolve to a missing order.
		if keyRecorded {
			_ = s.idempotency.Forget(ctx, idemKey)
		}
		return nil, err
	}

	s.publishEvents(ctx, o)

	resp := ToOrderResponse(o)
	return &resp, nil
}

// Confirm confirms an order and assigns a warehouse user to fulfil it
func (s *OrderService) Confirm(ctx context.Context, actorID, orderID uuid.UUID) (*OrderResponse, error) {
	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	actor, err := s.userRepo.FindByID(ctx, actorID)
	if err != nil {
		return nil, shared.NewDomainError("ACTOR_RESOLUTION", "Confirming user not found")
	}
	if !actor.IsActive() {
		return nil, shared.NewDomainError("ACTOR_RESOLUTION", "Confirming user is deactivated")
	}

	assignee, err := s.userRepo.FindFirstActiveByRole(ctx, identity.RoleWarehouse)
	if err != nil {
		return nil, shared.NewDomainError("ACTOR_RESOLUTION", "No active warehouse user available for assignment")
	}

	if err := o.Confirm(actor.ID, assignee.ID); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, o)

	resp := ToOrderResponse(o)
	return &resp, nil
}

// SetStatus performs a guarded status transition on an order
func (s *OrderService) SetStatus(ctx context.Context, actorID, orderID uuid.UUID, target string) (*OrderResponse, error) {
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("ACTOR_RESOLUTION", "Acting user is required")
	}

	o, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := o.SetStatus(order.OrderStatus(target)); err != nil {
		return nil, err
	}

	if err := s.orderRepo.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, o)

	resp := ToOrderResponse(o)
	return &resp, nil
}

func (s *OrderService) publishEvents(ctx context.Context, o *order.Order) {
	if s.eventBus == nil {
		return
	}
	for _, event := range o.GetDomainEvents() {
		_ = s.eventBus.Publish(ctx, event)
	}
	o.ClearDomainEvents()
}
