package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pharmadist/backend/internal/domain/inventory"
	"github.com/pharmadist/backend/internal/domain/shared"
)

// ProductLotService provides application services for the lot ledger
type ProductLotService struct {
	lotRepo        inventory.LotRepository
	productLotRepo inventory.ProductLotRepository
	eventBus       shared.EventBus
}

// NewProductLotService creates a new ProductLotService
func NewProductLotService(
	lotRepo inventory.LotRepository,
	productLotRepo inventory.ProductLotRepository,
	eventBus shared.EventBus,
) *ProductLotService {
	return &ProductLotService{
		lotRepo:        lotRepo,
		productLotRepo: productLotRepo,
		eventBus:       eventBus,
	}
}

// Receive books a delivery into the ledger, creating the lot header
// on first sight of the lot number
func (s *ProductLotService) Receive(ctx context.Context, actorID uuid.UUID, req ReceiveStockRequest) (*ProductLotResponse, error) {
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("ACTOR_RESOLUTION", "Receiving actor is required")
	}

	lot, err := s.lotRepo.FindByNumber(ctx, req.LotNumber)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		lot, err = inventory.NewLot(req.LotNumber, req.Supplier, time.Now())
		if err != nil {
			return nil, err
		}
		if err := s.lotRepo.Save(ctx, lot); err != nil {
			return nil, err
		}
	}

	pl, err := inventory.NewProductLot(req.ProductID, lot.ID, lot.LotNumber, req.Quantity, req.ExpiryDate, req.SupplyPrice, req.StorageRoomID)
	if err != nil {
		return nil, err
	}

	if err := s.productLotRepo.Save(ctx, pl); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, pl)

	resp := ToProductLotResponse(pl)
	return &resp, nil
}

// Expiring lists sellable lots that expire within the given number
// of days
func (s *ProductLotService) Expiring(ctx context.Context, withinDays int, filter ListFilter) ([]ProductLotResponse, error) {
	if withinDays <= 0 {
		withinDays = 30
	}
	deadline := time.Now().AddDate(0, 0, withinDays)

	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
	}

	lots, err := s.productLotRepo.FindExpiringBefore(ctx, deadline, domainFilter)
	if err != nil {
		return nil, err
	}

	return ToProductLotResponses(lots), nil
}

// Withdraw pulls a product lot from sale
func (s *ProductLotService) Withdraw(ctx context.Context, actorID, productLotID uuid.UUID) (*ProductLotResponse, error) {
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("ACTOR_RESOLUTION", "Acting user is required")
	}

	pl, err := s.productLotRepo.FindByID(ctx, productLotID)
	if err != nil {
		return nil, err
	}

	if err := pl.MarkWithdrawn(); err != nil {
		return nil, err
	}

	if err := s.productLotRepo.SaveWithLock(ctx, pl); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, pl)

	resp := ToProductLotResponse(pl)
	return &resp, nil
}

func (s *ProductLotService) publishEvents(ctx context.Context, pl *inventory.ProductLot) {
	if s.eventBus == nil {
		return
	}
	for _, event := range pl.GetDomainEvents() {
		_ = s.eventBus.Publish(ctx, event)
	}
	pl.ClearDomainEvents()
}
