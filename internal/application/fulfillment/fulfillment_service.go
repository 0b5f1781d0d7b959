package fulfillment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pharmadist/backend/internal/domain/inventory"
	"github.com/pharmadist/backend/internal/domain/order"
	"github.com/pharmadist/backend/internal/domain/shared"
)

// maxAllocationRetries bounds how often an allocation is re-planned
// after losing an optimistic-lock race on a product lot.
const maxAllocationRetries = 3

// FulfillmentService turns confirmed orders into issue notes and
// reverses issue notes. All ledger writes are version-checked; a
// conflict triggers a bounded re-plan against fresh lot state.
type FulfillmentService struct {
	orderRepo      order.OrderRepository
	issueNoteRepo  inventory.IssueNoteRepository
	productLotRepo inventory.ProductLotRepository
	allocator      *inventory.FEFOAllocator
	carrier        CarrierQuoter
	eventBus       shared.EventBus
	logger         *zap.Logger
}

// NewFulfillmentService creates a new FulfillmentService
func NewFulfillmentService(
	orderRepo order.OrderRepository,
	issueNoteRepo inventory.IssueNoteRepository,
	productLotRepo inventory.ProductLotRepository,
	carrier CarrierQuoter,
	eventBus shared.EventBus,
	logger *zap.Logger,
) *FulfillmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FulfillmentService{
		orderRepo:      orderRepo,
		issueNoteRepo:  issueNoteRepo,
		productLotRepo: productLotRepo,
		allocator:      inventory.NewFEFOAllocator(),
		carrier:        carrier,
		eventBus:       eventBus,
		logger:         logger,
	}
}

// ===================== Query Methods =====================

// GetIssueNote retrieves an issue note with its lines
func (s *FulfillmentService) GetIssueNote(ctx context.Context, id uuid.UUID) (*IssueNoteResponse, error) {
	note, err := s.issueNoteRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToIssueNoteResponse(note)
	return &resp, nil
}

// ListIssueNotes retrieves a paginated list of issue notes
func (s *FulfillmentService) ListIssueNotes(ctx context.Context, filter ListFilter) ([]IssueNoteListResponse, int64, error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}

	notes, err := s.issueNoteRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.issueNoteRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToIssueNoteListResponses(notes), total, nil
}

// ===================== Command Methods =====================

// CreateIssueNote plans a first-expiry-first-out allocation for the
// order and, only if every line is fully satisfiable, applies it and
// issues the note. The note and all touched lots are persisted in one
// transaction.
func (s *FulfillmentService) CreateIssueNote(ctx context.Context, actorID uuid.UUID, req CreateIssueNoteRequest) (*IssueNoteResponse, error) {
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("ACTOR_RESOLUTION", "Issuing actor is required")
	}

	o, err := s.orderRepo.FindByID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if o.Status != order.OrderStatusConfirmed {
		return nil, shared.NewDomainError("INVALID_STATE", "Stock can only be issued for a confirmed order")
	}

	requests := make([]inventory.AllocationRequest, 0, len(o.Lines))
	productIDs := make([]uuid.UUID, 0, len(o.Lines))
	for _, line := range o.Lines {
		requests = append(requests, inventory.AllocationRequest{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
		})
		productIDs = append(productIDs, line.ProductID)
	}

	var note *inventory.IssueNote
	for attempt := 0; ; attempt++ {
		note, err = s.allocateOnce(ctx, actorID, o, requests, productIDs)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt >= maxAllocationRetries-1 {
			return nil, err
		}
		s.logger.Warn("allocation lost optimistic lock race, re-planning",
			zap.String("order_id", o.ID.String()),
			zap.Int("attempt", attempt+1))
	}

	// The issued note moves the order out of CONFIRMED so a repeated
	// issue request cannot deduct the same lines again.
	if err := o.StartShipping(); err != nil {
		return nil, err
	}
	if err := s.orderRepo.SaveWithLock(ctx, o); err != nil {
		s.logger.Error("issue note persisted but order transition to shipping failed",
			zap.String("order_id", o.ID.String()),
			zap.String("issue_note_id", note.ID.String()),
			zap.Error(err))
		return nil, err
	}

	s.publishEvents(ctx, note.GetDomainEvents())
	s.publishEvents(ctx, o.GetDomainEvents())
	o.ClearDomainEvents()
	note.ClearDomainEvents()

	resp := ToIssueNoteResponse(note)
	return &resp, nil
}

func (s *FulfillmentService) allocateOnce(ctx context.Context, actorID uuid.UUID, o *order.Order, requests []inventory.AllocationRequest, productIDs []uuid.UUID) (*inventory.IssueNote, error) {
	lotsByProduct, err := s.productLotRepo.FindSellableByProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	plan, err := s.allocator.PlanAllocation(requests, lotsByProduct)
	if err != nil {
		return nil, err
	}

	lots, err := s.productLotRepo.FindByIDs(ctx, plan.LotIDs())
	if err != nil {
		return nil, err
	}
	if err := inventory.ApplyPlan(lots, plan); err != nil {
		return nil, err
	}

	lotByID := make(map[uuid.UUID]*inventory.ProductLot, len(lots))
	for _, lot := range lots {
		lotByID[lot.ID] = lot
	}

	noteNumber, err := s.issueNoteRepo.GenerateNoteNumber(ctx)
	if err != nil {
		return nil, err
	}
	note, err := inventory.NewIssueNote(noteNumber, o.ID, actorID)
	if err != nil {
		return nil, err
	}
	for _, line := range plan.Lines {
		for _, take := range line.Takes {
			lot := lotByID[take.ProductLotID]
			if err := note.AddLine(line.ProductID, take.ProductLotID, take.LotNumber, take.Quantity, lot.SupplyPrice); err != nil {
				return nil, err
			}
		}
	}

	s.stampDeliveryFee(ctx, o, note)

	if err := s.issueNoteRepo.SaveWithLots(ctx, note, lots); err != nil {
		return nil, err
	}

	return note, nil
}

// stampDeliveryFee asks the carrier for a quote. Quote failures are
// logged and swallowed; the allocation stands either way.
func (s *FulfillmentService) stampDeliveryFee(ctx context.Context, o *order.Order, note *inventory.IssueNote) {
	if s.carrier == nil {
		return
	}
	quote, err := s.carrier.Quote(ctx, QuoteRequest{OrderID: o.ID, TotalQuantity: note.TotalQuantity})
	if err != nil {
		s.logger.Warn("carrier quote failed, issuing without delivery fee",
			zap.String("order_id", o.ID.String()),
			zap.Error(err))
		return
	}
	note.SetDeliveryFee(quote.Fee)
}

// CancelIssueNote reverses an issued note, returning every line
// quantity to its product lot. A note can be cancelled exactly once;
// a second cancellation is rejected.
func (s *FulfillmentService) CancelIssueNote(ctx context.Context, actorID, noteID uuid.UUID, req CancelIssueNoteRequest) (*IssueNoteResponse, error) {
	var note *inventory.IssueNote
	for attempt := 0; ; attempt++ {
		var err error
		note, err = s.cancelOnce(ctx, actorID, noteID, req.Reason)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt >= maxAllocationRetries-1 {
			return nil, err
		}
		s.logger.Warn("issue note reversal lost optimistic lock race, retrying",
			zap.String("issue_note_id", noteID.String()),
			zap.Int("attempt", attempt+1))
	}

	s.publishEvents(ctx, note.GetDomainEvents())
	note.ClearDomainEvents()

	resp := ToIssueNoteResponse(note)
	return &resp, nil
}

func (s *FulfillmentService) cancelOnce(ctx context.Context, actorID, noteID uuid.UUID, reason string) (*inventory.IssueNote, error) {
	note, err := s.issueNoteRepo.FindByID(ctx, noteID)
	if err != nil {
		return nil, err
	}

	if err := note.Cancel(actorID, reason); err != nil {
		return nil, err
	}

	lotIDs := make([]uuid.UUID, 0, len(note.Lines))
	for _, line := range note.Lines {
		lotIDs = append(lotIDs, line.ProductLotID)
	}
	lots, err := s.productLotRepo.FindByIDs(ctx, lotIDs)
	if err != nil {
		return nil, err
	}
	lotByID := make(map[uuid.UUID]*inventory.ProductLot, len(lots))
	for _, lot := range lots {
		lotByID[lot.ID] = lot
	}

	for _, line := range note.Lines {
		lot, ok := lotByID[line.ProductLotID]
		if !ok {
			return nil, shared.NewDomainError("NOT_FOUND", "Product lot referenced by the note no longer exists")
		}
		if err := lot.Add(line.Quantity); err != nil {
			return nil, err
		}
	}

	if err := s.issueNoteRepo.SaveWithLots(ctx, note, lots); err != nil {
		return nil, err
	}

	return note, nil
}

func (s *FulfillmentService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventBus == nil {
		return
	}
	for _, event := range events {
		_ = s.eventBus.Publish(ctx, event)
	}
}
