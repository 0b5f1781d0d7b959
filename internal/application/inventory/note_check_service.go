package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pharmadist/backend/internal/domain/inventory"
	"github.com/pharmadist/backend/internal/domain/shared"
)

// maxApprovalRetries bounds how often an approval is retried after
// losing an optimistic-lock race on a product lot.
const maxApprovalRetries = 3

// NoteCheckService provides application services for stock
// reconciliation sessions
type NoteCheckService struct {
	noteCheckRepo  inventory.NoteCheckRepository
	productLotRepo inventory.ProductLotRepository
	eventBus       shared.EventBus
}

// NewNoteCheckService creates a new NoteCheckService
func NewNoteCheckService(
	noteCheckRepo inventory.NoteCheckRepository,
	productLotRepo inventory.ProductLotRepository,
	eventBus shared.EventBus,
) *NoteCheckService {
	return &NoteCheckService{
		noteCheckRepo:  noteCheckRepo,
		productLotRepo: productLotRepo,
		eventBus:       eventBus,
	}
}

// ===================== Query Methods =====================

// GetByID retrieves a note check with its lines
func (s *NoteCheckService) GetByID(ctx context.Context, id uuid.UUID) (*NoteCheckResponse, error) {
	check, err := s.noteCheckRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToNoteCheckResponse(check)
	return &resp, nil
}

// List retrieves a paginated list of note checks
func (s *NoteCheckService) List(ctx context.Context, filter ListFilter) ([]NoteCheckResponse, int64, error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}

	checks, err := s.noteCheckRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.noteCheckRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]NoteCheckResponse, 0, len(checks))
	for i := range checks {
		out = append(out, ToNoteCheckResponse(&checks[i]))
	}
	return out, total, nil
}

// ErrorProducts lists counted lines that record damaged units, with
// their pending or voided state
func (s *NoteCheckService) ErrorProducts(ctx context.Context, filter ListFilter) ([]NoteCheckLineResponse, error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  filter.OrderBy,
		OrderDir: filter.OrderDir,
		Search:   filter.Search,
	}

	lines, err := s.noteCheckRepo.FindErrorLines(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	out := make([]NoteCheckLineResponse, 0, len(lines))
	for i := range lines {
		out = append(out, ToNoteCheckLineResponse(&lines[i]))
	}
	return out, nil
}

// ===================== Command Methods =====================

// Create opens a reconciliation session, snapshotting the ledger
// quantity of every counted lot
func (s *NoteCheckService) Create(ctx context.Context, actorID uuid.UUID, req CreateNoteCheckRequest) (*NoteCheckResponse, error) {
	checkNumber, err := s.noteCheckRepo.GenerateCheckNumber(ctx)
	if err != nil {
		return nil, err
	}

	check, err := inventory.NewNoteCheck(checkNumber, req.StorageRoomID, req.Reason, actorID)
	if err != nil {
		return nil, err
	}

	lotIDs := make([]uuid.UUID, 0, len(req.Lines))
	for _, line := range req.Lines {
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

	for _, line := range req.Lines {
		lot, ok := lotByID[line.ProductLotID]
		if !ok {
			return nil, shared.NewDomainError("NOT_FOUND", "Product lot not found: "+line.ProductLotID.String())
		}
		if lot.StorageRoomID != req.StorageRoomID {
			return nil, shared.NewDomainError("INVALID_INPUT", "Product lot belongs to a different storage room")
		}
		if _, err := check.AddLine(lot, line.CountedQuantity, line.DamagedQuantity); err != nil {
			return nil, err
		}
	}

	if err := s.noteCheckRepo.Save(ctx, check); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, check)

	resp := ToNoteCheckResponse(check)
	return &resp, nil
}

// Update corrects counted lines while the check is pending approval
func (s *NoteCheckService) Update(ctx context.Context, actorID, checkID uuid.UUID, req UpdateNoteCheckRequest) (*NoteCheckResponse, error) {
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("ACTOR_RESOLUTION", "Acting user is required")
	}

	check, err := s.noteCheckRepo.FindByID(ctx, checkID)
	if err != nil {
		return nil, err
	}

	for _, line := range req.Lines {
		if err := check.UpdateLine(line.LineID, line.CountedQuantity, line.DamagedQuantity); err != nil {
			return nil, err
		}
	}

	if err := s.noteCheckRepo.Save(ctx, check); err != nil {
		return nil, err
	}

	resp := ToNoteCheckResponse(check)
	return &resp, nil
}

// Approve finalizes the check and overwrites the ledger quantity of
// every counted lot with its counted value, in one transaction.
func (s *NoteCheckService) Approve(ctx context.Context, actorID, checkID uuid.UUID) (*NoteCheckResponse, error) {
	var check *inventory.NoteCheck
	for attempt := 0; ; attempt++ {
		var err error
		check, err = s.approveOnce(ctx, actorID, checkID)
		if err == nil {
			break
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) || attempt >= maxApprovalRetries-1 {
			return nil, err
		}
	}

	s.publishEvents(ctx, check)

	resp := ToNoteCheckResponse(check)
	return &resp, nil
}

func (s *NoteCheckService) approveOnce(ctx context.Context, actorID, checkID uuid.UUID) (*inventory.NoteCheck, error) {
	check, err := s.noteCheckRepo.FindByID(ctx, checkID)
	if err != nil {
		return nil, err
	}

	if err := check.Approve(actorID); err != nil {
		return nil, err
	}

	lotIDs := make([]uuid.UUID, 0, len(check.Lines))
	for _, line := range check.Lines {
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

	for _, line := range check.Lines {
		lot, ok := lotByID[line.ProductLotID]
		if !ok {
			return nil, shared.NewDomainError("NOT_FOUND", "Counted product lot no longer exists")
		}
		if err := lot.OverwriteQuantity(line.CountedQuantity); err != nil {
			return nil, err
		}
	}

	if err := s.noteCheckRepo.SaveWithLots(ctx, check, lots); err != nil {
		return nil, err
	}

	return check, nil
}

// VoidErrorLine voids a damaged line, marking its units written off
func (s *NoteCheckService) VoidErrorLine(ctx context.Context, actorID, checkID, lineID uuid.UUID) (*NoteCheckResponse, error) {
	if actorID == uuid.Nil {
		return nil, shared.NewDomainError("ACTOR_RESOLUTION", "Acting user is required")
	}

	check, err := s.noteCheckRepo.FindByID(ctx, checkID)
	if err != nil {
		return nil, err
	}

	if err := check.VoidLine(lineID); err != nil {
		return nil, err
	}

	if err := s.noteCheckRepo.Save(ctx, check); err != nil {
		return nil, err
	}

	resp := ToNoteCheckResponse(check)
	return &resp, nil
}

func (s *NoteCheckService) publishEvents(ctx context.Context, check *inventory.NoteCheck) {
	if s.eventBus == nil {
		return
	}
	for _, event := range check.GetDomainEvents() {
		_ = s.eventBus.Publish(ctx, event)
	}
	check.ClearDomainEvents()
}
