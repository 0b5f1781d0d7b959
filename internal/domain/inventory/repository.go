package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pharmadist/backend/internal/domain/shared"
)

// LotRepository defines the interface for lot header persistence
type LotRepository interface {
	// FindByID finds a lot by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Lot, error)

	// FindByNumber finds a lot by its lot number
	FindByNumber(ctx context.Context, lotNumber string) (*Lot, error)

	// Save creates or updates a lot
	Save(ctx context.Context, lot *Lot) error
}

// ProductLotRepository defines the interface for ledger persistence.
// All quantity writes go through SaveWithLock so concurrent mutations
// of the same lot surface as CONCURRENCY_CONFLICT.
type ProductLotRepository interface {
	// FindByID finds a product lot by ID
	FindByID(ctx context.Context, id uuid.UUID) (*ProductLot, error)

	// FindByIDs finds product lots by ID
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*ProductLot, error)

	// FindSellableByProducts loads the sellable lots for each product,
	// keyed by product ID
	FindSellableByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]ProductLot, error)

	// FindByStorageRoom finds product lots in a storage room
	FindByStorageRoom(ctx context.Context, storageRoomID uuid.UUID, filter shared.Filter) ([]ProductLot, error)

	// FindExpiringBefore finds sellable lots expiring before the deadline
	FindExpiringBefore(ctx context.Context, deadline time.Time, filter shared.Filter) ([]ProductLot, error)

	// Save creates or updates a product lot without a version check
	Save(ctx context.Context, lot *ProductLot) error

	// SaveWithLock updates a product lot only if the stored version
	// matches; returns shared.ErrConcurrencyConflict otherwise
	SaveWithLock(ctx context.Context, lot *ProductLot) error

	// SaveAllWithLock applies SaveWithLock to every lot inside one
	// transaction; any conflict rolls back all of them
	SaveAllWithLock(ctx context.Context, lots []*ProductLot) error
}

// IssueNoteRepository defines the interface for issue note persistence
type IssueNoteRepository interface {
	// FindByID finds an issue note by ID, lines included
	FindByID(ctx context.Context, id uuid.UUID) (*IssueNote, error)

	// FindByOrderID finds the issue notes raised for an order
	FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]IssueNote, error)

	// FindAll finds issue notes matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]IssueNote, error)

	// Save persists the note and its lines in one transaction
	Save(ctx context.Context, note *IssueNote) error

	// SaveWithLots persists the note and the given product lots in one
	// transaction, version-checking every lot
	SaveWithLots(ctx context.Context, note *IssueNote, lots []*ProductLot) error

	// Count counts issue notes matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// GenerateNoteNumber produces the next issue note document number
	GenerateNoteNumber(ctx context.Context) (string, error)
}

// NoteCheckRepository defines the interface for reconciliation persistence
type NoteCheckRepository interface {
	// FindByID finds a note check by ID, lines included
	FindByID(ctx context.Context, id uuid.UUID) (*NoteCheck, error)

	// FindAll finds note checks matching the filter
	FindAll(ctx context.Context, filter shared.Filter) ([]NoteCheck, error)

	// FindErrorLines finds lines with damaged quantities across checks
	FindErrorLines(ctx context.Context, filter shared.Filter) ([]NoteCheckLine, error)

	// Save persists the check and its lines in one transaction
	Save(ctx context.Context, check *NoteCheck) error

	// SaveWithLots persists the check and the given product lots in one
	// transaction, version-checking every lot
	SaveWithLots(ctx context.Context, check *NoteCheck, lots []*ProductLot) error

	// Count counts note checks matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// GenerateCheckNumber produces the next check document number
	GenerateCheckNumber(ctx context.Context) (string, error)
}
