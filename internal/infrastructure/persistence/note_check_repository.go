package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmadist/backend/internal/domain/inventory"
	"github.com/pharmadist/backend/internal/domain/shared"
)

// noteCheckSortFields contains allowed sort fields for note checks
var noteCheckSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"check_number": true,
	"status":       true,
}

// GormNoteCheckRepository implements inventory.NoteCheckRepository
// using GORM
type GormNoteCheckRepository struct {
	db *gorm.DB
}

// NewGormNoteCheckRepository creates a new GormNoteCheckRepository
func NewGormNoteCheckRepository(db *gorm.DB) *GormNoteCheckRepository {
	return &GormNoteCheckRepository{db: db}
}

var _ inventory.NoteCheckRepository = (*GormNoteCheckRepository)(nil)

// FindByID finds a note check by ID, lines included
func (r *GormNoteCheckRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.NoteCheck, error) {
	var check inventory.NoteCheck
	if err := r.db.WithContext(ctx).Preload("Lines").
		First(&check, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &check, nil
}

// FindAll finds note checks matching the filter
func (r *GormNoteCheckRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.NoteCheck, error) {
	var checks []inventory.NoteCheck
	query := r.db.WithContext(ctx).Model(&inventory.NoteCheck{}).Preload("Lines")
	query = r.applyFilter(query, filter)
	query = applySort(query, filter, noteCheckSortFields, "created_at")
	query = applyPagination(query, filter)

	if err := query.Find(&checks).Error; err != nil {
		return nil, err
	}
	return checks, nil
}

// FindErrorLines finds lines with damaged quantities across checks
func (r *GormNoteCheckRepository) FindErrorLines(ctx context.Context, filter shared.Filter) ([]inventory.NoteCheckLine, error) {
	var lines []inventory.NoteCheckLine
	query := r.db.WithContext(ctx).Model(&inventory.NoteCheckLine{}).
		Where("damaged_quantity > 0")
	if status, ok := filter.Filters["line_status"]; ok {
		query = query.Where("status = ?", status)
	}
	query = query.Order("created_at DESC")
	query = applyPagination(query, filter)

	if err := query.Find(&lines).Error; err != nil {
		return nil, err
	}
	return lines, nil
}

// Save persists the check and its lines in one transaction
func (r *GormNoteCheckRepository) Save(ctx context.Context, check *inventory.NoteCheck) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveNoteCheck(tx, check)
	})
}

// SaveWithLots persists the check and the given product lots in one
// transaction. Every lot write is version-checked; a stale lot aborts
// the whole save so an approval never half-corrects the ledger.
func (r *GormNoteCheckRepository) SaveWithLots(ctx context.Context, check *inventory.NoteCheck, lots []*inventory.ProductLot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveNoteCheck(tx, check); err != nil {
			return err
		}
		for _, lot := range lots {
			if err := saveProductLotWithLock(tx, lot); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count counts note checks matching the filter
func (r *GormNoteCheckRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&inventory.NoteCheck{})
	query = r.applyFilter(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GenerateCheckNumber produces the next check document number.
// Format: NC-YYYYMMDD-NNNN, the counter resets each day.
func (r *GormNoteCheckRepository) GenerateCheckNumber(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("NC-%s-", time.Now().Format("20060102"))
	return nextDocumentNumber(r.db.WithContext(ctx).Model(&inventory.NoteCheck{}), "check_number", prefix)
}

func (r *GormNoteCheckRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("check_number ILIKE ?", "%"+filter.Search+"%")
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if roomID, ok := filter.Filters["storage_room_id"]; ok {
		query = query.Where("storage_room_id = ?", roomID)
	}
	return query
}

// saveNoteCheck upserts the check and reconciles its lines: while the
// check is pending, counts may be corrected and lines removed.
func saveNoteCheck(tx *gorm.DB, check *inventory.NoteCheck) error {
	if err := tx.Omit("Lines").Save(check).Error; err != nil {
		return err
	}

	lineIDs := make([]uuid.UUID, len(check.Lines))
	for i := range check.Lines {
		lineIDs[i] = check.Lines[i].ID
	}

	if len(lineIDs) > 0 {
		if err := tx.Where("note_check_id = ? AND id NOT IN ?", check.ID, lineIDs).
			Delete(&inventory.NoteCheckLine{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("note_check_id = ?", check.ID).
			Delete(&inventory.NoteCheckLine{}).Error; err != nil {
			return err
		}
	}

	for i := range check.Lines {
		if err := tx.Save(&check.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
