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

// issueNoteSortFields contains allowed sort fields for issue notes
var issueNoteSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"note_number": true,
	"status":      true,
}

// GormIssueNoteRepository implements inventory.IssueNoteRepository
// using GORM
type GormIssueNoteRepository struct {
	db *gorm.DB
}

// NewGormIssueNoteRepository creates a new GormIssueNoteRepository
func NewGormIssueNoteRepository(db *gorm.DB) *GormIssueNoteRepository {
	return &GormIssueNoteRepository{db: db}
}

var _ inventory.IssueNoteRepository = (*GormIssueNoteRepository)(nil)

// FindByID finds an issue note by ID, lines included
func (r *GormIssueNoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.IssueNote, error) {
	var note inventory.IssueNote
	if err := r.db.WithContext(ctx).Preload("Lines").
		First(&note, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

// FindByOrderID finds the issue notes raised for an order
func (r *GormIssueNoteRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]inventory.IssueNote, error) {
	var notes []inventory.IssueNote
	if err := r.db.WithContext(ctx).Preload("Lines").
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// FindAll finds issue notes matching the filter
func (r *GormIssueNoteRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.IssueNote, error) {
	var notes []inventory.IssueNote
	query := r.db.WithContext(ctx).Model(&inventory.IssueNote{}).Preload("Lines")
	query = r.applyFilter(query, filter)
	query = applySort(query, filter, issueNoteSortFields, "created_at")
	query = applyPagination(query, filter)

	if err := query.Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// Save persists the note and its lines in one transaction
func (r *GormIssueNoteRepository) Save(ctx context.Context, note *inventory.IssueNote) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveIssueNote(tx, note)
	})
}

// SaveWithLots persists the note and the given product lots in one
// transaction. Every lot write is version-checked; a stale lot aborts
// the whole save so the note and the ledger never diverge.
func (r *GormIssueNoteRepository) SaveWithLots(ctx context.Context, note *inventory.IssueNote, lots []*inventory.ProductLot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveIssueNote(tx, note); err != nil {
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

// Count counts issue notes matching the filter
func (r *GormIssueNoteRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&inventory.IssueNote{})
	query = r.applyFilter(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GenerateNoteNumber produces the next issue note document number.
// Format: IN-YYYYMMDD-NNNN, the counter resets each day.
func (r *GormIssueNoteRepository) GenerateNoteNumber(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("IN-%s-", time.Now().Format("20060102"))
	return nextDocumentNumber(r.db.WithContext(ctx).Model(&inventory.IssueNote{}), "note_number", prefix)
}

func (r *GormIssueNoteRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("note_number ILIKE ?", "%"+filter.Search+"%")
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if orderID, ok := filter.Filters["order_id"]; ok {
		query = query.Where("order_id = ?", orderID)
	}
	return query
}

func saveIssueNote(tx *gorm.DB, note *inventory.IssueNote) error {
	if err := tx.Omit("Lines").Save(note).Error; err != nil {
		return err
	}
	for i := range note.Lines {
		if err := tx.Save(&note.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}
