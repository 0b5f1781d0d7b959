package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmadist/backend/internal/domain/inventory"
	"github.com/pharmadist/backend/internal/domain/shared"
)

// GormLotRepository implements inventory.LotRepository using GORM
type GormLotRepository struct {
	db *gorm.DB
}

// NewGormLotRepository creates a new GormLotRepository
func NewGormLotRepository(db *gorm.DB) *GormLotRepository {
	return &GormLotRepository{db: db}
}

var _ inventory.LotRepository = (*GormLotRepository)(nil)

// FindByID finds a lot header by ID
func (r *GormLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Lot, error) {
	var lot inventory.Lot
	if err := r.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// FindByNumber finds a lot header by its lot number
func (r *GormLotRepository) FindByNumber(ctx context.Context, lotNumber string) (*inventory.Lot, error) {
	var lot inventory.Lot
	if err := r.db.WithContext(ctx).
		First(&lot, "lot_number = ?", strings.TrimSpace(lotNumber)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// Save creates or updates a lot header
func (r *GormLotRepository) Save(ctx context.Context, lot *inventory.Lot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

// productLotSortFields contains allowed sort fields for product lots
var productLotSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"lot_number":  true,
	"expiry_date": true,
	"quantity":    true,
}

// GormProductLotRepository implements inventory.ProductLotRepository
// using GORM
type GormProductLotRepository struct {
	db *gorm.DB
}

// NewGormProductLotRepository creates a new GormProductLotRepository
func NewGormProductLotRepository(db *gorm.DB) *GormProductLotRepository {
	return &GormProductLotRepository{db: db}
}

var _ inventory.ProductLotRepository = (*GormProductLotRepository)(nil)

// FindByID finds a product lot by ID
func (r *GormProductLotRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.ProductLot, error) {
	var lot inventory.ProductLot
	if err := r.db.WithContext(ctx).First(&lot, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// FindByIDs finds product lots by ID
func (r *GormProductLotRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*inventory.ProductLot, error) {
	if len(ids) == 0 {
		return []*inventory.ProductLot{}, nil
	}
	var lots []*inventory.ProductLot
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// FindSellableByProducts loads the sellable lots for each product,
// keyed by product ID. Lots are ordered by expiry date so allocation
// can walk them front to back.
func (r *GormProductLotRepository) FindSellableByProducts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID][]inventory.ProductLot, error) {
	result := make(map[uuid.UUID][]inventory.ProductLot, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}

	var lots []inventory.ProductLot
	if err := r.db.WithContext(ctx).
		Where("product_id IN ? AND status = ? AND quantity > 0",
			productIDs, inventory.ProductLotStatusSellable).
		Order("expiry_date ASC, lot_number ASC").
		Find(&lots).Error; err != nil {
		return nil, err
	}

	for _, lot := range lots {
		result[lot.ProductID] = append(result[lot.ProductID], lot)
	}
	return result, nil
}

// FindByStorageRoom finds product lots in a storage room
func (r *GormProductLotRepository) FindByStorageRoom(ctx context.Context, storageRoomID uuid.UUID, filter shared.Filter) ([]inventory.ProductLot, error) {
	var lots []inventory.ProductLot
	query := r.db.WithContext(ctx).Model(&inventory.ProductLot{}).
		Where("storage_room_id = ?", storageRoomID)
	query = applySort(query, filter, productLotSortFields, "expiry_date")
	query = applyPagination(query, filter)

	if err := query.Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// FindExpiringBefore finds sellable lots expiring before the deadline
func (r *GormProductLotRepository) FindExpiringBefore(ctx context.Context, deadline time.Time, filter shared.Filter) ([]inventory.ProductLot, error) {
	var lots []inventory.ProductLot
	query := r.db.WithContext(ctx).Model(&inventory.ProductLot{}).
		Where("status = ? AND expiry_date < ?", inventory.ProductLotStatusSellable, deadline)
	query = applySort(query, filter, productLotSortFields, "expiry_date")
	query = applyPagination(query, filter)

	if err := query.Find(&lots).Error; err != nil {
		return nil, err
	}
	return lots, nil
}

// Save creates or updates a product lot without a version check
func (r *GormProductLotRepository) Save(ctx context.Context, lot *inventory.ProductLot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

// SaveWithLock updates a product lot only if the stored row still
// holds the version the aggregate was loaded with
func (r *GormProductLotRepository) SaveWithLock(ctx context.Context, lot *inventory.ProductLot) error {
	return saveProductLotWithLock(r.db.WithContext(ctx), lot)
}

// SaveAllWithLock applies SaveWithLock to every lot inside one
// transaction; any conflict rolls back all of them
func (r *GormProductLotRepository) SaveAllWithLock(ctx context.Context, lots []*inventory.ProductLot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, lot := range lots {
			if err := saveProductLotWithLock(tx, lot); err != nil {
				return err
			}
		}
		return nil
	})
}

// saveProductLotWithLock performs the version-checked update shared
// by SaveWithLock, SaveAllWithLock and the document repositories.
// The aggregate increments its version when it mutates, so the stored
// row must still hold the previous version.
func saveProductLotWithLock(tx *gorm.DB, lot *inventory.ProductLot) error {
	lot.UpdatedAt = time.Now()

	result := tx.Model(&inventory.ProductLot{}).
		Where("id = ? AND version = ?", lot.ID, lot.Version-1).
		Updates(map[string]interface{}{
			"quantity":   lot.Quantity,
			"status":     lot.Status,
			"version":    lot.Version,
			"updated_at": lot.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}
