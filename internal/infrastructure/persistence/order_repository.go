package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pharmadist/backend/internal/domain/order"
	"github.com/pharmadist/backend/internal/domain/shared"
)

// orderSortFields contains allowed sort fields for orders
var orderSortFields = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"order_number": true,
	"status":       true,
	"total_amount": true,
}

// GormOrderRepository implements order.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

var _ order.OrderRepository = (*GormOrderRepository)(nil)

// FindByID finds an order by ID, lines included
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).Preload("Lines").First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByOrderNumber finds an order by its document number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).Preload("Lines").
		First(&o, "order_number = ?", orderNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindAll finds orders matching the filter
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]order.Order, error) {
	var orders []order.Order
	query := r.db.WithContext(ctx).Model(&order.Order{}).Preload("Lines")
	query = r.applyFilter(query, filter)
	query = applySort(query, filter, orderSortFields, "created_at")
	query = applyPagination(query, filter)

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindByStatus finds orders in a given status
func (r *GormOrderRepository) FindByStatus(ctx context.Context, status order.OrderStatus, filter shared.Filter) ([]order.Order, error) {
	var orders []order.Order
	query := r.db.WithContext(ctx).Model(&order.Order{}).Preload("Lines").
		Where("status = ?", status)
	query = applySort(query, filter, orderSortFields, "created_at")
	query = applyPagination(query, filter)

	if err := query.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save persists the order and its lines in one transaction
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Save(o).Error; err != nil {
			return err
		}
		return saveOrderLines(tx, o)
	})
}

// SaveWithLock saves the order only if nobody else has written it
// since it was loaded. The aggregate increments its version when it
// mutates, so the stored row must still hold the previous version.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		o.UpdatedAt = time.Now()

		result := tx.Model(&order.Order{}).
			Where("id = ? AND version = ?", o.ID, o.Version-1).
			Updates(map[string]interface{}{
				"status":          o.Status,
				"previous_status": o.PreviousStatus,
				"total_amount":    o.TotalAmount,
				"confirmed_by_id": o.ConfirmedByID,
				"assignee_id":     o.AssigneeID,
				"remark":          o.Remark,
				"confirmed_at":    o.ConfirmedAt,
				"shipped_at":      o.ShippedAt,
				"completed_at":    o.CompletedAt,
				"cancelled_at":    o.CancelledAt,
				"cancel_reason":   o.CancelReason,
				"version":         o.Version,
				"updated_at":      o.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		return saveOrderLines(tx, o)
	})
}

// Count counts orders matching the filter
func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&order.Order{})
	query = r.applyFilter(query, filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// GenerateOrderNumber produces the next order document number.
// Format: SO-YYYYMMDD-NNNN, the counter resets each day.
func (r *GormOrderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	prefix := fmt.Sprintf("SO-%s-", time.Now().Format("20060102"))
	return nextDocumentNumber(r.db.WithContext(ctx).Model(&order.Order{}), "order_number", prefix)
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("order_number ILIKE ? OR customer_name ILIKE ?", pattern, pattern)
	}
	if status, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", status)
	}
	if customerID, ok := filter.Filters["customer_id"]; ok {
		query = query.Where("customer_id = ?", customerID)
	}
	return query
}

// saveOrderLines reconciles the stored lines with the aggregate:
// lines no longer present are deleted, the rest are upserted.
func saveOrderLines(tx *gorm.DB, o *order.Order) error {
	lineIDs := make([]uuid.UUID, len(o.Lines))
	for i := range o.Lines {
		lineIDs[i] = o.Lines[i].ID
	}

	if len(lineIDs) > 0 {
		if err := tx.Where("order_id = ? AND id NOT IN ?", o.ID, lineIDs).
			Delete(&order.OrderLine{}).Error; err != nil {
			return err
		}
	} else {
		if err := tx.Where("order_id = ?", o.ID).Delete(&order.OrderLine{}).Error; err != nil {
			return err
		}
	}

	for i := range o.Lines {
		if err := tx.Save(&o.Lines[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

// nextDocumentNumber scans the highest existing number with the given
// prefix and increments its counter suffix.
func nextDocumentNumber(query *gorm.DB, column, prefix string) (string, error) {
	var numbers []string
	err := query.
		Where(fmt.Sprintf("%s LIKE ?", column), prefix+"%").
		Order(fmt.Sprintf("%s DESC", column)).
		Limit(1).
		Pluck(column, &numbers).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	var next int64 = 1
	if len(numbers) > 0 && numbers[0] != "" {
		suffix := strings.TrimPrefix(numbers[0], prefix)
		var num int64
		if _, parseErr := fmt.Sscanf(suffix, "%d", &num); parseErr == nil {
			next = num + 1
		}
	}
	return fmt.Sprintf("%s%04d", prefix, next), nil
}
