package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmadist/backend/internal/domain/shared"
)

// Lot is the batch header shared by every product received in the
// same delivery batch
type Lot struct {
	shared.BaseEntity
	LotNumber  string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	ReceivedAt time.Time `gorm:"not null"`
	Supplier   string    `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (Lot) TableName() string {
	return "lots"
}

// NewLot creates a new lot header
func NewLot(lotNumber, supplier string, receivedAt time.Time) (*Lot, error) {
	lotNumber = strings.TrimSpace(lotNumber)
	if lotNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Lot number is required")
	}
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}
	return &Lot{
		BaseEntity: shared.NewBaseEntity(),
		LotNumber:  lotNumber,
		ReceivedAt: receivedAt,
		Supplier:   supplier,
	}, nil
}

// ProductLotStatus represents the sellability of a product lot
type ProductLotStatus string

const (
	ProductLotStatusSellable  ProductLotStatus = "sellable"
	ProductLotStatusWithdrawn ProductLotStatus = "withdrawn"
)

// ProductLot is the unit of the stock ledger: the quantity of one
// product held from one lot. All stock movements are mutations of
// ProductLot quantities, guarded by optimistic versioning.
type ProductLot struct {
	shared.BaseAggregateRoot
	ProductID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	LotID         uuid.UUID        `gorm:"type:uuid;not null;index"`
	LotNumber     string           `gorm:"type:varchar(50);not null;index"`
	Quantity      int64            `gorm:"not null;default:0"`
	ExpiryDate    time.Time        `gorm:"not null;index"`
	SupplyPrice   decimal.Decimal  `gorm:"type:decimal(18,4);not null;default:0"`
	StorageRoomID uuid.UUID        `gorm:"type:uuid;not null;index"`
	Status        ProductLotStatus `gorm:"type:varchar(20);not null;default:'sellable'"`
}

// TableName returns the table name for GORM
func (ProductLot) TableName() string {
	return "product_lots"
}

// NewProductLot creates a new ledger entry for a product in a lot
func NewProductLot(productID, lotID uuid.UUID, lotNumber string, quantity int64, expiryDate time.Time, supplyPrice decimal.Decimal, storageRoomID uuid.UUID) (*ProductLot, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product ID cannot be empty")
	}
	if lotID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Lot ID cannot be empty")
	}
	if quantity < 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Quantity cannot be negative")
	}
	if expiryDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Expiry date is required")
	}
	if supplyPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Supply price cannot be negative")
	}

	pl := &ProductLot{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProductID:         productID,
		LotID:             lotID,
		LotNumber:         lotNumber,
		Quantity:          quantity,
		ExpiryDate:        expiryDate,
		SupplyPrice:       supplyPrice,
		StorageRoomID:     storageRoomID,
		Status:            ProductLotStatusSellable,
	}

	pl.AddDomainEvent(NewProductLotReceivedEvent(pl))

	return pl, nil
}

// IsAvailable reports whether the lot can be allocated from
func (pl *ProductLot) IsAvailable() bool {
	return pl.Status == ProductLotStatusSellable && pl.Quantity > 0
}

// IsExpired reports whether the lot is past its expiry date
func (pl *ProductLot) IsExpired(now time.Time) bool {
	return !pl.ExpiryDate.After(now)
}

// ExpiresWithin reports whether the lot expires inside the window
// starting at now
func (pl *ProductLot) ExpiresWithin(now time.Time, window time.Duration) bool {
	return pl.ExpiryDate.Before(now.Add(window))
}

// Deduct removes quantity from the ledger. The ledger never goes
// negative; requesting more than is held is an error.
func (pl *ProductLot) Deduct(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Deduction quantity must be positive")
	}
	if quantity > pl.Quantity {
		return shared.NewDomainError("INSUFFICIENT_STOCK", "Cannot deduct more than the held quantity")
	}
	pl.Quantity -= quantity
	pl.UpdatedAt = time.Now()
	pl.IncrementVersion()
	return nil
}

// Add returns quantity to the ledger
func (pl *ProductLot) Add(quantity int64) error {
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Added quantity must be positive")
	}
	pl.Quantity += quantity
	pl.UpdatedAt = time.Now()
	pl.IncrementVersion()
	return nil
}

// OverwriteQuantity replaces the ledger quantity with a counted
// value. Used when an approved stock check corrects the ledger.
func (pl *ProductLot) OverwriteQuantity(quantity int64) error {
	if quantity < 0 {
		return shared.NewDomainError("INVALID_INPUT", "Ledger quantity cannot be negative")
	}
	pl.Quantity = quantity
	pl.UpdatedAt = time.Now()
	pl.IncrementVersion()
	return nil
}

// MarkWithdrawn removes the lot from sale
func (pl *ProductLot) MarkWithdrawn() error {
	if pl.Status == ProductLotStatusWithdrawn {
		return shared.NewDomainError("INVALID_STATE", "Product lot is already withdrawn")
	}
	pl.Status = ProductLotStatusWithdrawn
	pl.UpdatedAt = time.Now()
	pl.IncrementVersion()
	pl.AddDomainEvent(NewProductLotWithdrawnEvent(pl))
	return nil
}
