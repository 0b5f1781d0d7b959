package catalog

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmadist/backend/internal/domain/shared"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
)

// Product represents a sellable pharmaceutical SKU.
// Pricing lives here; physical stock lives in the lot ledger.
type Product struct {
	shared.BaseAggregateRoot
	Code             string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name             string          `gorm:"type:varchar(200);not null"`
	Manufacturer     string          `gorm:"type:varchar(200)"`
	Unit             string          `gorm:"type:varchar(20);not null"` // e.g. "box", "bottle"
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	VATRate          decimal.Decimal `gorm:"type:decimal(6,4);not null;default:0"` // e.g. 0.10 for 10%
	PrescriptionOnly bool            `gorm:"not null;default:false"`
	Status           ProductStatus   `gorm:"type:varchar(20);not null;default:'active'"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a new product
func NewProduct(code, name, unit string, unitPrice, vatRate decimal.Decimal) (*Product, error) {
	if err := validateProductCode(code); err != nil {
		return nil, err
	}
	if err := validateProductName(name); err != nil {
		return nil, err
	}
	if strings.TrimSpace(unit) == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product unit is required")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unit price cannot be negative")
	}
	if vatRate.IsNegative() || vatRate.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_INPUT", "VAT rate must be between 0 and 1")
	}

	product := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              strings.ToUpper(strings.TrimSpace(code)),
		Name:              strings.TrimSpace(name),
		Unit:              unit,
		UnitPrice:         unitPrice,
		VATRate:           vatRate,
		Status:            ProductStatusActive,
	}

	product.AddDomainEvent(NewProductCreatedEvent(product))

	return product, nil
}

// UpdatePricing changes the unit price and VAT rate
func (p *Product) UpdatePricing(unitPrice, vatRate decimal.Decimal) error {
	if unitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Unit price cannot be negative")
	}
	if vatRate.IsNegative() || vatRate.GreaterThan(decimal.NewFromInt(1)) {
		return shared.NewDomainError("INVALID_INPUT", "VAT rate must be between 0 and 1")
	}

	p.UnitPrice = unitPrice
	p.VATRate = vatRate
	p.UpdatedAt = time.Now()
	p.IncrementVersion()

	p.AddDomainEvent(NewProductUpdatedEvent(p))

	return nil
}

// GrossUnitPrice returns the unit price including VAT
func (p *Product) GrossUnitPrice() decimal.Decimal {
	return p.UnitPrice.Mul(decimal.NewFromInt(1).Add(p.VATRate))
}

// IsSellable reports whether the product may appear on new orders
func (p *Product) IsSellable() bool {
	return p.Status == ProductStatusActive
}

// Deactivate removes the product from sale
func (p *Product) Deactivate() error {
	if p.Status == ProductStatusInactive {
		return shared.NewDomainError("INVALID_STATE", "Product is already inactive")
	}
	p.Status = ProductStatusInactive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

// Activate returns the product to sale
func (p *Product) Activate() error {
	if p.Status == ProductStatusActive {
		return shared.NewDomainError("INVALID_STATE", "Product is already active")
	}
	p.Status = ProductStatusActive
	p.UpdatedAt = time.Now()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

func validateProductCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return shared.NewDomainError("INVALID_INPUT", "Product code is required")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_INPUT", "Product code cannot exceed 50 characters")
	}
	return nil
}

func validateProductName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_INPUT", "Product name is required")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_INPUT", "Product name cannot exceed 200 characters")
	}
	return nil
}
