package order

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmadist/backend/internal/domain/shared"
)

// OrderStatus represents the status of a customer order
type OrderStatus string

const (
	OrderStatusAwaitingPayment      OrderStatus = "AWAITING_PAYMENT"
	OrderStatusAwaitingConfirmation OrderStatus = "AWAITING_CONFIRMATION"
	OrderStatusConfirmed            OrderStatus = "CONFIRMED"
	OrderStatusShipping             OrderStatus = "SHIPPING"
	OrderStatusCompleted            OrderStatus = "COMPLETED"
	OrderStatusCancelled            OrderStatus = "CANCELLED"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusAwaitingPayment, OrderStatusAwaitingConfirmation, OrderStatusConfirmed,
		OrderStatusShipping, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the status admits no further transitions
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status.
// Cancellation is reachable from every non-terminal status.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if target == OrderStatusCancelled {
		return true
	}
	switch s {
	case OrderStatusAwaitingPayment:
		return target == OrderStatusAwaitingConfirmation
	case OrderStatusAwaitingConfirmation:
		return target == OrderStatusConfirmed
	case OrderStatusConfirmed:
		return target == OrderStatusShipping
	case OrderStatusShipping:
		return target == OrderStatusCompleted
	}
	return false
}

// OrderLine represents a product line in an order
type OrderLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	ProductCode string          `gorm:"type:varchar(50);not null"`
	Quantity    int64           `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"` // net price per unit
	VATRate     decimal.Decimal `gorm:"type:decimal(6,4);not null;default:0"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Quantity * UnitPrice * (1 + VATRate)
	CreatedAt   time.Time       `gorm:"not null"`
	UpdatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderLine) TableName() string {
	return "order_lines"
}

// NewOrderLine creates a new order line
func NewOrderLine(orderID, productID uuid.UUID, productName, productCode string, quantity int64, unitPrice, vatRate decimal.Decimal) (*OrderLine, error) {
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product ID cannot be empty")
	}
	if productName == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product name cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Unit price cannot be negative")
	}

	now := time.Now()
	gross := unitPrice.Mul(decimal.NewFromInt(quantity)).Mul(decimal.NewFromInt(1).Add(vatRate))

	return &OrderLine{
		ID:          uuid.New(),
		OrderID:     orderID,
		ProductID:   productID,
		ProductName: productName,
		ProductCode: productCode,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		VATRate:     vatRate,
		Amount:      gross,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Order represents a customer order aggregate root. It tracks the
// order through payment, confirmation, shipping and completion.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber    string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	CustomerName   string          `gorm:"type:varchar(200);not null"`
	Lines          []OrderLine     `gorm:"foreignKey:OrderID"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // sum of line amounts, VAT included
	Status         OrderStatus     `gorm:"type:varchar(30);not null;index"`
	PreviousStatus OrderStatus     `gorm:"type:varchar(30)"`
	CreatedByID    uuid.UUID       `gorm:"type:uuid;not null"` // actor who placed the order
	ConfirmedByID  *uuid.UUID      `gorm:"type:uuid"`          // actor who confirmed
	AssigneeID     *uuid.UUID      `gorm:"type:uuid"`          // warehouse user responsible for fulfillment
	Remark         string          `gorm:"type:varchar(500)"`
	ConfirmedAt    *time.Time
	ShippedAt      *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
	CancelReason   string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a new order. When paymentFirst is true the order
// starts awaiting payment, otherwise it goes straight to awaiting
// confirmation.
func NewOrder(orderNumber string, customerID uuid.UUID, customerName string, createdBy uuid.UUID, paymentFirst bool) (*Order, error) {
	if orderNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Order number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Customer ID cannot be empty")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Creating actor cannot be empty")
	}

	status := OrderStatusAwaitingConfirmation
	if paymentFirst {
		status = OrderStatusAwaitingPayment
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       orderNumber,
		CustomerID:        customerID,
		CustomerName:      customerName,
		Lines:             make([]OrderLine, 0),
		TotalAmount:       decimal.Zero,
		Status:            status,
		PreviousStatus:    status,
		CreatedByID:       createdBy,
	}

	order.AddDomainEvent(NewOrderCreatedEvent(order))

	return order, nil
}

// AddLine adds a product line to the order. Allowed only before the
// order leaves its initial status.
func (o *Order) AddLine(productID uuid.UUID, productName, productCode string, quantity int64, unitPrice, vatRate decimal.Decimal) (*OrderLine, error) {
	if o.Status != OrderStatusAwaitingPayment && o.Status != OrderStatusAwaitingConfirmation {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add lines to an order past confirmation")
	}

	for _, line := range o.Lines {
		if line.ProductID == productID {
			return nil, shared.NewDomainError("INVALID_INPUT", "Product already present on the order")
		}
	}

	line, err := NewOrderLine(o.ID, productID, productName, productCode, quantity, unitPrice, vatRate)
	if err != nil {
		return nil, err
	}

	o.Lines = append(o.Lines, *line)
	o.recalculateTotal()
	o.UpdatedAt = time.Now()

	return line, nil
}

// MarkPaid moves a payment-first order to awaiting confirmation
func (o *Order) MarkPaid() error {
	if !o.Status.CanTransitionTo(OrderStatusAwaitingConfirmation) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot record payment for order in %s status", o.Status))
	}
	o.transitionTo(OrderStatusAwaitingConfirmation)
	return nil
}

// Confirm confirms the order and hands it to a warehouse assignee
func (o *Order) Confirm(confirmedBy, assignee uuid.UUID) error {
	if !o.Status.CanTransitionTo(OrderStatusConfirmed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot confirm order in %s status", o.Status))
	}
	if len(o.Lines) == 0 {
		return shared.NewDomainError("INVALID_STATE", "Cannot confirm order without lines")
	}
	if confirmedBy == uuid.Nil || assignee == uuid.Nil {
		return shared.NewDomainError("ACTOR_RESOLUTION", "Confirming actor and assignee are required")
	}

	now := time.Now()
	o.transitionTo(OrderStatusConfirmed)
	o.ConfirmedByID = &confirmedBy
	o.AssigneeID = &assignee
	o.ConfirmedAt = &now

	o.AddDomainEvent(NewOrderConfirmedEvent(o))

	return nil
}

// StartShipping marks the order as handed to the carrier
func (o *Order) StartShipping() error {
	if !o.Status.CanTransitionTo(OrderStatusShipping) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot ship order in %s status", o.Status))
	}
	now := time.Now()
	o.transitionTo(OrderStatusShipping)
	o.ShippedAt = &now
	o.AddDomainEvent(NewOrderStatusChangedEvent(o))
	return nil
}

// Complete marks the order as delivered
func (o *Order) Complete() error {
	if !o.Status.CanTransitionTo(OrderStatusCompleted) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete order in %s status", o.Status))
	}
	now := time.Now()
	o.transitionTo(OrderStatusCompleted)
	o.CompletedAt = &now
	o.AddDomainEvent(NewOrderStatusChangedEvent(o))
	return nil
}

// Cancel cancels the order with a reason
func (o *Order) Cancel(reason string) error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel order in %s status", o.Status))
	}
	now := time.Now()
	o.transitionTo(OrderStatusCancelled)
	o.CancelledAt = &now
	o.CancelReason = reason
	o.AddDomainEvent(NewOrderStatusChangedEvent(o))
	return nil
}

// SetStatus performs a guarded transition to an arbitrary target status
func (o *Order) SetStatus(target OrderStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown order status %q", target))
	}
	switch target {
	case OrderStatusAwaitingConfirmation:
		return o.MarkPaid()
	case OrderStatusShipping:
		return o.StartShipping()
	case OrderStatusCompleted:
		return o.Complete()
	case OrderStatusCancelled:
		return o.Cancel("")
	default:
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot transition from %s to %s", o.Status, target))
	}
}

// SetRemark sets the order remark
func (o *Order) SetRemark(remark string) {
	o.Remark = remark
	o.UpdatedAt = time.Now()
}

func (o *Order) transitionTo(target OrderStatus) {
	o.PreviousStatus = o.Status
	o.Status = target
	o.UpdatedAt = time.Now()
	o.IncrementVersion()
}

func (o *Order) recalculateTotal() {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Amount)
	}
	o.TotalAmount = total
}
