package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmadist/backend/internal/domain/shared"
)

// IssueNoteStatus represents the status of an issue note
type IssueNoteStatus string

const (
	IssueNoteStatusIssued    IssueNoteStatus = "issued"
	IssueNoteStatusCancelled IssueNoteStatus = "cancelled"
)

// IssueNoteLine records one planned deduction that was applied: how
// many units left which product lot for the order.
type IssueNoteLine struct {
	ID           uuid.UUID       `gorm:"type:uuid;primary_key"`
	IssueNoteID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductLotID uuid.UUID       `gorm:"type:uuid;not null;index"`
	LotNumber    string          `gorm:"type:varchar(50);not null"`
	Quantity     int64           `gorm:"not null"`
	SupplyPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IssueNoteLine) TableName() string {
	return "issue_note_lines"
}

// IssueNote is the outbound stock document for an order. It is the
// durable record of the allocation, and the unit of reversal: a
// cancelled note returns every line quantity to its lot.
type IssueNote struct {
	shared.BaseAggregateRoot
	NoteNumber    string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status        IssueNoteStatus `gorm:"type:varchar(20);not null;default:'issued'"`
	Lines         []IssueNoteLine `gorm:"foreignKey:IssueNoteID"`
	TotalQuantity int64           `gorm:"not null;default:0"`
	DeliveryFee   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreatedByID   uuid.UUID       `gorm:"type:uuid;not null"`
	CancelledByID *uuid.UUID      `gorm:"type:uuid"`
	CancelledAt   *time.Time
	CancelReason  string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (IssueNote) TableName() string {
	return "issue_notes"
}

// NewIssueNote creates an issued note for an order
func NewIssueNote(noteNumber string, orderID, createdBy uuid.UUID) (*IssueNote, error) {
	if noteNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Note number cannot be empty")
	}
	if orderID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Order ID cannot be empty")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("ACTOR_RESOLUTION", "Issuing actor is required")
	}

	note := &IssueNote{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		NoteNumber:        noteNumber,
		OrderID:           orderID,
		Status:            IssueNoteStatusIssued,
		Lines:             make([]IssueNoteLine, 0),
		DeliveryFee:       decimal.Zero,
		CreatedByID:       createdBy,
	}

	note.AddDomainEvent(NewIssueNoteCreatedEvent(note))

	return note, nil
}

// AddLine records an applied lot deduction on the note
func (n *IssueNote) AddLine(productID, productLotID uuid.UUID, lotNumber string, quantity int64, supplyPrice decimal.Decimal) error {
	if n.Status != IssueNoteStatusIssued {
		return shared.NewDomainError("INVALID_STATE", "Cannot add lines to a cancelled note")
	}
	if quantity <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Line quantity must be positive")
	}

	n.Lines = append(n.Lines, IssueNoteLine{
		ID:           uuid.New(),
		IssueNoteID:  n.ID,
		ProductID:    productID,
		ProductLotID: productLotID,
		LotNumber:    lotNumber,
		Quantity:     quantity,
		SupplyPrice:  supplyPrice,
		CreatedAt:    time.Now(),
	})
	n.TotalQuantity += quantity
	n.UpdatedAt = time.Now()

	return nil
}

// SetDeliveryFee stamps the carrier quote on the note
func (n *IssueNote) SetDeliveryFee(fee decimal.Decimal) {
	if fee.IsNegative() {
		return
	}
	n.DeliveryFee = fee
	n.UpdatedAt = time.Now()
}

// Cancel marks the note cancelled. A note can be cancelled exactly
// once; the caller is responsible for returning the line quantities
// to their lots in the same transaction.
func (n *IssueNote) Cancel(cancelledBy uuid.UUID, reason string) error {
	if n.Status == IssueNoteStatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Issue note is already cancelled")
	}
	if cancelledBy == uuid.Nil {
		return shared.NewDomainError("ACTOR_RESOLUTION", "Cancelling actor is required")
	}

	now := time.Now()
	n.Status = IssueNoteStatusCancelled
	n.CancelledByID = &cancelledBy
	n.CancelledAt = &now
	n.CancelReason = reason
	n.UpdatedAt = now
	n.IncrementVersion()

	n.AddDomainEvent(NewIssueNoteCancelledEvent(n))

	return nil
}

// IsCancelled reports whether the note has been reversed
func (n *IssueNote) IsCancelled() bool {
	return n.Status == IssueNoteStatusCancelled
}
