package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/pharmadist/backend/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeProductLot = "ProductLot"
	AggregateTypeIssueNote  = "IssueNote"
	AggregateTypeNoteCheck  = "NoteCheck"
)

// Event type constants
const (
	EventTypeProductLotReceived  = "ProductLotReceived"
	EventTypeProductLotWithdrawn = "ProductLotWithdrawn"
	EventTypeIssueNoteCreated    = "IssueNoteCreated"
	EventTypeIssueNoteCancelled  = "IssueNoteCancelled"
	EventTypeNoteCheckCreated    = "NoteCheckCreated"
	EventTypeNoteCheckApproved   = "NoteCheckApproved"
)

// ProductLotReceivedEvent is published when stock enters the ledger
type ProductLotReceivedEvent struct {
	shared.BaseDomainEvent
	ProductLotID uuid.UUID `json:"product_lot_id"`
	ProductID    uuid.UUID `json:"product_id"`
	LotNumber    string    `json:"lot_number"`
	Quantity     int64     `json:"quantity"`
	ExpiryDate   time.Time `json:"expiry_date"`
}

// NewProductLotReceivedEvent creates a new ProductLotReceivedEvent
func NewProductLotReceivedEvent(pl *ProductLot) *ProductLotReceivedEvent {
	return &ProductLotReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductLotReceived, AggregateTypeProductLot, pl.ID),
		ProductLotID:    pl.ID,
		ProductID:       pl.ProductID,
		LotNumber:       pl.LotNumber,
		Quantity:        pl.Quantity,
		ExpiryDate:      pl.ExpiryDate,
	}
}

// ProductLotWithdrawnEvent is published when a lot is pulled from sale
type ProductLotWithdrawnEvent struct {
	shared.BaseDomainEvent
	ProductLotID uuid.UUID `json:"product_lot_id"`
	ProductID    uuid.UUID `json:"product_id"`
	LotNumber    string    `json:"lot_number"`
	Quantity     int64     `json:"quantity"`
}

// NewProductLotWithdrawnEvent creates a new ProductLotWithdrawnEvent
func NewProductLotWithdrawnEvent(pl *ProductLot) *ProductLotWithdrawnEvent {
	return &ProductLotWithdrawnEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductLotWithdrawn, AggregateTypeProductLot, pl.ID),
		ProductLotID:    pl.ID,
		ProductID:       pl.ProductID,
		LotNumber:       pl.LotNumber,
		Quantity:        pl.Quantity,
	}
}

// IssueNoteCreatedEvent is published when stock is issued for an order
type IssueNoteCreatedEvent struct {
	shared.BaseDomainEvent
	IssueNoteID uuid.UUID `json:"issue_note_id"`
	NoteNumber  string    `json:"note_number"`
	OrderID     uuid.UUID `json:"order_id"`
	CreatedBy   uuid.UUID `json:"created_by"`
}

// NewIssueNoteCreatedEvent creates a new IssueNoteCreatedEvent
func NewIssueNoteCreatedEvent(n *IssueNote) *IssueNoteCreatedEvent {
	return &IssueNoteCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIssueNoteCreated, AggregateTypeIssueNote, n.ID),
		IssueNoteID:     n.ID,
		NoteNumber:      n.NoteNumber,
		OrderID:         n.OrderID,
		CreatedBy:       n.CreatedByID,
	}
}

// IssueNoteCancelledEvent is published when an issue note is reversed
type IssueNoteCancelledEvent struct {
	shared.BaseDomainEvent
	IssueNoteID uuid.UUID  `json:"issue_note_id"`
	NoteNumber  string     `json:"note_number"`
	OrderID     uuid.UUID  `json:"order_id"`
	CancelledBy *uuid.UUID `json:"cancelled_by,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// NewIssueNoteCancelledEvent creates a new IssueNoteCancelledEvent
func NewIssueNoteCancelledEvent(n *IssueNote) *IssueNoteCancelledEvent {
	return &IssueNoteCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeIssueNoteCancelled, AggregateTypeIssueNote, n.ID),
		IssueNoteID:     n.ID,
		NoteNumber:      n.NoteNumber,
		OrderID:         n.OrderID,
		CancelledBy:     n.CancelledByID,
		Reason:          n.CancelReason,
	}
}

// NoteCheckCreatedEvent is published when a reconciliation session opens
type NoteCheckCreatedEvent struct {
	shared.BaseDomainEvent
	NoteCheckID   uuid.UUID `json:"note_check_id"`
	CheckNumber   string    `json:"check_number"`
	StorageRoomID uuid.UUID `json:"storage_room_id"`
	CreatedBy     uuid.UUID `json:"created_by"`
}

// NewNoteCheckCreatedEvent creates a new NoteCheckCreatedEvent
func NewNoteCheckCreatedEvent(c *NoteCheck) *NoteCheckCreatedEvent {
	return &NoteCheckCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeNoteCheckCreated, AggregateTypeNoteCheck, c.ID),
		NoteCheckID:     c.ID,
		CheckNumber:     c.CheckNumber,
		StorageRoomID:   c.StorageRoomID,
		CreatedBy:       c.CreatedByID,
	}
}

// NoteCheckApprovedEvent is published when a check overwrites the ledger
type NoteCheckApprovedEvent struct {
	shared.BaseDomainEvent
	NoteCheckID     uuid.UUID  `json:"note_check_id"`
	CheckNumber     string     `json:"check_number"`
	ApprovedBy      *uuid.UUID `json:"approved_by,omitempty"`
	TotalDifference int64      `json:"total_difference"`
}

// NewNoteCheckApprovedEvent creates a new NoteCheckApprovedEvent
func NewNoteCheckApprovedEvent(c *NoteCheck) *NoteCheckApprovedEvent {
	return &NoteCheckApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeNoteCheckApproved, AggregateTypeNoteCheck, c.ID),
		NoteCheckID:     c.ID,
		CheckNumber:     c.CheckNumber,
		ApprovedBy:      c.ApprovedByID,
		TotalDifference: c.TotalDifference(),
	}
}
