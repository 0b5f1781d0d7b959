package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pharmadist/backend/internal/domain/shared"
)

// NoteCheckApprovalStatus represents the approval state of a check
type NoteCheckApprovalStatus string

const (
	NoteCheckStatusPending  NoteCheckApprovalStatus = "pending"
	NoteCheckStatusApproved NoteCheckApprovalStatus = "approved"
)

// NoteCheckLineStatus represents the state of an individual line
type NoteCheckLineStatus string

const (
	NoteCheckLineStatusPending NoteCheckLineStatus = "pending"
	NoteCheckLineStatusVoided  NoteCheckLineStatus = "voided"
)

// NoteCheckLine compares the ledger quantity of one product lot with
// a physical count. Damaged units explain part of a shortage; what
// remains is the unexplained shortage.
type NoteCheckLine struct {
	ID                  uuid.UUID           `gorm:"type:uuid;primary_key"`
	NoteCheckID         uuid.UUID           `gorm:"type:uuid;not null;index"`
	ProductLotID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	ProductID           uuid.UUID           `gorm:"type:uuid;not null;index"`
	LotNumber           string              `gorm:"type:varchar(50);not null"`
	LedgerQuantity      int64               `gorm:"not null"`
	CountedQuantity     int64               `gorm:"not null"`
	DamagedQuantity     int64               `gorm:"not null;default:0"`
	Difference          int64               `gorm:"not null;default:0"` // LedgerQuantity - CountedQuantity
	UnexplainedShortage int64               `gorm:"not null;default:0"` // Difference - DamagedQuantity
	Status              NoteCheckLineStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	Summary             string              `gorm:"type:varchar(200)"`
	CreatedAt           time.Time           `gorm:"not null"`
	UpdatedAt           time.Time           `gorm:"not null"`
}

// TableName returns the table name for GORM
func (NoteCheckLine) TableName() string {
	return "note_check_lines"
}

// HasDamage reports whether the line records damaged units
func (l *NoteCheckLine) HasDamage() bool {
	return l.DamagedQuantity > 0
}

func (l *NoteCheckLine) recalculate() {
	l.Difference = l.LedgerQuantity - l.CountedQuantity
	l.UnexplainedShortage = l.Difference - l.DamagedQuantity
	l.Summary = summarizeLine(l)
	l.UpdatedAt = time.Now()
}

func summarizeLine(l *NoteCheckLine) string {
	switch {
	case l.Difference < 0:
		return fmt.Sprintf("surplus of %d units", -l.Difference)
	case l.Difference == 0:
		return "counted quantity matches ledger"
	case l.UnexplainedShortage == 0:
		return fmt.Sprintf("shortage of %d units, fully explained by damage", l.Difference)
	default:
		return fmt.Sprintf("shortage of %d units, %d unexplained", l.Difference, l.UnexplainedShortage)
	}
}

// NoteCheck is a stock reconciliation session for one storage room.
// While pending, counts may be corrected; approval overwrites the
// ledger of every counted lot with the counted quantity.
type NoteCheck struct {
	shared.BaseAggregateRoot
	CheckNumber   string                  `gorm:"type:varchar(50);not null;uniqueIndex"`
	StorageRoomID uuid.UUID               `gorm:"type:uuid;not null;index"`
	Reason        string                  `gorm:"type:varchar(500)"`
	Status        NoteCheckApprovalStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	Lines         []NoteCheckLine         `gorm:"foreignKey:NoteCheckID"`
	CreatedByID   uuid.UUID               `gorm:"type:uuid;not null"`
	ApprovedByID  *uuid.UUID              `gorm:"type:uuid"`
	ApprovedAt    *time.Time
	ResultSummary string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (NoteCheck) TableName() string {
	return "note_checks"
}

// NewNoteCheck creates a pending reconciliation session
func NewNoteCheck(checkNumber string, storageRoomID uuid.UUID, reason string, createdBy uuid.UUID) (*NoteCheck, error) {
	if checkNumber == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Check number cannot be empty")
	}
	if storageRoomID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Storage room ID cannot be empty")
	}
	if createdBy == uuid.Nil {
		return nil, shared.NewDomainError("ACTOR_RESOLUTION", "Creating actor is required")
	}

	check := &NoteCheck{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CheckNumber:       checkNumber,
		StorageRoomID:     storageRoomID,
		Reason:            reason,
		Status:            NoteCheckStatusPending,
		Lines:             make([]NoteCheckLine, 0),
		CreatedByID:       createdBy,
	}

	check.AddDomainEvent(NewNoteCheckCreatedEvent(check))

	return check, nil
}

// AddLine records a physical count against a product lot. The ledger
// quantity is snapshotted from the lot at counting time.
func (c *NoteCheck) AddLine(lot *ProductLot, counted, damaged int64) (*NoteCheckLine, error) {
	if c.Status != NoteCheckStatusPending {
		return nil, shared.NewDomainError("INVALID_STATE", "Check has already been approved")
	}
	if lot == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product lot is required")
	}
	if counted < 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Counted quantity cannot be negative")
	}
	if damaged < 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Damaged quantity cannot be negative")
	}
	for _, line := range c.Lines {
		if line.ProductLotID == lot.ID {
			return nil, shared.NewDomainError("ALREADY_EXISTS", "Product lot is already counted on this check")
		}
	}

	now := time.Now()
	line := NoteCheckLine{
		ID:              uuid.New(),
		NoteCheckID:     c.ID,
		ProductLotID:    lot.ID,
		ProductID:       lot.ProductID,
		LotNumber:       lot.LotNumber,
		LedgerQuantity:  lot.Quantity,
		CountedQuantity: counted,
		DamagedQuantity: damaged,
		Status:          NoteCheckLineStatusPending,
		CreatedAt:       now,
	}
	line.recalculate()

	c.Lines = append(c.Lines, line)
	c.UpdatedAt = now

	return &c.Lines[len(c.Lines)-1], nil
}

// UpdateLine corrects the counted and damaged quantities of a line.
// Allowed only while the check is pending.
func (c *NoteCheck) UpdateLine(lineID uuid.UUID, counted, damaged int64) error {
	if c.Status != NoteCheckStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Check has already been approved")
	}
	if counted < 0 || damaged < 0 {
		return shared.NewDomainError("INVALID_INPUT", "Quantities cannot be negative")
	}

	for idx := range c.Lines {
		if c.Lines[idx].ID == lineID {
			c.Lines[idx].CountedQuantity = counted
			c.Lines[idx].DamagedQuantity = damaged
			c.Lines[idx].recalculate()
			c.UpdatedAt = time.Now()
			return nil
		}
	}

	return shared.NewDomainError("NOT_FOUND", "Check line not found")
}

// Approve finalizes the check. A check is approved exactly once; the
// caller overwrites each counted lot's ledger with the counted
// quantity in the same transaction.
func (c *NoteCheck) Approve(approvedBy uuid.UUID) error {
	if c.Status == NoteCheckStatusApproved {
		return shared.NewDomainError("INVALID_STATE", "Check has already been approved")
	}
	if approvedBy == uuid.Nil {
		return shared.NewDomainError("ACTOR_RESOLUTION", "Approving actor is required")
	}
	if len(c.Lines) == 0 {
		return shared.NewDomainError("INVALID_STATE", "Cannot approve a check without counted lines")
	}

	now := time.Now()
	c.Status = NoteCheckStatusApproved
	c.ApprovedByID = &approvedBy
	c.ApprovedAt = &now
	c.ResultSummary = c.summarize()
	c.UpdatedAt = now
	c.IncrementVersion()

	c.AddDomainEvent(NewNoteCheckApprovedEvent(c))

	return nil
}

// VoidLine voids an error line, writing off its damaged units. Only
// lines that record damage can be voided, and only once.
func (c *NoteCheck) VoidLine(lineID uuid.UUID) error {
	for idx := range c.Lines {
		if c.Lines[idx].ID != lineID {
			continue
		}
		if !c.Lines[idx].HasDamage() {
			return shared.NewDomainError("INVALID_STATE", "Only lines with damaged units can be voided")
		}
		if c.Lines[idx].Status == NoteCheckLineStatusVoided {
			return shared.NewDomainError("INVALID_STATE", "Check line is already voided")
		}
		c.Lines[idx].Status = NoteCheckLineStatusVoided
		c.Lines[idx].UpdatedAt = time.Now()
		c.UpdatedAt = time.Now()
		c.IncrementVersion()
		return nil
	}
	return shared.NewDomainError("NOT_FOUND", "Check line not found")
}

// ErrorLines returns the lines recording damaged units
func (c *NoteCheck) ErrorLines() []NoteCheckLine {
	out := make([]NoteCheckLine, 0)
	for _, line := range c.Lines {
		if line.HasDamage() {
			out = append(out, line)
		}
	}
	return out
}

// TotalDifference sums ledger minus counted across all lines
func (c *NoteCheck) TotalDifference() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.Difference
	}
	return total
}

// TotalUnexplained sums the unexplained shortages across all lines
func (c *NoteCheck) TotalUnexplained() int64 {
	var total int64
	for _, line := range c.Lines {
		total += line.UnexplainedShortage
	}
	return total
}

func (c *NoteCheck) summarize() string {
	shortages, surpluses, matches := 0, 0, 0
	for _, line := range c.Lines {
		switch {
		case line.Difference > 0:
			shortages++
		case line.Difference < 0:
			surpluses++
		default:
			matches++
		}
	}
	return fmt.Sprintf("%d lines counted: %d matched, %d short, %d over; net difference %d, unexplained %d",
		len(c.Lines), matches, shortages, surpluses, c.TotalDifference(), c.TotalUnexplained())
}
