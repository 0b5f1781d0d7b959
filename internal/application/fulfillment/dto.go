package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmadist/backend/internal/domain/inventory"
)

// ===================== Request DTOs =====================

// CreateIssueNoteRequest asks to allocate and issue stock for an order
type CreateIssueNoteRequest struct {
	OrderID uuid.UUID `json:"order_id" binding:"required"`
}

// CancelIssueNoteRequest reverses a previously issued note
type CancelIssueNoteRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ListFilter represents filter options for the issue note list
type ListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Search   string `form:"search"`
}

// ===================== Response DTOs =====================

// IssueNoteLineResponse is one issued lot deduction
type IssueNoteLineResponse struct {
	ID           uuid.UUID       `json:"id"`
	ProductID    uuid.UUID       `json:"product_id"`
	ProductLotID uuid.UUID       `json:"product_lot_id"`
	LotNumber    string          `json:"lot_number"`
	Quantity     int64           `json:"quantity"`
	SupplyPrice  decimal.Decimal `json:"supply_price"`
}

// IssueNoteResponse is the full issue note view
type IssueNoteResponse struct {
	ID            uuid.UUID               `json:"id"`
	NoteNumber    string                  `json:"note_number"`
	OrderID       uuid.UUID               `json:"order_id"`
	Status        string                  `json:"status"`
	TotalQuantity int64                   `json:"total_quantity"`
	DeliveryFee   decimal.Decimal         `json:"delivery_fee"`
	Lines         []IssueNoteLineResponse `json:"lines,omitempty"`
	CreatedByID   uuid.UUID               `json:"created_by_id"`
	CancelledByID *uuid.UUID              `json:"cancelled_by_id,omitempty"`
	CancelledAt   *time.Time              `json:"cancelled_at,omitempty"`
	CancelReason  string                  `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// IssueNoteListResponse is the compact issue note view for lists
type IssueNoteListResponse struct {
	ID            uuid.UUID `json:"id"`
	NoteNumber    string    `json:"note_number"`
	OrderID       uuid.UUID `json:"order_id"`
	Status        string    `json:"status"`
	TotalQuantity int64     `json:"total_quantity"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToIssueNoteResponse converts a domain issue note to the full DTO
func ToIssueNoteResponse(n *inventory.IssueNote) IssueNoteResponse {
	resp := IssueNoteResponse{
		ID:            n.ID,
		NoteNumber:    n.NoteNumber,
		OrderID:       n.OrderID,
		Status:        string(n.Status),
		TotalQuantity: n.TotalQuantity,
		DeliveryFee:   n.DeliveryFee,
		CreatedByID:   n.CreatedByID,
		CancelledByID: n.CancelledByID,
		CancelledAt:   n.CancelledAt,
		CancelReason:  n.CancelReason,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
	for _, line := range n.Lines {
		resp.Lines = append(resp.Lines, IssueNoteLineResponse{
			ID:           line.ID,
			ProductID:    line.ProductID,
			ProductLotID: line.ProductLotID,
			LotNumber:    line.LotNumber,
			Quantity:     line.Quantity,
			SupplyPrice:  line.SupplyPrice,
		})
	}
	return resp
}

// ToIssueNoteListResponses converts domain issue notes to list DTOs
func ToIssueNoteListResponses(notes []inventory.IssueNote) []IssueNoteListResponse {
	out := make([]IssueNoteListResponse, 0, len(notes))
	for i := range notes {
		out = append(out, IssueNoteListResponse{
			ID:            notes[i].ID,
			NoteNumber:    notes[i].NoteNumber,
			OrderID:       notes[i].OrderID,
			Status:        string(notes[i].Status),
			TotalQuantity: notes[i].TotalQuantity,
			CreatedAt:     notes[i].CreatedAt,
		})
	}
	return out
}
