package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmadist/backend/internal/domain/inventory"
)

// ===================== Request DTOs =====================

// NoteCheckLineRequest is one physical count in a check
type NoteCheckLineRequest struct {
	ProductLotID    uuid.UUID `json:"product_lot_id" binding:"required"`
	CountedQuantity int64     `json:"counted_quantity" binding:"gte=0"`
	DamagedQuantity int64     `json:"damaged_quantity" binding:"gte=0"`
}

// CreateNoteCheckRequest opens a reconciliation session
type CreateNoteCheckRequest struct {
	StorageRoomID uuid.UUID              `json:"storage_room_id" binding:"required"`
	Reason        string                 `json:"reason" binding:"max=500"`
	Lines         []NoteCheckLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// UpdateNoteCheckLineRequest corrects a counted line
type UpdateNoteCheckLineRequest struct {
	LineID          uuid.UUID `json:"line_id" binding:"required"`
	CountedQuantity int64     `json:"counted_quantity" binding:"gte=0"`
	DamagedQuantity int64     `json:"damaged_quantity" binding:"gte=0"`
}

// UpdateNoteCheckRequest corrects counts while the check is pending
type UpdateNoteCheckRequest struct {
	Lines []UpdateNoteCheckLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ReceiveStockRequest books new stock into the ledger
type ReceiveStockRequest struct {
	ProductID     uuid.UUID       `json:"product_id" binding:"required"`
	LotNumber     string          `json:"lot_number" binding:"required"`
	Supplier      string          `json:"supplier"`
	Quantity      int64           `json:"quantity" binding:"required,gt=0"`
	ExpiryDate    time.Time       `json:"expiry_date" binding:"required"`
	SupplyPrice   decimal.Decimal `json:"supply_price"`
	StorageRoomID uuid.UUID       `json:"storage_room_id" binding:"required"`
}

// ListFilter represents filter options for inventory queries
type ListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Search   string `form:"search"`
}

// ===================== Response DTOs =====================

// NoteCheckLineResponse is one counted line
type NoteCheckLineResponse struct {
	ID                  uuid.UUID `json:"id"`
	ProductLotID        uuid.UUID `json:"product_lot_id"`
	ProductID           uuid.UUID `json:"product_id"`
	LotNumber           string    `json:"lot_number"`
	LedgerQuantity      int64     `json:"ledger_quantity"`
	CountedQuantity     int64     `json:"counted_quantity"`
	DamagedQuantity     int64     `json:"damaged_quantity"`
	Difference          int64     `json:"difference"`
	UnexplainedShortage int64     `json:"unexplained_shortage"`
	Status              string    `json:"status"`
	Summary             string    `json:"summary"`
}

// NoteCheckResponse is the full reconciliation view
type NoteCheckResponse struct {
	ID               uuid.UUID               `json:"id"`
	CheckNumber      string                  `json:"check_number"`
	StorageRoomID    uuid.UUID               `json:"storage_room_id"`
	Reason           string                  `json:"reason,omitempty"`
	Status           string                  `json:"status"`
	Lines            []NoteCheckLineResponse `json:"lines,omitempty"`
	TotalDifference  int64                   `json:"total_difference"`
	TotalUnexplained int64                   `json:"total_unexplained"`
	ResultSummary    string                  `json:"result_summary,omitempty"`
	CreatedByID      uuid.UUID               `json:"created_by_id"`
	ApprovedByID     *uuid.UUID              `json:"approved_by_id,omitempty"`
	ApprovedAt       *time.Time              `json:"approved_at,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// ProductLotResponse is the ledger view of one product lot
type ProductLotResponse struct {
	ID            uuid.UUID       `json:"id"`
	ProductID     uuid.UUID       `json:"product_id"`
	LotID         uuid.UUID       `json:"lot_id"`
	LotNumber     string          `json:"lot_number"`
	Quantity      int64           `json:"quantity"`
	ExpiryDate    time.Time       `json:"expiry_date"`
	SupplyPrice   decimal.Decimal `json:"supply_price"`
	StorageRoomID uuid.UUID       `json:"storage_room_id"`
	Status        string          `json:"status"`
	Version       int             `json:"version"`
}

// ToNoteCheckLineResponse converts a domain check line
func ToNoteCheckLineResponse(l *inventory.NoteCheckLine) NoteCheckLineResponse {
	return NoteCheckLineResponse{
		ID:                  l.ID,
		ProductLotID:        l.ProductLotID,
		ProductID:           l.ProductID,
		LotNumber:           l.LotNumber,
		LedgerQuantity:      l.LedgerQuantity,
		CountedQuantity:     l.CountedQuantity,
		DamagedQuantity:     l.DamagedQuantity,
		Difference:          l.Difference,
		UnexplainedShortage: l.UnexplainedShortage,
		Status:              string(l.Status),
		Summary:             l.Summary,
	}
}

// ToNoteCheckResponse converts a domain check to the full DTO
func ToNoteCheckResponse(c *inventory.NoteCheck) NoteCheckResponse {
	resp := NoteCheckResponse{
		ID:               c.ID,
		CheckNumber:      c.CheckNumber,
		StorageRoomID:    c.StorageRoomID,
		Reason:           c.Reason,
		Status:           string(c.Status),
		TotalDifference:  c.TotalDifference(),
		TotalUnexplained: c.TotalUnexplained(),
		ResultSummary:    c.ResultSummary,
		CreatedByID:      c.CreatedByID,
		ApprovedByID:     c.ApprovedByID,
		ApprovedAt:       c.ApprovedAt,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
	for i := range c.Lines {
		resp.Lines = append(resp.Lines, ToNoteCheckLineResponse(&c.Lines[i]))
	}
	return resp
}

// ToProductLotResponse converts a domain product lot
func ToProductLotResponse(pl *inventory.ProductLot) ProductLotResponse {
	return ProductLotResponse{
		ID:            pl.ID,
		ProductID:     pl.ProductID,
		LotID:         pl.LotID,
		LotNumber:     pl.LotNumber,
		Quantity:      pl.Quantity,
		ExpiryDate:    pl.ExpiryDate,
		SupplyPrice:   pl.SupplyPrice,
		StorageRoomID: pl.StorageRoomID,
		Status:        string(pl.Status),
		Version:       pl.Version,
	}
}

// ToProductLotResponses converts a slice of product lots
func ToProductLotResponses(lots []inventory.ProductLot) []ProductLotResponse {
	out := make([]ProductLotResponse, 0, len(lots))
	for i := range lots {
		out = append(out, ToProductLotResponse(&lots[i]))
	}
	return out
}
