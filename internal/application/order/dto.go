package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pharmadist/backend/internal/domain/order"
)

// ===================== Request DTOs =====================

// CheckoutLineRequest is one product line of a checkout
type CheckoutLineRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int64     `json:"quantity" binding:"required,gt=0"`
}

// CheckoutRequest represents a request to place an order
type CheckoutRequest struct {
	CustomerID     uuid.UUID             `json:"customer_id" binding:"required"`
	CustomerName   string                `json:"customer_name" binding:"required"`
	PaymentFirst   bool                  `json:"payment_first"`
	Remark         string                `json:"remark"`
	Lines          []CheckoutLineRequest `json:"lines" binding:"required,min=1,dive"`
	IdempotencyKey string                `json:"-"`
}

// SetStatusRequest represents a request to transition an order
type SetStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// ListFilter represents filter options for the order list
type ListFilter struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir"`
	Search   string `form:"search"`
	Status   string `form:"status"`
}

// ===================== Response DTOs =====================

// OrderLineResponse is one order line in a response
type OrderLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductCode string          `json:"product_code"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	Amount      decimal.Decimal `json:"amount"`
}

// OrderResponse is the full order view
type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	CustomerName  string              `json:"customer_name"`
	Status        string              `json:"status"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	Lines         []OrderLineResponse `json:"lines,omitempty"`
	CreatedByID   uuid.UUID           `json:"created_by_id"`
	ConfirmedByID *uuid.UUID          `json:"confirmed_by_id,omitempty"`
	AssigneeID    *uuid.UUID          `json:"assignee_id,omitempty"`
	Remark        string              `json:"remark,omitempty"`
	ConfirmedAt   *time.Time          `json:"confirmed_at,omitempty"`
	ShippedAt     *time.Time          `json:"shipped_at,omitempty"`
	CompletedAt   *time.Time          `json:"completed_at,omitempty"`
	CancelledAt   *time.Time          `json:"cancelled_at,omitempty"`
	CancelReason  string              `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Version       int                 `json:"version"`
}

// OrderListResponse is the compact order view for lists
type OrderListResponse struct {
	ID           uuid.UUID       `json:"id"`
	OrderNumber  string          `json:"order_number"`
	CustomerName string          `json:"customer_name"`
	Status       string          `json:"status"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ToOrderResponse converts a domain order to the full response DTO
func ToOrderResponse(o *order.Order) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		CustomerID:    o.CustomerID,
		CustomerName:  o.CustomerName,
		Status:        string(o.Status),
		TotalAmount:   o.TotalAmount,
		CreatedByID:   o.CreatedByID,
		ConfirmedByID: o.ConfirmedByID,
		AssigneeID:    o.AssigneeID,
		Remark:        o.Remark,
		ConfirmedAt:   o.ConfirmedAt,
		ShippedAt:     o.ShippedAt,
		CompletedAt:   o.CompletedAt,
		CancelledAt:   o.CancelledAt,
		CancelReason:  o.CancelReason,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		Version:       o.Version,
	}
	for _, line := range o.Lines {
		resp.Lines = append(resp.Lines, OrderLineResponse{
			ID:          line.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			ProductCode: line.ProductCode,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			VATRate:     line.VATRate,
			Amount:      line.Amount,
		})
	}
	return resp
}

// ToOrderListResponses converts domain orders to list DTOs
func ToOrderListResponses(orders []order.Order) []OrderListResponse {
	out := make([]OrderListResponse, 0, len(orders))
	for i := range orders {
		out = append(out, OrderListResponse{
			ID:           orders[i].ID,
			OrderNumber:  orders[i].OrderNumber,
			CustomerName: orders[i].CustomerName,
			Status:       string(orders[i].Status),
			TotalAmount:  orders[i].TotalAmount,
			CreatedAt:    orders[i].CreatedAt,
		})
	}
	return out
}
