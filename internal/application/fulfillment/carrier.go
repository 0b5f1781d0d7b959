package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteRequest describes a shipment to be priced by the carrier
type QuoteRequest struct {
	OrderID       uuid.UUID
	TotalQuantity int64
}

// CarrierQuote is the carrier's price and delivery estimate
type CarrierQuote struct {
	Fee           decimal.Decimal
	EstimatedDays int
}

// CarrierQuoter prices shipments with the configured carrier. A
// failed quote never rolls an allocation back; the note simply ships
// without a stamped fee.
type CarrierQuoter interface {
	Quote(ctx context.Context, req QuoteRequest) (*CarrierQuote, error)
}
