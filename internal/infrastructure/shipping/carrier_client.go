package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/pharmadist/backend/internal/application/fulfillment"
	"github.com/pharmadist/backend/internal/infrastructure/config"
)

// maxResponseSize bounds carrier API responses (1MB)
const maxResponseSize = 1 * 1024 * 1024

// CarrierClient calls the carrier's quoting API over HTTP. It
// implements fulfillment.CarrierQuoter; callers treat quote failures
// as non-fatal, so errors here only cost the stamped delivery fee.
type CarrierClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewCarrierClient creates a new carrier client
func NewCarrierClient(cfg config.CarrierConfig, logger *zap.Logger) *CarrierClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CarrierClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

var _ fulfillment.CarrierQuoter = (*CarrierClient)(nil)

type quoteRequestBody struct {
	OrderID       string `json:"order_id"`
	TotalQuantity int64  `json:"total_quantity"`
}

type quoteResponseBody struct {
	Fee           decimal.Decimal `json:"fee"`
	EstimatedDays int             `json:"estimated_days"`
}

// Quote prices a shipment with the carrier
func (c *CarrierClient) Quote(ctx context.Context, req fulfillment.QuoteRequest) (*fulfillment.CarrierQuote, error) {
	body, err := json.Marshal(quoteRequestBody{
		OrderID:       req.OrderID.String(),
		TotalQuantity: req.TotalQuantity,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode quote request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/quotes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("carrier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, fmt.Errorf("carrier returned status %d", resp.StatusCode)
	}

	var quote quoteResponseBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&quote); err != nil {
		return nil, fmt.Errorf("failed to decode quote response: %w", err)
	}
	if quote.Fee.IsNegative() {
		return nil, fmt.Errorf("carrier returned negative fee %s", quote.Fee)
	}

	c.logger.Debug("carrier quote received",
		zap.String("order_id", req.OrderID.String()),
		zap.String("fee", quote.Fee.String()),
		zap.Int("estimated_days", quote.EstimatedDays),
	)

	return &fulfillment.CarrierQuote{
		Fee:           quote.Fee,
		EstimatedDays: quote.EstimatedDays,
	}, nil
}
