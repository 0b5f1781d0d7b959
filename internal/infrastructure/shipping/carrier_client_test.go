package shipping

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmadist/backend/internal/application/fulfillment"
	"github.com/pharmadist/backend/internal/infrastructure/config"
)

func TestCarrierClient_Quote(t *testing.T) {
	orderID := uuid.New()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/quotes", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, orderID.String(), body["order_id"])
		assert.EqualValues(t, 10, body["total_quantity"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fee": "25.00", "estimated_days": 2}`))
	}))
	defer server.Close()

	client := NewCarrierClient(config.CarrierConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: time.Second,
	}, nil)

	quote, err := client.Quote(context.Background(), fulfillment.QuoteRequest{
		OrderID:       orderID,
		TotalQuantity: 10,
	})
	require.NoError(t, err)
	assert.True(t, quote.Fee.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 2, quote.EstimatedDays)
}

func TestCarrierClient_QuoteServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewCarrierClient(config.CarrierConfig{BaseURL: server.URL, Timeout: time.Second}, nil)

	_, err := client.Quote(context.Background(), fulfillment.QuoteRequest{
		OrderID:       uuid.New(),
		TotalQuantity: 1,
	})
	assert.ErrorContains(t, err, "status 502")
}

func TestCarrierClient_QuoteRejectsNegativeFee(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fee": "-1.00", "estimated_days": 2}`))
	}))
	defer server.Close()

	client := NewCarrierClient(config.CarrierConfig{BaseURL: server.URL, Timeout: time.Second}, nil)

	_, err := client.Quote(context.Background(), fulfillment.QuoteRequest{
		OrderID:       uuid.New(),
		TotalQuantity: 1,
	})
	assert.ErrorContains(t, err, "negative fee")
}

func TestCarrierClient_QuoteTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewCarrierClient(config.CarrierConfig{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil)

	_, err := client.Quote(context.Background(), fulfillment.QuoteRequest{
		OrderID:       uuid.New(),
		TotalQuantity: 1,
	})
	assert.Error(t, err)
}
