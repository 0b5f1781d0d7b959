package handler

import (
	"time"

	"github.com/shopspring/decimal"
)

func testExpiry() time.Time {
	return time.Now().AddDate(1, 0, 0)
}

func testSupplyPrice() decimal.Decimal {
	return decimal.NewFromInt(40)
}
