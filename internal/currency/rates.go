package currency

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrRateUnavailable is returned when the day's rate table cannot be obtained
var ErrRateUnavailable = errors.New("exchange rates unavailable")

// Table maps a currency code to its rate relative to the base currency
// (units of the currency per one unit of base).
type Table map[string]decimal.Decimal

// Rate returns the rate for code, or 1 when the code is absent
func (t Table) Rate(code string) decimal.Decimal {
	if r, ok := t[code]; ok {
		return r
	}
	return decimal.NewFromInt(1)
}

// Source fetches the rate table for a calendar date
type Source interface {
	Rates(ctx context.Context, date time.Time) (Table, error)
}

// Cache stores rate tables keyed by calendar date
type Cache interface {
	Get(ctx context.Context, date time.Time) (Table, bool)
	Set(ctx context.Context, date time.Time, table Table) error
}
