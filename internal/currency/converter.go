package currency

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/fx-ledger/internal/metrics"
	"github.com/Dan9191/fx-ledger/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Converter normalizes amounts into the base currency using the day's rate table
type Converter struct {
	source  Source
	cache   Cache
	base    string
	timeout time.Duration
	log     *logrus.Logger
	group   singleflight.Group
}

// NewConverter initializes a converter. A nil cache disables caching.
func NewConverter(source Source, cache Cache, base string, timeout time.Duration, log *logrus.Logger) *Converter {
	return &Converter{
		source:  source,
		cache:   cache,
		base:    strings.ToUpper(base),
		timeout: timeout,
		log:     log,
	}
}

// Base returns the base currency code
func (c *Converter) Base() string {
	return c.base
}

// Convert returns amount expressed in the base currency, rounded to 2 places.
// An empty code means the base currency; codes missing from the table convert at rate 1.
func (c *Converter) Convert(ctx context.Context, date time.Time, code string, amount decimal.Decimal) (decimal.Decimal, error) {
	table, err := c.Table(ctx, date)
	if err != nil {
		return decimal.Zero, err
	}

	code = strings.ToUpper(strings.TrimSpace(code))
	rate := decimal.NewFromInt(1)
	if code != "" && code != c.base {
		rate = table.Rate(code)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: non-positive rate %s for %s", ErrRateUnavailable, rate, code)
	}
	return amount.Div(rate).Round(2), nil
}

// Table returns the rate table for date, fetching it once per date.
// Concurrent callers for the same uncached date share one fetch.
func (c *Converter) Table(ctx context.Context, date time.Time) (Table, error) {
	date = utils.TruncateDate(date)
	if c.cache != nil {
		if t, ok := c.cache.Get(ctx, date); ok {
			metrics.RateCacheLookups.WithLabelValues("hit").Inc()
			return t, nil
		}
		metrics.RateCacheLookups.WithLabelValues("miss").Inc()
	}

	key := utils.FormatDate(date)
	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.fetch(ctx, date)
	})
	if err != nil {
		return nil, err
	}
	return v.(Table), nil
}

func (c *Converter) fetch(ctx context.Context, date time.Time) (Table, error) {
	// The fetch is shared between callers, so one caller giving up must not cancel it for the rest.
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	start := time.Now()
	table, err := c.source.Rates(fetchCtx, date)
	if err != nil {
		metrics.RateFetchDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		c.log.Errorf("Failed to fetch rates for %s: %v", utils.FormatDate(date), err)
		return nil, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	metrics.RateFetchDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	c.log.Debugf("Fetched %d rates for %s", len(table), utils.FormatDate(date))

	if c.cache != nil {
		if err := c.cache.Set(ctx, date, table); err != nil {
			c.log.Warnf("Failed to cache rates for %s: %v", utils.FormatDate(date), err)
		}
	}
	return table, nil
}
