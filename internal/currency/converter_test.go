package currency

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	table Table
	err   error
	delay time.Duration
	calls int32
}

func (s *fakeSource) Rates(ctx context.Context, _ time.Time) (Table, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.table, nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

var day = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestConvert(t *testing.T) {
	src := &fakeSource{table: Table{"USD": d("1.0850"), "JPY": d("162.5"), "BAD": d("0")}}
	conv := NewConverter(src, NewMemoryCache(), "eur", time.Second, testLogger())
	ctx := context.Background()

	tests := []struct {
		name   string
		code   string
		amount string
		want   string
	}{
		{"base currency", "EUR", "100", "100"},
		{"empty code means base", "", "42.42", "42.42"},
		{"lower case code", "usd", "108.50", "100"},
		{"divides by rate", "JPY", "1000", "6.15"},
		{"unknown code passes through", "XYZ", "77.77", "77.77"},
		{"rounds half away from zero", "EUR", "1.005", "1.01"},
		{"repeating fraction", "USD", "1", "0.92"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := conv.Convert(ctx, day, tt.code, d(tt.amount))
			require.NoError(t, err)
			assert.True(t, got.Equal(d(tt.want)), "got %s want %s", got, tt.want)
		})
	}

	_, err := conv.Convert(ctx, day, "BAD", d("1"))
	assert.ErrorIs(t, err, ErrRateUnavailable)
	assert.Equal(t, "EUR", conv.Base())
}

func TestConvertBaseAmountsAreRoundingStable(t *testing.T) {
	conv := NewConverter(&fakeSource{table: Table{}}, nil, "EUR", time.Second, testLogger())
	for _, a := range []string{"0.01", "10.10", "99999.99", "5"} {
		got, err := conv.Convert(context.Background(), day, "EUR", d(a))
		require.NoError(t, err)
		assert.True(t, got.Equal(d(a)))
	}
}

func TestConvertSourceFailureIsRateUnavailable(t *testing.T) {
	src := &fakeSource{err: errors.New("dial tcp: connection refused")}
	conv := NewConverter(src, NewMemoryCache(), "EUR", time.Second, testLogger())

	_, err := conv.Convert(context.Background(), day, "EUR", d("10"))
	require.ErrorIs(t, err, ErrRateUnavailable)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestConvertTimesOut(t *testing.T) {
	src := &fakeSource{table: Table{}, delay: time.Second}
	conv := NewConverter(src, nil, "EUR", 20*time.Millisecond, testLogger())

	start := time.Now()
	_, err := conv.Convert(context.Background(), day, "EUR", d("10"))
	require.ErrorIs(t, err, ErrRateUnavailable)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestTableIsCachedPerDate(t *testing.T) {
	src := &fakeSource{table: Table{"USD": d("2")}}
	cache := NewMemoryCache()
	conv := NewConverter(src, cache, "EUR", time.Second, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := conv.Convert(ctx, day.Add(time.Duration(i)*time.Hour), "USD", d("10"))
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls))

	_, err := conv.Convert(ctx, day.AddDate(0, 0, 1), "USD", d("10"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&src.calls))
	assert.Equal(t, 2, cache.Len())
}

func TestFailedFetchIsNotCached(t *testing.T) {
	src := &fakeSource{err: errors.New("503")}
	conv := NewConverter(src, NewMemoryCache(), "EUR", time.Second, testLogger())
	ctx := context.Background()

	_, err := conv.Convert(ctx, day, "EUR", d("1"))
	require.Error(t, err)

	src.err = nil
	src.table = Table{}
	_, err = conv.Convert(ctx, day, "EUR", d("1"))
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&src.calls))
}

func TestConcurrentConversionsShareOneFetch(t *testing.T) {
	src := &fakeSource{table: Table{"USD": d("2")}, delay: 50 * time.Millisecond}
	conv := NewConverter(src, NewMemoryCache(), "EUR", time.Second, testLogger())

	const n = 10
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			got, err := conv.Convert(context.Background(), day, "USD", d("10"))
			assert.NoError(t, err)
			assert.True(t, got.Equal(d("5")))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&src.calls))
}

func TestMemoryCacheEvictBefore(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, cache.Set(ctx, day.AddDate(0, 0, i), Table{}))
	}

	removed := cache.EvictBefore(day.AddDate(0, 0, 3))
	assert.Equal(t, 3, removed)
	assert.Equal(t, 2, cache.Len())

	_, ok := cache.Get(ctx, day)
	assert.False(t, ok)
	_, ok = cache.Get(ctx, day.AddDate(0, 0, 3))
	assert.True(t, ok)
}

func TestTableRateDefaultsToOne(t *testing.T) {
	table := Table{"USD": d("1.1")}
	assert.True(t, table.Rate("USD").Equal(d("1.1")))
	assert.True(t, table.Rate("XYZ").Equal(decimal.NewFromInt(1)))
}
