package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/fx-ledger/internal/currency"
	"github.com/Dan9191/fx-ledger/internal/utils"
	"github.com/sirupsen/logrus"
)

// Evictor removes cached rate tables older than a cutoff
type Evictor interface {
	EvictBefore(cutoff time.Time) int
}

// CacheEvictionJob keeps only the last Days days of rate tables
type CacheEvictionJob struct {
	Cache Evictor
	Days  int
	Log   *logrus.Logger
	Now   func() time.Time
}

func (j *CacheEvictionJob) Name() string { return "rate-cache-eviction" }

func (j *CacheEvictionJob) Run() error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	cutoff := utils.TruncateDate(now()).AddDate(0, 0, -j.Days)
	removed := j.Cache.EvictBefore(cutoff)
	j.Log.Infof("Evicted %d rate tables dated before %s", removed, utils.FormatDate(cutoff))
	return nil
}

// TableLoader loads the rate table for a date
type TableLoader interface {
	Table(ctx context.Context, date time.Time) (currency.Table, error)
}

// RateWarmupJob fetches today's rate table ahead of the first request
type RateWarmupJob struct {
	Loader  TableLoader
	Timeout time.Duration
}

func (j *RateWarmupJob) Name() string { return "rate-warmup" }

func (j *RateWarmupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.Timeout)
	defer cancel()
	if _, err := j.Loader.Table(ctx, utils.Today()); err != nil {
		return fmt.Errorf("failed to warm up rates: %w", err)
	}
	return nil
}
