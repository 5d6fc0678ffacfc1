package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/fx-ledger/internal/utils"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisCache shares rate tables between service instances
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	log    *logrus.Logger
}

// NewRedisCache creates a cache storing tables under "rates:<base>:<date>"
func NewRedisCache(client redis.UniversalClient, base string, ttl time.Duration, log *logrus.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "rates:" + base,
		ttl:    ttl,
		log:    log,
	}
}

func (c *RedisCache) key(date time.Time) string {
	return c.prefix + ":" + utils.FormatDate(date)
}

// Get returns the cached table for date. Redis failures are logged and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, date time.Time) (Table, bool) {
	raw, err := c.client.Get(ctx, c.key(date)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warnf("Redis rate cache read failed for %s: %v", utils.FormatDate(date), err)
		}
		return nil, false
	}
	var table Table
	if err := json.Unmarshal(raw, &table); err != nil {
		c.log.Warnf("Redis rate cache entry for %s is corrupt: %v", utils.FormatDate(date), err)
		return nil, false
	}
	return table, true
}

// Set stores the table for date with the configured TTL
func (c *RedisCache) Set(ctx context.Context, date time.Time, table Table) error {
	raw, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("failed to encode rate table: %w", err)
	}
	if err := c.client.Set(ctx, c.key(date), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store rate table: %w", err)
	}
	return nil
}
