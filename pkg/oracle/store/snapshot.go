package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"oracle-pricefeed/pkg/oracle/aggregator"
)

const snapshotKeyPrefix = "oracle:snapshot:"

// RedisSnapshots persists the latest AggregatedPrice per symbol in Redis so
// the cache can be warmed across restarts.
type RedisSnapshots struct {
	client *redis.Client
	ttl    time.Duration
}

var _ SnapshotStore = (*RedisSnapshots)(nil)

// NewRedisSnapshots creates a Redis-backed snapshot store.
func NewRedisSnapshots(client *redis.Client, ttl time.Duration) *RedisSnapshots {
	return &RedisSnapshots{client: client, ttl: ttl}
}

// Save writes the price as a JSON snapshot under the symbol's key.
func (r *RedisSnapshots) Save(ctx context.Context, price *aggregator.AggregatedPrice) error {
	data, err := json.Marshal(price)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := r.client.Set(ctx, snapshotKey(price.Symbol), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot for the symbol. A missing key is (nil, nil).
func (r *RedisSnapshots) Load(ctx context.Context, symbol string) (*aggregator.AggregatedPrice, error) {
	data, err := r.client.Get(ctx, snapshotKey(symbol)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var price aggregator.AggregatedPrice
	if err := json.Unmarshal(data, &price); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &price, nil
}

func snapshotKey(symbol string) string {
	return snapshotKeyPrefix + symbol
}
