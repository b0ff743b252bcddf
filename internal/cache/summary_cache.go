// internal/cache/summary_cache.go
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/shipflow/internal/config"
	"github.com/andresuchdata/shipflow/internal/domain"
)

const (
	summaryKeyPrefix  = "allocation:summary"
	scanBatchSize     = 100
	defaultSummaryTTL = time.Minute
)

// SummaryCache keeps allocation summaries out of postgres for the dashboard
// hot path. Persisted runs are keyed by id, ad-hoc computations by a filter
// fingerprint.
type SummaryCache interface {
	GetSummary(ctx context.Context, key string) (*domain.Summary, bool, error)
	SetSummary(ctx context.Context, key string, summary *domain.Summary) error
	InvalidateAll(ctx context.Context) error
}

// RunKey builds the cache key for a persisted allocation run.
func RunKey(runID int64) string {
	return fmt.Sprintf("%s:run:%d", summaryKeyPrefix, runID)
}

// FilterKey fingerprints one compute-request filter combination so ad-hoc
// summaries can be cached before a run is persisted.
func FilterKey(categoryID *int64, skuID, brandID *string, forwardCover float64) string {
	var parts []string
	if categoryID != nil {
		parts = append(parts, "category="+strconv.FormatInt(*categoryID, 10))
	}
	if skuID != nil {
		parts = append(parts, "sku="+*skuID)
	}
	if brandID != nil {
		parts = append(parts, "brand="+*brandID)
	}
	parts = append(parts, "cover="+strconv.FormatFloat(forwardCover, 'f', -1, 64))

	raw := strings.Join(parts, "|")
	hash := sha1.Sum([]byte(raw))
	return fmt.Sprintf("%s:%s", summaryKeyPrefix, hex.EncodeToString(hash[:]))
}

type redisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopSummaryCache struct{}

func NewSummaryCache(cfg config.CacheConfig) (SummaryCache, error) {
	if !cfg.Enabled {
		return &noopSummaryCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisSummaryCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopSummaryCache() SummaryCache {
	return &noopSummaryCache{}
}

func (c *redisSummaryCache) GetSummary(ctx context.Context, key string) (*domain.Summary, bool, error) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var summary domain.Summary
	if err := json.Unmarshal(payload, &summary); err != nil {
		return nil, false, fmt.Errorf("decode summary cache: %w", err)
	}

	return &summary, true, nil
}

func (c *redisSummaryCache) SetSummary(ctx context.Context, key string, summary *domain.Summary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisSummaryCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, summaryKeyPrefix+"*", scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

func (n *noopSummaryCache) GetSummary(ctx context.Context, key string) (*domain.Summary, bool, error) {
	return nil, false, nil
}

func (n *noopSummaryCache) SetSummary(ctx context.Context, key string, summary *domain.Summary) error {
	return nil
}

func (n *noopSummaryCache) InvalidateAll(ctx context.Context) error {
	return nil
}
