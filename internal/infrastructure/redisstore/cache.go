package redisstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sngm3741/avero-reporting/api/internal/reporting/application"
	"github.com/sngm3741/avero-reporting/api/internal/reporting/domain"
)

const cachePrefix = "avero-reporting:result:"

// ResultCache stores rollup results as JSON. Keys embed the report's generation number, so an
// entry computed before a regeneration can never be read after it. Every key is also added to a
// per-report set so Invalidate can drop the old entries eagerly.
type ResultCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewResultCache creates a cache whose entries expire after ttl.
func NewResultCache(rdb redis.UniversalClient, ttl time.Duration) *ResultCache {
	return &ResultCache{rdb: rdb, ttl: ttl}
}

var _ application.ResultCache = (*ResultCache)(nil)

// Generation returns the current generation number of report. A report that was never
// invalidated is at generation 0.
func (c *ResultCache) Generation(ctx context.Context, report domain.ReportType) (int64, error) {
	gen, err := c.rdb.Get(ctx, generationKey(report)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *ResultCache) Get(ctx context.Context, q domain.RollupQuery, gen int64) (*domain.RollupResult, bool, error) {
	val, err := c.rdb.Get(ctx, resultKey(q, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var result domain.RollupResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, false, err
	}
	return &result, true, nil
}

// Set stores result under gen. Nothing is written when the report has moved past gen.
func (c *ResultCache) Set(ctx context.Context, q domain.RollupQuery, gen int64, result domain.RollupResult) error {
	current, err := c.Generation(ctx, q.Report)
	if err != nil {
		return err
	}
	if current != gen {
		return nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	key := resultKey(q, gen)
	pipe := c.rdb.TxPipeline()
	pipe.Set(ctx, key, payload, c.ttl)
	pipe.SAdd(ctx, setKey(q.Report), key)
	pipe.Expire(ctx, setKey(q.Report), c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Invalidate bumps the generation of report and removes its cached results.
func (c *ResultCache) Invalidate(ctx context.Context, report domain.ReportType) error {
	if err := c.rdb.Incr(ctx, generationKey(report)).Err(); err != nil {
		return err
	}
	members, err := c.rdb.SMembers(ctx, setKey(report)).Result()
	if err != nil {
		return err
	}
	keys := append(members, setKey(report))
	return c.rdb.Del(ctx, keys...).Err()
}

func setKey(report domain.ReportType) string {
	return cachePrefix + string(report) + ":keys"
}

func generationKey(report domain.ReportType) string {
	return cachePrefix + string(report) + ":gen"
}

func resultKey(q domain.RollupQuery, gen int64) string {
	raw := fmt.Sprintf("%d|%s|%s|%s|%s|%d|%d",
		gen,
		q.BusinessID,
		domain.FormatWire(q.Start),
		domain.FormatWire(q.End),
		q.TimeInterval,
		q.Limit,
		q.Offset,
	)
	sum := sha1.Sum([]byte(raw))
	return cachePrefix + string(q.Report) + ":" + hex.EncodeToString(sum[:])
}
