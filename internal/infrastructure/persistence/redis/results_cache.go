package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/powerlifting-fed/federation-hub/internal/domain/results"
	"github.com/powerlifting-fed/federation-hub/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESULTS CACHE
// Each report variant is one JSON blob. Every key written for a competition
// is tracked in an index set so Invalidate can drop them all in one call.
// Best Lifter categories are mirrored into sorted sets scored by GL points.
// Reads and writes may sit behind a circuit breaker; an open breaker reads
// as a miss and skips the write. Invalidate always reaches Redis.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultResultsTTL applies when SetReport gets a zero TTL.
const DefaultResultsTTL = 2 * time.Minute

// ResultsCache implements results.Cache.
type ResultsCache struct {
	cache   *Cache
	breaker *circuitbreaker.Breaker
}

// ResultsCacheOption configures a ResultsCache.
type ResultsCacheOption func(*ResultsCache)

// WithBreaker guards reads and writes with b.
func WithBreaker(b *circuitbreaker.Breaker) ResultsCacheOption {
	return func(r *ResultsCache) { r.breaker = b }
}

// NewResultsCache creates a results cache over a Cache.
func NewResultsCache(cache *Cache, opts ...ResultsCacheOption) *ResultsCache {
	r := &ResultsCache{cache: cache}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ResultsCache) guarded(ctx context.Context, fn func(context.Context) error) error {
	if r.breaker == nil {
		return fn(ctx)
	}
	return r.breaker.Execute(ctx, fn)
}

var _ results.Cache = (*ResultsCache)(nil)

// GetReport returns nil, nil on a miss.
func (r *ResultsCache) GetReport(ctx context.Context, competitionID string, split bool) (*results.Report, error) {
	var report results.Report
	err := r.guarded(ctx, func(ctx context.Context) error {
		err := r.cache.Get(ctx, ResultsKey(competitionID, split), &report)
		if errors.Is(err, ErrCacheMiss) {
			return nil
		}
		return err
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if report.CompetitionID == "" {
		return nil, nil
	}
	return &report, nil
}

// SetReport stores the report and, for the overall variant, its Best Lifter
// rankings.
func (r *ResultsCache) SetReport(ctx context.Context, report *results.Report, split bool, ttl time.Duration) error {
	if report == nil {
		return ErrCacheNilValue
	}
	if report.CompetitionID == "" {
		return ErrCacheKeyEmpty
	}
	if ttl <= 0 {
		ttl = DefaultResultsTTL
	}

	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}

	compID := report.CompetitionID
	indexKey := ResultsIndexKey(compID)
	reportKey := ResultsKey(compID, split)

	pipe := r.cache.Client().TxPipeline()
	pipe.Set(ctx, reportKey, data, ttl)
	pipe.SAdd(ctx, indexKey, reportKey)

	if !split {
		for _, cat := range report.BestLifters {
			key := BestLifterKey(compID, CategoryName(cat.Key))
			pipe.Del(ctx, key)
			if len(cat.Athletes) == 0 {
				continue
			}
			members := make([]redis.Z, 0, len(cat.Athletes))
			for _, row := range cat.Athletes {
				members = append(members, redis.Z{
					Score:  row.Result.GLPoints,
					Member: row.Result.AthleteKey,
				})
			}
			pipe.ZAdd(ctx, key, members...)
			pipe.Expire(ctx, key, ttl)
			pipe.SAdd(ctx, indexKey, key)
		}
	}
	pipe.Expire(ctx, indexKey, ttl)

	err = r.guarded(ctx, func(ctx context.Context) error {
		_, err := pipe.Exec(ctx)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil
	}
	return err
}

// Invalidate drops every cached key of a competition.
func (r *ResultsCache) Invalidate(ctx context.Context, competitionID string) error {
	indexKey := ResultsIndexKey(competitionID)
	keys, err := r.cache.Client().SMembers(ctx, indexKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	keys = append(keys, indexKey, ResultsKey(competitionID, false), ResultsKey(competitionID, true))
	return r.cache.Delete(ctx, keys...)
}

// RankedAthlete is one member of a cached Best Lifter ranking.
type RankedAthlete struct {
	AthleteKey string  `json:"athlete_key"`
	GLPoints   float64 `json:"gl_points"`
}

// TopBestLifters returns the best n athletes of a cached category, highest
// GL points first. Ties follow Redis member order, so callers needing the
// full tie-break use the report instead.
func (r *ResultsCache) TopBestLifters(ctx context.Context, competitionID string, key results.BestLifterKey, n int) ([]RankedAthlete, error) {
	if n <= 0 {
		return nil, nil
	}
	zs, err := r.cache.Client().ZRevRangeWithScores(ctx, BestLifterKey(competitionID, CategoryName(key)), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]RankedAthlete, 0, len(zs))
	for _, z := range zs {
		member, _ := z.Member.(string)
		out = append(out, RankedAthlete{AthleteKey: member, GLPoints: z.Score})
	}
	return out, nil
}

// CategoryName renders a Best Lifter key for use in Redis keys.
func CategoryName(k results.BestLifterKey) string {
	return fmt.Sprintf("%s:%s:%s:%s", k.Sex, k.Equipment, k.Division, k.Event)
}
