package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/results"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/circuitbreaker"
)

func newTestCache(t *testing.T) (*ResultsCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewResultsCache(NewCacheFromClient(client)), mr
}

func sampleReport(compID string) *results.Report {
	row := func(key string, gl float64) results.BestLifterRow {
		return results.BestLifterRow{Result: results.ScoredResult{AthleteKey: key, Name: key, GLPoints: gl}}
	}
	return &results.Report{
		CompetitionID: compID,
		Event:         shared.MeetFullPower,
		Groups: []results.Group{{
			Key: results.GroupKey{Division: eligibility.Open, Equipment: shared.EquipmentClassic, Sex: shared.SexFemale},
			Results: []results.ScoredResult{
				{EntryID: "e1", Name: "Ana", GLPoints: 91.2, Ranks: results.Ranks{Total: 1}},
			},
		}},
		BestLifters: []results.BestLifterCategory{{
			Key: results.BestLifterKey{
				Sex:       shared.SexFemale,
				Equipment: shared.EquipmentClassic,
				Division:  eligibility.Open,
				Event:     shared.MeetFullPower,
			},
			Awarding: true,
			Athletes: []results.BestLifterRow{row("name:Ana", 91.2), row("name:Bea", 88.4), row("name:Cat", 70.1)},
		}},
	}
}

func TestResultsCache_MissReturnsNil(t *testing.T) {
	c, _ := newTestCache(t)

	got, err := c.GetReport(context.Background(), "nationals", false)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResultsCache_RoundTripPerVariant(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetReport(ctx, sampleReport("nationals"), false, time.Minute))

	got, err := c.GetReport(ctx, "nationals", false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "nationals", got.CompetitionID)
	require.Len(t, got.Groups, 1)
	assert.Equal(t, "Ana", got.Groups[0].Results[0].Name)

	split, err := c.GetReport(ctx, "nationals", true)
	require.NoError(t, err)
	assert.Nil(t, split, "split variant is cached separately")
}

func TestResultsCache_TTLExpires(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetReport(ctx, sampleReport("nationals"), true, 30*time.Second))
	mr.FastForward(31 * time.Second)

	got, err := c.GetReport(ctx, "nationals", true)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResultsCache_InvalidateDropsEveryKey(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetReport(ctx, sampleReport("nationals"), false, time.Minute))
	require.NoError(t, c.SetReport(ctx, sampleReport("nationals"), true, time.Minute))
	require.NoError(t, c.SetReport(ctx, sampleReport("regionals"), false, time.Minute))

	require.NoError(t, c.Invalidate(ctx, "nationals"))

	for _, k := range mr.Keys() {
		assert.NotContains(t, k, "nationals")
	}
	other, err := c.GetReport(ctx, "regionals", false)
	require.NoError(t, err)
	assert.NotNil(t, other)
}

func TestResultsCache_TopBestLifters(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	report := sampleReport("nationals")

	require.NoError(t, c.SetReport(ctx, report, false, time.Minute))

	top, err := c.TopBestLifters(ctx, "nationals", report.BestLifters[0].Key, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "name:Ana", top[0].AthleteKey)
	assert.InDelta(t, 91.2, top[0].GLPoints, 1e-9)
	assert.Equal(t, "name:Bea", top[1].AthleteKey)
}

func TestResultsCache_RejectsReportWithoutCompetition(t *testing.T) {
	c, _ := newTestCache(t)

	err := c.SetReport(context.Background(), &results.Report{}, false, time.Minute)
	assert.ErrorIs(t, err, ErrCacheKeyEmpty)
}

func TestConfig_Options(t *testing.T) {
	opts, err := Config{URL: "redis://:secret@cache:6380/2", PoolSize: 7}.Options()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)

	opts, err = DefaultConfig().Options()
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", opts.Addr)
}

func TestResultsCache_BreakerTurnsOutageIntoMisses(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	breaker := circuitbreaker.New("test", circuitbreaker.WithFailureThreshold(2), circuitbreaker.WithCooldown(time.Hour))
	cache := NewResultsCache(NewCacheFromClient(client), WithBreaker(breaker))
	ctx := context.Background()

	require.NoError(t, cache.SetReport(ctx, sampleReport("nationals"), false, time.Minute))
	mr.Close()

	_, err := cache.GetReport(ctx, "nationals", false)
	assert.Error(t, err)
	_, err = cache.GetReport(ctx, "nationals", true)
	assert.Error(t, err)
	require.Equal(t, circuitbreaker.StateOpen, breaker.State())

	got, err := cache.GetReport(ctx, "nationals", false)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, cache.SetReport(ctx, sampleReport("nationals"), false, time.Minute))

	assert.Error(t, cache.Invalidate(ctx, "nationals"), "invalidation bypasses the breaker")
}
