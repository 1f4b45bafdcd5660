// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/results"
	"github.com/powerlifting-fed/federation-hub/internal/domain/scoring"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET RESULTS QUERY
// Aggregates a competition's entries into ranked groups and Best Lifter
// categories. Reports are cached until attempts change.
// ══════════════════════════════════════════════════════════════════════════════

// GetResultsQuery contains the parameters of a results request.
type GetResultsQuery struct {
	CompetitionID string

	// SplitByWeightClass ranks per weight class instead of per division.
	SplitByWeightClass bool
}

// Validate checks the query parameters.
func (q GetResultsQuery) Validate() error {
	if q.CompetitionID == "" {
		return errors.New("competition_id is required")
	}
	return nil
}

// GetResultsResult contains the report.
type GetResultsResult struct {
	Competition registration.Competition `json:"competition"`
	Report      *results.Report          `json:"report"`
	Cached      bool                     `json:"cached"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// ResultsConfig tunes aggregation and caching.
type ResultsConfig struct {
	CacheTTL         time.Duration
	MinAwardAthletes int
	Formula          *scoring.Formula
	Rules            *eligibility.Rules
}

// GetResultsHandler handles results queries.
type GetResultsHandler struct {
	competitions registration.CompetitionRepository
	entries      registration.EntryRepository
	cache        results.Cache
	cfg          ResultsConfig
	log          *logger.Logger
}

// NewGetResultsHandler creates a new results handler. cache may be nil.
func NewGetResultsHandler(
	competitions registration.CompetitionRepository,
	entries registration.EntryRepository,
	cache results.Cache,
	cfg ResultsConfig,
	log *logger.Logger,
) *GetResultsHandler {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GetResultsHandler{
		competitions: competitions,
		entries:      entries,
		cache:        cache,
		cfg:          cfg,
		log:          log,
	}
}

// Handle executes the results query.
func (h *GetResultsHandler) Handle(ctx context.Context, query GetResultsQuery) (*GetResultsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetResults", shared.ErrInvalidInput, err.Error(), err)
	}

	var (
		comp    *registration.Competition
		entries []registration.Entry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		comp, err = h.competitions.GetByID(gctx, query.CompetitionID)
		if err != nil {
			return fmt.Errorf("failed to get competition: %w", err)
		}
		return nil
	})

	if cached := h.fromCache(ctx, query); cached != nil {
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return &GetResultsResult{Competition: *comp, Report: cached, Cached: true, GeneratedAt: time.Now().UTC()}, nil
	}

	g.Go(func() error {
		var err error
		entries, err = h.entries.ListByCompetition(gctx, query.CompetitionID)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	agg := results.NewAggregator(results.Options{
		Event:              comp.MeetEvent(),
		SplitByWeightClass: query.SplitByWeightClass,
		MinAwardAthletes:   h.cfg.MinAwardAthletes,
		Formula:            h.cfg.Formula,
		Rules:              h.cfg.Rules,
	})
	report := agg.Aggregate(entries)
	report.CompetitionID = comp.ID

	if h.cache != nil {
		if err := h.cache.SetReport(ctx, report, query.SplitByWeightClass, h.cfg.CacheTTL); err != nil {
			h.log.Warn("failed to cache results", logger.CompetitionID(comp.ID), logger.Err(err))
		}
	}

	return &GetResultsResult{Competition: *comp, Report: report, GeneratedAt: time.Now().UTC()}, nil
}

func (h *GetResultsHandler) fromCache(ctx context.Context, query GetResultsQuery) *results.Report {
	if h.cache == nil {
		return nil
	}
	report, err := h.cache.GetReport(ctx, query.CompetitionID, query.SplitByWeightClass)
	if err != nil {
		h.log.Warn("results cache read failed", logger.CompetitionID(query.CompetitionID), logger.Err(err))
		return nil
	}
	return report
}
