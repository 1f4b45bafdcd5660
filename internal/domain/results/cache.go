package results

import (
	"context"
	"time"
)

// Cache stores computed reports between attempt changes. Implementations
// are best effort: callers treat errors as misses.
type Cache interface {
	// GetReport returns nil when no report is cached for the variant.
	GetReport(ctx context.Context, competitionID string, split bool) (*Report, error)

	// SetReport stores a report with a TTL.
	SetReport(ctx context.Context, report *Report, split bool, ttl time.Duration) error

	// Invalidate drops every cached variant of a competition.
	Invalidate(ctx context.Context, competitionID string) error
}
