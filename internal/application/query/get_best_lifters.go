package query

import (
	"context"
	"strings"

	"github.com/powerlifting-fed/federation-hub/internal/domain/results"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET BEST LIFTERS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// GetBestLiftersQuery filters Best Lifter categories. Empty filters match all.
type GetBestLiftersQuery struct {
	CompetitionID string
	Division      string
	Sex           string
	Equipment     string

	// OnlyAwarding drops categories below the award threshold.
	OnlyAwarding bool
}

// Validate checks the query parameters.
func (q GetBestLiftersQuery) Validate() error {
	return GetResultsQuery{CompetitionID: q.CompetitionID}.Validate()
}

// GetBestLiftersResult lists the matching categories.
type GetBestLiftersResult struct {
	CompetitionID string                       `json:"competition_id"`
	Event         shared.MeetEvent             `json:"event"`
	Categories    []results.BestLifterCategory `json:"categories"`
}

// GetBestLiftersHandler handles Best Lifter queries.
type GetBestLiftersHandler struct {
	results *GetResultsHandler
}

// NewGetBestLiftersHandler creates a new handler on top of the results query.
func NewGetBestLiftersHandler(results *GetResultsHandler) *GetBestLiftersHandler {
	return &GetBestLiftersHandler{results: results}
}

// Handle executes the query.
func (h *GetBestLiftersHandler) Handle(ctx context.Context, query GetBestLiftersQuery) (*GetBestLiftersResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetBestLifters", shared.ErrInvalidInput, err.Error(), err)
	}

	res, err := h.results.Handle(ctx, GetResultsQuery{CompetitionID: query.CompetitionID})
	if err != nil {
		return nil, err
	}

	out := &GetBestLiftersResult{
		CompetitionID: res.Report.CompetitionID,
		Event:         res.Report.Event,
		Categories:    make([]results.BestLifterCategory, 0, len(res.Report.BestLifters)),
	}
	for _, c := range res.Report.BestLifters {
		if query.OnlyAwarding && !c.Awarding {
			continue
		}
		if !matchLabel(query.Division, string(c.Key.Division)) ||
			!matchLabel(query.Sex, string(c.Key.Sex)) ||
			!matchLabel(query.Equipment, string(c.Key.Equipment)) {
			continue
		}
		out.Categories = append(out.Categories, c)
	}
	return out, nil
}

func matchLabel(want, got string) bool {
	return want == "" || strings.EqualFold(want, got)
}
