package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/records"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST RECORDS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// ListRecordsQuery filters the record book. Empty fields match all.
type ListRecordsQuery struct {
	Dataset string
	Filter  records.Filter
}

// ListRecordsResult contains the matching records ordered by key.
type ListRecordsResult struct {
	Dataset string           `json:"dataset"`
	Records []records.Record `json:"records"`
	Count   int              `json:"count"`
}

// ListRecordsHandler handles record listings.
type ListRecordsHandler struct {
	repo           records.Repository
	rules          *eligibility.Rules
	defaultDataset string
}

// NewListRecordsHandler creates a new handler. A nil rules value uses the defaults.
func NewListRecordsHandler(repo records.Repository, rules *eligibility.Rules, defaultDataset string) *ListRecordsHandler {
	if rules == nil {
		rules = eligibility.DefaultRules()
	}
	return &ListRecordsHandler{repo: repo, rules: rules, defaultDataset: defaultDataset}
}

// Handle executes the query.
func (h *ListRecordsHandler) Handle(ctx context.Context, query ListRecordsQuery) (*ListRecordsResult, error) {
	dataset := query.Dataset
	if dataset == "" {
		dataset = h.defaultDataset
	}

	recs, err := h.repo.List(ctx, dataset, h.normalize(query.Filter))
	if err != nil {
		return nil, fmt.Errorf("list_records: %w", err)
	}
	if recs == nil {
		recs = []records.Record{}
	}
	return &ListRecordsResult{Dataset: dataset, Records: recs, Count: len(recs)}, nil
}

// normalize maps filter labels to their canonical spelling. Unknown labels
// are kept as given and match nothing.
func (h *ListRecordsHandler) normalize(f records.Filter) records.Filter {
	if m, ok := shared.ParseMovement(f.Movement); ok {
		f.Movement = string(m)
	}
	if d, ok := h.rules.ParseDivision(f.Division); ok {
		f.Division = string(d)
	}
	if s, ok := shared.ParseSex(f.Sex); ok {
		f.Sex = string(s)
	}
	if e, ok := shared.ParseEquipment(f.Equipment); ok {
		f.Equipment = string(e)
	}
	f.WeightClass = strings.TrimSuffix(strings.ToLower(strings.ReplaceAll(f.WeightClass, " ", "")), "kg")
	return f
}
