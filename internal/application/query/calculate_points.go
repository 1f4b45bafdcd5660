package query

import (
	"errors"

	"github.com/powerlifting-fed/federation-hub/internal/domain/scoring"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CALCULATE POINTS QUERY
// ══════════════════════════════════════════════════════════════════════════════

// CalculatePointsQuery asks for the GL points of a single performance.
type CalculatePointsQuery struct {
	Total      float64
	Bodyweight float64
	Sex        string
	Equipment  string
	Event      string
}

// Validate checks the query parameters. Unknown labels are not errors:
// they score 0.
func (q CalculatePointsQuery) Validate() error {
	if q.Total < 0 {
		return errors.New("total cannot be negative")
	}
	if q.Bodyweight < 0 {
		return errors.New("bodyweight cannot be negative")
	}
	return nil
}

// CalculatePointsResult contains the points and the labels they were scored under.
type CalculatePointsResult struct {
	Points     float64 `json:"points"`
	Total      float64 `json:"total"`
	Bodyweight float64 `json:"bodyweight"`
	Sex        string  `json:"sex,omitempty"`
	Equipment  string  `json:"equipment,omitempty"`
	Event      string  `json:"event,omitempty"`
}

// CalculatePointsHandler handles points queries.
type CalculatePointsHandler struct {
	formula *scoring.Formula
}

// NewCalculatePointsHandler creates a new handler. A nil formula uses the
// published coefficients.
func NewCalculatePointsHandler(formula *scoring.Formula) *CalculatePointsHandler {
	if formula == nil {
		formula = scoring.Default()
	}
	return &CalculatePointsHandler{formula: formula}
}

// Handle executes the query.
func (h *CalculatePointsHandler) Handle(query CalculatePointsQuery) (*CalculatePointsResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "CalculatePoints", shared.ErrInvalidInput, err.Error(), err)
	}

	res := &CalculatePointsResult{
		Points:     h.formula.PointsFromLabels(query.Total, query.Bodyweight, query.Sex, query.Equipment, query.Event),
		Total:      query.Total,
		Bodyweight: query.Bodyweight,
	}
	if s, ok := shared.ParseSex(query.Sex); ok {
		res.Sex = string(s)
	}
	if e, ok := shared.ParseEquipment(query.Equipment); ok {
		res.Equipment = string(e)
	}
	if ev, ok := shared.ParseMeetEvent(query.Event); ok {
		res.Event = string(ev)
	}
	return res, nil
}
