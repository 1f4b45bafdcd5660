package query

import (
	"time"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CHECK ELIGIBILITY QUERY
// Lists what an athlete may enter on a given date.
// ══════════════════════════════════════════════════════════════════════════════

// CheckEligibilityQuery contains the athlete facts to check.
type CheckEligibilityQuery struct {
	BirthDate time.Time
	Sex       string

	// AsOf is the competition date. Zero means today.
	AsOf time.Time
}

// DivisionOption is an eligible division and its valid bridges.
type DivisionOption struct {
	Division eligibility.Division   `json:"division"`
	Bridges  []eligibility.Division `json:"bridges"`
}

// CheckEligibilityResult lists eligible divisions and weight classes.
type CheckEligibilityResult struct {
	Age           int                       `json:"age"`
	AsOf          string                    `json:"as_of"`
	Sex           shared.Sex                `json:"sex"`
	Divisions     []DivisionOption          `json:"divisions"`
	WeightClasses []eligibility.WeightClass `json:"weight_classes"`
}

// CheckEligibilityHandler handles eligibility lookups.
type CheckEligibilityHandler struct {
	rules *eligibility.Rules
	now   func() time.Time
}

// NewCheckEligibilityHandler creates a new handler. A nil rules value uses the defaults.
func NewCheckEligibilityHandler(rules *eligibility.Rules) *CheckEligibilityHandler {
	if rules == nil {
		rules = eligibility.DefaultRules()
	}
	return &CheckEligibilityHandler{rules: rules, now: timeutil.Now}
}

// Handle executes the query.
func (h *CheckEligibilityHandler) Handle(query CheckEligibilityQuery) (*CheckEligibilityResult, error) {
	if query.BirthDate.IsZero() {
		return nil, shared.NewValidationError(shared.RuleAgeUnknown, "birth_date", "birth date is required")
	}
	sex, ok := shared.ParseSex(query.Sex)
	if !ok {
		return nil, shared.NewValidationError(shared.RuleSexUnknown, "sex", "unknown sex %q", query.Sex)
	}

	asOf := query.AsOf
	if asOf.IsZero() {
		asOf = timeutil.StartOfDay(h.now())
	}
	age := eligibility.AgeOf(query.BirthDate, asOf)

	divisions := h.rules.DivisionsFor(age)
	options := make([]DivisionOption, 0, len(divisions))
	for _, d := range divisions {
		bridges := h.rules.BridgeOptionsFor(d, age)
		if bridges == nil {
			bridges = []eligibility.Division{}
		}
		options = append(options, DivisionOption{Division: d, Bridges: bridges})
	}

	return &CheckEligibilityResult{
		Age:           age,
		AsOf:          timeutil.FormatDateStr(asOf),
		Sex:           sex,
		Divisions:     options,
		WeightClasses: h.rules.WeightClassesFor(sex, age),
	}, nil
}
