package records

import (
	"math"
	"strings"
	"time"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// Candidate is an unvalidated mark, as read from a record sheet or
// derived from competition results.
type Candidate struct {
	// Row is the 1-based source row, for error reporting.
	Row int `json:"row"`

	Movement    string    `json:"movement"`
	Division    string    `json:"division"`
	Sex         string    `json:"sex"`
	Equipment   string    `json:"equipment"`
	WeightClass string    `json:"weight_class"`
	Weight      float64   `json:"weight"`
	AthleteName string    `json:"athlete_name"`
	Team        string    `json:"team,omitempty"`
	Competition string    `json:"competition,omitempty"`
	Date        time.Time `json:"date"`

	// Malformed is set by readers when a cell could not be parsed. The row
	// fails with this error.
	Malformed error `json:"-"`
}

// Normalize validates a candidate and resolves it to a Record.
func (c Candidate) Normalize(rules *eligibility.Rules) (Record, error) {
	if c.Malformed != nil {
		return Record{}, c.Malformed
	}
	name := strings.TrimSpace(c.AthleteName)
	if name == "" {
		return Record{}, RowError("athlete_name", "athlete name is missing")
	}
	if !(c.Weight > 0) || math.IsInf(c.Weight, 0) {
		return Record{}, RowError("weight", "weight must be a positive number, got %g", c.Weight)
	}

	movement, ok := shared.ParseMovement(c.Movement)
	if !ok {
		return Record{}, RowError("movement", "unknown movement %q", c.Movement)
	}
	division, ok := rules.ParseDivision(c.Division)
	if !ok {
		return Record{}, RowError("division", "unknown division %q", c.Division)
	}
	sex, ok := shared.ParseSex(c.Sex)
	if !ok {
		return Record{}, RowError("sex", "unknown sex %q", c.Sex)
	}
	equipment, ok := shared.ParseEquipment(c.Equipment)
	if !ok {
		return Record{}, RowError("equipment", "unknown equipment %q", c.Equipment)
	}
	if strings.TrimSpace(c.WeightClass) == "" {
		return Record{}, RowError("weight_class", "weight class is missing")
	}
	wc, ok := rules.FindClass(sex, c.WeightClass)
	if !ok {
		return Record{}, RowError("weight_class", "no %s class named %q", sex, c.WeightClass)
	}

	return Record{
		Key: Key{
			Movement:    movement,
			Division:    division,
			Sex:         sex,
			Equipment:   equipment,
			WeightClass: wc.Name,
		},
		Weight:      c.Weight,
		AthleteName: name,
		Team:        strings.TrimSpace(c.Team),
		Competition: strings.TrimSpace(c.Competition),
		Date:        c.Date,
	}, nil
}

// RowError builds the validation error of a rejected import row.
func RowError(field, format string, args ...any) error {
	return shared.NewValidationError(shared.RuleRecordRow, field, format, args...)
}

// RowResult is the outcome of one import row.
type RowResult struct {
	Row      int     `json:"row"`
	Outcome  Outcome `json:"outcome"`
	Key      string  `json:"key,omitempty"`
	Weight   float64 `json:"weight,omitempty"`
	Previous float64 `json:"previous,omitempty"`
	Athlete  string  `json:"athlete,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// ImportReport summarizes a batch import.
type ImportReport struct {
	Created int         `json:"created"`
	Updated int         `json:"updated"`
	Kept    int         `json:"kept"`
	Failed  int         `json:"failed"`
	Rows    []RowResult `json:"rows"`
}

// Succeeded counts rows that did not fail.
func (r ImportReport) Succeeded() int {
	return r.Created + r.Updated + r.Kept
}

// Importer applies candidate batches to a book.
type Importer struct {
	rules *eligibility.Rules
}

// NewImporter creates an Importer. A nil rules value uses the defaults.
func NewImporter(rules *eligibility.Rules) *Importer {
	if rules == nil {
		rules = eligibility.DefaultRules()
	}
	return &Importer{rules: rules}
}

// Import proposes every candidate in order against book. Malformed rows
// are recorded as failures and never abort the batch. Later rows see the
// effect of earlier rows in the same batch.
func (im *Importer) Import(book *Book, candidates []Candidate) ImportReport {
	report := ImportReport{Rows: make([]RowResult, 0, len(candidates))}

	for i, c := range candidates {
		row := c.Row
		if row == 0 {
			row = i + 1
		}

		rec, err := c.Normalize(im.rules)
		if err != nil {
			report.Failed++
			report.Rows = append(report.Rows, RowResult{Row: row, Outcome: OutcomeFailed, Error: err.Error()})
			continue
		}

		p := book.ProposeUpdate(rec)
		rr := RowResult{Row: row, Outcome: p.Outcome, Key: rec.Key.String(), Weight: rec.Weight, Athlete: rec.AthleteName}
		switch p.Outcome {
		case OutcomeCreated:
			report.Created++
		case OutcomeUpdated:
			report.Updated++
			rr.Previous = p.Previous.Weight
		case OutcomeKept:
			report.Kept++
			rr.Previous = p.Record.Weight
		}
		report.Rows = append(report.Rows, rr)
	}

	return report
}
