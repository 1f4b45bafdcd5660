package results

import (
	"fmt"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// Lifts holds best values per lift and the total, in kg.
type Lifts struct {
	Squat    float64 `json:"squat"`
	Bench    float64 `json:"bench"`
	Deadlift float64 `json:"deadlift"`
	Total    float64 `json:"total"`
}

// Of returns the value for a movement.
func (l Lifts) Of(m shared.Movement) float64 {
	switch m {
	case shared.MovementSquat:
		return l.Squat
	case shared.MovementBench:
		return l.Bench
	case shared.MovementDeadlift:
		return l.Deadlift
	case shared.MovementTotal:
		return l.Total
	default:
		return 0
	}
}

// BestOf returns the heaviest attempt. Zero and negative attempts count
// as no lift.
func BestOf(attempts [3]float64) float64 {
	best := 0.0
	for _, a := range attempts {
		if a > best {
			best = a
		}
	}
	return best
}

// Bests computes per-lift bests and the total. Bench-only events total the
// bench alone; full-power totals sum the three bests.
func Bests(a registration.Attempts, event shared.MeetEvent) Lifts {
	l := Lifts{
		Squat:    BestOf(a.Squat),
		Bench:    BestOf(a.Bench),
		Deadlift: BestOf(a.Deadlift),
	}
	if event == shared.MeetBenchOnly {
		l.Total = l.Bench
	} else {
		l.Total = l.Squat + l.Bench + l.Deadlift
	}
	return l
}

// Ranks are 1-based positions within a group.
type Ranks struct {
	Squat    int `json:"squat"`
	Bench    int `json:"bench"`
	Deadlift int `json:"deadlift"`
	Total    int `json:"total"`
}

// ScoredResult is one athlete's standing in one division.
type ScoredResult struct {
	EntryID     string               `json:"entry_id"`
	AthleteID   string               `json:"athlete_id"`
	AthleteKey  string               `json:"athlete_key"`
	Name        string               `json:"name"`
	Team        string               `json:"team,omitempty"`
	Sex         shared.Sex           `json:"sex"`
	Equipment   shared.Equipment     `json:"equipment"`
	Division    eligibility.Division `json:"division"`
	WeightClass string               `json:"weight_class"`
	Bodyweight  float64              `json:"bodyweight"`
	Order       int                  `json:"order"`
	Bridged     bool                 `json:"bridged,omitempty"`
	Best        Lifts                `json:"best"`
	GLPoints    float64              `json:"gl_points"`
	Ranks       Ranks                `json:"ranks"`

	classLimit float64
}

// GroupKey identifies a ranking group.
type GroupKey struct {
	Division    eligibility.Division `json:"division"`
	Equipment   shared.Equipment     `json:"equipment"`
	Sex         shared.Sex           `json:"sex"`
	WeightClass string               `json:"weight_class,omitempty"`
}

// String renders the key, e.g. "M/Classic/Open" or "M/Classic/Open/93".
func (k GroupKey) String() string {
	s := fmt.Sprintf("%s/%s/%s", k.Sex, k.Equipment, k.Division)
	if k.WeightClass != "" {
		s += "/" + k.WeightClass
	}
	return s
}

// Group is a ranked group, ordered by total rank.
type Group struct {
	Key     GroupKey       `json:"key"`
	Results []ScoredResult `json:"results"`
}

func (g Group) classLimit() float64 {
	if len(g.Results) == 0 {
		return 0
	}
	return g.Results[0].classLimit
}

// BestLifterKey identifies a Best Lifter category.
type BestLifterKey struct {
	Sex       shared.Sex           `json:"sex"`
	Equipment shared.Equipment     `json:"equipment"`
	Division  eligibility.Division `json:"division"`
	Event     shared.MeetEvent     `json:"event"`
}

// BestLifterRow is a placed athlete in a Best Lifter category.
type BestLifterRow struct {
	Place  int          `json:"place"`
	Result ScoredResult `json:"result"`
}

// BestLifterCategory ranks athletes across weight classes by GL points.
// Categories below the award threshold are reported with Awarding false.
type BestLifterCategory struct {
	Key      BestLifterKey   `json:"key"`
	Awarding bool            `json:"awarding"`
	Athletes []BestLifterRow `json:"athletes"`
}

// Podium returns the medal rows of an awarding category.
func (c BestLifterCategory) Podium() []BestLifterRow {
	if !c.Awarding {
		return nil
	}
	if len(c.Athletes) > 3 {
		return c.Athletes[:3]
	}
	return c.Athletes
}

// Report is the full result set of a competition.
type Report struct {
	CompetitionID string               `json:"competition_id"`
	Event         shared.MeetEvent     `json:"event"`
	Groups        []Group              `json:"groups"`
	BestLifters   []BestLifterCategory `json:"best_lifters"`
}

// Placement is one athlete's place in one group, for team scoring.
type Placement struct {
	AthleteKey string               `json:"athlete_key"`
	AthleteID  string               `json:"athlete_id"`
	Name       string               `json:"name"`
	Team       string               `json:"team,omitempty"`
	Group      string               `json:"group"`
	Division   eligibility.Division `json:"division"`
	Place      int                  `json:"place"`
	Total      float64              `json:"total"`
	GLPoints   float64              `json:"gl_points"`
}

// Placements flattens groups into per-athlete placements.
func (r *Report) Placements() []Placement {
	var out []Placement
	for _, g := range r.Groups {
		key := g.Key.String()
		for _, res := range g.Results {
			out = append(out, Placement{
				AthleteKey: res.AthleteKey,
				AthleteID:  res.AthleteID,
				Name:       res.Name,
				Team:       res.Team,
				Group:      key,
				Division:   res.Division,
				Place:      res.Ranks.Total,
				Total:      res.Best.Total,
				GLPoints:   res.GLPoints,
			})
		}
	}
	return out
}

// FindGroup returns the group for a key.
func (r *Report) FindGroup(k GroupKey) (Group, bool) {
	for _, g := range r.Groups {
		if g.Key == k {
			return g, true
		}
	}
	return Group{}, false
}
