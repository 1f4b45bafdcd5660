// Package results turns entries with attempts into ranked, scored result
// sets: per-lift bests, per-category rankings and Best Lifter categories.
package results

import (
	"sort"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/scoring"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// DefaultMinAwardAthletes is the smallest Best Lifter field that awards medals.
const DefaultMinAwardAthletes = 3

// Options tunes aggregation.
type Options struct {
	// Event is the competition's scored event.
	Event shared.MeetEvent

	// SplitByWeightClass adds the weight class to the group key.
	SplitByWeightClass bool

	// MinAwardAthletes is the Best Lifter award threshold.
	MinAwardAthletes int

	Formula *scoring.Formula
	Rules   *eligibility.Rules
}

// DefaultOptions returns full-power aggregation with the published formula.
func DefaultOptions() Options {
	return Options{
		Event:            shared.MeetFullPower,
		MinAwardAthletes: DefaultMinAwardAthletes,
	}
}

// Aggregator computes result reports.
type Aggregator struct {
	opts Options
	// divisionOrder ranks divisions for stable report ordering.
	divisionOrder map[eligibility.Division]int
}

// NewAggregator creates an Aggregator, filling unset options with defaults.
func NewAggregator(opts Options) *Aggregator {
	if !opts.Event.IsValid() {
		opts.Event = shared.MeetFullPower
	}
	if opts.MinAwardAthletes <= 0 {
		opts.MinAwardAthletes = DefaultMinAwardAthletes
	}
	if opts.Formula == nil {
		opts.Formula = scoring.Default()
	}
	if opts.Rules == nil {
		opts.Rules = eligibility.DefaultRules()
	}

	order := make(map[eligibility.Division]int, len(opts.Rules.Divisions))
	for i, d := range opts.Rules.Divisions {
		order[d.Division] = i
	}
	return &Aggregator{opts: opts, divisionOrder: order}
}

// Aggregate scores and ranks entries of one competition.
func (a *Aggregator) Aggregate(entries []registration.Entry) *Report {
	rows := a.score(entries)

	report := &Report{Event: a.opts.Event}
	report.Groups = a.group(rows)
	report.BestLifters = a.bestLifters(rows)
	return report
}

// score expands each entry into one row per division it competes in.
func (a *Aggregator) score(entries []registration.Entry) []ScoredResult {
	rows := make([]ScoredResult, 0, len(entries))
	for _, e := range entries {
		best := Bests(e.Attempts, a.opts.Event)
		bw := e.EffectiveBodyweight()
		asg := e.Assignment

		points := a.opts.Formula.Points(best.Total, bw, e.Athlete.Sex, asg.Equipment, a.opts.Event)

		for _, div := range asg.Divisions() {
			rows = append(rows, ScoredResult{
				EntryID:     e.ID,
				AthleteID:   e.Athlete.ID,
				AthleteKey:  e.Athlete.Identity(),
				Name:        e.Athlete.Name,
				Team:        e.Athlete.Team,
				Sex:         e.Athlete.Sex,
				Equipment:   asg.Equipment,
				Division:    div,
				WeightClass: asg.WeightClass.Name,
				Bodyweight:  bw,
				Order:       e.Order,
				Bridged:     asg.HasBridge(),
				Best:        best,
				GLPoints:    points,
				classLimit:  classSortKey(asg.WeightClass),
			})
		}
	}
	return rows
}

func (a *Aggregator) group(rows []ScoredResult) []Group {
	byKey := make(map[GroupKey][]ScoredResult)
	var keys []GroupKey

	for _, r := range rows {
		k := GroupKey{Division: r.Division, Equipment: r.Equipment, Sex: r.Sex}
		if a.opts.SplitByWeightClass {
			k.WeightClass = r.WeightClass
		}
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], r)
	}

	groups := make([]Group, 0, len(keys))
	for _, k := range keys {
		members := dedupe(byKey[k], func(x, y ScoredResult) bool {
			return outranks(x.Best.Total, y.Best.Total, x, y)
		})
		rankGroup(members)
		groups = append(groups, Group{Key: k, Results: members})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return a.keyLess(groups[i].Key, groups[j].Key, groups[i].classLimit(), groups[j].classLimit())
	})
	return groups
}

func (a *Aggregator) bestLifters(rows []ScoredResult) []BestLifterCategory {
	byKey := make(map[BestLifterKey][]ScoredResult)
	var keys []BestLifterKey

	for _, r := range rows {
		k := BestLifterKey{Sex: r.Sex, Equipment: r.Equipment, Division: r.Division, Event: a.opts.Event}
		if _, ok := byKey[k]; !ok {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], r)
	}

	cats := make([]BestLifterCategory, 0, len(keys))
	for _, k := range keys {
		athletes := dedupe(byKey[k], func(x, y ScoredResult) bool {
			return outranks(x.GLPoints, y.GLPoints, x, y)
		})
		sort.SliceStable(athletes, func(i, j int) bool {
			return outranks(athletes[i].GLPoints, athletes[j].GLPoints, athletes[i], athletes[j])
		})

		placed := make([]BestLifterRow, len(athletes))
		for i, r := range athletes {
			placed[i] = BestLifterRow{Place: i + 1, Result: r}
		}
		cats = append(cats, BestLifterCategory{
			Key:      k,
			Awarding: len(athletes) >= a.opts.MinAwardAthletes,
			Athletes: placed,
		})
	}

	sort.SliceStable(cats, func(i, j int) bool {
		gi := GroupKey{Division: cats[i].Key.Division, Equipment: cats[i].Key.Equipment, Sex: cats[i].Key.Sex}
		gj := GroupKey{Division: cats[j].Key.Division, Equipment: cats[j].Key.Equipment, Sex: cats[j].Key.Sex}
		return a.keyLess(gi, gj, 0, 0)
	})
	return cats
}

// keyLess orders groups by sex, equipment, division, then class.
func (a *Aggregator) keyLess(x, y GroupKey, xLimit, yLimit float64) bool {
	if x.Sex != y.Sex {
		return x.Sex < y.Sex
	}
	if x.Equipment != y.Equipment {
		return x.Equipment < y.Equipment
	}
	if x.Division != y.Division {
		return a.divisionOrder[x.Division] < a.divisionOrder[y.Division]
	}
	return xLimit < yLimit
}

// rankGroup assigns 1-based per-lift and total ranks, then orders the
// group by total rank.
func rankGroup(members []ScoredResult) {
	lifts := []struct {
		value func(ScoredResult) float64
		set   func(*ScoredResult, int)
	}{
		{func(r ScoredResult) float64 { return r.Best.Squat }, func(r *ScoredResult, n int) { r.Ranks.Squat = n }},
		{func(r ScoredResult) float64 { return r.Best.Bench }, func(r *ScoredResult, n int) { r.Ranks.Bench = n }},
		{func(r ScoredResult) float64 { return r.Best.Deadlift }, func(r *ScoredResult, n int) { r.Ranks.Deadlift = n }},
		{func(r ScoredResult) float64 { return r.Best.Total }, func(r *ScoredResult, n int) { r.Ranks.Total = n }},
	}

	idx := make([]int, len(members))
	for _, l := range lifts {
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool {
			x, y := members[idx[i]], members[idx[j]]
			return outranks(l.value(x), l.value(y), x, y)
		})
		for pos, i := range idx {
			l.set(&members[i], pos+1)
		}
	}

	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Ranks.Total < members[j].Ranks.Total
	})
}

// outranks orders by value descending; equal values go to the lighter
// athlete, then the earlier registration.
func outranks(xv, yv float64, x, y ScoredResult) bool {
	if xv != yv {
		return xv > yv
	}
	if x.Bodyweight != y.Bodyweight {
		return x.Bodyweight < y.Bodyweight
	}
	if x.Order != y.Order {
		return x.Order < y.Order
	}
	return x.EntryID < y.EntryID
}

// dedupe keeps one row per physical athlete, preferring the row for which
// better reports true. First-seen order is preserved.
func dedupe(rows []ScoredResult, better func(x, y ScoredResult) bool) []ScoredResult {
	pos := make(map[string]int, len(rows))
	out := make([]ScoredResult, 0, len(rows))
	for _, r := range rows {
		if i, ok := pos[r.AthleteKey]; ok {
			if better(r, out[i]) {
				out[i] = r
			}
			continue
		}
		pos[r.AthleteKey] = len(out)
		out = append(out, r)
	}
	return out
}

func classSortKey(wc eligibility.WeightClass) float64 {
	if wc.OpenEnded {
		return wc.Limit + 0.5
	}
	return wc.Limit
}
