package records

import (
	"time"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/results"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// MeetInfo describes the competition marks were set at.
type MeetInfo struct {
	Name string
	Date time.Time
}

// CandidatesFromReport derives record candidates from a result report: one
// per lift with a positive best, per division the athlete competed in.
// Guest marks are not record-eligible. Bench-only meets only produce bench
// candidates. Each (athlete, division, equipment) is emitted once.
func CandidatesFromReport(report *results.Report, meet MeetInfo) []Candidate {
	movements := shared.AllMovements()
	if report.Event == shared.MeetBenchOnly {
		movements = []shared.Movement{shared.MovementBench}
	}

	type seenKey struct {
		athlete  string
		division eligibility.Division
		equip    shared.Equipment
	}
	seen := make(map[seenKey]bool)

	var out []Candidate
	for _, g := range report.Groups {
		if g.Key.Division == eligibility.Guest {
			continue
		}
		for _, r := range g.Results {
			sk := seenKey{athlete: r.AthleteKey, division: r.Division, equip: r.Equipment}
			if seen[sk] {
				continue
			}
			seen[sk] = true

			for _, m := range movements {
				w := r.Best.Of(m)
				if w <= 0 {
					continue
				}
				out = append(out, Candidate{
					Movement:    string(m),
					Division:    string(r.Division),
					Sex:         string(r.Sex),
					Equipment:   string(r.Equipment),
					WeightClass: r.WeightClass,
					Weight:      w,
					AthleteName: r.Name,
					Team:        r.Team,
					Competition: meet.Name,
					Date:        meet.Date,
				})
			}
		}
	}

	for i := range out {
		out[i].Row = i + 1
	}
	return out
}
