package query

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/records"
	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/results"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

type memCompetitions struct{ byID map[string]registration.Competition }

func (m *memCompetitions) GetByID(_ context.Context, id string) (*registration.Competition, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrCompetitionNotFound
	}
	return &c, nil
}

func (m *memCompetitions) Save(_ context.Context, c *registration.Competition) error {
	m.byID[c.ID] = *c
	return nil
}

type memEntries struct {
	entries []registration.Entry
	lists   int
}

func (m *memEntries) Create(context.Context, *registration.Entry) error { return nil }
func (m *memEntries) Update(context.Context, *registration.Entry) error { return nil }
func (m *memEntries) UpdateAttempts(context.Context, string, float64, registration.Attempts) error {
	return nil
}

func (m *memEntries) GetByID(_ context.Context, id string) (*registration.Entry, error) {
	for _, e := range m.entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, shared.ErrEntryNotFound
}

func (m *memEntries) ListByCompetition(_ context.Context, competitionID string) ([]registration.Entry, error) {
	m.lists++
	var out []registration.Entry
	for _, e := range m.entries {
		if e.CompetitionID == competitionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEntries) ListByAthlete(context.Context, string, string) ([]registration.Entry, error) {
	return nil, nil
}

type memCache struct {
	mu      sync.Mutex
	reports map[string]*results.Report
	failGet bool
}

func newMemCache() *memCache {
	return &memCache{reports: make(map[string]*results.Report)}
}

func cacheKey(id string, split bool) string {
	if split {
		return id + ":split"
	}
	return id
}

func (c *memCache) GetReport(_ context.Context, id string, split bool) (*results.Report, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, errors.New("cache down")
	}
	return c.reports[cacheKey(id, split)], nil
}

func (c *memCache) SetReport(_ context.Context, r *results.Report, split bool, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[cacheKey(r.CompetitionID, split)] = r
	return nil
}

func (c *memCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reports, cacheKey(id, false))
	delete(c.reports, cacheKey(id, true))
	return nil
}

type memRecords struct{ recs []records.Record }

func (m *memRecords) Apply(context.Context, string, func(*records.Book) error) error { return nil }

func (m *memRecords) List(_ context.Context, _ string, f records.Filter) ([]records.Record, error) {
	var out []records.Record
	for _, r := range m.recs {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

const compID = "regionals-2025"

func lifter(order int, name, team string, sex shared.Sex, class string, bw, total float64) registration.Entry {
	limit := bw + 1
	return registration.Entry{
		ID:            name,
		CompetitionID: compID,
		Order:         order,
		Athlete:       registration.Athlete{ID: name, Name: name, Team: team, Sex: sex},
		Assignment: registration.Assignment{
			WeightClass: eligibility.WeightClass{Name: class, Limit: limit},
			Division:    eligibility.Open,
			Equipment:   shared.EquipmentClassic,
		},
		Bodyweight: bw,
		Attempts: registration.Attempts{
			Squat:    [3]float64{total * 35 / 100},
			Bench:    [3]float64{total * 25 / 100},
			Deadlift: [3]float64{total * 40 / 100},
		},
	}
}

func resultsFixture(entries ...registration.Entry) (*memCompetitions, *memEntries) {
	comps := &memCompetitions{byID: map[string]registration.Competition{
		compID: {ID: compID, Name: "Regionals", Date: timeutil.Date(2025, 5, 10), Event: shared.MeetFullPower, Modality: shared.ModalityClassicOnly},
	}}
	return comps, &memEntries{entries: entries}
}
