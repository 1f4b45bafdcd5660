package command

import (
	"context"
	"sync"
	"time"

	"github.com/powerlifting-fed/federation-hub/internal/domain/records"
	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

type memAthletes struct{ byID map[string]registration.Athlete }

func (m *memAthletes) GetByID(_ context.Context, id string) (*registration.Athlete, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, shared.ErrAthleteNotFound
	}
	return &a, nil
}

func (m *memAthletes) Save(_ context.Context, a *registration.Athlete) error {
	m.byID[a.ID] = *a
	return nil
}

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
	mu      sync.Mutex
	entries []registration.Entry
}

func (m *memEntries) Create(_ context.Context, e *registration.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.Order = len(m.entries) + 1
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memEntries) Update(_ context.Context, e *registration.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == e.ID {
			m.entries[i] = *e
			return nil
		}
	}
	return shared.ErrEntryNotFound
}

func (m *memEntries) UpdateAttempts(_ context.Context, id string, bw float64, a registration.Attempts) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].ID == id {
			m.entries[i].Bodyweight = bw
			m.entries[i].Attempts = a
			return nil
		}
	}
	return shared.ErrEntryNotFound
}

func (m *memEntries) GetByID(_ context.Context, id string) (*registration.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, shared.ErrEntryNotFound
}

func (m *memEntries) ListByCompetition(_ context.Context, competitionID string) ([]registration.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []registration.Entry
	for _, e := range m.entries {
		if e.CompetitionID == competitionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memEntries) ListByAthlete(_ context.Context, competitionID, athleteID string) ([]registration.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []registration.Entry
	for _, e := range m.entries {
		if e.CompetitionID == competitionID && e.Athlete.ID == athleteID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memRecords struct {
	mu   sync.Mutex
	sets map[string][]records.Record
}

func newMemRecords() *memRecords {
	return &memRecords{sets: make(map[string][]records.Record)}
}

func (m *memRecords) Apply(_ context.Context, dataset string, fn func(*records.Book) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	book := records.NewBook(m.sets[dataset])
	if err := fn(book); err != nil {
		return err
	}
	m.sets[dataset] = book.All()
	return nil
}

func (m *memRecords) List(_ context.Context, dataset string, f records.Filter) ([]records.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []records.Record
	for _, r := range m.sets[dataset] {
		if f.Matches(r) {
			out = append(out, r)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	athletes     *memAthletes
	competitions *memCompetitions
	entries      *memEntries
	publisher    *recordingPublisher
}

func newFixture() *fixture {
	comp := registration.Competition{
		ID:                 "nationals-2025",
		Name:               "Nationals 2025",
		Date:               timeutil.Date(2025, 9, 20),
		Event:              shared.MeetFullPower,
		Modality:           shared.ModalityBoth,
		AllowsBridging:     true,
		RegistrationOpens:  timeutil.Date(2025, 6, 1),
		RegistrationCloses: timeutil.Date(2025, 9, 1),
		NominationDeadline: timeutil.Date(2025, 9, 1),
		BaseFee:            15000,
		BridgeFee:          5000,
	}
	athlete := registration.Athlete{
		ID:         "ath-1",
		Name:       "Marta Silva",
		Sex:        shared.SexFemale,
		BirthDate:  timeutil.Date(1980, 3, 2),
		Bodyweight: 62.4,
		Team:       "Iron Lisbon",
	}
	return &fixture{
		athletes:     &memAthletes{byID: map[string]registration.Athlete{athlete.ID: athlete}},
		competitions: &memCompetitions{byID: map[string]registration.Competition{comp.ID: comp}},
		entries:      &memEntries{},
		publisher:    &recordingPublisher{},
	}
}

func fixedClock(y, m, d int) func() time.Time {
	t := timeutil.Date(y, m, d)
	return func() time.Time { return t }
}
