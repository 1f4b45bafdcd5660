package registration

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// AthleteRepository reads the federation roster.
type AthleteRepository interface {
	// GetByID returns shared.ErrAthleteNotFound when the athlete is unknown.
	GetByID(ctx context.Context, id string) (*Athlete, error)

	// Save creates or updates a roster row.
	Save(ctx context.Context, athlete *Athlete) error
}

// CompetitionRepository reads competition configuration.
type CompetitionRepository interface {
	// GetByID returns shared.ErrCompetitionNotFound when the competition is unknown.
	GetByID(ctx context.Context, id string) (*Competition, error)

	// Save creates or updates a competition.
	Save(ctx context.Context, comp *Competition) error
}

// EntryRepository stores registrations and their attempts.
type EntryRepository interface {
	// Create inserts an entry and assigns its registration Order.
	Create(ctx context.Context, entry *Entry) error

	// Update overwrites the assignment fields of an entry.
	Update(ctx context.Context, entry *Entry) error

	// UpdateAttempts stores attempts and the weigh-in bodyweight.
	UpdateAttempts(ctx context.Context, entryID string, bodyweight float64, attempts Attempts) error

	// GetByID returns shared.ErrEntryNotFound when the entry is unknown.
	GetByID(ctx context.Context, id string) (*Entry, error)

	// ListByCompetition returns all entries of a competition in registration order.
	ListByCompetition(ctx context.Context, competitionID string) ([]Entry, error)

	// ListByAthlete returns the athlete's entries in one competition.
	ListByAthlete(ctx context.Context, competitionID, athleteID string) ([]Entry, error)
}
