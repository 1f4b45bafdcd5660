package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
	"github.com/powerlifting-fed/federation-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// ATHLETE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// AthleteRepository implements registration.AthleteRepository.
type AthleteRepository struct {
	conn *Connection
}

// NewAthleteRepository creates a new AthleteRepository.
func NewAthleteRepository(conn *Connection) *AthleteRepository {
	return &AthleteRepository{conn: conn}
}

// GetByID returns a roster row.
func (r *AthleteRepository) GetByID(ctx context.Context, id string) (*registration.Athlete, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT id, name, national_id, team, sex, birth_date, bodyweight
		FROM athletes
		WHERE id = $1
	`, id)

	a, err := scanAthlete(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAthleteNotFound
		}
		return nil, fmt.Errorf("failed to get athlete: %w", err)
	}
	return a, nil
}

// Save upserts a roster row.
func (r *AthleteRepository) Save(ctx context.Context, a *registration.Athlete) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO athletes (id, name, national_id, team, sex, birth_date, bodyweight)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			national_id = EXCLUDED.national_id,
			team = EXCLUDED.team,
			sex = EXCLUDED.sex,
			birth_date = EXCLUDED.birth_date,
			bodyweight = EXCLUDED.bodyweight,
			updated_at = NOW()
	`,
		a.ID,
		a.Name,
		nullString(a.NationalID),
		nullString(a.Team),
		string(a.Sex),
		nullTime(a.BirthDate),
		a.Bodyweight,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.WrapError("registration", "SaveAthlete", shared.ErrAlreadyExists, "national ID already registered", err)
		}
		return fmt.Errorf("failed to save athlete: %w", err)
	}
	return nil
}

func scanAthlete(row pgx.Row) (*registration.Athlete, error) {
	var (
		a          registration.Athlete
		nationalID *string
		team       *string
		sex        string
		birth      *time.Time
	)
	if err := row.Scan(&a.ID, &a.Name, &nationalID, &team, &sex, &birth, &a.Bodyweight); err != nil {
		return nil, err
	}
	a.NationalID = fromNullString(nationalID)
	a.Team = fromNullString(team)
	a.Sex = shared.Sex(sex)
	a.BirthDate = fromNullDate(birth)
	return &a, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPETITION REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// CompetitionRepository implements registration.CompetitionRepository.
type CompetitionRepository struct {
	conn *Connection
}

// NewCompetitionRepository creates a new CompetitionRepository.
func NewCompetitionRepository(conn *Connection) *CompetitionRepository {
	return &CompetitionRepository{conn: conn}
}

// GetByID returns a competition.
func (r *CompetitionRepository) GetByID(ctx context.Context, id string) (*registration.Competition, error) {
	var (
		c                       registration.Competition
		typ                     *string
		event, modality         string
		opens, closes, deadline *time.Time
		baseFee, bridgeFee      int64
	)
	err := r.conn.QueryRow(ctx, `
		SELECT id, name, type, date, event, modality, allows_bridging,
		       registration_opens, registration_closes, nomination_deadline,
		       base_fee, bridge_fee
		FROM competitions
		WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Name, &typ, &c.Date, &event, &modality, &c.AllowsBridging,
		&opens, &closes, &deadline,
		&baseFee, &bridgeFee,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCompetitionNotFound
		}
		return nil, fmt.Errorf("failed to get competition: %w", err)
	}

	c.Type = fromNullString(typ)
	c.Date = timeutil.CivilDate(c.Date)
	c.Event = shared.MeetEvent(event)
	c.Modality = shared.Modality(modality)
	c.RegistrationOpens = fromNullTime(opens)
	c.RegistrationCloses = fromNullTime(closes)
	c.NominationDeadline = fromNullTime(deadline)
	c.BaseFee = shared.Money(baseFee)
	c.BridgeFee = shared.Money(bridgeFee)
	return &c, nil
}

// Save upserts a competition.
func (r *CompetitionRepository) Save(ctx context.Context, c *registration.Competition) error {
	_, err := r.conn.Exec(ctx, `
		INSERT INTO competitions (
			id, name, type, date, event, modality, allows_bridging,
			registration_opens, registration_closes, nomination_deadline,
			base_fee, bridge_fee
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			date = EXCLUDED.date,
			event = EXCLUDED.event,
			modality = EXCLUDED.modality,
			allows_bridging = EXCLUDED.allows_bridging,
			registration_opens = EXCLUDED.registration_opens,
			registration_closes = EXCLUDED.registration_closes,
			nomination_deadline = EXCLUDED.nomination_deadline,
			base_fee = EXCLUDED.base_fee,
			bridge_fee = EXCLUDED.bridge_fee,
			updated_at = NOW()
	`,
		c.ID, c.Name, nullString(c.Type), c.Date, string(c.MeetEvent()), string(c.Modality), c.AllowsBridging,
		nullTime(c.RegistrationOpens), nullTime(c.RegistrationCloses), nullTime(c.NominationDeadline),
		int64(c.BaseFee), int64(c.BridgeFee),
	)
	if err != nil {
		return fmt.Errorf("failed to save competition: %w", err)
	}
	return nil
}
