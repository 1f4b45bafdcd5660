package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/registration"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// EntryRepository implements registration.EntryRepository. Weight classes
// are stored by name and resolved against the rules on read.
type EntryRepository struct {
	conn  *Connection
	rules *eligibility.Rules
}

// NewEntryRepository creates a new EntryRepository. A nil rules value uses the defaults.
func NewEntryRepository(conn *Connection, rules *eligibility.Rules) *EntryRepository {
	if rules == nil {
		rules = eligibility.DefaultRules()
	}
	return &EntryRepository{conn: conn, rules: rules}
}

const entryColumns = `
	e.id, e.competition_id, e.reg_order, e.weight_class, e.division, e.bridge, e.equipment, e.age,
	e.fee_base, e.fee_bridge, e.fee_total, e.declared_total, e.bodyweight, e.attempts,
	e.registered_at, e.updated_at,
	a.id, a.name, a.national_id, a.team, a.sex, a.birth_date, a.bodyweight`

const entryFrom = `
	FROM entries e
	JOIN athletes a ON a.id = e.athlete_id`

// Create inserts an entry. The registration order is the next free slot in
// the competition; concurrent registrations are serialized per competition.
func (r *EntryRepository) Create(ctx context.Context, e *registration.Entry) error {
	attempts, err := json.Marshal(e.Attempts)
	if err != nil {
		return fmt.Errorf("failed to marshal attempts: %w", err)
	}

	return r.conn.WithRetryTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('entries:' || $1))`, e.CompetitionID); err != nil {
			return fmt.Errorf("failed to lock competition entries: %w", err)
		}

		asg := e.Assignment
		err := tx.QueryRow(ctx, `
			INSERT INTO entries (
				id, competition_id, athlete_id, reg_order, weight_class, division, bridge, equipment, age,
				fee_base, fee_bridge, fee_total, declared_total, bodyweight, attempts, registered_at, updated_at
			)
			SELECT $1, $2, $3, COALESCE(MAX(reg_order), 0) + 1, $4, $5, $6, $7, $8,
			       $9, $10, $11, $12, $13, $14, $15, $16
			FROM entries WHERE competition_id = $2
			RETURNING reg_order
		`,
			e.ID, e.CompetitionID, e.Athlete.ID,
			asg.WeightClass.Name, string(asg.Division), nullString(string(asg.Bridge)), string(asg.Equipment), asg.Age,
			int64(asg.Fee.Base), int64(asg.Fee.Bridge), int64(asg.Fee.Total),
			e.DeclaredTotal, e.Bodyweight, attempts, e.RegisteredAt, e.UpdatedAt,
		).Scan(&e.Order)
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.NewValidationError(shared.RuleDuplicateModality, "equipment",
					"athlete already has a %s entry in this competition", asg.Equipment)
			}
			if IsForeignKeyViolation(err) {
				return shared.WrapError("registration", "CreateEntry", shared.ErrNotFound, "unknown athlete or competition", err)
			}
			return fmt.Errorf("failed to create entry: %w", err)
		}
		return nil
	})
}

// Update overwrites the assignment fields of an entry.
func (r *EntryRepository) Update(ctx context.Context, e *registration.Entry) error {
	asg := e.Assignment
	tag, err := r.conn.Exec(ctx, `
		UPDATE entries SET
			weight_class = $2, division = $3, bridge = $4, equipment = $5, age = $6,
			fee_base = $7, fee_bridge = $8, fee_total = $9, declared_total = $10,
			updated_at = $11
		WHERE id = $1
	`,
		e.ID,
		asg.WeightClass.Name, string(asg.Division), nullString(string(asg.Bridge)), string(asg.Equipment), asg.Age,
		int64(asg.Fee.Base), int64(asg.Fee.Bridge), int64(asg.Fee.Total), e.DeclaredTotal,
		e.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewValidationError(shared.RuleDuplicateModality, "equipment",
				"athlete already has a %s entry in this competition", asg.Equipment)
		}
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

// UpdateAttempts stores attempts and the weigh-in bodyweight.
func (r *EntryRepository) UpdateAttempts(ctx context.Context, entryID string, bodyweight float64, attempts registration.Attempts) error {
	payload, err := json.Marshal(attempts)
	if err != nil {
		return fmt.Errorf("failed to marshal attempts: %w", err)
	}

	tag, err := r.conn.Exec(ctx, `
		UPDATE entries SET attempts = $2, bodyweight = $3, updated_at = NOW()
		WHERE id = $1
	`, entryID, payload, bodyweight)
	if err != nil {
		return fmt.Errorf("failed to update attempts: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrEntryNotFound
	}
	return nil
}

// GetByID returns one entry with its athlete.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*registration.Entry, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+entryColumns+entryFrom+` WHERE e.id = $1`, id)
	e, err := r.scanEntry(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

// ListByCompetition returns a competition's entries in registration order.
func (r *EntryRepository) ListByCompetition(ctx context.Context, competitionID string) ([]registration.Entry, error) {
	return r.list(ctx, `SELECT `+entryColumns+entryFrom+`
		WHERE e.competition_id = $1
		ORDER BY e.reg_order`, competitionID)
}

// ListByAthlete returns the athlete's entries in one competition.
func (r *EntryRepository) ListByAthlete(ctx context.Context, competitionID, athleteID string) ([]registration.Entry, error) {
	return r.list(ctx, `SELECT `+entryColumns+entryFrom+`
		WHERE e.competition_id = $1 AND e.athlete_id = $2
		ORDER BY e.reg_order`, competitionID, athleteID)
}

func (r *EntryRepository) list(ctx context.Context, query string, args ...any) ([]registration.Entry, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var out []registration.Entry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (r *EntryRepository) scanEntry(row pgx.Row) (*registration.Entry, error) {
	var (
		e                 registration.Entry
		class, division   string
		bridge            *string
		equipment         string
		feeBase, feeBr    int64
		feeTotal          int64
		attempts          []byte
		nationalID, team  *string
		sex               string
		birth             *time.Time
		registered, moved time.Time
	)
	err := row.Scan(
		&e.ID, &e.CompetitionID, &e.Order, &class, &division, &bridge, &equipment, &e.Assignment.Age,
		&feeBase, &feeBr, &feeTotal, &e.DeclaredTotal, &e.Bodyweight, &attempts,
		&registered, &moved,
		&e.Athlete.ID, &e.Athlete.Name, &nationalID, &team, &sex, &birth, &e.Athlete.Bodyweight,
	)
	if err != nil {
		return nil, err
	}

	e.Athlete.NationalID = fromNullString(nationalID)
	e.Athlete.Team = fromNullString(team)
	e.Athlete.Sex = shared.Sex(sex)
	e.Athlete.BirthDate = fromNullDate(birth)

	wc, ok := r.rules.FindClass(e.Athlete.Sex, class)
	if !ok {
		wc = eligibility.WeightClass{Name: class}
	}
	e.Assignment.WeightClass = wc
	e.Assignment.Division = eligibility.Division(division)
	e.Assignment.Bridge = eligibility.Division(fromNullString(bridge))
	e.Assignment.Equipment = shared.Equipment(equipment)
	e.Assignment.Fee = registration.Fee{
		Base:   shared.Money(feeBase),
		Bridge: shared.Money(feeBr),
		Total:  shared.Money(feeTotal),
	}
	if len(attempts) > 0 {
		if err := json.Unmarshal(attempts, &e.Attempts); err != nil {
			return nil, fmt.Errorf("failed to decode attempts: %w", err)
		}
	}
	e.RegisteredAt = registered.UTC()
	e.UpdatedAt = moved.UTC()
	return &e, nil
}
