package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/powerlifting-fed/federation-hub/internal/domain/eligibility"
	"github.com/powerlifting-fed/federation-hub/internal/domain/records"
	"github.com/powerlifting-fed/federation-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD REPOSITORY
// One writer per dataset: Apply takes a transaction-scoped advisory lock
// keyed by dataset, and fails with ErrImportBusy when another writer holds it.
// ══════════════════════════════════════════════════════════════════════════════

// RecordRepository implements records.Repository.
type RecordRepository struct {
	conn *Connection
}

// NewRecordRepository creates a new RecordRepository.
func NewRecordRepository(conn *Connection) *RecordRepository {
	return &RecordRepository{conn: conn}
}

const recordColumns = `movement, division, sex, equipment, weight_class, weight, athlete_name, team, competition, set_on`

// Apply loads the dataset, runs fn and upserts every changed record in one
// transaction.
func (r *RecordRepository) Apply(ctx context.Context, dataset string, fn func(*records.Book) error) error {
	return r.conn.WithRetryTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		var locked bool
		if err := tx.QueryRow(ctx, `SELECT pg_try_advisory_xact_lock(hashtext('records:' || $1))`, dataset).Scan(&locked); err != nil {
			return fmt.Errorf("failed to lock record book: %w", err)
		}
		if !locked {
			return shared.ErrImportBusy
		}

		existing, err := queryRecords(ctx, tx, `SELECT `+recordColumns+` FROM records WHERE dataset = $1`, dataset)
		if err != nil {
			return err
		}

		book := records.NewBook(existing)
		if err := fn(book); err != nil {
			return err
		}

		changed := book.Changed()
		if len(changed) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, rec := range changed {
			k := rec.Key
			batch.Queue(`
				INSERT INTO records (dataset, `+recordColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				ON CONFLICT (dataset, movement, division, sex, equipment, weight_class) DO UPDATE SET
					weight = EXCLUDED.weight,
					athlete_name = EXCLUDED.athlete_name,
					team = EXCLUDED.team,
					competition = EXCLUDED.competition,
					set_on = EXCLUDED.set_on,
					updated_at = NOW()
				WHERE records.weight < EXCLUDED.weight
			`,
				dataset,
				string(k.Movement), string(k.Division), string(k.Sex), string(k.Equipment), k.WeightClass,
				rec.Weight, rec.AthleteName, nullString(rec.Team), nullString(rec.Competition), nullTime(rec.Date),
			)
		}

		br := tx.SendBatch(ctx, batch)
		for range changed {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("failed to upsert record: %w", err)
			}
		}
		return br.Close()
	})
}

// List returns records matching the filter, ordered by key.
func (r *RecordRepository) List(ctx context.Context, dataset string, f records.Filter) ([]records.Record, error) {
	where := []string{"dataset = $1"}
	args := []any{dataset}
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		where = append(where, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("movement", f.Movement)
	add("division", f.Division)
	add("sex", f.Sex)
	add("equipment", f.Equipment)
	add("weight_class", f.WeightClass)

	recs, err := queryRecords(ctx, r.conn.Pool(),
		`SELECT `+recordColumns+` FROM records WHERE `+strings.Join(where, " AND "),
		args...)
	if err != nil {
		return nil, err
	}
	// Key order is the string form, which SQL collation may not match.
	return records.NewBook(recs).All(), nil
}

func queryRecords(ctx context.Context, q Querier, query string, args ...any) ([]records.Record, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var out []records.Record
	for rows.Next() {
		var (
			rec                                records.Record
			movement, division, sex, equip, wc string
			team, competition                  *string
			setOn                              *time.Time
		)
		if err := rows.Scan(&movement, &division, &sex, &equip, &wc, &rec.Weight, &rec.AthleteName, &team, &competition, &setOn); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Key = records.Key{
			Movement:    shared.Movement(movement),
			Division:    eligibility.Division(division),
			Sex:         shared.Sex(sex),
			Equipment:   shared.Equipment(equip),
			WeightClass: wc,
		}
		rec.Team = fromNullString(team)
		rec.Competition = fromNullString(competition)
		rec.Date = fromNullDate(setOn)
		out = append(out, rec)
	}
	return out, rows.Err()
}
