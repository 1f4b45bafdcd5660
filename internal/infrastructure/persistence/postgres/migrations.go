package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/powerlifting-fed/federation-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// Migration is one embedded schema step.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

const migrationsTable = "schema_migrations"

// Migrator applies embedded migrations in version order.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	log        *logger.Logger
}

// NewMigrator creates a migrator over the embedded migrations.
func NewMigrator(conn *Connection, log *logger.Logger) *Migrator {
	if log == nil {
		log = logger.Nop()
	}
	return &Migrator{conn: conn, migrations: GetMigrations(), log: log}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS `+migrationsTable+` (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Query(ctx, "SELECT version, applied_at FROM "+migrationsTable+" ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	out := make(map[int]time.Time)
	for rows.Next() {
		var (
			version   int
			appliedAt time.Time
		)
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		out[version] = appliedAt
	}
	return out, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, ok := done[mig.Version]; ok {
			continue
		}
		err := m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, "INSERT INTO "+migrationsTable+" (version, name) VALUES ($1, $2)", mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		m.log.Info("migration applied", logger.Int("version", mig.Version), logger.String("name", mig.Name))
	}
	return nil
}

// Rollback reverts the most recent migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return err
	}

	last := 0
	for v := range done {
		if v > last {
			last = v
		}
	}
	if last == 0 {
		return nil
	}

	var mig *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last {
			mig = &m.migrations[i]
		}
	}
	if mig == nil || mig.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, last)
	}

	return m.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, mig.DownSQL); err != nil {
			return fmt.Errorf("failed to roll back migration %d: %w", last, err)
		}
		_, err := tx.Exec(ctx, "DELETE FROM "+migrationsTable+" WHERE version = $1", last)
		return err
	})
}

// Status reports which migrations are applied.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Migration, len(m.migrations))
	copy(out, m.migrations)
	for i := range out {
		if at, ok := done[out[i].Version]; ok {
			out[i].IsApplied = true
			out[i].AppliedAt = at
		}
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EMBEDDED MIGRATIONS
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_roster", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_entries", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_records", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS athletes (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    national_id TEXT,
    team        TEXT,
    sex         CHAR(1) NOT NULL,
    birth_date  DATE,
    bodyweight  NUMERIC(6,2) NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT athletes_valid_sex CHECK (sex IN ('M', 'F')),
    CONSTRAINT athletes_valid_bodyweight CHECK (bodyweight >= 0)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_athletes_national_id ON athletes(national_id) WHERE national_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_athletes_team ON athletes(team);

CREATE TABLE IF NOT EXISTS competitions (
    id                  TEXT PRIMARY KEY,
    name                TEXT NOT NULL,
    type                TEXT,
    date                DATE NOT NULL,
    event               TEXT NOT NULL DEFAULT 'SBD',
    modality            TEXT NOT NULL,
    allows_bridging     BOOLEAN NOT NULL DEFAULT FALSE,
    registration_opens  TIMESTAMPTZ,
    registration_closes TIMESTAMPTZ,
    nomination_deadline TIMESTAMPTZ,
    base_fee            BIGINT NOT NULL DEFAULT 0,
    bridge_fee          BIGINT NOT NULL DEFAULT 0,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT competitions_valid_event CHECK (event IN ('SBD', 'B')),
    CONSTRAINT competitions_valid_modality CHECK (modality IN ('ClassicOnly', 'EquippedOnly', 'Both')),
    CONSTRAINT competitions_valid_fees CHECK (base_fee >= 0 AND bridge_fee >= 0)
);

CREATE INDEX IF NOT EXISTS idx_competitions_date ON competitions(date DESC);
`

const migration001Down = `
DROP TABLE IF EXISTS competitions;
DROP TABLE IF EXISTS athletes;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS entries (
    id             TEXT PRIMARY KEY,
    competition_id TEXT NOT NULL REFERENCES competitions(id) ON DELETE CASCADE,
    athlete_id     TEXT NOT NULL REFERENCES athletes(id),
    reg_order      INTEGER NOT NULL,
    weight_class   TEXT NOT NULL,
    division       TEXT NOT NULL,
    bridge         TEXT,
    equipment      TEXT NOT NULL,
    age            INTEGER NOT NULL,
    fee_base       BIGINT NOT NULL,
    fee_bridge     BIGINT NOT NULL DEFAULT 0,
    fee_total      BIGINT NOT NULL,
    declared_total NUMERIC(7,2) NOT NULL DEFAULT 0,
    bodyweight     NUMERIC(6,2) NOT NULL DEFAULT 0,
    attempts       JSONB NOT NULL DEFAULT '{}'::jsonb,
    registered_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CONSTRAINT entries_order_unique UNIQUE (competition_id, reg_order),
    CONSTRAINT entries_one_per_modality UNIQUE (competition_id, athlete_id, equipment),
    CONSTRAINT entries_valid_equipment CHECK (equipment IN ('Classic', 'Equipped')),
    CONSTRAINT entries_fee_sum CHECK (fee_total = fee_base + fee_bridge)
);

CREATE INDEX IF NOT EXISTS idx_entries_competition ON entries(competition_id, reg_order);
CREATE INDEX IF NOT EXISTS idx_entries_athlete ON entries(athlete_id);
`

const migration002Down = `
DROP TABLE IF EXISTS entries;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS records (
    dataset      TEXT NOT NULL,
    movement     TEXT NOT NULL,
    division     TEXT NOT NULL,
    sex          CHAR(1) NOT NULL,
    equipment    TEXT NOT NULL,
    weight_class TEXT NOT NULL,
    weight       NUMERIC(7,2) NOT NULL,
    athlete_name TEXT NOT NULL,
    team         TEXT,
    competition  TEXT,
    set_on       DATE,
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    PRIMARY KEY (dataset, movement, division, sex, equipment, weight_class),
    CONSTRAINT records_valid_movement CHECK (movement IN ('squat', 'bench', 'deadlift', 'total')),
    CONSTRAINT records_positive_weight CHECK (weight > 0)
);
`

const migration003Down = `
DROP TABLE IF EXISTS records;
`
