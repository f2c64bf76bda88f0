package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// migrations is the ordered schema. Entries are append-only: the index is the
// version recorded in schema_migrations.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT        NOT NULL,
		email         TEXT        NOT NULL,
		mobile        TEXT        NOT NULL,
		designation   TEXT        NOT NULL CHECK (designation IN ('Admin', 'Telecaller', 'BDE', 'Digital Marketer')),
		status        TEXT        NOT NULL DEFAULT 'Active' CHECK (status IN ('Active', 'Deactive')),
		city_ids      BIGINT[]    NOT NULL DEFAULT '{}',
		category_ids  BIGINT[]    NOT NULL DEFAULT '{}',
		password_hash TEXT        NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_email_key UNIQUE (email)
	)`,
	`CREATE TABLE IF NOT EXISTS user_targets (
		user_id     BIGINT  NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		month       INTEGER NOT NULL CHECK (month BETWEEN 1 AND 12),
		year        INTEGER NOT NULL,
		target      INTEGER NOT NULL DEFAULT 0,
		achievement INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (user_id, month, year)
	)`,
	`CREATE TABLE IF NOT EXISTS user_sessions (
		id         TEXT        PRIMARY KEY,
		user_id    BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL,
		expires_at TIMESTAMPTZ NOT NULL,
		ip         TEXT,
		ua         TEXT
	)`,
	lookupTable("categories"),
	lookupTable("cities"),
	lookupTable("sources"),
	`CREATE TABLE IF NOT EXISTS leads (
		id               BIGSERIAL PRIMARY KEY,
		name             TEXT        NOT NULL,
		contact_person   TEXT        NOT NULL DEFAULT '',
		mobile           TEXT        NOT NULL,
		remarks          TEXT        NOT NULL DEFAULT '',
		city_id          BIGINT      NOT NULL REFERENCES cities(id),
		category_id      BIGINT      NOT NULL REFERENCES categories(id),
		source_id        BIGINT      NOT NULL REFERENCES sources(id),
		status           TEXT        NOT NULL,
		follow_up_date   TIMESTAMPTZ,
		appointment_date TIMESTAMPTZ,
		appoint_to       BIGINT      REFERENCES users(id) ON DELETE SET NULL,
		lead_by          BIGINT      NOT NULL REFERENCES users(id),
		created_by       BIGINT      NOT NULL REFERENCES users(id),
		visit_result     JSONB,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT leads_mobile_key UNIQUE (mobile)
	)`,
	`CREATE INDEX IF NOT EXISTS leads_created_at_idx ON leads (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS leads_follow_up_date_idx ON leads (follow_up_date) WHERE follow_up_date IS NOT NULL`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          BIGSERIAL PRIMARY KEY,
		actor_id    BIGINT      NOT NULL,
		action      TEXT        NOT NULL,
		entity      TEXT        NOT NULL,
		entity_id   TEXT        NOT NULL,
		meta        JSONB       NOT NULL DEFAULT '{}',
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func lookupTable(name string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %[1]s (
		id         BIGSERIAL PRIMARY KEY,
		name       TEXT        NOT NULL,
		is_active  BOOLEAN     NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT %[1]s_name_key UNIQUE (name)
	)`, name)
}

// Migrate applies every migration newer than the recorded version. Each one
// runs in its own transaction together with its version row.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER     PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`); err != nil {
		return 0, fmt.Errorf("platform/db: schema_migrations: %w", err)
	}
	var current int
	if err := pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return 0, fmt.Errorf("platform/db: read version: %w", err)
	}
	applied := 0
	for i := current; i < len(migrations); i++ {
		version := i + 1
		err := WithTx(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, migrations[i]); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("platform/db: migration %d: %w", version, err)
		}
		applied++
	}
	return applied, nil
}
