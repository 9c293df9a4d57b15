package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Migration is a single forward schema change.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

const migrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const migration001Progress = `
CREATE TABLE IF NOT EXISTS knowledge_levels (
    student_id UUID NOT NULL,
    topic_id   TEXT NOT NULL,
    level      SMALLINT NOT NULL CHECK (level BETWEEN 0 AND 5),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (student_id, topic_id)
);

CREATE TABLE IF NOT EXISTS objective_checks (
    student_id   UUID NOT NULL,
    topic_id     TEXT NOT NULL,
    objective_id TEXT NOT NULL,
    checked_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (student_id, topic_id, objective_id)
);

CREATE TABLE IF NOT EXISTS study_events (
    id         UUID PRIMARY KEY,
    student_id UUID NOT NULL,
    topic_id   TEXT NOT NULL,
    source     TEXT NOT NULL CHECK (source IN ('daily_log', 'topic_review')),
    minutes    INTEGER NOT NULL DEFAULT 0,
    studied_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_study_events_student_topic ON study_events(student_id, topic_id, studied_at DESC);

CREATE TABLE IF NOT EXISTS exam_results (
    id           UUID PRIMARY KEY,
    student_id   UUID NOT NULL,
    exam_type_id TEXT NOT NULL,
    name         TEXT NOT NULL DEFAULT '',
    taken_at     TIMESTAMPTZ NOT NULL,
    correct      INTEGER NOT NULL DEFAULT 0,
    wrong        INTEGER NOT NULL DEFAULT 0,
    blank        INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_exam_results_student ON exam_results(student_id, taken_at DESC);

CREATE TABLE IF NOT EXISTS wrong_answers (
    id          UUID PRIMARY KEY,
    student_id  UUID NOT NULL,
    exam_id     UUID NOT NULL REFERENCES exam_results(id) ON DELETE CASCADE,
    topic_id    TEXT NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_wrong_answers_student_topic ON wrong_answers(student_id, topic_id);

CREATE TABLE IF NOT EXISTS student_profiles (
    student_id          UUID PRIMARY KEY,
    daily_study_hours   DOUBLE PRECISION NOT NULL DEFAULT 0,
    available_days      SMALLINT[] NOT NULL DEFAULT '{}',
    break_preference    TEXT NOT NULL DEFAULT 'medium',
    regularity          TEXT NOT NULL DEFAULT '',
    target_rank         INTEGER,
    exam_date           DATE,
    weekly_target_hours DOUBLE PRECISION,
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const migration002Plans = `
CREATE TABLE IF NOT EXISTS weekly_plans (
    id          UUID PRIMARY KEY,
    student_id  UUID NOT NULL,
    title       TEXT NOT NULL,
    start_date  DATE NOT NULL,
    end_date    DATE NOT NULL,
    explanation TEXT NOT NULL DEFAULT '',
    source      TEXT NOT NULL DEFAULT 'manual',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_weekly_plans_student ON weekly_plans(student_id, start_date DESC);

CREATE TABLE IF NOT EXISTS plan_items (
    id               UUID PRIMARY KEY,
    plan_id          UUID NOT NULL REFERENCES weekly_plans(id) ON DELETE CASCADE,
    day_of_week      SMALLINT NOT NULL CHECK (day_of_week BETWEEN 0 AND 6),
    subject_id       TEXT NOT NULL,
    topic_id         TEXT,
    duration_minutes INTEGER NOT NULL,
    notes            TEXT NOT NULL DEFAULT '',
    sort_order       INTEGER NOT NULL DEFAULT 0,
    completed        BOOLEAN NOT NULL DEFAULT FALSE,
    completed_at     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_plan_items_plan ON plan_items(plan_id, day_of_week, sort_order)`

// Migrations returns the schema migrations in version order.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "progress", UpSQL: migration001Progress},
		{Version: 2, Name: "weekly_plans", UpSQL: migration002Plans},
	}
}

// Migrate applies every pending migration, each in its own transaction.
// It returns the number of migrations applied.
func (db *DB) Migrate(ctx context.Context) (int, error) {
	return Migrate(ctx, db.Pool)
}

// MigrationTarget is a connection that can run DDL and start transactions.
type MigrationTarget interface {
	Querier
	TxBeginner
}

// Migrate applies pending migrations on target.
func Migrate(ctx context.Context, target MigrationTarget) (int, error) {
	if _, err := target.Exec(ctx, migrationsTable); err != nil {
		return 0, fmt.Errorf("creating migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := target.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return 0, fmt.Errorf("listing applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning migration version: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("listing applied migrations: %w", err)
	}

	count := 0
	for _, m := range Migrations() {
		if applied[m.Version] {
			continue
		}
		err := WithTx(ctx, target, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("applying migration %d (%s): %w", m.Version, m.Name, err)
		}
		count++
	}
	return count, nil
}
