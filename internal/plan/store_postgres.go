package plan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/planner"
	"github.com/p-n-ai/pai-study/internal/platform/database"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a PostgreSQL-backed plan store.
func NewPostgresStore(db *database.DB) (*PostgresStore, error) {
	if db == nil || db.Pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreatePlan(ctx context.Context, p Plan) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO weekly_plans (id, student_id, title, start_date, end_date, explanation, source, created_at, updated_at)
			 VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8, $9)`,
			p.ID, p.StudentID, p.Title, dateOf(p.StartDate), dateOf(p.EndDate),
			p.Explanation, string(p.Source), p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert plan: %w", err)
		}
		return insertItems(ctx, tx, p.Items)
	})
}

func (s *PostgresStore) ReplacePlan(ctx context.Context, p Plan) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE weekly_plans
			 SET title = $3, start_date = $4, end_date = $5, explanation = $6, source = $7, updated_at = $8
			 WHERE id = $1::uuid AND student_id = $2::uuid`,
			p.ID, p.StudentID, p.Title, dateOf(p.StartDate), dateOf(p.EndDate),
			p.Explanation, string(p.Source), p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update plan: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("plan.ReplacePlan", "plan not found")
		}
		if _, err := tx.Exec(ctx, `DELETE FROM plan_items WHERE plan_id = $1::uuid`, p.ID); err != nil {
			return fmt.Errorf("delete plan items: %w", err)
		}
		return insertItems(ctx, tx, p.Items)
	})
}

func insertItems(ctx context.Context, tx pgx.Tx, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(
			`INSERT INTO plan_items (id, plan_id, day_of_week, subject_id, topic_id, duration_minutes, notes, sort_order, completed, completed_at)
			 VALUES ($1::uuid, $2::uuid, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)`,
			it.ID, it.PlanID, it.DayOfWeek, it.SubjectID, it.TopicID, it.DurationMinutes,
			it.Notes, it.SortOrder, it.Completed, it.CompletedAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert plan items: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPlan(ctx context.Context, studentID, planID string) (Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, planQuery+` WHERE id = $1::uuid AND student_id = $2::uuid`, planID, studentID)
	if err != nil {
		return Plan{}, fmt.Errorf("get plan: %w", err)
	}
	plans, err := s.collect(ctx, rows)
	if err != nil {
		return Plan{}, err
	}
	if len(plans) == 0 {
		return Plan{}, apperr.NotFound("plan.GetPlan", "plan not found")
	}
	return plans[0], nil
}

func (s *PostgresStore) ListPlans(ctx context.Context, studentID string) ([]Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, planQuery+` WHERE student_id = $1::uuid ORDER BY start_date DESC, id`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return s.collect(ctx, rows)
}

const planQuery = `SELECT id::text, student_id::text, title, start_date, end_date, explanation, source, created_at, updated_at
	FROM weekly_plans`

// collect scans plan headers and loads their items with one extra query.
func (s *PostgresStore) collect(ctx context.Context, rows pgx.Rows) ([]Plan, error) {
	plans, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Plan, error) {
		var p Plan
		var start, end pgtype.Date
		var source string
		err := row.Scan(&p.ID, &p.StudentID, &p.Title, &start, &end, &p.Explanation, &source, &p.CreatedAt, &p.UpdatedAt)
		p.StartDate, p.EndDate = start.Time, end.Time
		p.Source = planner.Source(source)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan plans: %w", err)
	}
	if len(plans) == 0 {
		return plans, nil
	}

	ids := make([]string, len(plans))
	index := make(map[string]int, len(plans))
	for i, p := range plans {
		ids[i] = p.ID
		index[p.ID] = i
		plans[i].Items = []Item{}
	}

	itemRows, err := s.db.Pool.Query(ctx,
		`SELECT id::text, plan_id::text, day_of_week, subject_id, COALESCE(topic_id, ''), duration_minutes,
		        notes, sort_order, completed, completed_at
		 FROM plan_items
		 WHERE plan_id = ANY($1::uuid[])
		 ORDER BY day_of_week, sort_order, id`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("list plan items: %w", err)
	}
	items, err := pgx.CollectRows(itemRows, func(row pgx.CollectableRow) (Item, error) {
		var it Item
		var day int16
		err := row.Scan(&it.ID, &it.PlanID, &day, &it.SubjectID, &it.TopicID, &it.DurationMinutes,
			&it.Notes, &it.SortOrder, &it.Completed, &it.CompletedAt)
		it.DayOfWeek = int(day)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan plan items: %w", err)
	}
	for _, it := range items {
		i := index[it.PlanID]
		plans[i].Items = append(plans[i].Items, it)
	}
	return plans, nil
}

func (s *PostgresStore) DeletePlan(ctx context.Context, studentID, planID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM weekly_plans WHERE id = $1::uuid AND student_id = $2::uuid`,
		planID, studentID,
	)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("plan.DeletePlan", "plan not found")
	}
	return nil
}

func (s *PostgresStore) UpdateItem(ctx context.Context, studentID string, it Item, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var id string
		err := tx.QueryRow(ctx,
			`UPDATE plan_items i
			 SET day_of_week = $4, subject_id = $5, topic_id = NULLIF($6, ''), duration_minutes = $7,
			     notes = $8, sort_order = $9, completed = $10, completed_at = $11
			 FROM weekly_plans p
			 WHERE i.id = $1::uuid AND i.plan_id = $2::uuid AND p.id = i.plan_id AND p.student_id = $3::uuid
			 RETURNING i.id::text`,
			it.ID, it.PlanID, studentID, it.DayOfWeek, it.SubjectID, it.TopicID, it.DurationMinutes,
			it.Notes, it.SortOrder, it.Completed, it.CompletedAt,
		).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.NotFound("plan.UpdateItem", "item not found")
		}
		if err != nil {
			return fmt.Errorf("update plan item: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE weekly_plans SET updated_at = $2 WHERE id = $1::uuid`, it.PlanID, at); err != nil {
			return fmt.Errorf("touch plan: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) DeleteItem(ctx context.Context, studentID, planID, itemID string) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.db.Pool.Exec(ctx,
		`DELETE FROM plan_items i
		 USING weekly_plans p
		 WHERE i.id = $1::uuid AND i.plan_id = $2::uuid AND p.id = i.plan_id AND p.student_id = $3::uuid`,
		itemID, planID, studentID,
	)
	if err != nil {
		return fmt.Errorf("delete plan item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("plan.DeleteItem", "item not found")
	}
	return nil
}

func dateOf(t time.Time) pgtype.Date {
	return pgtype.Date{Time: dateOnly(t), Valid: true}
}
