package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/platform/database"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(db *database.DB) (*PostgresStore, error) {
	if db == nil || db.Pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{db: db}, nil
}

const upsertLevelSQL = `INSERT INTO knowledge_levels (student_id, topic_id, level, updated_at)
	 VALUES ($1::uuid, $2, $3, NOW())
	 ON CONFLICT (student_id, topic_id)
	 DO UPDATE SET level = EXCLUDED.level, updated_at = NOW()`

func (s *PostgresStore) UpsertKnowledgeLevel(ctx context.Context, studentID, topicID string, level int) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.db.Pool.Exec(ctx, upsertLevelSQL, studentID, topicID, level)
	if err != nil {
		return fmt.Errorf("upsert knowledge level: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetObjectiveChecked(ctx context.Context, studentID, topicID, objectiveID string, checked bool, total int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var level int
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		if checked {
			_, err = tx.Exec(ctx,
				`INSERT INTO objective_checks (student_id, topic_id, objective_id)
				 VALUES ($1::uuid, $2, $3)
				 ON CONFLICT DO NOTHING`,
				studentID, topicID, objectiveID,
			)
		} else {
			_, err = tx.Exec(ctx,
				`DELETE FROM objective_checks
				 WHERE student_id = $1::uuid AND topic_id = $2 AND objective_id = $3`,
				studentID, topicID, objectiveID,
			)
		}
		if err != nil {
			return fmt.Errorf("write objective check: %w", err)
		}
		var count int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM objective_checks WHERE student_id = $1::uuid AND topic_id = $2`,
			studentID, topicID,
		).Scan(&count); err != nil {
			return fmt.Errorf("count objective checks: %w", err)
		}
		level = LevelFromRatio(count, total)
		if _, err := tx.Exec(ctx, upsertLevelSQL, studentID, topicID, level); err != nil {
			return fmt.Errorf("upsert knowledge level: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return level, nil
}

func (s *PostgresStore) InsertStudyEvent(ctx context.Context, ev StudyEvent) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO study_events (id, student_id, topic_id, source, minutes, studied_at)
		 VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6)`,
		ev.ID, ev.StudentID, ev.TopicID, string(ev.Source), ev.Minutes, ev.StudiedAt,
	)
	if err != nil {
		return fmt.Errorf("insert study event: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertExam(ctx context.Context, exam ExamResult) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	return s.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO exam_results (id, student_id, exam_type_id, name, taken_at, correct, wrong, blank)
			 VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7, $8)`,
			exam.ID, exam.StudentID, exam.ExamTypeID, exam.Name, exam.TakenAt,
			exam.Correct, exam.Wrong, exam.Blank,
		)
		if err != nil {
			return fmt.Errorf("insert exam result: %w", err)
		}

		batch := &pgx.Batch{}
		for _, topicID := range exam.WrongTopicIDs {
			batch.Queue(
				`INSERT INTO wrong_answers (id, student_id, exam_id, topic_id, recorded_at)
				 VALUES (gen_random_uuid(), $1::uuid, $2::uuid, $3, $4)`,
				exam.StudentID, exam.ID, topicID, exam.TakenAt,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert wrong answers: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) UpsertProfile(ctx context.Context, p Profile) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	days := make([]int16, len(p.AvailableDays))
	for i, d := range p.AvailableDays {
		days[i] = int16(d)
	}

	_, err := s.db.Pool.Exec(ctx,
		`INSERT INTO student_profiles
		   (student_id, daily_study_hours, available_days, break_preference, regularity,
		    target_rank, exam_date, weekly_target_hours, updated_at)
		 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (student_id) DO UPDATE SET
		   daily_study_hours = EXCLUDED.daily_study_hours,
		   available_days = EXCLUDED.available_days,
		   break_preference = EXCLUDED.break_preference,
		   regularity = EXCLUDED.regularity,
		   target_rank = EXCLUDED.target_rank,
		   exam_date = EXCLUDED.exam_date,
		   weekly_target_hours = EXCLUDED.weekly_target_hours,
		   updated_at = EXCLUDED.updated_at`,
		p.StudentID, p.DailyStudyHours, days, string(p.BreakPreference), p.Regularity,
		nullIfZero(p.TargetRank), p.ExamDate, p.WeeklyTargetHours, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Profile(ctx context.Context, studentID string) (Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p := Profile{StudentID: studentID}
	var days []int16
	var breakPref string
	var targetRank *int32
	err := s.db.Pool.QueryRow(ctx,
		`SELECT daily_study_hours, available_days, break_preference, regularity,
		        target_rank, exam_date, weekly_target_hours, updated_at
		 FROM student_profiles
		 WHERE student_id = $1::uuid`,
		studentID,
	).Scan(&p.DailyStudyHours, &days, &breakPref, &p.Regularity,
		&targetRank, &p.ExamDate, &p.WeeklyTargetHours, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Profile{}, apperr.NotFound("progress.Profile", "profile not found")
		}
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}

	p.BreakPreference = BreakPreference(breakPref)
	p.AvailableDays = make([]int, len(days))
	for i, d := range days {
		p.AvailableDays[i] = int(d)
	}
	if targetRank != nil {
		p.TargetRank = int(*targetRank)
	}
	return p, nil
}

func (s *PostgresStore) KnowledgeLevels(ctx context.Context, studentID string) (map[string]int, error) {
	return s.topicCounts(ctx, "knowledge levels",
		`SELECT topic_id, level FROM knowledge_levels WHERE student_id = $1::uuid`, studentID)
}

func (s *PostgresStore) WrongCounts(ctx context.Context, studentID string) (map[string]int, error) {
	return s.topicCounts(ctx, "wrong counts",
		`SELECT topic_id, COUNT(*) FROM wrong_answers WHERE student_id = $1::uuid GROUP BY topic_id`, studentID)
}

func (s *PostgresStore) CheckedObjectives(ctx context.Context, studentID string) (map[string]int, error) {
	return s.topicCounts(ctx, "checked objectives",
		`SELECT topic_id, COUNT(*) FROM objective_checks WHERE student_id = $1::uuid GROUP BY topic_id`, studentID)
}

func (s *PostgresStore) LastStudied(ctx context.Context, studentID string) (map[string]time.Time, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx,
		`SELECT topic_id, MAX(studied_at) FROM study_events WHERE student_id = $1::uuid GROUP BY topic_id`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query last studied: %w", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var topicID string
		var at time.Time
		if err := rows.Scan(&topicID, &at); err != nil {
			return nil, fmt.Errorf("scan last studied: %w", err)
		}
		out[topicID] = at
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate last studied: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) RecentExams(ctx context.Context, studentID string, limit int) ([]ExamResult, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx,
		`SELECT id::text, exam_type_id, name, taken_at, correct, wrong, blank
		 FROM exam_results
		 WHERE student_id = $1::uuid
		 ORDER BY taken_at DESC
		 LIMIT $2`,
		studentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query exams: %w", err)
	}

	var exams []ExamResult
	index := make(map[string]int)
	for rows.Next() {
		e := ExamResult{StudentID: studentID}
		if err := rows.Scan(&e.ID, &e.ExamTypeID, &e.Name, &e.TakenAt, &e.Correct, &e.Wrong, &e.Blank); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		index[e.ID] = len(exams)
		exams = append(exams, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exams: %w", err)
	}
	if len(exams) == 0 {
		return exams, nil
	}

	ids := make([]string, len(exams))
	for i, e := range exams {
		ids[i] = e.ID
	}
	wrongRows, err := s.db.Pool.Query(ctx,
		`SELECT exam_id::text, topic_id FROM wrong_answers WHERE exam_id::text = ANY($1) ORDER BY recorded_at, topic_id`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query wrong answers: %w", err)
	}
	defer wrongRows.Close()
	for wrongRows.Next() {
		var examID, topicID string
		if err := wrongRows.Scan(&examID, &topicID); err != nil {
			return nil, fmt.Errorf("scan wrong answer: %w", err)
		}
		i := index[examID]
		exams[i].WrongTopicIDs = append(exams[i].WrongTopicIDs, topicID)
	}
	if err := wrongRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wrong answers: %w", err)
	}
	return exams, nil
}

func (s *PostgresStore) topicCounts(ctx context.Context, what, query string, studentID string) (map[string]int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.db.Pool.Query(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", what, err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var topicID string
		var n int
		if err := rows.Scan(&topicID, &n); err != nil {
			return nil, fmt.Errorf("scan %s: %w", what, err)
		}
		out[topicID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", what, err)
	}
	return out, nil
}

func nullIfZero(v int) any {
	if v == 0 {
		return nil
	}
	return v
}
