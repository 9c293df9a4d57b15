package priority

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/progress"
)

// maxLimit bounds the number of recommendations a caller may request.
const maxLimit = 200

// Aggregates supplies the per-topic study aggregates of a student.
type Aggregates interface {
	Snapshot(ctx context.Context, studentID string) (progress.Snapshot, error)
}

// Recommender scores catalog topics against a student's progress and caches
// the ranked list until the student's progress changes.
type Recommender struct {
	catalog *curriculum.Catalog
	agg     Aggregates
	cache   Cache
	now     func() time.Time
}

// NewRecommender creates a recommender. cache may be nil to disable caching.
func NewRecommender(catalog *curriculum.Catalog, agg Aggregates, cache Cache) *Recommender {
	if cache == nil {
		cache = NopCache{}
	}
	return &Recommender{catalog: catalog, agg: agg, cache: cache, now: time.Now}
}

// Recommend returns the top-ranked topics of an exam type (all exam types
// when examTypeID is empty).
func (r *Recommender) Recommend(ctx context.Context, studentID, examTypeID string, limit int) ([]Recommendation, error) {
	if examTypeID != "" {
		if _, ok := r.catalog.ExamType(examTypeID); !ok {
			return nil, apperr.Validation("priority.Recommend", "examType", apperr.ConstraintInvalidValue, "unknown exam type")
		}
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, maxLimit)

	// The version is read before the snapshot so that a progress write
	// landing during scoring leaves the result under the old version.
	key := fmt.Sprintf("%s:%d", examTypeID, limit)
	cached, version, ok, cacheErr := r.cache.Get(ctx, studentID, key)
	switch {
	case cacheErr != nil:
		slog.Warn("reading cached recommendations failed", "student_id", studentID, "error", cacheErr)
	case ok:
		return cached, nil
	}

	snap, err := r.agg.Snapshot(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("reading progress: %w", err)
	}
	recs := Score(r.Input(examTypeID, snap), limit)

	// Without a known version the result is not cached.
	if cacheErr == nil {
		if err := r.cache.Set(ctx, studentID, version, key, recs); err != nil {
			slog.Warn("caching recommendations failed", "student_id", studentID, "error", err)
		}
	}
	return recs, nil
}

// Input assembles scorer input for an exam type from a progress snapshot.
func (r *Recommender) Input(examTypeID string, snap progress.Snapshot) Input {
	subjects := make(map[string]curriculum.Subject)
	for _, s := range r.catalog.SubjectsForExam(examTypeID) {
		subjects[s.ID] = s
	}
	names := make(map[string]string)
	for _, e := range r.catalog.ExamTypes() {
		names[e.ID] = e.Name
	}
	return Input{
		Topics:      r.catalog.TopicsForExam(examTypeID),
		Subjects:    subjects,
		ExamNames:   names,
		Levels:      snap.Levels,
		LastStudied: snap.LastStudied,
		WrongCounts: snap.WrongCounts,
		Now:         r.now(),
	}
}

// Invalidate drops the student's cached recommendations.
func (r *Recommender) Invalidate(ctx context.Context, studentID string) error {
	return r.cache.Invalidate(ctx, studentID)
}
