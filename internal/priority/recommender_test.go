package priority_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/priority"
	"github.com/p-n-ai/pai-study/internal/progress"
)

type countingAggregates struct {
	inner *progress.Service
	calls int
}

func (c *countingAggregates) Snapshot(ctx context.Context, studentID string) (progress.Snapshot, error) {
	c.calls++
	return c.inner.Snapshot(ctx, studentID)
}

func setupRecommender(t *testing.T) (*priority.Recommender, *progress.Service, *countingAggregates) {
	t.Helper()
	catalog, err := curriculum.NewCatalog(
		[]curriculum.ExamType{
			{ID: "TYT", Name: "TYT", Subjects: []curriculum.Subject{
				{ID: "math", Name: "Matematik", QuestionCount: 40},
				{ID: "physics", Name: "Fizik", QuestionCount: 7},
			}},
			{ID: "AYT", Name: "AYT", Subjects: []curriculum.Subject{
				{ID: "ayt-math", Name: "Matematik", QuestionCount: 40},
			}},
		},
		[]curriculum.Topic{
			{ID: "M1", Name: "Temel Kavramlar", SubjectID: "math", Order: 1, Difficulty: 1},
			{ID: "M2", Name: "Bölme", SubjectID: "math", Order: 2, Difficulty: 2},
			{ID: "P1", Name: "Kuvvet", SubjectID: "physics", Order: 1, Difficulty: 3},
			{ID: "AM1", Name: "Türev", SubjectID: "ayt-math", Order: 1, Difficulty: 5},
		},
	)
	require.NoError(t, err)

	cache := priority.NewMemoryCache()
	svc := progress.NewService(progress.NewMemoryStore(), catalog, cache)
	agg := &countingAggregates{inner: svc}
	return priority.NewRecommender(catalog, agg, cache), svc, agg
}

func TestRecommender_FiltersByExamType(t *testing.T) {
	rec, _, _ := setupRecommender(t)

	recs, err := rec.Recommend(t.Context(), "s1", "TYT", 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for _, r := range recs {
		assert.NotEqual(t, "AM1", r.TopicID)
		assert.Equal(t, "TYT", r.ExamTypeName)
	}
	// Math carries more weight than physics.
	assert.Equal(t, "math", recs[0].SubjectID)

	all, err := rec.Recommend(t.Context(), "s1", "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestRecommender_UnknownExamType(t *testing.T) {
	rec, _, _ := setupRecommender(t)

	_, err := rec.Recommend(t.Context(), "s1", "LGS", 10)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRecommender_CachedUntilProgressWrite(t *testing.T) {
	rec, svc, agg := setupRecommender(t)
	ctx := t.Context()

	first, err := rec.Recommend(ctx, "s1", "TYT", 10)
	require.NoError(t, err)
	second, err := rec.Recommend(ctx, "s1", "TYT", 10)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, agg.calls)

	require.NoError(t, svc.SetKnowledgeLevel(ctx, "s1", "M1", 5))

	third, err := rec.Recommend(ctx, "s1", "TYT", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, agg.calls)
	for _, r := range third {
		if r.TopicID == "M1" {
			assert.Equal(t, 5, r.KnowledgeLevel)
		}
	}

	// Another student's cache is independent.
	_, err = rec.Recommend(ctx, "s2", "TYT", 10)
	require.NoError(t, err)
	assert.Equal(t, 3, agg.calls)
}

func TestRecommender_MatchesScorer(t *testing.T) {
	rec, svc, _ := setupRecommender(t)
	ctx := t.Context()

	require.NoError(t, svc.SetKnowledgeLevel(ctx, "s1", "P1", 1))
	_, err := svc.RecordExam(ctx, progress.ExamResult{StudentID: "s1", ExamTypeID: "TYT", WrongTopicIDs: []string{"M2", "M2"}})
	require.NoError(t, err)

	got, err := rec.Recommend(ctx, "s1", "TYT", 2)
	require.NoError(t, err)

	snap, err := svc.Snapshot(ctx, "s1")
	require.NoError(t, err)
	want := priority.Score(rec.Input("TYT", snap), 2)
	assert.Equal(t, want, got)
}

// racingAggregates writes progress right after handing out a snapshot, the
// way a concurrent request would while the recommender is scoring.
type racingAggregates struct {
	inner *progress.Service
	write func(ctx context.Context) error
	calls int
}

func (r *racingAggregates) Snapshot(ctx context.Context, studentID string) (progress.Snapshot, error) {
	r.calls++
	snap, err := r.inner.Snapshot(ctx, studentID)
	if err != nil || r.write == nil {
		return snap, err
	}
	write := r.write
	r.write = nil
	return snap, write(ctx)
}

func TestRecommender_WriteDuringScoringIsNotCached(t *testing.T) {
	ctx := t.Context()
	catalog, err := curriculum.NewCatalog(
		[]curriculum.ExamType{{ID: "TYT", Name: "TYT", Subjects: []curriculum.Subject{{ID: "math", Name: "Matematik", QuestionCount: 40}}}},
		[]curriculum.Topic{{ID: "M1", Name: "Temel Kavramlar", SubjectID: "math", Order: 1, Difficulty: 1}},
	)
	require.NoError(t, err)
	cache := priority.NewMemoryCache()
	svc := progress.NewService(progress.NewMemoryStore(), catalog, cache)
	agg := &racingAggregates{inner: svc, write: func(ctx context.Context) error {
		return svc.SetKnowledgeLevel(ctx, "s1", "M1", 5)
	}}
	rec := priority.NewRecommender(catalog, agg, cache)

	stale, err := rec.Recommend(ctx, "s1", "TYT", 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, 0, stale[0].KnowledgeLevel)

	fresh, err := rec.Recommend(ctx, "s1", "TYT", 10)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, 5, fresh[0].KnowledgeLevel)
	assert.Equal(t, 2, agg.calls)

	// The fresh ranking is cached.
	_, err = rec.Recommend(ctx, "s1", "TYT", 10)
	require.NoError(t, err)
	assert.Equal(t, 2, agg.calls)
}

func TestMemoryCache_SetAfterInvalidate(t *testing.T) {
	ctx := t.Context()
	cache := priority.NewMemoryCache()
	recs := []priority.Recommendation{{TopicID: "M1"}}

	_, v, ok, err := cache.Get(ctx, "s1", "TYT:10")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Invalidate(ctx, "s1"))
	require.NoError(t, cache.Set(ctx, "s1", v, "TYT:10", recs))

	_, v2, ok, err := cache.Get(ctx, "s1", "TYT:10")
	require.NoError(t, err)
	assert.False(t, ok, "entry stored under an old version must not be served")
	assert.Equal(t, v+1, v2)

	require.NoError(t, cache.Set(ctx, "s1", v2, "TYT:10", recs))
	got, _, ok, err := cache.Get(ctx, "s1", "TYT:10")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, recs, got)
}
