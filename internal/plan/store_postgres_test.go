package plan_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/plan"
	"github.com/p-n-ai/pai-study/internal/planner"
	"github.com/p-n-ai/pai-study/internal/platform/database/dbtest"
)

func TestPostgresStore_PlanLifecycle(t *testing.T) {
	db := dbtest.New(t)
	store, err := plan.NewPostgresStore(db)
	require.NoError(t, err)

	svc := plan.NewService(store, testCatalog(t))
	svc.SetNow(func() time.Time { return fixedNow })
	ctx := t.Context()
	student, other := newStudent(), newStudent()

	created, err := svc.Create(ctx, student, sampleInput())
	require.NoError(t, err)

	got, err := svc.Get(ctx, student, created.ID)
	require.NoError(t, err)
	assert.Equal(t, weekStart, got.StartDate.UTC())
	assert.Equal(t, weekEnd, got.EndDate.UTC())
	assert.Equal(t, planner.SourceManual, got.Source)
	require.Len(t, got.Items, 3)
	assert.Equal(t, []int{0, 0, 1}, itemDays(got.Items))
	assert.Equal(t, "M1", got.Items[0].TopicID)

	_, err = svc.Get(ctx, other, created.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	replaced, err := svc.Replace(ctx, student, created.ID, plan.Input{
		Title:     "Revised",
		StartDate: weekStart,
		EndDate:   weekEnd,
		Items: []planner.Item{
			{DayOfWeek: 3, SubjectID: "math", DurationMinutes: 50},
			{DayOfWeek: 2, SubjectID: "turkish", TopicID: "T2", DurationMinutes: 40},
		},
	})
	require.NoError(t, err)

	got, err = svc.Get(ctx, student, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Revised", got.Title)
	assert.Equal(t, []int{2, 3}, itemDays(got.Items))
	assert.Empty(t, got.Items[1].TopicID)

	item, err := svc.ToggleItem(ctx, student, created.ID, replaced.Items[0].ID)
	require.NoError(t, err)
	moved, err := svc.MoveItem(ctx, student, created.ID, item.ID, 6, 2)
	require.NoError(t, err)
	assert.True(t, moved.Completed)

	got, err = svc.Get(ctx, student, created.ID)
	require.NoError(t, err)
	last := got.Items[len(got.Items)-1]
	assert.Equal(t, 6, last.DayOfWeek)
	assert.Equal(t, 2, last.SortOrder)
	assert.True(t, last.Completed)
	require.NotNil(t, last.CompletedAt)
	assert.True(t, last.CompletedAt.Equal(fixedNow))

	_, err = svc.MoveItem(ctx, other, created.ID, item.ID, 1, 0)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	plans, err := svc.List(ctx, student)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Len(t, plans[0].Items, 2)

	require.NoError(t, svc.DeleteItem(ctx, student, created.ID, item.ID))
	assert.True(t, errors.Is(svc.DeleteItem(ctx, student, created.ID, item.ID), apperr.ErrNotFound))

	assert.True(t, errors.Is(svc.Delete(ctx, other, created.ID), apperr.ErrNotFound))
	require.NoError(t, svc.Delete(ctx, student, created.ID))
	_, err = svc.Get(ctx, student, created.ID)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}
