package plan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-study/internal/ai"
	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/plan"
	"github.com/p-n-ai/pai-study/internal/planner"
	"github.com/p-n-ai/pai-study/internal/priority"
	"github.com/p-n-ai/pai-study/internal/progress"
)

const aiPlan = `{"explanation":"Build on Temel Kavramlar.","items":[
 {"dayOfWeek":0,"subject":"math","topic":"M1","durationMinutes":60},
 {"dayOfWeek":0,"subject":"turkish","topic":"Sözcükte Anlam","durationMinutes":45},
 {"dayOfWeek":2,"subject":"math","topic":"M2","durationMinutes":60},
 {"dayOfWeek":2,"subject":"turkish","topic":"T1","durationMinutes":30}
]}`

type generateEnv struct {
	gen      *plan.Generator
	plans    *plan.Service
	progress *progress.Service
}

// newGenerateEnv wires a generator on memory stores. A nil completer leaves
// assisted planning off.
func newGenerateEnv(t *testing.T, completer planner.Completer) generateEnv {
	t.Helper()
	catalog := testCatalog(t)
	prog := progress.NewService(progress.NewMemoryStore(), catalog, nil)
	plans := plan.NewService(plan.NewMemoryStore(), catalog)
	plans.SetNow(func() time.Time { return fixedNow })

	var assisted plan.Drafter
	if completer != nil {
		assisted = planner.NewAssistant(catalog, completer, nil, planner.AssistantConfig{Attempts: 2})
	}
	gen := plan.NewGenerator(plans, catalog, prog, priority.NewRecommender(catalog, prog, nil), assisted)
	// Wednesday; the plan starts the following Monday.
	gen.SetNow(func() time.Time { return time.Date(2026, 10, 21, 18, 0, 0, 0, time.UTC) })
	return generateEnv{gen: gen, plans: plans, progress: prog}
}

func TestGenerator_Rules(t *testing.T) {
	env := newGenerateEnv(t, nil)
	ctx := context.Background()
	student := newStudent()

	res, err := env.gen.Generate(ctx, student, plan.GenerateRequest{ExamTypeID: "TYT", Assist: true})
	require.NoError(t, err)

	p := res.Plan
	assert.Equal(t, planner.SourceRules, p.Source)
	assert.Empty(t, res.FallbackReason)
	assert.Equal(t, time.Date(2026, 10, 26, 0, 0, 0, 0, time.UTC), p.StartDate)
	assert.Equal(t, time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC), p.EndDate)
	assert.Equal(t, "TYT week of 2026-10-26", p.Title)
	assert.NotEmpty(t, p.Items)
	assert.Empty(t, planner.Blocking(res.Warnings))

	plans, err := env.plans.List(ctx, student)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, p.ID, plans[0].ID)
	assert.Len(t, plans[0].Items, len(p.Items))
}

func TestGenerator_Assisted(t *testing.T) {
	mock := ai.NewMockText(aiPlan)
	env := newGenerateEnv(t, mock)
	ctx := context.Background()
	student := newStudent()
	require.NoError(t, env.progress.SetKnowledgeLevel(ctx, student, "M1", 5))

	res, err := env.gen.Generate(ctx, student, plan.GenerateRequest{
		ExamTypeID: "TYT",
		Title:      "Exam week",
		StartDate:  weekStart,
		Assist:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, planner.SourceAI, res.Plan.Source)
	assert.Equal(t, "Build on Temel Kavramlar.", res.Plan.Explanation)
	assert.Equal(t, "Exam week", res.Plan.Title)
	assert.Equal(t, weekStart, res.Plan.StartDate)
	require.Len(t, res.Plan.Items, 4)
	assert.Equal(t, "T1", res.Plan.Items[1].TopicID)
	assert.Equal(t, 1, mock.CallCount())

	// Without Assist the provider is not consulted.
	res, err = env.gen.Generate(ctx, student, plan.GenerateRequest{ExamTypeID: "TYT"})
	require.NoError(t, err)
	assert.Equal(t, planner.SourceRules, res.Plan.Source)
	assert.Equal(t, 1, mock.CallCount())
}

func TestGenerator_AssistedFallback(t *testing.T) {
	mock := ai.NewMockText(`{"items":[{"dayOfWeek":9,"subject":"math","topic":"M1","durationMinutes":60}]}`)
	env := newGenerateEnv(t, mock)
	ctx := context.Background()
	student := newStudent()

	res, err := env.gen.Generate(ctx, student, plan.GenerateRequest{ExamTypeID: "TYT", Assist: true})
	require.NoError(t, err)
	assert.Equal(t, planner.SourceRules, res.Plan.Source)
	assert.Equal(t, "AI plan failed validation", res.FallbackReason)
	assert.Equal(t, 2, mock.CallCount())

	plans, err := env.plans.List(ctx, student)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

type blockingCompleter struct{}

func (blockingCompleter) Complete(ctx context.Context, _ ai.CompletionRequest) (ai.CompletionResponse, error) {
	<-ctx.Done()
	return ai.CompletionResponse{}, ctx.Err()
}

func TestGenerator_FailureStoresNothing(t *testing.T) {
	env := newGenerateEnv(t, blockingCompleter{})
	student := newStudent()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.gen.Generate(ctx, student, plan.GenerateRequest{ExamTypeID: "TYT", Assist: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnavailable))
	assert.Equal(t, "generation_failed", apperr.Code(err))

	plans, err := env.plans.List(context.Background(), student)
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestGenerator_UnknownExamType(t *testing.T) {
	env := newGenerateEnv(t, nil)
	_, err := env.gen.Generate(context.Background(), newStudent(), plan.GenerateRequest{ExamTypeID: "KPSS"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestGenerator_ProfileOverride(t *testing.T) {
	env := newGenerateEnv(t, nil)
	ctx := context.Background()
	student := newStudent()
	_, err := env.progress.SaveProfile(ctx, progress.Profile{StudentID: student, DailyStudyHours: 2, AvailableDays: []int{0, 1}})
	require.NoError(t, err)

	hours := 3.0
	res, err := env.gen.Generate(ctx, student, plan.GenerateRequest{
		ExamTypeID: "TYT",
		Profile:    &progress.ProfilePatch{AvailableDays: []int{4, 4, 3}, DailyStudyHours: &hours},
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Plan.Items)
	for _, it := range res.Plan.Items {
		assert.Contains(t, []int{3, 4}, it.DayOfWeek)
	}

	saved, err := env.progress.GetProfile(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, saved.AvailableDays)
	assert.InDelta(t, 2, saved.DailyStudyHours, 0.001)

	bad := progress.BreakPreference("forever")
	_, err = env.gen.Generate(ctx, student, plan.GenerateRequest{
		ExamTypeID: "TYT",
		Profile:    &progress.ProfilePatch{BreakPreference: &bad},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, "breakPreference", apperr.FieldOf(err))

	plans, err := env.plans.List(ctx, student)
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

type drafterFunc func(ctx context.Context, in planner.Input) (planner.Draft, error)

func (f drafterFunc) Generate(ctx context.Context, in planner.Input) (planner.Draft, error) {
	return f(ctx, in)
}

func TestGenerator_CallerGoneAfterDraft(t *testing.T) {
	catalog := testCatalog(t)
	prog := progress.NewService(progress.NewMemoryStore(), catalog, nil)
	plans := plan.NewService(plan.NewMemoryStore(), catalog)
	rules := planner.NewGenerator(catalog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// The draft succeeds, but the deadline passes before it is stored.
	late := drafterFunc(func(_ context.Context, in planner.Input) (planner.Draft, error) {
		d, err := rules.Generate(in)
		cancel()
		return d, err
	})
	gen := plan.NewGenerator(plans, catalog, prog, priority.NewRecommender(catalog, prog, nil), late)
	student := newStudent()

	_, err := gen.Generate(ctx, student, plan.GenerateRequest{ExamTypeID: "TYT", Assist: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrUnavailable))

	stored, err := plans.List(context.Background(), student)
	require.NoError(t, err)
	assert.Empty(t, stored)
}
