package plan_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/plan"
	"github.com/p-n-ai/pai-study/internal/planner"
)

var (
	weekStart = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)
	weekEnd   = weekStart.AddDate(0, 0, 6)
	fixedNow  = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
)

func testCatalog(t *testing.T) *curriculum.Catalog {
	t.Helper()
	c, err := curriculum.NewCatalog(
		[]curriculum.ExamType{{ID: "TYT", Name: "TYT", Subjects: []curriculum.Subject{
			{ID: "math", Name: "Matematik", QuestionCount: 40},
			{ID: "turkish", Name: "Türkçe", QuestionCount: 40},
		}}},
		[]curriculum.Topic{
			{ID: "M1", Name: "Temel Kavramlar", SubjectID: "math", Order: 1, Difficulty: 1, EstimatedHours: 2},
			{ID: "M2", Name: "Sayı Basamakları", SubjectID: "math", Order: 2, Difficulty: 3, EstimatedHours: 3,
				Prerequisites: curriculum.Prerequisites{Required: []string{"M1"}}},
			{ID: "T1", Name: "Sözcükte Anlam", SubjectID: "turkish", Order: 1, Difficulty: 1, EstimatedHours: 2},
			{ID: "T2", Name: "Cümlede Anlam", SubjectID: "turkish", Order: 2, Difficulty: 2, EstimatedHours: 3},
		},
	)
	require.NoError(t, err)
	return c
}

func newService(t *testing.T) (*plan.Service, *curriculum.Catalog) {
	t.Helper()
	catalog := testCatalog(t)
	svc := plan.NewService(plan.NewMemoryStore(), catalog)
	svc.SetNow(func() time.Time { return fixedNow })
	return svc, catalog
}

func sampleInput() plan.Input {
	return plan.Input{
		Title:     "Week 43",
		StartDate: weekStart,
		EndDate:   weekEnd,
		Items: []planner.Item{
			{DayOfWeek: 1, SubjectID: "turkish", TopicID: "T1", DurationMinutes: 45},
			{DayOfWeek: 0, SubjectID: "math", TopicID: "M2", DurationMinutes: 60, SortOrder: 1},
			{DayOfWeek: 0, SubjectID: "math", TopicID: "M1", DurationMinutes: 30, Notes: " warm up "},
		},
	}
}

func newStudent() string { return uuid.NewString() }
