package planner_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/planner"
	"github.com/p-n-ai/pai-study/internal/priority"
	"github.com/p-n-ai/pai-study/internal/progress"
)

func topic(id, subject string, order, difficulty int, hours float64, hard, soft []string) curriculum.Topic {
	return curriculum.Topic{
		ID: id, Name: "Topic " + id, SubjectID: subject, Order: order, Difficulty: difficulty, EstimatedHours: hours,
		Prerequisites: curriculum.Prerequisites{Required: hard, Recommended: soft},
	}
}

func newCatalog(t *testing.T) *curriculum.Catalog {
	t.Helper()
	catalog, err := curriculum.NewCatalog(
		[]curriculum.ExamType{{ID: "TYT", Name: "TYT", Subjects: []curriculum.Subject{
			{ID: "math", Name: "Matematik", QuestionCount: 40},
			{ID: "turkish", Name: "Türkçe", QuestionCount: 40},
			{ID: "physics", Name: "Fizik", QuestionCount: 7},
			{ID: "chemistry", Name: "Kimya", QuestionCount: 7},
		}}},
		[]curriculum.Topic{
			topic("M1", "math", 1, 1, 1, nil, nil),
			topic("M2", "math", 2, 3, 2, []string{"M1"}, nil),
			topic("M3", "math", 3, 5, 6, []string{"M2"}, nil),
			topic("T1", "turkish", 1, 1, 2, nil, nil),
			topic("T2", "turkish", 2, 2, 3, nil, nil),
			topic("P1", "physics", 1, 2, 3, nil, []string{"M2"}),
			topic("P2", "physics", 2, 4, 4, []string{"P1"}, nil),
			topic("C1", "chemistry", 1, 2, 2, nil, nil),
			topic("C2", "chemistry", 2, 3, 3, nil, nil),
		},
	)
	require.NoError(t, err)
	return catalog
}

// newInput scores the catalog the way the recommender does.
func newInput(catalog *curriculum.Catalog, profile progress.Profile, levels map[string]int) planner.Input {
	snap := progress.Snapshot{Levels: levels}
	subjects := make(map[string]curriculum.Subject)
	for _, s := range catalog.SubjectsForExam("TYT") {
		subjects[s.ID] = s
	}
	recs := priority.Score(priority.Input{
		Topics:   catalog.TopicsForExam("TYT"),
		Subjects: subjects,
		Levels:   levels,
	}, 100)
	return planner.Input{
		StudentID:  "student-1",
		ExamTypeID: "TYT",
		Profile:    profile,
		Snapshot:   snap,
		Priorities: recs,
	}
}
