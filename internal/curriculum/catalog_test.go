package curriculum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-study/internal/curriculum"
)

func testCatalog(t *testing.T, topics ...curriculum.Topic) *curriculum.Catalog {
	t.Helper()
	exams := []curriculum.ExamType{{
		ID:   "TYT",
		Name: "TYT",
		Subjects: []curriculum.Subject{
			{ID: "math", Name: "Matematik", QuestionCount: 40},
			{ID: "physics", Name: "Fizik", QuestionCount: 7},
		},
	}}
	c, err := curriculum.NewCatalog(exams, topics)
	require.NoError(t, err)
	return c
}

func TestCatalog_SubjectTopicsInSyllabusOrder(t *testing.T) {
	c := testCatalog(t,
		curriculum.Topic{ID: "M3", Name: "Üslü Sayılar", SubjectID: "math", Order: 3, Difficulty: 3},
		curriculum.Topic{ID: "M1", Name: "Temel Kavramlar", SubjectID: "math", Order: 1, Difficulty: 1},
		curriculum.Topic{ID: "M2", Name: "Bölme", SubjectID: "math", Order: 2, Difficulty: 2},
		curriculum.Topic{ID: "P1", Name: "Kuvvet", SubjectID: "physics", Order: 1, Difficulty: 3},
	)

	var ids []string
	for _, topic := range c.SubjectTopics("math") {
		ids = append(ids, topic.ID)
	}
	assert.Equal(t, []string{"M1", "M2", "M3"}, ids)

	all := c.TopicsForExam("TYT")
	assert.Len(t, all, 4)
	assert.Empty(t, c.TopicsForExam("AYT"))
}

func TestCatalog_ResolveTopic(t *testing.T) {
	c := testCatalog(t,
		curriculum.Topic{ID: "M1", Name: "Örüntüler  ve Diziler", SubjectID: "math", Difficulty: 3},
		curriculum.Topic{ID: "P1", Name: "Kuvvet ve Hareket", SubjectID: "physics", Difficulty: 3},
	)

	tests := []struct {
		name    string
		subject string
		ref     string
		wantID  string
		wantOK  bool
	}{
		{"by id", "", "M1", "M1", true},
		{"folded name", "math", "ÖRÜNTÜLER VE DIZILER", "M1", true},
		{"extra spaces", "math", "  örüntüler ve   diziler ", "M1", true},
		{"wrong subject", "physics", "Örüntüler ve Diziler", "", false},
		{"any subject", "", "kuvvet ve hareket", "P1", true},
		{"unknown", "math", "Türev", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.ResolveTopic(tt.subject, tt.ref)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, got.ID)
		})
	}
}

func TestCatalog_ResolveSubject(t *testing.T) {
	c := testCatalog(t)

	s, ok := c.ResolveSubject("MATEMATIK")
	assert.True(t, ok)
	assert.Equal(t, "math", s.ID)

	s, ok = c.ResolveSubject("physics")
	assert.True(t, ok)
	assert.Equal(t, "TYT", s.ExamTypeID)
}

func TestCatalog_DuplicateSubject(t *testing.T) {
	exams := []curriculum.ExamType{
		{ID: "TYT", Subjects: []curriculum.Subject{{ID: "math"}}},
		{ID: "AYT", Subjects: []curriculum.Subject{{ID: "math"}}},
	}
	_, err := curriculum.NewCatalog(exams, nil)
	assert.Error(t, err)
}

func TestCatalog_Validate(t *testing.T) {
	tests := []struct {
		name    string
		topics  []curriculum.Topic
		wantErr string
	}{
		{
			name: "valid",
			topics: []curriculum.Topic{
				{ID: "M1", SubjectID: "math", Difficulty: 1},
				{ID: "M2", SubjectID: "math", Difficulty: 2, Prerequisites: curriculum.Prerequisites{Required: []string{"M1"}}},
			},
		},
		{
			name:    "unknown subject",
			topics:  []curriculum.Topic{{ID: "X1", SubjectID: "chemistry", Difficulty: 1}},
			wantErr: "unknown subject",
		},
		{
			name:    "difficulty out of range",
			topics:  []curriculum.Topic{{ID: "M1", SubjectID: "math", Difficulty: 6}},
			wantErr: "difficulty 6",
		},
		{
			name: "unknown prerequisite",
			topics: []curriculum.Topic{
				{ID: "M1", SubjectID: "math", Difficulty: 1, Prerequisites: curriculum.Prerequisites{Recommended: []string{"M9"}}},
			},
			wantErr: "unknown prerequisite",
		},
		{
			name: "cycle",
			topics: []curriculum.Topic{
				{ID: "M1", SubjectID: "math", Difficulty: 1, Prerequisites: curriculum.Prerequisites{Required: []string{"M3"}}},
				{ID: "M2", SubjectID: "math", Difficulty: 1, Prerequisites: curriculum.Prerequisites{Required: []string{"M1"}}},
				{ID: "M3", SubjectID: "math", Difficulty: 1, Prerequisites: curriculum.Prerequisites{Recommended: []string{"M2"}}},
			},
			wantErr: "cycle among topics: M1, M2, M3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := testCatalog(t, tt.topics...).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCatalog_TopologicalOrder(t *testing.T) {
	c := testCatalog(t,
		curriculum.Topic{ID: "C", SubjectID: "math", Difficulty: 1, Prerequisites: curriculum.Prerequisites{Required: []string{"B"}}},
		curriculum.Topic{ID: "B", SubjectID: "math", Difficulty: 1, Prerequisites: curriculum.Prerequisites{Required: []string{"A"}}},
		curriculum.Topic{ID: "A", SubjectID: "math", Difficulty: 1},
		curriculum.Topic{ID: "D", SubjectID: "physics", Difficulty: 1},
	)

	var ids []string
	for _, topic := range c.TopologicalOrder() {
		ids = append(ids, topic.ID)
	}
	assert.Equal(t, []string{"A", "D", "B", "C"}, ids)
}

func TestFoldName(t *testing.T) {
	assert.Equal(t, "türev", curriculum.FoldName("  TÜREV "))
	assert.Equal(t, curriculum.FoldName("Kuvvet ve Hareket"), curriculum.FoldName("KUVVET VE\tHAREKET"))
}
