package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/curriculum"
)

func schemaCatalog(t *testing.T) *curriculum.Catalog {
	t.Helper()
	catalog, err := curriculum.NewCatalog(
		[]curriculum.ExamType{
			{ID: "TYT", Name: "TYT", Subjects: []curriculum.Subject{
				{ID: "math", Name: "Matematik", QuestionCount: 40},
				{ID: "turkish", Name: "Türkçe", QuestionCount: 40},
			}},
			{ID: "AYT", Name: "AYT", Subjects: []curriculum.Subject{
				{ID: "lit", Name: "Edebiyat", QuestionCount: 24},
			}},
		},
		[]curriculum.Topic{
			{ID: "M1", Name: "Temel Kavramlar", SubjectID: "math", Order: 1, Difficulty: 1, EstimatedHours: 1},
			{ID: "M2", Name: "Sayı Basamakları", SubjectID: "math", Order: 2, Difficulty: 2, EstimatedHours: 1},
			{ID: "T1", Name: "Sözcükte Anlam", SubjectID: "turkish", Order: 1, Difficulty: 1, EstimatedHours: 1},
			{ID: "L1", Name: "Şiir Bilgisi", SubjectID: "lit", Order: 1, Difficulty: 2, EstimatedHours: 1},
		},
	)
	require.NoError(t, err)
	return catalog
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name    string
		content string
		items   int
		wantErr bool
	}{
		{
			name:    "plain object",
			content: `{"explanation":"x","items":[{"dayOfWeek":0,"subject":"math","topic":"M1","durationMinutes":60}]}`,
			items:   1,
		},
		{
			name:    "fenced object",
			content: "```json\n{\"items\":[{\"dayOfWeek\":1,\"subject\":\"math\",\"topic\":\"M1\",\"durationMinutes\":45,\"notes\":\"n\"}]}\n```",
			items:   1,
		},
		{name: "not json", content: "Here is your plan!", wantErr: true},
		{name: "no items", content: `{"explanation":"x","items":[]}`, wantErr: true},
		{name: "missing duration", content: `{"items":[{"dayOfWeek":0,"subject":"math","topic":"M1"}]}`, wantErr: true},
		{name: "string day", content: `{"items":[{"dayOfWeek":"monday","subject":"math","topic":"M1","durationMinutes":60}]}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := parsePlan(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Len(t, plan.Items, tt.items)
		})
	}
}

func TestNormalize_ResolvesNames(t *testing.T) {
	catalog := schemaCatalog(t)

	items, err := normalize(catalog, "TYT", []aiItem{
		{DayOfWeek: 0, Subject: "MATEMATIK", Topic: "temel  kavramlar", DurationMinutes: 60},
		{DayOfWeek: 0, Subject: "türkçe", Topic: "T1", DurationMinutes: 45, Notes: "  review  "},
		{DayOfWeek: 1, Subject: "math", Topic: "Sayı Basamakları", DurationMinutes: 30},
	})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, Item{DayOfWeek: 0, SubjectID: "math", TopicID: "M1", DurationMinutes: 60, SortOrder: 0}, items[0])
	assert.Equal(t, Item{DayOfWeek: 0, SubjectID: "turkish", TopicID: "T1", DurationMinutes: 45, Notes: "review", SortOrder: 1}, items[1])
	assert.Equal(t, Item{DayOfWeek: 1, SubjectID: "math", TopicID: "M2", DurationMinutes: 30, SortOrder: 0}, items[2])
}

func TestNormalize_Rejects(t *testing.T) {
	catalog := schemaCatalog(t)

	tests := []struct {
		name      string
		item      aiItem
		wantCode  string
		wantField string
	}{
		{"unknown subject", aiItem{Subject: "biology", Topic: "M1"}, apperr.ConstraintUnknownSubject, "items[0].subject"},
		{"subject of another exam", aiItem{Subject: "lit", Topic: "L1"}, apperr.ConstraintUnknownSubject, "items[0].subject"},
		{"unknown topic", aiItem{Subject: "math", Topic: "Limit"}, apperr.ConstraintUnknownTopic, "items[0].topic"},
		{"topic id of another subject", aiItem{Subject: "math", Topic: "T1"}, apperr.ConstraintTopicSubjectMismatch, "items[0].topic"},
		{"topic name of another subject", aiItem{Subject: "math", Topic: "sözcükte anlam"}, apperr.ConstraintTopicSubjectMismatch, "items[0].topic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalize(catalog, "TYT", []aiItem{tt.item})
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, apperr.Code(err))
			assert.Equal(t, tt.wantField, apperr.FieldOf(err))
		})
	}
}
