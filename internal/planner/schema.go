package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/curriculum"
)

// planSchema describes the JSON object the AI provider must return. Value
// ranges are left to Validate so that they produce constraint codes.
const planSchema = `{
  "type": "object",
  "required": ["items"],
  "properties": {
    "explanation": {"type": "string"},
    "items": {
      "type": "array",
      "minItems": 1,
      "maxItems": 28,
      "items": {
        "type": "object",
        "required": ["dayOfWeek", "subject", "topic", "durationMinutes"],
        "properties": {
          "dayOfWeek": {"type": "integer"},
          "subject": {"type": "string", "minLength": 1},
          "topic": {"type": "string", "minLength": 1},
          "durationMinutes": {"type": "integer"},
          "notes": {"type": "string"}
        }
      }
    }
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(planSchema))
})

type aiPlan struct {
	Explanation string   `json:"explanation"`
	Items       []aiItem `json:"items"`
}

type aiItem struct {
	DayOfWeek       int    `json:"dayOfWeek"`
	Subject         string `json:"subject"`
	Topic           string `json:"topic"`
	DurationMinutes int    `json:"durationMinutes"`
	Notes           string `json:"notes"`
}

// parsePlan checks a provider answer against planSchema and decodes it.
func parsePlan(content string) (aiPlan, error) {
	content = stripFences(content)

	schema, err := compiledSchema()
	if err != nil {
		return aiPlan{}, fmt.Errorf("compiling plan schema: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(content))
	if err != nil {
		return aiPlan{}, fmt.Errorf("response is not JSON: %w", err)
	}
	if !result.Valid() {
		var errs []error
		for _, e := range result.Errors() {
			errs = append(errs, errors.New(e.String()))
		}
		return aiPlan{}, fmt.Errorf("response does not match the plan schema: %w", errors.Join(errs...))
	}

	var plan aiPlan
	if err := json.Unmarshal([]byte(content), &plan); err != nil {
		return aiPlan{}, fmt.Errorf("decoding plan: %w", err)
	}
	return plan, nil
}

// stripFences removes a surrounding markdown code fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// normalize resolves subject and topic references (IDs or display names)
// against the exam type's part of the catalog. Sort order follows the
// response order within each day.
func normalize(catalog *curriculum.Catalog, examTypeID string, raw []aiItem) ([]Item, error) {
	const op = "planner.normalize"
	items := make([]Item, 0, len(raw))
	perDay := make(map[int]int)
	for i, r := range raw {
		subject, ok := catalog.ResolveSubject(r.Subject)
		if !ok || (examTypeID != "" && subject.ExamTypeID != examTypeID) {
			return nil, apperr.Validation(op, fmt.Sprintf("items[%d].subject", i), apperr.ConstraintUnknownSubject,
				fmt.Sprintf("unknown subject %q", r.Subject))
		}
		topic, ok := catalog.ResolveTopic(subject.ID, r.Topic)
		if !ok {
			if other, found := catalog.ResolveTopic("", r.Topic); found {
				return nil, apperr.Validation(op, fmt.Sprintf("items[%d].topic", i), apperr.ConstraintTopicSubjectMismatch,
					fmt.Sprintf("topic %q belongs to subject %q", other.ID, other.SubjectID))
			}
			return nil, apperr.Validation(op, fmt.Sprintf("items[%d].topic", i), apperr.ConstraintUnknownTopic,
				fmt.Sprintf("unknown topic %q", r.Topic))
		}
		if topic.SubjectID != subject.ID {
			return nil, apperr.Validation(op, fmt.Sprintf("items[%d].topic", i), apperr.ConstraintTopicSubjectMismatch,
				fmt.Sprintf("topic %q belongs to subject %q", topic.ID, topic.SubjectID))
		}
		items = append(items, Item{
			DayOfWeek:       r.DayOfWeek,
			SubjectID:       subject.ID,
			TopicID:         topic.ID,
			DurationMinutes: r.DurationMinutes,
			Notes:           strings.TrimSpace(r.Notes),
			SortOrder:       perDay[r.DayOfWeek],
		})
		perDay[r.DayOfWeek]++
	}
	return items, nil
}
