// Package planner builds weekly study plans. The rule-based Generator is
// deterministic; the Assistant asks an AI provider for a plan and accepts it
// only after schema, catalog and rule validation, falling back to the
// Generator otherwise.
package planner

import (
	"github.com/p-n-ai/pai-study/internal/priority"
	"github.com/p-n-ai/pai-study/internal/progress"
)

// Source records who produced a plan.
type Source string

const (
	SourceManual Source = "manual"
	SourceRules  Source = "rules"
	SourceAI     Source = "ai"
)

// Session and day limits.
const (
	MinSessionMinutes = 30
	MaxSessionMinutes = 90
	MinDaySubjects    = 2
	MaxDaySubjects    = 4

	// completionRatio is the mastery ratio above which a topic counts as completed.
	completionRatio = 0.7
	// prereqGapDays is how many days a newly introduced hard prerequisite
	// must precede its dependent topic.
	prereqGapDays = 2

	hardPrereqLevel    = 2
	unfamiliarMaxLevel = 1
	masteredMinLevel   = 4
	backfillMaxLevel   = 2

	defaultDailyHours = 2.0
)

// Item is one study session of a generated or submitted plan.
type Item struct {
	DayOfWeek       int    `json:"dayOfWeek"`
	SubjectID       string `json:"subjectId"`
	TopicID         string `json:"topicId,omitempty"`
	DurationMinutes int    `json:"durationMinutes"`
	Notes           string `json:"notes,omitempty"`
	SortOrder       int    `json:"sortOrder"`
}

// Draft is a plan that has not been persisted yet.
type Draft struct {
	Items       []Item `json:"items"`
	Explanation string `json:"explanation"`
	Source      Source `json:"source"`
	// FallbackReason is set when an assisted request was answered by the
	// rule-based generator.
	FallbackReason string `json:"fallbackReason,omitempty"`
}

// Input is everything a generator reads about the student.
type Input struct {
	StudentID   string
	ExamTypeID  string
	Profile     progress.Profile
	Snapshot    progress.Snapshot
	Priorities  []priority.Recommendation
	RecentExams []progress.ExamResult
}

func (in Input) level(topicID string) int {
	return in.Snapshot.Level(topicID)
}

func (in Input) scores() map[string]float64 {
	out := make(map[string]float64, len(in.Priorities))
	for _, r := range in.Priorities {
		out[r.TopicID] = r.PriorityScore
	}
	return out
}

// Bounds limit item durations and say whether a topic is mandatory.
type Bounds struct {
	MinMinutes   int
	MaxMinutes   int
	RequireTopic bool
}

var (
	// GeneratedBounds apply to rule-based and AI plans.
	GeneratedBounds = Bounds{MinMinutes: MinSessionMinutes, MaxMinutes: MaxSessionMinutes, RequireTopic: true}
	// ManualBounds apply to plans written by the student.
	ManualBounds = Bounds{MinMinutes: 5, MaxMinutes: 480}
)
