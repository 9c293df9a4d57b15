// Package progress records a student's study activity (knowledge levels,
// objective checks, study events, mock exams, study profile) and serves the
// per-topic aggregates the recommender and planner read.
package progress

import (
	"context"
	"slices"
	"time"
)

// Source identifies which logging flow produced a study event.
type Source string

const (
	SourceDailyLog    Source = "daily_log"
	SourceTopicReview Source = "topic_review"
)

// BreakPreference is the student's preferred session length.
type BreakPreference string

const (
	BreakShort  BreakPreference = "short"
	BreakMedium BreakPreference = "medium"
	BreakLong   BreakPreference = "long"
)

// Knowledge level bounds.
const (
	MinLevel = 0
	MaxLevel = 5
)

// StudyEvent is a timestamped record of study activity on a topic.
type StudyEvent struct {
	ID        string    `json:"id"`
	StudentID string    `json:"studentId"`
	TopicID   string    `json:"topicId"`
	Source    Source    `json:"source"`
	Minutes   int       `json:"minutes"`
	StudiedAt time.Time `json:"studiedAt"`
}

// ExamResult is a mock exam with the topics of its wrong answers.
type ExamResult struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"studentId"`
	ExamTypeID    string    `json:"examTypeId"`
	Name          string    `json:"name"`
	TakenAt       time.Time `json:"takenAt"`
	Correct       int       `json:"correct"`
	Wrong         int       `json:"wrong"`
	Blank         int       `json:"blank"`
	WrongTopicIDs []string  `json:"wrongTopicIds,omitempty"`
}

// Net returns the exam's net score (four wrong answers cancel one correct).
func (e ExamResult) Net() float64 {
	return float64(e.Correct) - float64(e.Wrong)/4
}

// Profile holds the student's availability and planning preferences.
type Profile struct {
	StudentID         string          `json:"studentId"`
	DailyStudyHours   float64         `json:"dailyStudyHours"`
	AvailableDays     []int           `json:"availableDays"`
	BreakPreference   BreakPreference `json:"breakPreference"`
	Regularity        string          `json:"regularity,omitempty"`
	TargetRank        int             `json:"targetRank,omitempty"`
	ExamDate          *time.Time      `json:"examDate,omitempty"`
	WeeklyTargetHours *float64        `json:"weeklyTargetHours,omitempty"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// ProfilePatch overrides some fields of a profile. Nil fields keep the
// base value; a non-nil empty AvailableDays means every day.
type ProfilePatch struct {
	DailyStudyHours   *float64         `json:"dailyStudyHours,omitempty"`
	AvailableDays     []int            `json:"availableDays,omitempty"`
	BreakPreference   *BreakPreference `json:"breakPreference,omitempty"`
	Regularity        *string          `json:"regularity,omitempty"`
	TargetRank        *int             `json:"targetRank,omitempty"`
	ExamDate          *time.Time       `json:"examDate,omitempty"`
	WeeklyTargetHours *float64         `json:"weeklyTargetHours,omitempty"`
}

// Apply returns p with the patched fields replaced.
func (pp ProfilePatch) Apply(p Profile) Profile {
	if pp.DailyStudyHours != nil {
		p.DailyStudyHours = *pp.DailyStudyHours
	}
	if pp.AvailableDays != nil {
		p.AvailableDays = slices.Clone(pp.AvailableDays)
	}
	if pp.BreakPreference != nil {
		p.BreakPreference = *pp.BreakPreference
	}
	if pp.Regularity != nil {
		p.Regularity = *pp.Regularity
	}
	if pp.TargetRank != nil {
		p.TargetRank = *pp.TargetRank
	}
	if pp.ExamDate != nil {
		d := *pp.ExamDate
		p.ExamDate = &d
	}
	if pp.WeeklyTargetHours != nil {
		h := *pp.WeeklyTargetHours
		p.WeeklyTargetHours = &h
	}
	return p
}

// Store persists study records. Implementations must be safe for
// concurrent use.
type Store interface {
	UpsertKnowledgeLevel(ctx context.Context, studentID, topicID string, level int) error
	// SetObjectiveChecked marks or clears an objective and, in the same
	// transaction, sets the topic's level from the checked share of its
	// total objectives. It returns the new level.
	SetObjectiveChecked(ctx context.Context, studentID, topicID, objectiveID string, checked bool, total int) (int, error)
	InsertStudyEvent(ctx context.Context, ev StudyEvent) error
	// InsertExam stores the result and its wrong answers atomically.
	InsertExam(ctx context.Context, exam ExamResult) error
	UpsertProfile(ctx context.Context, p Profile) error
	Profile(ctx context.Context, studentID string) (Profile, error)

	KnowledgeLevels(ctx context.Context, studentID string) (map[string]int, error)
	LastStudied(ctx context.Context, studentID string) (map[string]time.Time, error)
	WrongCounts(ctx context.Context, studentID string) (map[string]int, error)
	CheckedObjectives(ctx context.Context, studentID string) (map[string]int, error)
	RecentExams(ctx context.Context, studentID string, limit int) ([]ExamResult, error)
}

// Snapshot bundles the per-topic aggregates for one student.
type Snapshot struct {
	Levels          map[string]int
	LastStudied     map[string]time.Time
	WrongCounts     map[string]int
	ObjectiveRatios map[string]float64
}

// Level returns the knowledge level of a topic, 0 when unknown.
func (s Snapshot) Level(topicID string) int {
	return s.Levels[topicID]
}

// MasteryRatio returns the checked-objective ratio of a topic when any of
// its objectives is checked, and level/5 otherwise.
func (s Snapshot) MasteryRatio(topicID string) float64 {
	if r, ok := s.ObjectiveRatios[topicID]; ok {
		return r
	}
	return float64(s.Levels[topicID]) / MaxLevel
}

// LevelFromRatio converts a checked-objective ratio to a knowledge level.
func LevelFromRatio(checked, total int) int {
	if total <= 0 {
		return 0
	}
	level := int(float64(MaxLevel)*float64(checked)/float64(total) + 0.5)
	return max(MinLevel, min(MaxLevel, level))
}
