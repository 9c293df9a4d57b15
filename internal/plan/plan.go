// Package plan stores weekly study plans and implements their mutations:
// create, replace, item edits, moves, completion toggles and export.
package plan

import (
	"context"
	"time"

	"github.com/p-n-ai/pai-study/internal/planner"
)

// Plan is a persisted weekly plan with its items in day and sort order.
type Plan struct {
	ID          string         `json:"id"`
	StudentID   string         `json:"studentId"`
	Title       string         `json:"title"`
	StartDate   time.Time      `json:"startDate"`
	EndDate     time.Time      `json:"endDate"`
	Explanation string         `json:"explanation,omitempty"`
	Source      planner.Source `json:"source"`
	Items       []Item         `json:"items"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Item is one session of a weekly plan.
type Item struct {
	ID              string     `json:"id"`
	PlanID          string     `json:"planId"`
	DayOfWeek       int        `json:"dayOfWeek"`
	SubjectID       string     `json:"subjectId"`
	TopicID         string     `json:"topicId,omitempty"`
	DurationMinutes int        `json:"durationMinutes"`
	Notes           string     `json:"notes,omitempty"`
	SortOrder       int        `json:"sortOrder"`
	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
}

// Input is the client-supplied part of a plan for create and replace.
type Input struct {
	Title       string         `json:"title"`
	StartDate   time.Time      `json:"startDate"`
	EndDate     time.Time      `json:"endDate"`
	Explanation string         `json:"explanation,omitempty"`
	Source      planner.Source `json:"-"`
	Items       []planner.Item `json:"items"`
}

// ItemPatch edits a single item. Nil fields are left unchanged; an empty
// TopicID clears the topic.
type ItemPatch struct {
	DayOfWeek       *int    `json:"dayOfWeek,omitempty"`
	SubjectID       *string `json:"subjectId,omitempty"`
	TopicID         *string `json:"topicId,omitempty"`
	DurationMinutes *int    `json:"durationMinutes,omitempty"`
	Notes           *string `json:"notes,omitempty"`
	SortOrder       *int    `json:"sortOrder,omitempty"`
}

func (p ItemPatch) apply(it Item) Item {
	if p.DayOfWeek != nil {
		it.DayOfWeek = *p.DayOfWeek
	}
	if p.SubjectID != nil {
		it.SubjectID = *p.SubjectID
	}
	if p.TopicID != nil {
		it.TopicID = *p.TopicID
	}
	if p.DurationMinutes != nil {
		it.DurationMinutes = *p.DurationMinutes
	}
	if p.Notes != nil {
		it.Notes = *p.Notes
	}
	if p.SortOrder != nil {
		it.SortOrder = *p.SortOrder
	}
	return it
}

// Store persists plans. Every read and write is scoped to a student; a plan
// of another student is reported as apperr.ErrNotFound. Implementations must
// be safe for concurrent use.
type Store interface {
	// CreatePlan inserts the plan and its items atomically.
	CreatePlan(ctx context.Context, p Plan) error
	// ReplacePlan updates the plan header and swaps the whole item set
	// atomically.
	ReplacePlan(ctx context.Context, p Plan) error
	GetPlan(ctx context.Context, studentID, planID string) (Plan, error)
	// ListPlans returns the student's plans, newest start date first.
	ListPlans(ctx context.Context, studentID string) ([]Plan, error)
	DeletePlan(ctx context.Context, studentID, planID string) error

	// UpdateItem overwrites one item and touches the plan's UpdatedAt.
	UpdateItem(ctx context.Context, studentID string, it Item, at time.Time) error
	DeleteItem(ctx context.Context, studentID, planID, itemID string) error
}
