package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/planner"
)

const maxTitleLength = 200

// Service validates plan writes against the catalog before storing them.
type Service struct {
	store   Store
	catalog *curriculum.Catalog
	now     func() time.Time
}

// NewService creates a plan service.
func NewService(store Store, catalog *curriculum.Catalog) *Service {
	return &Service{store: store, catalog: catalog, now: time.Now}
}

// Create validates and stores a new plan with all of its items.
func (s *Service) Create(ctx context.Context, studentID string, in Input) (Plan, error) {
	const op = "plan.Create"
	if err := s.validateInput(op, in); err != nil {
		return Plan{}, err
	}

	now := s.now().UTC()
	p := Plan{
		ID:          uuid.NewString(),
		StudentID:   studentID,
		Title:       strings.TrimSpace(in.Title),
		StartDate:   dateOnly(in.StartDate),
		EndDate:     dateOnly(in.EndDate),
		Explanation: in.Explanation,
		Source:      in.Source,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Source == "" {
		p.Source = planner.SourceManual
	}
	p.Items = newItems(p.ID, in.Items)

	if err := s.store.CreatePlan(ctx, p); err != nil {
		return Plan{}, fmt.Errorf("create plan: %w", err)
	}
	sortItems(p.Items)
	return p, nil
}

// Replace overwrites the title, dates and the whole item set of a plan.
// Afterwards exactly the new items are stored.
func (s *Service) Replace(ctx context.Context, studentID, planID string, in Input) (Plan, error) {
	const op = "plan.Replace"
	if err := checkID(op, planID); err != nil {
		return Plan{}, err
	}
	if err := s.validateInput(op, in); err != nil {
		return Plan{}, err
	}
	old, err := s.store.GetPlan(ctx, studentID, planID)
	if err != nil {
		return Plan{}, fmt.Errorf("replace plan: %w", err)
	}

	p := old
	p.Title = strings.TrimSpace(in.Title)
	p.StartDate = dateOnly(in.StartDate)
	p.EndDate = dateOnly(in.EndDate)
	p.Explanation = in.Explanation
	p.Source = planner.SourceManual
	p.UpdatedAt = s.now().UTC()
	p.Items = newItems(p.ID, in.Items)

	if err := s.store.ReplacePlan(ctx, p); err != nil {
		return Plan{}, fmt.Errorf("replace plan: %w", err)
	}
	sortItems(p.Items)
	return p, nil
}

// Get returns one of the student's plans.
func (s *Service) Get(ctx context.Context, studentID, planID string) (Plan, error) {
	if err := checkID("plan.Get", planID); err != nil {
		return Plan{}, err
	}
	p, err := s.store.GetPlan(ctx, studentID, planID)
	if err != nil {
		return Plan{}, fmt.Errorf("get plan: %w", err)
	}
	return p, nil
}

// List returns the student's plans, newest first.
func (s *Service) List(ctx context.Context, studentID string) ([]Plan, error) {
	plans, err := s.store.ListPlans(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// Delete removes a plan and its items.
func (s *Service) Delete(ctx context.Context, studentID, planID string) error {
	if err := checkID("plan.Delete", planID); err != nil {
		return err
	}
	if err := s.store.DeletePlan(ctx, studentID, planID); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	return nil
}

// UpdateItem applies a patch to one item and validates the result.
func (s *Service) UpdateItem(ctx context.Context, studentID, planID, itemID string, patch ItemPatch) (Item, error) {
	const op = "plan.UpdateItem"
	it, err := s.item(ctx, op, studentID, planID, itemID)
	if err != nil {
		return Item{}, err
	}
	it = patch.apply(it)
	it.Notes = strings.TrimSpace(it.Notes)
	if it.SortOrder < 0 {
		return Item{}, apperr.Validation(op, "sortOrder", apperr.ConstraintInvalidValue, "must not be negative")
	}
	if err := s.validateItem(it); err != nil {
		return Item{}, err
	}
	return s.save(ctx, studentID, it)
}

// MoveItem changes an item's day and position. Scheduling rules are not
// re-checked, so a manual layout may break them.
func (s *Service) MoveItem(ctx context.Context, studentID, planID, itemID string, day, sortOrder int) (Item, error) {
	const op = "plan.MoveItem"
	if day < 0 || day > 6 {
		return Item{}, apperr.Validation(op, "dayOfWeek", apperr.ConstraintDayOfWeekRange, "must be between 0 and 6")
	}
	if sortOrder < 0 {
		return Item{}, apperr.Validation(op, "sortOrder", apperr.ConstraintInvalidValue, "must not be negative")
	}
	it, err := s.item(ctx, op, studentID, planID, itemID)
	if err != nil {
		return Item{}, err
	}
	it.DayOfWeek = day
	it.SortOrder = sortOrder
	return s.save(ctx, studentID, it)
}

// ToggleItem flips an item's completion and sets or clears CompletedAt.
func (s *Service) ToggleItem(ctx context.Context, studentID, planID, itemID string) (Item, error) {
	it, err := s.item(ctx, "plan.ToggleItem", studentID, planID, itemID)
	if err != nil {
		return Item{}, err
	}
	it.Completed = !it.Completed
	if it.Completed {
		at := s.now().UTC()
		it.CompletedAt = &at
	} else {
		it.CompletedAt = nil
	}
	return s.save(ctx, studentID, it)
}

// DeleteItem removes one item from a plan.
func (s *Service) DeleteItem(ctx context.Context, studentID, planID, itemID string) error {
	const op = "plan.DeleteItem"
	if err := checkID(op, planID); err != nil {
		return err
	}
	if err := checkID(op, itemID); err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, studentID, planID, itemID); err != nil {
		return fmt.Errorf("delete plan item: %w", err)
	}
	return nil
}

func (s *Service) item(ctx context.Context, op, studentID, planID, itemID string) (Item, error) {
	if err := checkID(op, planID); err != nil {
		return Item{}, err
	}
	if err := checkID(op, itemID); err != nil {
		return Item{}, err
	}
	p, err := s.store.GetPlan(ctx, studentID, planID)
	if err != nil {
		return Item{}, fmt.Errorf("get plan: %w", err)
	}
	for _, it := range p.Items {
		if it.ID == itemID {
			return it, nil
		}
	}
	return Item{}, apperr.NotFound(op, "item not found")
}

func (s *Service) save(ctx context.Context, studentID string, it Item) (Item, error) {
	if err := s.store.UpdateItem(ctx, studentID, it, s.now().UTC()); err != nil {
		return Item{}, fmt.Errorf("update plan item: %w", err)
	}
	return it, nil
}

func (s *Service) validateInput(op string, in Input) error {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return apperr.Validation(op, "title", apperr.ConstraintRequired, "is required")
	}
	if len(title) > maxTitleLength {
		return apperr.Validation(op, "title", apperr.ConstraintInvalidValue, fmt.Sprintf("must be at most %d characters", maxTitleLength))
	}
	if in.StartDate.IsZero() {
		return apperr.Validation(op, "startDate", apperr.ConstraintRequired, "is required")
	}
	if in.EndDate.IsZero() {
		return apperr.Validation(op, "endDate", apperr.ConstraintRequired, "is required")
	}
	if in.EndDate.Before(in.StartDate) {
		return apperr.Validation(op, "endDate", apperr.ConstraintDateRange, "must not be before startDate")
	}
	for i, it := range in.Items {
		if it.SortOrder < 0 {
			return apperr.Validation(op, fmt.Sprintf("items[%d].sortOrder", i), apperr.ConstraintInvalidValue, "must not be negative")
		}
	}
	return planner.Validate(s.catalog, in.Items, planner.ManualBounds)
}

// validateItem runs the catalog checks on a single item and reports the
// field without an index.
func (s *Service) validateItem(it Item) error {
	err := planner.Validate(s.catalog, []planner.Item{toDraftItem(it)}, planner.ManualBounds)
	var ae *apperr.Error
	if errors.As(err, &ae) {
		ae.Op = "plan.UpdateItem"
		ae.Field = strings.TrimPrefix(ae.Field, "items[0].")
	}
	return err
}

// dateOnly truncates t to its calendar date in UTC, the way the DATE columns
// store it.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func checkID(op, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.NotFound(op, "plan not found")
	}
	return nil
}

func newItems(planID string, in []planner.Item) []Item {
	items := make([]Item, len(in))
	for i, it := range in {
		items[i] = Item{
			ID:              uuid.NewString(),
			PlanID:          planID,
			DayOfWeek:       it.DayOfWeek,
			SubjectID:       it.SubjectID,
			TopicID:         it.TopicID,
			DurationMinutes: it.DurationMinutes,
			Notes:           strings.TrimSpace(it.Notes),
			SortOrder:       it.SortOrder,
		}
	}
	return items
}

func toDraftItem(it Item) planner.Item {
	return planner.Item{
		DayOfWeek:       it.DayOfWeek,
		SubjectID:       it.SubjectID,
		TopicID:         it.TopicID,
		DurationMinutes: it.DurationMinutes,
		Notes:           it.Notes,
		SortOrder:       it.SortOrder,
	}
}
