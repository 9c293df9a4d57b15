package plan

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/p-n-ai/pai-study/internal/apperr"
)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[string]Plan
}

// NewMemoryStore creates a new in-memory plan store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[string]Plan)}
}

func (s *MemoryStore) CreatePlan(_ context.Context, p Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[p.ID] = clonePlan(p)
	return nil
}

func (s *MemoryStore) ReplacePlan(_ context.Context, p Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.plans[p.ID]
	if !ok || old.StudentID != p.StudentID {
		return apperr.NotFound("plan.ReplacePlan", "plan not found")
	}
	p.CreatedAt = old.CreatedAt
	s.plans[p.ID] = clonePlan(p)
	return nil
}

func (s *MemoryStore) GetPlan(_ context.Context, studentID, planID string) (Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[planID]
	if !ok || p.StudentID != studentID {
		return Plan{}, apperr.NotFound("plan.GetPlan", "plan not found")
	}
	return clonePlan(p), nil
}

func (s *MemoryStore) ListPlans(_ context.Context, studentID string) ([]Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Plan
	for _, p := range s.plans {
		if p.StudentID == studentID {
			out = append(out, clonePlan(p))
		}
	}
	slices.SortFunc(out, func(a, b Plan) int {
		if c := b.StartDate.Compare(a.StartDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *MemoryStore) DeletePlan(_ context.Context, studentID, planID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[planID]
	if !ok || p.StudentID != studentID {
		return apperr.NotFound("plan.DeletePlan", "plan not found")
	}
	delete(s.plans, planID)
	return nil
}

func (s *MemoryStore) UpdateItem(_ context.Context, studentID string, it Item, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[it.PlanID]
	if !ok || p.StudentID != studentID {
		return apperr.NotFound("plan.UpdateItem", "item not found")
	}
	i := slices.IndexFunc(p.Items, func(x Item) bool { return x.ID == it.ID })
	if i < 0 {
		return apperr.NotFound("plan.UpdateItem", "item not found")
	}
	p.Items[i] = it
	sortItems(p.Items)
	p.UpdatedAt = at
	s.plans[p.ID] = p
	return nil
}

func (s *MemoryStore) DeleteItem(_ context.Context, studentID, planID, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[planID]
	if !ok || p.StudentID != studentID {
		return apperr.NotFound("plan.DeleteItem", "item not found")
	}
	i := slices.IndexFunc(p.Items, func(x Item) bool { return x.ID == itemID })
	if i < 0 {
		return apperr.NotFound("plan.DeleteItem", "item not found")
	}
	p.Items = slices.Delete(p.Items, i, i+1)
	s.plans[planID] = p
	return nil
}

func clonePlan(p Plan) Plan {
	p.Items = slices.Clone(p.Items)
	for i, it := range p.Items {
		if it.CompletedAt != nil {
			at := *it.CompletedAt
			p.Items[i].CompletedAt = &at
		}
	}
	sortItems(p.Items)
	return p
}

// sortItems orders items by day, then sort order, then ID.
func sortItems(items []Item) {
	slices.SortStableFunc(items, func(a, b Item) int {
		if c := cmp.Compare(a.DayOfWeek, b.DayOfWeek); c != 0 {
			return c
		}
		if c := cmp.Compare(a.SortOrder, b.SortOrder); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
