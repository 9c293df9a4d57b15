package ai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/p-n-ai/pai-study/internal/platform/cache"
)

// BudgetChecker checks and records daily token usage per student.
type BudgetChecker interface {
	// Check returns true if the student has budget remaining today.
	Check(ctx context.Context, studentID string) (bool, error)
	// Record adds token usage to the student's daily total.
	Record(ctx context.Context, studentID string, tokens int) error
	// Usage returns today's usage and the applicable limit (0 means unlimited).
	Usage(ctx context.Context, studentID string) (used int64, limit int64, err error)
}

// budgetDay buckets usage by UTC calendar day.
func budgetDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// InMemoryBudget is an in-process budget tracker for development and tests.
type InMemoryBudget struct {
	mu        sync.RWMutex
	limit     int64
	overrides map[string]int64 // student -> limit
	usage     map[string]int64 // student:day -> tokens used
	now       func() time.Time
}

// NewInMemoryBudget creates a tracker with a default daily limit. A limit
// of zero or less means unlimited.
func NewInMemoryBudget(limit int64) *InMemoryBudget {
	return &InMemoryBudget{
		limit:     limit,
		overrides: make(map[string]int64),
		usage:     make(map[string]int64),
		now:       time.Now,
	}
}

// SetBudget overrides the daily limit for one student.
func (b *InMemoryBudget) SetBudget(studentID string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.overrides[studentID] = tokens
}

func (b *InMemoryBudget) Check(ctx context.Context, studentID string) (bool, error) {
	used, limit, err := b.Usage(ctx, studentID)
	if err != nil {
		return false, err
	}
	return limit <= 0 || used < limit, nil
}

func (b *InMemoryBudget) Record(_ context.Context, studentID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[b.key(studentID)] += int64(tokens)
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, studentID string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limit := b.limit
	if v, ok := b.overrides[studentID]; ok {
		limit = v
	}
	return b.usage[b.key(studentID)], limit, nil
}

func (b *InMemoryBudget) key(studentID string) string {
	return studentID + ":" + budgetDay(b.now())
}

// RedisBudget tracks daily usage in Redis so every instance shares one count.
type RedisBudget struct {
	cache *cache.Cache
	limit int64
	now   func() time.Time
}

// budgetTTL keeps a day's counter around a little past the day's end.
const budgetTTL = 48 * time.Hour

// NewRedisBudget creates a Redis-backed tracker with a daily limit. A limit
// of zero or less means unlimited.
func NewRedisBudget(c *cache.Cache, limit int64) *RedisBudget {
	return &RedisBudget{cache: c, limit: limit, now: time.Now}
}

func (b *RedisBudget) Check(ctx context.Context, studentID string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	used, _, err := b.Usage(ctx, studentID)
	if err != nil {
		return false, err
	}
	return used < b.limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, studentID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	if _, err := b.cache.IncrBy(ctx, b.key(studentID), int64(tokens), budgetTTL); err != nil {
		return fmt.Errorf("recording token usage: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, studentID string) (int64, int64, error) {
	used, err := b.cache.Counter(ctx, b.key(studentID))
	if err != nil {
		return 0, 0, fmt.Errorf("reading token usage: %w", err)
	}
	return used, b.limit, nil
}

func (b *RedisBudget) key(studentID string) string {
	return cache.Key("ai", "budget", studentID, budgetDay(b.now()))
}
