package progress

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
	mu       sync.RWMutex
	levels   map[string]map[string]int
	checks   map[string]map[string]map[string]bool // student -> topic -> objective
	events   map[string][]StudyEvent
	exams    map[string][]ExamResult
	profiles map[string]Profile
}

// NewMemoryStore creates a new in-memory progress store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		levels:   make(map[string]map[string]int),
		checks:   make(map[string]map[string]map[string]bool),
		events:   make(map[string][]StudyEvent),
		exams:    make(map[string][]ExamResult),
		profiles: make(map[string]Profile),
	}
}

func (s *MemoryStore) UpsertKnowledgeLevel(_ context.Context, studentID, topicID string, level int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.levels[studentID]
	if m == nil {
		m = make(map[string]int)
		s.levels[studentID] = m
	}
	m[topicID] = level
	return nil
}

func (s *MemoryStore) SetObjectiveChecked(_ context.Context, studentID, topicID, objectiveID string, checked bool, total int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byTopic := s.checks[studentID]
	if byTopic == nil {
		byTopic = make(map[string]map[string]bool)
		s.checks[studentID] = byTopic
	}
	objs := byTopic[topicID]
	if objs == nil {
		objs = make(map[string]bool)
		byTopic[topicID] = objs
	}
	if checked {
		objs[objectiveID] = true
	} else {
		delete(objs, objectiveID)
	}

	level := LevelFromRatio(len(objs), total)
	levels := s.levels[studentID]
	if levels == nil {
		levels = make(map[string]int)
		s.levels[studentID] = levels
	}
	levels[topicID] = level
	return level, nil
}

func (s *MemoryStore) InsertStudyEvent(_ context.Context, ev StudyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[ev.StudentID] = append(s.events[ev.StudentID], ev)
	return nil
}

func (s *MemoryStore) InsertExam(_ context.Context, exam ExamResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exam.WrongTopicIDs = slices.Clone(exam.WrongTopicIDs)
	s.exams[exam.StudentID] = append(s.exams[exam.StudentID], exam)
	return nil
}

func (s *MemoryStore) UpsertProfile(_ context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.AvailableDays = slices.Clone(p.AvailableDays)
	s.profiles[p.StudentID] = p
	return nil
}

func (s *MemoryStore) Profile(_ context.Context, studentID string) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[studentID]
	if !ok {
		return Profile{}, apperr.NotFound("progress.Profile", "profile not found")
	}
	p.AvailableDays = slices.Clone(p.AvailableDays)
	return p, nil
}

func (s *MemoryStore) KnowledgeLevels(_ context.Context, studentID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.levels[studentID]))
	for k, v := range s.levels[studentID] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) LastStudied(_ context.Context, studentID string) (map[string]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]time.Time)
	for _, ev := range s.events[studentID] {
		if prev, ok := out[ev.TopicID]; !ok || ev.StudiedAt.After(prev) {
			out[ev.TopicID] = ev.StudiedAt
		}
	}
	return out, nil
}

func (s *MemoryStore) WrongCounts(_ context.Context, studentID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int)
	for _, exam := range s.exams[studentID] {
		for _, topicID := range exam.WrongTopicIDs {
			out[topicID]++
		}
	}
	return out, nil
}

func (s *MemoryStore) CheckedObjectives(_ context.Context, studentID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int)
	for topicID, objs := range s.checks[studentID] {
		if len(objs) > 0 {
			out[topicID] = len(objs)
		}
	}
	return out, nil
}

func (s *MemoryStore) RecentExams(_ context.Context, studentID string, limit int) ([]ExamResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exams := slices.Clone(s.exams[studentID])
	slices.SortStableFunc(exams, func(a, b ExamResult) int { return cmp.Compare(b.TakenAt.UnixNano(), a.TakenAt.UnixNano()) })
	if limit > 0 && len(exams) > limit {
		exams = exams[:limit]
	}
	return exams, nil
}
