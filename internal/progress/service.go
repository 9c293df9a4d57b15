package progress

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/curriculum"
)

// Invalidator drops cached data derived from a student's progress.
type Invalidator interface {
	Invalidate(ctx context.Context, studentID string) error
}

// Service validates progress writes against the catalog before storing them.
type Service struct {
	store       Store
	catalog     *curriculum.Catalog
	invalidator Invalidator
	now         func() time.Time
}

// NewService creates a progress service. invalidator may be nil.
func NewService(store Store, catalog *curriculum.Catalog, invalidator Invalidator) *Service {
	return &Service{
		store:       store,
		catalog:     catalog,
		invalidator: invalidator,
		now:         time.Now,
	}
}

// SetKnowledgeLevel records a direct level input for a topic.
func (s *Service) SetKnowledgeLevel(ctx context.Context, studentID, topicID string, level int) error {
	if _, ok := s.catalog.Topic(topicID); !ok {
		return apperr.Validation("progress.SetKnowledgeLevel", "topicId", apperr.ConstraintUnknownTopic, "unknown topic")
	}
	if level < MinLevel || level > MaxLevel {
		return apperr.Validation("progress.SetKnowledgeLevel", "level", apperr.ConstraintLevelRange, "must be between 0 and 5")
	}
	if err := s.store.UpsertKnowledgeLevel(ctx, studentID, topicID, level); err != nil {
		return fmt.Errorf("set knowledge level: %w", err)
	}
	s.invalidate(ctx, studentID)
	return nil
}

// CheckObjective marks an objective done and recomputes the topic's level.
// It returns the new level.
func (s *Service) CheckObjective(ctx context.Context, studentID, topicID, objectiveID string) (int, error) {
	return s.setObjective(ctx, studentID, topicID, objectiveID, true)
}

// UncheckObjective clears an objective and recomputes the topic's level.
func (s *Service) UncheckObjective(ctx context.Context, studentID, topicID, objectiveID string) (int, error) {
	return s.setObjective(ctx, studentID, topicID, objectiveID, false)
}

func (s *Service) setObjective(ctx context.Context, studentID, topicID, objectiveID string, checked bool) (int, error) {
	topic, ok := s.catalog.Topic(topicID)
	if !ok {
		return 0, apperr.Validation("progress.SetObjective", "topicId", apperr.ConstraintUnknownTopic, "unknown topic")
	}
	if !topic.HasObjective(objectiveID) {
		return 0, apperr.Validation("progress.SetObjective", "objectiveId", apperr.ConstraintUnknownObjective, "unknown objective")
	}

	level, err := s.store.SetObjectiveChecked(ctx, studentID, topicID, objectiveID, checked, len(topic.LearningObjectives))
	if err != nil {
		return 0, fmt.Errorf("set objective: %w", err)
	}
	s.invalidate(ctx, studentID)
	return level, nil
}

// LogStudy records a daily log or topic review entry.
func (s *Service) LogStudy(ctx context.Context, ev StudyEvent) (StudyEvent, error) {
	if _, ok := s.catalog.Topic(ev.TopicID); !ok {
		return StudyEvent{}, apperr.Validation("progress.LogStudy", "topicId", apperr.ConstraintUnknownTopic, "unknown topic")
	}
	if ev.Source == "" {
		ev.Source = SourceDailyLog
	}
	if ev.Source != SourceDailyLog && ev.Source != SourceTopicReview {
		return StudyEvent{}, apperr.Validation("progress.LogStudy", "source", apperr.ConstraintInvalidValue, "must be daily_log or topic_review")
	}
	if ev.Minutes < 0 {
		return StudyEvent{}, apperr.Validation("progress.LogStudy", "minutes", apperr.ConstraintDurationRange, "must not be negative")
	}
	if ev.StudiedAt.IsZero() {
		ev.StudiedAt = s.now()
	}
	ev.ID = uuid.New().String()

	if err := s.store.InsertStudyEvent(ctx, ev); err != nil {
		return StudyEvent{}, fmt.Errorf("log study: %w", err)
	}
	s.invalidate(ctx, ev.StudentID)
	return ev, nil
}

// RecordExam stores a mock exam result and its wrong-answer topics.
func (s *Service) RecordExam(ctx context.Context, exam ExamResult) (ExamResult, error) {
	const op = "progress.RecordExam"
	if _, ok := s.catalog.ExamType(exam.ExamTypeID); !ok {
		return ExamResult{}, apperr.Validation(op, "examTypeId", apperr.ConstraintInvalidValue, "unknown exam type")
	}
	if exam.Correct < 0 || exam.Wrong < 0 || exam.Blank < 0 {
		return ExamResult{}, apperr.Validation(op, "correct", apperr.ConstraintInvalidValue, "counts must not be negative")
	}
	for i, id := range exam.WrongTopicIDs {
		if _, ok := s.catalog.Topic(id); !ok {
			return ExamResult{}, apperr.Validation(op, fmt.Sprintf("wrongTopicIds[%d]", i), apperr.ConstraintUnknownTopic, "unknown topic")
		}
	}
	if exam.TakenAt.IsZero() {
		exam.TakenAt = s.now()
	}
	exam.ID = uuid.New().String()

	if err := s.store.InsertExam(ctx, exam); err != nil {
		return ExamResult{}, fmt.Errorf("record exam: %w", err)
	}
	s.invalidate(ctx, exam.StudentID)
	return exam, nil
}

// SaveProfile validates and stores the study profile.
func (s *Service) SaveProfile(ctx context.Context, p Profile) (Profile, error) {
	p, err := NormalizeProfile(p)
	if err != nil {
		return Profile{}, err
	}
	p.UpdatedAt = s.now()

	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return Profile{}, fmt.Errorf("save profile: %w", err)
	}
	return p, nil
}

// NormalizeProfile validates p, fills the default break preference and
// sorts the available days. It does not store anything.
func NormalizeProfile(p Profile) (Profile, error) {
	const op = "progress.NormalizeProfile"
	if p.DailyStudyHours < 0 || p.DailyStudyHours > 24 {
		return Profile{}, apperr.Validation(op, "dailyStudyHours", apperr.ConstraintInvalidValue, "must be between 0 and 24")
	}
	for i, d := range p.AvailableDays {
		if d < 0 || d > 6 {
			return Profile{}, apperr.Validation(op, fmt.Sprintf("availableDays[%d]", i), apperr.ConstraintDayOfWeekRange, "must be between 0 and 6")
		}
	}
	switch p.BreakPreference {
	case "":
		p.BreakPreference = BreakMedium
	case BreakShort, BreakMedium, BreakLong:
	default:
		return Profile{}, apperr.Validation(op, "breakPreference", apperr.ConstraintInvalidValue, "must be short, medium or long")
	}
	if p.WeeklyTargetHours != nil && (*p.WeeklyTargetHours < 0 || *p.WeeklyTargetHours > 168) {
		return Profile{}, apperr.Validation(op, "weeklyTargetHours", apperr.ConstraintInvalidValue, "must be between 0 and 168")
	}
	if p.TargetRank < 0 {
		return Profile{}, apperr.Validation(op, "targetRank", apperr.ConstraintInvalidValue, "must not be negative")
	}
	p.AvailableDays = dedupeDays(p.AvailableDays)
	return p, nil
}

// GetProfile returns the student's profile or apperr.ErrNotFound.
func (s *Service) GetProfile(ctx context.Context, studentID string) (Profile, error) {
	p, err := s.store.Profile(ctx, studentID)
	if err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// KnowledgeLevels returns topic -> level for the student.
func (s *Service) KnowledgeLevels(ctx context.Context, studentID string) (map[string]int, error) {
	return s.store.KnowledgeLevels(ctx, studentID)
}

// LastStudied returns topic -> most recent study time across both sources.
func (s *Service) LastStudied(ctx context.Context, studentID string) (map[string]time.Time, error) {
	return s.store.LastStudied(ctx, studentID)
}

// WrongCounts returns topic -> number of recorded wrong answers.
func (s *Service) WrongCounts(ctx context.Context, studentID string) (map[string]int, error) {
	return s.store.WrongCounts(ctx, studentID)
}

// ObjectiveRatios returns topic -> checked/total for topics with at least
// one checked objective.
func (s *Service) ObjectiveRatios(ctx context.Context, studentID string) (map[string]float64, error) {
	checked, err := s.store.CheckedObjectives(ctx, studentID)
	if err != nil {
		return nil, err
	}
	ratios := make(map[string]float64, len(checked))
	for topicID, n := range checked {
		topic, ok := s.catalog.Topic(topicID)
		if !ok || len(topic.LearningObjectives) == 0 || n == 0 {
			continue
		}
		ratios[topicID] = min(1, float64(n)/float64(len(topic.LearningObjectives)))
	}
	return ratios, nil
}

// RecentExams returns the latest exam results, newest first.
func (s *Service) RecentExams(ctx context.Context, studentID string, limit int) ([]ExamResult, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.store.RecentExams(ctx, studentID, limit)
}

// Snapshot reads every per-topic aggregate for the student.
func (s *Service) Snapshot(ctx context.Context, studentID string) (Snapshot, error) {
	levels, err := s.KnowledgeLevels(ctx, studentID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("knowledge levels: %w", err)
	}
	last, err := s.LastStudied(ctx, studentID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("last studied: %w", err)
	}
	wrong, err := s.WrongCounts(ctx, studentID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("wrong counts: %w", err)
	}
	ratios, err := s.ObjectiveRatios(ctx, studentID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("objective ratios: %w", err)
	}
	return Snapshot{Levels: levels, LastStudied: last, WrongCounts: wrong, ObjectiveRatios: ratios}, nil
}

func (s *Service) invalidate(ctx context.Context, studentID string) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, studentID); err != nil {
		slog.Warn("invalidating cached recommendations failed", "student_id", studentID, "error", err)
	}
}

func dedupeDays(days []int) []int {
	var seen [7]bool
	out := make([]int, 0, len(days))
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	slices.Sort(out)
	return out
}
