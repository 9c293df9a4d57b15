package planner

import (
	"fmt"
	"slices"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/curriculum"
)

// Validate checks every item against the catalog and the duration bounds.
// It returns the first violation as an apperr validation error.
func Validate(catalog *curriculum.Catalog, items []Item, b Bounds) error {
	const op = "planner.Validate"
	for i, it := range items {
		field := func(name string) string { return fmt.Sprintf("items[%d].%s", i, name) }

		if it.DayOfWeek < 0 || it.DayOfWeek > 6 {
			return apperr.Validation(op, field("dayOfWeek"), apperr.ConstraintDayOfWeekRange, "must be between 0 and 6")
		}
		if it.SubjectID == "" {
			return apperr.Validation(op, field("subjectId"), apperr.ConstraintRequired, "is required")
		}
		if _, ok := catalog.Subject(it.SubjectID); !ok {
			return apperr.Validation(op, field("subjectId"), apperr.ConstraintUnknownSubject, fmt.Sprintf("unknown subject %q", it.SubjectID))
		}
		if it.TopicID == "" {
			if b.RequireTopic {
				return apperr.Validation(op, field("topicId"), apperr.ConstraintRequired, "is required")
			}
		} else {
			t, ok := catalog.Topic(it.TopicID)
			if !ok {
				return apperr.Validation(op, field("topicId"), apperr.ConstraintUnknownTopic, fmt.Sprintf("unknown topic %q", it.TopicID))
			}
			if t.SubjectID != it.SubjectID {
				return apperr.Validation(op, field("topicId"), apperr.ConstraintTopicSubjectMismatch,
					fmt.Sprintf("topic %q belongs to subject %q", it.TopicID, t.SubjectID))
			}
		}
		if it.DurationMinutes < b.MinMinutes || it.DurationMinutes > b.MaxMinutes {
			return apperr.Validation(op, field("durationMinutes"), apperr.ConstraintDurationRange,
				fmt.Sprintf("must be between %d and %d", b.MinMinutes, b.MaxMinutes))
		}
	}
	return nil
}

// Rule names reported by CheckRules.
const (
	RuleHardPrerequisite = "hard_prerequisite"
	RuleUnfamiliarPerDay = "unfamiliar_per_day"
	RuleSubjectsPerDay   = "subjects_per_day"
	RuleMasteredPerDay   = "mastered_per_day"
	RuleFrontier         = "curriculum_order"
	RuleUnavailableDay   = "unavailable_day"
	RuleDuplicateSubject = "duplicate_subject"
)

// Violation is a broken scheduling rule. Blocking violations make a plan
// unacceptable; the others are advisory.
type Violation struct {
	Rule     string `json:"rule"`
	Day      int    `json:"day"`
	TopicID  string `json:"topicId,omitempty"`
	Message  string `json:"message"`
	Blocking bool   `json:"blocking"`
}

func (v Violation) String() string {
	return fmt.Sprintf("day %d: %s (%s)", v.Day, v.Message, v.Rule)
}

// Blocking returns the blocking violations.
func Blocking(vs []Violation) []Violation {
	var out []Violation
	for _, v := range vs {
		if v.Blocking {
			out = append(out, v)
		}
	}
	return out
}

// CheckRules reports scheduling rule violations of already validated items.
// Blocking: hard prerequisites, more than one unfamiliar topic introduced on
// a day, skipping an incomplete topic of the same subject, loading a day
// outside the student's availability, repeating a subject on a day and more
// than MaxDaySubjects subjects on a day. Too few subjects on a day and a day
// without reinforcement are advisory here; see AssistedBlocking.
func CheckRules(catalog *curriculum.Catalog, items []Item, in Input) []Violation {
	var vs []Violation

	firstDay := make(map[string]int)
	for _, it := range items {
		if it.TopicID == "" {
			continue
		}
		if d, ok := firstDay[it.TopicID]; !ok || it.DayOfWeek < d {
			firstDay[it.TopicID] = it.DayOfWeek
		}
	}

	type dayStats struct {
		subjects   map[string]int
		unfamiliar map[string]bool
		mastered   bool
	}
	days := make(map[int]*dayStats)
	reported := make(map[string]bool)

	for _, it := range items {
		ds := days[it.DayOfWeek]
		if ds == nil {
			ds = &dayStats{subjects: make(map[string]int), unfamiliar: make(map[string]bool)}
			days[it.DayOfWeek] = ds
		}
		ds.subjects[it.SubjectID]++

		t, ok := catalog.Topic(it.TopicID)
		if !ok {
			continue
		}
		level := in.level(t.ID)
		if level <= unfamiliarMaxLevel && firstDay[t.ID] == it.DayOfWeek {
			ds.unfamiliar[t.ID] = true
		}
		if level >= masteredMinLevel {
			ds.mastered = true
		}

		for _, req := range t.Prerequisites.Required {
			if in.level(req) >= hardPrereqLevel {
				continue
			}
			first, scheduled := firstDay[req]
			if scheduled && it.DayOfWeek-first >= prereqGapDays {
				continue
			}
			key := fmt.Sprintf("%s:%d:%s", t.ID, it.DayOfWeek, req)
			if reported[key] {
				continue
			}
			reported[key] = true
			msg := fmt.Sprintf("%s requires %s, which is not known and not introduced at least %d days earlier", t.ID, req, prereqGapDays)
			vs = append(vs, Violation{Rule: RuleHardPrerequisite, Day: it.DayOfWeek, TopicID: t.ID, Message: msg, Blocking: true})
		}

		if skipped, ok := skippedTopic(catalog, t, it.DayOfWeek, firstDay, in); ok {
			key := fmt.Sprintf("frontier:%s", t.ID)
			if !reported[key] {
				reported[key] = true
				vs = append(vs, Violation{Rule: RuleFrontier, Day: it.DayOfWeek, TopicID: t.ID, Blocking: true,
					Message: fmt.Sprintf("%s is scheduled before the incomplete topic %s", t.ID, skipped)})
			}
		}
	}

	available := make(map[int]bool)
	for _, d := range in.Profile.AvailableDays {
		available[d] = true
	}
	hasMastered := anyMastered(catalog, in)

	dayKeys := make([]int, 0, len(days))
	for d := range days {
		dayKeys = append(dayKeys, d)
	}
	slices.Sort(dayKeys)
	for _, d := range dayKeys {
		ds := days[d]
		if len(ds.unfamiliar) > 1 {
			vs = append(vs, Violation{Rule: RuleUnfamiliarPerDay, Day: d, Blocking: true,
				Message: fmt.Sprintf("%d unfamiliar topics introduced on one day", len(ds.unfamiliar))})
		}
		for _, subject := range sortedKeys(ds.subjects) {
			if n := ds.subjects[subject]; n > 1 {
				vs = append(vs, Violation{Rule: RuleDuplicateSubject, Day: d, Blocking: true,
					Message: fmt.Sprintf("subject %s is scheduled %d times", subject, n)})
			}
		}
		if n := len(ds.subjects); n < MinDaySubjects || n > MaxDaySubjects {
			vs = append(vs, Violation{Rule: RuleSubjectsPerDay, Day: d, Blocking: n > MaxDaySubjects,
				Message: fmt.Sprintf("%d distinct subjects, want %d-%d", n, MinDaySubjects, MaxDaySubjects)})
		}
		if hasMastered && !ds.mastered {
			vs = append(vs, Violation{Rule: RuleMasteredPerDay, Day: d, Message: "no mastered topic for reinforcement"})
		}
		if len(available) > 0 && !available[d] {
			vs = append(vs, Violation{Rule: RuleUnavailableDay, Day: d, Blocking: true, Message: "day is outside the student's availability"})
		}
	}
	return vs
}

// AssistedBlocking returns the violations that reject an AI plan: the
// blocking ones, plus days with fewer than MinDaySubjects subjects when the
// exam has enough subjects and the student has a mastered topic to pair with
// the day's new material. Without a mastered topic a beginner's first days
// can only hold one unfamiliar topic, so the shortfall stays advisory.
func AssistedBlocking(catalog *curriculum.Catalog, vs []Violation, in Input) []Violation {
	strict := len(catalog.SubjectsForExam(in.ExamTypeID)) >= MinDaySubjects && anyMastered(catalog, in)
	var out []Violation
	for _, v := range vs {
		if v.Blocking || (strict && v.Rule == RuleSubjectsPerDay) {
			v.Blocking = true
			out = append(out, v)
		}
	}
	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// skippedTopic returns an incomplete topic that precedes t in its subject's
// syllabus but is not scheduled on an earlier day.
func skippedTopic(catalog *curriculum.Catalog, t curriculum.Topic, day int, firstDay map[string]int, in Input) (string, bool) {
	for _, u := range catalog.SubjectTopics(t.SubjectID) {
		if u.ID == t.ID {
			return "", false
		}
		if in.Snapshot.MasteryRatio(u.ID) > completionRatio {
			continue
		}
		if first, ok := firstDay[u.ID]; !ok || first >= day {
			return u.ID, true
		}
	}
	return "", false
}

func anyMastered(catalog *curriculum.Catalog, in Input) bool {
	for _, t := range catalog.TopicsForExam(in.ExamTypeID) {
		if in.level(t.ID) >= masteredMinLevel {
			return true
		}
	}
	return false
}
