package planner

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-study/internal/curriculum"
)

const (
	promptPriorities = 15
	promptExams      = 3
)

const systemPrompt = `You are a study planner for national exam preparation. You write one
weekly plan as a JSON object and nothing else.

Rules every plan must follow:
- dayOfWeek is 0 (Monday) to 6 (Sunday). Only use the student's available days.
- Each study day has 2 to 4 sessions, each on a different subject.
- Every session lasts 30 to 90 minutes.
- At most one unfamiliar topic (knowledge level 0 or 1) per day.
- At least one mastered topic (level 4 or 5) per day for reinforcement, when the student has one.
- Order each day easy, hard, easy by topic difficulty.
- A topic with a hard prerequisite below level 2 may only appear at least 2 days after that
  prerequisite first appears in the plan. Soft prerequisites are advisory.
- Within a subject, continue from the first incomplete topic in syllabus order. Never skip
  ahead of an incomplete topic; earlier weak topics may be revisited.
- Use only the subject and topic IDs listed below.

Answer format:
{"explanation": "short reasoning for the student",
 "items": [{"dayOfWeek": 0, "subject": "<subject id>", "topic": "<topic id>",
            "durationMinutes": 60, "notes": "optional"}]}`

// BuildPrompt renders the system and user prompts for an assisted plan.
func BuildPrompt(catalog *curriculum.Catalog, in Input) (system, user string) {
	var b strings.Builder
	p := in.Profile

	fmt.Fprintf(&b, "Exam type: %s\n\n", in.ExamTypeID)

	b.WriteString("Student profile:\n")
	days := p.AvailableDays
	if len(days) == 0 {
		days = []int{0, 1, 2, 3, 4, 5, 6}
	}
	hours := p.DailyStudyHours
	if hours <= 0 {
		hours = defaultDailyHours
	}
	fmt.Fprintf(&b, "- available days: %v\n", days)
	fmt.Fprintf(&b, "- daily study hours: %.1f\n", hours)
	if p.WeeklyTargetHours != nil {
		fmt.Fprintf(&b, "- weekly target hours: %.1f\n", *p.WeeklyTargetHours)
	}
	if p.BreakPreference != "" {
		fmt.Fprintf(&b, "- session preference: %s (%d minutes)\n", p.BreakPreference, sessionLength(p.BreakPreference))
	}
	if p.Regularity != "" {
		fmt.Fprintf(&b, "- regularity: %s\n", p.Regularity)
	}
	if p.TargetRank > 0 {
		fmt.Fprintf(&b, "- target rank: %d\n", p.TargetRank)
	}
	if p.ExamDate != nil {
		fmt.Fprintf(&b, "- exam date: %s\n", p.ExamDate.Format("2006-01-02"))
	}

	b.WriteString("\nCatalog (syllabus order; level is the student's knowledge 0-5):\n")
	for _, s := range catalog.SubjectsForExam(in.ExamTypeID) {
		fmt.Fprintf(&b, "Subject %s (%s), %d questions\n", s.ID, s.Name, s.QuestionCount)
		for _, t := range catalog.SubjectTopics(s.ID) {
			fmt.Fprintf(&b, "  - %s %q difficulty=%d hours=%.1f level=%d", t.ID, t.Name, t.Difficulty, t.EstimatedHours, in.level(t.ID))
			if len(t.Prerequisites.Required) > 0 {
				fmt.Fprintf(&b, " hard=%s", strings.Join(t.Prerequisites.Required, ","))
			}
			if len(t.Prerequisites.Recommended) > 0 {
				fmt.Fprintf(&b, " soft=%s", strings.Join(t.Prerequisites.Recommended, ","))
			}
			b.WriteByte('\n')
		}
	}

	if len(in.Priorities) > 0 {
		b.WriteString("\nHighest priority topics:\n")
		for _, r := range in.Priorities[:min(promptPriorities, len(in.Priorities))] {
			fmt.Fprintf(&b, "- %s score=%.2f wrong=%d\n", r.TopicID, r.PriorityScore, r.WrongCount)
		}
	}

	if len(in.RecentExams) > 0 {
		b.WriteString("\nRecent mock exams:\n")
		for _, e := range in.RecentExams[:min(promptExams, len(in.RecentExams))] {
			fmt.Fprintf(&b, "- %s %s net=%.2f (correct %d, wrong %d, blank %d)\n",
				e.TakenAt.Format("2006-01-02"), e.Name, e.Net(), e.Correct, e.Wrong, e.Blank)
		}
	}

	b.WriteString("\nWrite the plan for the coming week.")
	return systemPrompt, b.String()
}
