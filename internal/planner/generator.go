package planner

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/progress"
)

// Generator produces rule-based weekly plans.
type Generator struct {
	catalog *curriculum.Catalog
}

// NewGenerator creates a rule-based generator over the catalog.
func NewGenerator(catalog *curriculum.Catalog) *Generator {
	return &Generator{catalog: catalog}
}

type pickKind int

const (
	kindNew pickKind = iota
	kindContinue
	kindBackfill
	kindReview
)

func (k pickKind) note() string {
	switch k {
	case kindNew:
		return "new topic"
	case kindContinue:
		return "continue"
	case kindBackfill:
		return "backfill"
	default:
		return "review"
	}
}

type subjectState struct {
	subject   curriculum.Subject
	topics    []curriculum.Topic
	frontier  int // index of the first incomplete topic; len(topics) when none
	remaining int // minutes left on the frontier topic
	priority  float64
	sessions  int
	reserved  int // days this subject held the reinforcement slot
}

type pick struct {
	state *subjectState
	topic curriculum.Topic
	kind  pickKind
}

type genState struct {
	in       Input
	scores   map[string]float64
	subjects []*subjectState
	firstDay map[string]int
	reviews  map[string]int
}

// Generate builds a plan for in.ExamTypeID from the student's profile and
// progress.
func (g *Generator) Generate(in Input) (Draft, error) {
	const op = "planner.Generate"
	if _, ok := g.catalog.ExamType(in.ExamTypeID); !ok {
		return Draft{}, apperr.Validation(op, "examType", apperr.ConstraintInvalidValue, "unknown exam type")
	}

	st := &genState{
		in:       in,
		scores:   in.scores(),
		firstDay: make(map[string]int),
		reviews:  make(map[string]int),
	}
	for _, s := range g.catalog.SubjectsForExam(in.ExamTypeID) {
		topics := g.catalog.SubjectTopics(s.ID)
		if len(topics) == 0 {
			continue
		}
		ss := &subjectState{subject: s, topics: topics, frontier: -1}
		for _, t := range topics {
			ss.priority += st.scores[t.ID]
		}
		st.advance(ss)
		st.subjects = append(st.subjects, ss)
	}
	if len(st.subjects) == 0 {
		return Draft{}, apperr.Validation(op, "examType", apperr.ConstraintInvalidValue, "exam type has no topics")
	}

	capacity := dayCapacities(in.Profile)
	var items []Item
	for day := range 7 {
		if capacity[day] == 0 {
			continue
		}
		n, length := sessions(capacity[day], in.Profile.BreakPreference)
		picks := st.planDay(day, n)
		for i, p := range arrangeDay(picks) {
			items = append(items, Item{
				DayOfWeek:       day,
				SubjectID:       p.state.subject.ID,
				TopicID:         p.topic.ID,
				DurationMinutes: length,
				Notes:           p.kind.note(),
				SortOrder:       i,
			})
		}
		st.commit(day, picks, length)
	}

	return Draft{Items: items, Explanation: st.explain(items), Source: SourceRules}, nil
}

// advance moves the subject's frontier to its next incomplete topic.
func (st *genState) advance(ss *subjectState) {
	ss.frontier++
	for ss.frontier < len(ss.topics) && st.in.Snapshot.MasteryRatio(ss.topics[ss.frontier].ID) > completionRatio {
		ss.frontier++
	}
	ss.remaining = 0
	if ss.frontier < len(ss.topics) {
		t := ss.topics[ss.frontier]
		left := t.EstimatedHours * 60 * (1 - st.in.Snapshot.MasteryRatio(t.ID))
		ss.remaining = max(int(math.Round(left)), 1)
	}
}

// planDay chooses up to n topics from distinct subjects for the day.
func (st *genState) planDay(day, n int) []pick {
	order := slices.Clone(st.subjects)
	slices.SortFunc(order, func(a, b *subjectState) int {
		ka := a.priority / float64(1+a.sessions)
		kb := b.priority / float64(1+b.sessions)
		if c := cmp.Compare(kb, ka); c != 0 {
			return c
		}
		return cmp.Compare(a.subject.ID, b.subject.ID)
	})

	var picks []pick
	used := make(map[string]bool)
	if p, ok := st.reserveReview(day, order); ok {
		picks = append(picks, p)
		used[p.state.subject.ID] = true
	}

	unfamiliar := false
	for _, ss := range order {
		if len(picks) >= n {
			break
		}
		if used[ss.subject.ID] {
			continue
		}
		p, ok := st.pickFor(ss, day, unfamiliar)
		if !ok {
			continue
		}
		if st.isNewUnfamiliar(p.topic) {
			unfamiliar = true
		}
		picks = append(picks, p)
		used[ss.subject.ID] = true
	}
	return picks
}

// reserveReview picks the day's reinforcement session. The slot rotates
// over subjects that have a mastered topic, lowest ranked first, so that no
// subject gives up its new material every day.
func (st *genState) reserveReview(day int, order []*subjectState) (pick, bool) {
	var (
		best  pick
		found bool
	)
	for i := len(order) - 1; i >= 0; i-- {
		ss := order[i]
		t, ok := st.bestReview(ss, day, true)
		if !ok {
			continue
		}
		if !found || ss.reserved < best.state.reserved {
			best, found = pick{state: ss, topic: t, kind: kindReview}, true
		}
	}
	if found {
		best.state.reserved++
	}
	return best, found
}

// isNewUnfamiliar reports whether scheduling t introduces an unfamiliar topic.
func (st *genState) isNewUnfamiliar(t curriculum.Topic) bool {
	_, introduced := st.firstDay[t.ID]
	return !introduced && st.in.level(t.ID) <= unfamiliarMaxLevel
}

// pickFor returns the subject's frontier topic when it can be scheduled,
// else its best backfill topic, else its best review topic.
func (st *genState) pickFor(ss *subjectState, day int, unfamiliarUsed bool) (pick, bool) {
	if ss.frontier < len(ss.topics) {
		t := ss.topics[ss.frontier]
		if st.schedulable(t, day, unfamiliarUsed) {
			kind := kindNew
			if _, seen := st.firstDay[t.ID]; seen {
				kind = kindContinue
			}
			return pick{state: ss, topic: t, kind: kind}, true
		}
	}
	if t, ok := st.bestBackfill(ss, day, unfamiliarUsed); ok {
		return pick{state: ss, topic: t, kind: kindBackfill}, true
	}
	if t, ok := st.bestReview(ss, day, unfamiliarUsed); ok {
		return pick{state: ss, topic: t, kind: kindReview}, true
	}
	return pick{}, false
}

// schedulable enforces the one-new-unfamiliar-topic-per-day rule and hard
// prerequisites.
func (st *genState) schedulable(t curriculum.Topic, day int, unfamiliarUsed bool) bool {
	if unfamiliarUsed && st.isNewUnfamiliar(t) {
		return false
	}
	for _, req := range t.Prerequisites.Required {
		if st.in.level(req) >= hardPrereqLevel {
			continue
		}
		first, ok := st.firstDay[req]
		if !ok || day-first < prereqGapDays {
			return false
		}
	}
	return true
}

// bestBackfill picks among completed topics before the frontier whose level
// is still low. Backfill ranks at half weight.
func (st *genState) bestBackfill(ss *subjectState, day int, unfamiliarUsed bool) (curriculum.Topic, bool) {
	return st.best(ss, day, unfamiliarUsed, ss.frontier, 0.5, func(t curriculum.Topic) bool {
		return st.in.level(t.ID) <= backfillMaxLevel
	})
}

// bestReview picks a mastered topic at or before the frontier.
func (st *genState) bestReview(ss *subjectState, day int, unfamiliarUsed bool) (curriculum.Topic, bool) {
	limit := min(ss.frontier+1, len(ss.topics))
	return st.best(ss, day, unfamiliarUsed, limit, 1, func(t curriculum.Topic) bool {
		return st.in.level(t.ID) >= masteredMinLevel
	})
}

func (st *genState) best(ss *subjectState, day int, unfamiliarUsed bool, limit int, weight float64, keep func(curriculum.Topic) bool) (curriculum.Topic, bool) {
	var (
		found    bool
		bestT    curriculum.Topic
		bestRank float64
	)
	for _, t := range ss.topics[:limit] {
		if !keep(t) || !st.schedulable(t, day, unfamiliarUsed) {
			continue
		}
		rank := st.rank(t, weight)
		if !found || rank > bestRank {
			found, bestT, bestRank = true, t, rank
		}
	}
	return bestT, found
}

// rank orders backfill and review candidates. Repeated reviews and soft
// prerequisites that are not yet known lower the rank.
func (st *genState) rank(t curriculum.Topic, weight float64) float64 {
	r := (st.scores[t.ID] + 0.01) * weight / float64(1+st.reviews[t.ID])
	for _, soft := range t.Prerequisites.Recommended {
		if st.in.level(soft) < hardPrereqLevel {
			r *= 0.8
			break
		}
	}
	return r
}

func (st *genState) commit(day int, picks []pick, length int) {
	for _, p := range picks {
		if _, ok := st.firstDay[p.topic.ID]; !ok {
			st.firstDay[p.topic.ID] = day
		}
		p.state.sessions++
		switch p.kind {
		case kindNew, kindContinue:
			p.state.remaining -= length
			if p.state.remaining <= 0 {
				st.advance(p.state)
			}
		default:
			st.reviews[p.topic.ID]++
		}
	}
}

func (st *genState) explain(items []Item) string {
	if len(items) == 0 {
		return "No study days are available in the profile."
	}
	days := make(map[int]bool)
	for _, it := range items {
		days[it.DayOfWeek] = true
	}
	focus := slices.Clone(st.subjects)
	slices.SortFunc(focus, func(a, b *subjectState) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.subject.ID, b.subject.ID)
	})
	var names []string
	for _, ss := range focus[:min(3, len(focus))] {
		names = append(names, ss.subject.Name)
	}
	return fmt.Sprintf("%d sessions over %d days, resuming each subject at its first incomplete topic. Highest priority: %s.",
		len(items), len(days), strings.Join(names, ", "))
}

// dayCapacities returns the study minutes available on each weekday.
func dayCapacities(p progress.Profile) [7]int {
	days := p.AvailableDays
	if len(days) == 0 {
		days = []int{0, 1, 2, 3, 4, 5, 6}
	}
	hours := p.DailyStudyHours
	if hours <= 0 {
		hours = defaultDailyHours
	}
	daily := int(math.Round(hours * 60))

	var caps [7]int
	for _, d := range days {
		caps[d] = daily
	}
	if p.WeeklyTargetHours != nil {
		target := int(math.Round(*p.WeeklyTargetHours * 60))
		if total := daily * len(days); target > total {
			extra := (target - total) / len(days)
			for _, d := range days {
				caps[d] += extra
			}
		}
	}
	for d := range caps {
		if caps[d] > 0 {
			caps[d] = min(max(caps[d], MinDaySubjects*MinSessionMinutes), MaxDaySubjects*MaxSessionMinutes)
		}
	}
	return caps
}

// sessionLength maps the break preference to a base session length.
func sessionLength(pref progress.BreakPreference) int {
	switch pref {
	case progress.BreakShort:
		return 30
	case progress.BreakLong:
		return 90
	default:
		return 60
	}
}

// sessions splits a day's capacity into 2-4 equal sessions of 30-90 minutes.
func sessions(capacity int, pref progress.BreakPreference) (n, length int) {
	base := sessionLength(pref)
	n = int(math.Round(float64(capacity) / float64(base)))
	n = min(max(n, MinDaySubjects), MaxDaySubjects)
	for n < MaxDaySubjects && n*MaxSessionMinutes < capacity {
		n++
	}
	length = capacity / n / 5 * 5
	length = min(max(length, MinSessionMinutes), MaxSessionMinutes)
	return n, length
}

// arrangeDay orders a day easy, hard, then easy: the easiest topic first,
// the second easiest last and the rest from hardest down.
func arrangeDay(picks []pick) []pick {
	sorted := slices.Clone(picks)
	slices.SortFunc(sorted, func(a, b pick) int {
		if c := cmp.Compare(a.topic.Difficulty, b.topic.Difficulty); c != 0 {
			return c
		}
		return cmp.Compare(a.topic.ID, b.topic.ID)
	})
	if len(sorted) < 3 {
		return sorted
	}
	out := make([]pick, 0, len(sorted))
	out = append(out, sorted[0])
	for i := len(sorted) - 1; i >= 2; i-- {
		out = append(out, sorted[i])
	}
	return append(out, sorted[1])
}
