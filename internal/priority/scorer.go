// Package priority ranks curriculum topics by how urgently a student should
// study them next.
package priority

import (
	"cmp"
	"math"
	"slices"
	"time"

	"github.com/p-n-ai/pai-study/internal/curriculum"
)

// DefaultLimit is the number of recommendations returned when the caller
// does not ask for a specific count.
const DefaultLimit = 20

// neverStudiedFactor replaces the recency term for topics with no study events.
const neverStudiedFactor = 3.0

// Recommendation is one ranked topic.
type Recommendation struct {
	TopicID            string  `json:"topicId"`
	TopicName          string  `json:"topicName"`
	SubjectID          string  `json:"subjectId"`
	SubjectName        string  `json:"subjectName"`
	ExamTypeName       string  `json:"examTypeName"`
	KnowledgeLevel     int     `json:"knowledgeLevel"`
	DaysSinceLastStudy *int    `json:"daysSinceLastStudy"`
	WrongCount         int     `json:"wrongCount"`
	PriorityScore      float64 `json:"priorityScore"`
}

// Input is everything the scorer reads. Missing map entries mean level 0,
// never studied and zero wrong answers.
type Input struct {
	Topics      []curriculum.Topic
	Subjects    map[string]curriculum.Subject
	ExamNames   map[string]string // exam type ID -> display name
	Levels      map[string]int
	LastStudied map[string]time.Time
	WrongCounts map[string]int
	Now         time.Time
}

// Score computes the priority of every topic, sorts by score descending
// (ties by topic ID ascending) and truncates to limit.
func Score(in Input, limit int) []Recommendation {
	if limit <= 0 {
		limit = DefaultLimit
	}
	weights := SubjectWeights(in.Topics, in.Subjects)

	recs := make([]Recommendation, 0, len(in.Topics))
	for _, t := range in.Topics {
		subject := in.Subjects[t.SubjectID]
		level := in.Levels[t.ID]
		wrong := in.WrongCounts[t.ID]

		var days *int
		if last, ok := in.LastStudied[t.ID]; ok {
			d := DaysSince(last, in.Now)
			days = &d
		}

		recs = append(recs, Recommendation{
			TopicID:            t.ID,
			TopicName:          t.Name,
			SubjectID:          t.SubjectID,
			SubjectName:        subject.Name,
			ExamTypeName:       in.ExamNames[subject.ExamTypeID],
			KnowledgeLevel:     level,
			DaysSinceLastStudy: days,
			WrongCount:         wrong,
			PriorityScore:      PriorityScore(weights[t.SubjectID], level, days, wrong),
		})
	}

	slices.SortFunc(recs, func(a, b Recommendation) int {
		if c := cmp.Compare(b.PriorityScore, a.PriorityScore); c != 0 {
			return c
		}
		return cmp.Compare(a.TopicID, b.TopicID)
	})

	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

// PriorityScore is
//
//	round2(weight × (5 − level) × timeFactor + ln(wrong + 1) × 0.5)
//
// where timeFactor is ln(days + 2), or 3 when the topic was never studied.
func PriorityScore(weight float64, level int, daysSince *int, wrong int) float64 {
	gap := float64(5 - level)
	timeFactor := neverStudiedFactor
	if daysSince != nil {
		timeFactor = math.Log(float64(*daysSince) + 2)
	}
	wrongFactor := math.Log(float64(wrong) + 1)
	return round2(weight*gap*timeFactor + wrongFactor*0.5)
}

// SubjectWeights returns each subject's share of the total question count,
// counting every distinct subject present in topics exactly once.
func SubjectWeights(topics []curriculum.Topic, subjects map[string]curriculum.Subject) map[string]float64 {
	counts := make(map[string]int)
	for _, t := range topics {
		if _, seen := counts[t.SubjectID]; seen {
			continue
		}
		counts[t.SubjectID] = subjects[t.SubjectID].QuestionCount
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	total = max(total, 1)

	weights := make(map[string]float64, len(counts))
	for id, n := range counts {
		weights[id] = float64(n) / float64(total)
	}
	return weights
}

// DaysSince returns whole days elapsed between last and now, never negative.
func DaysSince(last, now time.Time) int {
	d := int(now.Sub(last).Hours() / 24)
	return max(d, 0)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
