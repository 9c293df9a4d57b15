package curriculum

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Catalog is an immutable index of exam types, subjects and topics.
// It is safe for concurrent use.
type Catalog struct {
	exams     []ExamType
	examByID  map[string]ExamType
	subjects  map[string]Subject
	topics    map[string]Topic
	bySubject map[string][]Topic
	// subject ID -> folded topic name -> topic ID
	topicNames   map[string]map[string]string
	subjectNames map[string]string
}

// NewCatalog indexes the given exam types and topics. Duplicate IDs are
// rejected; structural problems are reported by Validate.
func NewCatalog(exams []ExamType, topics []Topic) (*Catalog, error) {
	c := &Catalog{
		examByID:     make(map[string]ExamType, len(exams)),
		subjects:     make(map[string]Subject),
		topics:       make(map[string]Topic, len(topics)),
		bySubject:    make(map[string][]Topic),
		topicNames:   make(map[string]map[string]string),
		subjectNames: make(map[string]string),
	}

	for _, e := range exams {
		if _, dup := c.examByID[e.ID]; dup {
			return nil, fmt.Errorf("duplicate exam type %q", e.ID)
		}
		subjects := make([]Subject, len(e.Subjects))
		for i, s := range e.Subjects {
			if _, dup := c.subjects[s.ID]; dup {
				return nil, fmt.Errorf("duplicate subject %q", s.ID)
			}
			s.ExamTypeID = e.ID
			subjects[i] = s
			c.subjects[s.ID] = s
			c.subjectNames[FoldName(s.Name)] = s.ID
		}
		e.Subjects = subjects
		c.exams = append(c.exams, e)
		c.examByID[e.ID] = e
	}
	slices.SortFunc(c.exams, func(a, b ExamType) int { return cmp.Compare(a.ID, b.ID) })

	for _, t := range topics {
		if _, dup := c.topics[t.ID]; dup {
			return nil, fmt.Errorf("duplicate topic %q", t.ID)
		}
		c.topics[t.ID] = t
		c.bySubject[t.SubjectID] = append(c.bySubject[t.SubjectID], t)
		names := c.topicNames[t.SubjectID]
		if names == nil {
			names = make(map[string]string)
			c.topicNames[t.SubjectID] = names
		}
		key := FoldName(t.Name)
		if prev, ok := names[key]; !ok || t.ID < prev {
			names[key] = t.ID
		}
	}
	for _, list := range c.bySubject {
		slices.SortFunc(list, bySyllabusOrder)
	}

	return c, nil
}

func bySyllabusOrder(a, b Topic) int {
	if c := cmp.Compare(a.Order, b.Order); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// FoldName normalizes a display name for case- and Unicode-insensitive matching.
func FoldName(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return norm.NFKC.String(cases.Fold().String(s))
}

// ExamTypes returns all exam types ordered by ID.
func (c *Catalog) ExamTypes() []ExamType {
	return slices.Clone(c.exams)
}

// ExamType returns an exam type by ID.
func (c *Catalog) ExamType(id string) (ExamType, bool) {
	e, ok := c.examByID[id]
	return e, ok
}

// Subject returns a subject by ID.
func (c *Catalog) Subject(id string) (Subject, bool) {
	s, ok := c.subjects[id]
	return s, ok
}

// Topic returns a topic by ID.
func (c *Catalog) Topic(id string) (Topic, bool) {
	t, ok := c.topics[id]
	return t, ok
}

// SubjectsForExam returns the subjects of an exam type in declaration order.
// An empty examTypeID selects the subjects of every exam type.
func (c *Catalog) SubjectsForExam(examTypeID string) []Subject {
	var out []Subject
	for _, e := range c.exams {
		if examTypeID != "" && e.ID != examTypeID {
			continue
		}
		out = append(out, e.Subjects...)
	}
	return out
}

// TopicsForExam returns the topics of every subject of the exam type,
// grouped by subject and in syllabus order within a subject.
func (c *Catalog) TopicsForExam(examTypeID string) []Topic {
	var out []Topic
	for _, s := range c.SubjectsForExam(examTypeID) {
		out = append(out, c.bySubject[s.ID]...)
	}
	return out
}

// SubjectTopics returns a subject's topics in syllabus order.
func (c *Catalog) SubjectTopics(subjectID string) []Topic {
	return slices.Clone(c.bySubject[subjectID])
}

// ResolveSubject finds a subject by ID or by folded name.
func (c *Catalog) ResolveSubject(ref string) (Subject, bool) {
	if s, ok := c.subjects[ref]; ok {
		return s, true
	}
	if id, ok := c.subjectNames[FoldName(ref)]; ok {
		return c.subjects[id], true
	}
	return Subject{}, false
}

// ResolveTopic finds a topic by ID or by folded name. When subjectID is set,
// name matches are limited to that subject.
func (c *Catalog) ResolveTopic(subjectID, ref string) (Topic, bool) {
	if t, ok := c.topics[ref]; ok {
		return t, true
	}
	key := FoldName(ref)
	if subjectID != "" {
		id, ok := c.topicNames[subjectID][key]
		if !ok {
			return Topic{}, false
		}
		return c.topics[id], true
	}

	var best string
	for _, names := range c.topicNames {
		if id, ok := names[key]; ok && (best == "" || id < best) {
			best = id
		}
	}
	if best == "" {
		return Topic{}, false
	}
	return c.topics[best], true
}

// Validate reports structural problems: topics of unknown subjects,
// prerequisites pointing at unknown topics, difficulties outside 1-5,
// negative estimates and prerequisite cycles.
func (c *Catalog) Validate() error {
	var errs []error

	ids := make([]string, 0, len(c.topics))
	for id := range c.topics {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		t := c.topics[id]
		if _, ok := c.subjects[t.SubjectID]; !ok {
			errs = append(errs, fmt.Errorf("topic %s: unknown subject %q", id, t.SubjectID))
		}
		if t.Difficulty < 1 || t.Difficulty > 5 {
			errs = append(errs, fmt.Errorf("topic %s: difficulty %d outside 1-5", id, t.Difficulty))
		}
		if t.EstimatedHours < 0 {
			errs = append(errs, fmt.Errorf("topic %s: negative estimated hours", id))
		}
		for _, e := range t.Edges() {
			if e.TopicID == id {
				errs = append(errs, fmt.Errorf("topic %s: depends on itself", id))
				continue
			}
			if _, ok := c.topics[e.TopicID]; !ok {
				errs = append(errs, fmt.Errorf("topic %s: unknown prerequisite %q", id, e.TopicID))
			}
		}
	}

	if cyclic := c.cyclicTopics(); len(cyclic) > 0 {
		errs = append(errs, fmt.Errorf("prerequisite cycle among topics: %s", strings.Join(cyclic, ", ")))
	}

	return errors.Join(errs...)
}

// TopologicalOrder returns topics so that every prerequisite precedes its
// dependents. Topics on a cycle are omitted.
func (c *Catalog) TopologicalOrder() []Topic {
	order, _ := c.kahn()
	return order
}

func (c *Catalog) cyclicTopics() []string {
	_, rest := c.kahn()
	return rest
}

// kahn runs Kahn's algorithm over known prerequisite edges. It returns the
// sorted topics and the IDs left with unresolved in-degree (cycle members).
func (c *Catalog) kahn() ([]Topic, []string) {
	inDegree := make(map[string]int, len(c.topics))
	dependents := make(map[string][]string)
	for id, t := range c.topics {
		if _, ok := inDegree[id]; !ok {
			inDegree[id] = 0
		}
		for _, e := range t.Edges() {
			if _, ok := c.topics[e.TopicID]; !ok || e.TopicID == id {
				continue
			}
			inDegree[id]++
			dependents[e.TopicID] = append(dependents[e.TopicID], id)
		}
	}

	var queue []string
	for id, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, id)
		}
	}
	slices.Sort(queue)

	order := make([]Topic, 0, len(c.topics))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, c.topics[id])

		deps := slices.Clone(dependents[id])
		slices.Sort(deps)
		for _, dep := range deps {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	var rest []string
	for id, deg := range inDegree {
		if deg > 0 {
			rest = append(rest, id)
		}
	}
	slices.Sort(rest)
	return order, rest
}
