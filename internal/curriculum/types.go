package curriculum

// Strength classifies a prerequisite edge.
type Strength string

const (
	StrengthHard Strength = "hard"
	StrengthSoft Strength = "soft"
)

// Topic represents a curriculum topic loaded from YAML.
type Topic struct {
	ID                 string              `yaml:"id" json:"id"`
	Name               string              `yaml:"name" json:"name"`
	SubjectID          string              `yaml:"subject_id" json:"subjectId"`
	Order              int                 `yaml:"order" json:"order"`
	Difficulty         int                 `yaml:"difficulty" json:"difficulty"`
	EstimatedHours     float64             `yaml:"estimated_hours" json:"estimatedHours"`
	LearningObjectives []LearningObjective `yaml:"learning_objectives" json:"learningObjectives,omitempty"`
	Prerequisites      Prerequisites       `yaml:"prerequisites" json:"prerequisites"`
}

// LearningObjective represents a checkable sub-objective within a topic.
type LearningObjective struct {
	ID    string `yaml:"id" json:"id"`
	Text  string `yaml:"text" json:"text"`
	Bloom string `yaml:"bloom" json:"bloom,omitempty"`
}

// Prerequisites holds required (hard) and recommended (soft) prerequisite topic IDs.
type Prerequisites struct {
	Required    []string `yaml:"required" json:"required,omitempty"`
	Recommended []string `yaml:"recommended" json:"recommended,omitempty"`
}

// Prerequisite is a single directed edge to a topic this one depends on.
type Prerequisite struct {
	TopicID  string
	Strength Strength
}

// Edges returns the topic's prerequisite edges, hard ones first.
func (t Topic) Edges() []Prerequisite {
	edges := make([]Prerequisite, 0, len(t.Prerequisites.Required)+len(t.Prerequisites.Recommended))
	for _, id := range t.Prerequisites.Required {
		edges = append(edges, Prerequisite{TopicID: id, Strength: StrengthHard})
	}
	for _, id := range t.Prerequisites.Recommended {
		edges = append(edges, Prerequisite{TopicID: id, Strength: StrengthSoft})
	}
	return edges
}

// HasObjective reports whether the topic defines the objective ID.
func (t Topic) HasObjective(id string) bool {
	for _, o := range t.LearningObjectives {
		if o.ID == id {
			return true
		}
	}
	return false
}

// ExamType is a named test track (e.g. TYT, AYT) and its graded subjects.
// It is loaded from a *.exam.yaml file.
type ExamType struct {
	ID       string    `yaml:"id" json:"id"`
	Name     string    `yaml:"name" json:"name"`
	Subjects []Subject `yaml:"subjects" json:"subjects"`
}

// Subject is a graded course area within an exam type.
type Subject struct {
	ID            string `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	ExamTypeID    string `yaml:"-" json:"examTypeId"`
	QuestionCount int    `yaml:"question_count" json:"questionCount"`
}
