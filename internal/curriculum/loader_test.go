package curriculum_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/p-n-ai/pai-study/internal/curriculum"
)

func TestLoad_ExamAndTopics(t *testing.T) {
	dir := setupTestCurriculum(t)

	catalog, err := curriculum.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	exam, ok := catalog.ExamType("TYT")
	if !ok {
		t.Fatal("ExamType(TYT) not found")
	}
	if len(exam.Subjects) != 2 {
		t.Errorf("TYT subjects = %d, want 2", len(exam.Subjects))
	}

	subject, ok := catalog.Subject("tyt-math")
	if !ok {
		t.Fatal("Subject(tyt-math) not found")
	}
	if subject.ExamTypeID != "TYT" {
		t.Errorf("Subject.ExamTypeID = %q, want TYT", subject.ExamTypeID)
	}
	if subject.QuestionCount != 40 {
		t.Errorf("Subject.QuestionCount = %d, want 40", subject.QuestionCount)
	}

	topic, ok := catalog.Topic("MAT-02")
	if !ok {
		t.Fatal("Topic(MAT-02) not found")
	}
	if topic.Difficulty != 3 || topic.EstimatedHours != 6 {
		t.Errorf("Topic = %+v, want difficulty 3 and 6 hours", topic)
	}
	edges := topic.Edges()
	if len(edges) != 1 || edges[0].TopicID != "MAT-01" || edges[0].Strength != curriculum.StrengthHard {
		t.Errorf("Edges() = %+v, want one hard edge to MAT-01", edges)
	}
}

func TestLoad_SkipsNonTopicYAML(t *testing.T) {
	dir := setupTestCurriculum(t)

	os.WriteFile(filepath.Join(dir, "math", "01-numbers.assessments.yaml"), []byte(`
topic_id: MAT-01
questions:
  - id: Q1
`), 0o644)

	catalog, err := curriculum.Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := len(catalog.TopicsForExam("")); got != 3 {
		t.Errorf("TopicsForExam(\"\") = %d topics, want 3", got)
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	catalog, err := curriculum.Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(catalog.ExamTypes()) != 0 {
		t.Error("ExamTypes() should be empty")
	}
}

func TestLoad_MissingDir(t *testing.T) {
	if _, err := curriculum.Load(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("Load() should fail for a missing directory")
	}
}

func TestLoad_DuplicateTopic(t *testing.T) {
	dir := setupTestCurriculum(t)
	os.WriteFile(filepath.Join(dir, "math", "99-dup.yaml"), []byte(`
id: MAT-01
name: Duplicate
subject_id: tyt-math
difficulty: 1
`), 0o644)

	if _, err := curriculum.Load(dir); err == nil {
		t.Fatal("Load() should reject duplicate topic IDs")
	}
}

func setupTestCurriculum(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	os.MkdirAll(filepath.Join(dir, "math"), 0o755)
	os.MkdirAll(filepath.Join(dir, "turkish"), 0o755)

	os.WriteFile(filepath.Join(dir, "tyt.exam.yaml"), []byte(`
id: TYT
name: "Temel Yeterlilik Testi"
subjects:
  - id: tyt-math
    name: "Matematik"
    question_count: 40
  - id: tyt-turkish
    name: "Türkçe"
    question_count: 40
`), 0o644)

	os.WriteFile(filepath.Join(dir, "math", "01-numbers.yaml"), []byte(`
id: MAT-01
name: "Temel Kavramlar"
subject_id: tyt-math
order: 1
difficulty: 1
estimated_hours: 4
learning_objectives:
  - id: LO1
    text: "Sayı kümelerini tanır"
  - id: LO2
    text: "Tek ve çift sayıları ayırt eder"
`), 0o644)

	os.WriteFile(filepath.Join(dir, "math", "02-divisibility.yaml"), []byte(`
id: MAT-02
name: "Bölünebilme"
subject_id: tyt-math
order: 2
difficulty: 3
estimated_hours: 6
prerequisites:
  required: [MAT-01]
`), 0o644)

	os.WriteFile(filepath.Join(dir, "turkish", "01-words.yaml"), []byte(`
id: TUR-01
name: "Sözcükte Anlam"
subject_id: tyt-turkish
order: 1
difficulty: 2
estimated_hours: 5
`), 0o644)

	return dir
}
