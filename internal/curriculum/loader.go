package curriculum

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const examSuffix = ".exam.yaml"

// Load walks rootDir, reads exam type files (*.exam.yaml) and topic files
// (any other *.yaml / *.yml) and builds a catalog.
func Load(rootDir string) (*Catalog, error) {
	l := &loader{}
	if err := filepath.Walk(rootDir, l.visit); err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	c, err := NewCatalog(l.exams, l.topics)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	slog.Info("curriculum loaded", "exam_types", len(l.exams), "topics", len(l.topics))
	return c, nil
}

type loader struct {
	exams  []ExamType
	topics []Topic
}

func (l *loader) visit(path string, info os.FileInfo, err error) error {
	if err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}

	switch {
	case strings.HasSuffix(path, examSuffix):
		return l.loadExam(path)
	case strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml"):
		if strings.HasSuffix(path, ".assessments.yaml") || strings.HasSuffix(path, ".examples.yaml") {
			return nil // Skip non-topic YAML
		}
		return l.loadTopic(path)
	}
	return nil
}

func (l *loader) loadExam(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var exam ExamType
	if err := yaml.Unmarshal(data, &exam); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if exam.ID == "" {
		return fmt.Errorf("parsing %s: exam type id is required", path)
	}

	l.exams = append(l.exams, exam)
	return nil
}

func (l *loader) loadTopic(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var topic Topic
	if err := yaml.Unmarshal(data, &topic); err != nil {
		slog.Warn("skipping invalid topic YAML", "path", path, "error", err)
		return nil
	}

	if topic.ID == "" {
		return nil // Not a topic file
	}

	l.topics = append(l.topics, topic)
	return nil
}
