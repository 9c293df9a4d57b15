package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/planner"
	"github.com/p-n-ai/pai-study/internal/platform/telemetry"
	"github.com/p-n-ai/pai-study/internal/priority"
	"github.com/p-n-ai/pai-study/internal/progress"
)

const (
	generatePriorities = 200
	generateExams      = 5
)

// Progress reads what the generator needs to know about a student.
type Progress interface {
	GetProfile(ctx context.Context, studentID string) (progress.Profile, error)
	Snapshot(ctx context.Context, studentID string) (progress.Snapshot, error)
	RecentExams(ctx context.Context, studentID string, limit int) ([]progress.ExamResult, error)
}

// Ranker returns a student's topic priorities.
type Ranker interface {
	Recommend(ctx context.Context, studentID, examTypeID string, limit int) ([]priority.Recommendation, error)
}

// Drafter produces an unsaved plan.
type Drafter interface {
	Generate(ctx context.Context, in planner.Input) (planner.Draft, error)
}

// GenerateRequest asks for a new weekly plan.
type GenerateRequest struct {
	ExamTypeID string    `json:"examType"`
	Title      string    `json:"title,omitempty"`
	StartDate  time.Time `json:"startDate,omitempty"`
	// Assist asks the AI provider first; otherwise the rules are used.
	Assist bool `json:"assist"`
	// Profile overrides stored profile fields for this generation only.
	// The stored profile is left unchanged.
	Profile *progress.ProfilePatch `json:"profile,omitempty"`
}

// GenerateResult is a stored generated plan and what the generator said
// about it.
type GenerateResult struct {
	Plan           Plan                `json:"plan"`
	FallbackReason string              `json:"fallbackReason,omitempty"`
	Warnings       []planner.Violation `json:"warnings,omitempty"`
}

// Generator drafts weekly plans from a student's progress and stores them.
type Generator struct {
	plans    *Service
	catalog  *curriculum.Catalog
	progress Progress
	ranker   Ranker
	rules    Drafter
	assisted Drafter
	now      func() time.Time
}

// NewGenerator wires plan generation. assisted may be nil, in which case
// every request uses the rules.
func NewGenerator(plans *Service, catalog *curriculum.Catalog, prog Progress, ranker Ranker, assisted Drafter) *Generator {
	return &Generator{
		plans:    plans,
		catalog:  catalog,
		progress: prog,
		ranker:   ranker,
		rules:    rulesDrafter{planner.NewGenerator(catalog)},
		assisted: assisted,
		now:      time.Now,
	}
}

type rulesDrafter struct {
	gen *planner.Generator
}

func (r rulesDrafter) Generate(_ context.Context, in planner.Input) (planner.Draft, error) {
	return r.gen.Generate(in)
}

// Generate drafts a plan for the week starting at req.StartDate (next
// Monday when unset) and stores it. Nothing is stored when drafting fails.
func (g *Generator) Generate(ctx context.Context, studentID string, req GenerateRequest) (GenerateResult, error) {
	const op = "plan.Generate"
	if _, ok := g.catalog.ExamType(req.ExamTypeID); !ok {
		return GenerateResult{}, apperr.Validation(op, "examType", apperr.ConstraintInvalidValue, "unknown exam type")
	}

	in, err := g.input(ctx, studentID, req)
	if err != nil {
		return GenerateResult{}, err
	}

	draft, err := g.draft(ctx, in, req.Assist)
	if err != nil {
		return GenerateResult{}, fmt.Errorf("drafting plan: %w", err)
	}
	// A caller that gave up must not find a plan stored behind its back.
	if err := ctx.Err(); err != nil {
		return GenerateResult{}, apperr.Unavailable(op, err)
	}

	start := req.StartDate
	if start.IsZero() {
		start = nextMonday(g.now())
	}
	title := req.Title
	if title == "" {
		title = fmt.Sprintf("%s week of %s", req.ExamTypeID, start.Format("2006-01-02"))
	}

	p, err := g.plans.Create(ctx, studentID, Input{
		Title:       title,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, 6),
		Explanation: draft.Explanation,
		Source:      draft.Source,
		Items:       draft.Items,
	})
	if err != nil {
		return GenerateResult{}, err
	}

	slog.Info("weekly plan generated",
		"student_id", studentID,
		"plan_id", p.ID,
		"source", draft.Source,
		"items", len(p.Items),
		"fallback_reason", draft.FallbackReason,
	)
	return GenerateResult{
		Plan:           p,
		FallbackReason: draft.FallbackReason,
		Warnings:       planner.CheckRules(g.catalog, draft.Items, in),
	}, nil
}

func (g *Generator) draft(ctx context.Context, in planner.Input, assist bool) (planner.Draft, error) {
	ctx, span := telemetry.Tracer("plan").Start(ctx, "plan.draft")
	defer span.End()

	drafter := g.rules
	if assist && g.assisted != nil {
		drafter = g.assisted
	}
	draft, err := drafter.Generate(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "drafting failed")
		return planner.Draft{}, err
	}
	span.SetAttributes(
		attribute.String("plan.exam_type", in.ExamTypeID),
		attribute.String("plan.source", string(draft.Source)),
		attribute.Int("plan.items", len(draft.Items)),
		attribute.Bool("plan.fallback", draft.FallbackReason != ""),
	)
	return draft, nil
}

func (g *Generator) input(ctx context.Context, studentID string, req GenerateRequest) (planner.Input, error) {
	examTypeID := req.ExamTypeID
	profile, err := g.progress.GetProfile(ctx, studentID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			return planner.Input{}, fmt.Errorf("reading profile: %w", err)
		}
		profile = progress.Profile{StudentID: studentID}
	}
	if req.Profile != nil {
		if profile, err = progress.NormalizeProfile(req.Profile.Apply(profile)); err != nil {
			return planner.Input{}, err
		}
	}
	snap, err := g.progress.Snapshot(ctx, studentID)
	if err != nil {
		return planner.Input{}, fmt.Errorf("reading progress: %w", err)
	}
	recs, err := g.ranker.Recommend(ctx, studentID, examTypeID, generatePriorities)
	if err != nil {
		return planner.Input{}, fmt.Errorf("ranking topics: %w", err)
	}
	exams, err := g.progress.RecentExams(ctx, studentID, generateExams)
	if err != nil {
		return planner.Input{}, fmt.Errorf("reading exams: %w", err)
	}
	return planner.Input{
		StudentID:   studentID,
		ExamTypeID:  examTypeID,
		Profile:     profile,
		Snapshot:    snap,
		Priorities:  recs,
		RecentExams: exams,
	}, nil
}

// nextMonday returns the date of the first Monday after t, or t's date when
// t is a Monday.
func nextMonday(t time.Time) time.Time {
	d := dateOnly(t)
	offset := (int(time.Monday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset)
}
