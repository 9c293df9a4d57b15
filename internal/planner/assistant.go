package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/p-n-ai/pai-study/internal/ai"
	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/curriculum"
)

// Completer is the part of ai.Router the assistant uses.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// AssistantConfig bounds the AI round trips of one generation.
type AssistantConfig struct {
	Timeout  time.Duration // per attempt
	Total    time.Duration // all attempts; defaults to Timeout times Attempts
	Attempts int
}

// Assistant asks an AI provider for a plan, validates it locally and falls
// back to the rule-based generator when no attempt produces a valid plan.
type Assistant struct {
	catalog   *curriculum.Catalog
	completer Completer
	budget    ai.BudgetChecker
	rules     *Generator
	timeout   time.Duration
	total     time.Duration
	attempts  int
}

// NewAssistant creates an assisted generator. A nil completer makes every
// request use the rules; a nil budget is unlimited.
func NewAssistant(catalog *curriculum.Catalog, completer Completer, budget ai.BudgetChecker, cfg AssistantConfig) *Assistant {
	if budget == nil {
		budget = ai.NewInMemoryBudget(0)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.Total <= 0 {
		cfg.Total = cfg.Timeout * time.Duration(cfg.Attempts)
	}
	return &Assistant{
		catalog:   catalog,
		completer: completer,
		budget:    budget,
		rules:     NewGenerator(catalog),
		timeout:   cfg.Timeout,
		total:     cfg.Total,
		attempts:  cfg.Attempts,
	}
}

// Generate returns an AI plan that passed validation, or a rule-based plan
// with FallbackReason set. All attempts share the Total deadline; once it
// passes the rules take over. It fails only when the caller's context ends
// or the input itself is invalid.
func (a *Assistant) Generate(ctx context.Context, in Input) (Draft, error) {
	const op = "planner.Assistant.Generate"
	if _, ok := a.catalog.ExamType(in.ExamTypeID); !ok {
		return Draft{}, apperr.Validation(op, "examType", apperr.ConstraintInvalidValue, "unknown exam type")
	}
	if a.completer == nil {
		return a.fallback(in, "assisted planning disabled")
	}

	system, user := BuildPrompt(a.catalog, in)
	msgs := []ai.Message{{Role: ai.RoleUser, Content: user}}

	aiCtx, cancel := context.WithTimeout(ctx, a.total)
	defer cancel()

	for attempt := 1; attempt <= a.attempts; attempt++ {
		if aiCtx.Err() != nil && ctx.Err() == nil {
			slog.Warn("AI time budget spent, using rules", "student_id", in.StudentID, "attempt", attempt)
			return a.fallback(in, "AI time budget exhausted")
		}
		ok, err := a.budget.Check(aiCtx, in.StudentID)
		if err != nil {
			slog.Warn("checking AI budget failed", "student_id", in.StudentID, "error", err)
		} else if !ok {
			slog.Info("AI budget exhausted, using rules", "student_id", in.StudentID)
			return a.fallback(in, "token budget exhausted")
		}

		draft, content, err := a.attempt(aiCtx, system, msgs, in)
		if err == nil {
			return draft, nil
		}
		if ctx.Err() != nil {
			return Draft{}, apperr.Unavailable(op, ctx.Err())
		}
		slog.Warn("AI plan rejected",
			"student_id", in.StudentID,
			"attempt", attempt,
			"error", err,
		)
		if content != "" {
			msgs = append(msgs,
				ai.Message{Role: ai.RoleAssistant, Content: content},
				ai.Message{Role: ai.RoleUser, Content: feedback(err)},
			)
		}
	}
	if aiCtx.Err() != nil {
		return a.fallback(in, "AI time budget exhausted")
	}
	return a.fallback(in, "AI plan failed validation")
}

// attempt runs one round trip. It returns the raw content alongside a
// validation error so the next attempt can quote it.
func (a *Assistant) attempt(ctx context.Context, system string, msgs []ai.Message, in Input) (Draft, string, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, err := a.completer.Complete(callCtx, ai.CompletionRequest{
		System:      system,
		Messages:    msgs,
		Temperature: 0.2,
		Task:        ai.TaskPlanning,
		JSON:        true,
	})
	if err != nil {
		return Draft{}, "", fmt.Errorf("completing plan: %w", err)
	}
	// Spent tokens are recorded even when the deadline passed meanwhile.
	if err := a.budget.Record(context.WithoutCancel(ctx), in.StudentID, resp.TotalTokens()); err != nil {
		slog.Warn("recording AI usage failed", "student_id", in.StudentID, "error", err)
	}

	raw, err := parsePlan(resp.Content)
	if err != nil {
		return Draft{}, resp.Content, &ai.ErrInvalidResponse{Content: resp.Content, Err: err}
	}
	items, err := normalize(a.catalog, in.ExamTypeID, raw.Items)
	if err != nil {
		return Draft{}, resp.Content, err
	}
	if err := Validate(a.catalog, items, GeneratedBounds); err != nil {
		return Draft{}, resp.Content, err
	}
	if blocking := AssistedBlocking(a.catalog, CheckRules(a.catalog, items, in), in); len(blocking) > 0 {
		return Draft{}, resp.Content, &RuleError{Violations: blocking}
	}

	return Draft{Items: items, Explanation: strings.TrimSpace(raw.Explanation), Source: SourceAI}, resp.Content, nil
}

func (a *Assistant) fallback(in Input, reason string) (Draft, error) {
	draft, err := a.rules.Generate(in)
	if err != nil {
		return Draft{}, err
	}
	draft.FallbackReason = reason
	return draft, nil
}

// RuleError lists the blocking rule violations of a rejected plan.
type RuleError struct {
	Violations []Violation
}

func (e *RuleError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return "plan breaks scheduling rules: " + strings.Join(parts, "; ")
}

func feedback(err error) string {
	var ruleErr *RuleError
	if errors.As(err, &ruleErr) {
		return "That plan was rejected. " + ruleErr.Error() + ". Return a corrected JSON plan."
	}
	return fmt.Sprintf("That plan was rejected: %v. Return a corrected JSON plan using only listed IDs.", err)
}
