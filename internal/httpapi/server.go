// Package httpapi exposes the study services over HTTP: recommendations,
// weekly plans, progress logging, the study profile and WebSocket drills.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/drill"
	"github.com/p-n-ai/pai-study/internal/plan"
	"github.com/p-n-ai/pai-study/internal/priority"
	"github.com/p-n-ai/pai-study/internal/progress"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// Services are the domain services the API serves.
type Services struct {
	Catalog     *curriculum.Catalog
	Progress    *progress.Service
	Recommender *priority.Recommender
	Plans       *plan.Service
	Generator   *plan.Generator
	Drills      *drill.Runner
}

// Options configure the HTTP layer.
type Options struct {
	Auth *Authenticator
	// Checks are pinged by /readyz, keyed by dependency name.
	Checks map[string]Checker
	// AssistDefault is used when a generate request does not say whether
	// to ask the AI provider.
	AssistDefault bool
	// GenerateTimeout bounds plan generation so it ends, without storing a
	// plan, before the server's write timeout. Zero means no bound.
	GenerateTimeout time.Duration
}

type server struct {
	svc  Services
	opts Options
}

// New returns the API handler. Every /v1 route is traced with otelhttp.
func New(svc Services, opts Options) http.Handler {
	if svc.Drills == nil {
		svc.Drills = drill.NewRunner()
	}
	s := &server{svc: svc, opts: opts}
	auth := opts.Auth.require

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	// Each route gets its own server span named after its pattern.
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, otelhttp.NewHandler(auth(h), pattern))
	}

	handle("GET /v1/recommendations", s.handleRecommendations)

	handle("POST /v1/plans/generate", s.handleGeneratePlan)
	handle("POST /v1/plans", s.handleCreatePlan)
	handle("GET /v1/plans", s.handleListPlans)
	handle("GET /v1/plans/{id}", s.handleGetPlan)
	handle("PUT /v1/plans/{id}", s.handleReplacePlan)
	handle("DELETE /v1/plans/{id}", s.handleDeletePlan)
	handle("PATCH /v1/plans/{id}/items/{itemID}", s.handleUpdateItem)
	handle("DELETE /v1/plans/{id}/items/{itemID}", s.handleDeleteItem)
	handle("POST /v1/plans/{id}/items/{itemID}/move", s.handleMoveItem)
	handle("POST /v1/plans/{id}/items/{itemID}/toggle", s.handleToggleItem)
	handle("GET /v1/plans/{id}/export", s.handleExportPlan)

	handle("PUT /v1/knowledge/{topicID}", s.handleSetLevel)
	handle("POST /v1/knowledge/{topicID}/objectives/{objectiveID}", s.handleCheckObjective)
	handle("DELETE /v1/knowledge/{topicID}/objectives/{objectiveID}", s.handleUncheckObjective)
	handle("POST /v1/study-events", s.handleLogStudy)
	handle("POST /v1/exams", s.handleRecordExam)
	handle("GET /v1/profile", s.handleGetProfile)
	handle("PUT /v1/profile", s.handleSaveProfile)

	handle("GET /v1/drills/{kind}", s.handleDrill)

	return recoverer(mux)
}

// recoverer turns a handler panic into a 500 response.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				slog.Error("handler panic", "method", r.Method, "path", r.URL.Path, "panic", p)
				writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{Message: "internal error", Code: "internal_error"}})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.opts.Checks))
	ready := true
	for name, c := range s.opts.Checks {
		if err := c.HealthCheck(ctx); err != nil {
			slog.Warn("readiness check failed", "dependency", name, "error", err)
			checks[name] = "unavailable"
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "checks": checks})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "checks": checks})
}
