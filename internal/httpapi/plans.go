package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/plan"
	"github.com/p-n-ai/pai-study/internal/planner"
	"github.com/p-n-ai/pai-study/internal/progress"
)

const dateLayout = "2006-01-02"

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type planRequest struct {
	Title       string         `json:"title"`
	StartDate   string         `json:"startDate"`
	EndDate     string         `json:"endDate"`
	Explanation string         `json:"explanation"`
	Items       []planner.Item `json:"items"`
}

func (req planRequest) input() (plan.Input, error) {
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		return plan.Input{}, err
	}
	end, err := parseDate("endDate", req.EndDate)
	if err != nil {
		return plan.Input{}, err
	}
	return plan.Input{
		Title:       req.Title,
		StartDate:   start,
		EndDate:     end,
		Explanation: req.Explanation,
		Items:       req.Items,
	}, nil
}

type generateRequest struct {
	ExamType  string           `json:"examType"`
	Title     string           `json:"title"`
	StartDate string           `json:"startDate"`
	Assist    *bool            `json:"assist"`
	Profile   *profileOverride `json:"profile"`
}

// profileOverride carries the optional profile fields of a generate
// request. They shape this plan only and are not saved.
type profileOverride struct {
	DailyStudyHours   *float64                  `json:"dailyStudyHours"`
	AvailableDays     []int                     `json:"availableDays"`
	BreakPreference   *progress.BreakPreference `json:"breakPreference"`
	Regularity        *string                   `json:"regularity"`
	TargetRank        *int                      `json:"targetRank"`
	ExamDate          *string                   `json:"examDate"`
	WeeklyTargetHours *float64                  `json:"weeklyTargetHours"`
}

func (o *profileOverride) patch() (*progress.ProfilePatch, error) {
	if o == nil {
		return nil, nil
	}
	pp := &progress.ProfilePatch{
		DailyStudyHours:   o.DailyStudyHours,
		AvailableDays:     o.AvailableDays,
		BreakPreference:   o.BreakPreference,
		Regularity:        o.Regularity,
		TargetRank:        o.TargetRank,
		WeeklyTargetHours: o.WeeklyTargetHours,
	}
	if o.ExamDate != nil && *o.ExamDate != "" {
		d, err := parseDate("profile.examDate", *o.ExamDate)
		if err != nil {
			return nil, err
		}
		pp.ExamDate = &d
	}
	return pp, nil
}

type moveRequest struct {
	DayOfWeek *int `json:"dayOfWeek"`
	SortOrder int  `json:"sortOrder"`
}

func parseDate(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return time.Time{}, apperr.Validation("httpapi.parseDate", field, apperr.ConstraintInvalidValue, "must be a YYYY-MM-DD date")
	}
	return t, nil
}

func (s *server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, r, apperr.Validation("httpapi.recommendations", "limit", apperr.ConstraintInvalidValue, "must be a positive integer"))
			return
		}
		limit = n
	}

	recs, err := s.svc.Recommender.Recommend(r.Context(), studentID(r), q.Get("examType"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recommendations": recs})
}

func (s *server) handleGeneratePlan(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	start, err := parseDate("startDate", req.StartDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	profile, err := req.Profile.patch()
	if err != nil {
		writeError(w, r, err)
		return
	}
	assist := s.opts.AssistDefault
	if req.Assist != nil {
		assist = *req.Assist
	}

	ctx := r.Context()
	if s.opts.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.GenerateTimeout)
		defer cancel()
	}
	res, err := s.svc.Generator.Generate(ctx, studentID(r), plan.GenerateRequest{
		ExamTypeID: req.ExamType,
		Title:      req.Title,
		StartDate:  start,
		Assist:     assist,
		Profile:    profile,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Plans.Create(r.Context(), studentID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.svc.Plans.List(r.Context(), studentID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if plans == nil {
		plans = []plan.Plan{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (s *server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Plans.Get(r.Context(), studentID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleReplacePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := s.svc.Plans.Replace(r.Context(), studentID(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Plans.Delete(r.Context(), studentID(r), r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch plan.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	it, err := s.svc.Plans.UpdateItem(r.Context(), studentID(r), r.PathValue("id"), r.PathValue("itemID"), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Plans.DeleteItem(r.Context(), studentID(r), r.PathValue("id"), r.PathValue("itemID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleMoveItem(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.DayOfWeek == nil {
		writeError(w, r, apperr.Validation("httpapi.move", "dayOfWeek", apperr.ConstraintRequired, "is required"))
		return
	}
	it, err := s.svc.Plans.MoveItem(r.Context(), studentID(r), r.PathValue("id"), r.PathValue("itemID"), *req.DayOfWeek, req.SortOrder)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *server) handleToggleItem(w http.ResponseWriter, r *http.Request) {
	it, err := s.svc.Plans.ToggleItem(r.Context(), studentID(r), r.PathValue("id"), r.PathValue("itemID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *server) handleExportPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Plans.Get(r.Context(), studentID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := plan.ExportXLSX(&buf, p, s.svc.Catalog); err != nil {
		writeError(w, r, fmt.Errorf("exporting plan: %w", err))
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="plan-%s.xlsx"`, p.StartDate.Format(dateLayout)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
