package httpapi

import (
	"net/http"
	"time"

	"github.com/p-n-ai/pai-study/internal/apperr"
	"github.com/p-n-ai/pai-study/internal/progress"
)

type levelRequest struct {
	Level *int `json:"level"`
}

type studyEventRequest struct {
	TopicID   string          `json:"topicId"`
	Source    progress.Source `json:"source"`
	Minutes   int             `json:"minutes"`
	StudiedAt time.Time       `json:"studiedAt"`
}

type examRequest struct {
	ExamTypeID    string    `json:"examTypeId"`
	Name          string    `json:"name"`
	TakenAt       time.Time `json:"takenAt"`
	Correct       int       `json:"correct"`
	Wrong         int       `json:"wrong"`
	Blank         int       `json:"blank"`
	WrongTopicIDs []string  `json:"wrongTopicIds"`
}

type profileRequest struct {
	DailyStudyHours   float64                  `json:"dailyStudyHours"`
	AvailableDays     []int                    `json:"availableDays"`
	BreakPreference   progress.BreakPreference `json:"breakPreference"`
	Regularity        string                   `json:"regularity"`
	TargetRank        int                      `json:"targetRank"`
	ExamDate          string                   `json:"examDate"`
	WeeklyTargetHours *float64                 `json:"weeklyTargetHours"`
}

func (s *server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Level == nil {
		writeError(w, r, apperr.Validation("httpapi.setLevel", "level", apperr.ConstraintRequired, "is required"))
		return
	}
	topicID := r.PathValue("topicID")
	if err := s.svc.Progress.SetKnowledgeLevel(r.Context(), studentID(r), topicID, *req.Level); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topicId": topicID, "level": *req.Level})
}

func (s *server) handleCheckObjective(w http.ResponseWriter, r *http.Request) {
	s.setObjective(w, r, true)
}

func (s *server) handleUncheckObjective(w http.ResponseWriter, r *http.Request) {
	s.setObjective(w, r, false)
}

func (s *server) setObjective(w http.ResponseWriter, r *http.Request, checked bool) {
	topicID, objectiveID := r.PathValue("topicID"), r.PathValue("objectiveID")
	var (
		level int
		err   error
	)
	if checked {
		level, err = s.svc.Progress.CheckObjective(r.Context(), studentID(r), topicID, objectiveID)
	} else {
		level, err = s.svc.Progress.UncheckObjective(r.Context(), studentID(r), topicID, objectiveID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"topicId": topicID, "objectiveId": objectiveID, "checked": checked, "level": level})
}

func (s *server) handleLogStudy(w http.ResponseWriter, r *http.Request) {
	var req studyEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ev, err := s.svc.Progress.LogStudy(r.Context(), progress.StudyEvent{
		StudentID: studentID(r),
		TopicID:   req.TopicID,
		Source:    req.Source,
		Minutes:   req.Minutes,
		StudiedAt: req.StudiedAt,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *server) handleRecordExam(w http.ResponseWriter, r *http.Request) {
	var req examRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	exam, err := s.svc.Progress.RecordExam(r.Context(), progress.ExamResult{
		StudentID:     studentID(r),
		ExamTypeID:    req.ExamTypeID,
		Name:          req.Name,
		TakenAt:       req.TakenAt,
		Correct:       req.Correct,
		Wrong:         req.Wrong,
		Blank:         req.Blank,
		WrongTopicIDs: req.WrongTopicIDs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, exam)
}

func (s *server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Progress.GetProfile(r.Context(), studentID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p := progress.Profile{
		StudentID:         studentID(r),
		DailyStudyHours:   req.DailyStudyHours,
		AvailableDays:     req.AvailableDays,
		BreakPreference:   req.BreakPreference,
		Regularity:        req.Regularity,
		TargetRank:        req.TargetRank,
		WeeklyTargetHours: req.WeeklyTargetHours,
	}
	if req.ExamDate != "" {
		d, err := parseDate("examDate", req.ExamDate)
		if err != nil {
			writeError(w, r, err)
			return
		}
		p.ExamDate = &d
	}

	saved, err := s.svc.Progress.SaveProfile(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}
