package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"spensagi/portal/internal/attendance"
	"spensagi/portal/internal/model"
	"spensagi/portal/internal/repository"
)

type scanRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleIssueAttendanceCode(w http.ResponseWriter, r *http.Request) {
	if s.tickets == nil {
		writeError(w, http.StatusServiceUnavailable, "attendance_unavailable")
		return
	}
	classID := chi.URLParam(r, "classId")
	if !s.authz.CanAccessClass(r.Context(), identity(r), classID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if _, err := s.store.GetClass(r.Context(), classID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "class_not_found")
			return
		}
		s.serverError(w, "get class", err)
		return
	}

	ticket, err := s.tickets.Issue(r.Context(), classID)
	if err != nil {
		if errors.Is(err, attendance.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "attendance_unavailable")
			return
		}
		s.serverError(w, "issue attendance code", err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (s *Server) handleScanAttendance(w http.ResponseWriter, r *http.Request) {
	if s.tickets == nil {
		writeError(w, http.StatusServiceUnavailable, "attendance_unavailable")
		return
	}
	var req scanRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	claims, err := s.tickets.Parse(strings.TrimSpace(req.Token))
	if err != nil {
		if errors.Is(err, attendance.ErrCodeExpired) {
			writeError(w, http.StatusGone, "code_expired")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_ticket")
		return
	}

	student := identity(r)
	if !s.authz.CanAccessClass(r.Context(), student, claims.ClassID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	if err := s.tickets.Redeem(r.Context(), claims); err != nil {
		switch {
		case errors.Is(err, attendance.ErrCodeExpired):
			writeError(w, http.StatusGone, "code_expired")
		case errors.Is(err, attendance.ErrUnavailable):
			writeError(w, http.StatusServiceUnavailable, "attendance_unavailable")
		default:
			s.serverError(w, "redeem attendance code", err)
		}
		return
	}

	now := s.now()
	record := model.AttendanceRecord{
		ID:         uuid.NewString(),
		StudentID:  student.ID,
		ClassID:    claims.ClassID,
		Date:       schoolDay(now, s.schoolTZ),
		Status:     model.AttendancePresent,
		Method:     "qr",
		RecordedAt: now,
	}
	inserted, err := s.store.RecordAttendance(r.Context(), record)
	if err != nil {
		s.serverError(w, "record attendance", err)
		return
	}
	if !inserted {
		writeJSON(w, http.StatusOK, map[string]string{"status": "already_recorded"})
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

// schoolDay is the calendar date of t in the school time zone, as a UTC
// midnight value for the DATE column.
func schoolDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}
