package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"spensagi/portal/internal/model"
	"spensagi/portal/internal/repository"
)

func (s *Server) handleListStudents(w http.ResponseWriter, r *http.Request) {
	students, err := s.store.ListStudents(r.Context(), parseLimit(r, 100))
	if err != nil {
		s.serverError(w, "list students", err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}

func (s *Server) handleGetStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if !s.authz.CanAccessStudent(r.Context(), identity(r), studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	student, err := s.store.GetStudentProfile(r.Context(), studentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "student_not_found")
			return
		}
		s.serverError(w, "get student", err)
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (s *Server) handleListAttendance(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if !s.authz.CanAccessStudent(r.Context(), identity(r), studentID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	records, err := s.store.ListAttendance(r.Context(), studentID, parseLimit(r, 50))
	if err != nil {
		s.serverError(w, "list attendance", err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleListMyChildren(w http.ResponseWriter, r *http.Request) {
	s.writeChildren(w, r, identity(r).ID)
}

// handleListParentChildren is the admin view of any parent's linked students.
func (s *Server) handleListParentChildren(w http.ResponseWriter, r *http.Request) {
	parentID := chi.URLParam(r, "parentId")
	parent, err := s.store.GetAccount(r.Context(), parentID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.serverError(w, "get parent", err)
		return
	}
	if err != nil || parent.Role != model.RoleParent {
		writeError(w, http.StatusNotFound, "parent_not_found")
		return
	}
	s.writeChildren(w, r, parent.ID)
}

func (s *Server) writeChildren(w http.ResponseWriter, r *http.Request, parentID string) {
	children, err := s.store.ListChildren(r.Context(), parentID)
	if err != nil {
		s.serverError(w, "list children", err)
		return
	}
	writeJSON(w, http.StatusOK, children)
}
