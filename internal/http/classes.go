package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"spensagi/portal/internal/repository"
)

func (s *Server) handleGetClass(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classId")
	if !s.authz.CanAccessClass(r.Context(), identity(r), classID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	class, err := s.store.GetClass(r.Context(), classID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "class_not_found")
			return
		}
		s.serverError(w, "get class", err)
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (s *Server) handleListClassStudents(w http.ResponseWriter, r *http.Request) {
	classID := chi.URLParam(r, "classId")
	if !s.authz.CanAccessClass(r.Context(), identity(r), classID) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}
	students, err := s.store.ListClassStudents(r.Context(), classID)
	if err != nil {
		s.serverError(w, "list class students", err)
		return
	}
	writeJSON(w, http.StatusOK, students)
}
