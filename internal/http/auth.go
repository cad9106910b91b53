package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"spensagi/portal/internal/crypto"
	"spensagi/portal/internal/metrics"
	"spensagi/portal/internal/model"
	"spensagi/portal/internal/observability"
	"spensagi/portal/internal/repository"
	"spensagi/portal/internal/session"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type studentLoginRequest struct {
	NIPD     string `json:"nipd"`
	Password string `json:"password"`
}

type loginResponse struct {
	User model.Shared `json:"user"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	account, hash, err := s.store.GetAccountCredentials(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.Logins.WithLabelValues("user", "rejected").Inc()
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		s.serverError(w, "load account", err)
		return
	}
	if err := crypto.CheckPassword(hash, req.Password); err != nil {
		metrics.Logins.WithLabelValues("user", "rejected").Inc()
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	accountID := account.ID
	if err := s.startSession(r.Context(), w, r, model.Session{UserID: &accountID}); err != nil {
		s.serverError(w, "start session", err)
		return
	}
	metrics.Logins.WithLabelValues("user", "ok").Inc()
	writeJSON(w, http.StatusOK, loginResponse{User: model.IdentityFromAccount(account).Shared()})
}

func (s *Server) handleStudentLogin(w http.ResponseWriter, r *http.Request) {
	var req studentLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	req.NIPD = strings.TrimSpace(req.NIPD)
	if req.NIPD == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	student, hash, err := s.store.GetStudentCredentials(r.Context(), req.NIPD)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.Logins.WithLabelValues("student", "rejected").Inc()
			writeError(w, http.StatusUnauthorized, "invalid_credentials")
			return
		}
		s.serverError(w, "load student", err)
		return
	}
	if err := crypto.CheckPassword(hash, req.Password); err != nil {
		metrics.Logins.WithLabelValues("student", "rejected").Inc()
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if !student.IsActive {
		metrics.Logins.WithLabelValues("student", "inactive").Inc()
		writeError(w, http.StatusForbidden, "account_inactive")
		return
	}

	studentID := student.ID
	if err := s.startSession(r.Context(), w, r, model.Session{StudentID: &studentID}); err != nil {
		s.serverError(w, "start session", err)
		return
	}
	metrics.Logins.WithLabelValues("student", "ok").Inc()
	writeJSON(w, http.StatusOK, loginResponse{User: model.IdentityFromStudent(student, s.cfg.InstitutionDomain).Shared()})
}

// startSession stores a new session row for the reference carried by sess and sets its cookie.
func (s *Server) startSession(ctx context.Context, w http.ResponseWriter, r *http.Request, sess model.Session) error {
	token, err := crypto.NewSessionToken()
	if err != nil {
		return err
	}
	now := s.now()
	sess.ID = token
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(s.cfg.SessionTTL)
	sess.UserAgent = optional(r.UserAgent())
	sess.IPAddress = optional(clientIP(r))
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return err
	}
	return s.resolver.Issue(w, token, s.cfg.SessionTTL)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := s.resolver.Token(r); token != "" {
		if err := s.store.DeleteSession(r.Context(), token); err != nil {
			s.logger.Warn("delete session failed", zap.Error(err))
		}
	}
	s.resolver.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	shared, ok := session.SharedFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_session")
		return
	}
	writeJSON(w, http.StatusOK, shared)
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op, zap.Error(err))
	observability.CaptureErr(err)
	writeError(w, http.StatusInternalServerError, "server_error")
}
