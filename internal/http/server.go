package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"spensagi/portal/internal/attendance"
	"spensagi/portal/internal/config"
	"spensagi/portal/internal/metrics"
	"spensagi/portal/internal/model"
	"spensagi/portal/internal/rbac"
	"spensagi/portal/internal/session"
)

// Store is everything the HTTP surface reads or writes.
type Store interface {
	session.Store
	rbac.Store

	GetAccountCredentials(ctx context.Context, email string) (model.Account, string, error)
	GetStudentCredentials(ctx context.Context, nipd string) (model.StudentProfile, string, error)
	CreateSession(ctx context.Context, sess model.Session) error
	DeleteSession(ctx context.Context, id string) error

	GetClass(ctx context.Context, id string) (model.Class, error)
	ListStudents(ctx context.Context, limit int32) ([]model.StudentProfile, error)
	ListClassStudents(ctx context.Context, classID string) ([]model.StudentProfile, error)
	ListChildren(ctx context.Context, parentID string) ([]model.StudentProfile, error)

	RecordAttendance(ctx context.Context, record model.AttendanceRecord) (bool, error)
	ListAttendance(ctx context.Context, studentID string, limit int32) ([]model.AttendanceRecord, error)
}

type Server struct {
	cfg      config.Config
	store    Store
	resolver *session.Resolver
	gate     *rbac.Gate
	authz    *rbac.Authorizer
	tickets  *attendance.Issuer
	logger   *zap.Logger
	now      func() time.Time
	// schoolTZ decides the calendar day of an attendance record.
	schoolTZ *time.Location
}

// NewServer wires the resolver and gate around store. A nil codes store
// disables the attendance check-in endpoints.
func NewServer(cfg config.Config, store Store, codes attendance.CodeStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	codec := session.NewCodec(cfg.SessionCookieName, cfg.SessionHashKey, cfg.SessionBlockKey, cfg.SessionTTL)
	resolver := session.NewResolver(store, codec, session.Options{
		LoginPath: cfg.LoginPath,
		Domain:    cfg.InstitutionDomain,
		Secure:    cfg.CookieSecure,
	}, logger.Named("session"))

	var tickets *attendance.Issuer
	if codes != nil {
		tickets = attendance.NewIssuer(cfg.AttendanceSecret, cfg.AttendanceIssuer, cfg.AttendanceCodeTTL, codes)
	}

	schoolTZ, err := cfg.AttendanceLocation()
	if err != nil {
		logger.Warn("unknown ATTENDANCE_TZ, using UTC", zap.String("tz", cfg.AttendanceTZ), zap.Error(err))
		schoolTZ = time.UTC
	}

	return &Server{
		cfg:      cfg,
		store:    store,
		resolver: resolver,
		gate:     rbac.NewGate(cfg.LoginPath),
		authz:    rbac.NewAuthorizer(store, logger.Named("rbac")),
		tickets:  tickets,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		schoolTZ: schoolTZ,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", metrics.Handler())

	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/student/login", s.handleStudentLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.resolver.Middleware)

		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/me", s.handleGetMe)

		r.With(s.gate.RequireAdmin()).Get("/students", s.handleListStudents)
		r.Get("/students/{studentId}", s.handleGetStudent)
		r.Get("/students/{studentId}/attendance", s.handleListAttendance)
		r.With(s.gate.RequireParent()).Get("/parents/me/children", s.handleListMyChildren)
		r.With(s.gate.RequireAdmin()).Get("/parents/{parentId}/children", s.handleListParentChildren)

		r.Get("/classes/{classId}", s.handleGetClass)
		r.With(s.gate.RequireTeacherOrAdmin()).Get("/classes/{classId}/students", s.handleListClassStudents)
		r.With(s.gate.RequireTeacherOrAdmin()).Post("/classes/{classId}/attendance/code", s.handleIssueAttendanceCode)
		r.With(s.gate.RequireStudent()).Post("/attendance/scan", s.handleScanAttendance)
	})

	return r
}

// identity is only called behind the session middleware, which guarantees one.
func identity(r *http.Request) model.Identity {
	id, _ := session.IdentityFromContext(r.Context())
	return id
}
