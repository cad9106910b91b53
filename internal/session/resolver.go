package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"spensagi/portal/internal/metrics"
	"spensagi/portal/internal/model"
	"spensagi/portal/internal/observability"
	"spensagi/portal/internal/repository"
)

type Store interface {
	GetSession(ctx context.Context, id string) (model.Session, error)
	GetStudentProfile(ctx context.Context, id string) (model.StudentProfile, error)
	GetAccount(ctx context.Context, id string) (model.Account, error)
}

type Reason string

const (
	ReasonMissingToken     Reason = "missing_token"
	ReasonSessionNotFound  Reason = "session_not_found"
	ReasonInvalidSession   Reason = "invalid_session"
	ReasonStudentNotFound  Reason = "student_not_found"
	ReasonStudentInactive  Reason = "student_inactive"
	ReasonUserNotFound     Reason = "user_not_found"
	ReasonStoreUnavailable Reason = "store_error"
)

// ResolveError explains why a token did not produce an identity. Every reason
// is handled the same way by the middleware.
type ResolveError struct {
	Reason Reason
	Err    error
}

func (e *ResolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session: %s: %v", e.Reason, e.Err)
	}
	return "session: " + string(e.Reason)
}

func (e *ResolveError) Unwrap() error { return e.Err }

type Options struct {
	LoginPath string
	Domain    string
	Secure    bool
}

type Resolver struct {
	store  Store
	codec  *Codec
	opts   Options
	logger *zap.Logger
}

func NewResolver(store Store, codec *Codec, opts Options, logger *zap.Logger) *Resolver {
	if opts.LoginPath == "" {
		opts.LoginPath = "/login"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{store: store, codec: codec, opts: opts, logger: logger}
}

// Resolve maps a session token to the identity it denotes.
func (r *Resolver) Resolve(ctx context.Context, token string) (model.Identity, error) {
	if token == "" {
		return model.Identity{}, &ResolveError{Reason: ReasonMissingToken}
	}

	sess, err := r.store.GetSession(ctx, token)
	if err != nil {
		return model.Identity{}, lookupError(err, ReasonSessionNotFound)
	}

	ref := sess.Ref()
	switch ref.Kind {
	case model.SessionStudent:
		profile, err := r.store.GetStudentProfile(ctx, ref.ID)
		if err != nil {
			return model.Identity{}, lookupError(err, ReasonStudentNotFound)
		}
		if !profile.IsActive {
			return model.Identity{}, &ResolveError{Reason: ReasonStudentInactive}
		}
		return model.IdentityFromStudent(profile, r.opts.Domain), nil
	case model.SessionUser:
		account, err := r.store.GetAccount(ctx, ref.ID)
		if err != nil {
			return model.Identity{}, lookupError(err, ReasonUserNotFound)
		}
		return model.IdentityFromAccount(account), nil
	default:
		return model.Identity{}, &ResolveError{Reason: ReasonInvalidSession}
	}
}

func lookupError(err error, missing Reason) *ResolveError {
	if errors.Is(err, repository.ErrNotFound) {
		return &ResolveError{Reason: missing}
	}
	return &ResolveError{Reason: ReasonStoreUnavailable, Err: err}
}

// Middleware attaches the resolved identity, or clears the cookie and sends the
// client to the login path without calling next.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		identity, err := r.Resolve(req.Context(), r.Token(req))
		if err != nil {
			r.fail(w, req, err)
			return
		}
		next.ServeHTTP(w, req.WithContext(WithIdentity(req.Context(), identity)))
	})
}

func (r *Resolver) fail(w http.ResponseWriter, req *http.Request, err error) {
	reason := ReasonStoreUnavailable
	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) {
		reason = resolveErr.Reason
	}
	metrics.SessionFailures.WithLabelValues(string(reason)).Inc()
	if reason == ReasonStoreUnavailable {
		r.logger.Warn("session lookup failed", zap.String("path", req.URL.Path), zap.Error(err))
		observability.CaptureErr(err)
	} else {
		r.logger.Debug("session rejected", zap.String("path", req.URL.Path), zap.String("reason", string(reason)))
	}
	r.Clear(w)
	http.Redirect(w, req, r.opts.LoginPath, http.StatusFound)
}

// Token returns the session token carried by the request, or "" when the
// cookie is absent or fails verification.
func (r *Resolver) Token(req *http.Request) string {
	cookie, err := req.Cookie(r.codec.Name())
	if err != nil || cookie.Value == "" {
		return ""
	}
	token, err := r.codec.Decode(cookie.Value)
	if err != nil {
		return ""
	}
	return token
}

func (r *Resolver) Issue(w http.ResponseWriter, token string, ttl time.Duration) error {
	value, err := r.codec.Encode(token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     r.codec.Name(),
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   r.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (r *Resolver) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     r.codec.Name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   r.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
