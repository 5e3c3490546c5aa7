package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/target/gatekeeper/internal/core"
	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	apperrors "github.com/target/gatekeeper/internal/errors"
)

// Logging returns a middleware that logs HTTP requests and responses.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Int("bytes", ww.bytes),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *respWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *respWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// RequestTimer records request latency. *statsd.Client satisfies it.
type RequestTimer interface {
	Timing(name string, d time.Duration, tags map[string]string)
}

// Timing reports every request as http.request tagged with method and
// status class. A nil timer makes it a no-op.
func Timing(timer RequestTimer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timer == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			timer.Timing("http.request", time.Since(start), map[string]string{
				"method": r.Method,
				"status": statusClass(ww.status),
			})
		})
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// Recover returns a middleware that recovers from panics, logs them and
// renders the generic error view through onPanic.
func Recover(logger *slog.Logger, onPanic http.HandlerFunc) func(http.Handler) http.Handler {
	if onPanic == nil {
		onPanic = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, apperrors.MsgInternal, http.StatusInternalServerError)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					onPanic(w, r)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SessionLoader is the slice of the auth service the session middleware needs.
type SessionLoader interface {
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	Touch(ctx context.Context, sess domainauth.Session) (domainauth.Session, error)
}

// SessionMiddlewareConfig configures Sessions.
type SessionMiddlewareConfig struct {
	Loader  SessionLoader
	Cookies *SessionCookies
	Logger  *slog.Logger
}

// Sessions loads the caller's session into a per-request SessionState,
// slides the expiry of authenticated sessions and flushes the session cookie
// before the first byte of the response is written.
func Sessions(cfg SessionMiddlewareConfig) func(http.Handler) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := loadSessionState(r, cfg, logger)
			sw := &sessionWriter{ResponseWriter: w, r: r, state: state, cookies: cfg.Cookies, logger: logger}
			next.ServeHTTP(sw, r.WithContext(WithSessionState(r.Context(), state)))
			sw.flush()
		})
	}
}

func loadSessionState(r *http.Request, cfg SessionMiddlewareConfig, logger *slog.Logger) *SessionState {
	state := &SessionState{}
	id, ok := cfg.Cookies.Read(r)
	if !ok {
		if _, err := r.Cookie(cfg.Cookies.attrs.Name); err == nil {
			// Present but unverifiable: drop it.
			state.Clear()
		}
		return state
	}

	ctx := r.Context()
	sess, err := cfg.Loader.GetSession(ctx, id)
	switch {
	case err == nil:
	case apperrors.IsUnauthenticated(err):
		state.Clear()
		return state
	default:
		logger.ErrorContext(ctx, "failed to load session", "error", err)
		state.loadErr = err
		return state
	}

	touched, err := cfg.Loader.Touch(ctx, *sess)
	if err != nil {
		// The stored session is still valid until its old expiry.
		logger.WarnContext(ctx, "failed to extend session", "error", err)
		state.session = sess
		return state
	}
	state.Establish(touched)
	return state
}

// sessionWriter defers the session cookie until the handler commits the
// response so handlers can establish or clear the session at any point
// before writing.
type sessionWriter struct {
	http.ResponseWriter
	r       *http.Request
	state   *SessionState
	cookies *SessionCookies
	logger  *slog.Logger
	flushed bool
}

func (w *sessionWriter) flush() {
	if w.flushed {
		return
	}
	w.flushed = true
	if !w.state.dirty {
		return
	}
	if w.state.session == nil {
		w.cookies.Clear(w.ResponseWriter, w.r)
		return
	}
	if err := w.cookies.Write(w.ResponseWriter, w.r, *w.state.session); err != nil {
		w.logger.ErrorContext(w.r.Context(), "failed to write session cookie", "error", err)
	}
}

func (w *sessionWriter) WriteHeader(status int) {
	w.flush()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.flush()
	return w.ResponseWriter.Write(b)
}

func (w *sessionWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// GateConfig configures RequireAuth and RequireRole.
type GateConfig struct {
	// Roles, when set, is consulted on every role check so promotions and
	// demotions apply to open sessions immediately.
	Roles core.RoleSource
	// Deny renders the outcome of a failed check. Required.
	Deny Denier
}

// Denier renders gate failures.
type Denier interface {
	Forbidden(w http.ResponseWriter, r *http.Request)
	InternalError(w http.ResponseWriter, r *http.Request, err error)
}

// RequireAuth passes authenticated requests and sends everyone else to the
// login page. This is a soft failure: a redirect, not an error.
func RequireAuth(cfg GateConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state := SessionStateFromContext(r.Context())
			if err := state.LoadError(); err != nil {
				cfg.Deny.InternalError(w, r, err)
				return
			}
			if !state.Authenticated() {
				redirect(w, r, PathLogin)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole passes iff the session's role equals role exactly. It assumes
// RequireAuth ran first and denies with the forbidden view otherwise.
func RequireRole(cfg GateConfig, role domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := GetSessionFromContext(r.Context())
			if sess == nil {
				redirect(w, r, PathLogin)
				return
			}
			current := sess.Role
			if cfg.Roles != nil {
				live, err := cfg.Roles.CurrentRole(r.Context(), sess.UserID)
				switch {
				case err == nil:
					current = live
				case errors.Is(err, core.ErrUserNotFound):
					current = ""
				default:
					cfg.Deny.InternalError(w, r, err)
					return
				}
			}
			if current != role {
				cfg.Deny.Forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
