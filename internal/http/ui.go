package httpx

import (
	"context"
	"log/slog"
	"net/http"

	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	apperrors "github.com/target/gatekeeper/internal/errors"
	"github.com/target/gatekeeper/internal/service"
)

// AuthServiceInterface defines the auth operations the handlers use.
type AuthServiceInterface interface {
	SessionLoader
	Signup(ctx context.Context, in service.SignupInput) (*service.AuthResult, error)
	Login(ctx context.Context, in service.LoginInput) (*service.AuthResult, error)
	Logout(ctx context.Context, sessionID string) error
	SSOEnabled() bool
	BeginSSO(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteSSO(ctx context.Context, in service.CompleteSSOInput) (*service.AuthResult, error)
}

// AdminServiceInterface defines the user-management operations.
type AdminServiceInterface interface {
	ListUsers(ctx context.Context) ([]domainauth.User, error)
	Promote(ctx context.Context, actor domainauth.Session, targetID string) (service.RoleChange, error)
	Demote(ctx context.Context, actor domainauth.Session, targetID string) (service.RoleChange, error)
}

// UIHandlers serves the HTML pages.
type UIHandlers struct {
	T      *TemplateRenderer
	Auth   AuthServiceInterface
	Admin  AdminServiceInterface
	Flash  *FlashStore
	Cookie CookieAttrs // attributes for the short-lived SSO cookies
	Logger *slog.Logger
}

var _ Denier = (*UIHandlers)(nil)

func (h *UIHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// pageOpts groups what renderPage needs (≤3 params rule).
type pageOpts struct {
	Meta        PageMeta
	Status      int
	Data        map[string]any
	FieldErrors map[string]string
	Error       string
}

// renderPage renders a full page with the shared layout data and any
// pending flashes.
func (h *UIHandlers) renderPage(w http.ResponseWriter, r *http.Request, opts pageOpts) {
	builder := NewTemplateData(r, opts.Meta).
		WithFlashes(h.Flash.Pop(w, r)).
		WithFieldErrors(opts.FieldErrors)
	if opts.Error != "" {
		builder.WithError(opts.Error)
	}
	for k, v := range opts.Data {
		builder.With(k, v)
	}
	if err := h.T.Render(w, r, View{Status: opts.Status, Data: builder.Build()}); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// NotFound renders the 404 page.
func (h *UIHandlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, pageOpts{
		Meta:   PageMeta{Title: "Page not found", CurrentPage: PageNotFound},
		Status: http.StatusNotFound,
		Data:   map[string]any{"RequestPath": r.URL.Path},
	})
}

// Forbidden renders the dedicated forbidden-access page. It is a hard deny
// rather than a redirect.
func (h *UIHandlers) Forbidden(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, pageOpts{
		Meta:   PageMeta{Title: "Forbidden", CurrentPage: PageForbidden},
		Status: http.StatusForbidden,
	})
}

// InternalError logs err and renders the generic error page. Nothing from
// err reaches the response.
func (h *UIHandlers) InternalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger().ErrorContext(r.Context(), "request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error_kind", apperrors.Classify(err)),
		slog.Any("error", err),
	)
	h.renderPage(w, r, pageOpts{
		Meta:   PageMeta{Title: "Something went wrong", CurrentPage: PageError},
		Status: http.StatusInternalServerError,
	})
}

// CSRFFailure renders a rejected state-changing request as forbidden.
func (h *UIHandlers) CSRFFailure(w http.ResponseWriter, r *http.Request) {
	h.logger().WarnContext(r.Context(), "csrf validation failed", slog.String("path", r.URL.Path))
	h.Forbidden(w, r)
}

// Panic renders the error page after Recover caught a panic.
func (h *UIHandlers) Panic(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, pageOpts{
		Meta:   PageMeta{Title: "Something went wrong", CurrentPage: PageError},
		Status: http.StatusInternalServerError,
	})
}
