package httpx

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	gatekeeper "github.com/target/gatekeeper"
	"github.com/target/gatekeeper/internal/core"
	domainauth "github.com/target/gatekeeper/internal/domain/auth"
)

// WebConfig groups the cookie plumbing shared by the middleware and handlers.
type WebConfig struct {
	Cookies *SessionCookies // Required
	Flash   *FlashStore
	Attrs   CookieAttrs
}

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Auth  AuthServiceInterface  // Required
	Admin AdminServiceInterface // Required
	// Roles, when set, makes RequireRole consult the stored role on every
	// request instead of trusting the session snapshot.
	Roles  core.RoleSource
	Web    WebConfig
	Health map[string]HealthCheck
	// Metrics, when set, receives a timing for every request.
	Metrics RequestTimer
	// TemplateFS overrides the embedded templates (tests).
	TemplateFS fs.FS
	IsDev      bool         // Load templates and static files from disk
	Logger     *slog.Logger // Logger for template and HTTP errors (optional)
}

// NewRouter creates the application handler with its middleware chain:
// Logging, Timing, Recover, then the route mux. Page routes additionally run
// behind Sessions and CSRFProtection; /healthz and /static/ do not.
func NewRouter(services RouterServices) (http.Handler, error) {
	if services.Auth == nil || services.Admin == nil {
		return nil, errors.New("auth and admin services are required")
	}
	if services.Web.Cookies == nil {
		return nil, errors.New("session cookies are required")
	}
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	templateFS, err := resolveTemplateFS(services)
	if err != nil {
		return nil, err
	}
	tr, err := NewTemplateRenderer(TemplateRendererConfig{TemplateFS: templateFS, DevMode: services.IsDev, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("create template renderer: %w", err)
	}

	ui := &UIHandlers{
		T:      tr,
		Auth:   services.Auth,
		Admin:  services.Admin,
		Flash:  services.Web.Flash,
		Cookie: services.Web.Attrs,
		Logger: logger,
	}
	gate := GateConfig{Roles: services.Roles, Deny: ui}

	pages := http.NewServeMux()
	registerAuthRoutes(pages, ui)
	registerPageRoutes(pages, ui, gate)
	pages.HandleFunc("/", ui.NotFound)

	var app http.Handler = pages
	app = CSRFProtection(CSRFConfig{
		Attrs:     CookieAttrs{Domain: services.Web.Attrs.Domain, Secure: services.Web.Attrs.Secure},
		OnFailure: ui.CSRFFailure,
	})(app)
	app = Sessions(SessionMiddlewareConfig{Loader: services.Auth, Cookies: services.Web.Cookies, Logger: logger})(app)

	// Probes and assets bypass sessions: they must not slide expiry or hit
	// the session store.
	mux := http.NewServeMux()
	health := healthHandler(services.Health)
	mux.Handle("GET /healthz", health)
	mux.Handle("HEAD /healthz", health)
	mux.Handle("GET /static/", staticHandler(services.IsDev))
	mux.Handle("/", app)

	var handler http.Handler = mux
	handler = Recover(logger, ui.Panic)(handler)
	handler = Timing(services.Metrics)(handler)
	handler = Logging(logger)(handler)
	return handler, nil
}

func registerAuthRoutes(mux *http.ServeMux, h *UIHandlers) {
	mux.HandleFunc("GET /signup", h.SignupForm)
	mux.HandleFunc("POST /signup", h.Signup)
	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /logout", h.Logout)
	mux.HandleFunc("POST /logout", h.Logout)
	mux.HandleFunc("GET /auth/sso", h.BeginSSO)
	mux.HandleFunc("GET "+PathSSOCallback, h.SSOCallback)
}

func registerPageRoutes(mux *http.ServeMux, h *UIHandlers, gate GateConfig) {
	authed := RequireAuth(gate)
	adminOnly := func(next http.HandlerFunc) http.Handler {
		return authed(RequireRole(gate, domainauth.RoleAdmin)(next))
	}

	mux.HandleFunc("GET /{$}", h.Home)
	mux.Handle("GET /members", authed(http.HandlerFunc(h.Members)))
	mux.Handle("GET /user", authed(http.HandlerFunc(h.Members)))
	mux.Handle("GET /admin", adminOnly(h.AdminDashboard))
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		mux.Handle(method+" /promote/{id}", adminOnly(h.Promote))
		mux.Handle(method+" /demote/{id}", adminOnly(h.Demote))
	}
}

func resolveTemplateFS(services RouterServices) (fs.FS, error) {
	switch {
	case services.TemplateFS != nil:
		return services.TemplateFS, nil
	case services.IsDev:
		return os.DirFS(TemplatePathFromRoot), nil
	}
	sub, err := fs.Sub(gatekeeper.TemplateFS, TemplatePathFromRoot)
	if err != nil {
		return nil, fmt.Errorf("embedded templates: %w", err)
	}
	return sub, nil
}

// staticHandler serves /static/* from disk in dev mode and from the embedded
// FS otherwise.
func staticHandler(isDev bool) http.Handler {
	if isDev {
		return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.Dir(StaticPathFromRoot))), false)
	}
	sub, err := fs.Sub(gatekeeper.StaticFS, StaticPathFromRoot)
	if err != nil {
		slog.Default().Error("failed to create sub-filesystem for static assets", "error", err)
		return http.NotFoundHandler()
	}
	return staticWithCacheHeaders(http.StripPrefix("/static/", http.FileServer(http.FS(sub))), true)
}

// staticWithCacheHeaders lets browsers cache embedded assets for an hour and
// disables caching in dev mode so edits show up immediately.
func staticWithCacheHeaders(handler http.Handler, cacheable bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cacheable {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		} else {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}
		handler.ServeHTTP(w, r)
	})
}
