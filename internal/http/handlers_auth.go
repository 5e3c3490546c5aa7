package httpx

import (
	"crypto/subtle"
	"net/http"
	"time"

	apperrors "github.com/target/gatekeeper/internal/errors"
	"github.com/target/gatekeeper/internal/service"
	"github.com/target/gatekeeper/internal/validation"
)

const (
	oauthStateCookie = "oauth_state"
	oauthNonceCookie = "oauth_nonce"
	oauthCookieTTL   = 10 * time.Minute

	// PathSSOCallback receives the identity provider's redirect.
	PathSSOCallback = "/auth/callback"
)

func signupMeta() PageMeta { return PageMeta{Title: "Sign up", CurrentPage: PageSignup} }
func loginMeta() PageMeta  { return PageMeta{Title: "Log in", CurrentPage: PageLogin} }

// SignupForm renders the signup page.
// GET /signup.
func (h *UIHandlers) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, pageOpts{Meta: signupMeta(), Data: h.authFormData()})
}

// Signup creates the account and signs the new user in.
// POST /signup.
func (h *UIHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.RenderError(ErrorOpts{W: w, R: r, Err: apperrors.Validation("Could not read the submitted form."), Form: h.signupForm(nil)})
		return
	}

	state := SessionStateFromContext(r.Context())
	res, err := h.Auth.Signup(r.Context(), service.SignupInput{
		Form:              r.PostForm,
		PreviousSessionID: currentSessionID(state),
	})
	if err != nil {
		h.RenderError(ErrorOpts{W: w, R: r, Err: err, Form: h.signupForm(r)})
		return
	}

	h.signIn(w, r, res)
	h.Flash.Add(w, r, "Welcome, "+res.User.Name+"! Your account is ready.")
	redirect(w, r, res.Landing)
}

// LoginForm renders the login page.
// GET /login.
func (h *UIHandlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, pageOpts{Meta: loginMeta(), Data: h.authFormData()})
}

// Login verifies credentials and establishes a session.
// POST /login.
func (h *UIHandlers) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.RenderError(ErrorOpts{W: w, R: r, Err: apperrors.Validation("Could not read the submitted form."), Form: h.loginForm(nil)})
		return
	}

	state := SessionStateFromContext(r.Context())
	res, err := h.Auth.Login(r.Context(), service.LoginInput{
		Form:              r.PostForm,
		PreviousSessionID: currentSessionID(state),
	})
	if err != nil {
		h.RenderError(ErrorOpts{W: w, R: r, Err: err, Form: h.loginForm(r)})
		return
	}

	h.signIn(w, r, res)
	redirect(w, r, res.Landing)
}

// Logout destroys the session and returns to the landing page.
// GET /logout, POST /logout.
func (h *UIHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	state := SessionStateFromContext(r.Context())
	if id := currentSessionID(state); id != "" {
		if err := h.Auth.Logout(r.Context(), id); err != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	if state != nil {
		state.Clear()
	}
	h.Flash.Add(w, r, "You have been signed out.")
	redirect(w, r, PathHome)
}

// BeginSSO redirects to the identity provider.
// GET /auth/sso.
func (h *UIHandlers) BeginSSO(w http.ResponseWriter, r *http.Request) {
	if !h.Auth.SSOEnabled() {
		h.NotFound(w, r)
		return
	}
	result, err := h.Auth.BeginSSO(r.Context(), PathSSOCallback)
	if err != nil {
		h.RenderError(ErrorOpts{W: w, R: r, Err: err})
		return
	}
	h.setTempCookie(w, r, oauthStateCookie, result.State)
	h.setTempCookie(w, r, oauthNonceCookie, result.Nonce)
	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// SSOCallback completes single sign-on.
// GET /auth/callback?code=<code>&state=<state>.
func (h *UIHandlers) SSOCallback(w http.ResponseWriter, r *http.Request) {
	if !h.Auth.SSOEnabled() {
		h.NotFound(w, r)
		return
	}
	q := r.URL.Query()
	code, stateParam := q.Get("code"), q.Get("state")

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateParam == "" ||
		subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(stateParam)) != 1 {
		h.RenderError(ErrorOpts{W: w, R: r, Err: apperrors.Validation("Single sign-on session expired. Please try again."), Form: h.loginForm(nil)})
		return
	}
	nonce := ""
	if c, cerr := r.Cookie(oauthNonceCookie); cerr == nil {
		nonce = c.Value
	}
	h.clearTempCookie(w, r, oauthStateCookie)
	h.clearTempCookie(w, r, oauthNonceCookie)

	state := SessionStateFromContext(r.Context())
	res, err := h.Auth.CompleteSSO(r.Context(), service.CompleteSSOInput{
		Code:              code,
		State:             stateParam,
		Nonce:             nonce,
		PreviousSessionID: currentSessionID(state),
	})
	if err != nil {
		h.RenderError(ErrorOpts{W: w, R: r, Err: err, Form: h.loginForm(nil)})
		return
	}

	h.signIn(w, r, res)
	redirect(w, r, res.Landing)
}

func (h *UIHandlers) signIn(w http.ResponseWriter, r *http.Request, res *service.AuthResult) {
	if state := SessionStateFromContext(r.Context()); state != nil {
		state.Establish(res.Session)
	}
	h.logger().InfoContext(r.Context(), "signed in", "user_id", res.User.ID, "role", res.User.Role)
}

func (h *UIHandlers) authFormData() map[string]any {
	return map[string]any{
		"Form":       map[string]string{},
		"SSOEnabled": h.Auth != nil && h.Auth.SSOEnabled(),
	}
}

// signupForm echoes name and email back into the form. The password is
// never re-rendered.
func (h *UIHandlers) signupForm(r *http.Request) *FormContext {
	return &FormContext{Meta: signupMeta(), Values: formValues(r, validation.FieldName, validation.FieldEmail), Data: h.authFormData()}
}

func (h *UIHandlers) loginForm(r *http.Request) *FormContext {
	return &FormContext{Meta: loginMeta(), Values: formValues(r, validation.FieldEmail), Data: h.authFormData()}
}

func formValues(r *http.Request, fields ...string) map[string]string {
	out := make(map[string]string, len(fields))
	if r == nil {
		return out
	}
	for _, f := range fields {
		out[f] = r.PostForm.Get(f)
	}
	return out
}

func currentSessionID(state *SessionState) string {
	if sess := state.Session(); sess != nil {
		return sess.ID
	}
	return ""
}

func (h *UIHandlers) setTempCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.Cookie.Domain,
		HttpOnly: true,
		Secure:   h.Cookie.Secure || isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(oauthCookieTTL.Seconds()),
	})
}

func (h *UIHandlers) clearTempCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.Cookie.Domain,
		HttpOnly: true,
		Secure:   h.Cookie.Secure || isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
	})
}
