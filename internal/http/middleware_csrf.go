package httpx

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

const (
	// DefaultCSRFCookieName names the double-submit cookie and the form field.
	DefaultCSRFCookieName = "csrf_token"
	// DefaultCSRFHeaderName is the header htmx requests carry the token in.
	DefaultCSRFHeaderName = "X-Csrf-Token"

	csrfTokenBytes = 32
	csrfMaxAge     = 12 * 3600
)

// CSRFConfig holds configuration for CSRF protection middleware.
type CSRFConfig struct {
	Attrs CookieAttrs // Name defaults to csrf_token
	// OnFailure renders rejected requests. Defaults to a plain 403.
	OnFailure http.HandlerFunc
}

// CSRFProtection guards state-changing requests with the double-submit
// cookie pattern. The token is accepted from the X-Csrf-Token header or the
// csrf_token form field and exposed to templates through the context.
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	if cfg.Attrs.Name == "" {
		cfg.Attrs.Name = DefaultCSRFCookieName
	}
	if cfg.OnFailure == nil {
		cfg.OnFailure = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "CSRF token validation failed", http.StatusForbidden)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := csrfCookieValue(r, cfg.Attrs.Name)
			if token == "" {
				var err error
				token, err = generateCSRFToken()
				if err != nil {
					http.Error(w, "unable to generate CSRF token", http.StatusInternalServerError)
					return
				}
				setCSRFCookie(w, r, cfg.Attrs, token)
			}

			r = r.WithContext(context.WithValue(r.Context(), csrfTokenKey{}, token))

			if requiresCSRFValidation(r.Method) && !validCSRFToken(r, token, cfg.Attrs.Name) {
				cfg.OnFailure(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requiresCSRFValidation returns true for methods that may change state.
func requiresCSRFValidation(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}

func csrfCookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// generateCSRFToken fails closed rather than falling back to a predictable token.
func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf token generation failed: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func setCSRFCookie(w http.ResponseWriter, r *http.Request, attrs CookieAttrs, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     attrs.Name,
		Value:    token,
		Path:     "/",
		Domain:   attrs.Domain,
		HttpOnly: false, // htmx reads it to fill the header
		Secure:   attrs.Secure || isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   csrfMaxAge,
	})
}

// validCSRFToken compares the submitted token with the cookie in constant time.
func validCSRFToken(r *http.Request, cookieToken, field string) bool {
	if cookieToken == "" {
		return false
	}
	submitted := r.Header.Get(DefaultCSRFHeaderName)
	if submitted == "" {
		ct := r.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "application/x-www-form-urlencoded") && !strings.HasPrefix(ct, "multipart/form-data") {
			return false
		}
		if err := r.ParseForm(); err != nil {
			return false
		}
		submitted = r.PostFormValue(field)
	}
	return submitted != "" && subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) == 1
}

type csrfTokenKey struct{}

// GetCSRFToken returns the request's CSRF token for embedding in forms.
func GetCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfTokenKey{}).(string)
	return token
}
