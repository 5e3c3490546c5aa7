package httpx

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func csrfHandler() (http.Handler, *string) {
	var seen string
	h := CSRFProtection(CSRFConfig{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetCSRFToken(r)
		w.WriteHeader(http.StatusOK)
	}))
	return h, &seen
}

func TestCSRF_IssuesTokenOnSafeRequest(t *testing.T) {
	h, seen := csrfHandler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCSRFCookieName, cookies[0].Name)
	assert.Equal(t, http.SameSiteStrictMode, cookies[0].SameSite)
	assert.Equal(t, cookies[0].Value, *seen)
}

func TestCSRF_ValidatesStateChangingRequests(t *testing.T) {
	const token = "tok-123"
	tests := []struct {
		name  string
		build func() *http.Request
		want  int
	}{
		{
			name: "form field matches",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(url.Values{"csrf_token": {token}}.Encode()))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return r
			},
			want: http.StatusOK,
		},
		{
			name: "header matches",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/login", nil)
				r.Header.Set(DefaultCSRFHeaderName, token)
				return r
			},
			want: http.StatusOK,
		},
		{
			name: "mismatch",
			build: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(url.Values{"csrf_token": {"other"}}.Encode()))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return r
			},
			want: http.StatusForbidden,
		},
		{
			name: "missing",
			build: func() *http.Request {
				return httptest.NewRequest(http.MethodPost, "/login", nil)
			},
			want: http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := csrfHandler()
			req := tt.build()
			req.AddCookie(&http.Cookie{Name: DefaultCSRFCookieName, Value: token})
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCSRF_PostWithoutCookieFails(t *testing.T) {
	h, _ := csrfHandler()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.Header.Set(DefaultCSRFHeaderName, "guess")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
