package httpx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/publicsuffix"

	bcrypthasher "github.com/target/gatekeeper/internal/adapters/bcrypt"
	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	authmocks "github.com/target/gatekeeper/internal/mocks/auth"
	"github.com/target/gatekeeper/internal/ports"
	"github.com/target/gatekeeper/internal/service"
)

var testHashKey = bytes.Repeat([]byte("h"), 32)

// testClock is shared by the auth service, the session store and the cookie
// codec so tests can move past the session TTL.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock { return &testClock{t: time.Now()} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type appOptions struct {
	revalidateRoles bool
	provider        ports.AuthProvider
	health          map[string]HealthCheck
}

type testApp struct {
	t        *testing.T
	server   *httptest.Server
	client   *http.Client
	users    *authmocks.MemoryUserRepository
	sessions *authmocks.MemorySessionStore
	hasher   *bcrypthasher.Hasher
	clock    *testClock
}

// newTestApp serves the full router over httptest with in-memory stores and
// a browser-like client that keeps cookies but does not follow redirects.
func newTestApp(t *testing.T, opts appOptions) *testApp {
	t.Helper()

	clock := newTestClock()
	users := authmocks.NewMemoryUserRepository()
	sessions := authmocks.NewMemorySessionStore()
	sessions.Now = clock.Now
	hasher := bcrypthasher.NewHasher(bcrypt.MinCost)

	authSvc := service.MustNewAuthService(service.AuthServiceOptions{
		Stores: service.AuthStores{Users: users, Sessions: sessions, Hasher: hasher},
		Config: service.AuthConfig{Provider: opts.provider, Now: clock.Now},
	})
	adminSvc := service.MustNewAdminService(service.AdminServiceOptions{Users: users, Hasher: hasher})

	cookies, err := NewSessionCookies(SessionCookieConfig{Keys: CookieKeys{Hash: testHashKey}, TTL: authSvc.SessionTTL()})
	require.NoError(t, err)
	cookies.now = clock.Now

	services := RouterServices{
		Auth:       authSvc,
		Admin:      adminSvc,
		Web:        WebConfig{Cookies: cookies, Flash: NewFlashStore(CookieKeys{Hash: testHashKey}, CookieAttrs{}, nil)},
		Health:     opts.health,
		TemplateFS: os.DirFS(TemplatePathFromTest),
	}
	if opts.revalidateRoles {
		services.Roles = users
	}
	handler, err := NewRouter(services)
	require.NoError(t, err)

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testApp{t: t, server: server, client: client, users: users, sessions: sessions, hasher: hasher, clock: clock}
}

type response struct {
	status int
	header http.Header
	body   string
}

func (a *testApp) do(req *http.Request) response {
	a.t.Helper()
	resp, err := a.client.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(a.t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: string(body)}
}

func (a *testApp) get(path string) response {
	a.t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, a.server.URL+path, nil)
	require.NoError(a.t, err)
	return a.do(req)
}

// post submits form with the CSRF token from the cookie jar, fetching the
// landing page first when the jar has none yet.
func (a *testApp) post(path string, form url.Values) response {
	a.t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get(DefaultCSRFCookieName) == "" {
		form.Set(DefaultCSRFCookieName, a.csrfToken())
	}
	return a.postRaw(path, form, nil)
}

func (a *testApp) postRaw(path string, form url.Values, header http.Header) response {
	a.t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, a.server.URL+path, strings.NewReader(form.Encode()))
	require.NoError(a.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return a.do(req)
}

func (a *testApp) cookie(name string) *http.Cookie {
	u, err := url.Parse(a.server.URL)
	require.NoError(a.t, err)
	for _, c := range a.client.Jar.Cookies(u) {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (a *testApp) csrfToken() string {
	a.t.Helper()
	if c := a.cookie(DefaultCSRFCookieName); c != nil {
		return c.Value
	}
	a.get(PathHome)
	c := a.cookie(DefaultCSRFCookieName)
	require.NotNil(a.t, c, "csrf cookie should be issued on first visit")
	return c.Value
}

func (a *testApp) seedUser(name, email, password string, role domainauth.Role) *domainauth.User {
	a.t.Helper()
	hash, err := a.hasher.Hash(password)
	require.NoError(a.t, err)
	u, err := a.users.Insert(context.Background(), domainauth.NewUser{Name: name, Email: email, PasswordHash: hash, Role: role})
	require.NoError(a.t, err)
	return u
}

func (a *testApp) login(email, password string) response {
	a.t.Helper()
	return a.post(PathLogin, url.Values{"email": {email}, "password": {password}})
}

func (a *testApp) role(id string) domainauth.Role {
	a.t.Helper()
	u, err := a.users.FindByID(context.Background(), id)
	require.NoError(a.t, err)
	return u.Role
}
