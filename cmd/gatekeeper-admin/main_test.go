package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	bcrypthasher "github.com/target/gatekeeper/internal/adapters/bcrypt"
	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	apperrors "github.com/target/gatekeeper/internal/errors"
	authmocks "github.com/target/gatekeeper/internal/mocks/auth"
	"github.com/target/gatekeeper/internal/service"
)

type cliFixture struct {
	ctx    *commandContext
	users  *authmocks.MemoryUserRepository
	out    *bytes.Buffer
	closed int
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()
	f := &cliFixture{users: authmocks.NewMemoryUserRepository(), out: &bytes.Buffer{}}
	admin := service.MustNewAdminService(service.AdminServiceOptions{
		Users:  f.users,
		Hasher: bcrypthasher.NewHasher(bcrypt.MinCost),
	})
	f.ctx = &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Out:    f.out,
		connect: func(*commandContext) (userAdmin, func() error, error) {
			return admin, func() error { f.closed++; return nil }, nil
		},
		readPassword: func(string) (string, error) { return "correct horse", nil },
	}
	return f
}

func (f *cliFixture) seed(t *testing.T, name, email string, role domainauth.Role) {
	t.Helper()
	_, err := f.users.Insert(context.Background(), domainauth.NewUser{Name: name, Email: email, PasswordHash: "x", Role: role})
	require.NoError(t, err)
}

func TestCreateAdmin(t *testing.T) {
	f := newCLIFixture(t)

	err := runCreateAdmin(f.ctx, []string{"--name", "Ann Lee", "--email", "ann@x.com"})
	require.NoError(t, err)

	u, err := f.users.FindByEmail(context.Background(), "ann@x.com")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, u.Role)
	assert.NotEqual(t, "correct horse", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("correct horse")))
	assert.Contains(t, f.out.String(), "Created admin Ann Lee <ann@x.com>")
	assert.Equal(t, 1, f.closed)
}

func TestCreateAdmin_DuplicateEmail(t *testing.T) {
	f := newCLIFixture(t)
	f.seed(t, "Ann", "ann@x.com", domainauth.RoleUser)

	err := runCreateAdmin(f.ctx, []string{"--name", "Ann", "--email", "ann@x.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), apperrors.MsgDuplicateEmail)
}

func TestCreateAdmin_UsageAndPasswordErrors(t *testing.T) {
	f := newCLIFixture(t)

	err := runCreateAdmin(f.ctx, []string{"--name", "Ann"})
	require.ErrorIs(t, err, errUsage)

	f.ctx.readPassword = func(string) (string, error) { return "", errors.New("passwords do not match") }
	err = runCreateAdmin(f.ctx, []string{"--name", "Ann", "--email", "ann@x.com"})
	require.ErrorContains(t, err, "passwords do not match")
	assert.Equal(t, 0, f.closed, "store must not be opened without a password")
}

func TestParseCreateAdminFlags_ReportsEveryBadFlag(t *testing.T) {
	_, err := parseCreateAdminFlags([]string{"--name", "  ", "--email", "Ann <ann@x.com>"})
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, err.Error(), "--name is required.")
	assert.Contains(t, err.Error(), "--email must be a valid email address.")

	_, err = parseCreateAdminFlags([]string{"--name", strings.Repeat("n", 51), "--email", "ann@x.com"})
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, err.Error(), "--name cannot exceed 50 characters.")

	opts, err := parseCreateAdminFlags([]string{"--name", " Ann Lee ", "--email", "ann@x.com "})
	require.NoError(t, err)
	assert.Equal(t, createAdminOptions{Name: "Ann Lee", Email: "ann@x.com"}, opts)
}

func TestSetRole(t *testing.T) {
	f := newCLIFixture(t)
	f.seed(t, "Bob", "bob@x.com", domainauth.RoleUser)

	require.NoError(t, runSetRole(f.ctx, []string{"bob@x.com", "ADMIN"}))
	assert.Contains(t, f.out.String(), "bob@x.com now has role admin")

	err := runSetRole(f.ctx, []string{"bob@x.com", "owner"})
	require.ErrorIs(t, err, errUsage)
	assert.Contains(t, err.Error(), "role must be one of: user, admin")

	require.ErrorIs(t, runSetRole(f.ctx, []string{"bob@x.com"}), errUsage)

	u, err := f.users.FindByEmail(context.Background(), "bob@x.com")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, u.Role)
}

func TestPromoteAndDemote(t *testing.T) {
	f := newCLIFixture(t)
	f.seed(t, "Bob", "bob@x.com", domainauth.RoleUser)

	require.NoError(t, runPromote(f.ctx, []string{"bob@x.com"}))
	assert.Contains(t, f.out.String(), "bob@x.com now has role admin")

	f.out.Reset()
	require.NoError(t, runPromote(f.ctx, []string{"bob@x.com"}))
	assert.Contains(t, f.out.String(), "bob@x.com already has role admin")

	f.out.Reset()
	require.NoError(t, runDemote(f.ctx, []string{"bob@x.com"}))
	assert.Contains(t, f.out.String(), "bob@x.com now has role user")

	u, err := f.users.FindByEmail(context.Background(), "bob@x.com")
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleUser, u.Role)
}

func TestPromote_UnknownUserAndUsage(t *testing.T) {
	f := newCLIFixture(t)

	err := runPromote(f.ctx, []string{"nobody@x.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), apperrors.MsgUserNotFound)

	require.ErrorIs(t, runDemote(f.ctx, nil), errUsage)
	require.ErrorIs(t, runDemote(f.ctx, []string{"a@x.com", "b@x.com"}), errUsage)
}

func TestListUsers(t *testing.T) {
	f := newCLIFixture(t)
	f.seed(t, "Ann", "ann@x.com", domainauth.RoleAdmin)
	f.seed(t, "Bob", "bob@x.com", domainauth.RoleUser)

	require.NoError(t, runListUsers(f.ctx, nil))
	lines := strings.Split(strings.TrimSpace(f.out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "EMAIL")
	assert.Contains(t, lines[1], "ann@x.com")
	assert.Contains(t, lines[1], "admin")
	assert.Contains(t, lines[2], "bob@x.com")
	assert.Equal(t, "2 users", lines[3])

	require.ErrorIs(t, runListUsers(f.ctx, []string{"extra"}), errUsage)
}

func TestParseMigrateFlags(t *testing.T) {
	opts, err := parseMigrateFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultMigrationTimeout, opts.Timeout)

	_, err = parseMigrateFlags([]string{"--timeout", "0s"})
	require.ErrorIs(t, err, errUsage)

	_, err = parseMigrateFlags([]string{"--bogus"})
	require.ErrorIs(t, err, errUsage)
}

func TestPrintUsageListsCommands(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printUsage(&buf))
	for name := range commands() {
		assert.Contains(t, buf.String(), name)
	}
}

func TestReadPasswordLine(t *testing.T) {
	got, err := readPasswordLine(strings.NewReader("s3cret pass\r\nignored\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret pass", got)

	got, err = readPasswordLine(strings.NewReader("no-newline"))
	require.NoError(t, err)
	assert.Equal(t, "no-newline", got)
}
