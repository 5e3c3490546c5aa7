package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/gatekeeper/internal/core"
	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	apperrors "github.com/target/gatekeeper/internal/errors"
	"github.com/target/gatekeeper/internal/mocks"
	authmocks "github.com/target/gatekeeper/internal/mocks/auth"
)

type adminFixture struct {
	svc     *AdminService
	users   *authmocks.MemoryUserRepository
	admin   *domainauth.User
	member  *domainauth.User
	metrics *recordingMetrics
}

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	ctx := context.Background()
	users := authmocks.NewMemoryUserRepository()
	admin, err := users.Insert(ctx, domainauth.NewUser{Name: "Root", Email: "root@x.io", Role: domainauth.RoleAdmin})
	require.NoError(t, err)
	member, err := users.Insert(ctx, domainauth.NewUser{Name: "Bob", Email: "bob@x.io", Role: domainauth.RoleUser})
	require.NoError(t, err)
	metrics := &recordingMetrics{}
	return &adminFixture{
		svc: MustNewAdminService(AdminServiceOptions{
			Users:     users,
			Hasher:    fakeHasher{},
			Telemetry: Telemetry{Metrics: metrics},
		}),
		users:   users,
		admin:   admin,
		member:  member,
		metrics: metrics,
	}
}

const (
	testAdminID  = "5f0c1a7e-2b8d-4c3e-9a61-0d2f4b7c8e91"
	testMemberID = "a3d9e6b2-7c41-4f08-8e5a-61b2c0d4f937"
)

func sessionFor(u *domainauth.User) domainauth.Session {
	return domainauth.Session{
		ID:            "sess-" + u.ID,
		Authenticated: true,
		UserID:        u.ID,
		Name:          u.Name,
		Email:         u.Email,
		Role:          u.Role,
		ExpiresAt:     time.Now().Add(time.Hour),
	}
}

func TestNewAdminService_RequiresRepository(t *testing.T) {
	_, err := NewAdminService(AdminServiceOptions{})
	require.Error(t, err)
}

func TestAdminService_ListUsers_Ordered(t *testing.T) {
	f := newAdminFixture(t)

	users, err := f.svc.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "root@x.io", users[0].Email)
	assert.Equal(t, "bob@x.io", users[1].Email)
}

func TestAdminService_PromoteThenDemote(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	actor := sessionFor(f.admin)

	change, err := f.svc.Promote(ctx, actor, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeChanged, change.Outcome)
	assert.Equal(t, domainauth.RoleAdmin, change.User.Role)

	again, err := f.svc.Promote(ctx, actor, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, again.Outcome)

	change, err = f.svc.Demote(ctx, actor, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeChanged, change.Outcome)

	stored, err := f.users.FindByID(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleUser, stored.Role)
	assert.Equal(t, []map[string]string{
		{"outcome": "changed"}, {"outcome": "unchanged"}, {"outcome": "changed"},
	}, f.metrics.tags)
}

func TestAdminService_SelfDemotionRefused(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	change, err := f.svc.Demote(ctx, sessionFor(f.admin), f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSelfDemotionRefused, change.Outcome)

	stored, err := f.users.FindByID(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, stored.Role)
}

func TestAdminService_SelfDemotionRefusedForEveryIDSpelling(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	id := f.admin.ID

	spellings := map[string]string{
		"upper case":   strings.ToUpper(id),
		"braced":       "{" + id + "}",
		"unhyphenated": strings.ReplaceAll(id, "-", ""),
		"urn":          "urn:uuid:" + id,
	}
	for name, target := range spellings {
		t.Run(name, func(t *testing.T) {
			change, err := f.svc.Demote(ctx, sessionFor(f.admin), target)
			require.NoError(t, err)
			assert.Equal(t, OutcomeSelfDemotionRefused, change.Outcome)

			stored, err := f.users.FindByID(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, domainauth.RoleAdmin, stored.Role)
		})
	}
}

func TestAdminService_SelfDemotionNeverWrites(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	admin := &domainauth.User{ID: testAdminID, Role: domainauth.RoleAdmin}
	users.EXPECT().FindByID(gomock.Any(), testAdminID).Return(admin, nil)
	users.EXPECT().UpdateRole(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	svc := MustNewAdminService(AdminServiceOptions{Users: users})
	change, err := svc.Demote(context.Background(), sessionFor(admin), strings.ToUpper(testAdminID))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSelfDemotionRefused, change.Outcome)
}

func TestAdminService_NonAdminActorForbidden(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	actor := sessionFor(f.member)

	_, err := f.svc.Promote(ctx, actor, f.member.ID)
	assert.True(t, apperrors.IsForbidden(err))
	_, err = f.svc.Demote(ctx, actor, f.admin.ID)
	assert.True(t, apperrors.IsForbidden(err))

	_, err = f.svc.Promote(ctx, domainauth.Session{Role: domainauth.RoleAdmin}, f.member.ID)
	assert.True(t, apperrors.IsUnauthenticated(err))

	stored, err := f.users.FindByID(ctx, f.member.ID)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleUser, stored.Role)
}

func TestAdminService_UnknownTarget(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	_, err := f.svc.Promote(ctx, sessionFor(f.admin), "00000000-0000-0000-0000-000000000000")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.svc.Demote(ctx, sessionFor(f.admin), "does-not-exist")
	assert.True(t, apperrors.IsNotFound(err))
	assert.Equal(t, apperrors.MsgUserNotFound, apperrors.UserMessage(err))
}

func TestAdminService_StoreFailureIsInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	users.EXPECT().FindByID(gomock.Any(), testMemberID).Return(&domainauth.User{ID: testMemberID, Role: domainauth.RoleUser}, nil)
	users.EXPECT().UpdateRole(gomock.Any(), testMemberID, domainauth.RoleAdmin).Return(errors.New("deadlock"))

	svc := MustNewAdminService(AdminServiceOptions{Users: users})
	admin := &domainauth.User{ID: testAdminID, Role: domainauth.RoleAdmin}
	_, err := svc.Promote(context.Background(), sessionFor(admin), testMemberID)
	assert.True(t, apperrors.IsInternal(err))
}

func TestAdminService_StoreTimeoutKeepsItsCode(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	users.EXPECT().List(gomock.Any()).Return(nil, fmt.Errorf("list users: %w", context.DeadlineExceeded))

	svc := MustNewAdminService(AdminServiceOptions{Users: users})
	_, err := svc.ListUsers(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTimeout, apperrors.GetCode(err))
	assert.Equal(t, apperrors.MsgInternal, apperrors.UserMessage(err))
}

func TestAdminService_SetRoleByEmail(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	change, err := f.svc.SetRoleByEmail(ctx, "bob@x.io", domainauth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, OutcomeChanged, change.Outcome)

	_, err = f.svc.SetRoleByEmail(ctx, "nobody@x.io", domainauth.RoleAdmin)
	assert.True(t, apperrors.IsUserNotFound(err))

	_, err = f.svc.SetRoleByEmail(ctx, "bob@x.io", domainauth.Role("owner"))
	assert.True(t, apperrors.IsValidation(err))
}

func TestAdminService_CreateUser(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()

	u, err := f.svc.CreateUser(ctx, CreateUserInput{Name: "Ops", Email: "ops@x.io", Password: "secret1", Role: domainauth.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, u.Role)
	assert.Equal(t, "hashed:secret1", u.PasswordHash)

	_, err = f.svc.CreateUser(ctx, CreateUserInput{Name: "Ops", Email: "ops@x.io", Password: "secret1", Role: domainauth.RoleAdmin})
	assert.True(t, apperrors.IsConflict(err))
	assert.True(t, errors.Is(err, core.ErrDuplicateEmail))

	_, err = f.svc.CreateUser(ctx, CreateUserInput{Name: "Ops", Email: "ops2@x.io", Password: "123", Role: domainauth.RoleAdmin})
	assert.True(t, apperrors.IsValidation(err))
}
