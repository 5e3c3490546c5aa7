package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/target/gatekeeper/internal/core"
	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	apperrors "github.com/target/gatekeeper/internal/errors"
	"github.com/target/gatekeeper/internal/ports"
	"github.com/target/gatekeeper/internal/validation"
)

// AdminServiceOptions groups dependencies for AdminService.
type AdminServiceOptions struct {
	Users     core.UserRepository  // Required
	Hasher    ports.PasswordHasher // Optional: required only by CreateUser
	Telemetry Telemetry
}

// AdminService implements user management: listing users and changing roles.
type AdminService struct {
	users     core.UserRepository
	hasher    ports.PasswordHasher
	telemetry Telemetry
	logger    *slog.Logger
}

// RoleChangeOutcome describes what a promote or demote request did.
type RoleChangeOutcome string

const (
	OutcomeChanged             RoleChangeOutcome = "changed"
	OutcomeUnchanged           RoleChangeOutcome = "unchanged"
	OutcomeSelfDemotionRefused RoleChangeOutcome = "self_demotion_refused"
)

// RoleChange reports the result of a role change along with the target user
// as stored after the operation.
type RoleChange struct {
	Outcome RoleChangeOutcome
	User    domainauth.User
}

// NewAdminService constructs a new AdminService.
func NewAdminService(opts AdminServiceOptions) (*AdminService, error) {
	if opts.Users == nil {
		return nil, errors.New("UserRepository is required")
	}
	return &AdminService{
		users:     opts.Users,
		hasher:    opts.Hasher,
		telemetry: opts.Telemetry,
		logger:    opts.Telemetry.logger("admin_service"),
	}, nil
}

// MustNewAdminService constructs a new AdminService and panics on error.
func MustNewAdminService(opts AdminServiceOptions) *AdminService {
	svc, err := NewAdminService(opts)
	if err != nil {
		panic(err) //nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
	}
	return svc
}

// ListUsers returns every user ordered by creation time.
func (s *AdminService) ListUsers(ctx context.Context) ([]domainauth.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeFailure(fmt.Errorf("list users: %w", err))
	}
	return users, nil
}

// Promote sets the target user's role to admin.
func (s *AdminService) Promote(ctx context.Context, actor domainauth.Session, targetID string) (RoleChange, error) {
	target, err := s.lookupTarget(ctx, actor, targetID)
	if err != nil {
		return RoleChange{}, err
	}
	return s.applyRole(ctx, actor.UserID, target, domainauth.RoleAdmin)
}

// Demote sets the target user's role to user. An admin demoting themself is
// refused without touching the store.
func (s *AdminService) Demote(ctx context.Context, actor domainauth.Session, targetID string) (RoleChange, error) {
	target, err := s.lookupTarget(ctx, actor, targetID)
	if err != nil {
		return RoleChange{}, err
	}
	if self, ok := canonicalUserID(actor.UserID); ok && target.ID == self {
		s.telemetry.count("admin.role_change", map[string]string{"outcome": string(OutcomeSelfDemotionRefused)})
		return RoleChange{Outcome: OutcomeSelfDemotionRefused, User: *target}, nil
	}
	return s.applyRole(ctx, actor.UserID, target, domainauth.RoleUser)
}

// SetRoleByEmail changes a user's role without an acting session. It backs
// the operator CLI, which runs with database credentials.
func (s *AdminService) SetRoleByEmail(ctx context.Context, email string, role domainauth.Role) (RoleChange, error) {
	if !role.Valid() {
		return RoleChange{}, apperrors.Validation(fmt.Sprintf("Unknown role %q.", role))
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return RoleChange{}, mapUserLookup(err)
	}
	return s.applyRole(ctx, "", user, role)
}

// lookupTarget authorizes actor and loads the user named by a path id. Ids
// are compared in canonical form: PostgreSQL also accepts upper case, braced
// and unhyphenated uuid text, so the raw path value cannot be trusted for
// identity checks.
func (s *AdminService) lookupTarget(ctx context.Context, actor domainauth.Session, targetID string) (*domainauth.User, error) {
	if err := authorizeAdmin(actor); err != nil {
		return nil, err
	}
	id, ok := canonicalUserID(targetID)
	if !ok {
		return nil, apperrors.NotFound(apperrors.MsgUserNotFound)
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return nil, apperrors.NotFound(apperrors.MsgUserNotFound)
		}
		return nil, storeFailure(fmt.Errorf("find user: %w", err))
	}
	return user, nil
}

func (s *AdminService) applyRole(ctx context.Context, actorID string, user *domainauth.User, role domainauth.Role) (RoleChange, error) {
	if user.Role == role {
		s.telemetry.count("admin.role_change", map[string]string{"outcome": string(OutcomeUnchanged)})
		return RoleChange{Outcome: OutcomeUnchanged, User: *user}, nil
	}

	if err := s.users.UpdateRole(ctx, user.ID, role); err != nil {
		return RoleChange{}, mapUserLookup(err)
	}
	changed := *user
	changed.Role = role
	s.telemetry.count("admin.role_change", map[string]string{"outcome": string(OutcomeChanged)})
	s.logger.InfoContext(ctx, "role changed", "actor_id", actorID, "target_id", changed.ID, "role", role)
	return RoleChange{Outcome: OutcomeChanged, User: changed}, nil
}

// CreateUserInput carries the fields for operator-created accounts.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     domainauth.Role
}

// CreateUser validates and inserts a user with the requested role. It
// enforces the signup rules and is how the first admin is bootstrapped.
func (s *AdminService) CreateUser(ctx context.Context, in CreateUserInput) (*domainauth.User, error) {
	if s.hasher == nil {
		return nil, apperrors.Internal(errors.New("password hasher not configured"))
	}
	if !in.Role.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("Unknown role %q.", in.Role))
	}
	payload, ferr := validation.SignupSchema.Check(map[string][]string{
		validation.FieldName:     {in.Name},
		validation.FieldEmail:    {in.Email},
		validation.FieldPassword: {in.Password},
	})
	if ferr != nil {
		return nil, apperrors.ValidationField(ferr.Field, ferr.Message)
	}
	hash, err := s.hasher.Hash(payload.Get(validation.FieldPassword))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	user, err := s.users.Insert(ctx, domainauth.NewUser{
		Name:         payload.Get(validation.FieldName),
		Email:        payload.Get(validation.FieldEmail),
		PasswordHash: hash,
		Role:         in.Role,
	})
	if err != nil {
		if errors.Is(err, core.ErrDuplicateEmail) {
			return nil, apperrors.DuplicateEmail(err)
		}
		return nil, storeFailure(fmt.Errorf("insert user: %w", err))
	}
	return user, nil
}

func authorizeAdmin(actor domainauth.Session) error {
	if !actor.Authenticated {
		return apperrors.Unauthenticated()
	}
	if !actor.HasRole(domainauth.RoleAdmin) {
		return apperrors.Forbidden()
	}
	return nil
}

// canonicalUserID returns id in lower-case hyphenated form, or false when id
// is not a uuid.
func canonicalUserID(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

func mapUserLookup(err error) error {
	if errors.Is(err, core.ErrUserNotFound) {
		return apperrors.UserNotFound()
	}
	return storeFailure(err)
}

// storeFailure reports an unexpected repository error. Database timeouts and
// cancellations keep their own codes so logs tell them apart from faults.
func storeFailure(err error) error {
	var appErr *apperrors.AppError
	if mapped := apperrors.MapDBError(err); errors.As(mapped, &appErr) {
		return mapped
	}
	return apperrors.Internal(err)
}
