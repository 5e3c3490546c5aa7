package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/target/gatekeeper/internal/core"
	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	apperrors "github.com/target/gatekeeper/internal/errors"
)

const userColumns = `id::text AS id, name, email, password_hash, role, created_at, updated_at`

// UserRepo stores users in PostgreSQL.
type UserRepo struct {
	DB *sql.DB
}

var (
	_ core.UserRepository = (*UserRepo)(nil)
	_ core.RoleSource     = (*UserRepo)(nil)
)

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

func mapUserWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	if apperrors.IsUniqueViolation(err, apperrors.EmailUniqueConstraint) {
		return ErrDuplicateEmail
	}
	return err
}

// queryUsers runs query on a native pgx connection borrowed from the
// database/sql pool and maps rows onto domainauth.User by column name.
func (r *UserRepo) queryUsers(ctx context.Context, query string, args ...any) ([]domainauth.User, error) {
	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() { _ = conn.Close() }()

	var users []domainauth.User
	err = conn.Raw(func(dc any) error {
		std, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("users: driver connection is not pgx")
		}
		rows, qerr := std.Conn().Query(ctx, query, args...)
		if qerr != nil {
			return qerr
		}
		users, qerr = pgx.CollectRows(rows, pgx.RowToStructByName[domainauth.User])
		return qerr
	})
	return users, err
}

// queryUser is queryUsers for statements that match at most one row.
func (r *UserRepo) queryUser(ctx context.Context, query string, args ...any) (*domainauth.User, error) {
	users, err := r.queryUsers(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return &users[0], nil
}

// FindByEmail looks a user up by exact email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domainauth.User, error) {
	u, err := r.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, err
}

// FindByID looks a user up by id. Ids that are not UUIDs cannot exist.
func (r *UserRepo) FindByID(ctx context.Context, id string) (*domainauth.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}
	u, err := r.queryUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uid.String())
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return u, err
}

// Insert creates a user. The unique index on email is the arbiter for
// concurrent signups; a violation maps to ErrDuplicateEmail.
func (r *UserRepo) Insert(ctx context.Context, nu domainauth.NewUser) (*domainauth.User, error) {
	role := nu.Role
	if role == "" {
		role = domainauth.RoleUser
	}
	if !role.Valid() {
		return nil, fmt.Errorf("insert user: invalid role %q", role)
	}

	u, err := r.queryUser(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		nu.Name, nu.Email, nu.PasswordHash, string(role),
	)
	if err != nil {
		if mapped := mapUserWriteErr(err); errors.Is(mapped, ErrDuplicateEmail) {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// UpdateRole sets the role of a user. Setting the current role again succeeds.
func (r *UserRepo) UpdateRole(ctx context.Context, id string, role domainauth.Role) error {
	if !role.Valid() {
		return fmt.Errorf("update role: invalid role %q", role)
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrUserNotFound
	}

	res, err := r.DB.ExecContext(ctx, `
		UPDATE users
		SET role = $2,
		    updated_at = CASE WHEN role = $2 THEN updated_at ELSE now() END
		WHERE id = $1`, uid.String(), string(role))
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update role rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// List returns every user in insertion order.
func (r *UserRepo) List(ctx context.Context) ([]domainauth.User, error) {
	users, err := r.queryUsers(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CurrentRole returns the stored role for userID.
func (r *UserRepo) CurrentRole(ctx context.Context, userID string) (domainauth.Role, error) {
	u, err := r.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}
