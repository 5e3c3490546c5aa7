package core

import (
	"context"
	"errors"

	domainauth "github.com/target/gatekeeper/internal/domain/auth"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// UserRepository is the credential store.
//
// FindByEmail and FindByID return ErrUserNotFound when nothing matches.
// Insert returns ErrDuplicateEmail when the email is already taken, including
// when a concurrent insert won the race after the caller's duplicate check.
// UpdateRole is idempotent and returns ErrUserNotFound for unknown ids.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domainauth.User, error)
	FindByID(ctx context.Context, id string) (*domainauth.User, error)
	Insert(ctx context.Context, u domainauth.NewUser) (*domainauth.User, error)
	UpdateRole(ctx context.Context, id string, role domainauth.Role) error
	List(ctx context.Context) ([]domainauth.User, error)
}

// RoleSource resolves the stored role of a user. The access gate uses it when
// live role revalidation is enabled.
type RoleSource interface {
	CurrentRole(ctx context.Context, userID string) (domainauth.Role, error)
}

// Sentinel errors returned by UserRepository implementations.
var (
	// ErrUserNotFound is returned when no user matches an email or id.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when inserting an email that already exists.
	ErrDuplicateEmail = errors.New("user email already exists")
)
