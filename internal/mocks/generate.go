// Package mocks provides mock implementations of gatekeeper's ports for tests.
//
// The mocks are generated with go.uber.org/mock (gomock) from go:generate directives below
// and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	mockRepo := mocks.NewMockUserRepository(ctrl)
//	mockRepo.EXPECT().FindByEmail(gomock.Any(), "ann@x.com").Return(nil, data.ErrUserNotFound)
package mocks

// Credential store: FindByEmail, FindByID, Insert, UpdateRole, List, Count
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=user_repository_mock.go github.com/target/gatekeeper/internal/core UserRepository

// Live role lookup used when role revalidation is enabled: CurrentRole
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=role_source_mock.go github.com/target/gatekeeper/internal/core RoleSource

// Password hashing: Hash, Verify
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=password_hasher_mock.go github.com/target/gatekeeper/internal/ports PasswordHasher

// Session persistence: Save, Get, Delete
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=session_store_mock.go github.com/target/gatekeeper/internal/ports SessionStore
