package data

import "github.com/target/gatekeeper/internal/core"

// Sentinel errors for the users repository. They alias the port-level
// sentinels so callers outside the data layer can match without importing it.
var (
	ErrUserNotFound   = core.ErrUserNotFound
	ErrDuplicateEmail = core.ErrDuplicateEmail
)
