//go:build tools

// Package tools documents development tool dependencies. They are run with
// `go run pkg@version` or installed with `go install` and are not tracked
// in go.mod.
package tools

// Air reloads the server on file changes when DEV=true:
//
//	go install github.com/air-verse/air@v1.63.0
//
// mockgen regenerates internal/mocks from the core and ports interfaces:
//
//	go generate ./internal/mocks
