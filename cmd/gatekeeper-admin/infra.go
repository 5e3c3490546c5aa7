package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/target/gatekeeper/internal/adapters/bcrypt"
	"github.com/target/gatekeeper/internal/bootstrap"
	"github.com/target/gatekeeper/internal/data"
	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	"github.com/target/gatekeeper/internal/service"
)

// userAdmin is the slice of AdminService the CLI drives.
type userAdmin interface {
	CreateUser(ctx context.Context, in service.CreateUserInput) (*domainauth.User, error)
	SetRoleByEmail(ctx context.Context, email string, role domainauth.Role) (service.RoleChange, error)
	ListUsers(ctx context.Context) ([]domainauth.User, error)
}

// connectFn opens the user store and returns a closer for it.
type connectFn func(cmdCtx *commandContext) (userAdmin, func() error, error)

// connectUsers connects to PostgreSQL. Redis is not needed: the CLI never
// touches sessions.
func connectUsers(cmdCtx *commandContext) (userAdmin, func() error, error) {
	db, err := bootstrap.ConnectDB(cmdCtx.Ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}
	admin, err := service.NewAdminService(service.AdminServiceOptions{
		Users:     data.NewUserRepo(db),
		Hasher:    bcrypt.NewHasher(cmdCtx.Config.Auth.BcryptCost),
		Telemetry: service.Telemetry{Logger: cmdCtx.Logger},
	})
	if err != nil {
		return nil, nil, errors.Join(err, db.Close())
	}
	return admin, db.Close, nil
}

// withUsers runs fn against an open user store and closes it afterwards.
func withUsers(cmdCtx *commandContext, fn func(userAdmin) error) error {
	admin, closeFn, err := cmdCtx.connect(cmdCtx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := closeFn(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()
	return fn(admin)
}

// promptPassword reads a password twice from a terminal, or one line from a
// pipe so scripts can provide it on stdin.
func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readPasswordLine(os.Stdin)
	}

	read := func(p string) (string, error) {
		if _, err := fmt.Fprint(os.Stderr, p); err != nil {
			return "", err
		}
		b, err := term.ReadPassword(fd)
		_, _ = fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	first, err := read(prompt)
	if err != nil {
		return "", err
	}
	second, err := read("Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

func readPasswordLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
