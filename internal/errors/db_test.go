package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapDBError_NilError(t *testing.T) {
	if err := MapDBError(nil); err != nil {
		t.Errorf("MapDBError(nil) = %v, want nil", err)
	}
}

func TestMapDBError_ContextErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout},
		{name: "canceled", err: context.Canceled, wantCode: ErrCodeCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.err)
			if GetCode(err) != tt.wantCode {
				t.Errorf("MapDBError() code = %v, want %v", GetCode(err), tt.wantCode)
			}
			if UserMessage(err) != MsgInternal {
				t.Errorf("timeouts must render as internal errors, got %q", UserMessage(err))
			}
		})
	}
}

func TestMapDBError_NoRows(t *testing.T) {
	if err := MapDBError(pgx.ErrNoRows); !IsNotFound(err) {
		t.Errorf("MapDBError(pgx.ErrNoRows) should be NotFound, got %v", GetCode(err))
	}
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	tests := []struct {
		name     string
		pgErr    *pgconn.PgError
		wantMsg  string
		wantFild string
	}{
		{
			name:     "email constraint",
			pgErr:    &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: EmailUniqueConstraint},
			wantMsg:  MsgDuplicateEmail,
			wantFild: "email",
		},
		{
			name: "email from detail",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.UniqueViolation,
				Detail: "Key (email)=(ann@x.com) already exists.",
			},
			wantMsg:  MsgDuplicateEmail,
			wantFild: "email",
		},
		{
			name:     "other column",
			pgErr:    &pgconn.PgError{Code: pgerrcode.UniqueViolation, ColumnName: "id"},
			wantMsg:  "This value already exists. Please choose a different one.",
			wantFild: "id",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(fmt.Errorf("insert: %w", tt.pgErr))
			if !IsConflict(err) {
				t.Fatalf("expected conflict, got %v", GetCode(err))
			}
			var appErr *AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected AppError")
			}
			if appErr.Message != tt.wantMsg || appErr.Field != tt.wantFild {
				t.Errorf("got (%q, %q), want (%q, %q)", appErr.Message, appErr.Field, tt.wantMsg, tt.wantFild)
			}
		})
	}
}

func TestMapDBError_CheckViolation(t *testing.T) {
	err := MapDBError(&pgconn.PgError{Code: pgerrcode.CheckViolation, ColumnName: "role"})
	if !IsValidation(err) || GetField(err) != "role" {
		t.Errorf("expected validation on role, got %v / %q", GetCode(err), GetField(err))
	}
}

func TestMapDBError_InvalidUUIDIsNotFound(t *testing.T) {
	err := MapDBError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation})
	if !IsNotFound(err) {
		t.Errorf("expected not found, got %v", GetCode(err))
	}
}

func TestMapDBError_UnknownPgError(t *testing.T) {
	err := MapDBError(&pgconn.PgError{Code: pgerrcode.DiskFull})
	if !IsInternal(err) {
		t.Errorf("expected internal, got %v", GetCode(err))
	}
}

func TestMapDBError_StandardError(t *testing.T) {
	orig := errors.New("plain")
	if got := MapDBError(orig); got != orig {
		t.Errorf("non-db errors should pass through unchanged")
	}
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: EmailUniqueConstraint}
	if !IsUniqueViolation(dup, EmailUniqueConstraint) || !IsUniqueViolation(dup, "") {
		t.Errorf("expected unique violation match")
	}
	if IsUniqueViolation(dup, "other_key") {
		t.Errorf("constraint name should be compared")
	}
	if IsUniqueViolation(errors.New("x"), "") {
		t.Errorf("plain errors are not unique violations")
	}
}
