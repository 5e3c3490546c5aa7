package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{name: "message only", err: &AppError{Code: ErrCodeValidation, Message: "bad input"}, want: "bad input"},
		{
			name: "with cause",
			err:  &AppError{Code: ErrCodeInternal, Message: "boom", Cause: errors.New("db down")},
			want: "boom: db down",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root")
	err := Internal(cause)
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is should find the cause")
	}
}

func TestTaxonomyConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *AppError
		wantCode  ErrorCode
		wantMsg   string
		wantField string
	}{
		{"duplicate email", DuplicateEmail(nil), ErrCodeConflict, "User with that email already exists!", "email"},
		{"user not found", UserNotFound(), ErrCodeUserNotFound, "User not found", "email"},
		{"incorrect password", IncorrectPassword(), ErrCodeIncorrectPassword, MsgIncorrectPassword, "password"},
		{"forbidden", Forbidden(), ErrCodeForbidden, MsgForbidden, ""},
		{"unauthenticated", Unauthenticated(), ErrCodeUnauthenticated, MsgUnauthenticated, ""},
		{"validation field", ValidationField("name", "Name is required."), ErrCodeValidation, "Name is required.", "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.wantCode)
			}
			if tt.err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", tt.err.Message, tt.wantMsg)
			}
			if tt.err.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", tt.err.Field, tt.wantField)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("original")
	err := Wrap(cause, ErrCodeUnauthenticated, "Single sign-on failed.")
	if err.Code != ErrCodeUnauthenticated || err.Message != "Single sign-on failed." || !errors.Is(err, cause) {
		t.Errorf("unexpected wrap result: %+v", err)
	}
	if Wrap(nil, ErrCodeInternal, "x") != nil {
		t.Errorf("Wrap(nil) should return nil")
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("signup: %w", DuplicateEmail(nil))
	if !IsConflict(wrapped) {
		t.Errorf("IsConflict should unwrap")
	}
	if IsUserNotFound(wrapped) || IsIncorrectPassword(wrapped) || IsForbidden(wrapped) {
		t.Errorf("unexpected predicate match")
	}
	if !IsUserNotFound(fmt.Errorf("login: %w", UserNotFound())) {
		t.Errorf("IsUserNotFound should unwrap")
	}
	if !IsUnauthenticated(Unauthenticated()) || !IsInternal(Internal(nil)) || !IsValidation(Validation("x")) {
		t.Errorf("predicate mismatch")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(nil); got != "" {
		t.Errorf("GetCode(nil) = %q", got)
	}
	if got := GetCode(errors.New("plain")); got != ErrCodeInternal {
		t.Errorf("GetCode(plain) = %q, want internal", got)
	}
	if got := GetCode(Forbidden()); got != ErrCodeForbidden {
		t.Errorf("GetCode(Forbidden) = %q", got)
	}
}

func TestGetField(t *testing.T) {
	if got := GetField(ValidationField("email", "x")); got != "email" {
		t.Errorf("GetField = %q", got)
	}
	if got := GetField(errors.New("plain")); got != "" {
		t.Errorf("GetField(plain) = %q", got)
	}
}

func TestUserMessage_HidesInternals(t *testing.T) {
	if got := UserMessage(Internal(errors.New("pq: password authentication failed"))); got != MsgInternal {
		t.Errorf("UserMessage(internal) = %q", got)
	}
	if got := UserMessage(errors.New("raw driver error")); got != MsgInternal {
		t.Errorf("UserMessage(raw) = %q", got)
	}
	if got := UserMessage(DuplicateEmail(nil)); got != MsgDuplicateEmail {
		t.Errorf("UserMessage(dup) = %q", got)
	}
}
