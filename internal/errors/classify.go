package errors

import (
	"context"
	"errors"
	"reflect"
	"strings"
)

// Classify returns a short, stable label for err suitable for log and
// metric tags. AppErrors report their code, context errors their kind, and
// anything else the type name of the innermost wrapped error
// (e.g. "pgconn_pgerror").
func Classify(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != ErrCodeInternal {
		return string(appErr.Code)
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return string(ErrCodeTimeout)
	case errors.Is(err, context.Canceled):
		return string(ErrCodeCanceled)
	}

	for {
		next := errors.Unwrap(err)
		if next == nil {
			break
		}
		err = next
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ReplaceAll(strings.ToLower(t.String()), ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
