package httpx

import (
	"net/http"

	apperrors "github.com/target/gatekeeper/internal/errors"
)

// StatusForError maps an error to the HTTP status of its taxonomy.
func StatusForError(err error) int {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodeConflict:
		return http.StatusConflict
	case apperrors.ErrCodeUserNotFound, apperrors.ErrCodeIncorrectPassword, apperrors.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// FormContext identifies the form a recoverable error is rendered on.
// Values are echoed back into the inputs; passwords are never included.
type FormContext struct {
	Meta   PageMeta
	Values map[string]string
	Data   map[string]any
}

// ErrorOpts contains all options needed to render an error response.
type ErrorOpts struct {
	W    http.ResponseWriter
	R    *http.Request
	Err  error
	Form *FormContext // nil when there is no form to re-render
}

// RenderError is the single mapping from the error taxonomy to a response,
// used by every handler:
//   - validation, conflict and credential errors re-render Form inline;
//   - unauthenticated redirects to the login page;
//   - forbidden and not found render their dedicated pages;
//   - everything else is logged and rendered as the generic 500 page.
func (h *UIHandlers) RenderError(opts ErrorOpts) {
	w, r, err := opts.W, opts.R, opts.Err
	if err == nil {
		return
	}

	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeUnauthenticated:
		if opts.Form == nil {
			redirect(w, r, PathLogin)
			return
		}
		h.renderForm(opts)
	case apperrors.ErrCodeForbidden:
		h.Forbidden(w, r)
	case apperrors.ErrCodeNotFound:
		h.NotFound(w, r)
	case apperrors.ErrCodeValidation, apperrors.ErrCodeConflict,
		apperrors.ErrCodeUserNotFound, apperrors.ErrCodeIncorrectPassword:
		if opts.Form == nil {
			h.InternalError(w, r, err)
			return
		}
		h.renderForm(opts)
	default:
		h.InternalError(w, r, err)
	}
}

func (h *UIHandlers) renderForm(opts ErrorOpts) {
	msg := apperrors.UserMessage(opts.Err)
	var fieldErrors map[string]string
	if field := apperrors.GetField(opts.Err); field != "" {
		fieldErrors = map[string]string{field: msg}
	}
	data := make(map[string]any, len(opts.Form.Data)+1)
	for k, v := range opts.Form.Data {
		data[k] = v
	}
	data["Form"] = opts.Form.Values
	h.renderPage(opts.W, opts.R, pageOpts{
		Meta:        opts.Form.Meta,
		Status:      StatusForError(opts.Err),
		Data:        data,
		FieldErrors: fieldErrors,
		Error:       msg,
	})
}
