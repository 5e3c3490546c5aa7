package httpx

import (
	"net/http"

	domainauth "github.com/target/gatekeeper/internal/domain/auth"
)

// PageMeta contains metadata for page rendering.
type PageMeta struct {
	Title       string
	CurrentPage string
}

// LayoutUser is the identity shown in the navigation bar.
type LayoutUser struct {
	Name  string
	Email string
	Role  string
}

// TemplateDataBuilder provides a fluent API for building template data maps.
type TemplateDataBuilder struct {
	data map[string]any
}

// NewTemplateData creates a builder initialized with the layout fields every
// page needs: title, current page, CSRF token and session identity.
func NewTemplateData(r *http.Request, meta PageMeta) *TemplateDataBuilder {
	return &TemplateDataBuilder{data: basePageData(r, meta)}
}

// WithError sets a general error message.
func (b *TemplateDataBuilder) WithError(msg string) *TemplateDataBuilder {
	b.data["Error"] = true
	b.data["ErrorMessage"] = msg
	return b
}

// WithFieldErrors adds field-level validation errors.
func (b *TemplateDataBuilder) WithFieldErrors(errs map[string]string) *TemplateDataBuilder {
	if len(errs) > 0 {
		b.data["Errors"] = errs
	}
	return b
}

// WithFlashes adds one-shot messages queued by a previous request.
func (b *TemplateDataBuilder) WithFlashes(msgs []string) *TemplateDataBuilder {
	if len(msgs) > 0 {
		b.data["Flashes"] = msgs
	}
	return b
}

// With adds a custom field to the template data.
func (b *TemplateDataBuilder) With(key string, value any) *TemplateDataBuilder {
	b.data[key] = value
	return b
}

// Build returns the final template data map.
func (b *TemplateDataBuilder) Build() map[string]any {
	return b.data
}

func basePageData(r *http.Request, meta PageMeta) map[string]any {
	title := meta.Title
	if title == "" {
		title = "Gatekeeper"
	} else {
		title += " - Gatekeeper"
	}
	data := map[string]any{
		"Title":           title,
		"PageTitle":       meta.Title,
		"CurrentPage":     meta.CurrentPage,
		"IsAuthenticated": false,
		"IsAdmin":         false,
		"Errors":          map[string]string{},
	}
	if token := GetCSRFToken(r); token != "" {
		data["CSRFToken"] = token
	}
	if sess := GetSessionFromContext(r.Context()); sess != nil && sess.Authenticated {
		data["IsAuthenticated"] = true
		data["IsAdmin"] = sess.Role == domainauth.RoleAdmin
		data["User"] = &LayoutUser{Name: sess.Name, Email: sess.Email, Role: string(sess.Role)}
	}
	return data
}
