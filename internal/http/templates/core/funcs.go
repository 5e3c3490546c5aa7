package core

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"
)

// Deps holds the dependencies for constructing the core template func map.
type Deps struct {
	Template           **template.Template
	ContentTemplateFor func(string) string
}

// Funcs returns the helpers shared by every page template.
func Funcs(deps Deps) template.FuncMap {
	return template.FuncMap{
		"sectionTmpl":   deps.ContentTemplateFor,
		"renderSection": renderSection(deps),
		"timeTag":       TimeTag,
		"roleBadge":     RoleBadge,
		"initials":      Initials,
		"fieldError":    FieldError,
		"formatCount":   FormatCount,
	}
}

func renderSection(deps Deps) func(string, any) (template.HTML, error) {
	return func(page string, data any) (template.HTML, error) {
		if deps.Template == nil || *deps.Template == nil {
			return "", errors.New("template not initialized")
		}
		var buf bytes.Buffer
		if err := (*deps.Template).ExecuteTemplate(&buf, deps.ContentTemplateFor(page), data); err != nil {
			return "", err
		}
		// #nosec G203 - rendered by our own html/template set; values were escaped during ExecuteTemplate.
		return template.HTML(buf.String()), nil
	}
}

// TimeTag renders t as a <time> element with a machine-readable datetime.
func TimeTag(t time.Time) template.HTML {
	if t.IsZero() {
		return ""
	}
	// #nosec G203 - constructed from escaped values only
	return template.HTML(fmt.Sprintf(
		`<time datetime="%s" title="%s">%s</time>`,
		t.UTC().Format(time.RFC3339),
		template.HTMLEscapeString(t.UTC().Format(time.RFC1123)),
		template.HTMLEscapeString(t.UTC().Format("Jan 2, 2006")),
	))
}

// RoleBadge maps a role to its badge CSS class.
func RoleBadge(role any) string {
	switch fmt.Sprint(role) {
	case "admin":
		return "badge badge-admin"
	case "user":
		return "badge badge-user"
	default:
		return "badge"
	}
}

// Initials returns up to two uppercase initials of name.
func Initials(name string) string {
	var out []rune
	for _, part := range strings.Fields(name) {
		for _, r := range part {
			out = append(out, r)
			break
		}
		if len(out) == 2 {
			break
		}
	}
	return strings.ToUpper(string(out))
}

// FieldError looks up the message for field in a map of field errors.
func FieldError(errs map[string]string, field string) string {
	if errs == nil {
		return ""
	}
	return errs[field]
}

// FormatCount renders n with a singular or plural noun: "1 user", "3 users".
func FormatCount(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
