package httpx

import (
	"bytes"
	"errors"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	corefuncs "github.com/target/gatekeeper/internal/http/templates/core"
)

// TemplateRenderer renders HTML pages: the layout wrapping one content
// template chosen by CurrentPage.
type TemplateRenderer struct {
	t      *template.Template
	fsys   fs.FS
	reload bool
	logger *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS        // Filesystem containing layout.tmpl and pages/*.tmpl (required)
	DevMode    bool         // Re-parse templates on every render
	Logger     *slog.Logger // Logger for template errors (optional)
}

// NewTemplateRenderer parses the template set from cfg.TemplateFS.
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := &TemplateRenderer{fsys: cfg.TemplateFS, reload: cfg.DevMode, logger: logger}
	t, err := r.parse()
	if err != nil {
		logger.Error("template parsing failed", slog.Any("error", err), slog.String("phase", "initialization"))
		return nil, err
	}
	r.t = t
	return r, nil
}

func (r *TemplateRenderer) parse() (*template.Template, error) {
	var t *template.Template
	funcs := corefuncs.Funcs(corefuncs.Deps{Template: &t, ContentTemplateFor: ContentTemplateFor})
	parsed, err := template.New("root").Funcs(funcs).ParseFS(r.fsys, "*.tmpl", "pages/*.tmpl")
	if err != nil {
		return nil, err
	}
	t = parsed
	return t, nil
}

// View describes one rendered response.
type View struct {
	Status int // defaults to 200
	Data   map[string]any
}

// Render writes the full page for v. Data["CurrentPage"] selects the content
// template. The page is rendered into a buffer first so a template failure
// never leaves a half-written response.
func (r *TemplateRenderer) Render(w http.ResponseWriter, _ *http.Request, v View) error {
	t := r.t
	if r.reload {
		fresh, err := r.parse()
		if err != nil {
			r.logTemplateError("layout", err)
			return err
		}
		t = fresh
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v.Data); err != nil {
		r.logTemplateError("layout", err)
		return err
	}

	status := v.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		r.logger.Error("failed to write rendered template", slog.Any("error", err))
		return err
	}
	return nil
}

func (r *TemplateRenderer) logTemplateError(templateName string, err error) {
	r.logger.Error("template execution failed",
		slog.String("template", templateName),
		slog.Any("error", err),
	)
}
