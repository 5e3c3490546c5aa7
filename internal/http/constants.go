package httpx

// CurrentPage constants identify pages in templates and navigation.
const (
	PageHome      = "home"
	PageSignup    = "signup"
	PageLogin     = "login"
	PageMembers   = "members"
	PageAdmin     = "admin"
	PageForbidden = "forbidden"
	PageNotFound  = "notfound"
	PageError     = "error"
)

// Routes referenced from more than one handler.
const (
	PathHome    = "/"
	PathSignup  = "/signup"
	PathLogin   = "/login"
	PathLogout  = "/logout"
	PathMembers = "/members"
	PathAdmin   = "/admin"
)

// Template paths used for loading templates from disk in dev mode and tests.
const (
	TemplatePathFromRoot = "web/templates"       // From project root
	TemplatePathFromTest = "../../web/templates" // From internal/http test files
	StaticPathFromRoot   = "web/static"
)

//nolint:gochecknoglobals // static read-only lookup for templates
var contentTemplates = map[string]string{
	PageHome:      "home-content",
	PageSignup:    "signup-content",
	PageLogin:     "login-content",
	PageMembers:   "members-content",
	PageAdmin:     "admin-content",
	PageForbidden: "forbidden-content",
	PageNotFound:  "notfound-content",
	PageError:     "error-content",
}

// ContentTemplateMap returns the mapping from CurrentPage to template name.
func ContentTemplateMap() map[string]string { return contentTemplates }

// ContentTemplateFor returns the content template for the given CurrentPage.
// Falls back to home-content for unknown pages.
func ContentTemplateFor(currentPage string) string {
	if name, ok := ContentTemplateMap()[currentPage]; ok {
		return name
	}
	return "home-content"
}
