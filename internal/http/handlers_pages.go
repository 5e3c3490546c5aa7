package httpx

import (
	"context"
	"net/http"

	domainauth "github.com/target/gatekeeper/internal/domain/auth"
	"github.com/target/gatekeeper/internal/service"
)

// Home renders the landing page, with the session identity when present.
// GET /.
func (h *UIHandlers) Home(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"SSOEnabled": h.Auth != nil && h.Auth.SSOEnabled()}
	if sess := GetSessionFromContext(r.Context()); sess != nil {
		data["Landing"] = sess.Role.LandingPath()
	}
	h.renderPage(w, r, pageOpts{Meta: PageMeta{CurrentPage: PageHome}, Data: data})
}

// Members renders the page for any signed-in user.
// GET /members, GET /user.
func (h *UIHandlers) Members(w http.ResponseWriter, r *http.Request) {
	sess := GetSessionFromContext(r.Context())
	if sess == nil {
		redirect(w, r, PathLogin)
		return
	}
	h.renderPage(w, r, pageOpts{
		Meta: PageMeta{Title: "Members", CurrentPage: PageMembers},
		Data: map[string]any{"Session": sess},
	})
}

// AdminDashboard lists every user with promote and demote actions.
// GET /admin.
func (h *UIHandlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.Admin.ListUsers(r.Context())
	if err != nil {
		h.RenderError(ErrorOpts{W: w, R: r, Err: err})
		return
	}
	actorID := ""
	if sess := GetSessionFromContext(r.Context()); sess != nil {
		actorID = sess.UserID
	}
	h.renderPage(w, r, pageOpts{
		Meta: PageMeta{Title: "Admin", CurrentPage: PageAdmin},
		Data: map[string]any{"Users": users, "ActorID": actorID},
	})
}

// Promote grants the admin role to the user in the path.
// GET|POST /promote/{id}.
func (h *UIHandlers) Promote(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.Admin.Promote)
}

// Demote sets the user in the path back to the user role. Admins cannot
// demote themselves.
// GET|POST /demote/{id}.
func (h *UIHandlers) Demote(w http.ResponseWriter, r *http.Request) {
	h.changeRole(w, r, h.Admin.Demote)
}

type roleChangeFunc func(ctx context.Context, actor domainauth.Session, targetID string) (service.RoleChange, error)

func (h *UIHandlers) changeRole(w http.ResponseWriter, r *http.Request, change roleChangeFunc) {
	actor := GetSessionFromContext(r.Context())
	if actor == nil {
		redirect(w, r, PathLogin)
		return
	}
	res, err := change(r.Context(), *actor, r.PathValue("id"))
	if err != nil {
		h.RenderError(ErrorOpts{W: w, R: r, Err: err})
		return
	}
	h.Flash.Add(w, r, roleChangeMessage(res))
	redirect(w, r, PathAdmin)
}

func roleChangeMessage(res service.RoleChange) string {
	switch res.Outcome {
	case service.OutcomeSelfDemotionRefused:
		return "You cannot demote yourself."
	case service.OutcomeUnchanged:
		return res.User.Name + " is already " + string(res.User.Role) + "."
	default:
		if res.User.IsAdmin() {
			return res.User.Name + " was promoted to admin."
		}
		return res.User.Name + " was demoted to user."
	}
}
