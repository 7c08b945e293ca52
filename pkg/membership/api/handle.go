package api

import (
	"net/http"

	"github.com/ggicci/httpin"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/jinzhu/copier"

	"github.com/tendant/simple-membership/pkg/membership"
	"github.com/tendant/simple-membership/pkg/notification"
)

// Handle handles HTTP requests for membership management
type Handle struct {
	service  *membership.MembershipService
	notifier notification.Notifier
}

// NewHandle creates a new membership handler
func NewHandle(service *membership.MembershipService, notifier notification.Notifier) *Handle {
	if notifier == nil {
		notifier = notification.NoopNotifier{}
	}
	return &Handle{
		service:  service,
		notifier: notifier,
	}
}

// RegisterRoutes registers the membership routes
func (h *Handle) RegisterRoutes(r chi.Router) {
	r.Route("/api/roles", func(r chi.Router) {
		r.Get("/", h.ListRoles)
		r.With(httpin.NewInput(CreateRoleInput{})).Post("/", h.CreateRole)
		r.Delete("/{name}", h.DeleteRole)
		r.Get("/{name}/users", h.ListRoleUsers)
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.With(httpin.NewInput(CreateUserInput{})).Post("/", h.CreateUser)
		r.Get("/{email}", h.GetUser)
		r.Delete("/{email}", h.DeleteUser)
		r.Get("/{email}/roles", h.ListUserRoles)
		r.With(httpin.NewInput(AssignRoleInput{})).Post("/{email}/roles", h.AssignRoles)
		r.Delete("/{email}/roles/{name}", h.UnassignRole)
		r.Put("/{email}/password", h.ChangePassword)
		r.Post("/{email}/password/reset", h.ResetPassword)
	})

	r.Post("/api/signin", h.SignIn)
}

// writeErr maps service errors onto HTTP status codes: validation
// rejections are client errors, everything else is a store fault.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	if membership.IsRejection(err) {
		switch err {
		case membership.ErrRoleNotFound, membership.ErrUserNotFound:
			status = http.StatusNotFound
		case membership.ErrRoleExists, membership.ErrEmailExists,
			membership.ErrAlreadyInRole, membership.ErrRoleInUse:
			status = http.StatusConflict
		default:
			status = http.StatusBadRequest
		}
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

// ListRoles handles GET /api/roles
func (h *Handle) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.GetAllRoles(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	render.JSON(w, r, roles)
}

// CreateRole handles POST /api/roles, accepting a single name or a batch
func (h *Handle) CreateRole(w http.ResponseWriter, r *http.Request) {
	input := r.Context().Value(httpin.Input).(*CreateRoleInput)
	payload := input.Payload

	var err error
	switch {
	case len(payload.Names) > 0:
		err = h.service.AddRoles(r.Context(), payload.Names)
	default:
		err = h.service.AddRole(r.Context(), payload.Name)
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, map[string]string{"status": "created"})
}

// DeleteRole handles DELETE /api/roles/{name}
func (h *Handle) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveRole(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeErr(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// ListRoleUsers handles GET /api/roles/{name}/users
func (h *Handle) ListRoleUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetAllUsersInRole(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	render.JSON(w, r, users)
}

// ListUsers handles GET /api/users
func (h *Handle) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.GetAllUsers(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	render.JSON(w, r, users)
}

// CreateUser handles POST /api/users. When no password is supplied the
// account is created with the default initial password and the user is
// notified to reset it.
func (h *Handle) CreateUser(w http.ResponseWriter, r *http.Request) {
	input := r.Context().Value(httpin.Input).(*CreateUserInput)
	payload := input.Payload

	params := membership.AddUserParams{}
	copier.Copy(&params, payload)

	user, err := h.service.AddUser(r.Context(), params)
	if err != nil {
		writeErr(w, r, err)
		return
	}

	if payload.Password == "" {
		notice := notification.InitialPasswordNotice(user.Email, membership.DefaultInitialPassword)
		if err := h.notifier.Send(notice); err != nil {
			// Account creation already succeeded; the notice is best effort
			render.Status(r, http.StatusCreated)
			render.JSON(w, r, user)
			return
		}
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, user)
}

// GetUser handles GET /api/users/{email}
func (h *Handle) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if user == nil {
		writeErr(w, r, membership.ErrUserNotFound)
		return
	}
	render.JSON(w, r, user)
}

// DeleteUser handles DELETE /api/users/{email}
func (h *Handle) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveUserByEmail(r.Context(), chi.URLParam(r, "email")); err != nil {
		writeErr(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// ListUserRoles handles GET /api/users/{email}/roles
func (h *Handle) ListUserRoles(w http.ResponseWriter, r *http.Request) {
	user, _ := h.lookupUser(w, r)
	if user == nil {
		return
	}

	roles, err := h.service.GetRolesForUser(r.Context(), user)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	render.JSON(w, r, roles)
}

// AssignRoles handles POST /api/users/{email}/roles
func (h *Handle) AssignRoles(w http.ResponseWriter, r *http.Request) {
	user, _ := h.lookupUser(w, r)
	if user == nil {
		return
	}

	input := r.Context().Value(httpin.Input).(*AssignRoleInput)
	payload := input.Payload

	var err error
	if len(payload.Roles) == 1 {
		err = h.service.AddUserToRole(r.Context(), user, payload.Roles[0])
	} else {
		err = h.service.AddUserToRoles(r.Context(), user, payload.Roles)
	}
	if err != nil {
		writeErr(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// UnassignRole handles DELETE /api/users/{email}/roles/{name}
func (h *Handle) UnassignRole(w http.ResponseWriter, r *http.Request) {
	user, _ := h.lookupUser(w, r)
	if user == nil {
		return
	}

	if err := h.service.RemoveUserFromRole(r.Context(), user, chi.URLParam(r, "name")); err != nil {
		writeErr(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// ChangePassword handles PUT /api/users/{email}/password
func (h *Handle) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, _ := h.lookupUser(w, r)
	if user == nil {
		return
	}

	var payload PasswordChangeRequest
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.service.ChangePassword(r.Context(), user, payload.OldPassword, payload.NewPassword); err != nil {
		writeErr(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// ResetPassword handles POST /api/users/{email}/password/reset
func (h *Handle) ResetPassword(w http.ResponseWriter, r *http.Request) {
	user, _ := h.lookupUser(w, r)
	if user == nil {
		return
	}

	var payload PasswordResetRequest
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.service.ResetPassword(r.Context(), user, payload.Answer, payload.NewPassword); err != nil {
		writeErr(w, r, err)
		return
	}
	render.NoContent(w, r)
}

// SignIn handles POST /api/signin
func (h *Handle) SignIn(w http.ResponseWriter, r *http.Request) {
	var payload SignInRequest
	if err := render.DecodeJSON(r.Body, &payload); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.service.SignInByEmail(r.Context(), payload.Email, payload.Password); err != nil {
		writeErr(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": "signed in"})
}

func (h *Handle) lookupUser(w http.ResponseWriter, r *http.Request) (*membership.User, error) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeErr(w, r, err)
		return nil, err
	}
	if user == nil {
		writeErr(w, r, membership.ErrUserNotFound)
		return nil, membership.ErrUserNotFound
	}
	return user, nil
}
