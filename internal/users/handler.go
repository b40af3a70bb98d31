package users

import (
	"net/http"

	"tourbook/internal/auth"
	"tourbook/internal/crud"
	"tourbook/internal/query"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/httpx"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

var allowlists = query.Allowlists{
	Sort:   []string{"name", "email", "role", "createdAt"},
	Fields: []string{"name", "email", "photo", "role", "createdAt"},
}

// selfUpdatableFields is everything a user may change about their own
// account outside the password flow.
var selfUpdatableFields = []string{"name", "email", "photo"}

type Handler struct {
	crud    *crud.Handlers[model.User]
	repo    *Repository
	respond *apperrors.Responder
}

func NewHandler(repo *Repository, respond *apperrors.Responder, log *logger.Logger) *Handler {
	return &Handler{
		crud:    crud.NewHandlers(repo.Store(), "user", "users", allowlists, respond, log),
		repo:    repo,
		respond: respond,
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router, mw *auth.Middleware) {
	admin := mw.RestrictTo(model.RoleAdmin)

	router.GET("/api/v1/users", mw.Protect(admin(h.crud.GetAll)))
	router.POST("/api/v1/users", h.CreateNotDefined)
	router.GET("/api/v1/users/id/:id", mw.Protect(admin(h.crud.GetOne)))
	router.PATCH("/api/v1/users/id/:id", mw.Protect(admin(h.crud.UpdateOne)))
	router.DELETE("/api/v1/users/id/:id", mw.Protect(admin(h.crud.DeleteOne)))

	router.GET("/api/v1/users/me", mw.Protect(h.GetMe))
	router.PATCH("/api/v1/users/updateMe", mw.Protect(h.UpdateMe))
	router.DELETE("/api/v1/users/deleteMe", mw.Protect(h.DeleteMe))
}

func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user := auth.CurrentUser(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperrors.NotAuthenticated("You are not logged in! Please log in to get access."))
		return
	}
	httpx.WriteSuccess(w, "user", user)
}

// UpdateMe is the allow-listed self-update: only profile fields pass, so a
// request cannot smuggle a role or password change through this route.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user := auth.CurrentUser(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperrors.NotAuthenticated("You are not logged in! Please log in to get access."))
		return
	}

	update := h.crud.UpdateSafe(selfUpdatableFields...)
	update(w, r, httprouter.Params{{Key: "id", Value: user.ID}})
}

func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user := auth.CurrentUser(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperrors.NotAuthenticated("You are not logged in! Please log in to get access."))
		return
	}

	if err := h.repo.Deactivate(r.Context(), user.ID); err != nil {
		h.respond.Error(w, r, apperrors.Internal("Failed to deactivate account", err))
		return
	}
	httpx.WriteNoContent(w)
}

// CreateNotDefined points clients at the signup flow; accounts are never
// created through the admin surface.
func (h *Handler) CreateNotDefined(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	h.respond.Error(w, r, apperrors.InvalidInput("This route is not defined! Please use /signup instead"))
}
