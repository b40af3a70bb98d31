package reviews

import (
	"encoding/json"
	"net/http"

	"tourbook/internal/auth"
	"tourbook/internal/crud"
	"tourbook/internal/query"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/httpx"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

var allowlists = query.Allowlists{
	Sort:   []string{"rating", "createdAt"},
	Fields: []string{"review", "rating", "tour", "user", "createdAt"},
}

type Handler struct {
	crud    *crud.Handlers[model.Review]
	service *Service
	respond *apperrors.Responder
}

func NewHandler(repo *Repository, service *Service, respond *apperrors.Responder, log *logger.Logger) *Handler {
	return &Handler{
		crud: crud.NewHandlers(repo.Store(), "review", "reviews", allowlists, respond, log,
			crud.WithPopulate[model.Review](repo.PopulateAuthor),
			crud.WithRouteScope[model.Review](func(ps httprouter.Params) bson.M {
				if tourID := ps.ByName("id"); tourID != "" {
					return bson.M{"tour": tourID}
				}
				return nil
			}),
		),
		service: service,
		respond: respond,
	}
}

func (h *Handler) RegisterRoutes(router *httprouter.Router, mw *auth.Middleware) {
	reviewers := mw.RestrictTo(model.RoleUser)
	moderators := mw.RestrictTo(model.RoleUser, model.RoleAdmin)

	router.GET("/api/v1/reviews", mw.Protect(h.crud.GetAll))
	router.POST("/api/v1/reviews", mw.Protect(reviewers(h.Create)))
	router.GET("/api/v1/reviews/id/:id", mw.Protect(h.crud.GetOne))
	router.PATCH("/api/v1/reviews/id/:id", mw.Protect(moderators(h.Update)))
	router.DELETE("/api/v1/reviews/id/:id", mw.Protect(moderators(h.Delete)))

	// Nested under a tour: the tour reference comes from the path.
	router.GET("/api/v1/tours/id/:id/reviews", mw.Protect(h.crud.GetAll))
	router.POST("/api/v1/tours/id/:id/reviews", mw.Protect(reviewers(h.Create)))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user := auth.CurrentUser(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperrors.NotAuthenticated("You are not logged in! Please log in to get access."))
		return
	}

	var review model.Review
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		h.respond.Error(w, r, apperrors.InvalidInput("Invalid request body"))
		return
	}
	if tourID := ps.ByName("id"); tourID != "" {
		review.Tour = tourID
	}

	created, err := h.service.Create(r.Context(), user, &review)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	httpx.WriteCreated(w, "review", created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user := auth.CurrentUser(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperrors.NotAuthenticated("You are not logged in! Please log in to get access."))
		return
	}

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body) == 0 {
		h.respond.Error(w, r, apperrors.InvalidInput("Request body is required"))
		return
	}
	set := bson.M{}
	for k, v := range body {
		set[k] = v
	}

	updated, err := h.service.Update(r.Context(), user, ps.ByName("id"), set)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	httpx.WriteSuccess(w, "review", updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user := auth.CurrentUser(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperrors.NotAuthenticated("You are not logged in! Please log in to get access."))
		return
	}

	if err := h.service.Delete(r.Context(), user, ps.ByName("id")); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	httpx.WriteNoContent(w)
}
