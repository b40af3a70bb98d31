package tours

import (
	"net/http"
	"strconv"
	"strings"

	"tourbook/internal/auth"
	"tourbook/internal/crud"
	"tourbook/internal/query"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/httpx"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	"github.com/gosimple/slug"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

var allowlists = query.Allowlists{
	Sort: []string{
		"name", "price", "duration", "maxGroupSize", "difficulty",
		"ratingsAverage", "ratingsQuantity", "createdAt",
	},
	Fields: []string{
		"name", "slug", "duration", "maxGroupSize", "difficulty",
		"ratingsAverage", "ratingsQuantity", "price", "priceDiscount",
		"summary", "description", "imageCover", "images", "startDates",
		"startLocation", "locations", "guides", "createdAt",
	},
}

type Handler struct {
	crud    *crud.Handlers[model.Tour]
	repo    *Repository
	respond *apperrors.Responder
}

func NewHandler(repo *Repository, respond *apperrors.Responder, log *logger.Logger) *Handler {
	return &Handler{
		crud: crud.NewHandlers(repo.Store(), "tour", "tours", allowlists, respond, log,
			crud.WithValidate(prepare),
			crud.WithPopulate[model.Tour](repo.PopulateGuides),
			crud.WithUpdateTransform[model.Tour](regenerateSlug),
		),
		repo:    repo,
		respond: respond,
	}
}

// regenerateSlug keeps the slug in step when an update renames the tour.
func regenerateSlug(set bson.M) bson.M {
	if name, ok := set["name"].(string); ok {
		set["slug"] = slug.Make(name)
	}
	return set
}

func (h *Handler) RegisterRoutes(router *httprouter.Router, mw *auth.Middleware) {
	manage := mw.RestrictTo(model.RoleAdmin, model.RoleLeadGuide)

	// Public reads run under soft auth: a logged-in browser gets its user on
	// the context for personalization, anonymous requests pass untouched.
	router.GET("/api/v1/tours", mw.SoftAuth(h.crud.GetAll))
	router.POST("/api/v1/tours", mw.Protect(manage(h.crud.CreateOne)))
	router.GET("/api/v1/tours/id/:id", mw.SoftAuth(h.crud.GetOne))
	router.PATCH("/api/v1/tours/id/:id", mw.Protect(manage(h.crud.UpdateOne)))
	router.DELETE("/api/v1/tours/id/:id", mw.Protect(manage(h.crud.DeleteOne)))

	router.GET("/api/v1/tours/top-5-cheap", mw.SoftAuth(h.TopCheap))
	router.GET("/api/v1/tours/stats", h.Stats)
	router.GET("/api/v1/tours/monthly-plan/:year",
		mw.Protect(mw.RestrictTo(model.RoleAdmin, model.RoleLeadGuide, model.RoleGuide)(h.MonthlyPlan)))
	router.GET("/api/v1/tours/within/:distance/center/:latlng/unit/:unit", h.Within)
	router.GET("/api/v1/tours/distances/:latlng/unit/:unit", h.Distances)
}

// TopCheap is an alias route: it pins the shaping parameters and delegates to
// the regular list handler.
func (h *Handler) TopCheap(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	q := r.URL.Query()
	q.Set("limit", "5")
	q.Set("sort", "-ratingsAverage,price")
	q.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	r.URL.RawQuery = q.Encode()

	h.crud.GetAll(w, r, ps)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		h.respond.Error(w, r, apperrors.Internal("Failed to compute tour statistics", err))
		return
	}
	httpx.WriteSuccess(w, "stats", stats)
}

func (h *Handler) MonthlyPlan(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	year, err := strconv.Atoi(ps.ByName("year"))
	if err != nil || year < 1 {
		h.respond.Error(w, r, apperrors.InvalidInput("Please provide a valid year"))
		return
	}

	plan, planErr := h.repo.MonthlyPlan(r.Context(), year)
	if planErr != nil {
		h.respond.Error(w, r, apperrors.Internal("Failed to compute monthly plan", planErr))
		return
	}
	httpx.WriteSuccess(w, "plan", plan)
}

func (h *Handler) Within(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	distance, err := strconv.ParseFloat(ps.ByName("distance"), 64)
	if err != nil || distance <= 0 {
		h.respond.Error(w, r, apperrors.InvalidInput("Please provide a valid distance"))
		return
	}
	lat, lng, coordErr := parseLatLng(ps.ByName("latlng"))
	if coordErr != nil {
		h.respond.Error(w, r, coordErr)
		return
	}

	toursWithin, findErr := h.repo.Within(r.Context(), distance, lat, lng, ps.ByName("unit"))
	if findErr != nil {
		h.respond.Error(w, r, apperrors.Internal("Failed to search tours by location", findErr))
		return
	}
	httpx.WriteList(w, "tours", toursWithin, len(toursWithin))
}

func (h *Handler) Distances(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	lat, lng, coordErr := parseLatLng(ps.ByName("latlng"))
	if coordErr != nil {
		h.respond.Error(w, r, coordErr)
		return
	}

	distances, err := h.repo.Distances(r.Context(), lat, lng, ps.ByName("unit"))
	if err != nil {
		h.respond.Error(w, r, apperrors.Internal("Failed to compute tour distances", err))
		return
	}
	httpx.WriteSuccess(w, "distances", distances)
}

func parseLatLng(latlng string) (lat, lng float64, err *apperrors.AppError) {
	invalid := apperrors.InvalidInput("Please provide latitude and longitude in the format lat,lng.")

	parts := strings.Split(latlng, ",")
	if len(parts) != 2 {
		return 0, 0, invalid
	}
	lat, latErr := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, lngErr := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if latErr != nil || lngErr != nil {
		return 0, 0, invalid
	}
	return lat, lng, nil
}
