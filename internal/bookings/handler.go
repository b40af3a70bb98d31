package bookings

import (
	"io"
	"net/http"

	"tourbook/internal/auth"
	"tourbook/internal/crud"
	"tourbook/internal/payments"
	"tourbook/internal/query"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/httpx"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// maxWebhookBody bounds the raw payload read for signature verification.
const maxWebhookBody = 1 << 20

var allowlists = query.Allowlists{
	Sort:   []string{"price", "createdAt", "startDate"},
	Fields: []string{"tour", "user", "price", "paid", "startDate", "createdAt"},
}

type Handler struct {
	crud     *crud.Handlers[model.Booking]
	repo     *Repository
	service  *Service
	provider payments.Provider
	respond  *apperrors.Responder
	log      *logger.Logger
}

func NewHandler(repo *Repository, service *Service, provider payments.Provider, respond *apperrors.Responder, log *logger.Logger) *Handler {
	return &Handler{
		crud:     crud.NewHandlers(repo.Store(), "booking", "bookings", allowlists, respond, log),
		repo:     repo,
		service:  service,
		provider: provider,
		respond:  respond,
		log:      log,
	}
}

// RegisterRoutes wires everything except the webhook, which the application
// mounts outside the JSON middleware chain.
func (h *Handler) RegisterRoutes(router *httprouter.Router, mw *auth.Middleware) {
	manage := mw.RestrictTo(model.RoleAdmin, model.RoleLeadGuide)

	router.GET("/api/v1/bookings", mw.Protect(manage(h.crud.GetAll)))
	router.POST("/api/v1/bookings", mw.Protect(manage(h.crud.CreateOne)))
	router.GET("/api/v1/bookings/id/:id", mw.Protect(manage(h.crud.GetOne)))
	router.PATCH("/api/v1/bookings/id/:id", mw.Protect(manage(h.crud.UpdateOne)))
	router.DELETE("/api/v1/bookings/id/:id", mw.Protect(manage(h.crud.DeleteOne)))

	router.GET("/api/v1/bookings/my-bookings", mw.Protect(h.MyBookings))
	router.GET("/api/v1/bookings/checkout-session/:id", mw.Protect(h.CheckoutSession))
}

// CheckoutSession starts a payment for the tour in the path and the departure
// date in the query.
func (h *Handler) CheckoutSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	user := auth.CurrentUser(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperrors.NotAuthenticated("You are not logged in! Please log in to get access."))
		return
	}

	startDate := r.URL.Query().Get("date")
	if startDate == "" {
		h.respond.Error(w, r, apperrors.InvalidInput("Please provide a departure date"))
		return
	}

	baseURL := requestScheme(r) + "://" + r.Host
	session, err := h.service.CreateCheckoutSession(r.Context(), user, ps.ByName("id"), startDate, baseURL)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	httpx.WriteSuccess(w, "session", session)
}

func (h *Handler) MyBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	user := auth.CurrentUser(r.Context())
	if user == nil {
		h.respond.Error(w, r, apperrors.NotAuthenticated("You are not logged in! Please log in to get access."))
		return
	}

	bookings, err := h.repo.Store().Find(r.Context(), bson.M{"user": user.ID}, nil)
	if err != nil {
		h.respond.Error(w, r, apperrors.FromMongo(err, "booking"))
		return
	}

	httpx.WriteList(w, "bookings", bookings, len(bookings))
}

// Webhook verifies the provider signature over the raw body, then reconciles.
// Only a signature failure produces a non-2xx response; a reconciliation
// no-op or failure still returns 200, because a provider retry cannot fix it.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.respond.Error(w, r, apperrors.InvalidInput("Failed to read request body"))
		return
	}

	event, verifyErr := h.provider.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if verifyErr != nil {
		h.respond.Error(w, r, verifyErr)
		return
	}

	if err := h.service.HandleEvent(r.Context(), event); err != nil {
		h.log.Error("Webhook reconciliation failed",
			"event_id", event.ID, "event_type", event.Type, "error", err)
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func requestScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
