package crud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"tourbook/internal/query"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/httpx"
	"tourbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

// Fields a client can never set directly through the generic update paths.
var protectedFields = map[string]bool{
	"_id":       true,
	"id":        true,
	"createdAt": true,
}

// Handlers produces the five uniform operations for one resource type,
// bound at compile time. Resource-specific business rules (review gating,
// booking reconciliation) are layered on top by the domain packages.
type Handlers[T any] struct {
	store     Store[T]
	resource  string
	plural    string
	allow     query.Allowlists
	respond   *apperrors.Responder
	log       *logger.Logger
	validate  func(doc *T) error
	populate  func(ctx context.Context, doc *T) error
	scope     func(ps httprouter.Params) bson.M
	transform func(set bson.M) bson.M
}

type HandlerOption[T any] func(*Handlers[T])

// WithValidate runs on the create path before the insert.
func WithValidate[T any](fn func(doc *T) error) HandlerOption[T] {
	return func(h *Handlers[T]) { h.validate = fn }
}

// WithPopulate expands one reference field after a single-document fetch,
// as an explicit step rather than a store hook.
func WithPopulate[T any](fn func(ctx context.Context, doc *T) error) HandlerOption[T] {
	return func(h *Handlers[T]) { h.populate = fn }
}

// WithRouteScope narrows list queries from route parameters, e.g. reviews
// nested under /tours/id/:id.
func WithRouteScope[T any](fn func(ps httprouter.Params) bson.M) HandlerOption[T] {
	return func(h *Handlers[T]) { h.scope = fn }
}

// WithUpdateTransform rewrites the update set before it is applied, e.g. to
// regenerate a derived field when its source changes.
func WithUpdateTransform[T any](fn func(set bson.M) bson.M) HandlerOption[T] {
	return func(h *Handlers[T]) { h.transform = fn }
}

func NewHandlers[T any](
	store Store[T],
	resource, plural string,
	allow query.Allowlists,
	respond *apperrors.Responder,
	log *logger.Logger,
	opts ...HandlerOption[T],
) *Handlers[T] {
	h := &Handlers[T]{
		store:    store,
		resource: resource,
		plural:   plural,
		allow:    allow,
		respond:  respond,
		log:      log,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GetAll applies the shaping stages in order and returns the bounded result
// set with a count of returned items. An empty result is not an error.
func (h *Handlers[T]) GetAll(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	features := query.New(r.URL.Query(), h.allow).
		Filter().
		Sort().
		Select().
		Paginate()

	filter := features.FilterDoc()
	if h.scope != nil {
		for k, v := range h.scope(ps) {
			filter[k] = v
		}
	}

	docs, err := h.store.Find(r.Context(), filter, features.FindOptions())
	if err != nil {
		h.respond.Error(w, r, h.translate(err))
		return
	}

	httpx.WriteList(w, h.plural, docs, len(docs))
}

func (h *Handlers[T]) GetOne(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doc, err := h.store.FindByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.respond.Error(w, r, h.translate(err))
		return
	}

	if h.populate != nil {
		if err := h.populate(r.Context(), doc); err != nil {
			h.respond.Error(w, r, h.translate(err))
			return
		}
	}

	httpx.WriteSuccess(w, h.resource, doc)
}

func (h *Handlers[T]) CreateOne(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var doc T
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		h.respond.Error(w, r, apperrors.InvalidInput("Invalid request body"))
		return
	}

	if h.validate != nil {
		if err := h.validate(&doc); err != nil {
			h.respond.Error(w, r, apperrors.Validation("Invalid input data.", map[string]any{"error": err.Error()}))
			return
		}
	}

	if err := h.store.Insert(r.Context(), &doc); err != nil {
		h.respond.Error(w, r, h.translate(err))
		return
	}

	httpx.WriteCreated(w, h.resource, &doc)
}

// UpdateOne is a full $set update; the store's schema validation re-runs on
// the write.
func (h *Handlers[T]) UpdateOne(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	set, err := decodeUpdateBody(r)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	if h.transform != nil {
		set = h.transform(set)
	}

	doc, storeErr := h.store.UpdateByID(r.Context(), ps.ByName("id"), set)
	if storeErr != nil {
		h.respond.Error(w, r, h.translate(storeErr))
		return
	}

	httpx.WriteSuccess(w, h.resource, doc)
}

// UpdateSafe returns an update handler that rejects any field outside the
// allow-list, closing the privilege-escalation-by-field-injection hole
// (e.g. a self-update must not set role or password).
func (h *Handlers[T]) UpdateSafe(allowedFields ...string) httprouter.Handle {
	allowed := make(map[string]bool, len(allowedFields))
	for _, f := range allowedFields {
		allowed[f] = true
	}

	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		set, err := decodeUpdateBody(r)
		if err != nil {
			h.respond.Error(w, r, err)
			return
		}

		for field := range set {
			if !allowed[field] {
				h.respond.Error(w, r, apperrors.InvalidInput(
					fmt.Sprintf("You are not allowed to update %s", field)))
				return
			}
		}

		doc, storeErr := h.store.UpdateByID(r.Context(), ps.ByName("id"), set)
		if storeErr != nil {
			h.respond.Error(w, r, h.translate(storeErr))
			return
		}

		httpx.WriteSuccess(w, h.resource, doc)
	}
}

func (h *Handlers[T]) DeleteOne(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.store.DeleteByID(r.Context(), ps.ByName("id")); err != nil {
		h.respond.Error(w, r, h.translate(err))
		return
	}

	httpx.WriteNoContent(w)
}

func decodeUpdateBody(r *http.Request) (bson.M, *apperrors.AppError) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, apperrors.InvalidInput("Invalid request body")
	}
	if len(body) == 0 {
		return nil, apperrors.InvalidInput("Request body is required")
	}

	set := bson.M{}
	for k, v := range body {
		if protectedFields[k] {
			continue
		}
		set[k] = v
	}
	if len(set) == 0 {
		return nil, apperrors.InvalidInput("Request body is required")
	}

	return set, nil
}

func (h *Handlers[T]) translate(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperrors.NotFound(h.resource)
	case errors.Is(err, ErrInvalidID):
		return apperrors.InvalidInput(fmt.Sprintf("Invalid %s ID format", h.resource))
	default:
		return apperrors.FromMongo(err, h.resource)
	}
}
