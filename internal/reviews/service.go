package reviews

import (
	"context"
	"errors"

	"tourbook/internal/crud"
	dbmongo "tourbook/pkg/db/mongo"
	apperrors "tourbook/pkg/errors"
	"tourbook/pkg/model"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var validate = validator.New()

// Fields a review update may touch. The tour and user references are fixed
// at creation.
var updatableFields = map[string]bool{
	"review": true,
	"rating": true,
}

// Store is the persistence surface the review flows need.
type Store interface {
	FindByID(ctx context.Context, id string) (*model.Review, error)
	Insert(ctx context.Context, review *model.Review) error
	UpdateByID(ctx context.Context, id string, set bson.M) (*model.Review, error)
	DeleteByID(ctx context.Context, id string) error
	HasBooking(ctx context.Context, userID, tourID string) (bool, error)
	RecalcTourRatings(ctx context.Context, tourID string) error
}

type Service struct {
	store Store
	tx    dbmongo.TransactionManager
}

func NewService(store Store, tx dbmongo.TransactionManager) *Service {
	return &Service{store: store, tx: tx}
}

// Create gates the write on a prior booking, then inserts the review and
// recomputes the tour's rating aggregate in one transaction. The author is
// always the authenticated user, never a body field.
func (s *Service) Create(ctx context.Context, user *model.User, review *model.Review) (*model.Review, error) {
	review.User = user.ID

	if err := validate.Struct(review); err != nil {
		return nil, apperrors.Validation("Invalid input data.", map[string]any{"error": err.Error()})
	}

	booked, err := s.store.HasBooking(ctx, user.ID, review.Tour)
	if err != nil {
		return nil, apperrors.Internal("Failed to verify booking", err)
	}
	if !booked {
		return nil, apperrors.Forbidden("You can only review tours you have booked")
	}

	txErr := s.tx.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.store.Insert(sessCtx, review); err != nil {
			return err
		}
		return s.store.RecalcTourRatings(sessCtx, review.Tour)
	})
	if txErr != nil {
		return nil, apperrors.FromMongo(txErr, "review")
	}

	return review, nil
}

// Update modifies the review text or rating and keeps the tour aggregate in
// step. Non-admins may only touch their own reviews.
func (s *Service) Update(ctx context.Context, user *model.User, id string, set bson.M) (*model.Review, error) {
	existing, err := s.findOwned(ctx, user, id)
	if err != nil {
		return nil, err
	}

	for field := range set {
		if !updatableFields[field] {
			return nil, apperrors.InvalidInput("You are not allowed to update " + field)
		}
	}

	var updated *model.Review
	txErr := s.tx.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		doc, err := s.store.UpdateByID(sessCtx, id, set)
		if err != nil {
			return err
		}
		updated = doc
		return s.store.RecalcTourRatings(sessCtx, existing.Tour)
	})
	if txErr != nil {
		return nil, s.translate(txErr)
	}

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, user *model.User, id string) error {
	existing, err := s.findOwned(ctx, user, id)
	if err != nil {
		return err
	}

	txErr := s.tx.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if err := s.store.DeleteByID(sessCtx, id); err != nil {
			return err
		}
		return s.store.RecalcTourRatings(sessCtx, existing.Tour)
	})
	if txErr != nil {
		return s.translate(txErr)
	}

	return nil
}

func (s *Service) findOwned(ctx context.Context, user *model.User, id string) (*model.Review, error) {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err)
	}
	if user.Role != model.RoleAdmin && existing.User != user.ID {
		return nil, apperrors.Forbidden("You can only modify your own reviews")
	}
	return existing, nil
}

func (s *Service) translate(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, crud.ErrNotFound):
		return apperrors.NotFound("review")
	case errors.Is(err, crud.ErrInvalidID):
		return apperrors.InvalidInput("Invalid review ID format")
	default:
		return apperrors.FromMongo(err, "review")
	}
}
