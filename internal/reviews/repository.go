package reviews

import (
	"context"
	"fmt"

	"tourbook/internal/crud"
	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository spans three collections: reviews themselves, bookings for the
// reviewed-only-if-booked gate, and tours for the rating aggregates.
type Repository struct {
	store    *crud.MongoStore[model.Review, *model.Review]
	users    *crud.MongoStore[model.User, *model.User]
	tours    *mongo.Collection
	bookings *mongo.Collection
}

func NewRepository(reviewsColl, usersColl, toursColl, bookingsColl *mongo.Collection) *Repository {
	return &Repository{
		store:    crud.NewMongoStore[model.Review, *model.Review](reviewsColl),
		users:    crud.NewMongoStore[model.User, *model.User](usersColl, crud.WithScope(bson.M{"active": true})),
		tours:    toursColl,
		bookings: bookingsColl,
	}
}

func (r *Repository) Store() *crud.MongoStore[model.Review, *model.Review] {
	return r.store
}

func (r *Repository) FindByID(ctx context.Context, id string) (*model.Review, error) {
	return r.store.FindByID(ctx, id)
}

func (r *Repository) Insert(ctx context.Context, review *model.Review) error {
	return r.store.Insert(ctx, review)
}

func (r *Repository) UpdateByID(ctx context.Context, id string, set bson.M) (*model.Review, error) {
	return r.store.UpdateByID(ctx, id, set)
}

func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	return r.store.DeleteByID(ctx, id)
}

// PopulateAuthor resolves the review's user reference. A deactivated author
// simply stays unpopulated.
func (r *Repository) PopulateAuthor(ctx context.Context, review *model.Review) error {
	author, err := r.users.FindByID(ctx, review.User)
	if err != nil {
		if err == crud.ErrNotFound {
			return nil
		}
		return fmt.Errorf("populate author: %w", err)
	}
	review.Author = author
	return nil
}

// HasBooking reports whether the user has ever booked the tour.
func (r *Repository) HasBooking(ctx context.Context, userID, tourID string) (bool, error) {
	count, err := r.bookings.CountDocuments(ctx, bson.M{"user": userID, "tour": tourID})
	if err != nil {
		return false, fmt.Errorf("check booking: %w", err)
	}
	return count > 0, nil
}

type ratingAggregate struct {
	NRating   int     `bson:"nRating"`
	AvgRating float64 `bson:"avgRating"`
}

// RecalcTourRatings recomputes the tour's rating aggregate from its reviews
// and writes it onto the tour. When the last review disappears the tour
// returns to zero reviews and the seed average. Runs inside the same
// transaction as the review write, so readers never see the aggregate drift
// from the reviews.
func (r *Repository) RecalcTourRatings(ctx context.Context, tourID string) error {
	cursor, err := r.store.Collection().Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tour": tourID}}},
		{{Key: "$group", Value: bson.M{
			"_id":       "$tour",
			"nRating":   bson.M{"$sum": 1},
			"avgRating": bson.M{"$avg": "$rating"},
		}}},
	})
	if err != nil {
		return fmt.Errorf("aggregate ratings: %w", err)
	}
	defer cursor.Close(ctx)

	results := []ratingAggregate{}
	if err := cursor.All(ctx, &results); err != nil {
		return fmt.Errorf("decode rating aggregate: %w", err)
	}

	quantity, average := 0, model.DefaultRatingsAverage
	if len(results) > 0 {
		quantity, average = results[0].NRating, results[0].AvgRating
	}

	_, err = r.tours.UpdateOne(ctx,
		bson.M{"_id": tourID},
		bson.M{"$set": bson.M{
			"ratingsQuantity": quantity,
			"ratingsAverage":  average,
		}},
	)
	if err != nil {
		return fmt.Errorf("write tour ratings: %w", err)
	}
	return nil
}
