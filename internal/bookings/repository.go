package bookings

import (
	"context"
	"fmt"
	"time"

	"tourbook/internal/crud"
	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository covers bookings plus the collections reconciliation touches:
// tours for the seat counter, users for email resolution, and the webhook
// dedup records.
type Repository struct {
	store  *crud.MongoStore[model.Booking, *model.Booking]
	tours  *crud.MongoStore[model.Tour, *model.Tour]
	users  *crud.MongoStore[model.User, *model.User]
	events *mongo.Collection
}

func NewRepository(bookingsColl, toursColl, usersColl, eventsColl *mongo.Collection) *Repository {
	return &Repository{
		store: crud.NewMongoStore[model.Booking, *model.Booking](bookingsColl),
		// Reconciliation must see secret tours too: a paid checkout settles
		// regardless of tour visibility.
		tours:  crud.NewMongoStore[model.Tour, *model.Tour](toursColl),
		users:  crud.NewMongoStore[model.User, *model.User](usersColl, crud.WithScope(bson.M{"active": true})),
		events: eventsColl,
	}
}

func (r *Repository) Store() *crud.MongoStore[model.Booking, *model.Booking] {
	return r.store
}

func (r *Repository) FindTour(ctx context.Context, id string) (*model.Tour, error) {
	return r.tours.FindByID(ctx, id)
}

// FindVisibleTour is the checkout-side lookup. Secret tours cannot be bought
// through the public flow; only the webhook settles against them unscoped.
func (r *Repository) FindVisibleTour(ctx context.Context, id string) (*model.Tour, error) {
	return r.tours.FindOne(ctx, bson.M{"_id": id, "secretTour": false})
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.users.FindOne(ctx, bson.M{"email": email})
}

func (r *Repository) CreateBooking(ctx context.Context, booking *model.Booking) error {
	return r.store.Insert(ctx, booking)
}

// RecordEvent inserts the dedup record for a webhook event. A redelivery
// fails the insert with a duplicate key; the caller treats that as "already
// processed".
func (r *Repository) RecordEvent(ctx context.Context, eventID, eventType string) error {
	_, err := r.events.InsertOne(ctx, model.WebhookEvent{
		ID:         eventID,
		Type:       eventType,
		ReceivedAt: time.Now().UTC(),
	})
	return err
}

// ReserveSeat atomically claims one seat on the given departure. The filter
// and increment run as one operation: the date must exist, not be sold out,
// and hold fewer participants than the tour's group size. No matching
// document means no seat was taken.
func (r *Repository) ReserveSeat(ctx context.Context, tourID, date string, maxGroupSize int) (*model.Tour, error) {
	return r.tours.FindOneAndUpdate(ctx,
		bson.M{
			"_id": tourID,
			"startDates": bson.M{"$elemMatch": bson.M{
				"date":         date,
				"soldOut":      false,
				"participants": bson.M{"$lt": maxGroupSize},
			}},
		},
		bson.M{"$inc": bson.M{"startDates.$.participants": 1}},
	)
}

// MarkDateSoldOut flags the departure once it reached capacity. Best effort:
// the atomic condition in ReserveSeat is what actually prevents overbooking.
func (r *Repository) MarkDateSoldOut(ctx context.Context, tourID, date string, maxGroupSize int) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := r.tours.Collection().UpdateOne(ctx,
		bson.M{
			"_id": tourID,
			"startDates": bson.M{"$elemMatch": bson.M{
				"date":         date,
				"participants": bson.M{"$gte": maxGroupSize},
			}},
		},
		bson.M{"$set": bson.M{"startDates.$.soldOut": true}},
	)
	if err != nil {
		return fmt.Errorf("mark date sold out: %w", err)
	}
	return nil
}
