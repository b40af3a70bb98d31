package users

import (
	"context"
	"fmt"

	"tourbook/internal/crud"
	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository is the account-management view of the users collection.
// Deactivated accounts are invisible to every read: deactivation behaves like
// deletion everywhere except in the database itself.
type Repository struct {
	store *crud.MongoStore[model.User, *model.User]
}

func NewRepository(coll *mongo.Collection) *Repository {
	return &Repository{
		store: crud.NewMongoStore[model.User, *model.User](coll, crud.WithScope(bson.M{"active": true})),
	}
}

func (r *Repository) Store() *crud.MongoStore[model.User, *model.User] {
	return r.store
}

// Deactivate soft-deletes an account. The raw flag write bypasses the active
// scope on purpose: deactivating twice is a no-op, not an error.
func (r *Repository) Deactivate(ctx context.Context, id string) error {
	_, err := r.store.Collection().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"active": false}},
	)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return nil
}
