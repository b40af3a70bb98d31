package auth

import (
	"context"
	"fmt"
	"time"

	"tourbook/internal/crud"
	"tourbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository is the credential-aware view of the users collection. All reads
// are scoped to active accounts; deactivated users authenticate as if they no
// longer exist.
type Repository struct {
	store *crud.MongoStore[model.User, *model.User]
}

func NewRepository(coll *mongo.Collection) *Repository {
	return &Repository{
		store: crud.NewMongoStore[model.User, *model.User](coll, crud.WithScope(bson.M{"active": true})),
	}
}

func (r *Repository) FindByID(ctx context.Context, id string) (*model.User, error) {
	return r.store.FindByID(ctx, id)
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.store.FindOne(ctx, bson.M{"email": email})
}

func (r *Repository) Create(ctx context.Context, user *model.User) error {
	return r.store.Insert(ctx, user)
}

// UpdatePassword stores a new hash and stamps passwordChangedAt one second in
// the past, so a token signed in the same instant as the change still reads as
// issued after it. Any pending reset token is cleared.
func (r *Repository) UpdatePassword(ctx context.Context, id, hash string) error {
	result, err := r.store.Collection().UpdateOne(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{
			"$set": bson.M{
				"password":          hash,
				"passwordChangedAt": time.Now().UTC().Add(-time.Second),
			},
			"$unset": bson.M{
				"passwordResetToken":   "",
				"passwordResetExpires": "",
			},
		},
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if result.MatchedCount == 0 {
		return crud.ErrNotFound
	}
	return nil
}

// SetResetToken attaches a hashed reset token with an expiry window to the
// account matching the email, returning the user it matched.
func (r *Repository) SetResetToken(ctx context.Context, email, hashedToken string, expires time.Time) (*model.User, error) {
	return r.store.FindOneAndUpdate(ctx,
		bson.M{"email": email},
		bson.M{"$set": bson.M{
			"passwordResetToken":   hashedToken,
			"passwordResetExpires": expires,
		}},
	)
}

// ClearResetToken removes a pending reset token, used when the notification
// dispatch fails after the token was written.
func (r *Repository) ClearResetToken(ctx context.Context, id string) error {
	_, err := r.store.Collection().UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$unset": bson.M{
			"passwordResetToken":   "",
			"passwordResetExpires": "",
		}},
	)
	return err
}

// FindByResetToken resolves the account holding an unexpired reset token.
func (r *Repository) FindByResetToken(ctx context.Context, hashedToken string) (*model.User, error) {
	return r.store.FindOne(ctx, bson.M{
		"passwordResetToken":   hashedToken,
		"passwordResetExpires": bson.M{"$gt": time.Now().UTC()},
	})
}
