package crud

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Document is implemented by every persisted model (pointer receiver).
// IDs are ObjectID hex strings stored as string _id values.
type Document interface {
	GetID() string
	SetID(id string)
	SetCreatedAt(t time.Time)
}

// Doc ties the pointer type *T to the Document interface so the store can
// allocate and stamp documents without runtime type assertions.
type Doc[T any] interface {
	*T
	Document
}

// Store is the persistence surface the generic handlers are built on.
type Store[T any] interface {
	Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*T, error)
	FindByID(ctx context.Context, id string) (*T, error)
	FindOne(ctx context.Context, filter bson.M) (*T, error)
	Insert(ctx context.Context, doc *T) error
	UpdateByID(ctx context.Context, id string, set bson.M) (*T, error)
	DeleteByID(ctx context.Context, id string) error
}

// MongoStore implements Store over a single collection. The scope document
// is merged into every read, update and delete filter: this is where
// formerly-hidden query rewrites (exclude secret tours, exclude inactive
// users) become an explicit, testable stage.
type MongoStore[T any, PT Doc[T]] struct {
	coll         *mongo.Collection
	scope        bson.M
	readTimeout  time.Duration
	writeTimeout time.Duration
}

type StoreOption func(*storeSettings)

type storeSettings struct {
	scope        bson.M
	readTimeout  time.Duration
	writeTimeout time.Duration
}

// WithScope merges the given predicate into every read/update/delete filter.
func WithScope(scope bson.M) StoreOption {
	return func(s *storeSettings) { s.scope = scope }
}

func WithTimeouts(read, write time.Duration) StoreOption {
	return func(s *storeSettings) {
		s.readTimeout = read
		s.writeTimeout = write
	}
}

func NewMongoStore[T any, PT Doc[T]](coll *mongo.Collection, opts ...StoreOption) *MongoStore[T, PT] {
	settings := &storeSettings{
		readTimeout:  15 * time.Second,
		writeTimeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(settings)
	}

	return &MongoStore[T, PT]{
		coll:         coll,
		scope:        settings.scope,
		readTimeout:  settings.readTimeout,
		writeTimeout: settings.writeTimeout,
	}
}

// Collection exposes the underlying collection for resource-specific
// operations (aggregations, conditional updates) layered on top of the
// generic store.
func (s *MongoStore[T, PT]) Collection() *mongo.Collection {
	return s.coll
}

// Scoped merges the store scope into a caller filter.
func (s *MongoStore[T, PT]) Scoped(filter bson.M) bson.M {
	if len(s.scope) == 0 {
		return filter
	}
	merged := bson.M{}
	for k, v := range s.scope {
		merged[k] = v
	}
	for k, v := range filter {
		merged[k] = v
	}
	return merged
}

// withTimeout respects transaction session contexts, which must not be
// wrapped.
func (s *MongoStore[T, PT]) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *MongoStore[T, PT]) Find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*T, error) {
	ctx, cancel := s.withTimeout(ctx, s.readTimeout)
	defer cancel()

	cursor, err := s.coll.Find(ctx, s.Scoped(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find failed: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []*T{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	return docs, nil
}

func (s *MongoStore[T, PT]) FindByID(ctx context.Context, id string) (*T, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, ErrInvalidID
	}
	return s.FindOne(ctx, bson.M{"_id": id})
}

func (s *MongoStore[T, PT]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	ctx, cancel := s.withTimeout(ctx, s.readTimeout)
	defer cancel()

	var doc T
	err := s.coll.FindOne(ctx, s.Scoped(filter)).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find one failed: %w", err)
	}

	return &doc, nil
}

func (s *MongoStore[T, PT]) Insert(ctx context.Context, doc *T) error {
	ctx, cancel := s.withTimeout(ctx, s.writeTimeout)
	defer cancel()

	d := PT(doc)
	if d.GetID() == "" {
		d.SetID(primitive.NewObjectID().Hex())
	}
	d.SetCreatedAt(time.Now().UTC().Truncate(time.Millisecond))

	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return err
	}

	return nil
}

// UpdateByID applies a $set update and returns the updated document. The
// store's schema validator re-runs on the write; a validation failure
// surfaces as a write error the caller translates.
func (s *MongoStore[T, PT]) UpdateByID(ctx context.Context, id string, set bson.M) (*T, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return nil, ErrInvalidID
	}

	ctx, cancel := s.withTimeout(ctx, s.writeTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc T
	err := s.coll.FindOneAndUpdate(ctx, s.Scoped(bson.M{"_id": id}), bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &doc, nil
}

func (s *MongoStore[T, PT]) DeleteByID(ctx context.Context, id string) error {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return ErrInvalidID
	}

	ctx, cancel := s.withTimeout(ctx, s.writeTimeout)
	defer cancel()

	result, err := s.coll.DeleteOne(ctx, s.Scoped(bson.M{"_id": id}))
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}

	return nil
}

// FindOneAndUpdate runs a conditional atomic update-and-return against an
// arbitrary filter. It returns ErrNotFound when the condition matched
// nothing, which callers use as their no-op signal.
func (s *MongoStore[T, PT]) FindOneAndUpdate(ctx context.Context, filter, update bson.M) (*T, error) {
	ctx, cancel := s.withTimeout(ctx, s.writeTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc T
	err := s.coll.FindOneAndUpdate(ctx, s.Scoped(filter), update, opts).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &doc, nil
}
