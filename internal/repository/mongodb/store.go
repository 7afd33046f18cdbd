// Package mongodb stores users, tasks and labels as MongoDB documents.
// It mirrors the method sets of the SQL repositories so services can run
// on either backend.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/peachytask/peachytask-go/internal/repository"
)

const (
	usersCollection  = "users"
	tasksCollection  = "tasks"
	labelsCollection = "labels"
)

// Store bundles the document-backed repositories over one client.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	Users  *UserRepository
	Tasks  *TaskRepository
	Labels *LabelRepository
}

// Open connects to uri, verifies the connection and ensures indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		db:     db,
		Users:  &UserRepository{coll: db.Collection(usersCollection)},
		Tasks:  &TaskRepository{coll: db.Collection(tasksCollection)},
		Labels: &LabelRepository{coll: db.Collection(labelsCollection)},
	}

	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the unique and lookup indexes. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		tasksCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "completed", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "deadline", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "label_ids", Value: 1}}},
		},
		labelsCollection: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "name_normalized", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

// Ping checks connectivity to the primary.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, repository.ErrInvalidID
	}
	return oid, nil
}

// BSON datetimes carry milliseconds; truncate so round trips compare equal.
func toDate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}
