package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/peachytask/peachytask-go/internal/model"
	"github.com/peachytask/peachytask-go/internal/repository"
)

type labelDocument struct {
	ID             primitive.ObjectID `bson:"_id"`
	UserID         string             `bson:"user_id"`
	Name           string             `bson:"name"`
	NameNormalized string             `bson:"name_normalized"`
	Color          *string            `bson:"color"`
	CreatedAt      time.Time          `bson:"created_at"`
}

func (d labelDocument) model() *model.Label {
	return &model.Label{
		ID:             d.ID.Hex(),
		UserID:         d.UserID,
		Name:           d.Name,
		NameNormalized: d.NameNormalized,
		Color:          d.Color,
		CreatedAt:      d.CreatedAt.UTC(),
	}
}

// LabelRepository handles label documents.
type LabelRepository struct {
	coll *mongo.Collection
}

// Insert stores a new label and sets its ID. A name already used by the
// same owner yields repository.ErrDuplicate.
func (r *LabelRepository) Insert(ctx context.Context, label *model.Label) error {
	doc := labelDocument{
		ID:             primitive.NewObjectID(),
		UserID:         label.UserID,
		Name:           label.Name,
		NameNormalized: label.NameNormalized,
		Color:          label.Color,
		CreatedAt:      toDate(label.CreatedAt),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert label: %w", err)
	}

	label.ID = doc.ID.Hex()
	return nil
}

// FindByID retrieves a label by ID regardless of owner.
func (r *LabelRepository) FindByID(ctx context.Context, id string) (*model.Label, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

// FindByName retrieves the label of userID with the given normalized name.
func (r *LabelRepository) FindByName(ctx context.Context, userID, nameNormalized string) (*model.Label, error) {
	return r.findOne(ctx, bson.M{"user_id": userID, "name_normalized": nameNormalized})
}

// FindMany lists the labels matching filter, oldest first.
func (r *LabelRepository) FindMany(ctx context.Context, filter model.LabelFilter, limit int) ([]model.Label, error) {
	if filter.UserID == "" {
		return nil, errors.New("label filter requires a user id")
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))
	cursor, err := r.coll.Find(ctx, bson.M{"user_id": filter.UserID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find labels: %w", err)
	}

	var docs []labelDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}

	labels := make([]model.Label, 0, len(docs))
	for _, doc := range docs {
		label := doc.model()
		if err := repository.CheckLabel(label); err != nil {
			return nil, err
		}
		labels = append(labels, *label)
	}
	return labels, nil
}

// UpdateFields applies the non-nil fields of patch to the label.
func (r *LabelRepository) UpdateFields(ctx context.Context, id string, patch model.LabelPatch) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	set := labelSet(patch)
	if len(set) == 0 {
		return nil
	}

	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("update label: %w", err)
	}
	return nil
}

// Delete removes a label. It reports whether a label was removed.
func (r *LabelRepository) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete label: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *LabelRepository) findOne(ctx context.Context, filter bson.M) (*model.Label, error) {
	var doc labelDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find label: %w", err)
	}

	label := doc.model()
	if err := repository.CheckLabel(label); err != nil {
		return nil, err
	}
	return label, nil
}

func labelSet(patch model.LabelPatch) bson.D {
	set := bson.D{}
	if patch.Name != nil {
		set = append(set, bson.E{Key: "name", Value: *patch.Name})
	}
	if patch.NameNormalized != nil {
		set = append(set, bson.E{Key: "name_normalized", Value: *patch.NameNormalized})
	}
	if patch.Color != nil {
		set = append(set, bson.E{Key: "color", Value: *patch.Color})
	}
	return set
}
