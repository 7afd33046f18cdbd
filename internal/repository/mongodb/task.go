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

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id"`
	UserID      string             `bson:"user_id"`
	Title       string             `bson:"title"`
	Description *string            `bson:"description"`
	Priority    string             `bson:"priority"`
	Deadline    string             `bson:"deadline"`
	Completed   bool               `bson:"completed"`
	LabelIDs    []string           `bson:"label_ids"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d taskDocument) model() *model.Task {
	return &model.Task{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Priority:    model.Priority(d.Priority),
		Deadline:    d.Deadline,
		Completed:   d.Completed,
		LabelIDs:    d.LabelIDs,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

// TaskRepository handles task documents. Label associations are embedded
// as an ordered array of label IDs.
type TaskRepository struct {
	coll *mongo.Collection
}

// Insert stores a new task and sets its ID.
func (r *TaskRepository) Insert(ctx context.Context, task *model.Task) error {
	doc := taskDocument{
		ID:          primitive.NewObjectID(),
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		Priority:    string(task.Priority),
		Deadline:    task.Deadline,
		Completed:   task.Completed,
		LabelIDs:    labelArray(task.LabelIDs),
		CreatedAt:   toDate(task.CreatedAt),
		UpdatedAt:   toDate(task.UpdatedAt),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	task.ID = doc.ID.Hex()
	return nil
}

// FindByID retrieves a task by ID regardless of owner.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var doc taskDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find task: %w", err)
	}

	task := doc.model()
	if err := repository.CheckTask(task); err != nil {
		return nil, err
	}
	return task, nil
}

// FindMany lists tasks matching filter in the requested order.
func (r *TaskRepository) FindMany(ctx context.Context, filter model.TaskFilter, sort model.TaskSort, limit int) ([]model.Task, error) {
	query, opts, err := taskQuery(filter, sort, limit)
	if err != nil {
		return nil, err
	}

	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("find tasks: %w", err)
	}

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(docs))
	for _, doc := range docs {
		task := doc.model()
		if err := repository.CheckTask(task); err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

// UpdateFields applies the non-nil fields of patch to the task.
func (r *TaskRepository) UpdateFields(ctx context.Context, id string, patch model.TaskPatch) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": taskSet(patch)}); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// Delete removes a task. It reports whether a task was removed.
func (r *TaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return result.DeletedCount > 0, nil
}

// DetachLabel pulls labelID from every task owned by userID.
func (r *TaskRepository) DetachLabel(ctx context.Context, userID, labelID string) error {
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"user_id": userID, "label_ids": labelID},
		bson.M{"$pull": bson.M{"label_ids": labelID}},
	)
	if err != nil {
		return fmt.Errorf("detach label: %w", err)
	}
	return nil
}

func taskQuery(filter model.TaskFilter, sort model.TaskSort, limit int) (bson.D, *options.FindOptions, error) {
	if filter.UserID == "" {
		return nil, nil, errors.New("task filter requires a user id")
	}

	query := bson.D{{Key: "user_id", Value: filter.UserID}}
	if filter.Completed != nil {
		query = append(query, bson.E{Key: "completed", Value: *filter.Completed})
	}
	if filter.LabelID != "" {
		query = append(query, bson.E{Key: "label_ids", Value: filter.LabelID})
	}

	field := "created_at"
	if sort.Field == model.SortByDeadline {
		field = "deadline"
	}
	direction := 1
	if sort.Descending {
		direction = -1
	}

	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: direction}, {Key: "_id", Value: direction}}).
		SetLimit(int64(limit))
	return query, opts, nil
}

func taskSet(patch model.TaskPatch) bson.D {
	set := bson.D{}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *patch.Description})
	}
	if patch.Priority != nil {
		set = append(set, bson.E{Key: "priority", Value: string(*patch.Priority)})
	}
	if patch.Deadline != nil {
		set = append(set, bson.E{Key: "deadline", Value: *patch.Deadline})
	}
	if patch.Completed != nil {
		set = append(set, bson.E{Key: "completed", Value: *patch.Completed})
	}
	if patch.LabelIDs != nil {
		set = append(set, bson.E{Key: "label_ids", Value: labelArray(*patch.LabelIDs)})
	}
	return append(set, bson.E{Key: "updated_at", Value: toDate(patch.UpdatedAt)})
}

// labelArray keeps label_ids an array so $pull always applies.
func labelArray(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
