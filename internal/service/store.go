package service

import (
	"context"

	"github.com/peachytask/peachytask-go/internal/model"
)

// UserStore persists user accounts. Implemented by the SQL and MongoDB
// repositories.
type UserStore interface {
	Insert(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// TaskStore persists tasks.
type TaskStore interface {
	Insert(ctx context.Context, task *model.Task) error
	FindByID(ctx context.Context, id string) (*model.Task, error)
	FindMany(ctx context.Context, filter model.TaskFilter, sort model.TaskSort, limit int) ([]model.Task, error)
	UpdateFields(ctx context.Context, id string, patch model.TaskPatch) error
	Delete(ctx context.Context, id string) (bool, error)
	DetachLabel(ctx context.Context, userID, labelID string) error
}

// LabelStore persists labels.
type LabelStore interface {
	Insert(ctx context.Context, label *model.Label) error
	FindByID(ctx context.Context, id string) (*model.Label, error)
	FindByName(ctx context.Context, userID, nameNormalized string) (*model.Label, error)
	FindMany(ctx context.Context, filter model.LabelFilter, limit int) ([]model.Label, error)
	UpdateFields(ctx context.Context, id string, patch model.LabelPatch) error
	Delete(ctx context.Context, id string) (bool, error)
}
