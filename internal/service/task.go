package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peachytask/peachytask-go/internal/model"
	"github.com/peachytask/peachytask-go/internal/repository"
)

const (
	DefaultTaskLimit = 50
	MaxTaskLimit     = 500
)

// TaskListOptions narrows a task listing. The owner is never part of it.
type TaskListOptions struct {
	Limit     *int
	Completed *bool
	LabelID   string
	Sort      string
}

// TaskService handles task business logic scoped to the calling user.
type TaskService struct {
	tasks  TaskStore
	labels LabelStore
	now    func() time.Time
}

// NewTaskService creates a new TaskService. A nil now uses time.Now.
func NewTaskService(tasks TaskStore, labels LabelStore, now func() time.Time) *TaskService {
	if now == nil {
		now = time.Now
	}
	return &TaskService{tasks: tasks, labels: labels, now: now}
}

// Create stores a new task owned by userID.
func (s *TaskService) Create(ctx context.Context, userID string, req model.CreateTaskRequest) (model.TaskResponse, error) {
	title, err := validateTitle(req.Title)
	if err != nil {
		return model.TaskResponse{}, err
	}
	if err := validateDescription(req.Description); err != nil {
		return model.TaskResponse{}, err
	}
	if err := validatePriority(req.Priority); err != nil {
		return model.TaskResponse{}, err
	}
	if err := validateDeadline(req.Deadline); err != nil {
		return model.TaskResponse{}, err
	}
	labelIDs, err := s.ownedLabels(ctx, userID, req.LabelIDs)
	if err != nil {
		return model.TaskResponse{}, err
	}

	now := s.now().UTC()
	task := &model.Task{
		UserID:      userID,
		Title:       title,
		Description: req.Description,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
		LabelIDs:    labelIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Insert(ctx, task); err != nil {
		return model.TaskResponse{}, fmt.Errorf("create task: %w", err)
	}

	return task.Response(), nil
}

// List returns the caller's tasks narrowed by opts.
func (s *TaskService) List(ctx context.Context, userID string, opts TaskListOptions) ([]model.TaskResponse, error) {
	limit := DefaultTaskLimit
	if opts.Limit != nil {
		limit = *opts.Limit
		if limit < 1 || limit > MaxTaskLimit {
			return nil, invalid("limit", "must be between 1 and 500")
		}
	}

	sort, err := ParseTaskSort(opts.Sort)
	if err != nil {
		return nil, err
	}

	filter := model.TaskFilter{
		UserID:    userID,
		Completed: opts.Completed,
		LabelID:   opts.LabelID,
	}
	tasks, err := s.tasks.FindMany(ctx, filter, sort, limit)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	return tasksToResponse(tasks), nil
}

// Get returns a task owned by userID.
func (s *TaskService) Get(ctx context.Context, userID, id string) (model.TaskResponse, error) {
	task, err := fetchOwned(ctx, userID, id, s.tasks.FindByID, taskOwner)
	if err != nil {
		return model.TaskResponse{}, err
	}
	return task.Response(), nil
}

// Update applies a partial update to a task owned by userID.
func (s *TaskService) Update(ctx context.Context, userID, id string, req model.UpdateTaskRequest) (model.TaskResponse, error) {
	task, err := fetchOwned(ctx, userID, id, s.tasks.FindByID, taskOwner)
	if err != nil {
		return model.TaskResponse{}, err
	}

	patch := model.TaskPatch{
		Description: req.Description,
		Priority:    req.Priority,
		Deadline:    req.Deadline,
		Completed:   req.Completed,
	}
	if req.Title != nil {
		title, err := validateTitle(*req.Title)
		if err != nil {
			return model.TaskResponse{}, err
		}
		patch.Title = &title
	}
	if err := validateDescription(req.Description); err != nil {
		return model.TaskResponse{}, err
	}
	if req.Priority != nil {
		if err := validatePriority(*req.Priority); err != nil {
			return model.TaskResponse{}, err
		}
	}
	if req.Deadline != nil {
		if err := validateDeadline(*req.Deadline); err != nil {
			return model.TaskResponse{}, err
		}
	}
	if req.LabelIDs != nil {
		labelIDs, err := s.ownedLabels(ctx, userID, *req.LabelIDs)
		if err != nil {
			return model.TaskResponse{}, err
		}
		patch.LabelIDs = &labelIDs
	}

	if isEmptyTaskPatch(patch) {
		return task.Response(), nil
	}
	patch.UpdatedAt = s.now().UTC()

	if err := s.tasks.UpdateFields(ctx, task.ID, patch); err != nil {
		return model.TaskResponse{}, fmt.Errorf("update task: %w", err)
	}

	updated, err := s.tasks.FindByID(ctx, task.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.TaskResponse{}, ErrNotFound
		}
		return model.TaskResponse{}, err
	}
	return updated.Response(), nil
}

// Delete removes a task owned by userID.
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	task, err := fetchOwned(ctx, userID, id, s.tasks.FindByID, taskOwner)
	if err != nil {
		return err
	}

	deleted, err := s.tasks.Delete(ctx, task.ID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

// ownedLabels deduplicates ids, keeping first occurrence order, and checks
// that every label belongs to userID.
func (s *TaskService) ownedLabels(ctx context.Context, userID string, ids []string) ([]string, error) {
	if len(ids) > maxLabelsPerTask {
		return nil, invalid("label_ids", "too many labels")
	}

	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		label, err := s.labels.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrInvalidID) {
				return nil, invalid("label_ids", fmt.Sprintf("unknown label %q", id))
			}
			return nil, fmt.Errorf("lookup label: %w", err)
		}
		if label.UserID != userID {
			return nil, invalid("label_ids", fmt.Sprintf("unknown label %q", id))
		}
		out = append(out, id)
	}
	return out, nil
}

// ParseTaskSort parses created_at, -created_at, deadline or -deadline.
// An empty string means newest first.
func ParseTaskSort(s string) (model.TaskSort, error) {
	switch s {
	case "", "-created_at":
		return model.TaskSort{Field: model.SortByCreatedAt, Descending: true}, nil
	case "created_at":
		return model.TaskSort{Field: model.SortByCreatedAt}, nil
	case "deadline":
		return model.TaskSort{Field: model.SortByDeadline}, nil
	case "-deadline":
		return model.TaskSort{Field: model.SortByDeadline, Descending: true}, nil
	}
	return model.TaskSort{}, invalid("sort", "must be one of created_at, -created_at, deadline, -deadline")
}

func isEmptyTaskPatch(p model.TaskPatch) bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Deadline == nil && p.Completed == nil && p.LabelIDs == nil
}

func tasksToResponse(tasks []model.Task) []model.TaskResponse {
	result := make([]model.TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = t.Response()
	}
	return result
}
