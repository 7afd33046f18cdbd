package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peachytask/peachytask-go/internal/model"
	"github.com/peachytask/peachytask-go/internal/normalize"
	"github.com/peachytask/peachytask-go/internal/repository"
)

const (
	DefaultLabelLimit = 100
	MaxLabelLimit     = 500
)

// LabelService handles label business logic scoped to the calling user.
type LabelService struct {
	labels LabelStore
	tasks  TaskStore
	now    func() time.Time
}

// NewLabelService creates a new LabelService. A nil now uses time.Now.
func NewLabelService(labels LabelStore, tasks TaskStore, now func() time.Time) *LabelService {
	if now == nil {
		now = time.Now
	}
	return &LabelService{labels: labels, tasks: tasks, now: now}
}

// Create stores a new label owned by userID. Names are unique per owner
// after normalization.
func (s *LabelService) Create(ctx context.Context, userID string, req model.CreateLabelRequest) (model.LabelResponse, error) {
	name, err := validateLabelName(req.Name)
	if err != nil {
		return model.LabelResponse{}, err
	}
	if err := validateColor(req.Color); err != nil {
		return model.LabelResponse{}, err
	}
	key := normalize.LabelName(name)

	_, err = s.labels.FindByName(ctx, userID, key)
	switch {
	case err == nil:
		return model.LabelResponse{}, ErrLabelExists
	case !errors.Is(err, repository.ErrNotFound):
		return model.LabelResponse{}, fmt.Errorf("lookup label: %w", err)
	}

	label := &model.Label{
		UserID:         userID,
		Name:           name,
		NameNormalized: key,
		Color:          req.Color,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.labels.Insert(ctx, label); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.LabelResponse{}, ErrLabelExists
		}
		return model.LabelResponse{}, fmt.Errorf("create label: %w", err)
	}

	return label.Response(), nil
}

// List returns the caller's labels, oldest first.
func (s *LabelService) List(ctx context.Context, userID string, limit *int) ([]model.LabelResponse, error) {
	n := DefaultLabelLimit
	if limit != nil {
		n = *limit
		if n < 1 || n > MaxLabelLimit {
			return nil, invalid("limit", "must be between 1 and 500")
		}
	}

	labels, err := s.labels.FindMany(ctx, model.LabelFilter{UserID: userID}, n)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}

	result := make([]model.LabelResponse, len(labels))
	for i, l := range labels {
		result[i] = l.Response()
	}
	return result, nil
}

// Get returns a label owned by userID.
func (s *LabelService) Get(ctx context.Context, userID, id string) (model.LabelResponse, error) {
	label, err := fetchOwned(ctx, userID, id, s.labels.FindByID, labelOwner)
	if err != nil {
		return model.LabelResponse{}, err
	}
	return label.Response(), nil
}

// Update renames or recolors a label owned by userID.
func (s *LabelService) Update(ctx context.Context, userID, id string, req model.UpdateLabelRequest) (model.LabelResponse, error) {
	label, err := fetchOwned(ctx, userID, id, s.labels.FindByID, labelOwner)
	if err != nil {
		return model.LabelResponse{}, err
	}
	if err := validateColor(req.Color); err != nil {
		return model.LabelResponse{}, err
	}

	patch := model.LabelPatch{Color: req.Color}
	if req.Name != nil {
		name, err := validateLabelName(*req.Name)
		if err != nil {
			return model.LabelResponse{}, err
		}
		key := normalize.LabelName(name)

		other, err := s.labels.FindByName(ctx, userID, key)
		switch {
		case err == nil && other.ID != label.ID:
			return model.LabelResponse{}, ErrLabelExists
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return model.LabelResponse{}, fmt.Errorf("lookup label: %w", err)
		}
		patch.Name = &name
		patch.NameNormalized = &key
	}

	if err := s.labels.UpdateFields(ctx, label.ID, patch); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.LabelResponse{}, ErrLabelExists
		}
		return model.LabelResponse{}, fmt.Errorf("update label: %w", err)
	}

	updated, err := s.labels.FindByID(ctx, label.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.LabelResponse{}, ErrNotFound
		}
		return model.LabelResponse{}, err
	}
	return updated.Response(), nil
}

// Delete removes a label owned by userID and detaches it from the
// caller's tasks. Associations go first so a failed call can be retried.
func (s *LabelService) Delete(ctx context.Context, userID, id string) error {
	label, err := fetchOwned(ctx, userID, id, s.labels.FindByID, labelOwner)
	if err != nil {
		return err
	}

	if err := s.tasks.DetachLabel(ctx, userID, label.ID); err != nil {
		return fmt.Errorf("detach label: %w", err)
	}

	deleted, err := s.labels.Delete(ctx, label.ID)
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}
