package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/peachytask/peachytask-go/internal/model"
	"github.com/peachytask/peachytask-go/internal/repository"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxLabelNameLength   = 50
	maxLabelsPerTask     = 50
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// fetchOwned loads a record by id and hides it unless userID owns it.
// A foreign record is reported exactly like a missing one.
func fetchOwned[T any](ctx context.Context, userID, id string, find func(context.Context, string) (*T, error), owner func(*T) string) (*T, error) {
	rec, err := find(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrInvalidID):
			return nil, invalid("id", "is malformed")
		}
		return nil, err
	}
	if owner(rec) != userID {
		return nil, ErrNotFound
	}
	return rec, nil
}

func taskOwner(t *model.Task) string   { return t.UserID }
func labelOwner(l *model.Label) string { return l.UserID }

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		return "", invalid("title", "is required")
	case n > maxTitleLength:
		return "", invalid("title", "must be at most 200 characters")
	}
	return title, nil
}

func validateDescription(description *string) error {
	if description != nil && utf8.RuneCountInString(*description) > maxDescriptionLength {
		return invalid("description", "must be at most 5000 characters")
	}
	return nil
}

func validatePriority(p model.Priority) error {
	if !p.Valid() {
		return invalid("priority", "must be one of high, medium, low")
	}
	return nil
}

func validateDeadline(deadline string) error {
	d, err := time.Parse(model.DateLayout, deadline)
	if err != nil || d.Format(model.DateLayout) != deadline {
		return invalid("deadline", "must be a date in YYYY-MM-DD format")
	}
	return nil
}

func validateLabelName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch n := utf8.RuneCountInString(name); {
	case n == 0:
		return "", invalid("name", "is required")
	case n > maxLabelNameLength:
		return "", invalid("name", "must be at most 50 characters")
	}
	return name, nil
}

func validateColor(color *string) error {
	if color != nil && !colorPattern.MatchString(*color) {
		return invalid("color", "must be a hex color like #FF5733")
	}
	return nil
}
