package repository

import (
	"errors"
	"fmt"

	"github.com/peachytask/peachytask-go/internal/model"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("record already exists")
	ErrInvalidID     = errors.New("malformed identifier")
	ErrCorruptRecord = errors.New("stored record is missing required fields")
)

// CheckUser rejects user records that lack required fields.
func CheckUser(u *model.User) error {
	return missing("user", u.ID,
		"id", u.ID,
		"email", u.Email,
		"password_hash", u.PasswordHash,
	)
}

// CheckTask rejects task records that lack required fields.
func CheckTask(t *model.Task) error {
	if err := missing("task", t.ID,
		"id", t.ID,
		"user_id", t.UserID,
		"title", t.Title,
		"priority", string(t.Priority),
		"deadline", t.Deadline,
	); err != nil {
		return err
	}
	if !t.Priority.Valid() {
		return fmt.Errorf("%w: task %s has priority %q", ErrCorruptRecord, t.ID, t.Priority)
	}
	return nil
}

// CheckLabel rejects label records that lack required fields.
func CheckLabel(l *model.Label) error {
	return missing("label", l.ID,
		"id", l.ID,
		"user_id", l.UserID,
		"name", l.Name,
		"name_normalized", l.NameNormalized,
	)
}

// missing takes alternating field name / value pairs.
func missing(kind, id string, pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return fmt.Errorf("%w: %s %q has no %s", ErrCorruptRecord, kind, id, pairs[i])
		}
	}
	return nil
}
