package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/peachytask/peachytask-go/internal/model"
)

// LabelRepository handles label persistence operations.
type LabelRepository struct {
	db *sql.DB
}

// NewLabelRepository creates a new LabelRepository.
func NewLabelRepository(db *sql.DB) *LabelRepository {
	return &LabelRepository{db: db}
}

const labelColumns = `id, user_id, name, name_normalized, color, created_at`

// Insert stores a new label and sets its ID. A name already used by the
// same owner yields ErrDuplicate.
func (r *LabelRepository) Insert(ctx context.Context, label *model.Label) error {
	id := newID()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO labels (`+labelColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		id, label.UserID, label.Name, label.NameNormalized, label.Color, toMillis(label.CreatedAt),
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert label: %w", err)
	}

	label.ID = id
	return nil
}

// FindByID retrieves a label by ID regardless of owner.
func (r *LabelRepository) FindByID(ctx context.Context, id string) (*model.Label, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}
	return r.scanOne(ctx, `SELECT `+labelColumns+` FROM labels WHERE id = ?`, id)
}

// FindByName retrieves the label of userID with the given normalized name.
func (r *LabelRepository) FindByName(ctx context.Context, userID, nameNormalized string) (*model.Label, error) {
	return r.scanOne(ctx,
		`SELECT `+labelColumns+` FROM labels WHERE user_id = ? AND name_normalized = ?`,
		userID, nameNormalized,
	)
}

// FindMany lists the labels matching filter, oldest first.
func (r *LabelRepository) FindMany(ctx context.Context, filter model.LabelFilter, limit int) ([]model.Label, error) {
	if filter.UserID == "" {
		return nil, errors.New("label filter requires a user id")
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+labelColumns+` FROM labels WHERE user_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`,
		filter.UserID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	labels := []model.Label{}
	for rows.Next() {
		l, err := scanLabel(rows)
		if err != nil {
			return nil, err
		}
		labels = append(labels, *l)
	}

	return labels, rows.Err()
}

// UpdateFields applies the non-nil fields of patch to the label.
func (r *LabelRepository) UpdateFields(ctx context.Context, id string, patch model.LabelPatch) error {
	if !validID(id) {
		return ErrInvalidID
	}

	var (
		sets []string
		args []any
	)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.NameNormalized != nil {
		sets = append(sets, "name_normalized = ?")
		args = append(args, *patch.NameNormalized)
	}
	if patch.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *patch.Color)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	_, err := r.db.ExecContext(ctx, `UPDATE labels SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update label: %w", err)
	}
	return nil
}

// Delete removes a label and every task association pointing at it in one
// transaction. It reports whether a label was removed.
func (r *LabelRepository) Delete(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, ErrInvalidID
	}

	var deleted bool
	err := withTx(ctx, r.db, func(tx dbtx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_labels WHERE label_id = ?`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM labels WHERE id = ?`, id)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete label: %w", err)
	}
	return deleted, nil
}

func (r *LabelRepository) scanOne(ctx context.Context, query string, args ...any) (*model.Label, error) {
	label, err := scanLabel(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return label, nil
}

func scanLabel(row rowScanner) (*model.Label, error) {
	var (
		l         model.Label
		color     sql.NullString
		createdAt int64
	)
	err := row.Scan(&l.ID, &l.UserID, &l.Name, &l.NameNormalized, &color, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan label: %w", err)
	}

	if color.Valid {
		l.Color = &color.String
	}
	l.CreatedAt = fromMillis(createdAt)

	if err := CheckLabel(&l); err != nil {
		return nil, err
	}
	return &l, nil
}
