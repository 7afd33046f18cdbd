package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/peachytask/peachytask-go/internal/model"
)

// TaskRepository handles task persistence operations.
// Label associations live in task_labels, ordered by position.
type TaskRepository struct {
	db *sql.DB
}

// NewTaskRepository creates a new TaskRepository.
func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, title, description, priority, deadline, completed, created_at, updated_at`

var taskSortColumns = map[model.TaskSortField]string{
	model.SortByCreatedAt: "created_at",
	model.SortByDeadline:  "deadline",
}

// Insert stores a new task with its label associations and sets its ID.
func (r *TaskRepository) Insert(ctx context.Context, task *model.Task) error {
	id := newID()
	err := withTx(ctx, r.db, func(tx dbtx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, task.UserID, task.Title, task.Description, string(task.Priority), task.Deadline,
			task.Completed, toMillis(task.CreatedAt), toMillis(task.UpdatedAt),
		)
		if err != nil {
			return err
		}
		return insertTaskLabels(ctx, tx, id, task.LabelIDs)
	})
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}

	task.ID = id
	return nil
}

// FindByID retrieves a task by ID regardless of owner.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*model.Task, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	labels, err := r.labelIDs(ctx, []string{task.ID})
	if err != nil {
		return nil, err
	}
	task.LabelIDs = labels[task.ID]

	return task, nil
}

// FindMany lists tasks matching filter in the requested order.
func (r *TaskRepository) FindMany(ctx context.Context, filter model.TaskFilter, sort model.TaskSort, limit int) ([]model.Task, error) {
	if filter.UserID == "" {
		return nil, errors.New("task filter requires a user id")
	}

	var (
		where = []string{"user_id = ?"}
		args  = []any{filter.UserID}
	)
	if filter.Completed != nil {
		where = append(where, "completed = ?")
		args = append(args, *filter.Completed)
	}
	if filter.LabelID != "" {
		where = append(where, "id IN (SELECT task_id FROM task_labels WHERE label_id = ?)")
		args = append(args, filter.LabelID)
	}

	column, ok := taskSortColumns[sort.Field]
	if !ok {
		column = "created_at"
	}
	direction := "ASC"
	if sort.Descending {
		direction = "DESC"
	}

	query := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY %s %s, id %s LIMIT ?`,
		taskColumns, strings.Join(where, " AND "), column, direction, direction)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	if len(tasks) == 0 {
		return tasks, nil
	}

	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	labels, err := r.labelIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range tasks {
		tasks[i].LabelIDs = labels[tasks[i].ID]
	}

	return tasks, nil
}

// UpdateFields applies the non-nil fields of patch to the task.
func (r *TaskRepository) UpdateFields(ctx context.Context, id string, patch model.TaskPatch) error {
	if !validID(id) {
		return ErrInvalidID
	}

	var (
		sets []string
		args []any
	)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, string(*patch.Priority))
	}
	if patch.Deadline != nil {
		sets = append(sets, "deadline = ?")
		args = append(args, *patch.Deadline)
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, toMillis(patch.UpdatedAt), id)

	err := withTx(ctx, r.db, func(tx dbtx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
			return err
		}
		if patch.LabelIDs == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_labels WHERE task_id = ?`, id); err != nil {
			return err
		}
		return insertTaskLabels(ctx, tx, id, *patch.LabelIDs)
	})
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

// Delete removes a task and its label associations.
// It reports whether a task was removed.
func (r *TaskRepository) Delete(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, ErrInvalidID
	}

	var deleted bool
	err := withTx(ctx, r.db, func(tx dbtx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_labels WHERE task_id = ?`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
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
		return false, fmt.Errorf("delete task: %w", err)
	}
	return deleted, nil
}

// DetachLabel removes labelID from every task owned by userID.
func (r *TaskRepository) DetachLabel(ctx context.Context, userID, labelID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM task_labels WHERE label_id = ? AND task_id IN (SELECT id FROM tasks WHERE user_id = ?)`,
		labelID, userID,
	)
	if err != nil {
		return fmt.Errorf("detach label: %w", err)
	}
	return nil
}

func (r *TaskRepository) labelIDs(ctx context.Context, taskIDs []string) (map[string][]string, error) {
	args := make([]any, len(taskIDs))
	for i, id := range taskIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT task_id, label_id FROM task_labels WHERE task_id IN (`+placeholders(len(taskIDs))+`) ORDER BY task_id, position`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query task labels: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string, len(taskIDs))
	for rows.Next() {
		var taskID, labelID string
		if err := rows.Scan(&taskID, &labelID); err != nil {
			return nil, fmt.Errorf("scan task label: %w", err)
		}
		out[taskID] = append(out[taskID], labelID)
	}
	return out, rows.Err()
}

func insertTaskLabels(ctx context.Context, tx dbtx, taskID string, labelIDs []string) error {
	for i, labelID := range labelIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_labels (task_id, label_id, position) VALUES (?, ?, ?)`,
			taskID, labelID, i,
		); err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	var (
		t           model.Task
		description sql.NullString
		priority    string
		createdAt   int64
		updatedAt   int64
	)
	err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &description, &priority, &t.Deadline,
		&t.Completed, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan task: %w", err)
	}

	if description.Valid {
		t.Description = &description.String
	}
	t.Priority = model.Priority(priority)
	t.CreatedAt = fromMillis(createdAt)
	t.UpdatedAt = fromMillis(updatedAt)

	if err := CheckTask(&t); err != nil {
		return nil, err
	}
	return &t, nil
}
