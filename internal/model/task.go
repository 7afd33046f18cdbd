package model

import "time"

// Priority is the urgency of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// DateLayout is the wire and storage format of task deadlines.
const DateLayout = "2006-01-02"

// Task represents a task owned by a single user.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description *string
	Priority    Priority
	Deadline    string
	Completed   bool
	LabelIDs    []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskPatch holds the fields of a partial task update. Nil means unchanged.
type TaskPatch struct {
	Title       *string
	Description *string
	Priority    *Priority
	Deadline    *string
	Completed   *bool
	LabelIDs    *[]string
	UpdatedAt   time.Time
}

// CreateTaskRequest represents a task creation request.
type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Priority    Priority `json:"priority"`
	Deadline    string   `json:"deadline"`
	LabelIDs    []string `json:"label_ids"`
}

// UpdateTaskRequest represents a PATCH request; absent fields are left alone.
type UpdateTaskRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Priority    *Priority `json:"priority"`
	Deadline    *string   `json:"deadline"`
	Completed   *bool     `json:"completed"`
	LabelIDs    *[]string `json:"label_ids"`
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Priority    Priority  `json:"priority"`
	Deadline    string    `json:"deadline"`
	Completed   bool      `json:"completed"`
	LabelIDs    []string  `json:"label_ids"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Response converts the task to its API representation.
func (t Task) Response() TaskResponse {
	labels := t.LabelIDs
	if labels == nil {
		labels = []string{}
	}
	return TaskResponse{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Deadline:    t.Deadline,
		Completed:   t.Completed,
		LabelIDs:    labels,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// TaskSortField names a column tasks can be ordered by.
type TaskSortField string

const (
	SortByCreatedAt TaskSortField = "created_at"
	SortByDeadline  TaskSortField = "deadline"
)

// TaskSort orders a task listing.
type TaskSort struct {
	Field      TaskSortField
	Descending bool
}

// TaskFilter selects tasks in a listing. UserID is always required.
type TaskFilter struct {
	UserID    string
	Completed *bool
	LabelID   string
}
