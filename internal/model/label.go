package model

import "time"

// Label represents a user-defined tag that tasks can carry.
type Label struct {
	ID             string
	UserID         string
	Name           string
	NameNormalized string
	Color          *string
	CreatedAt      time.Time
}

// LabelPatch holds the fields of a partial label update.
type LabelPatch struct {
	Name           *string
	NameNormalized *string
	Color          *string
}

// CreateLabelRequest represents a label creation request.
type CreateLabelRequest struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

// UpdateLabelRequest represents a PATCH request for a label.
type UpdateLabelRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// LabelResponse represents a label in API responses.
type LabelResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Name           string    `json:"name"`
	NameNormalized string    `json:"name_normalized"`
	Color          *string   `json:"color"`
	CreatedAt      time.Time `json:"created_at"`
}

// Response converts the label to its API representation.
func (l Label) Response() LabelResponse {
	return LabelResponse{
		ID:             l.ID,
		UserID:         l.UserID,
		Name:           l.Name,
		NameNormalized: l.NameNormalized,
		Color:          l.Color,
		CreatedAt:      l.CreatedAt,
	}
}

// LabelFilter selects labels in a listing. UserID is always required.
type LabelFilter struct {
	UserID string
}
