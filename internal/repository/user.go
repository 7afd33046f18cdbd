package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/peachytask/peachytask-go/internal/model"
)

// UserRepository handles user persistence operations.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Insert stores a new user and sets the generated ID on the user struct.
// A taken email yields ErrDuplicate.
func (r *UserRepository) Insert(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`

	id := newID()
	_, err := r.db.ExecContext(ctx, query, id, user.Email, user.PasswordHash, toMillis(user.CreatedAt))
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.ID = id
	return nil
}

// FindByEmail retrieves a user by their normalized email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`
	return r.scanOne(ctx, query, email)
}

// FindByID retrieves a user by their ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !validID(id) {
		return nil, ErrNotFound
	}
	query := `SELECT id, email, password_hash, created_at FROM users WHERE id = ?`
	return r.scanOne(ctx, query, id)
}

func (r *UserRepository) scanOne(ctx context.Context, query string, arg any) (*model.User, error) {
	user := &model.User{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)

	if err := CheckUser(user); err != nil {
		return nil, err
	}
	return user, nil
}
