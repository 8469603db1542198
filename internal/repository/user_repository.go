// internal/repository/user_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gurkanbulca/workhub/internal/models"
)

// UserRepository is the principal directory: identifiers to profiles.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) Create(ctx context.Context, input *UserInput) (*models.User, error) {
	user := &models.User{
		ID:         input.ID,
		Email:      input.Email,
		FullName:   input.FullName,
		SystemRole: input.SystemRole,
		CreatedAt:  time.Now().UTC(),
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.SystemRole == "" {
		user.SystemRole = models.SystemRoleUser
	}

	query := r.db.Rebind(`
		INSERT INTO users (id, email, full_name, system_role, created_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.FullName, user.SystemRole, user.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	query := r.db.Rebind("SELECT * FROM users WHERE id = ?")
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting user %s: %w", id, err)
	}
	return &user, nil
}

// DisplayName resolves a principal to their display name. Callers denormalize
// the result; it is never re-resolved for existing notifications.
func (r *UserRepository) DisplayName(ctx context.Context, id string) (string, error) {
	var name string
	query := r.db.Rebind("SELECT full_name FROM users WHERE id = ?")
	if err := r.db.GetContext(ctx, &name, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("resolving display name for %s: %w", id, err)
	}
	return name, nil
}

// ManagerIDs returns the users holding the project manager system role. They
// can approve tasks in any project.
func (r *UserRepository) ManagerIDs(ctx context.Context) ([]string, error) {
	var ids []string
	query := r.db.Rebind("SELECT id FROM users WHERE system_role = ?")
	if err := r.db.SelectContext(ctx, &ids, query, models.SystemRoleProjectManager); err != nil {
		return nil, fmt.Errorf("listing managers: %w", err)
	}
	return ids, nil
}

type UserInput struct {
	ID         string
	Email      string
	FullName   string
	SystemRole string
}
