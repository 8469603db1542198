// internal/repository/membership_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gurkanbulca/workhub/internal/models"
)

// MembershipRepository resolves space and project roles. It is the narrow
// interface onto membership data owned by the space/project subsystem.
type MembershipRepository struct {
	db *sqlx.DB
}

func NewMembershipRepository(db *sqlx.DB) *MembershipRepository {
	return &MembershipRepository{
		db: db,
	}
}

// SpaceRole returns the principal's role in the space, or "" for non-members.
func (r *MembershipRepository) SpaceRole(ctx context.Context, spaceID, userID string) (string, error) {
	var role string
	query := r.db.Rebind("SELECT role FROM space_members WHERE space_id = ? AND user_id = ?")
	if err := r.db.GetContext(ctx, &role, query, spaceID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("resolving space role: %w", err)
	}
	return role, nil
}

// ProjectRole returns the principal's role in the project, or "" for non-members.
func (r *MembershipRepository) ProjectRole(ctx context.Context, projectID, userID string) (string, error) {
	var role string
	query := r.db.Rebind("SELECT role FROM project_members WHERE project_id = ? AND user_id = ?")
	if err := r.db.GetContext(ctx, &role, query, projectID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("resolving project role: %w", err)
	}
	return role, nil
}

func (r *MembershipRepository) ProjectMembers(ctx context.Context, projectID string) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	query := r.db.Rebind("SELECT * FROM project_members WHERE project_id = ?")
	if err := r.db.SelectContext(ctx, &members, query, projectID); err != nil {
		return nil, fmt.Errorf("listing project members: %w", err)
	}
	return members, nil
}

// ProjectOwnerIDs returns the user IDs holding the owner role in the project.
func (r *MembershipRepository) ProjectOwnerIDs(ctx context.Context, projectID string) ([]string, error) {
	var ids []string
	query := r.db.Rebind("SELECT user_id FROM project_members WHERE project_id = ? AND role = ?")
	if err := r.db.SelectContext(ctx, &ids, query, projectID, models.RoleOwner); err != nil {
		return nil, fmt.Errorf("listing project owners: %w", err)
	}
	return ids, nil
}

// OwnedProjectIDs returns the projects where the user holds the owner role.
func (r *MembershipRepository) OwnedProjectIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	query := r.db.Rebind("SELECT project_id FROM project_members WHERE user_id = ? AND role = ?")
	if err := r.db.SelectContext(ctx, &ids, query, userID, models.RoleOwner); err != nil {
		return nil, fmt.Errorf("listing owned projects: %w", err)
	}
	return ids, nil
}

// Memberships returns all project memberships for the user.
func (r *MembershipRepository) Memberships(ctx context.Context, userID string) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	query := r.db.Rebind("SELECT * FROM project_members WHERE user_id = ?")
	if err := r.db.SelectContext(ctx, &members, query, userID); err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	return members, nil
}

func (r *MembershipRepository) AddSpaceMember(ctx context.Context, spaceID, userID, role string) error {
	query := r.db.Rebind(`
		INSERT INTO space_members (space_id, user_id, role, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, spaceID, userID, role, time.Now().UTC()); err != nil {
		return fmt.Errorf("adding space member: %w", err)
	}
	return nil
}

func (r *MembershipRepository) AddProjectMember(ctx context.Context, projectID, userID, role string) error {
	query := r.db.Rebind(`
		INSERT INTO project_members (project_id, user_id, role, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := r.db.ExecContext(ctx, query, projectID, userID, role, time.Now().UTC()); err != nil {
		return fmt.Errorf("adding project member: %w", err)
	}
	return nil
}

func (r *MembershipRepository) RemoveProjectMember(ctx context.Context, projectID, userID string) error {
	query := r.db.Rebind("DELETE FROM project_members WHERE project_id = ? AND user_id = ?")
	result, err := r.db.ExecContext(ctx, query, projectID, userID)
	if err != nil {
		return fmt.Errorf("removing project member: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
