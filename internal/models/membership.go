package models

import "time"

// Membership roles within a space or project.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// System-wide roles. A project manager can approve or reject pending tasks in
// any project, independent of project membership.
const (
	SystemRoleUser           = "user"
	SystemRoleProjectManager = "project_manager"
)

type SpaceMember struct {
	SpaceID   string    `db:"space_id" json:"spaceId"`
	UserID    string    `db:"user_id" json:"userId"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type ProjectMember struct {
	ProjectID string    `db:"project_id" json:"projectId"`
	UserID    string    `db:"user_id" json:"userId"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type User struct {
	ID         string    `db:"id" json:"id"`
	Email      string    `db:"email" json:"email"`
	FullName   string    `db:"full_name" json:"fullName"`
	SystemRole string    `db:"system_role" json:"systemRole"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Principal is the resolved actor for a workflow call: identifier, display name
// and system role looked up once at the boundary, then passed down by value.
type Principal struct {
	ID         string
	Name       string
	SystemRole string
}

// IsManager reports whether the principal holds the project manager system role.
func (p Principal) IsManager() bool {
	return p.SystemRole == SystemRoleProjectManager
}
