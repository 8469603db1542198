package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Task status constants. A task submitted for review by its assignee sits in
// pending_approval until a manager or project owner approves or rejects it.
const (
	TaskStatusPending         = "pending"
	TaskStatusProcessing      = "processing"
	TaskStatusPendingApproval = "pending_approval"
	TaskStatusCompleted       = "completed"
)

// Priority constants
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// ValidTaskStatus reports whether s is one of the known task statuses.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusPendingApproval, TaskStatusCompleted:
		return true
	}
	return false
}

// Attachment is a file attached to a task. The list on a task is ordered and
// append-only across updates: clients resend the attachments they keep and the
// server appends newly uploaded ones after them.
type Attachment struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	URL          string    `json:"url"`
	Size         int64     `json:"size"`
	Mimetype     string    `json:"mimetype"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Attachments is stored as a JSON column.
type Attachments []Attachment

func (a Attachments) Value() (driver.Value, error) {
	if a == nil {
		a = Attachments{}
	}
	return json.Marshal(a)
}

func (a *Attachments) Scan(src any) error {
	if src == nil {
		*a = Attachments{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	default:
		return fmt.Errorf("unsupported attachments type %T", src)
	}
}

type Task struct {
	ID            string      `db:"id" json:"id"`
	SpaceID       string      `db:"space_id" json:"spaceId"`
	ProjectID     string      `db:"project_id" json:"projectId"`
	OwnerID       string      `db:"owner_id" json:"ownerId"`
	AssigneeID    string      `db:"assignee_id" json:"assigneeId"`
	Name          string      `db:"name" json:"name"`
	Description   string      `db:"description" json:"description"`
	Status        string      `db:"status" json:"status"`
	Priority      string      `db:"priority" json:"priority"`
	StartDate     *time.Time  `db:"start_date" json:"startDate,omitempty"`
	DueDate       *time.Time  `db:"due_date" json:"dueDate,omitempty"`
	CompletedAt   *time.Time  `db:"completed_at" json:"completedAt,omitempty"`
	ApprovedBy    *string     `db:"approved_by" json:"approvedBy,omitempty"`
	ApprovedAt    *time.Time  `db:"approved_at" json:"approvedAt,omitempty"`
	RejectedBy    *string     `db:"rejected_by" json:"rejectedBy,omitempty"`
	RejectedAt    *time.Time  `db:"rejected_at" json:"rejectedAt,omitempty"`
	ReviewComment *string     `db:"review_comment" json:"reviewComment,omitempty"`
	Attachments   Attachments `db:"attachments" json:"attachments"`
	CreatedAt     time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updatedAt"`
}
