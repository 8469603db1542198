package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Notification event types. Task events are the interesting ones; space and
// project events follow the same shape.
const (
	NotificationCreateTask          = "CREATE_TASK"
	NotificationUpdateTask          = "UPDATE_TASK"
	NotificationDeleteTask          = "DELETE_TASK"
	NotificationTaskStatusChanged   = "TASK_STATUS_CHANGED"
	NotificationTaskPendingApproval = "TASK_PENDING_APPROVAL"
	NotificationTaskApproved        = "TASK_APPROVED"
	NotificationTaskRejected        = "TASK_REJECTED"
	NotificationYouWereAssignedTask = "YOU_WERE_ASSIGNED_TASK"

	NotificationCreateSpace             = "CREATE_SPACE"
	NotificationUpdateSpace             = "UPDATE_SPACE"
	NotificationDeleteSpace             = "DELETE_SPACE"
	NotificationYouWereAddedToSpace     = "YOU_WERE_ADDED_TO_SPACE"
	NotificationAddMemberToSpace        = "ADD_MEMBER_TO_SPACE"
	NotificationYouWereRemovedFromSpace = "YOU_WERE_REMOVED_FROM_SPACE"
	NotificationRemoveMemberFromSpace   = "REMOVE_MEMBER_FROM_SPACE"

	NotificationCreateProject             = "CREATE_PROJECT"
	NotificationUpdateProject             = "UPDATE_PROJECT"
	NotificationDeleteProject             = "DELETE_PROJECT"
	NotificationYouWereAddedToProject     = "YOU_WERE_ADDED_TO_PROJECT"
	NotificationAddMemberToProject        = "ADD_MEMBER_TO_PROJECT"
	NotificationYouWereRemovedFromProject = "YOU_WERE_REMOVED_FROM_PROJECT"
	NotificationRemoveMemberFromProject   = "REMOVE_MEMBER_FROM_PROJECT"
)

// NotificationData is the event-specific payload, stored as a JSON column.
// Task events carry denormalized taskId/taskTitle so they survive task deletion.
type NotificationData map[string]any

func (d NotificationData) Value() (driver.Value, error) {
	if d == nil {
		d = NotificationData{}
	}
	return json.Marshal(d)
}

func (d *NotificationData) Scan(src any) error {
	if src == nil {
		*d = NotificationData{}
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported notification data type %T", src)
	}
}

// Notification is immutable once created except for IsRead/ReadAt. ActorName is
// resolved once at creation time and never refreshed.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipientId"`
	ActorID     *string          `db:"actor_id" json:"actorId,omitempty"`
	ActorName   *string          `db:"actor_name" json:"actorName,omitempty"`
	Type        string           `db:"type" json:"type"`
	Data        NotificationData `db:"data" json:"data"`
	IsRead      bool             `db:"is_read" json:"isRead"`
	ReadAt      *time.Time       `db:"read_at" json:"readAt,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
}
