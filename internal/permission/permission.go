// Package permission decides which task fields an actor may touch, given the
// task and the actor's resolved space/project roles. It is pure: no I/O, all
// inputs resolved by the caller.
package permission

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gurkanbulca/workhub/internal/models"
)

// Decision is the actor's relationship to a task. Role precedence is total:
// elevated (space/project owner) beats task owner beats assignee. A principal
// who is both owner and assignee is handled at the owner tier.
type Decision struct {
	IsTaskOwner    bool
	IsTaskAssignee bool
	IsSpaceOwner   bool
	IsProjectOwner bool
}

// Elevated reports whether the actor holds an owner role on the surrounding
// space or project, which grants full field access including direct completion.
func (d Decision) Elevated() bool {
	return d.IsSpaceOwner || d.IsProjectOwner
}

// Decide computes the actor's decision for a task. Actors with no relation to
// the task at all are denied outright.
func Decide(task *models.Task, actorID, spaceRole, projectRole string) (Decision, error) {
	d := Decision{
		IsTaskOwner:    task.OwnerID == actorID,
		IsTaskAssignee: task.AssigneeID == actorID,
		IsSpaceOwner:   spaceRole == models.RoleOwner,
		IsProjectOwner: projectRole == models.RoleOwner,
	}

	if !d.IsTaskOwner && !d.IsTaskAssignee && !d.IsSpaceOwner && !d.IsProjectOwner {
		return Decision{}, status.Error(codes.PermissionDenied, "permission denied")
	}

	return d, nil
}

// UpdatePayload is an update request with presence tracked per field. A nil
// pointer (or nil Attachments) means the field was not supplied.
type UpdatePayload struct {
	Name        *string
	Description *string
	AssigneeID  *string
	Status      *string
	Priority    *string
	StartDate   *time.Time
	DueDate     *time.Time
	Attachments models.Attachments
}

// FilterUpdate applies the tier rules to a payload and returns the fields the
// caller may persist. The second return is true when an assignee-submitted
// COMPLETED was rewritten to PENDING_APPROVAL; that rewrite is deliberate
// behavior ("submit for review"), not an error.
func FilterUpdate(d Decision, payload *UpdatePayload) (*UpdatePayload, bool, error) {
	if d.Elevated() {
		// Space/project owners may set any field, including status=completed.
		return payload, false, nil
	}

	if d.IsTaskOwner {
		if payload.Status != nil {
			return nil, false, status.Error(codes.PermissionDenied,
				"as task owner, you cannot update task status: only the assignee can update status, and a manager can approve")
		}
		return payload, false, nil
	}

	if d.IsTaskAssignee {
		if forbidden := forbiddenAssigneeFields(payload); len(forbidden) > 0 {
			return nil, false, status.Errorf(codes.PermissionDenied,
				"as task assignee, you can only update status and attachments; cannot update: %s",
				strings.Join(forbidden, ", "))
		}

		filtered := &UpdatePayload{
			Status:      payload.Status,
			Attachments: payload.Attachments,
		}

		if payload.Status == nil {
			return filtered, false, nil
		}

		switch *payload.Status {
		case models.TaskStatusCompleted:
			// Submit for review: persisted as pending_approval, never completed.
			rewritten := models.TaskStatusPendingApproval
			filtered.Status = &rewritten
			return filtered, true, nil
		case models.TaskStatusPending, models.TaskStatusProcessing, models.TaskStatusPendingApproval:
			return filtered, false, nil
		default:
			return nil, false, status.Error(codes.PermissionDenied,
				fmt.Sprintf("as task assignee, you cannot set status to %q", *payload.Status))
		}
	}

	return nil, false, status.Error(codes.PermissionDenied, "permission denied")
}

func forbiddenAssigneeFields(payload *UpdatePayload) []string {
	var fields []string
	if payload.Name != nil {
		fields = append(fields, "name")
	}
	if payload.Description != nil {
		fields = append(fields, "description")
	}
	if payload.AssigneeID != nil {
		fields = append(fields, "assignee")
	}
	if payload.Priority != nil {
		fields = append(fields, "priority")
	}
	if payload.StartDate != nil {
		fields = append(fields, "startDate")
	}
	if payload.DueDate != nil {
		fields = append(fields, "dueDate")
	}
	return fields
}

// CanDelete reports whether the actor may delete the task: its owner, its
// assignee, or an elevated actor.
func CanDelete(d Decision) bool {
	return d.IsTaskOwner || d.IsTaskAssignee || d.Elevated()
}
