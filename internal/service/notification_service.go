// internal/service/notification_service.go
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gurkanbulca/workhub/internal/config"
	"github.com/gurkanbulca/workhub/internal/models"
	"github.com/gurkanbulca/workhub/internal/repository"
)

// DeliverySender pushes a persisted notification to a principal's live
// connections. Implementations must be non-blocking-safe for offline
// principals (a push to nobody is a no-op).
type DeliverySender interface {
	SendNotification(recipientID string, n *models.Notification)
}

// NotificationService persists notification events and computes the recipient
// set for each domain event. Persistence always happens before any delivery
// attempt; delivery is fire-and-forget and can never fail a workflow.
type NotificationService struct {
	notifications *repository.NotificationRepository
	memberships   *repository.MembershipRepository
	users         *repository.UserRepository
	delivery      DeliverySender
	cfg           config.NotificationConfig
	logger        *slog.Logger
}

func NewNotificationService(
	notifications *repository.NotificationRepository,
	memberships *repository.MembershipRepository,
	users *repository.UserRepository,
	delivery DeliverySender,
	cfg config.NotificationConfig,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		notifications: notifications,
		memberships:   memberships,
		users:         users,
		delivery:      delivery,
		cfg:           cfg,
		logger:        logger,
	}
}

// send persists one notification and then pushes it to the recipient's live
// connections without waiting. The actor's display name was resolved once at
// the workflow boundary and is denormalized here; it is never refreshed.
func (s *NotificationService) send(ctx context.Context, recipientID string, actor *models.Principal, typ string, data models.NotificationData) error {
	input := &repository.NotificationInput{
		RecipientID: recipientID,
		Type:        typ,
		Data:        data,
	}
	if actor != nil {
		input.ActorID = &actor.ID
		input.ActorName = &actor.Name
	}

	n, err := s.notifications.Create(ctx, input)
	if err != nil {
		return err
	}

	if s.delivery != nil {
		go s.delivery.SendNotification(recipientID, n)
	}

	return nil
}

// sendAll persists and delivers the same event for each recipient. A failed
// persist for one recipient is logged and does not stop the rest of the
// fan-out; the triggering workflow mutation has already committed.
func (s *NotificationService) sendAll(ctx context.Context, recipientIDs []string, actor *models.Principal, typ string, data models.NotificationData) {
	for _, recipientID := range recipientIDs {
		if err := s.send(ctx, recipientID, actor, typ, data); err != nil {
			s.logger.Error("notification persist failed",
				"recipient", recipientID, "type", typ, "error", err)
		}
	}
}

// taskEventData is the denormalized payload shared by task events. Keeping
// taskId/taskTitle as plain values lets notifications outlive the task row.
func taskEventData(task *models.Task) models.NotificationData {
	return models.NotificationData{
		"taskId":    task.ID,
		"taskTitle": task.Name,
		"projectId": task.ProjectID,
		"spaceId":   task.SpaceID,
	}
}

// symmetricPair computes recipients for generic update/status events: the
// owner and assignee minus the actor, deduplicated. The actor never hears
// about their own action.
func symmetricPair(task *models.Task, actorID string) []string {
	var recipients []string
	if task.OwnerID != actorID {
		recipients = append(recipients, task.OwnerID)
	}
	if task.AssigneeID != actorID && task.AssigneeID != task.OwnerID {
		recipients = append(recipients, task.AssigneeID)
	}
	return recipients
}

// approverIDs is the approver-broadcast set: every project manager plus the
// task's project owners, minus the actor, deduplicated. The manager role is
// system-wide on purpose; managers approve across all projects.
func (s *NotificationService) approverIDs(ctx context.Context, task *models.Task, actorID string) ([]string, error) {
	managers, err := s.users.ManagerIDs(ctx)
	if err != nil {
		return nil, err
	}
	owners, err := s.memberships.ProjectOwnerIDs(ctx, task.ProjectID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var recipients []string
	for _, id := range append(managers, owners...) {
		if id == actorID {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	return recipients, nil
}

// NotifyTaskCreated tells the assignee they were assigned (when distinct from
// the creator) and broadcasts the creation to the other project members.
func (s *NotificationService) NotifyTaskCreated(ctx context.Context, task *models.Task, actor models.Principal) {
	if task.AssigneeID != actor.ID {
		data := taskEventData(task)
		if err := s.send(ctx, task.AssigneeID, &actor, models.NotificationYouWereAssignedTask, data); err != nil {
			s.logger.Error("notification persist failed", "type", models.NotificationYouWereAssignedTask, "error", err)
		}
	}

	members, err := s.memberships.ProjectMembers(ctx, task.ProjectID)
	if err != nil {
		s.logger.Error("fan-out recipient lookup failed", "project", task.ProjectID, "error", err)
		return
	}

	data := taskEventData(task)
	data["assigneeId"] = task.AssigneeID
	var recipients []string
	for _, m := range members {
		if m.UserID == actor.ID || m.UserID == task.AssigneeID {
			continue
		}
		recipients = append(recipients, m.UserID)
	}
	s.sendAll(ctx, recipients, &actor, models.NotificationCreateTask, data)
}

// NotifyTaskUpdated emits the generic update event to the symmetric pair.
func (s *NotificationService) NotifyTaskUpdated(ctx context.Context, task *models.Task, actor models.Principal, changed []string) {
	data := taskEventData(task)
	data["changes"] = changed
	s.sendAll(ctx, symmetricPair(task, actor.ID), &actor, models.NotificationUpdateTask, data)
}

// NotifyTaskStatusChanged emits the status event, distinct from the generic
// update, to the symmetric pair.
func (s *NotificationService) NotifyTaskStatusChanged(ctx context.Context, task *models.Task, newStatus string, actor models.Principal) {
	data := taskEventData(task)
	data["newStatus"] = newStatus
	s.sendAll(ctx, symmetricPair(task, actor.ID), &actor, models.NotificationTaskStatusChanged, data)
}

// NotifyTaskPendingApproval broadcasts to everyone who could approve the task.
func (s *NotificationService) NotifyTaskPendingApproval(ctx context.Context, task *models.Task, actor models.Principal) {
	recipients, err := s.approverIDs(ctx, task, actor.ID)
	if err != nil {
		s.logger.Error("fan-out recipient lookup failed", "project", task.ProjectID, "error", err)
		return
	}
	s.sendAll(ctx, recipients, &actor, models.NotificationTaskPendingApproval, taskEventData(task))
}

// NotifyTaskApproved goes to the assignee only.
func (s *NotificationService) NotifyTaskApproved(ctx context.Context, task *models.Task, actor models.Principal) {
	data := taskEventData(task)
	if task.ReviewComment != nil {
		data["comment"] = *task.ReviewComment
	}
	if err := s.send(ctx, task.AssigneeID, &actor, models.NotificationTaskApproved, data); err != nil {
		s.logger.Error("notification persist failed", "type", models.NotificationTaskApproved, "error", err)
	}
}

// NotifyTaskRejected goes to the assignee only, carrying the reason.
func (s *NotificationService) NotifyTaskRejected(ctx context.Context, task *models.Task, actor models.Principal, reason string) {
	data := taskEventData(task)
	data["reason"] = reason
	if err := s.send(ctx, task.AssigneeID, &actor, models.NotificationTaskRejected, data); err != nil {
		s.logger.Error("notification persist failed", "type", models.NotificationTaskRejected, "error", err)
	}
}

// NotifyTaskAssigned tells a newly assigned principal about their task.
func (s *NotificationService) NotifyTaskAssigned(ctx context.Context, task *models.Task, actor models.Principal) {
	if task.AssigneeID == actor.ID {
		return
	}
	if err := s.send(ctx, task.AssigneeID, &actor, models.NotificationYouWereAssignedTask, taskEventData(task)); err != nil {
		s.logger.Error("notification persist failed", "type", models.NotificationYouWereAssignedTask, "error", err)
	}
}

// NotifyTaskDeleted broadcasts a deletion to the remaining project members.
// The caller captures project/space IDs before the row is removed; they are
// not derivable afterwards.
func (s *NotificationService) NotifyTaskDeleted(ctx context.Context, taskID, taskName, projectID, spaceID string, actor models.Principal) {
	members, err := s.memberships.ProjectMembers(ctx, projectID)
	if err != nil {
		s.logger.Error("fan-out recipient lookup failed", "project", projectID, "error", err)
		return
	}

	data := models.NotificationData{
		"taskId":    taskID,
		"taskTitle": taskName,
		"projectId": projectID,
		"spaceId":   spaceID,
	}
	var recipients []string
	for _, m := range members {
		if m.UserID == actor.ID {
			continue
		}
		recipients = append(recipients, m.UserID)
	}
	s.sendAll(ctx, recipients, &actor, models.NotificationDeleteTask, data)
}

// NotifyMemberAddedToProject tells the new member directly and the remaining
// members via the broadcast event.
func (s *NotificationService) NotifyMemberAddedToProject(ctx context.Context, projectID, newMemberID string, actor models.Principal) {
	data := models.NotificationData{"projectId": projectID, "newMemberId": newMemberID}
	if err := s.send(ctx, newMemberID, &actor, models.NotificationYouWereAddedToProject, data); err != nil {
		s.logger.Error("notification persist failed", "type", models.NotificationYouWereAddedToProject, "error", err)
	}

	members, err := s.memberships.ProjectMembers(ctx, projectID)
	if err != nil {
		s.logger.Error("fan-out recipient lookup failed", "project", projectID, "error", err)
		return
	}
	var recipients []string
	for _, m := range members {
		if m.UserID == actor.ID || m.UserID == newMemberID {
			continue
		}
		recipients = append(recipients, m.UserID)
	}
	s.sendAll(ctx, recipients, &actor, models.NotificationAddMemberToProject, data)
}

// NotifyMemberRemovedFromProject mirrors NotifyMemberAddedToProject.
func (s *NotificationService) NotifyMemberRemovedFromProject(ctx context.Context, projectID, removedMemberID string, actor models.Principal) {
	data := models.NotificationData{"projectId": projectID, "removedMemberId": removedMemberID}
	if err := s.send(ctx, removedMemberID, &actor, models.NotificationYouWereRemovedFromProject, data); err != nil {
		s.logger.Error("notification persist failed", "type", models.NotificationYouWereRemovedFromProject, "error", err)
	}

	members, err := s.memberships.ProjectMembers(ctx, projectID)
	if err != nil {
		s.logger.Error("fan-out recipient lookup failed", "project", projectID, "error", err)
		return
	}
	var recipients []string
	for _, m := range members {
		if m.UserID == actor.ID || m.UserID == removedMemberID {
			continue
		}
		recipients = append(recipients, m.UserID)
	}
	s.sendAll(ctx, recipients, &actor, models.NotificationRemoveMemberFromProject, data)
}

// ListUnread returns the principal's unread notifications, newest first.
func (s *NotificationService) ListUnread(ctx context.Context, principalID string) ([]models.Notification, error) {
	notifications, err := s.notifications.ListUnread(ctx, principalID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list notifications: %v", err)
	}
	return notifications, nil
}

// MarkRead flips one notification to read. Only the recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, principalID, notificationID string) (*models.Notification, error) {
	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "notification not found")
		}
		return nil, status.Errorf(codes.Internal, "failed to get notification: %v", err)
	}
	if n.RecipientID != principalID {
		return nil, status.Error(codes.PermissionDenied, "notification belongs to another user")
	}

	updated, err := s.notifications.MarkRead(ctx, notificationID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to mark notification read: %v", err)
	}
	return updated, nil
}

// MarkAllRead flips every unread notification of the principal.
func (s *NotificationService) MarkAllRead(ctx context.Context, principalID string) (int64, error) {
	count, err := s.notifications.MarkAllRead(ctx, principalID)
	if err != nil {
		return 0, status.Errorf(codes.Internal, "failed to mark notifications read: %v", err)
	}
	return count, nil
}

// Backlog returns the bounded unread backlog replayed on reconnect: unread
// notifications from the configured window, newest first, capped.
func (s *NotificationService) Backlog(ctx context.Context, principalID string) ([]models.Notification, error) {
	since := time.Now().UTC().Add(-s.cfg.BacklogWindow)
	return s.notifications.Backlog(ctx, principalID, since, s.cfg.BacklogLimit)
}
