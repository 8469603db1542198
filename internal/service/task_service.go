// internal/service/task_service.go
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gurkanbulca/workhub/internal/config"
	"github.com/gurkanbulca/workhub/internal/models"
	"github.com/gurkanbulca/workhub/internal/permission"
	"github.com/gurkanbulca/workhub/internal/repository"
)

// TaskService orchestrates the task lifecycle: create, permission-filtered
// update with the submit-for-review rewrite, approve, reject and delete, each
// followed by its notification fan-out. The task store write always commits
// before notification persistence begins; delivery never blocks the caller.
type TaskService struct {
	tasks       *repository.TaskRepository
	memberships *repository.MembershipRepository
	users       *repository.UserRepository
	notifier    *NotificationService
	cfg         config.WorkflowConfig
}

func NewTaskService(
	tasks *repository.TaskRepository,
	memberships *repository.MembershipRepository,
	users *repository.UserRepository,
	notifier *NotificationService,
	cfg config.WorkflowConfig,
) *TaskService {
	return &TaskService{
		tasks:       tasks,
		memberships: memberships,
		users:       users,
		notifier:    notifier,
		cfg:         cfg,
	}
}

type CreateTaskInput struct {
	SpaceID     string
	ProjectID   string
	AssigneeID  string // empty means the creator
	Name        string
	Description string
	Priority    string
	StartDate   *time.Time
	DueDate     *time.Time
	Attachments models.Attachments
}

// UpdateTaskInput carries the client payload plus any files uploaded in this
// request. Uploaded files are appended after the retained attachments.
type UpdateTaskInput struct {
	Payload        permission.UpdatePayload
	NewAttachments models.Attachments
}

// UpdateResult reports the persisted task and whether an assignee-requested
// COMPLETED was reinterpreted as PENDING_APPROVAL, so callers can surface the
// mismatch between requested and persisted status.
type UpdateResult struct {
	Task            *models.Task
	StatusRewritten bool
}

// resolvePrincipal turns an actor ID into a resolved principal exactly once,
// at the workflow boundary. Deeper helpers receive the value.
func (s *TaskService) resolvePrincipal(ctx context.Context, actorID string) (models.Principal, error) {
	user, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.Principal{}, status.Error(codes.NotFound, "user not found")
		}
		return models.Principal{}, status.Errorf(codes.Internal, "failed to resolve actor: %v", err)
	}
	return models.Principal{ID: user.ID, Name: user.FullName, SystemRole: user.SystemRole}, nil
}

func (s *TaskService) roles(ctx context.Context, spaceID, projectID, userID string) (spaceRole, projectRole string, err error) {
	spaceRole, err = s.memberships.SpaceRole(ctx, spaceID, userID)
	if err != nil {
		return "", "", status.Errorf(codes.Internal, "failed to resolve space role: %v", err)
	}
	projectRole, err = s.memberships.ProjectRole(ctx, projectID, userID)
	if err != nil {
		return "", "", status.Errorf(codes.Internal, "failed to resolve project role: %v", err)
	}
	return spaceRole, projectRole, nil
}

// requireMembership checks that a user belongs to both the space and project.
func (s *TaskService) requireMembership(ctx context.Context, spaceID, projectID, userID, who string) error {
	spaceRole, projectRole, err := s.roles(ctx, spaceID, projectID, userID)
	if err != nil {
		return err
	}
	if spaceRole == "" {
		return status.Errorf(codes.PermissionDenied, "%s is not a member of the space", who)
	}
	if projectRole == "" {
		return status.Errorf(codes.PermissionDenied, "%s is not a member of the project", who)
	}
	return nil
}

// CreateTask creates a task with default status pending. The creator becomes
// the owner; the assignee defaults to the creator and, when distinct, must be
// a member of the space and project too.
func (s *TaskService) CreateTask(ctx context.Context, actorID string, input *CreateTaskInput) (*models.Task, error) {
	if input.SpaceID == "" || input.ProjectID == "" {
		return nil, status.Error(codes.InvalidArgument, "space and project are required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	if input.Priority != "" && !validPriority(input.Priority) {
		return nil, status.Errorf(codes.InvalidArgument, "unknown priority %q", input.Priority)
	}

	actor, err := s.resolvePrincipal(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if err := s.requireMembership(ctx, input.SpaceID, input.ProjectID, actor.ID, "actor"); err != nil {
		return nil, err
	}

	assigneeID := input.AssigneeID
	if assigneeID == "" {
		assigneeID = actor.ID
	}
	if assigneeID != actor.ID {
		if err := s.requireMembership(ctx, input.SpaceID, input.ProjectID, assigneeID, "assignee"); err != nil {
			return nil, err
		}
	}

	task, err := s.tasks.Create(ctx, &repository.TaskInput{
		SpaceID:     input.SpaceID,
		ProjectID:   input.ProjectID,
		OwnerID:     actor.ID,
		AssigneeID:  assigneeID,
		Name:        input.Name,
		Description: input.Description,
		Priority:    input.Priority,
		StartDate:   input.StartDate,
		DueDate:     input.DueDate,
		Attachments: input.Attachments,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to create task: %v", err)
	}

	s.notifier.NotifyTaskCreated(ctx, task, actor)

	return task, nil
}

// GetTask returns a task to any principal with a relation to it.
func (s *TaskService) GetTask(ctx context.Context, actorID, taskID string) (*models.Task, error) {
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	spaceRole, projectRole, err := s.roles(ctx, task.SpaceID, task.ProjectID, actorID)
	if err != nil {
		return nil, err
	}
	if _, err := permission.Decide(task, actorID, spaceRole, projectRole); err != nil {
		return nil, err
	}

	return task, nil
}

// ListTasksInput narrows the principal's task list. All filters optional.
type ListTasksInput struct {
	SpaceID    *string
	ProjectID  *string
	Status     *string
	AssigneeID *string
	Limit      int
	Offset     int
}

// ListTasks returns tasks the principal owns or is assigned to.
func (s *TaskService) ListTasks(ctx context.Context, actorID string, input ListTasksInput) ([]models.Task, int, error) {
	if input.Status != nil && !models.ValidTaskStatus(*input.Status) {
		return nil, 0, status.Errorf(codes.InvalidArgument, "unknown status %q", *input.Status)
	}

	filter := repository.ListFilter{
		UserID:     &actorID,
		SpaceID:    input.SpaceID,
		ProjectID:  input.ProjectID,
		Status:     input.Status,
		AssigneeID: input.AssigneeID,
		Limit:      input.Limit,
		Offset:     input.Offset,
	}
	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, status.Errorf(codes.Internal, "failed to list tasks: %v", err)
	}
	return tasks, total, nil
}

// UpdateTask applies a permission-filtered update. An assignee submitting
// status=COMPLETED is reinterpreted as a submission for review: the persisted
// status is PENDING_APPROVAL and the approvers are notified. The result flags
// the rewrite so the thin API layer can report it.
func (s *TaskService) UpdateTask(ctx context.Context, actorID, taskID string, input *UpdateTaskInput) (*UpdateResult, error) {
	payload := &input.Payload

	if payload.Status != nil && !models.ValidTaskStatus(*payload.Status) {
		return nil, status.Errorf(codes.InvalidArgument, "unknown status %q", *payload.Status)
	}
	if payload.Priority != nil && !validPriority(*payload.Priority) {
		return nil, status.Errorf(codes.InvalidArgument, "unknown priority %q", *payload.Priority)
	}

	actor, err := s.resolvePrincipal(ctx, actorID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	spaceRole, projectRole, err := s.roles(ctx, task.SpaceID, task.ProjectID, actor.ID)
	if err != nil {
		return nil, err
	}
	decision, err := permission.Decide(task, actor.ID, spaceRole, projectRole)
	if err != nil {
		return nil, err
	}

	filtered, rewritten, err := permission.FilterUpdate(decision, payload)
	if err != nil {
		return nil, err
	}

	// Attachments are append-only across requests: the payload lists what the
	// client keeps, new uploads go after them.
	if filtered.Attachments != nil || len(input.NewAttachments) > 0 {
		merged := make(models.Attachments, 0, len(filtered.Attachments)+len(input.NewAttachments))
		merged = append(merged, filtered.Attachments...)
		merged = append(merged, input.NewAttachments...)
		filtered.Attachments = merged
	}

	// Completed is terminal unless an elevated actor reopens it and the
	// deployer allows that.
	if task.Status == models.TaskStatusCompleted && filtered.Status != nil && *filtered.Status != models.TaskStatusCompleted && !rewritten {
		if !decision.Elevated() || !s.cfg.AllowReopenCompleted {
			return nil, status.Error(codes.FailedPrecondition, "task is already completed")
		}
	}

	if rewritten {
		return s.submitForApproval(ctx, task, actor, filtered)
	}

	newAssignee := filtered.AssigneeID != nil && *filtered.AssigneeID != task.AssigneeID
	if newAssignee {
		if err := s.requireMembership(ctx, task.SpaceID, task.ProjectID, *filtered.AssigneeID, "assignee"); err != nil {
			return nil, err
		}
	}
	statusChanged := filtered.Status != nil && *filtered.Status != task.Status

	updated, err := s.applyUpdate(ctx, task.ID, filtered)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyTaskUpdated(ctx, updated, actor, changedFields(filtered))
	if statusChanged {
		s.notifier.NotifyTaskStatusChanged(ctx, updated, updated.Status, actor)
	}
	if newAssignee {
		s.notifier.NotifyTaskAssigned(ctx, updated, actor)
	}

	return &UpdateResult{Task: updated}, nil
}

// submitForApproval performs the rewritten status write through the store's
// conditional update, so two racing submissions cannot both fire the approver
// broadcast.
func (s *TaskService) submitForApproval(ctx context.Context, task *models.Task, actor models.Principal, filtered *permission.UpdatePayload) (*UpdateResult, error) {
	submitted, err := s.tasks.SubmitForApproval(ctx, task.ID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to submit task for approval: %v", err)
	}

	if !submitted {
		current, err := s.loadTask(ctx, task.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == models.TaskStatusCompleted {
			return nil, status.Error(codes.FailedPrecondition, "task is already completed")
		}
		// Already pending approval: apply the rest of the payload but do not
		// fire a second approver broadcast.
		filtered.Status = nil
		updated, err := s.applyUpdate(ctx, task.ID, filtered)
		if err != nil {
			return nil, err
		}
		s.notifier.NotifyTaskUpdated(ctx, updated, actor, changedFields(filtered))
		return &UpdateResult{Task: updated, StatusRewritten: true}, nil
	}

	// Status is applied; persist any remaining fields (attachments).
	filtered.Status = nil
	updated, err := s.applyUpdate(ctx, task.ID, filtered)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyTaskPendingApproval(ctx, updated, actor)
	s.notifier.NotifyTaskUpdated(ctx, updated, actor, append(changedFields(filtered), "status"))

	return &UpdateResult{Task: updated, StatusRewritten: true}, nil
}

// ApproveTask completes a pending-approval task. Approvers are project
// managers (system-wide) and the project's owners.
func (s *TaskService) ApproveTask(ctx context.Context, actorID, taskID string, comment *string) (*models.Task, error) {
	actor, err := s.resolvePrincipal(ctx, actorID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusPendingApproval {
		return nil, status.Error(codes.FailedPrecondition, "task is not pending approval")
	}

	if err := s.requireApprover(ctx, task, actor, "approve"); err != nil {
		return nil, err
	}

	approved, err := s.tasks.Approve(ctx, task.ID, actor.ID, comment)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to approve task: %v", err)
	}
	if !approved {
		// Lost a race with another approve/reject.
		return nil, status.Error(codes.FailedPrecondition, "task is not pending approval")
	}

	updated, err := s.loadTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyTaskApproved(ctx, updated, actor)

	return updated, nil
}

// RejectTask sends a pending-approval task back to processing with a
// mandatory reason. Processing, not pending: work resumes where it stopped.
func (s *TaskService) RejectTask(ctx context.Context, actorID, taskID, reason string) (*models.Task, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, status.Error(codes.InvalidArgument, "rejection reason is required")
	}

	actor, err := s.resolvePrincipal(ctx, actorID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != models.TaskStatusPendingApproval {
		return nil, status.Error(codes.FailedPrecondition, "task is not pending approval")
	}

	if err := s.requireApprover(ctx, task, actor, "reject"); err != nil {
		return nil, err
	}

	rejected, err := s.tasks.Reject(ctx, task.ID, actor.ID, reason)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to reject task: %v", err)
	}
	if !rejected {
		return nil, status.Error(codes.FailedPrecondition, "task is not pending approval")
	}

	updated, err := s.loadTask(ctx, task.ID)
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyTaskRejected(ctx, updated, actor, reason)

	return updated, nil
}

// DeleteTask removes a task. The deletion fan-out is computed and persisted
// before the row disappears, because project/space references are not
// derivable afterwards.
func (s *TaskService) DeleteTask(ctx context.Context, actorID, taskID string) error {
	actor, err := s.resolvePrincipal(ctx, actorID)
	if err != nil {
		return err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return err
	}

	spaceRole, projectRole, err := s.roles(ctx, task.SpaceID, task.ProjectID, actor.ID)
	if err != nil {
		return err
	}
	decision, err := permission.Decide(task, actor.ID, spaceRole, projectRole)
	if err != nil {
		return err
	}
	if !permission.CanDelete(decision) {
		return status.Error(codes.PermissionDenied, "permission denied")
	}

	s.notifier.NotifyTaskDeleted(ctx, task.ID, task.Name, task.ProjectID, task.SpaceID, actor)

	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return status.Error(codes.NotFound, "task not found")
		}
		return status.Errorf(codes.Internal, "failed to delete task: %v", err)
	}

	return nil
}

// ListPendingApproval returns the approval queue visible to the actor:
// managers see every project, project owners only their own.
func (s *TaskService) ListPendingApproval(ctx context.Context, actorID string, limit, offset int) ([]models.Task, int, error) {
	actor, err := s.resolvePrincipal(ctx, actorID)
	if err != nil {
		return nil, 0, err
	}

	var projectIDs []string
	if !actor.IsManager() {
		projectIDs, err = s.memberships.OwnedProjectIDs(ctx, actor.ID)
		if err != nil {
			return nil, 0, status.Errorf(codes.Internal, "failed to list owned projects: %v", err)
		}
		if projectIDs == nil {
			projectIDs = []string{}
		}
	}

	tasks, total, err := s.tasks.ListPendingApproval(ctx, projectIDs, limit, offset)
	if err != nil {
		return nil, 0, status.Errorf(codes.Internal, "failed to list pending approval tasks: %v", err)
	}
	return tasks, total, nil
}

// Stats aggregates task counts for the actor across their projects.
func (s *TaskService) Stats(ctx context.Context, actorID string) (*repository.TaskStats, error) {
	memberships, err := s.memberships.Memberships(ctx, actorID)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to list memberships: %v", err)
	}

	var ownerProjects, memberProjects []string
	for _, m := range memberships {
		if m.Role == models.RoleOwner {
			ownerProjects = append(ownerProjects, m.ProjectID)
		} else {
			memberProjects = append(memberProjects, m.ProjectID)
		}
	}

	stats, err := s.tasks.Stats(ctx, actorID, ownerProjects, memberProjects)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to compute stats: %v", err)
	}
	return stats, nil
}

func (s *TaskService) loadTask(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "task not found")
		}
		return nil, status.Errorf(codes.Internal, "failed to get task: %v", err)
	}
	return task, nil
}

func (s *TaskService) requireApprover(ctx context.Context, task *models.Task, actor models.Principal, verb string) error {
	if actor.IsManager() {
		return nil
	}
	projectRole, err := s.memberships.ProjectRole(ctx, task.ProjectID, actor.ID)
	if err != nil {
		return status.Errorf(codes.Internal, "failed to resolve project role: %v", err)
	}
	if projectRole != models.RoleOwner {
		return status.Errorf(codes.PermissionDenied, "you do not have permission to %s this task", verb)
	}
	return nil
}

func (s *TaskService) applyUpdate(ctx context.Context, taskID string, payload *permission.UpdatePayload) (*models.Task, error) {
	updated, err := s.tasks.Update(ctx, taskID, &repository.TaskUpdateInput{
		Name:        payload.Name,
		Description: payload.Description,
		AssigneeID:  payload.AssigneeID,
		Status:      payload.Status,
		Priority:    payload.Priority,
		StartDate:   payload.StartDate,
		DueDate:     payload.DueDate,
		Attachments: payload.Attachments,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "task not found")
		}
		return nil, status.Errorf(codes.Internal, "failed to update task: %v", err)
	}
	return updated, nil
}

func changedFields(payload *permission.UpdatePayload) []string {
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
	if payload.Status != nil {
		fields = append(fields, "status")
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
	if payload.Attachments != nil {
		fields = append(fields, "attachments")
	}
	return fields
}

func validPriority(p string) bool {
	switch p {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return true
	}
	return false
}
