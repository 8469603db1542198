// internal/service/task_service_test.go
package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gurkanbulca/workhub/internal/models"
	"github.com/gurkanbulca/workhub/internal/permission"
	"github.com/gurkanbulca/workhub/internal/repository"
)

// permissionPayload builds an update payload with only the mutated fields set.
func permissionPayload(mutate func(p *permission.UpdatePayload)) permission.UpdatePayload {
	var p permission.UpdatePayload
	mutate(&p)
	return p
}

// fixture is the standard project cast used across workflow tests.
type fixture struct {
	env      *testEnv
	spaceID  string
	project  string
	creator  *models.User // task owner, plain member
	assignee *models.User // plain member
	projOwn  *models.User // project owner
	manager  *models.User // system-wide project manager, not a member
	member   *models.User // plain member with no task relation
	outsider *models.User // no memberships at all
}

func newFixture(t *testing.T) *fixture {
	env := newTestEnv(t)
	f := &fixture{
		env:      env,
		spaceID:  "space-1",
		project:  "project-1",
		creator:  env.createUser(t, "alice", models.SystemRoleUser),
		assignee: env.createUser(t, "bob", models.SystemRoleUser),
		projOwn:  env.createUser(t, "carol", models.SystemRoleUser),
		manager:  env.createUser(t, "mallory", models.SystemRoleProjectManager),
		member:   env.createUser(t, "peter", models.SystemRoleUser),
		outsider: env.createUser(t, "eve", models.SystemRoleUser),
	}
	env.addMember(t, f.spaceID, f.project, f.creator.ID, models.RoleMember)
	env.addMember(t, f.spaceID, f.project, f.assignee.ID, models.RoleMember)
	env.addMember(t, f.spaceID, f.project, f.projOwn.ID, models.RoleOwner)
	env.addMember(t, f.spaceID, f.project, f.member.ID, models.RoleMember)
	return f
}

func (f *fixture) newTask(t *testing.T) *models.Task {
	return f.env.createTask(t, &repository.TaskInput{
		SpaceID:    f.spaceID,
		ProjectID:  f.project,
		OwnerID:    f.creator.ID,
		AssigneeID: f.assignee.ID,
		Name:       "Ship release notes",
	})
}

func (f *fixture) reload(t *testing.T, taskID string) *models.Task {
	t.Helper()
	task, err := f.env.tasks.GetByID(context.Background(), taskID)
	require.NoError(t, err)
	return task
}

func TestTaskService_CreateTask(t *testing.T) {
	tests := []struct {
		name         string
		actor        func(f *fixture) string
		input        func(f *fixture) *CreateTaskInput
		wantErr      bool
		expectedCode codes.Code
	}{
		{
			name:  "creator becomes owner and default assignee",
			actor: func(f *fixture) string { return f.creator.ID },
			input: func(f *fixture) *CreateTaskInput {
				return &CreateTaskInput{SpaceID: f.spaceID, ProjectID: f.project, Name: "Write docs"}
			},
		},
		{
			name:  "name is required",
			actor: func(f *fixture) string { return f.creator.ID },
			input: func(f *fixture) *CreateTaskInput {
				return &CreateTaskInput{SpaceID: f.spaceID, ProjectID: f.project, Name: "  "}
			},
			wantErr:      true,
			expectedCode: codes.InvalidArgument,
		},
		{
			name:  "unknown priority rejected",
			actor: func(f *fixture) string { return f.creator.ID },
			input: func(f *fixture) *CreateTaskInput {
				return &CreateTaskInput{SpaceID: f.spaceID, ProjectID: f.project, Name: "Write docs", Priority: "urgent"}
			},
			wantErr:      true,
			expectedCode: codes.InvalidArgument,
		},
		{
			name:  "non-member actor denied",
			actor: func(f *fixture) string { return f.outsider.ID },
			input: func(f *fixture) *CreateTaskInput {
				return &CreateTaskInput{SpaceID: f.spaceID, ProjectID: f.project, Name: "Write docs"}
			},
			wantErr:      true,
			expectedCode: codes.PermissionDenied,
		},
		{
			name:  "non-member assignee denied",
			actor: func(f *fixture) string { return f.creator.ID },
			input: func(f *fixture) *CreateTaskInput {
				return &CreateTaskInput{SpaceID: f.spaceID, ProjectID: f.project, Name: "Write docs", AssigneeID: f.outsider.ID}
			},
			wantErr:      true,
			expectedCode: codes.PermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			task, err := f.env.service.CreateTask(context.Background(), tt.actor(f), tt.input(f))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.expectedCode, status.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.TaskStatusPending, task.Status)
			assert.Equal(t, f.creator.ID, task.OwnerID)
			assert.Equal(t, f.creator.ID, task.AssigneeID)
			assert.Equal(t, models.PriorityMedium, task.Priority)
		})
	}
}

func TestTaskService_CreateTask_NotifiesAssigneeAndMembers(t *testing.T) {
	f := newFixture(t)

	task, err := f.env.service.CreateTask(context.Background(), f.creator.ID, &CreateTaskInput{
		SpaceID:    f.spaceID,
		ProjectID:  f.project,
		AssigneeID: f.assignee.ID,
		Name:       "Write docs",
	})
	require.NoError(t, err)
	assert.Equal(t, f.assignee.ID, task.AssigneeID)

	assigned := f.env.unreadByType(t, f.assignee.ID, models.NotificationYouWereAssignedTask)
	require.Len(t, assigned, 1)
	assert.Equal(t, task.ID, assigned[0].Data["taskId"])
	require.NotNil(t, assigned[0].ActorName)
	assert.Equal(t, f.creator.FullName, *assigned[0].ActorName)

	// Other members get the creation broadcast; actor and assignee do not.
	assert.Len(t, f.env.unreadByType(t, f.member.ID, models.NotificationCreateTask), 1)
	assert.Empty(t, f.env.unreadByType(t, f.creator.ID, models.NotificationCreateTask))
	assert.Empty(t, f.env.unreadByType(t, f.assignee.ID, models.NotificationCreateTask))
}

func TestTaskService_UpdateTask_PermissionTiers(t *testing.T) {
	tests := []struct {
		name         string
		actor        func(f *fixture) string
		input        UpdateTaskInput
		wantErr      bool
		expectedCode codes.Code
		errContains  string
	}{
		{
			name:  "task owner may edit descriptive fields",
			actor: func(f *fixture) string { return f.creator.ID },
			input: UpdateTaskInput{Payload: permissionPayload(func(p *permission.UpdatePayload) {
				p.Name = strPtr("Ship release notes v2")
				p.Priority = strPtr(models.PriorityHigh)
			})},
		},
		{
			name:  "task owner may not touch status",
			actor: func(f *fixture) string { return f.creator.ID },
			input: UpdateTaskInput{Payload: permissionPayload(func(p *permission.UpdatePayload) {
				p.Name = strPtr("Ship release notes v2")
				p.Status = strPtr(models.TaskStatusProcessing)
			})},
			wantErr:      true,
			expectedCode: codes.PermissionDenied,
			errContains:  "status",
		},
		{
			name:  "assignee may not edit descriptive fields",
			actor: func(f *fixture) string { return f.assignee.ID },
			input: UpdateTaskInput{Payload: permissionPayload(func(p *permission.UpdatePayload) {
				p.Name = strPtr("renamed")
				p.Priority = strPtr(models.PriorityLow)
			})},
			wantErr:      true,
			expectedCode: codes.PermissionDenied,
			errContains:  "name, priority",
		},
		{
			name:  "assignee may move status forward",
			actor: func(f *fixture) string { return f.assignee.ID },
			input: UpdateTaskInput{Payload: permissionPayload(func(p *permission.UpdatePayload) {
				p.Status = strPtr(models.TaskStatusProcessing)
			})},
		},
		{
			name:  "project owner may set any field",
			actor: func(f *fixture) string { return f.projOwn.ID },
			input: UpdateTaskInput{Payload: permissionPayload(func(p *permission.UpdatePayload) {
				p.Name = strPtr("owner rename")
				p.Status = strPtr(models.TaskStatusProcessing)
			})},
		},
		{
			name:  "unrelated member denied",
			actor: func(f *fixture) string { return f.member.ID },
			input: UpdateTaskInput{Payload: permissionPayload(func(p *permission.UpdatePayload) {
				p.Name = strPtr("renamed")
			})},
			wantErr:      true,
			expectedCode: codes.PermissionDenied,
		},
		{
			name:  "unknown status rejected before permission checks",
			actor: func(f *fixture) string { return f.assignee.ID },
			input: UpdateTaskInput{Payload: permissionPayload(func(p *permission.UpdatePayload) {
				p.Status = strPtr("archived")
			})},
			wantErr:      true,
			expectedCode: codes.InvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			task := f.newTask(t)

			result, err := f.env.service.UpdateTask(context.Background(), tt.actor(f), task.ID, &tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.expectedCode, status.Code(err))
				if tt.errContains != "" {
					assert.Contains(t, err.Error(), tt.errContains)
				}
				// Denied updates must not write anything.
				current := f.reload(t, task.ID)
				assert.Equal(t, task.Name, current.Name)
				assert.Equal(t, task.Status, current.Status)
				return
			}
			require.NoError(t, err)
			assert.False(t, result.StatusRewritten)
		})
	}
}

func TestTaskService_UpdateTask_CompletedRewrite(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t)

	result, err := f.env.service.UpdateTask(context.Background(), f.assignee.ID, task.ID, &UpdateTaskInput{
		Payload: permissionPayload(func(p *permission.UpdatePayload) {
			p.Status = strPtr(models.TaskStatusCompleted)
		}),
	})
	require.NoError(t, err)

	assert.True(t, result.StatusRewritten)
	assert.Equal(t, models.TaskStatusPendingApproval, result.Task.Status)
	assert.Nil(t, result.Task.CompletedAt)

	// Exactly one approval request per approver: the project owner and the
	// system-wide manager, never the submitting assignee.
	assert.Len(t, f.env.unreadByType(t, f.projOwn.ID, models.NotificationTaskPendingApproval), 1)
	assert.Len(t, f.env.unreadByType(t, f.manager.ID, models.NotificationTaskPendingApproval), 1)
	assert.Empty(t, f.env.unreadByType(t, f.assignee.ID, models.NotificationTaskPendingApproval))

	// Plus one generic update event to the task owner.
	assert.Len(t, f.env.unreadByType(t, f.creator.ID, models.NotificationUpdateTask), 1)
}

func TestTaskService_UpdateTask_ResubmitDoesNotDuplicateApprovalEvent(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t)

	submit := func() {
		_, err := f.env.service.UpdateTask(context.Background(), f.assignee.ID, task.ID, &UpdateTaskInput{
			Payload: permissionPayload(func(p *permission.UpdatePayload) {
				p.Status = strPtr(models.TaskStatusCompleted)
			}),
		})
		require.NoError(t, err)
	}
	submit()
	submit()

	assert.Len(t, f.env.unreadByType(t, f.projOwn.ID, models.NotificationTaskPendingApproval), 1)
}

func TestTaskService_UpdateTask_CompletedIsTerminalForAssignee(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t)

	// Elevated actor completes directly.
	result, err := f.env.service.UpdateTask(context.Background(), f.projOwn.ID, task.ID, &UpdateTaskInput{
		Payload: permissionPayload(func(p *permission.UpdatePayload) {
			p.Status = strPtr(models.TaskStatusCompleted)
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, result.Task.Status)
	require.NotNil(t, result.Task.CompletedAt)

	// The assignee can no longer move it.
	_, err = f.env.service.UpdateTask(context.Background(), f.assignee.ID, task.ID, &UpdateTaskInput{
		Payload: permissionPayload(func(p *permission.UpdatePayload) {
			p.Status = strPtr(models.TaskStatusProcessing)
		}),
	})
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	// An elevated actor can reopen it and completed_at clears.
	result, err = f.env.service.UpdateTask(context.Background(), f.projOwn.ID, task.ID, &UpdateTaskInput{
		Payload: permissionPayload(func(p *permission.UpdatePayload) {
			p.Status = strPtr(models.TaskStatusProcessing)
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusProcessing, result.Task.Status)
	assert.Nil(t, result.Task.CompletedAt)
}

func TestTaskService_UpdateTask_AttachmentOrder(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t)

	retained := models.Attachments{{Filename: "a.pdf", OriginalName: "a.pdf", URL: "/files/a.pdf"}}
	uploaded := models.Attachments{{Filename: "b.png", OriginalName: "b.png", URL: "/files/b.png"}}

	result, err := f.env.service.UpdateTask(context.Background(), f.assignee.ID, task.ID, &UpdateTaskInput{
		Payload:        permissionPayload(func(p *permission.UpdatePayload) { p.Attachments = retained }),
		NewAttachments: uploaded,
	})
	require.NoError(t, err)

	require.Len(t, result.Task.Attachments, 2)
	assert.Equal(t, "a.pdf", result.Task.Attachments[0].Filename)
	assert.Equal(t, "b.png", result.Task.Attachments[1].Filename)
}

func TestTaskService_UpdateTask_ReassignNotifiesNewAssignee(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t)

	result, err := f.env.service.UpdateTask(context.Background(), f.creator.ID, task.ID, &UpdateTaskInput{
		Payload: permissionPayload(func(p *permission.UpdatePayload) { p.AssigneeID = &f.member.ID }),
	})
	require.NoError(t, err)
	assert.Equal(t, f.member.ID, result.Task.AssigneeID)

	assert.Len(t, f.env.unreadByType(t, f.member.ID, models.NotificationYouWereAssignedTask), 1)
}

func TestTaskService_ApproveTask(t *testing.T) {
	tests := []struct {
		name         string
		actor        func(f *fixture) string
		pending      bool
		comment      *string
		wantErr      bool
		expectedCode codes.Code
	}{
		{
			name:    "project owner approves with comment",
			actor:   func(f *fixture) string { return f.projOwn.ID },
			pending: true,
			comment: strPtr("nice work"),
		},
		{
			name:    "manager approves without membership",
			actor:   func(f *fixture) string { return f.manager.ID },
			pending: true,
		},
		{
			name:         "assignee cannot approve",
			actor:        func(f *fixture) string { return f.assignee.ID },
			pending:      true,
			wantErr:      true,
			expectedCode: codes.PermissionDenied,
		},
		{
			name:         "task owner without project ownership cannot approve",
			actor:        func(f *fixture) string { return f.creator.ID },
			pending:      true,
			wantErr:      true,
			expectedCode: codes.PermissionDenied,
		},
		{
			name:         "approval requires pending_approval status",
			actor:        func(f *fixture) string { return f.projOwn.ID },
			pending:      false,
			wantErr:      true,
			expectedCode: codes.FailedPrecondition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			task := f.newTask(t)
			if tt.pending {
				submitted, err := f.env.tasks.SubmitForApproval(context.Background(), task.ID)
				require.NoError(t, err)
				require.True(t, submitted)
			}

			approved, err := f.env.service.ApproveTask(context.Background(), tt.actor(f), task.ID, tt.comment)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.expectedCode, status.Code(err))
				// No partial writes on failure.
				current := f.reload(t, task.ID)
				assert.Nil(t, current.ApprovedBy)
				assert.Nil(t, current.CompletedAt)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, models.TaskStatusCompleted, approved.Status)
			require.NotNil(t, approved.CompletedAt)
			require.NotNil(t, approved.ApprovedBy)
			assert.Equal(t, tt.actor(f), *approved.ApprovedBy)

			events := f.env.unreadByType(t, f.assignee.ID, models.NotificationTaskApproved)
			require.Len(t, events, 1)
			if tt.comment != nil {
				assert.Equal(t, *tt.comment, events[0].Data["comment"])
			}
		})
	}
}

func TestTaskService_RejectTask(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t)
	submitted, err := f.env.tasks.SubmitForApproval(context.Background(), task.ID)
	require.NoError(t, err)
	require.True(t, submitted)

	_, err = f.env.service.RejectTask(context.Background(), f.projOwn.ID, task.ID, "   ")
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	rejected, err := f.env.service.RejectTask(context.Background(), f.projOwn.ID, task.ID, "missing screenshots")
	require.NoError(t, err)

	// Rejection resumes work where it stopped, never back to pending.
	assert.Equal(t, models.TaskStatusProcessing, rejected.Status)
	assert.Nil(t, rejected.CompletedAt)
	require.NotNil(t, rejected.RejectedBy)
	assert.Equal(t, f.projOwn.ID, *rejected.RejectedBy)

	events := f.env.unreadByType(t, f.assignee.ID, models.NotificationTaskRejected)
	require.Len(t, events, 1)
	assert.Equal(t, "missing screenshots", events[0].Data["reason"])

	// A second reject hits the state guard.
	_, err = f.env.service.RejectTask(context.Background(), f.projOwn.ID, task.ID, "again")
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestTaskService_RejectThenResubmit(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t)

	_, err := f.env.service.UpdateTask(context.Background(), f.assignee.ID, task.ID, &UpdateTaskInput{
		Payload: permissionPayload(func(p *permission.UpdatePayload) {
			p.Status = strPtr(models.TaskStatusCompleted)
		}),
	})
	require.NoError(t, err)

	_, err = f.env.service.RejectTask(context.Background(), f.manager.ID, task.ID, "rework needed")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusProcessing, f.reload(t, task.ID).Status)

	// Resubmission after rejection fires a fresh approval broadcast.
	result, err := f.env.service.UpdateTask(context.Background(), f.assignee.ID, task.ID, &UpdateTaskInput{
		Payload: permissionPayload(func(p *permission.UpdatePayload) {
			p.Status = strPtr(models.TaskStatusCompleted)
		}),
	})
	require.NoError(t, err)
	assert.True(t, result.StatusRewritten)
	assert.Equal(t, models.TaskStatusPendingApproval, result.Task.Status)

	assert.Len(t, f.env.unreadByType(t, f.projOwn.ID, models.NotificationTaskPendingApproval), 2)
}

func TestTaskService_DeleteTask(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t)

	err := f.env.service.DeleteTask(context.Background(), f.member.ID, task.ID)
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	require.NoError(t, f.env.service.DeleteTask(context.Background(), f.assignee.ID, task.ID))

	_, err = f.env.tasks.GetByID(context.Background(), task.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// The deletion event carries the task's identity captured before removal.
	events := f.env.unreadByType(t, f.creator.ID, models.NotificationDeleteTask)
	require.Len(t, events, 1)
	assert.Equal(t, task.ID, events[0].Data["taskId"])
	assert.Equal(t, task.Name, events[0].Data["taskTitle"])
	assert.Empty(t, f.env.unreadByType(t, f.assignee.ID, models.NotificationDeleteTask))
}

func TestTaskService_ListPendingApproval_Visibility(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t)
	submitted, err := f.env.tasks.SubmitForApproval(context.Background(), task.ID)
	require.NoError(t, err)
	require.True(t, submitted)

	// A second project the fixture owner has no role in.
	otherOwner := f.env.createUser(t, "dave", models.SystemRoleUser)
	f.env.addMember(t, "space-2", "project-2", otherOwner.ID, models.RoleOwner)
	other := f.env.createTask(t, &repository.TaskInput{
		SpaceID:    "space-2",
		ProjectID:  "project-2",
		OwnerID:    otherOwner.ID,
		AssigneeID: otherOwner.ID,
		Name:       "Other project task",
	})
	submitted, err = f.env.tasks.SubmitForApproval(context.Background(), other.ID)
	require.NoError(t, err)
	require.True(t, submitted)

	// Managers see every project's queue.
	tasks, total, err := f.env.service.ListPendingApproval(context.Background(), f.manager.ID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, tasks, 2)

	// Project owners see only their own projects.
	tasks, total, err = f.env.service.ListPendingApproval(context.Background(), f.projOwn.ID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)

	// Plain members own no project: empty queue.
	tasks, total, err = f.env.service.ListPendingApproval(context.Background(), f.member.ID, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, tasks)
}

func TestTaskService_ListTasks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	mine := f.newTask(t) // creator owns, assignee assigned
	f.env.createTask(t, &repository.TaskInput{
		SpaceID:    f.spaceID,
		ProjectID:  f.project,
		OwnerID:    f.projOwn.ID,
		AssigneeID: f.projOwn.ID,
		Name:       "Someone else's task",
	})

	// Owner-or-assignee scoping.
	tasks, total, err := f.env.service.ListTasks(ctx, f.assignee.ID, ListTasksInput{Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, tasks, 1)
	assert.Equal(t, mine.ID, tasks[0].ID)

	// Status filter.
	pending := models.TaskStatusPending
	_, total, err = f.env.service.ListTasks(ctx, f.assignee.ID, ListTasksInput{Status: &pending, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	completed := models.TaskStatusCompleted
	_, total, err = f.env.service.ListTasks(ctx, f.assignee.ID, ListTasksInput{Status: &completed, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	// Unknown status rejected.
	bad := "archived"
	_, _, err = f.env.service.ListTasks(ctx, f.assignee.ID, ListTasksInput{Status: &bad, Limit: 20})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestTaskService_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.newTask(t) // pending, assigned to f.assignee
	overdue := time.Now().UTC().Add(-time.Hour)
	f.env.createTask(t, &repository.TaskInput{
		SpaceID:    f.spaceID,
		ProjectID:  f.project,
		OwnerID:    f.creator.ID,
		AssigneeID: f.assignee.ID,
		Name:       "Late task",
		DueDate:    &overdue,
	})
	f.env.createTask(t, &repository.TaskInput{
		SpaceID:    f.spaceID,
		ProjectID:  f.project,
		OwnerID:    f.projOwn.ID,
		AssigneeID: f.projOwn.ID,
		Name:       "Owner's own task",
	})

	// Plain member: only their assigned tasks count.
	stats, err := f.env.service.Stats(ctx, f.assignee.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Overdue)
	assert.Equal(t, 0, stats.Completed)

	// Project owner: every task in the project counts.
	stats, err = f.env.service.Stats(ctx, f.projOwn.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Pending)

	// No memberships at all: empty stats.
	stats, err = f.env.service.Stats(ctx, f.outsider.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Pending+stats.Processing+stats.PendingApproval+stats.Completed)
}

func TestTaskService_GetTask_AccessControl(t *testing.T) {
	f := newFixture(t)
	task := f.newTask(t)

	got, err := f.env.service.GetTask(context.Background(), f.assignee.ID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)

	_, err = f.env.service.GetTask(context.Background(), f.member.ID, task.ID)
	require.Error(t, err)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = f.env.service.GetTask(context.Background(), f.creator.ID, "no-such-task")
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(err))
}
