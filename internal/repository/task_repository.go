// internal/repository/task_repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gurkanbulca/workhub/internal/models"
)

type TaskRepository struct {
	db *sqlx.DB
}

func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{
		db: db,
	}
}

func (r *TaskRepository) Create(ctx context.Context, input *TaskInput) (*models.Task, error) {
	now := time.Now().UTC()
	task := &models.Task{
		ID:          uuid.New().String(),
		SpaceID:     input.SpaceID,
		ProjectID:   input.ProjectID,
		OwnerID:     input.OwnerID,
		AssigneeID:  input.AssigneeID,
		Name:        input.Name,
		Description: input.Description,
		Status:      models.TaskStatusPending,
		Priority:    input.Priority,
		StartDate:   input.StartDate,
		DueDate:     input.DueDate,
		Attachments: input.Attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Attachments == nil {
		task.Attachments = models.Attachments{}
	}

	query := r.db.Rebind(`
		INSERT INTO tasks (
			id, space_id, project_id, owner_id, assignee_id,
			name, description, status, priority,
			start_date, due_date, attachments, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.SpaceID, task.ProjectID, task.OwnerID, task.AssigneeID,
		task.Name, task.Description, task.Status, task.Priority,
		task.StartDate, task.DueDate, task.Attachments, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	return task, nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	query := r.db.Rebind("SELECT * FROM tasks WHERE id = ?")
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &task, nil
}

// Update applies the given partial input. The completed_at column is kept in
// lock step with status: set when status becomes completed, cleared when
// status moves anywhere else.
func (r *TaskRepository) Update(ctx context.Context, id string, input *TaskUpdateInput) (*models.Task, error) {
	var sets []string
	var args []any

	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if input.Name != nil {
		add("name", *input.Name)
	}
	if input.Description != nil {
		add("description", *input.Description)
	}
	if input.AssigneeID != nil {
		add("assignee_id", *input.AssigneeID)
	}
	if input.Priority != nil {
		add("priority", *input.Priority)
	}
	if input.StartDate != nil {
		add("start_date", *input.StartDate)
	}
	if input.DueDate != nil {
		add("due_date", *input.DueDate)
	}
	if input.Attachments != nil {
		add("attachments", input.Attachments)
	}
	if input.Status != nil {
		add("status", *input.Status)
		if *input.Status == models.TaskStatusCompleted {
			add("completed_at", time.Now().UTC())
		} else {
			sets = append(sets, "completed_at = NULL")
		}
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	add("updated_at", time.Now().UTC())
	args = append(args, id)

	query := r.db.Rebind(fmt.Sprintf(
		"UPDATE tasks SET %s WHERE id = ?", strings.Join(sets, ", "),
	))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// SubmitForApproval conditionally rewrites a task into pending_approval. The
// status guard makes the write atomic: two concurrent submissions cannot both
// observe a pre-rewrite status and the second one reports false.
func (r *TaskRepository) SubmitForApproval(ctx context.Context, id string) (bool, error) {
	query := r.db.Rebind(`
		UPDATE tasks
		SET status = ?, completed_at = NULL, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`)
	result, err := r.db.ExecContext(ctx, query,
		models.TaskStatusPendingApproval, time.Now().UTC(), id,
		models.TaskStatusPending, models.TaskStatusProcessing,
	)
	if err != nil {
		return false, fmt.Errorf("submitting task %s for approval: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Approve completes a task if and only if it is still pending approval, so a
// retried approve (or one racing a reject) fails cleanly instead of
// double-applying.
func (r *TaskRepository) Approve(ctx context.Context, id, approverID string, comment *string) (bool, error) {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE tasks
		SET status = ?, completed_at = ?, approved_by = ?, approved_at = ?, review_comment = ?, updated_at = ?
		WHERE id = ? AND status = ?`)
	result, err := r.db.ExecContext(ctx, query,
		models.TaskStatusCompleted, now, approverID, now, comment, now,
		id, models.TaskStatusPendingApproval,
	)
	if err != nil {
		return false, fmt.Errorf("approving task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// Reject sends a pending-approval task back to processing. Work resumes, it
// does not restart.
func (r *TaskRepository) Reject(ctx context.Context, id, rejecterID, reason string) (bool, error) {
	now := time.Now().UTC()
	query := r.db.Rebind(`
		UPDATE tasks
		SET status = ?, completed_at = NULL, rejected_by = ?, rejected_at = ?, review_comment = ?, updated_at = ?
		WHERE id = ? AND status = ?`)
	result, err := r.db.ExecContext(ctx, query,
		models.TaskStatusProcessing, rejecterID, now, reason, now,
		id, models.TaskStatusPendingApproval,
	)
	if err != nil {
		return false, fmt.Errorf("rejecting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	query := r.db.Rebind("DELETE FROM tasks WHERE id = ?")
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TaskRepository) List(ctx context.Context, filter ListFilter) ([]models.Task, int, error) {
	var conds []string
	var args []any

	if filter.UserID != nil {
		conds = append(conds, "(owner_id = ? OR assignee_id = ?)")
		args = append(args, *filter.UserID, *filter.UserID)
	}
	if filter.SpaceID != nil {
		conds = append(conds, "space_id = ?")
		args = append(args, *filter.SpaceID)
	}
	if filter.ProjectID != nil {
		conds = append(conds, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.AssigneeID != nil {
		conds = append(conds, "assignee_id = ?")
		args = append(args, *filter.AssigneeID)
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	countQuery := r.db.Rebind("SELECT COUNT(*) FROM tasks" + where)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("counting tasks: %w", err)
	}

	query := "SELECT * FROM tasks" + where + " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("querying tasks: %w", err)
	}

	return tasks, total, nil
}

// ListPendingApproval returns pending-approval tasks, newest first. A nil
// projectIDs means no project restriction (manager view); an empty non-nil
// slice yields no rows (project owner with nothing owned).
func (r *TaskRepository) ListPendingApproval(ctx context.Context, projectIDs []string, limit, offset int) ([]models.Task, int, error) {
	conds := []string{"status = ?"}
	args := []any{models.TaskStatusPendingApproval}

	if projectIDs != nil {
		if len(projectIDs) == 0 {
			return []models.Task{}, 0, nil
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(projectIDs)), ", ")
		conds = append(conds, "project_id IN ("+placeholders+")")
		for _, id := range projectIDs {
			args = append(args, id)
		}
	}

	where := " WHERE " + strings.Join(conds, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind("SELECT COUNT(*) FROM tasks"+where), args...); err != nil {
		return nil, 0, fmt.Errorf("counting pending approval tasks: %w", err)
	}

	query := "SELECT * FROM tasks" + where + " ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	if offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", offset)
	}

	var tasks []models.Task
	if err := r.db.SelectContext(ctx, &tasks, r.db.Rebind(query), args...); err != nil {
		return nil, 0, fmt.Errorf("querying pending approval tasks: %w", err)
	}

	return tasks, total, nil
}

// Stats counts tasks by status for one user: every task in projects they own,
// plus their assigned tasks in projects where they are a plain member.
func (r *TaskRepository) Stats(ctx context.Context, userID string, ownerProjectIDs, memberProjectIDs []string) (*TaskStats, error) {
	stats := &TaskStats{}
	if len(ownerProjectIDs) == 0 && len(memberProjectIDs) == 0 {
		return stats, nil
	}

	var conds []string
	var args []any

	if len(ownerProjectIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ownerProjectIDs)), ", ")
		conds = append(conds, "project_id IN ("+placeholders+")")
		for _, id := range ownerProjectIDs {
			args = append(args, id)
		}
	}
	if len(memberProjectIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(memberProjectIDs)), ", ")
		conds = append(conds, "(project_id IN ("+placeholders+") AND assignee_id = ?)")
		for _, id := range memberProjectIDs {
			args = append(args, id)
		}
		args = append(args, userID)
	}

	query := "SELECT status, due_date FROM tasks WHERE " + strings.Join(conds, " OR ")
	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("querying task stats: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	for rows.Next() {
		var status string
		var dueDate *time.Time
		if err := rows.Scan(&status, &dueDate); err != nil {
			return nil, fmt.Errorf("scanning task stats row: %w", err)
		}
		switch status {
		case models.TaskStatusPending:
			stats.Pending++
		case models.TaskStatusProcessing:
			stats.Processing++
		case models.TaskStatusPendingApproval:
			stats.PendingApproval++
		case models.TaskStatusCompleted:
			stats.Completed++
		}
		if dueDate != nil && dueDate.Before(now) &&
			(status == models.TaskStatusPending || status == models.TaskStatusProcessing) {
			stats.Overdue++
		}
	}

	return stats, rows.Err()
}

// Types for repository input
type TaskInput struct {
	SpaceID     string
	ProjectID   string
	OwnerID     string
	AssigneeID  string
	Name        string
	Description string
	Priority    string
	StartDate   *time.Time
	DueDate     *time.Time
	Attachments models.Attachments
}

type TaskUpdateInput struct {
	Name        *string
	Description *string
	AssigneeID  *string
	Status      *string
	Priority    *string
	StartDate   *time.Time
	DueDate     *time.Time
	Attachments models.Attachments
}

type ListFilter struct {
	UserID     *string // owner or assignee
	SpaceID    *string
	ProjectID  *string
	Status     *string
	AssigneeID *string
	Limit      int
	Offset     int
}

type TaskStats struct {
	Pending         int `json:"pending"`
	Processing      int `json:"processing"`
	PendingApproval int `json:"pendingApproval"`
	Completed       int `json:"completed"`
	Overdue         int `json:"overdue"`
}
