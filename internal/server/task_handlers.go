// internal/server/task_handlers.go
package server

import (
	"net/http"
	"strconv"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gurkanbulca/workhub/internal/middleware"
	"github.com/gurkanbulca/workhub/internal/models"
	"github.com/gurkanbulca/workhub/internal/permission"
	"github.com/gurkanbulca/workhub/internal/service"
)

type createTaskRequest struct {
	SpaceID     string             `json:"spaceId"`
	ProjectID   string             `json:"projectId"`
	AssigneeID  string             `json:"assigneeId"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Priority    string             `json:"priority"`
	StartDate   *time.Time         `json:"startDate"`
	DueDate     *time.Time         `json:"dueDate"`
	Attachments models.Attachments `json:"attachments"`
}

type updateTaskRequest struct {
	Name           *string            `json:"name"`
	Description    *string            `json:"description"`
	AssigneeID     *string            `json:"assigneeId"`
	Status         *string            `json:"status"`
	Priority       *string            `json:"priority"`
	StartDate      *time.Time         `json:"startDate"`
	DueDate        *time.Time         `json:"dueDate"`
	Attachments    models.Attachments `json:"attachments"`
	NewAttachments models.Attachments `json:"newAttachments"`
}

type updateTaskResponse struct {
	*models.Task
	StatusRewritten bool `json:"statusRewritten"`
}

type reviewRequest struct {
	Comment string `json:"comment"`
}

type taskListResponse struct {
	Tasks []models.Task `json:"tasks"`
	Total int           `json:"total"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, status.Error(codes.Unauthenticated, "not authenticated"))
		return
	}

	var req createTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, status.Error(codes.InvalidArgument, "invalid request body"))
		return
	}

	task, err := s.tasks.CreateTask(r.Context(), actorID, &service.CreateTaskInput{
		SpaceID:     req.SpaceID,
		ProjectID:   req.ProjectID,
		AssigneeID:  req.AssigneeID,
		Name:        req.Name,
		Description: req.Description,
		Priority:    req.Priority,
		StartDate:   req.StartDate,
		DueDate:     req.DueDate,
		Attachments: req.Attachments,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, status.Error(codes.Unauthenticated, "not authenticated"))
		return
	}

	task, err := s.tasks.GetTask(r.Context(), actorID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, status.Error(codes.Unauthenticated, "not authenticated"))
		return
	}

	input := service.ListTasksInput{}
	input.Limit, input.Offset = pagination(r)
	if sp := r.URL.Query().Get("spaceId"); sp != "" {
		input.SpaceID = &sp
	}
	if p := r.URL.Query().Get("projectId"); p != "" {
		input.ProjectID = &p
	}
	if st := r.URL.Query().Get("status"); st != "" {
		input.Status = &st
	}
	if a := r.URL.Query().Get("assigneeId"); a != "" {
		input.AssigneeID = &a
	}

	tasks, total, err := s.tasks.ListTasks(r.Context(), actorID, input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, taskListResponse{Tasks: tasks, Total: total})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, status.Error(codes.Unauthenticated, "not authenticated"))
		return
	}

	var req updateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, status.Error(codes.InvalidArgument, "invalid request body"))
		return
	}

	result, err := s.tasks.UpdateTask(r.Context(), actorID, r.PathValue("id"), &service.UpdateTaskInput{
		Payload: permission.UpdatePayload{
			Name:        req.Name,
			Description: req.Description,
			AssigneeID:  req.AssigneeID,
			Status:      req.Status,
			Priority:    req.Priority,
			StartDate:   req.StartDate,
			DueDate:     req.DueDate,
			Attachments: req.Attachments,
		},
		NewAttachments: req.NewAttachments,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updateTaskResponse{Task: result.Task, StatusRewritten: result.StatusRewritten})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, status.Error(codes.Unauthenticated, "not authenticated"))
		return
	}

	if err := s.tasks.DeleteTask(r.Context(), actorID, r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleApproveTask(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, status.Error(codes.Unauthenticated, "not authenticated"))
		return
	}

	var req reviewRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, status.Error(codes.InvalidArgument, "invalid request body"))
			return
		}
	}
	var comment *string
	if req.Comment != "" {
		comment = &req.Comment
	}

	task, err := s.tasks.ApproveTask(r.Context(), actorID, r.PathValue("id"), comment)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleRejectTask(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, status.Error(codes.Unauthenticated, "not authenticated"))
		return
	}

	var req reviewRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, status.Error(codes.InvalidArgument, "invalid request body"))
			return
		}
	}

	task, err := s.tasks.RejectTask(r.Context(), actorID, r.PathValue("id"), req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleListPendingApproval(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, status.Error(codes.Unauthenticated, "not authenticated"))
		return
	}

	limit, offset := pagination(r)
	tasks, total, err := s.tasks.ListPendingApproval(r.Context(), actorID, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, taskListResponse{Tasks: tasks, Total: total})
}

func (s *Server) handleTaskStats(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, status.Error(codes.Unauthenticated, "not authenticated"))
		return
	}

	stats, err := s.tasks.Stats(r.Context(), actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
