// internal/server/server.go
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gurkanbulca/workhub/internal/middleware"
	"github.com/gurkanbulca/workhub/internal/realtime"
	"github.com/gurkanbulca/workhub/internal/service"
)

// Server is the HTTP layer over the workflow and notification services. It
// owns no business rules: handlers decode, delegate and map errors to statuses.
type Server struct {
	tasks         *service.TaskService
	notifications *service.NotificationService
	gateway       *realtime.Gateway
	authMW        *middleware.AuthMiddleware
	logger        *slog.Logger
}

func New(
	tasks *service.TaskService,
	notifications *service.NotificationService,
	gateway *realtime.Gateway,
	authMW *middleware.AuthMiddleware,
	logger *slog.Logger,
) *Server {
	return &Server{
		tasks:         tasks,
		notifications: notifications,
		gateway:       gateway,
		authMW:        authMW,
		logger:        logger,
	}
}

// Handler builds the route table. Everything except /ws and /health sits
// behind the bearer auth middleware; the websocket gateway authenticates
// during its own handshake.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.Handle("GET /ws", s.gateway.Handler())

	api := http.NewServeMux()
	api.HandleFunc("POST /tasks", s.handleCreateTask)
	api.HandleFunc("GET /tasks", s.handleListTasks)
	api.HandleFunc("GET /tasks/stats", s.handleTaskStats)
	api.HandleFunc("GET /tasks/pending-approval", s.handleListPendingApproval)
	api.HandleFunc("GET /tasks/{id}", s.handleGetTask)
	api.HandleFunc("PATCH /tasks/{id}", s.handleUpdateTask)
	api.HandleFunc("DELETE /tasks/{id}", s.handleDeleteTask)
	api.HandleFunc("POST /tasks/{id}/approve", s.handleApproveTask)
	api.HandleFunc("POST /tasks/{id}/reject", s.handleRejectTask)
	api.HandleFunc("GET /notifications/unread", s.handleUnreadNotifications)
	api.HandleFunc("PATCH /notifications/{id}/read", s.handleMarkNotificationRead)
	api.HandleFunc("POST /notifications/read-all", s.handleMarkAllNotificationsRead)

	mux.Handle("/", s.authMW.Wrap(api))

	return s.logRequests(mux)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
