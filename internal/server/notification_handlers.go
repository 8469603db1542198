// internal/server/notification_handlers.go
package server

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/gurkanbulca/workhub/internal/middleware"
	"github.com/gurkanbulca/workhub/internal/models"
)

type notificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
}

type markAllReadResponse struct {
	Updated int64 `json:"updated"`
}

func (s *Server) handleUnreadNotifications(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, status.Error(codes.Unauthenticated, "not authenticated"))
		return
	}

	notifications, err := s.notifications.ListUnread(r.Context(), actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notificationListResponse{Notifications: notifications})
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, status.Error(codes.Unauthenticated, "not authenticated"))
		return
	}

	notification, err := s.notifications.MarkRead(r.Context(), actorID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, notification)
}

func (s *Server) handleMarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, status.Error(codes.Unauthenticated, "not authenticated"))
		return
	}

	updated, err := s.notifications.MarkAllRead(r.Context(), actorID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, markAllReadResponse{Updated: updated})
}
