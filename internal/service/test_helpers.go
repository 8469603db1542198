// internal/service/test_helpers.go
package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/workhub/internal/config"
	"github.com/gurkanbulca/workhub/internal/database"
	"github.com/gurkanbulca/workhub/internal/models"
	"github.com/gurkanbulca/workhub/internal/repository"
)

// deliveryRecorder captures delivery pushes so tests can assert on them
// without a live websocket hub. Pushes are asynchronous; tests that need
// ordering assert on the persisted rows instead.
type deliveryRecorder struct {
	mu   sync.Mutex
	sent []deliveredNotification
}

type deliveredNotification struct {
	RecipientID  string
	Notification *models.Notification
}

func (d *deliveryRecorder) SendNotification(recipientID string, n *models.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, deliveredNotification{RecipientID: recipientID, Notification: n})
}

type testEnv struct {
	db            *sqlx.DB
	tasks         *repository.TaskRepository
	notifications *repository.NotificationRepository
	memberships   *repository.MembershipRepository
	users         *repository.UserRepository
	notifier      *NotificationService
	service       *TaskService
	delivery      *deliveryRecorder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(database.Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	delivery := &deliveryRecorder{}

	taskRepo := repository.NewTaskRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	membershipRepo := repository.NewMembershipRepository(db)
	userRepo := repository.NewUserRepository(db)

	notifier := NewNotificationService(
		notificationRepo,
		membershipRepo,
		userRepo,
		delivery,
		config.NotificationConfig{BacklogWindow: 24 * time.Hour, BacklogLimit: 10},
		logger,
	)
	svc := NewTaskService(
		taskRepo,
		membershipRepo,
		userRepo,
		notifier,
		config.WorkflowConfig{AllowReopenCompleted: true},
	)

	return &testEnv{
		db:            db,
		tasks:         taskRepo,
		notifications: notificationRepo,
		memberships:   membershipRepo,
		users:         userRepo,
		notifier:      notifier,
		service:       svc,
		delivery:      delivery,
	}
}

func (env *testEnv) createUser(t *testing.T, name, systemRole string) *models.User {
	t.Helper()
	user, err := env.users.Create(context.Background(), &repository.UserInput{
		Email:      name + "@example.com",
		FullName:   name,
		SystemRole: systemRole,
	})
	require.NoError(t, err)
	return user
}

func (env *testEnv) addMember(t *testing.T, spaceID, projectID, userID, role string) {
	t.Helper()
	require.NoError(t, env.memberships.AddSpaceMember(context.Background(), spaceID, userID, role))
	require.NoError(t, env.memberships.AddProjectMember(context.Background(), projectID, userID, role))
}

func (env *testEnv) createTask(t *testing.T, input *repository.TaskInput) *models.Task {
	t.Helper()
	task, err := env.tasks.Create(context.Background(), input)
	require.NoError(t, err)
	return task
}

// unreadByType filters a recipient's unread notifications to one event type.
func (env *testEnv) unreadByType(t *testing.T, recipientID, typ string) []models.Notification {
	t.Helper()
	all, err := env.notifications.ListUnread(context.Background(), recipientID)
	require.NoError(t, err)
	var filtered []models.Notification
	for _, n := range all {
		if n.Type == typ {
			filtered = append(filtered, n)
		}
	}
	return filtered
}

func strPtr(s string) *string { return &s }
