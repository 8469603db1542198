package realtime

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gurkanbulca/workhub/internal/models"
)

type fakeConn struct {
	mu      sync.Mutex
	events  []Event
	sendErr error
	closed  bool
}

func (c *fakeConn) Send(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, event)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHub() *Hub {
	return NewHub(testLogger())
}

func TestHub_RegisterAndSend(t *testing.T) {
	hub := newTestHub()
	c1 := &fakeConn{}
	c2 := &fakeConn{}

	hub.Register("user-1", c1)
	hub.Register("user-1", c2)
	assert.True(t, hub.Online("user-1"))
	assert.Equal(t, 2, hub.Connections("user-1"))

	// Every connection of the principal gets the event.
	hub.Send("user-1", Event{Type: "notification"})
	assert.Len(t, c1.received(), 1)
	assert.Len(t, c2.received(), 1)

	// Other principals hear nothing.
	other := &fakeConn{}
	hub.Register("user-2", other)
	hub.Send("user-1", Event{Type: "notification"})
	assert.Empty(t, other.received())
}

func TestHub_SendToOfflinePrincipalIsNoop(t *testing.T) {
	hub := newTestHub()
	hub.Send("nobody", Event{Type: "notification"})
	assert.False(t, hub.Online("nobody"))
}

func TestHub_UnregisterLastConnectionMeansOffline(t *testing.T) {
	hub := newTestHub()
	c := &fakeConn{}

	hub.Register("user-1", c)
	hub.Unregister("user-1", c)
	assert.False(t, hub.Online("user-1"))

	// Double unregister is harmless.
	hub.Unregister("user-1", c)
}

func TestHub_FailedSendDropsConnection(t *testing.T) {
	hub := newTestHub()
	healthy := &fakeConn{}
	broken := &fakeConn{sendErr: errors.New("write: broken pipe")}

	hub.Register("user-1", healthy)
	hub.Register("user-1", broken)

	hub.Send("user-1", Event{Type: "notification"})

	assert.True(t, broken.closed)
	assert.Equal(t, 1, hub.Connections("user-1"))
	assert.Len(t, healthy.received(), 1)
}

func TestHub_SendNotificationWrapsEnvelope(t *testing.T) {
	hub := newTestHub()
	c := &fakeConn{}
	hub.Register("user-1", c)

	n := &models.Notification{ID: "n-1", RecipientID: "user-1", Type: models.NotificationUpdateTask}
	hub.SendNotification("user-1", n)

	events := c.received()
	require.Len(t, events, 1)
	assert.Equal(t, "notification", events[0].Type)
	assert.Equal(t, n, events[0].Payload)
}

func TestHub_ConcurrentRegisterAndSend(t *testing.T) {
	hub := newTestHub()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := &fakeConn{}
			hub.Register("user-1", c)
			hub.Unregister("user-1", c)
		}()
		go func() {
			defer wg.Done()
			hub.Send("user-1", Event{Type: "notification"})
		}()
	}
	wg.Wait()

	assert.False(t, hub.Online("user-1"))
}
