package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"food-ordering-api/access"
	"food-ordering-api/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr(v uint) *uint { return &v }

var (
	customer = access.Caller{AccountID: 10, Role: models.RoleCustomer}
	staffA   = access.Caller{AccountID: 20, Role: models.RoleStaff, RestaurantID: ptr(1)}
	staffB   = access.Caller{AccountID: 30, Role: models.RoleStaff, RestaurantID: ptr(2)}
	root     = access.Caller{AccountID: 1, Role: models.RoleSuperAdmin}
)

func TestCanSee(t *testing.T) {
	m := &models.Message{SenderID: 10, RestaurantID: 1}
	assert.True(t, canSee(customer, m))
	assert.True(t, canSee(staffA, m))
	assert.False(t, canSee(staffB, m))
	assert.True(t, canSee(root, m))
	assert.False(t, canSee(access.Caller{AccountID: 11, Role: models.RoleCustomer}, m))

	direct := &models.Message{SenderID: 20, ReceiverID: ptr(11), RestaurantID: 1}
	assert.True(t, canSee(access.Caller{AccountID: 11, Role: models.RoleCustomer}, direct))
	assert.False(t, canSee(customer, direct))
	assert.False(t, canSee(access.Caller{AccountID: 40, Role: models.RoleDelivery}, direct), "unbound agents see nothing")
}

type harness struct {
	hub       *Hub
	srv       *httptest.Server
	connected chan struct{}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{hub: NewHub(zap.NewNop()), connected: make(chan struct{}, 8)}
	go h.hub.Run()
	t.Cleanup(h.hub.Close)

	callers := map[string]access.Caller{"customer": customer, "staffA": staffA, "staffB": staffB}
	h.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := callers[r.URL.Query().Get("as")]
		if !ok {
			http.Error(w, "unknown caller", http.StatusUnauthorized)
			return
		}
		if err := h.hub.Serve(w, r, caller); err == nil {
			h.connected <- struct{}{}
		}
	}))
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) dial(t *testing.T, as string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/?as=" + as
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	select {
	case <-h.connected:
	case <-time.After(2 * time.Second):
		t.Fatal("client was not registered")
	}
	return conn
}

func TestPublishReachesOnlyAllowedClients(t *testing.T) {
	h := newHarness(t)
	cust := h.dial(t, "customer")
	a := h.dial(t, "staffA")
	b := h.dial(t, "staffB")

	h.hub.Publish(&models.Message{ID: 7, SenderID: 10, RestaurantID: 1, Content: "late", Type: models.MessageDelayReport})

	for _, conn := range []*websocket.Conn{cust, a} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var got models.Message
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, uint(7), got.ID)
		assert.Equal(t, "late", got.Content)
	}

	b.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var got models.Message
	err := b.ReadJSON(&got)
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestCloseDisconnectsClients(t *testing.T) {
	h := newHarness(t)
	conn := h.dial(t, "staffA")

	h.hub.Close()
	h.hub.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestPublishNeverBlocks(t *testing.T) {
	hub := NewHub(zap.NewNop())
	// Run is not started, so nothing drains the queue.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			hub.Publish(&models.Message{ID: uint(i)})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked")
	}
}
