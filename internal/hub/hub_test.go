package hub

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insider-watch/internal/snapshot"
	"insider-watch/models"
)

type received struct {
	Type         string               `json:"type"`
	ID           string               `json:"id"`
	Transactions []models.Transaction `json:"transactions"`
	Received     int                  `json:"received"`
}

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_SendsCurrentSnapshotOnConnect(t *testing.T) {
	store := snapshot.NewStore()
	store.Swap(snapshot.New([]models.Transaction{
		{Symbol: "ABC", TransactionCode: models.TransactionCodePurchase, Change: 10,
			TransactionPrice: decimal.NewNullDecimal(decimal.RequireFromString("1.5"))},
		{Symbol: "BRK.B"},
	}, time.Now()))
	h := New(store)

	conn := dial(t, h)
	msg := readMessage(t, conn)

	assert.Equal(t, "snapshot", msg.Type)
	assert.Equal(t, store.Load().ID.String(), msg.ID)
	assert.Equal(t, 2, msg.Received)
	require.Len(t, msg.Transactions, 1)
	assert.Equal(t, "ABC", msg.Transactions[0].Symbol)
}

func TestHub_EmptyStoreSendsEmptyList(t *testing.T) {
	h := New(snapshot.NewStore())

	msg := readMessage(t, dial(t, h))

	assert.Equal(t, "snapshot", msg.Type)
	assert.NotNil(t, msg.Transactions)
	assert.Empty(t, msg.Transactions)
}

func TestHub_PushesEverySwap(t *testing.T) {
	store := snapshot.NewStore()
	h := New(store)
	conn := dial(t, h)
	readMessage(t, conn)

	require.Equal(t, 1, h.Clients())

	next := snapshot.New([]models.Transaction{{Symbol: "XYZ"}}, time.Now())
	store.Swap(next)

	msg := readMessage(t, conn)
	assert.Equal(t, next.ID.String(), msg.ID)
	require.Len(t, msg.Transactions, 1)
	assert.Equal(t, "XYZ", msg.Transactions[0].Symbol)
}

func TestHub_ClientRemovedOnDisconnect(t *testing.T) {
	h := New(snapshot.NewStore())
	conn := dial(t, h)
	readMessage(t, conn)
	require.Equal(t, 1, h.Clients())

	conn.Close()

	assert.Eventually(t, func() bool { return h.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastDoesNotBlockOnSlowClient(t *testing.T) {
	h := New(snapshot.NewStore())
	c := &client{out: make(chan Message, 1), done: make(chan struct{})}
	h.clients[c] = struct{}{}

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			h.Broadcast(snapshot.New(nil, time.Now()))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on a full client buffer")
	}
	assert.Len(t, c.out, 1)
}
