package messaging

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/protocol"
)

func startSurfaceServer(t *testing.T, hub *Hub, inbound chan<- []byte, clients chan<- *SurfaceClient) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewSurfaceClient(conn, "s1", 4, nil)
		hub.Register(client)
		clients <- client
		go client.WritePump()
		client.ReadPump(func(msg []byte) { inbound <- msg })
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestSurfaceClientRoundTrip(t *testing.T) {
	hub := NewHub(nil)
	inbound := make(chan []byte, 1)
	clients := make(chan *SurfaceClient, 1)
	srv := startSurfaceServer(t, hub, inbound, clients)

	conn := dial(t, srv)
	client := <-clients
	assert.Equal(t, 1, hub.Count("s1"))

	env, err := protocol.NewEnvelope(protocol.UpdateViewport, protocol.ViewportPayload{Viewport: "mobile"})
	require.NoError(t, err)
	require.NoError(t, client.Send(env))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"UPDATE_VIEWPORT","payload":{"viewport":"mobile"}}`, string(data))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"IFRAME_READY"}`)))
	select {
	case msg := <-inbound:
		assert.Equal(t, `{"type":"IFRAME_READY"}`, string(msg))
	case <-time.After(2 * time.Second):
		t.Fatal("inbound message not delivered")
	}
}

func TestCloseSessionDisconnects(t *testing.T) {
	hub := NewHub(nil)
	clients := make(chan *SurfaceClient, 1)
	srv := startSurfaceServer(t, hub, make(chan []byte, 8), clients)

	conn := dial(t, srv)
	client := <-clients

	assert.Equal(t, 1, hub.CloseSession("s1"))
	assert.Equal(t, 0, hub.Count("s1"))
	assert.ErrorIs(t, client.Send(protocol.Envelope{Type: protocol.UpdateHover}), ErrClientClosed)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestSendOverflowClosesClient(t *testing.T) {
	client := NewSurfaceClient(nil, "s1", 2, nil)
	env := protocol.Envelope{Type: protocol.UpdateHover}

	require.NoError(t, client.Send(env))
	require.NoError(t, client.Send(env))
	assert.ErrorIs(t, client.Send(env), ErrSendBufferFull)

	select {
	case <-client.Done():
	default:
		t.Fatal("client should be closed after overflow")
	}
}

func TestHubUnregistersWhenDone(t *testing.T) {
	hub := NewHub(nil)
	client := NewSurfaceClient(nil, "s2", 1, nil)
	hub.Register(client)
	assert.Equal(t, 1, hub.Total())

	client.Close()
	assert.Eventually(t, func() bool { return hub.Total() == 0 }, time.Second, 5*time.Millisecond)
}
