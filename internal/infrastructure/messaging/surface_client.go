package messaging

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/AtRiskMedia/pagebuilder-go/internal/domain/entities/protocol"
	"github.com/AtRiskMedia/pagebuilder-go/internal/infrastructure/observability/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

var (
	ErrClientClosed   = errors.New("surface client closed")
	ErrSendBufferFull = errors.New("surface send buffer full")
)

const DefaultSendBuffer = 64

// SurfaceClient represents a single connected render surface.
type SurfaceClient struct {
	conn      *websocket.Conn
	sessionID string
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *logging.ChanneledLogger
}

func NewSurfaceClient(conn *websocket.Conn, sessionID string, buffer int, logger *logging.ChanneledLogger) *SurfaceClient {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	if logger == nil {
		logger = logging.NewDiscardLogger()
	}
	return &SurfaceClient{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

func (c *SurfaceClient) SessionID() string { return c.sessionID }

func (c *SurfaceClient) Done() <-chan struct{} { return c.done }

// Send queues an envelope without blocking. A surface that cannot keep up
// is disconnected; it resyncs in full when it reconnects.
func (c *SurfaceClient) Send(env protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Sync().Warn("Surface send buffer full, disconnecting", "sessionId", c.sessionID, "buffer", cap(c.send))
		c.Close()
		return ErrSendBufferFull
	}
}

// Close stops both pumps; safe to call more than once
func (c *SurfaceClient) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// ReadPump delivers inbound frames to handle until the connection fails or
// the client is closed. It owns the final close of the socket.
func (c *SurfaceClient) ReadPump(handle func([]byte)) {
	defer func() {
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go func() {
		<-c.done
		// unblock ReadMessage
		c.conn.SetReadDeadline(time.Now())
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Sync().Debug("Surface connection dropped", "sessionId", c.sessionID, "error", err)
			}
			return
		}
		handle(message)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings
func (c *SurfaceClient) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "reload"),
				time.Now().Add(writeWait))
			return
		}
	}
}
