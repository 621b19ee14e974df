package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var (
	ErrConnClosed     = errors.New("push connection closed")
	ErrSendBufferFull = errors.New("push send buffer full")
)

// State es la etapa del handshake de una conexión push.
type State int32

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "unauthenticated"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn es el canal push de un cliente. Después del handshake solo el
// servidor escribe; los frames entrantes se ignoran.
type Conn struct {
	ws       *websocket.Conn
	registry *Registry
	logger   *zap.Logger

	// tokenUserID es la identidad verificada en el upgrade; el frame auth debe coincidir.
	tokenUserID string

	mu            sync.Mutex
	state         State
	handshakeDone bool
	userID        string

	send chan []byte
	done chan struct{}
}

func newConn(ws *websocket.Conn, registry *Registry, logger *zap.Logger, sendBuffer int, tokenUserID string) *Conn {
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	return &Conn{
		ws:          ws,
		registry:    registry,
		logger:      logger,
		tokenUserID: tokenUserID,
		state:       StateUnauthenticated,
		send:        make(chan []byte, sendBuffer),
		done:        make(chan struct{}),
	}
}

func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Conn) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Conn) Open() bool {
	return c.State() != StateClosed
}

// Send encola el payload para el write pump sin esperar a la red.
func (c *Conn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return ErrConnClosed
	}
	select {
	case c.send <- payload:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// handleFrame aplica la máquina de estados al frame entrante.
// Solo el primer frame cuenta como intento de handshake.
func (c *Conn) handleFrame(raw []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return
	}
	if c.handshakeDone {
		c.logger.Debug("ignoring inbound frame", zap.String("state", c.state.String()))
		return
	}
	c.handshakeDone = true

	userID, err := ParseAuthFrame(raw)
	if err != nil {
		c.logger.Warn("invalid push handshake", zap.Error(err))
		return
	}
	if userID != c.tokenUserID {
		c.logger.Warn("push handshake identity mismatch",
			zap.String("claimed_user_id", userID),
			zap.String("token_user_id", c.tokenUserID),
		)
		return
	}

	c.state = StateAuthenticated
	c.userID = userID
	c.registry.Register(userID, c)
	c.logger.Info("push channel authenticated",
		zap.String("user_id", userID),
		zap.Int("connections", c.registry.Len()),
	)
}

// Close pasa a StateClosed y saca la conexión del registro. Es idempotente.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	close(c.done)
	userID := c.userID
	c.mu.Unlock()

	if _, removed := c.registry.Unregister(c); removed {
		c.logger.Info("push channel unregistered",
			zap.String("user_id", userID),
			zap.Int("connections", c.registry.Len()),
		)
	}
	_ = c.ws.Close()
}

// Serve corre los pumps hasta que la conexión se cierra.
func (c *Conn) Serve() {
	go c.writePump()
	c.readPump()
}

func (c *Conn) readPump() {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("push channel read error", zap.Error(err))
			}
			return
		}
		c.handleFrame(raw)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Debug("push write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
