package realtime

import (
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ServerOptions configura el upgrade del canal push.
type ServerOptions struct {
	// AllowedOrigins vacío significa que solo se acepta el mismo origen.
	AllowedOrigins []string
	SendBuffer     int
}

var ErrMissingToken = errors.New("push access token missing")

// TokenVerifier valida el access token del upgrade y devuelve el id del usuario.
type TokenVerifier interface {
	VerifyAccessToken(token string) (string, error)
}

// Server acepta conexiones push y las entrega al registro tras el handshake.
type Server struct {
	registry   *Registry
	verifier   TokenVerifier
	logger     *zap.Logger
	upgrader   websocket.Upgrader
	sendBuffer int

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

func NewServer(registry *Registry, verifier TokenVerifier, logger *zap.Logger, opts ServerOptions) *Server {
	s := &Server{
		registry:   registry,
		verifier:   verifier,
		logger:     logger,
		sendBuffer: opts.SendBuffer,
		conns:      make(map[*Conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if len(opts.AllowedOrigins) > 0 {
		allowed := make(map[string]struct{}, len(opts.AllowedOrigins))
		for _, o := range opts.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		s.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		}
	}
	return s
}

// ServeHTTP verifica el token, hace el upgrade y bloquea mientras la conexión esté viva.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := s.authenticate(r)
	if err != nil {
		s.logger.Warn("push upgrade unauthorized", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("push upgrade failed", zap.Error(err))
		return
	}

	conn := newConn(ws, s.registry, s.logger, s.sendBuffer, userID)
	s.track(conn)
	defer s.untrack(conn)

	conn.Serve()
}

// authenticate toma el token de "Authorization: Bearer" o, si falta, de ?token=.
func (s *Server) authenticate(r *http.Request) (string, error) {
	if s.verifier == nil {
		return "", errors.New("push token verifier not configured")
	}
	token := ""
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) > len("Bearer ") && strings.EqualFold(header[:len("Bearer ")], "bearer ") {
		token = strings.TrimSpace(header[len("Bearer "):])
	}
	if token == "" {
		token = strings.TrimSpace(r.URL.Query().Get("token"))
	}
	if token == "" {
		return "", ErrMissingToken
	}
	return s.verifier.VerifyAccessToken(token)
}

// CloseAll cierra todas las conexiones abiertas; se usa al apagar el proceso.
func (s *Server) CloseAll() {
	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

func (s *Server) track(c *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
}

func (s *Server) untrack(c *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}
