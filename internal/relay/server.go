package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"

	"cuebridge/internal/bridge"
	"cuebridge/internal/kv"
	"cuebridge/internal/logging"
)

const outboundBuffer = 256

// ServerOption customizes a Server.
type ServerOption func(*Server)

// WithServerLogger sets the server logger.
func WithServerLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logging.NewComponentLogger(logger, "relay")
	}
}

// WithOriginPatterns restricts which browser origins may connect.
func WithOriginPatterns(patterns ...string) ServerOption {
	return func(s *Server) {
		s.origins = patterns
	}
}

// Server accepts relay connections and registers each one as a tab.
type Server struct {
	coordinator *bridge.Coordinator
	store       kv.Store
	logger      *slog.Logger
	origins     []string

	mu          sync.Mutex
	conns       map[*serverConn]struct{}
	unsubscribe func()
	closed      bool
}

// NewServer builds a relay over coordinator and store.
func NewServer(coordinator *bridge.Coordinator, store kv.Store, opts ...ServerOption) *Server {
	s := &Server{
		coordinator: coordinator,
		store:       store,
		logger:      logging.NewNop(),
		conns:       make(map[*serverConn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.unsubscribe = store.Subscribe(s.broadcastChange)
	return s
}

// Connections returns the number of open relay connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Close disconnects every client.
func (s *Server) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	s.unsubscribe()
	for _, c := range conns {
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
}

type serverConn struct {
	conn *websocket.Conn
	out  chan []byte

	mu    sync.Mutex
	tab   bridge.TabID
	ready bool
	early [][]byte
}

// enqueue never blocks; a client that stops reading loses frames.
func (c *serverConn) enqueue(data []byte) bool {
	select {
	case c.out <- data:
		return true
	default:
		return false
	}
}

// deliver holds frames produced during registration until hello is queued.
func (c *serverConn) deliver(data []byte) bool {
	c.mu.Lock()
	if !c.ready {
		c.early = append(c.early, data)
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()
	return c.enqueue(data)
}

func (c *serverConn) start(tab bridge.TabID) {
	hello, _ := json.Marshal(Frame{Message: bridge.Message{Type: TypeHello, TabID: tab}})
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tab = tab
	c.enqueue(hello)
	for _, data := range c.early {
		c.enqueue(data)
	}
	c.early = nil
	c.ready = true
}

func (c *serverConn) tabID() bridge.TabID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tab
}

// ServeHTTP upgrades the request and serves one context until it
// disconnects. The query carries the context's url and role.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		http.Error(w, "relay closed", http.StatusServiceUnavailable)
		return
	}

	opts := &websocket.AcceptOptions{}
	if len(s.origins) > 0 {
		opts.OriginPatterns = s.origins
	}
	conn, err := websocket.Accept(w, r, opts)
	if err != nil {
		s.logger.Debug("websocket accept failed", logging.Error(err))
		return
	}

	url := strings.TrimSpace(r.URL.Query().Get("url"))
	role := bridge.Role(strings.TrimSpace(r.URL.Query().Get("role")))
	if role == "" {
		role = bridge.RolePlayer
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sc := &serverConn{conn: conn, out: make(chan []byte, outboundBuffer)}
	tab := s.coordinator.Register(url, role, func(msg bridge.Message) {
		data, err := json.Marshal(Frame{Message: msg})
		if err != nil {
			return
		}
		if !sc.deliver(data) {
			s.logger.Debug("relay frame dropped", logging.Int64(logging.FieldTabID, int64(sc.tabID())))
		}
	})
	sc.start(tab)
	defer s.coordinator.Unregister(tab)

	s.mu.Lock()
	s.conns[sc] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, sc)
		s.mu.Unlock()
	}()

	logger := s.logger.With(logging.Int64(logging.FieldTabID, int64(tab)))
	logger.Info("relay client connected",
		logging.String("url", url),
		logging.String("role", string(role)),
		logging.String(logging.FieldEventType, "relay_connected"),
	)

	go s.writeLoop(ctx, sc)
	s.readLoop(ctx, sc, logger)

	conn.Close(websocket.StatusNormalClosure, "")
	logger.Info("relay client disconnected", logging.String(logging.FieldEventType, "relay_disconnected"))
}

func (s *Server) writeLoop(ctx context.Context, sc *serverConn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-sc.out:
			if err := sc.conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		}
	}
}

func (s *Server) readLoop(ctx context.Context, sc *serverConn, logger *slog.Logger) {
	for {
		_, data, err := sc.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				logger.Debug("relay read ended", logging.Error(err))
			}
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			logger.Debug("relay frame ignored", logging.Error(err))
			continue
		}
		s.dispatch(ctx, sc, frame, logger)
	}
}

func (s *Server) dispatch(ctx context.Context, sc *serverConn, frame Frame, logger *slog.Logger) {
	if isBridgeType(frame.Type) {
		if err := s.coordinator.Handle(ctx, sc.tabID(), frame.Message); err != nil {
			logger.Debug("relay message dropped",
				logging.String("message_type", string(frame.Type)),
				logging.Error(err),
			)
		}
		return
	}

	reply := Frame{Message: bridge.Message{Type: TypeStorageValue}, RequestID: frame.RequestID, Key: frame.Key}
	switch frame.Type {
	case TypeStorageGet:
		value, err := s.store.Get(ctx, frame.Key)
		switch {
		case errors.Is(err, kv.ErrNotFound):
			reply.NotFound = true
		case err != nil:
			reply.Error = err.Error()
		default:
			reply.Value = value
		}
	case TypeStorageSet:
		if err := s.store.Set(ctx, frame.Key, frame.Value); err != nil {
			reply.Error = err.Error()
		}
	case TypeStorageRemove:
		if err := s.store.Remove(ctx, frame.Key); err != nil {
			reply.Error = err.Error()
		}
	case TypeStorageKeys:
		keys, err := s.store.Keys(ctx, frame.Prefix)
		if err != nil {
			reply.Error = err.Error()
		}
		reply.Keys = keys
	default:
		logger.Debug("relay frame ignored", logging.String("message_type", string(frame.Type)))
		return
	}
	data, err := json.Marshal(reply)
	if err != nil {
		return
	}
	sc.enqueue(data)
}

func (s *Server) broadcastChange(change kv.Change) {
	data, err := json.Marshal(Frame{
		Message:  bridge.Message{Type: TypeStorageChanged},
		Key:      change.Key,
		Value:    change.NewValue,
		OldValue: change.OldValue,
	})
	if err != nil {
		return
	}
	s.mu.Lock()
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()
	for _, c := range conns {
		if !c.enqueue(data) {
			s.logger.Debug("storage change dropped", logging.Int64(logging.FieldTabID, int64(c.tabID())))
		}
	}
}
