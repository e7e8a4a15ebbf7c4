package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"github.com/coder/websocket"

	"cuebridge/internal/bridge"
	"cuebridge/internal/bus"
	"cuebridge/internal/kv"
	"cuebridge/internal/logging"
)

// ErrClosed is returned by requests on a closed client.
var ErrClosed = errors.New("relay client closed")

// ClientOption customizes Dial.
type ClientOption func(*clientConfig)

type clientConfig struct {
	token  string
	role   bridge.Role
	logger *slog.Logger
}

// WithToken sends token as a bearer credential.
func WithToken(token string) ClientOption {
	return func(c *clientConfig) {
		c.token = token
	}
}

// WithRole sets the role the context registers with.
func WithRole(role bridge.Role) ClientOption {
	return func(c *clientConfig) {
		c.role = role
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logging.NewComponentLogger(logger, "relay_client")
	}
}

// Client is a remote context. It implements bridge.Port for the coordinator
// and kv.Store for the daemon's shared store. Subscribers run on a single
// dispatch goroutine in frame order and may issue requests.
type Client struct {
	bridge.Inbox
	conn   *websocket.Conn
	tab    bridge.TabID
	logger *slog.Logger

	changes bus.Topic[kv.Change]
	events  chan Frame

	ctx      context.Context
	cancel   context.CancelFunc
	readDone chan struct{}
	done     chan struct{}

	mu      sync.Mutex
	nextReq uint64
	pending map[uint64]chan Frame
	closed  bool
}

// Dial connects to the relay endpoint (ws:// or wss://) as a context serving
// pageURL and waits for the coordinator to assign a tab id.
func Dial(ctx context.Context, endpoint, pageURL string, opts ...ClientOption) (*Client, error) {
	cfg := clientConfig{role: bridge.RolePlayer, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	target, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse relay endpoint: %w", err)
	}
	query := target.Query()
	query.Set("url", pageURL)
	query.Set("role", string(cfg.role))
	target.RawQuery = query.Encode()

	dialOpts := &websocket.DialOptions{}
	if cfg.token != "" {
		dialOpts.HTTPHeader = http.Header{"Authorization": []string{"Bearer " + cfg.token}}
	}
	conn, _, err := websocket.Dial(ctx, target.String(), dialOpts)
	if err != nil {
		return nil, fmt.Errorf("dial relay: %w", err)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		conn.Close(websocket.StatusProtocolError, "no hello")
		return nil, fmt.Errorf("read hello: %w", err)
	}
	var hello Frame
	if err := json.Unmarshal(data, &hello); err != nil || hello.Type != TypeHello || hello.TabID == 0 {
		conn.Close(websocket.StatusProtocolError, "bad hello")
		return nil, fmt.Errorf("relay hello: unexpected frame %q", data)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:     conn,
		tab:      hello.TabID,
		logger:   cfg.logger.With(logging.Int64(logging.FieldTabID, int64(hello.TabID))),
		events:   make(chan Frame, outboundBuffer),
		ctx:      runCtx,
		cancel:   cancel,
		readDone: make(chan struct{}),
		done:     make(chan struct{}),
		pending:  make(map[uint64]chan Frame),
	}
	go c.readLoop()
	go c.dispatchLoop()
	return c, nil
}

// TabID implements bridge.Port.
func (c *Client) TabID() bridge.TabID { return c.tab }

// Send implements bridge.Port.
func (c *Client) Send(ctx context.Context, msg bridge.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.write(ctx, Frame{Message: msg})
}

// Close disconnects and fails outstanding requests. It waits for the
// dispatch goroutine, so subscribers must not call it.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	c.cancel()
	<-c.done
	return err
}

// Done is closed once the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Get(ctx context.Context, key string) (json.RawMessage, error) {
	reply, err := c.request(ctx, Frame{Message: bridge.Message{Type: TypeStorageGet}, Key: key})
	if err != nil {
		return nil, err
	}
	if reply.NotFound {
		return nil, fmt.Errorf("get %q: %w", key, kv.ErrNotFound)
	}
	return reply.Value, nil
}

func (c *Client) Set(ctx context.Context, key string, value json.RawMessage) error {
	_, err := c.request(ctx, Frame{Message: bridge.Message{Type: TypeStorageSet}, Key: key, Value: value})
	return err
}

func (c *Client) Remove(ctx context.Context, key string) error {
	_, err := c.request(ctx, Frame{Message: bridge.Message{Type: TypeStorageRemove}, Key: key})
	return err
}

func (c *Client) Keys(ctx context.Context, prefix string) ([]string, error) {
	reply, err := c.request(ctx, Frame{Message: bridge.Message{Type: TypeStorageKeys}, Prefix: prefix})
	if err != nil {
		return nil, err
	}
	keys := append([]string(nil), reply.Keys...)
	sort.Strings(keys)
	return keys, nil
}

// Subscribe implements kv.Store. Changes made by any context arrive here.
func (c *Client) Subscribe(fn func(kv.Change)) func() {
	return c.changes.Subscribe(fn)
}

// SubscribeMessages registers fn for bridge messages; it is Port.Subscribe.
func (c *Client) SubscribeMessages(fn func(bridge.Message)) func() {
	return c.Inbox.Subscribe(fn)
}

// Port returns the client's bridge.Port view. Client itself satisfies
// kv.Store, whose Subscribe method shadows the port's.
func (c *Client) Port() bridge.Port {
	return clientPort{c}
}

type clientPort struct{ c *Client }

func (p clientPort) TabID() bridge.TabID                                { return p.c.tab }
func (p clientPort) Send(ctx context.Context, msg bridge.Message) error { return p.c.Send(ctx, msg) }
func (p clientPort) Subscribe(fn func(bridge.Message)) func()           { return p.c.SubscribeMessages(fn) }
func (p clientPort) Close() error                                       { return p.c.Close() }

func (c *Client) request(ctx context.Context, frame Frame) (Frame, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Frame{}, ErrClosed
	}
	c.nextReq++
	frame.RequestID = c.nextReq
	reply := make(chan Frame, 1)
	c.pending[frame.RequestID] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, frame.RequestID)
		c.mu.Unlock()
	}()

	if err := c.write(ctx, frame); err != nil {
		return Frame{}, err
	}
	select {
	case r := <-reply:
		if r.Error != "" {
			return r, fmt.Errorf("%s %q: %s", frame.Type, frame.Key, r.Error)
		}
		return r, nil
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	case <-c.readDone:
		return Frame{}, ErrClosed
	}
}

func (c *Client) write(ctx context.Context, frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *Client) readLoop() {
	defer close(c.events)
	defer close(c.readDone)
	for {
		_, data, err := c.conn.Read(c.ctx)
		if err != nil {
			c.mu.Lock()
			c.closed = true
			c.mu.Unlock()
			c.logger.Debug("relay connection ended", logging.Error(err))
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Debug("relay frame ignored", logging.Error(err))
			continue
		}
		if frame.Type == TypeStorageValue {
			c.mu.Lock()
			reply, ok := c.pending[frame.RequestID]
			c.mu.Unlock()
			if ok {
				reply <- frame
			}
			continue
		}
		select {
		case c.events <- frame:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) dispatchLoop() {
	defer close(c.done)
	for frame := range c.events {
		switch {
		case frame.Type == TypeStorageChanged:
			c.changes.Publish(kv.Change{Key: frame.Key, OldValue: frame.OldValue, NewValue: frame.Value})
		case isBridgeType(frame.Type):
			c.Deliver(frame.Message)
		default:
			c.logger.Debug("relay frame ignored", logging.String("message_type", string(frame.Type)))
		}
	}
}
