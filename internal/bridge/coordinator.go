package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"cuebridge/internal/logging"
)

// ErrUnknownTab is returned when a message names a tab that is not
// registered.
var ErrUnknownTab = errors.New("unknown tab")

// Role describes what a registered context does.
type Role string

const (
	RolePlayer Role = "player"
	RoleEditor Role = "editor"
)

// TabInfo describes a registered context.
type TabInfo struct {
	ID      TabID  `json:"id"`
	URL     string `json:"url"`
	Role    Role   `json:"role"`
	Partner TabID  `json:"partner,omitempty"`
}

type tab struct {
	info    TabInfo
	deliver func(Message)
}

type pendingBridge struct {
	initiator TabID
	url       string
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithOpener sets how the Coordinator opens a URL nobody serves yet.
func WithOpener(o Opener) CoordinatorOption {
	return func(c *Coordinator) {
		if o != nil {
			c.opener = o
		}
	}
}

// WithCoordinatorLogger sets the coordinator logger.
func WithCoordinatorLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logging.NewComponentLogger(logger, "coordinator")
	}
}

// Coordinator registers contexts, performs bridge handshakes, and relays
// forwarded messages.
type Coordinator struct {
	mu      sync.Mutex
	nextID  TabID
	tabs    map[TabID]*tab
	links   map[TabID]TabID
	pending []pendingBridge

	opener Opener
	logger *slog.Logger
}

// NewCoordinator returns an empty coordinator.
func NewCoordinator(opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		tabs:   make(map[TabID]*tab),
		links:  make(map[TabID]TabID),
		opener: NoopOpener{},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a context and returns its tab id. deliver receives every
// message addressed to the tab; it must not block. A pending bridge waiting
// for url completes immediately.
func (c *Coordinator) Register(url string, role Role, deliver func(Message)) TabID {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.tabs[id] = &tab{info: TabInfo{ID: id, URL: url, Role: role}, deliver: deliver}

	var initiator TabID
	for i, p := range c.pending {
		if sameURL(p.url, url) && p.initiator != id {
			if _, alive := c.tabs[p.initiator]; alive {
				initiator = p.initiator
			}
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}
	var sends []delivery
	if initiator != 0 {
		sends = c.linkLocked(initiator, id)
	}
	c.mu.Unlock()

	c.logger.Debug("tab registered",
		logging.Int64(logging.FieldTabID, int64(id)),
		logging.String("url", url),
		logging.String("role", string(role)),
	)
	send(sends)
	return id
}

// Unregister removes a tab, its link, and any bridge it was waiting for.
func (c *Coordinator) Unregister(id TabID) {
	c.mu.Lock()
	if _, ok := c.tabs[id]; !ok {
		c.mu.Unlock()
		return
	}
	delete(c.tabs, id)
	c.unlinkLocked(id)
	c.dropPendingLocked(id)
	c.mu.Unlock()
	c.logger.Debug("tab closed", logging.Int64(logging.FieldTabID, int64(id)))
}

// Handle processes a bridge or forward message sent by from.
func (c *Coordinator) Handle(ctx context.Context, from TabID, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	switch msg.Type {
	case TypeBridge:
		return c.Bridge(ctx, from, msg.URL)
	case TypeForward:
		c.Forward(from, msg.TabID, *msg.Message)
		return nil
	default:
		return fmt.Errorf("coordinator does not accept %q messages", msg.Type)
	}
}

// Bridge links initiator with the tab serving url. When no tab serves url
// the Opener is asked to open one and the bridge completes once it registers.
func (c *Coordinator) Bridge(ctx context.Context, initiator TabID, url string) error {
	c.mu.Lock()
	if _, ok := c.tabs[initiator]; !ok {
		c.mu.Unlock()
		return fmt.Errorf("bridge from tab %d: %w", initiator, ErrUnknownTab)
	}
	target := c.findLocked(url, initiator)
	if target != 0 {
		sends := c.linkLocked(initiator, target)
		c.mu.Unlock()
		send(sends)
		return nil
	}
	c.dropPendingLocked(initiator)
	c.pending = append(c.pending, pendingBridge{initiator: initiator, url: url})
	c.mu.Unlock()

	c.logger.Info("opening bridge target",
		logging.Int64(logging.FieldTabID, int64(initiator)),
		logging.String("url", url),
	)
	if err := c.opener.Open(ctx, url); err != nil {
		c.mu.Lock()
		c.dropPendingLocked(initiator)
		c.mu.Unlock()
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}

// Forward delivers msg verbatim to target. Unknown targets are dropped.
func (c *Coordinator) Forward(from, target TabID, msg Message) {
	c.mu.Lock()
	t, ok := c.tabs[target]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("forward dropped",
			logging.Int64(logging.FieldTabID, int64(from)),
			logging.Int64("target", int64(target)),
			logging.String("message_type", string(msg.Type)),
		)
		return
	}
	t.deliver(msg)
}

// Tabs lists registered contexts by id.
func (c *Coordinator) Tabs() []TabInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TabInfo, 0, len(c.tabs))
	for id, t := range c.tabs {
		info := t.info
		info.Partner = c.links[id]
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Partner returns the tab linked with id.
func (c *Coordinator) Partner(id TabID) (TabID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.links[id]
	return p, ok
}

// PendingBridges returns the number of bridges waiting for their target.
func (c *Coordinator) PendingBridges() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

type delivery struct {
	deliver func(Message)
	msg     Message
}

func send(sends []delivery) {
	for _, d := range sends {
		d.deliver(d.msg)
	}
}

// linkLocked replaces any existing link of either tab. The initiator acts as
// the editor side of the handshake.
func (c *Coordinator) linkLocked(editor, player TabID) []delivery {
	c.unlinkLocked(editor)
	c.unlinkLocked(player)
	c.links[editor] = player
	c.links[player] = editor
	c.logger.Info("tabs bridged",
		logging.Int64("editor_tab", int64(editor)),
		logging.Int64("player_tab", int64(player)),
		logging.String(logging.FieldEventType, "bridge_established"),
	)
	return []delivery{
		{deliver: c.tabs[player].deliver, msg: EditorHandshake(editor)},
		{deliver: c.tabs[editor].deliver, msg: PlayerHandshake(player)},
	}
}

func (c *Coordinator) unlinkLocked(id TabID) {
	if partner, ok := c.links[id]; ok {
		delete(c.links, id)
		if c.links[partner] == id {
			delete(c.links, partner)
		}
	}
}

func (c *Coordinator) dropPendingLocked(initiator TabID) {
	kept := c.pending[:0]
	for _, p := range c.pending {
		if p.initiator != initiator {
			kept = append(kept, p)
		}
	}
	c.pending = kept
}

func (c *Coordinator) findLocked(url string, exclude TabID) TabID {
	var found TabID
	for id, t := range c.tabs {
		if id == exclude || !sameURL(t.info.URL, url) {
			continue
		}
		if found == 0 || id < found {
			found = id
		}
	}
	return found
}

// sameURL compares URLs exactly after trimming whitespace and one trailing
// slash. Query and fragment must match.
func sameURL(a, b string) bool {
	return strings.TrimSuffix(strings.TrimSpace(a), "/") == strings.TrimSuffix(strings.TrimSpace(b), "/")
}
