package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cuebridge/internal/bus"
	"cuebridge/internal/cue"
	"cuebridge/internal/kv"
	"cuebridge/internal/logging"
)

// maxOutstandingPushes bounds the stamps remembered while their storage echo
// is still in flight.
const maxOutstandingPushes = 64

// TracksUpdate is a cue list received by the editor from a player.
type TracksUpdate struct {
	Tracks      []cue.Cue
	LastTouched float64
}

// EditorOption customizes an EditorLink.
type EditorOption func(*EditorLink)

// WithEditorPort enables the direct relay through port.
func WithEditorPort(port Port) EditorOption {
	return func(e *EditorLink) {
		e.port = port
	}
}

// WithEditorClock overrides the wall clock used for write stamps.
func WithEditorClock(now func() time.Time) EditorOption {
	return func(e *EditorLink) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEditorLogger sets the editor link logger.
func WithEditorLogger(logger *slog.Logger) EditorOption {
	return func(e *EditorLink) {
		e.logger = logging.NewComponentLogger(logger, "editor_link")
	}
}

// EditorLink is the editor side of both bridge transports.
type EditorLink struct {
	store  kv.Store
	port   Port
	now    func() time.Time
	logger *slog.Logger

	updates bus.Topic[TracksUpdate]
	ids     bus.Topic[string]

	mu          sync.Mutex
	lastStamp   int64
	outstanding map[float64]struct{}
	partner     TabID
	unsubscribe []func()
}

// NewEditorLink builds an editor link over the shared store.
func NewEditorLink(store kv.Store, opts ...EditorOption) *EditorLink {
	e := &EditorLink{
		store:       store,
		now:         time.Now,
		logger:      logging.NewNop(),
		outstanding: make(map[float64]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins observing storage and, when a port is set, relay messages.
func (e *EditorLink) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.unsubscribe) > 0 {
		return
	}
	e.unsubscribe = append(e.unsubscribe, e.store.Subscribe(e.onChange))
	if e.port != nil {
		e.unsubscribe = append(e.unsubscribe, e.port.Subscribe(e.onMessage))
	}
}

// Close stops observing.
func (e *EditorLink) Close() {
	e.mu.Lock()
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()
	for _, fn := range unsubscribe {
		fn()
	}
}

// Updates publishes cue lists written by a player.
func (e *EditorLink) Updates() *bus.Topic[TracksUpdate] {
	return &e.updates
}

// IDs publishes video ids announced through either transport.
func (e *EditorLink) IDs() *bus.Topic[string] {
	return &e.ids
}

// Partner returns the directly bridged player tab, if any.
func (e *EditorLink) Partner() TabID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.partner
}

// Bridge asks the coordinator to link this editor with the player at url.
func (e *EditorLink) Bridge(ctx context.Context, url string) error {
	if e.port == nil {
		return fmt.Errorf("bridge %s: no relay port", url)
	}
	return e.port.Send(ctx, BridgeRequest(url))
}

// AnnounceID marks id as the video being edited so the player serving it
// switches to storage-bridged persistence.
func (e *EditorLink) AnnounceID(ctx context.Context, id string) error {
	return kv.SetEditingID(ctx, e.store, kv.EditingID{ID: id, Timestamp: e.now().UnixMilli()})
}

// PushTracks sends the editor's cue list to the player through storage and,
// when directly bridged, through the relay.
func (e *EditorLink) PushTracks(ctx context.Context, tracks []cue.Cue) error {
	e.mu.Lock()
	stamp := e.now().UnixMilli()
	if stamp <= e.lastStamp {
		stamp = e.lastStamp + 1
	}
	e.lastStamp = stamp
	if len(e.outstanding) >= maxOutstandingPushes {
		clear(e.outstanding)
	}
	e.outstanding[float64(stamp)] = struct{}{}
	partner := e.partner
	e.mu.Unlock()

	if partner != 0 && e.port != nil {
		if err := e.port.Send(ctx, Forward(partner, UpdateTracks(tracks, float64(stamp)))); err != nil {
			e.logger.Debug("relay push dropped", logging.Error(err))
		}
	}
	return kv.SetTrackUpdate(ctx, e.store, kv.TrackUpdate{
		Tracks:      tracks,
		LastTouched: float64(stamp),
		Timestamp:   stamp,
	})
}

func (e *EditorLink) onChange(change kv.Change) {
	switch change.Key {
	case kv.KeyTrackUpdates:
		update, err := kv.Decode[kv.TrackUpdate](change.NewValue)
		if err != nil {
			return
		}
		e.mu.Lock()
		_, own := e.outstanding[update.LastTouched]
		delete(e.outstanding, update.LastTouched)
		e.mu.Unlock()
		if own {
			return
		}
		e.updates.Publish(TracksUpdate{Tracks: update.Tracks, LastTouched: update.LastTouched})
	case kv.KeyCurrentlyEditing:
		editing, err := kv.Decode[kv.EditingID](change.NewValue)
		if err != nil {
			return
		}
		e.ids.Publish(editing.ID)
	}
}

func (e *EditorLink) onMessage(msg Message) {
	switch msg.Type {
	case TypeEditorBridge:
		if msg.PlayerTabID == 0 {
			return
		}
		e.mu.Lock()
		e.partner = msg.PlayerTabID
		e.mu.Unlock()
		e.logger.Info("bridged to player", logging.Int64("player_tab", int64(msg.PlayerTabID)))
	case TypeUpdateScriptTracks:
		e.updates.Publish(TracksUpdate{Tracks: msg.Tracks, LastTouched: msg.LastTouched})
	case TypeIDAnnounce:
		e.ids.Publish(msg.ID)
	}
}
