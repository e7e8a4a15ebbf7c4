package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"cuebridge/internal/bus"
	"cuebridge/internal/cue"
	"cuebridge/internal/kv"
	"cuebridge/internal/logging"
	"cuebridge/internal/trackstore"
)

// Loader accepts cue lists that arrive from outside the session.
type Loader interface {
	LoadData(list []cue.Cue) bool
}

// ChannelOption customizes a Channel.
type ChannelOption func(*Channel)

// WithChannelLogger sets the channel logger.
func WithChannelLogger(logger *slog.Logger) ChannelOption {
	return func(c *Channel) {
		c.logger = logging.NewComponentLogger(logger, "storage_channel")
	}
}

// WithDraftMetadata seeds the metadata saved with new drafts.
func WithDraftMetadata(meta cue.DraftMetadata) ChannelOption {
	return func(c *Channel) {
		c.draftMeta = meta
	}
}

// Channel is the player side of the storage-mediated bridge for one video.
type Channel struct {
	store     kv.Store
	videoID   string
	key       string
	loader    Loader
	draftMeta cue.DraftMetadata
	logger    *slog.Logger
	bridges   bus.Topic[bool]

	mu             sync.Mutex
	bridged        bool
	activeUpdating bool
	unsubscribe    func()
}

// NewChannel builds a channel for videoID whose drafts are stored under key.
// Remote cue lists are handed to loader.
func NewChannel(store kv.Store, videoID, key string, loader Loader, opts ...ChannelOption) *Channel {
	c := &Channel{
		store:   store,
		videoID: videoID,
		key:     key,
		loader:  loader,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start checks whether an editor already announced this video and begins
// observing the shared keys.
func (c *Channel) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return nil
	}
	c.unsubscribe = c.store.Subscribe(c.onChange)
	c.mu.Unlock()

	editing, ok, err := kv.GetEditingID(ctx, c.store)
	if err != nil {
		return fmt.Errorf("read %s: %w", kv.KeyCurrentlyEditing, err)
	}
	if ok {
		c.setBridged(editing.ID == c.videoID)
	}
	return nil
}

// Close stops observing the store.
func (c *Channel) Close() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

// Bridged reports whether an editor is currently editing this video.
func (c *Channel) Bridged() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bridged
}

// ActiveUpdating reports whether a remote cue list is being applied.
func (c *Channel) ActiveUpdating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeUpdating
}

// Bridges publishes the new bridged state whenever it flips.
func (c *Channel) Bridges() *bus.Topic[bool] {
	return &c.bridges
}

// WriteTracks publishes snapshot to trackUpdates. It is the persist function
// of the BridgedPersist strategy; the store commits once the write echoes
// back. Writes triggered while a remote list is being applied are skipped.
func (c *Channel) WriteTracks(snapshot trackstore.Snapshot) error {
	if c.ActiveUpdating() {
		return nil
	}
	return kv.SetTrackUpdate(context.Background(), c.store, kv.TrackUpdate{
		Tracks:      snapshot.Tracks,
		LastTouched: snapshot.LastTouched,
		Timestamp:   snapshot.Timestamp,
	})
}

// SaveDraft folds snapshot into draftUpdates under the channel's key,
// keeping any metadata already saved there. It is the persist function of
// the DraftPersist strategy.
func (c *Channel) SaveDraft(snapshot trackstore.Snapshot) error {
	return kv.UpdateDrafts(context.Background(), c.store, func(drafts kv.Drafts) {
		record, ok := drafts[c.key]
		if !ok {
			record.Metadata = c.draftMeta
		}
		record.Tracks = cue.Clone(snapshot.Tracks)
		drafts[c.key] = record
	})
}

func (c *Channel) onChange(change kv.Change) {
	switch change.Key {
	case kv.KeyCurrentlyEditing:
		editing, err := kv.Decode[kv.EditingID](change.NewValue)
		if err != nil {
			c.setBridged(false)
			return
		}
		c.setBridged(editing.ID == c.videoID)
	case kv.KeyTrackUpdates:
		if !c.Bridged() || change.Removed() {
			return
		}
		update, err := kv.Decode[kv.TrackUpdate](change.NewValue)
		if err != nil {
			logging.WarnWithContext(c.logger, "ignoring malformed track update", "track_update_decode_failed",
				logging.Error(err),
				logging.String(logging.FieldVideoID, c.videoID),
				logging.String(logging.FieldImpact, "editor changes were not applied"),
			)
			return
		}
		c.mu.Lock()
		c.activeUpdating = true
		c.mu.Unlock()
		applied := c.loader.LoadData(update.Tracks)
		c.mu.Lock()
		c.activeUpdating = false
		c.mu.Unlock()
		if applied {
			c.logger.Debug("track update applied",
				logging.String(logging.FieldVideoID, c.videoID),
				logging.Int("cues", len(update.Tracks)),
			)
		}
	}
}

func (c *Channel) setBridged(bridged bool) {
	c.mu.Lock()
	changed := c.bridged != bridged
	c.bridged = bridged
	c.mu.Unlock()
	if !changed {
		return
	}
	c.logger.Info("storage bridge state changed",
		logging.String(logging.FieldVideoID, c.videoID),
		logging.Bool("bridged", bridged),
		logging.String(logging.FieldEventType, "storage_bridge"),
	)
	c.bridges.Publish(bridged)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(list []cue.Cue) bool

func (f LoaderFunc) LoadData(list []cue.Cue) bool { return f(list) }
