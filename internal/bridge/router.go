package bridge

import (
	"context"
	"log/slog"
	"sync"

	"cuebridge/internal/logging"
	"cuebridge/internal/trackstore"
)

// Router is the player's trackstore.Persistence. It relays to a directly
// bridged editor when one is linked, writes through storage while an editor
// announces this video, and saves drafts otherwise.
type Router struct {
	port    Port
	channel *Channel
	logger  *slog.Logger

	direct  trackstore.Variant
	bridged trackstore.Variant
	draft   trackstore.Variant

	mu      sync.Mutex
	partner TabID
}

// NewRouter builds a router over port and channel. Either may be nil, which
// disables the corresponding transport.
func NewRouter(port Port, channel *Channel, logger *slog.Logger) *Router {
	r := &Router{
		port:    port,
		channel: channel,
		logger:  logging.NewComponentLogger(logger, "router"),
	}
	r.direct = trackstore.NewDirectApply(r.relay)
	if channel != nil {
		r.bridged = trackstore.NewBridgedPersist(channel.WriteTracks)
		r.draft = trackstore.NewDraftPersist(channel.SaveDraft)
	} else {
		r.bridged = trackstore.None()
		r.draft = trackstore.None()
	}
	return r
}

// Active implements trackstore.Persistence.
func (r *Router) Active() trackstore.Strategy {
	r.mu.Lock()
	partner := r.partner
	r.mu.Unlock()
	switch {
	case partner != 0 && r.port != nil:
		return r.direct
	case r.channel != nil && r.channel.Bridged():
		return r.bridged
	default:
		return r.draft
	}
}

// SetPartner records the directly bridged editor tab. Zero clears it.
func (r *Router) SetPartner(id TabID) {
	r.mu.Lock()
	r.partner = id
	r.mu.Unlock()
	r.logger.Info("direct bridge partner set", logging.Int64("editor_tab", int64(id)))
}

// Partner returns the directly bridged editor tab, if any.
func (r *Router) Partner() TabID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.partner
}

// AnnounceID tells the direct partner which video this player serves.
func (r *Router) AnnounceID(ctx context.Context, id string) error {
	partner := r.Partner()
	if partner == 0 || r.port == nil {
		return nil
	}
	return r.port.Send(ctx, Forward(partner, IDAnnounce(id)))
}

func (r *Router) relay(snapshot trackstore.Snapshot) error {
	partner := r.Partner()
	if partner == 0 {
		return nil
	}
	return r.port.Send(context.Background(), Forward(partner, UpdateTracks(snapshot.Tracks, snapshot.LastTouched)))
}

// AttachPlayer routes messages delivered to port into the player session:
// editor handshakes set the router partner and tracks from the editor are
// loaded into loader.
func AttachPlayer(port Port, router *Router, loader Loader, videoID string) func() {
	return port.Subscribe(func(msg Message) {
		switch msg.Type {
		case TypeEditorBridge:
			if msg.EditorTabID == 0 {
				return
			}
			router.SetPartner(msg.EditorTabID)
			if err := router.AnnounceID(context.Background(), videoID); err != nil {
				router.logger.Debug("id announce dropped", logging.Error(err))
			}
		case TypeUpdateScriptTracks:
			loader.LoadData(msg.Tracks)
		}
	})
}
