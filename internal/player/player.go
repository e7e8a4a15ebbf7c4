// Package player wires one video's cue session: the TrackStore, the playback
// scheduler, the keyboard EditSession, and both bridge transports.
//
// A Player is long-lived and owns at most one Session. Setup builds a fresh
// Session for a video id and Teardown discards it; nothing carries over
// between videos except the shared kv store.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"cuebridge/internal/bridge"
	"cuebridge/internal/clock"
	"cuebridge/internal/cue"
	"cuebridge/internal/editsession"
	"cuebridge/internal/kv"
	"cuebridge/internal/logging"
	"cuebridge/internal/scheduler"
	"cuebridge/internal/trackstore"
)

// Dependencies are the collaborators a Player drives.
type Dependencies struct {
	// Domain is the platform id used in storage keys, e.g. "youtube".
	Domain string
	Store  kv.Store
	// Port enables the direct relay. Optional.
	Port      bridge.Port
	Media     editsession.MediaController
	Dialogs   editsession.Dialogs
	Announcer scheduler.Announcer
	// Fetcher is the remote transcript source. Optional.
	Fetcher Fetcher
	// PageURL returns the watch page of a video. Drafts saved from the
	// session keep it as their source URL. Optional.
	PageURL func(videoID string) string
}

// Option customizes a Player.
type Option func(*Player)

// WithLogger sets the player logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Player) {
		p.logger = logging.NewComponentLogger(logger, "player")
		p.baseLogger = logger
	}
}

// WithClock sets the clock used by the scheduler.
func WithClock(c clock.Clock) Option {
	return func(p *Player) {
		if c != nil {
			p.clock = c
		}
	}
}

// WithSteps sets the seek and move distances.
func WithSteps(steps editsession.Steps) Option {
	return func(p *Player) {
		p.steps = steps
	}
}

// WithShortcutDefaults sets configured overrides applied beneath the ones
// saved in the store.
func WithShortcutDefaults(overrides map[string]string) Option {
	return func(p *Player) {
		p.shortcutDefaults = overrides
	}
}

// WithIndicatorDefault sets the indicator preference used when none is
// stored.
func WithIndicatorDefault(show bool) Option {
	return func(p *Player) {
		p.indicatorDefault = show
	}
}

// Player manages the Session of the video currently on screen.
type Player struct {
	deps             Dependencies
	loader           *Loader
	clock            clock.Clock
	steps            editsession.Steps
	shortcutDefaults map[string]string
	indicatorDefault bool
	logger           *slog.Logger
	baseLogger       *slog.Logger

	mu      sync.Mutex
	session *Session
}

// New constructs a Player with no active session.
func New(deps Dependencies, opts ...Option) (*Player, error) {
	if deps.Store == nil {
		return nil, errors.New("player: store is required")
	}
	if deps.Media == nil {
		return nil, errors.New("player: media controller is required")
	}
	if deps.Domain == "" {
		return nil, errors.New("player: domain is required")
	}
	p := &Player{
		deps:             deps,
		clock:            clock.Real(),
		steps:            editsession.DefaultSteps(),
		indicatorDefault: true,
		logger:           logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.loader = NewLoader(deps.Store, deps.Fetcher)
	return p, nil
}

// Session returns the active session, or nil.
func (p *Player) Session() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// Setup tears down any previous session and builds one for videoID. A
// missing or unreadable transcript leaves the session with an empty cue list
// and reports the error through onError; it is not returned.
func (p *Player) Setup(ctx context.Context, videoID string, onError func(error)) (*Session, error) {
	if videoID == "" {
		return nil, errors.New("setup: empty video id")
	}
	p.Teardown()

	ctx = logging.WithVideoID(ctx, videoID)
	logger := logging.WithContext(ctx, p.logger)

	shortcuts, err := p.shortcuts(ctx)
	if err != nil {
		logging.WarnWithContext(logger, "stored shortcuts ignored", "shortcuts_invalid",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "reset them with `cuebridge shortcuts reset`"),
			logging.String(logging.FieldImpact, "default shortcuts are active"),
		)
		shortcuts = editsession.DefaultShortcuts()
	}
	indicator, err := kv.ShowIndicator(ctx, p.deps.Store, p.indicatorDefault)
	if err != nil {
		indicator = p.indicatorDefault
	}

	s := newSession(p, videoID, shortcuts, indicator, logger)
	if err := s.start(ctx); err != nil {
		s.close()
		return nil, err
	}

	p.mu.Lock()
	p.session = s
	p.mu.Unlock()

	if err := s.loadTranscript(ctx); err != nil {
		logging.WarnWithContext(logger, "transcript unavailable", "transcript_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "import a transcript or check remote.transcript_url_template"),
			logging.String(logging.FieldImpact, "session starts with no cues"),
		)
		if onError != nil {
			onError(err)
		}
	}
	return s, nil
}

// Teardown discards the active session.
func (p *Player) Teardown() {
	p.mu.Lock()
	s := p.session
	p.session = nil
	p.mu.Unlock()
	if s != nil {
		s.close()
	}
}

// HandleMediaEvent forwards a video element event to the active session.
func (p *Player) HandleMediaEvent(ev scheduler.MediaEvent) {
	if s := p.Session(); s != nil {
		s.Scheduler.HandleEvent(ev, p.deps.Media)
	}
}

// HandleKey forwards a key press to the active session.
func (p *Player) HandleKey(ev editsession.KeyEvent) bool {
	if s := p.Session(); s != nil {
		return s.Edit.HandleKey(ev)
	}
	return false
}

func (p *Player) shortcuts(ctx context.Context) (editsession.Shortcuts, error) {
	merged := make(map[string]string, len(p.shortcutDefaults))
	for action, key := range p.shortcutDefaults {
		merged[action] = key
	}
	stored, err := kv.GetShortcuts(ctx, p.deps.Store)
	if err != nil {
		return nil, err
	}
	for action, key := range stored {
		merged[action] = key
	}
	return editsession.ParseShortcuts(merged)
}

// Session is the per-video wiring built by Setup.
type Session struct {
	VideoID   string
	Key       string
	Indicator bool

	Tracks    *trackstore.Store
	Scheduler *scheduler.Scheduler
	Edit      *editsession.Session
	Router    *bridge.Router
	Channel   *bridge.Channel

	player *Player
	logger *slog.Logger

	mu      sync.Mutex
	cleanup []func()
	closed  bool
}

func newSession(p *Player, videoID string, shortcuts editsession.Shortcuts, indicator bool, logger *slog.Logger) *Session {
	s := &Session{
		VideoID:   videoID,
		Key:       cue.TranscriptKey(p.deps.Domain, videoID),
		Indicator: indicator,
		player:    p,
		logger:    logger,
	}

	s.Channel = bridge.NewChannel(p.deps.Store, videoID, s.Key, bridge.LoaderFunc(func(list []cue.Cue) bool {
		return s.Tracks.LoadData(list)
	}),
		bridge.WithChannelLogger(p.baseLogger),
		bridge.WithDraftMetadata(draftMetadata(p.deps, videoID)),
	)
	s.Router = bridge.NewRouter(p.deps.Port, s.Channel, p.baseLogger)
	s.Tracks = trackstore.New(s.Router, trackstore.WithLogger(p.baseLogger))
	s.Edit = editsession.New(s.Tracks, p.deps.Media, p.deps.Dialogs,
		editsession.WithShortcuts(shortcuts),
		editsession.WithSteps(p.steps),
		editsession.WithLogger(p.baseLogger),
	)

	announcer := p.deps.Announcer
	if announcer == nil {
		announcer = scheduler.AnnouncerFunc(func(string) {})
	}
	s.Scheduler = scheduler.New(s.Tracks, announcer,
		scheduler.WithClock(p.clock),
		scheduler.WithLogger(p.baseLogger),
		scheduler.WithPlayedHook(func(c cue.Cue) { s.Edit.SetLastPlayed(c.Timestamp) }),
	)
	return s
}

func draftMetadata(deps Dependencies, videoID string) cue.DraftMetadata {
	meta := cue.DraftMetadata{Metadata: cue.Metadata{Title: videoID}}
	if deps.PageURL != nil {
		meta.URL = deps.PageURL(videoID)
	}
	return meta
}

func (s *Session) start(ctx context.Context) error {
	s.addCleanup(s.Tracks.Changes().Subscribe(func(trackstore.Change) {
		s.Scheduler.Refresh(s.player.deps.Media)
	}))
	if err := s.Channel.Start(ctx); err != nil {
		return fmt.Errorf("start storage channel: %w", err)
	}
	s.addCleanup(s.Channel.Close)
	if port := s.player.deps.Port; port != nil {
		s.addCleanup(bridge.AttachPlayer(port, s.Router, s.Tracks, s.VideoID))
	}
	s.logger.Info("session started",
		logging.String("key", s.Key),
		logging.Bool("storage_bridged", s.Channel.Bridged()),
		logging.String(logging.FieldEventType, "session_started"),
	)
	return nil
}

// loadTranscript fills the store from a saved draft, the local transcript,
// or the remote catalog, in that order.
func (s *Session) loadTranscript(ctx context.Context) error {
	drafts, err := kv.GetDrafts(ctx, s.player.deps.Store)
	if err == nil {
		if draft, ok := drafts[s.Key]; ok && len(draft.Tracks) > 0 {
			s.Tracks.LoadData(draft.Tracks)
			s.logger.Info("resumed draft", logging.Int("cues", len(draft.Tracks)))
			return nil
		}
	}

	t, local, err := s.player.loader.Load(ctx, s.player.deps.Domain, s.VideoID)
	if err != nil {
		return err
	}
	s.Tracks.LoadData(t.Tracks())
	s.logger.Info("transcript loaded",
		logging.Int("cues", len(t.Tracks())),
		logging.Bool("local", local),
		logging.String("title", cue.Title(t.Metadata)),
	)
	return nil
}

// AnnounceID tells a directly bridged editor which video is playing.
func (s *Session) AnnounceID(ctx context.Context) error {
	return s.Router.AnnounceID(ctx, s.VideoID)
}

func (s *Session) addCleanup(fn func()) {
	s.mu.Lock()
	s.cleanup = append(s.cleanup, fn)
	s.mu.Unlock()
}

func (s *Session) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cleanup := s.cleanup
	s.cleanup = nil
	s.mu.Unlock()

	s.Scheduler.Stop()
	for i := len(cleanup) - 1; i >= 0; i-- {
		cleanup[i]()
	}
	s.logger.Info("session ended", logging.String(logging.FieldEventType, "session_ended"))
}
