// Package editsession turns keystrokes into cue edits while a video plays.
//
// A Session starts Idle. The toggle key arms it; while Armed every other
// shortcut adds, edits, moves, or navigates cues through the session's
// TrackStore and seeks the media. Keys are ignored whenever focus sits inside
// one of the session's dialogs.
package editsession

import (
	"log/slog"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"cuebridge/internal/bus"
	"cuebridge/internal/cue"
	"cuebridge/internal/logging"
	"cuebridge/internal/scheduler"
)

// State is the keyboard mode.
type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// KeyEvent is one key press.
type KeyEvent struct {
	Key   string
	Shift bool
	Alt   bool
	Ctrl  bool
	Meta  bool
}

// MediaController controls the video element.
type MediaController interface {
	scheduler.Media
	Seek(seconds float64)
	Play()
	Pause()
}

// DraftMode says whether a cue dialog creates or edits.
type DraftMode int

const (
	ModeAdd DraftMode = iota
	ModeEdit
)

// CueDraft is the content of the add/edit dialog.
type CueDraft struct {
	Mode      DraftMode
	Timestamp float64
	Text      string
}

// Dialogs renders the session's modal surfaces.
type Dialogs interface {
	// FocusInDialog reports whether keyboard focus is inside any dialog.
	FocusInDialog() bool
	// OpenCueEditor shows draft and calls submit when the user confirms.
	OpenCueEditor(draft CueDraft, submit func(CueDraft))
	ShowTranscript(cues []cue.Cue)
	ShowHelp(entries []HelpEntry)
	EditMetadata()
	OpenNotes()
	Export(cues []cue.Cue)
}

// Store is the subset of the TrackStore the session mutates.
type Store interface {
	CurrentTracks() []cue.Cue
	TrackByTimestamp(ts float64) (cue.Cue, bool)
	AddTrack(ts float64, text string) error
	EditTrack(ts float64, text string) error
	MoveTrack(ts, delta float64) (float64, error)
}

// Steps holds the seek and move distances in seconds.
type Steps struct {
	LeadIn   float64
	Seek     float64
	SeekFine float64
	Move     float64
	MoveFine float64
}

// DefaultSteps returns the built-in distances.
func DefaultSteps() Steps {
	return Steps{LeadIn: 3, Seek: 5, SeekFine: 1, Move: 1, MoveFine: 0.1}
}

// Option customizes a Session.
type Option func(*Session)

// WithShortcuts replaces the default key map.
func WithShortcuts(s Shortcuts) Option {
	return func(sess *Session) {
		if len(s) > 0 {
			sess.shortcuts = s
		}
	}
}

// WithSteps replaces the default distances.
func WithSteps(steps Steps) Option {
	return func(sess *Session) {
		sess.steps = steps
	}
}

// WithLogger sets the session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(sess *Session) {
		sess.logger = logging.NewComponentLogger(logger, "editsession")
	}
}

// Session is the keyboard state machine of one player session.
type Session struct {
	store     Store
	media     MediaController
	dialogs   Dialogs
	shortcuts Shortcuts
	steps     Steps
	logger    *slog.Logger
	modes     bus.Topic[State]

	mu         sync.Mutex
	state      State
	marker     *float64
	lastPlayed float64
}

// New constructs an Idle session. A nil dialogs runs headless: dialog keys
// are consumed but show nothing, and add/edit never submit.
func New(store Store, media MediaController, dialogs Dialogs, opts ...Option) *Session {
	if dialogs == nil {
		dialogs = noDialogs{}
	}
	s := &Session{
		store:      store,
		media:      media,
		dialogs:    dialogs,
		shortcuts:  DefaultShortcuts(),
		steps:      DefaultSteps(),
		logger:     logging.NewNop(),
		lastPlayed: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Modes publishes the new state after every toggle.
func (s *Session) Modes() *bus.Topic[State] {
	return &s.modes
}

// State returns the current mode.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Marker returns the marked position, if any.
func (s *Session) Marker() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.marker == nil {
		return 0, false
	}
	return *s.marker, true
}

// LastPlayed returns the last played cue timestamp, if any.
func (s *Session) LastPlayed() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPlayed, s.lastPlayed >= 0
}

// SetLastPlayed points the session at the cue at ts. The scheduler calls it
// as cues fire.
func (s *Session) SetLastPlayed(ts float64) {
	s.mu.Lock()
	s.lastPlayed = ts
	s.mu.Unlock()
}

// Shortcuts returns the active key map.
func (s *Session) Shortcuts() Shortcuts {
	return s.shortcuts
}

// HandleKey runs the action bound to ev. It reports whether the key was
// consumed, so callers can suppress the default browser or terminal action.
func (s *Session) HandleKey(ev KeyEvent) bool {
	if ev.Ctrl || ev.Meta || utf8.RuneCountInString(ev.Key) != 1 {
		return false
	}
	action, ok := s.shortcuts.Lookup(ev.Key)
	if !ok {
		return false
	}
	if s.dialogs.FocusInDialog() {
		return false
	}

	switch action {
	case ToggleEditMode:
		s.toggle()
		return true
	case DisplayTranscript:
		s.dialogs.ShowTranscript(s.store.CurrentTracks())
		return true
	}

	if s.State() != Armed {
		return false
	}

	switch action {
	case AddTrack:
		s.openAdd()
	case EditTrack:
		s.openEdit()
	case MarkPosition:
		now := s.media.CurrentTime()
		s.mu.Lock()
		s.marker = &now
		s.mu.Unlock()
	case JumpBack:
		s.jump(-s.seekStep(ev))
	case JumpForward:
		s.jump(s.seekStep(ev))
	case PreviousTrack:
		s.step(-1)
	case NextTrack:
		s.step(1)
	case MoveTrackBack:
		s.move(-s.moveStep(ev))
	case MoveTrackForward:
		s.move(s.moveStep(ev))
	case ShowHelp:
		s.dialogs.ShowHelp(s.shortcuts.Help())
	case EditMetadata:
		s.dialogs.EditMetadata()
	case OpenNotes:
		s.dialogs.OpenNotes()
	case Export:
		s.dialogs.Export(s.store.CurrentTracks())
	default:
		return false
	}
	return true
}

func (s *Session) toggle() {
	s.mu.Lock()
	if s.state == Armed {
		s.state = Idle
	} else {
		s.state = Armed
	}
	state := s.state
	s.mu.Unlock()
	s.logger.Info("edit mode toggled", logging.String("state", state.String()))
	s.modes.Publish(state)
}

func (s *Session) openAdd() {
	s.media.Pause()
	s.mu.Lock()
	var ts float64
	if s.marker != nil {
		ts = *s.marker
	} else {
		ts = s.media.CurrentTime()
	}
	s.mu.Unlock()
	ts = roundTenth(ts)

	s.dialogs.OpenCueEditor(CueDraft{Mode: ModeAdd, Timestamp: ts}, func(d CueDraft) {
		text := strings.TrimSpace(d.Text)
		if text == "" || d.Timestamp < 0 {
			return
		}
		if err := s.store.AddTrack(d.Timestamp, text); err != nil {
			logging.WarnWithContext(s.logger, "add cue failed", "cue_add_failed",
				logging.Float64("timestamp", d.Timestamp),
				logging.Error(err),
				logging.String(logging.FieldImpact, "cue was not saved"),
			)
			return
		}
		s.mu.Lock()
		s.lastPlayed = d.Timestamp
		s.marker = nil
		s.mu.Unlock()
		s.resumeBefore(d.Timestamp)
	})
}

func (s *Session) openEdit() {
	ts, ok := s.LastPlayed()
	if !ok {
		return
	}
	current, ok := s.store.TrackByTimestamp(ts)
	if !ok {
		return
	}
	s.media.Pause()
	s.dialogs.OpenCueEditor(CueDraft{Mode: ModeEdit, Timestamp: ts, Text: current.Text}, func(d CueDraft) {
		text := strings.TrimSpace(d.Text)
		if text == "" {
			return
		}
		if err := s.store.EditTrack(ts, text); err != nil {
			logging.WarnWithContext(s.logger, "edit cue failed", "cue_edit_failed",
				logging.Float64("timestamp", ts),
				logging.Error(err),
				logging.String(logging.FieldImpact, "cue text unchanged"),
			)
			return
		}
		s.resumeBefore(ts)
	})
}

func (s *Session) resumeBefore(ts float64) {
	s.media.Seek(math.Max(ts-s.steps.LeadIn, 0))
	s.media.Play()
}

func (s *Session) jump(delta float64) {
	s.media.Seek(math.Max(s.media.CurrentTime()+delta, 0))
}

func (s *Session) step(direction int) {
	tracks := s.store.CurrentTracks()
	if len(tracks) == 0 {
		return
	}
	pointer, ok := s.LastPlayed()
	var target *cue.Cue
	switch {
	case !ok && direction > 0:
		target = &tracks[0]
	case !ok:
		return
	case direction > 0:
		for i := range tracks {
			if tracks[i].Timestamp > pointer {
				target = &tracks[i]
				break
			}
		}
	default:
		for i := len(tracks) - 1; i >= 0; i-- {
			if tracks[i].Timestamp < pointer {
				target = &tracks[i]
				break
			}
		}
	}
	if target == nil {
		return
	}
	s.SetLastPlayed(target.Timestamp)
	s.media.Seek(target.Timestamp)
	s.media.Play()
}

func (s *Session) move(delta float64) {
	pointer, ok := s.LastPlayed()
	if !ok {
		return
	}
	moved, err := s.store.MoveTrack(pointer, delta)
	if err != nil {
		s.logger.Debug("move skipped", logging.Float64("timestamp", pointer), logging.Error(err))
		return
	}
	s.mu.Lock()
	if s.lastPlayed == pointer {
		s.lastPlayed = moved
	}
	s.mu.Unlock()
}

func (s *Session) seekStep(ev KeyEvent) float64 {
	if ev.Alt {
		return s.steps.SeekFine
	}
	return s.steps.Seek
}

func (s *Session) moveStep(ev KeyEvent) float64 {
	if ev.Shift {
		return s.steps.MoveFine
	}
	return s.steps.Move
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

type noDialogs struct{}

func (noDialogs) FocusInDialog() bool                    { return false }
func (noDialogs) OpenCueEditor(CueDraft, func(CueDraft)) {}
func (noDialogs) ShowTranscript([]cue.Cue)               {}
func (noDialogs) ShowHelp([]HelpEntry)                   {}
func (noDialogs) EditMetadata()                          {}
func (noDialogs) OpenNotes()                             {}
func (noDialogs) Export([]cue.Cue)                       {}
