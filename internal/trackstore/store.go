package trackstore

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"cuebridge/internal/bus"
	"cuebridge/internal/cue"
	"cuebridge/internal/logging"
)

// ErrCueNotFound is returned when no cue has the requested timestamp.
var ErrCueNotFound = errors.New("cue not found")

// Origin identifies what produced a Change.
type Origin int

const (
	// OriginMutation marks changes made through the setter or a mutation.
	OriginMutation Origin = iota
	// OriginLoad marks changes applied by LoadData.
	OriginLoad
)

// Change is published once per effective setter call or load.
type Change struct {
	// Tracks is the committed list after the change.
	Tracks []cue.Cue
	Origin Origin
	Kind   Kind
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logging.NewComponentLogger(logger, "trackstore")
	}
}

// WithNow overrides the wall clock used for snapshot timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides cue id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Store holds one session's cue list.
type Store struct {
	mu          sync.Mutex
	committed   []cue.Cue
	pending     []cue.Cue
	hasPending  bool
	lastTouched float64

	persistence Persistence
	changes     bus.Topic[Change]
	now         func() time.Time
	newID       func() string
	logger      *slog.Logger
}

// New constructs an empty store using p to persist mutations. A nil p means
// NoPersistence.
func New(p Persistence, opts ...Option) *Store {
	if p == nil {
		p = None()
	}
	s := &Store{
		committed:   []cue.Cue{},
		persistence: p,
		now:         time.Now,
		newID:       uuid.NewString,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Changes returns the topic change notifications are published on.
func (s *Store) Changes() *bus.Topic[Change] {
	return &s.changes
}

// CurrentTracks returns a copy of the committed list.
func (s *Store) CurrentTracks() []cue.Cue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cue.Clone(s.committed)
}

// LastTouched returns the timestamp of the most recently added, edited, or
// moved cue.
func (s *Store) LastTouched() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTouched
}

// AwaitingEcho reports whether a bridged write has not yet been loaded back.
func (s *Store) AwaitingEcho() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasPending
}

// SetCurrentTracks replaces the whole list. It reports false without side
// effects when list equals the working list.
func (s *Store) SetCurrentTracks(list []cue.Cue) (bool, error) {
	return s.mutate("set", func([]cue.Cue) ([]cue.Cue, *float64, error) {
		return cue.Clone(list), nil, nil
	})
}

// AddTrack inserts a cue at ts. Existing cues at ts are kept.
func (s *Store) AddTrack(ts float64, text string) error {
	_, err := s.mutate("add", func(base []cue.Cue) ([]cue.Cue, *float64, error) {
		return append(base, cue.Cue{ID: s.newID(), Timestamp: ts, Text: text}), &ts, nil
	})
	return err
}

// EditTrack replaces the text of the first cue at ts.
func (s *Store) EditTrack(ts float64, text string) error {
	_, err := s.mutate("edit", func(base []cue.Cue) ([]cue.Cue, *float64, error) {
		idx := cue.IndexOf(base, ts)
		if idx < 0 {
			return nil, nil, fmt.Errorf("edit cue at %vs: %w", ts, ErrCueNotFound)
		}
		base[idx].Text = text
		return base, &ts, nil
	})
	return err
}

// DeleteTrack removes the first cue at ts.
func (s *Store) DeleteTrack(ts float64) error {
	_, err := s.mutate("delete", func(base []cue.Cue) ([]cue.Cue, *float64, error) {
		idx := cue.IndexOf(base, ts)
		if idx < 0 {
			return nil, nil, fmt.Errorf("delete cue at %vs: %w", ts, ErrCueNotFound)
		}
		return append(base[:idx], base[idx+1:]...), nil, nil
	})
	return err
}

// MoveTrack shifts the first cue at ts by delta seconds and returns its new
// timestamp, rounded to milliseconds and never below zero.
func (s *Store) MoveTrack(ts, delta float64) (float64, error) {
	moved := cue.RoundMillis(ts + delta)
	if moved < 0 {
		moved = 0
	}
	_, err := s.mutate("move", func(base []cue.Cue) ([]cue.Cue, *float64, error) {
		idx := cue.IndexOf(base, ts)
		if idx < 0 {
			return nil, nil, fmt.Errorf("move cue at %vs: %w", ts, ErrCueNotFound)
		}
		base[idx].Timestamp = moved
		return base, &moved, nil
	})
	if err != nil {
		return ts, err
	}
	return moved, nil
}

// LoadData commits list directly, bypassing the persistence strategy. It is
// the path for remote fetches, storage echoes, and relayed updates. Any
// outstanding bridged write is considered answered.
func (s *Store) LoadData(list []cue.Cue) bool {
	next := s.prepare(list)

	s.mu.Lock()
	s.pending = nil
	s.hasPending = false
	if cue.Equal(s.committed, next) {
		s.mu.Unlock()
		return false
	}
	s.committed = next
	kind := s.persistence.Active().Kind()
	snapshot := cue.Clone(next)
	s.mu.Unlock()

	s.logger.Debug("tracks loaded",
		logging.Int("cues", len(next)),
		logging.String(logging.FieldEventType, "tracks_loaded"),
	)
	s.changes.Publish(Change{Tracks: snapshot, Origin: OriginLoad, Kind: kind})
	return true
}

// TracksToGo returns the committed cues at or after from, in order.
func (s *Store) TracksToGo(from float64) []cue.Cue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cue.From(s.committed, from)
}

// TrackByTimestamp returns the first committed cue at ts.
func (s *Store) TrackByTimestamp(ts float64) (cue.Cue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := cue.IndexOf(s.committed, ts)
	if idx < 0 {
		return cue.Cue{}, false
	}
	return s.committed[idx], true
}

type mutation func(base []cue.Cue) ([]cue.Cue, *float64, error)

// mutate applies fn to a copy of the working list. Persistence and change
// notification run after the lock is released because a strategy may echo
// synchronously into LoadData.
func (s *Store) mutate(op string, fn mutation) (bool, error) {
	s.mu.Lock()
	base := s.workingLocked()
	next, touched, err := fn(cue.Clone(base))
	if err != nil {
		s.mu.Unlock()
		return false, err
	}
	next = s.prepare(next)
	if cue.Equal(base, next) {
		s.mu.Unlock()
		return false, nil
	}

	strategy := s.persistence.Active()
	kind := strategy.Kind()
	prevPending, prevHasPending, prevTouched := s.pending, s.hasPending, s.lastTouched
	if touched != nil {
		s.lastTouched = *touched
	}
	if kind.CommitsLocally() {
		s.committed = next
	} else {
		s.pending = next
		s.hasPending = true
	}
	snapshot := Snapshot{
		Tracks:      cue.Clone(next),
		LastTouched: s.lastTouched,
		Timestamp:   s.now().UnixMilli(),
	}
	s.mu.Unlock()

	if err := strategy.Persist(snapshot); err != nil {
		if kind.CommitsLocally() {
			logging.WarnWithContext(s.logger, "cue persistence failed; change kept locally", "track_persist_failed",
				logging.String("op", op),
				logging.String("strategy", kind.String()),
				logging.Error(err),
				logging.String(logging.FieldImpact, "bridged editor or draft may be out of date"),
			)
		} else {
			s.mu.Lock()
			if s.hasPending && cue.Equal(s.pending, next) {
				s.pending, s.hasPending, s.lastTouched = prevPending, prevHasPending, prevTouched
			}
			s.mu.Unlock()
			return false, fmt.Errorf("%s cue: persist %s: %w", op, kind, err)
		}
	}

	s.logger.Debug("tracks mutated",
		logging.String("op", op),
		logging.String("strategy", kind.String()),
		logging.Int("cues", len(next)),
	)
	s.changes.Publish(Change{Tracks: s.CurrentTracks(), Origin: OriginMutation, Kind: kind})
	return true, nil
}

func (s *Store) workingLocked() []cue.Cue {
	if s.hasPending {
		return s.pending
	}
	return s.committed
}

// prepare copies, sorts, and assigns ids to cues that lack one.
func (s *Store) prepare(list []cue.Cue) []cue.Cue {
	out := cue.Clone(list)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = s.newID()
		}
	}
	cue.Sort(out)
	return out
}
