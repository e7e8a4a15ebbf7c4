// Package scheduler fires cue announcements in step with media playback.
//
// PlayFrom arms one timer per upcoming cue relative to the current position;
// Stop cancels them all. Media events and cue list changes drive both, so the
// announcements follow the video rather than wall time.
package scheduler

import (
	"log/slog"
	"sync"

	"cuebridge/internal/clock"
	"cuebridge/internal/cue"
	"cuebridge/internal/logging"
)

// TrackSource supplies the cues at or after a position.
type TrackSource interface {
	TracksToGo(from float64) []cue.Cue
}

// Announcer receives cue text when a cue fires, e.g. an aria-live region or
// a terminal writer.
type Announcer interface {
	Announce(text string)
}

// AnnouncerFunc adapts a function to Announcer.
type AnnouncerFunc func(text string)

func (f AnnouncerFunc) Announce(text string) { f(text) }

// Media reports the playback position of the video element.
type Media interface {
	CurrentTime() float64
	Paused() bool
}

// MediaEvent names a playback state transition.
type MediaEvent string

const (
	EventPlaying MediaEvent = "playing"
	EventPause   MediaEvent = "pause"
	EventSeeking MediaEvent = "seeking"
	EventWaiting MediaEvent = "waiting"
	EventEmptied MediaEvent = "emptied"
	EventEnded   MediaEvent = "ended"
)

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithClock overrides the timer source.
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithPlayedHook registers fn to run with each cue just before it is
// announced.
func WithPlayedHook(fn func(cue.Cue)) Option {
	return func(s *Scheduler) {
		s.onPlayed = fn
	}
}

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logging.NewComponentLogger(logger, "scheduler")
	}
}

// Scheduler holds the pending timers of one session.
type Scheduler struct {
	source    TrackSource
	announcer Announcer
	clock     clock.Clock
	onPlayed  func(cue.Cue)
	logger    *slog.Logger

	mu         sync.Mutex
	generation uint64
	timers     []clock.Timer
}

// New constructs a scheduler reading cues from source.
func New(source TrackSource, announcer Announcer, opts ...Option) *Scheduler {
	s := &Scheduler{
		source:    source,
		announcer: announcer,
		clock:     clock.Real(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlayFrom cancels every pending timer and arms one per cue at or after
// start, firing (timestamp - start) seconds from now. It returns the number
// of timers armed.
func (s *Scheduler) PlayFrom(start float64) int {
	upcoming := s.source.TracksToGo(start)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	gen := s.generation
	for _, c := range upcoming {
		delay := clock.Seconds(c.Timestamp - start)
		s.timers = append(s.timers, s.clock.AfterFunc(delay, func() { s.fire(gen, c) }))
	}
	s.logger.Debug("cues scheduled",
		logging.Float64("from", start),
		logging.Int("count", len(upcoming)),
	)
	return len(upcoming)
}

// Stop cancels every pending timer. It is safe to call with nothing pending.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Pending returns the number of timers armed by the last PlayFrom that have
// not been cancelled. Fired timers are included until the next Stop.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// HandleEvent reacts to a media state transition.
func (s *Scheduler) HandleEvent(ev MediaEvent, media Media) {
	switch ev {
	case EventPlaying:
		s.PlayFrom(media.CurrentTime())
	case EventPause, EventSeeking, EventWaiting, EventEmptied, EventEnded:
		s.Stop()
	}
}

// Refresh reschedules after the cue list changed. Paused media only has its
// timers cleared.
func (s *Scheduler) Refresh(media Media) {
	if media == nil || media.Paused() {
		s.Stop()
		return
	}
	s.PlayFrom(media.CurrentTime())
}

func (s *Scheduler) stopLocked() {
	s.generation++
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

func (s *Scheduler) fire(gen uint64, c cue.Cue) {
	s.mu.Lock()
	current := gen == s.generation
	s.mu.Unlock()
	if !current {
		return
	}
	if s.onPlayed != nil {
		s.onPlayed(c)
	}
	if s.announcer != nil {
		s.announcer.Announce(c.Text)
	}
}
