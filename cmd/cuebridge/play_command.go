package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"cuebridge/internal/config"
	"cuebridge/internal/cue"
	"cuebridge/internal/kv"
	"cuebridge/internal/logging"
	"cuebridge/internal/player"
	"cuebridge/internal/scheduler"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var from float64
	var language string
	cmd := &cobra.Command{
		Use:   "play FILE",
		Short: "Announce a transcript's cues in real time",
		Long: "Read a transcript file and print each cue when its timestamp is reached, timed\n" +
			"by a player session configured like the browser one. Useful for checking pacing\n" +
			"without a video.",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if from < 0 {
				return fmt.Errorf("--from must not be negative")
			}
			t, err := readTranscriptFile(args[0])
			if err != nil {
				return err
			}
			script, err := pickScript(t, language)
			if err != nil {
				return err
			}
			cfg, _, _, err := config.Load(ctx.configPath())
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{Level: "warn", Format: "console", OutputPaths: []string{"stderr"}})
			if err != nil {
				return err
			}

			// The session loads the chosen script from a private store, so
			// neither the daemon nor the remote catalog is consulted.
			store := kv.NewMemory()
			single := t
			single.Scripts = []cue.Script{script}
			if err := kv.SetTranscript(cmd.Context(), store, single); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			media := newWallClockMedia()
			announcer := newTerminalAnnouncer(out, media)
			p, err := player.NewFromConfig(cfg, player.Dependencies{
				Domain:    t.Source.Domain,
				Store:     store,
				Media:     media,
				Announcer: announcer,
				Fetcher:   noFetcher{},
				PageURL:   func(string) string { return t.Source.URL },
			}, player.WithLogger(logger))
			if err != nil {
				return err
			}
			defer p.Teardown()

			sess, err := p.Setup(cmd.Context(), t.Source.ID, nil)
			if err != nil {
				return err
			}
			total := len(sess.Tracks.TracksToGo(from))
			if total == 0 {
				fmt.Fprintf(out, "No cues at or after %s\n", cue.DisplaySeconds(from))
				return nil
			}
			announcer.expect(total)

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			fmt.Fprintf(out, "Playing %s from %s: %d cues, last at %s\n",
				cue.Title(t.Metadata), cue.DisplaySeconds(from), total, cue.DisplaySeconds(cue.Sorted(script.Tracks)[len(script.Tracks)-1].Timestamp))
			media.Seek(from)
			media.Play()
			sess.Scheduler.PlayFrom(from)

			select {
			case <-announcer.done:
				return nil
			case <-signalCtx.Done():
				media.Pause()
				p.HandleMediaEvent(scheduler.EventPause)
				fmt.Fprintf(out, "Stopped at %s\n", cue.DisplaySeconds(media.CurrentTime()))
				return nil
			}
		},
	}
	cmd.Flags().Float64Var(&from, "from", 0, "Start position in seconds")
	cmd.Flags().StringVar(&language, "language", "", "Script language to play (default: the first script)")
	return cmd
}

func pickScript(t cue.Transcript, language string) (cue.Script, error) {
	language = strings.TrimSpace(language)
	if language == "" {
		if len(t.Scripts) == 0 {
			return cue.Script{}, fmt.Errorf("transcript has no scripts")
		}
		return t.Scripts[0], nil
	}
	available := make([]string, 0, len(t.Scripts))
	for _, s := range t.Scripts {
		if strings.EqualFold(s.Language, language) {
			return s, nil
		}
		available = append(available, s.Language)
	}
	return cue.Script{}, fmt.Errorf("no %s script; available: %s", language, strings.Join(available, ", "))
}

type noFetcher struct{}

func (noFetcher) Fetch(context.Context, string, string) (cue.Transcript, error) {
	return cue.Transcript{}, player.ErrNoTranscript
}

// wallClockMedia stands in for a video element driven by the wall clock.
type wallClockMedia struct {
	mu      sync.Mutex
	offset  float64
	started time.Time
}

func newWallClockMedia() *wallClockMedia {
	return &wallClockMedia{}
}

func (m *wallClockMedia) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.currentLocked()
}

func (m *wallClockMedia) currentLocked() float64 {
	if m.started.IsZero() {
		return m.offset
	}
	return m.offset + time.Since(m.started).Seconds()
}

func (m *wallClockMedia) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started.IsZero()
}

func (m *wallClockMedia) Seek(seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offset = seconds
	if !m.started.IsZero() {
		m.started = time.Now()
	}
}

func (m *wallClockMedia) Play() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started.IsZero() {
		m.started = time.Now()
	}
}

func (m *wallClockMedia) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offset = m.currentLocked()
	m.started = time.Time{}
}

// terminalAnnouncer prints each announcement with the playback position and
// closes done after the expected number of cues.
type terminalAnnouncer struct {
	out   io.Writer
	media scheduler.Media
	done  chan struct{}

	mu        sync.Mutex
	remaining int
}

func newTerminalAnnouncer(out io.Writer, media scheduler.Media) *terminalAnnouncer {
	return &terminalAnnouncer{out: out, media: media, done: make(chan struct{})}
}

func (a *terminalAnnouncer) expect(n int) {
	a.mu.Lock()
	a.remaining = n
	a.mu.Unlock()
}

func (a *terminalAnnouncer) Announce(text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.out, "[%s] %s\n", cue.DisplaySeconds(a.media.CurrentTime()), text)
	a.remaining--
	if a.remaining == 0 {
		close(a.done)
	}
}
