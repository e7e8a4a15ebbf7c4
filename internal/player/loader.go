package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cuebridge/internal/config"
	"cuebridge/internal/cue"
	"cuebridge/internal/kv"
)

// ErrNoTranscript is returned when neither the local store nor the remote
// catalog has a transcript for a video.
var ErrNoTranscript = errors.New("no transcript available")

const maxTranscriptBytes = 8 << 20

// HTTPDoer describes the HTTP client used to fetch remote transcripts.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher retrieves a published transcript.
type Fetcher interface {
	Fetch(ctx context.Context, domain, id string) (cue.Transcript, error)
}

// HTTPFetcher fetches transcripts from a URL template such as the public
// catalog on GitHub.
type HTTPFetcher struct {
	client  HTTPDoer
	urlFor  func(domain, id string) string
	timeout time.Duration
}

// NewHTTPFetcher builds a fetcher from the remote section of cfg.
func NewHTTPFetcher(cfg *config.Config, client HTTPDoer) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, urlFor: cfg.TranscriptURL, timeout: cfg.RemoteTimeout()}
}

// NewURLFetcher builds a fetcher for an arbitrary URL function.
func NewURLFetcher(urlFor func(domain, id string) string, client HTTPDoer) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, urlFor: urlFor}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, domain, id string) (cue.Transcript, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	target := f.urlFor(domain, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return cue.Transcript{}, fmt.Errorf("build transcript request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return cue.Transcript{}, fmt.Errorf("fetch transcript: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return cue.Transcript{}, fmt.Errorf("fetch %s: %w", target, ErrNoTranscript)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return cue.Transcript{}, fmt.Errorf("fetch %s: status %d", target, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxTranscriptBytes))
	if err != nil {
		return cue.Transcript{}, fmt.Errorf("read transcript: %w", err)
	}
	t, err := cue.Decode(data, cue.FormatJSON)
	if err != nil {
		return cue.Transcript{}, err
	}
	return t, nil
}

// Loader looks a transcript up in the shared store first and falls back to
// the remote fetcher.
type Loader struct {
	store   kv.Store
	fetcher Fetcher
}

// NewLoader builds a loader. A nil fetcher disables the remote fallback.
func NewLoader(store kv.Store, fetcher Fetcher) *Loader {
	return &Loader{store: store, fetcher: fetcher}
}

// Load returns the transcript for the video and whether it came from the
// local store.
func (l *Loader) Load(ctx context.Context, domain, id string) (cue.Transcript, bool, error) {
	key := cue.TranscriptKey(domain, id)
	t, ok, err := kv.GetTranscript(ctx, l.store, key)
	if err != nil {
		return cue.Transcript{}, false, fmt.Errorf("load %s: %w", key, err)
	}
	if ok {
		return t, true, nil
	}
	if l.fetcher == nil {
		return cue.Transcript{}, false, fmt.Errorf("load %s: %w", key, ErrNoTranscript)
	}
	t, err = l.fetcher.Fetch(ctx, domain, id)
	if err != nil {
		return cue.Transcript{}, false, err
	}
	if len(t.Scripts) == 0 {
		return cue.Transcript{}, false, fmt.Errorf("load %s: %w", key, ErrNoTranscript)
	}
	return t, false, nil
}
