package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"cuebridge/internal/api"
	"cuebridge/internal/config"
	"cuebridge/internal/cue"
	"cuebridge/internal/library"
	"cuebridge/internal/logging"
)

const (
	relayPath          = "/relay"
	maxImportBodyBytes = 8 << 20
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Relay.Bind),
		logger: logger,
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", srv.handleStatus)
	mux.HandleFunc("/api/tabs", srv.handleTabs)
	mux.HandleFunc("/api/transcripts", srv.handleTranscripts)
	mux.HandleFunc("/api/transcripts/", srv.handleTranscript)
	mux.Handle(relayPath, d.relay)

	srv.handler = authMiddleware(cfg.Relay.APIToken, mux)
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	listener, server := s.listener, s.server
	s.listener, s.server = nil, nil
	s.mu.Unlock()
	if listener == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	_ = listener.Close()
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, toAPIStatus(s.daemon.Status(r.Context())))
}

func (s *apiServer) handleTabs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.writeJSON(w, http.StatusOK, api.TabListResponse{Tabs: api.FromTabs(s.daemon.Tabs())})
}

func (s *apiServer) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries, err := s.daemon.library.ListTranscripts(r.Context())
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if domain := strings.TrimSpace(r.URL.Query().Get("domain")); domain != "" {
			filtered := entries[:0]
			for _, e := range entries {
				if strings.EqualFold(e.Transcript.Source.Domain, domain) {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}
		s.writeJSON(w, http.StatusOK, api.TranscriptListResponse{Transcripts: api.FromEntries(entries)})
	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBodyBytes))
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "read body: "+err.Error())
			return
		}
		doc, err := cue.Decode(body, cue.FormatJSON)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		key, err := s.daemon.library.ImportTranscript(r.Context(), doc)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, library.ErrInvalidTranscript) {
				status = http.StatusBadRequest
			}
			s.writeError(w, status, err.Error())
			return
		}
		s.writeJSON(w, http.StatusCreated, map[string]string{"key": key})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) handleTranscript(w http.ResponseWriter, r *http.Request) {
	domain, id, ok := strings.Cut(strings.TrimPrefix(r.URL.Path, "/api/transcripts/"), "/")
	if !ok || domain == "" || id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "transcript not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := s.daemon.library.GetTranscript(r.Context(), domain, id)
		if err != nil {
			s.writeLibraryError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.TranscriptResponse{Key: doc.Key(), Transcript: doc})
	case http.MethodDelete:
		if err := s.daemon.library.DeleteTranscript(r.Context(), domain, id); err != nil {
			s.writeLibraryError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *apiServer) writeLibraryError(w http.ResponseWriter, err error) {
	if errors.Is(err, library.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.writeError(w, http.StatusInternalServerError, err.Error())
}

func toAPIStatus(status Status) api.DaemonStatus {
	return api.DaemonStatus{
		Running:        status.Running,
		PID:            status.PID,
		StartedAt:      api.FormatTime(status.StartedAt),
		RelayAddress:   status.RelayAddress,
		DatabasePath:   status.DatabasePath,
		LockFilePath:   status.LockFilePath,
		LogPath:        status.LogPath,
		Tabs:           status.Tabs,
		PendingBridges: status.PendingBridges,
		Transcripts:    status.Transcripts,
		Drafts:         status.Drafts,
		EditingID:      status.EditingID,
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "api-server")
}
