package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"strings"
	"sync"

	"cuebridge/internal/api"
	"cuebridge/internal/daemon"
	"cuebridge/internal/editsession"
	"cuebridge/internal/logging"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logger, ctx: ctx}
	if err := rpcServer.RegisterName(ServiceName, srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return
				}
				logging.WarnWithContext(s.logger, "accept failed", "ipc_accept_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "IPC clients may fail to connect"),
					logging.String(logging.FieldErrorHint, "Check socket permissions and restart the daemon if needed"))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file. Connected clients are
// served until they hang up.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		logging.WarnWithContext(s.logger, "failed to remove socket", "ipc_socket_cleanup_failed",
			logging.String("socket", s.path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stale IPC socket may block future starts"),
			logging.String(logging.FieldErrorHint, "Remove the socket file manually"))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) log() *slog.Logger {
	return logging.NewComponentLogger(s.logger, "ipc")
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Status = api.DaemonStatus{
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
	return nil
}

func (s *service) Tabs(_ TabsRequest, resp *TabsResponse) error {
	resp.Tabs = api.FromTabs(s.daemon.Tabs())
	return nil
}

func (s *service) TranscriptList(req TranscriptListRequest, resp *TranscriptListResponse) error {
	entries, err := s.daemon.Library().ListTranscripts(s.ctx)
	if err != nil {
		return err
	}
	domain := strings.TrimSpace(req.Domain)
	resp.Transcripts = make([]api.TranscriptSummary, 0, len(entries))
	for _, e := range entries {
		if domain != "" && !strings.EqualFold(domain, e.Transcript.Source.Domain) {
			continue
		}
		resp.Transcripts = append(resp.Transcripts, api.FromEntry(e))
	}
	return nil
}

func (s *service) TranscriptGet(req TranscriptGetRequest, resp *TranscriptGetResponse) error {
	doc, err := s.daemon.Library().GetTranscript(s.ctx, req.Domain, req.ID)
	if err != nil {
		return err
	}
	resp.Key = doc.Key()
	resp.Transcript = doc
	return nil
}

func (s *service) TranscriptImport(req TranscriptImportRequest, resp *TranscriptImportResponse) error {
	key, err := s.daemon.Library().ImportTranscript(s.ctx, req.Transcript)
	if err != nil {
		return err
	}
	resp.Key = key
	s.log().Info("transcript imported via IPC",
		logging.String("key", key),
		logging.String(logging.FieldEventType, "ipc_transcript_import"))
	return nil
}

func (s *service) TranscriptDelete(req TranscriptDeleteRequest, resp *TranscriptDeleteResponse) error {
	if err := s.daemon.Library().DeleteTranscript(s.ctx, req.Domain, req.ID); err != nil {
		return err
	}
	resp.Deleted = true
	return nil
}

func (s *service) DraftList(_ DraftListRequest, resp *DraftListResponse) error {
	drafts, err := s.daemon.Library().ListDrafts(s.ctx)
	if err != nil {
		return err
	}
	resp.Drafts = api.FromDrafts(drafts)
	return nil
}

func (s *service) DraftExport(req DraftKeyRequest, resp *DraftExportResponse) error {
	doc, err := s.daemon.Library().DraftTranscript(s.ctx, req.Key)
	if err != nil {
		return err
	}
	resp.Transcript = doc
	return nil
}

func (s *service) DraftPromote(req DraftKeyRequest, resp *DraftPromoteResponse) error {
	key, err := s.daemon.Library().PromoteDraft(s.ctx, req.Key)
	if err != nil {
		return err
	}
	resp.Key = key
	return nil
}

func (s *service) DraftDelete(req DraftKeyRequest, resp *DraftDeleteResponse) error {
	if err := s.daemon.Library().DeleteDraft(s.ctx, req.Key); err != nil {
		return err
	}
	resp.Deleted = true
	return nil
}

func (s *service) DraftClear(_ DraftClearRequest, resp *DraftClearResponse) error {
	removed, err := s.daemon.Library().ClearDrafts(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	s.log().Info("drafts cleared via IPC",
		logging.Int("removed", removed),
		logging.String(logging.FieldEventType, "ipc_drafts_cleared"))
	return nil
}

func (s *service) ShortcutsGet(_ ShortcutsGetRequest, resp *ShortcutsResponse) error {
	shortcuts, err := s.daemon.Library().LoadShortcuts(s.ctx)
	if err != nil {
		return err
	}
	return s.fillShortcuts(shortcuts, resp)
}

func (s *service) ShortcutsSet(req ShortcutsSetRequest, resp *ShortcutsResponse) error {
	lib := s.daemon.Library()
	shortcuts, err := lib.LoadShortcuts(s.ctx)
	if err != nil {
		return err
	}
	if len(req.Overrides) > 0 {
		if shortcuts, err = lib.SaveShortcuts(s.ctx, req.Overrides); err != nil {
			return err
		}
	}
	if req.ShowIndicator != nil {
		if err := lib.SetShowIndicator(s.ctx, *req.ShowIndicator); err != nil {
			return err
		}
	}
	return s.fillShortcuts(shortcuts, resp)
}

func (s *service) ShortcutsReset(_ ShortcutsResetRequest, resp *ShortcutsResponse) error {
	shortcuts, err := s.daemon.Library().ResetShortcuts(s.ctx)
	if err != nil {
		return err
	}
	return s.fillShortcuts(shortcuts, resp)
}

func (s *service) fillShortcuts(shortcuts editsession.Shortcuts, resp *ShortcutsResponse) error {
	show, err := s.daemon.Library().ShowIndicator(s.ctx)
	if err != nil {
		return err
	}
	resp.ShowIndicator = show
	for _, entry := range shortcuts.Help() {
		resp.Bindings = append(resp.Bindings, ShortcutBinding{
			Action:      string(entry.Action),
			Key:         entry.Key,
			Description: entry.Description,
		})
	}
	return nil
}
