package bridge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"cuebridge/internal/bridge"
	"cuebridge/internal/cue"
	"cuebridge/internal/kv"
	"cuebridge/internal/trackstore"
)

type recordingOpener struct {
	urls []string
	err  error
}

func (o *recordingOpener) Open(_ context.Context, url string) error {
	o.urls = append(o.urls, url)
	return o.err
}

func collect(p bridge.Port) *[]bridge.Message {
	out := new([]bridge.Message)
	p.Subscribe(func(m bridge.Message) { *out = append(*out, m) })
	return out
}

func TestBridgeHandshakeAndForward(t *testing.T) {
	ctx := context.Background()
	coord := bridge.NewCoordinator()
	player := coord.Connect("https://www.youtube.com/watch?v=abc", bridge.RolePlayer)
	editor := coord.Connect("https://editor.example/", bridge.RoleEditor)
	playerInbox := collect(player)
	editorInbox := collect(editor)

	if err := editor.Send(ctx, bridge.BridgeRequest("https://www.youtube.com/watch?v=abc")); err != nil {
		t.Fatalf("bridge: %v", err)
	}
	if len(*playerInbox) != 1 || (*playerInbox)[0].EditorTabID != editor.TabID() {
		t.Fatalf("player did not get editor handshake: %+v", *playerInbox)
	}
	if len(*editorInbox) != 1 || (*editorInbox)[0].PlayerTabID != player.TabID() {
		t.Fatalf("editor did not get player handshake: %+v", *editorInbox)
	}

	update := bridge.UpdateTracks([]cue.Cue{{Timestamp: 1, Text: "a"}}, 1)
	if err := player.Send(ctx, bridge.Forward(editor.TabID(), update)); err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(*editorInbox) != 2 || (*editorInbox)[1].Type != bridge.TypeUpdateScriptTracks || (*editorInbox)[1].Tracks[0].Text != "a" {
		t.Fatalf("forward not relayed verbatim: %+v", *editorInbox)
	}

	if err := player.Send(ctx, bridge.Forward(999, update)); err != nil {
		t.Fatalf("forward to unknown tab must drop silently: %v", err)
	}
}

func TestPendingBridgeCompletesOnRegistration(t *testing.T) {
	ctx := context.Background()
	opener := &recordingOpener{}
	coord := bridge.NewCoordinator(bridge.WithOpener(opener))
	editor := coord.Connect("https://editor.example/", bridge.RoleEditor)
	editorInbox := collect(editor)

	if err := editor.Send(ctx, bridge.BridgeRequest("https://www.hidive.com/video/1")); err != nil {
		t.Fatalf("bridge: %v", err)
	}
	if len(opener.urls) != 1 || coord.PendingBridges() != 1 {
		t.Fatalf("expected opener call and pending bridge, got %v %d", opener.urls, coord.PendingBridges())
	}

	player := coord.Connect("https://www.hidive.com/video/1/", bridge.RolePlayer)
	playerInbox := collect(player)
	if len(*playerInbox) != 1 || (*playerInbox)[0].EditorTabID != editor.TabID() {
		t.Fatalf("handshake not replayed to late subscriber: %+v", *playerInbox)
	}
	if len(*editorInbox) != 1 || coord.PendingBridges() != 0 {
		t.Fatalf("pending bridge not completed: %+v", *editorInbox)
	}
}

func TestBridgeURLMatching(t *testing.T) {
	tests := []struct {
		name     string
		tabURL   string
		target   string
		reuseTab bool
	}{
		{name: "identical", tabURL: "https://www.hidive.com/video/1", target: "https://www.hidive.com/video/1", reuseTab: true},
		{name: "trailing slash", tabURL: "https://www.hidive.com/video/1/", target: " https://www.hidive.com/video/1", reuseTab: true},
		{name: "different query", tabURL: "https://www.youtube.com/watch?v=a", target: "https://www.youtube.com/watch?v=b"},
		{name: "fragment", tabURL: "https://www.hidive.com/video/1#t=5", target: "https://www.hidive.com/video/1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opener := &recordingOpener{}
			coord := bridge.NewCoordinator(bridge.WithOpener(opener))
			coord.Connect(tc.tabURL, bridge.RolePlayer)
			editor := coord.Connect("https://editor.example/", bridge.RoleEditor)
			if err := editor.Send(context.Background(), bridge.BridgeRequest(tc.target)); err != nil {
				t.Fatalf("bridge: %v", err)
			}
			if reused := len(opener.urls) == 0; reused != tc.reuseTab {
				t.Fatalf("expected reuse=%v, opener calls %v", tc.reuseTab, opener.urls)
			}
		})
	}
}

func TestOpenerFailureDropsPending(t *testing.T) {
	coord := bridge.NewCoordinator(bridge.WithOpener(&recordingOpener{err: errors.New("no browser")}))
	editor := coord.Connect("e", bridge.RoleEditor)
	if err := editor.Send(context.Background(), bridge.BridgeRequest("p")); err == nil {
		t.Fatal("expected opener error")
	}
	if coord.PendingBridges() != 0 {
		t.Fatal("failed open must not leave a pending bridge")
	}
}

func TestNewHandshakeSupersedesAndCloseDrops(t *testing.T) {
	ctx := context.Background()
	coord := bridge.NewCoordinator()
	p1 := coord.Connect("p1", bridge.RolePlayer)
	p2 := coord.Connect("p2", bridge.RolePlayer)
	editor := coord.Connect("e", bridge.RoleEditor)

	_ = editor.Send(ctx, bridge.BridgeRequest("p1"))
	_ = editor.Send(ctx, bridge.BridgeRequest("p2"))
	if partner, _ := coord.Partner(editor.TabID()); partner != p2.TabID() {
		t.Fatalf("expected link to p2, got %d", partner)
	}
	if _, ok := coord.Partner(p1.TabID()); ok {
		t.Fatal("old link should be superseded")
	}

	_ = p2.Close()
	if _, ok := coord.Partner(editor.TabID()); ok {
		t.Fatal("closing a tab drops its link")
	}
	if err := p2.Send(ctx, bridge.BridgeRequest("p1")); !errors.Is(err, bridge.ErrPortClosed) {
		t.Fatalf("expected ErrPortClosed, got %v", err)
	}
	if got := len(coord.Tabs()); got != 2 {
		t.Fatalf("expected 2 tabs, got %d", got)
	}
}

func TestCoordinatorRejectsUnknownSender(t *testing.T) {
	coord := bridge.NewCoordinator()
	err := coord.Handle(context.Background(), 42, bridge.BridgeRequest("x"))
	if !errors.Is(err, bridge.ErrUnknownTab) {
		t.Fatalf("expected ErrUnknownTab, got %v", err)
	}
	if err := coord.Handle(context.Background(), 42, bridge.IDAnnounce("v")); err == nil {
		t.Fatal("coordinator should reject non-routing messages")
	}
}

func TestDecodeMessage(t *testing.T) {
	msg, err := bridge.DecodeMessage([]byte(`{"type":"forward","tabId":3,"message":{"type":"update-script-tracks","tracks":[{"timestamp":2,"text":"x"}],"lastTouched":2}}`))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.TabID != 3 || msg.Message.Tracks[0].Text != "x" {
		t.Fatalf("unexpected message %+v", msg)
	}
	for _, bad := range []string{`{"type":"nope"}`, `{"type":"bridge"}`, `{"type":"forward","tabId":1}`, `{`} {
		if _, err := bridge.DecodeMessage([]byte(bad)); err == nil {
			t.Fatalf("expected error for %s", bad)
		}
	}
}

// newPlayer wires a store the way a player session does.
func newPlayer(t *testing.T, store kv.Store, port bridge.Port, videoID string) (*trackstore.Store, *bridge.Router, *bridge.Channel) {
	t.Helper()
	key := cue.TranscriptKey("youtube", videoID)
	var tracks *trackstore.Store
	var router *bridge.Router
	channel := bridge.NewChannel(store, videoID, key, bridge.LoaderFunc(func(list []cue.Cue) bool {
		return tracks.LoadData(list)
	}))
	router = bridge.NewRouter(port, channel, nil)
	tracks = trackstore.New(router)
	if err := channel.Start(context.Background()); err != nil {
		t.Fatalf("channel start: %v", err)
	}
	t.Cleanup(channel.Close)
	if port != nil {
		t.Cleanup(bridge.AttachPlayer(port, router, tracks, videoID))
	}
	return tracks, router, channel
}

func TestStorageBridgingScenario(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	editor := bridge.NewEditorLink(store, bridge.WithEditorClock(func() time.Time { return time.UnixMilli(1_000) }))
	editor.Start()
	defer editor.Close()
	var received []bridge.TracksUpdate
	editor.Updates().Subscribe(func(u bridge.TracksUpdate) { received = append(received, u) })

	tracks, router, channel := newPlayer(t, store, nil, "v1")
	if router.Active().Kind() != trackstore.DraftPersist {
		t.Fatalf("unbridged player should save drafts, got %s", router.Active().Kind())
	}

	if err := editor.AnnounceID(ctx, "v1"); err != nil {
		t.Fatalf("AnnounceID: %v", err)
	}
	if !channel.Bridged() || router.Active().Kind() != trackstore.BridgedPersist {
		t.Fatal("player serving v1 should become bridged")
	}

	if err := tracks.AddTrack(4, "door opens"); err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	update, ok, err := kv.GetTrackUpdate(ctx, store)
	if err != nil || !ok || len(update.Tracks) != 1 || update.LastTouched != 4 {
		t.Fatalf("expected trackUpdates write, got %+v ok=%v err=%v", update, ok, err)
	}
	if got := tracks.CurrentTracks(); len(got) != 1 || got[0].Text != "door opens" {
		t.Fatalf("echo should commit the write, got %+v", got)
	}
	if len(received) != 1 || received[0].Tracks[0].Text != "door opens" {
		t.Fatalf("editor should see the player write, got %+v", received)
	}

	if err := editor.PushTracks(ctx, []cue.Cue{{Timestamp: 1, Text: "from editor"}}); err != nil {
		t.Fatalf("PushTracks: %v", err)
	}
	if got := tracks.CurrentTracks(); len(got) != 1 || got[0].Text != "from editor" {
		t.Fatalf("player should load editor tracks, got %+v", got)
	}
	if len(received) != 1 {
		t.Fatalf("editor must ignore its own echo, got %d updates", len(received))
	}

	if err := editor.AnnounceID(ctx, "v2"); err != nil {
		t.Fatalf("AnnounceID: %v", err)
	}
	if channel.Bridged() {
		t.Fatal("announcing another id leaves the bridged state")
	}
}

func TestUnbridgedPlayerIgnoresTrackUpdatesAndSavesDrafts(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	tracks, _, _ := newPlayer(t, store, nil, "v9")

	_ = kv.SetTrackUpdate(ctx, store, kv.TrackUpdate{Tracks: []cue.Cue{{Timestamp: 3, Text: "other"}}})
	if len(tracks.CurrentTracks()) != 0 {
		t.Fatal("unbridged player must ignore trackUpdates")
	}

	if err := tracks.AddTrack(2, "draft cue"); err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	if len(tracks.CurrentTracks()) != 1 {
		t.Fatal("draft persistence commits locally")
	}
	drafts, err := kv.GetDrafts(ctx, store)
	if err != nil {
		t.Fatalf("GetDrafts: %v", err)
	}
	draft, ok := drafts[cue.TranscriptKey("youtube", "v9")]
	if !ok || len(draft.Tracks) != 1 || draft.Tracks[0].Text != "draft cue" {
		t.Fatalf("unexpected drafts %+v", drafts)
	}
}

func TestDirectRelayTakesPrecedence(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	coord := bridge.NewCoordinator()
	playerPort := coord.Connect("https://crunchyroll.example/watch/1", bridge.RolePlayer)
	editorPort := coord.Connect("https://editor.example/", bridge.RoleEditor)

	tracks, router, _ := newPlayer(t, store, playerPort, "v1")
	editor := bridge.NewEditorLink(store, bridge.WithEditorPort(editorPort))
	editor.Start()
	defer editor.Close()
	var ids []string
	var updates []bridge.TracksUpdate
	editor.IDs().Subscribe(func(id string) { ids = append(ids, id) })
	editor.Updates().Subscribe(func(u bridge.TracksUpdate) { updates = append(updates, u) })

	if err := editor.Bridge(ctx, "https://crunchyroll.example/watch/1"); err != nil {
		t.Fatalf("Bridge: %v", err)
	}
	if router.Partner() != editorPort.TabID() || editor.Partner() != playerPort.TabID() {
		t.Fatal("handshake should link both sides")
	}
	if len(ids) != 1 || ids[0] != "v1" {
		t.Fatalf("player should announce its id, got %v", ids)
	}
	if router.Active().Kind() != trackstore.DirectApply {
		t.Fatalf("expected direct apply, got %s", router.Active().Kind())
	}

	if err := tracks.AddTrack(7, "relayed"); err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	if len(tracks.CurrentTracks()) != 1 {
		t.Fatal("direct apply commits locally")
	}
	if len(updates) != 1 || updates[0].Tracks[0].Text != "relayed" || updates[0].LastTouched != 7 {
		t.Fatalf("editor should receive relayed tracks, got %+v", updates)
	}

	if err := editor.PushTracks(ctx, []cue.Cue{{Timestamp: 8, Text: "edited"}}); err != nil {
		t.Fatalf("PushTracks: %v", err)
	}
	if got := tracks.CurrentTracks(); len(got) != 1 || got[0].Text != "edited" {
		t.Fatalf("player should load relayed editor tracks, got %+v", got)
	}
}

// queuedStore holds change notifications until flush, the way relay
// clients deliver storage-changed frames after the write returns.
type queuedStore struct {
	*kv.Memory
	pending []kv.Change
	subs    []func(kv.Change)
}

func newQueuedStore() *queuedStore {
	s := &queuedStore{Memory: kv.NewMemory()}
	s.Memory.Subscribe(func(c kv.Change) { s.pending = append(s.pending, c) })
	return s
}

func (s *queuedStore) Subscribe(fn func(kv.Change)) func() {
	s.subs = append(s.subs, fn)
	return func() {}
}

func (s *queuedStore) flush() {
	pending := s.pending
	s.pending = nil
	for _, c := range pending {
		for _, fn := range s.subs {
			fn(c)
		}
	}
}

func TestEditorIgnoresDelayedEchoesOfRapidPushes(t *testing.T) {
	ctx := context.Background()
	store := newQueuedStore()
	editor := bridge.NewEditorLink(store, bridge.WithEditorClock(func() time.Time { return time.UnixMilli(5_000) }))
	editor.Start()
	defer editor.Close()
	var received []bridge.TracksUpdate
	editor.Updates().Subscribe(func(u bridge.TracksUpdate) { received = append(received, u) })

	if err := editor.PushTracks(ctx, []cue.Cue{{Timestamp: 1, Text: "A"}}); err != nil {
		t.Fatalf("PushTracks A: %v", err)
	}
	if err := editor.PushTracks(ctx, []cue.Cue{{Timestamp: 1, Text: "B"}}); err != nil {
		t.Fatalf("PushTracks B: %v", err)
	}
	store.flush()
	if len(received) != 0 {
		t.Fatalf("both echoes belong to the editor, got %+v", received)
	}

	if err := kv.SetTrackUpdate(ctx, store, kv.TrackUpdate{Tracks: []cue.Cue{{Timestamp: 2, Text: "player"}}, LastTouched: 2}); err != nil {
		t.Fatalf("SetTrackUpdate: %v", err)
	}
	store.flush()
	if len(received) != 1 || received[0].Tracks[0].Text != "player" {
		t.Fatalf("player write should reach the editor, got %+v", received)
	}
}
