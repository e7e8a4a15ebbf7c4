package editsession_test

import (
	"fmt"
	"strings"
	"testing"

	"cuebridge/internal/cue"
	"cuebridge/internal/editsession"
	"cuebridge/internal/trackstore"
)

type fakeMedia struct {
	now    float64
	paused bool
	seeks  []float64
}

func (m *fakeMedia) CurrentTime() float64 { return m.now }
func (m *fakeMedia) Paused() bool         { return m.paused }
func (m *fakeMedia) Seek(s float64)       { m.now = s; m.seeks = append(m.seeks, s) }
func (m *fakeMedia) Play()                { m.paused = false }
func (m *fakeMedia) Pause()               { m.paused = true }

type fakeDialogs struct {
	focused     bool
	drafts      []editsession.CueDraft
	submit      func(editsession.CueDraft)
	transcripts int
	help        []editsession.HelpEntry
	calls       []string
}

func (d *fakeDialogs) FocusInDialog() bool { return d.focused }
func (d *fakeDialogs) OpenCueEditor(draft editsession.CueDraft, submit func(editsession.CueDraft)) {
	d.drafts = append(d.drafts, draft)
	d.submit = submit
}
func (d *fakeDialogs) ShowTranscript([]cue.Cue)                 { d.transcripts++ }
func (d *fakeDialogs) ShowHelp(entries []editsession.HelpEntry) { d.help = entries }
func (d *fakeDialogs) EditMetadata()                            { d.calls = append(d.calls, "metadata") }
func (d *fakeDialogs) OpenNotes()                               { d.calls = append(d.calls, "notes") }
func (d *fakeDialogs) Export([]cue.Cue)                         { d.calls = append(d.calls, "export") }

func newSession(t *testing.T, list []cue.Cue) (*editsession.Session, *trackstore.Store, *fakeMedia, *fakeDialogs) {
	t.Helper()
	store := trackstore.New(nil)
	store.LoadData(list)
	media := &fakeMedia{}
	dialogs := &fakeDialogs{}
	return editsession.New(store, media, dialogs), store, media, dialogs
}

func key(k string) editsession.KeyEvent { return editsession.KeyEvent{Key: k} }

func texts(list []cue.Cue) string {
	parts := make([]string, len(list))
	for i, c := range list {
		parts[i] = fmt.Sprintf("%v:%s", c.Timestamp, c.Text)
	}
	return strings.Join(parts, ",")
}

func TestIdleIgnoresEditKeys(t *testing.T) {
	sess, store, media, dialogs := newSession(t, nil)
	media.now = 12

	if sess.HandleKey(key("f")) {
		t.Fatal("add key should not be consumed while idle")
	}
	if len(dialogs.drafts) != 0 || len(store.CurrentTracks()) != 0 {
		t.Fatal("idle session must not open dialogs or mutate")
	}
	if !sess.HandleKey(key("t")) || dialogs.transcripts != 1 {
		t.Fatal("transcript display works while idle")
	}
}

func TestToggleArmsAndPublishes(t *testing.T) {
	sess, _, _, _ := newSession(t, nil)
	var states []editsession.State
	sess.Modes().Subscribe(func(s editsession.State) { states = append(states, s) })

	sess.HandleKey(key("r"))
	if sess.State() != editsession.Armed {
		t.Fatal("expected armed after toggle")
	}
	sess.HandleKey(key("R"))
	if sess.State() != editsession.Idle {
		t.Fatal("expected idle after second toggle")
	}
	if len(states) != 2 || states[0] != editsession.Armed {
		t.Fatalf("unexpected published states %v", states)
	}
}

func TestAddFlowUsesCurrentTimeAndResumes(t *testing.T) {
	sess, store, media, dialogs := newSession(t, []cue.Cue{{Timestamp: 0, Text: "a"}})
	media.now = 12.34
	sess.HandleKey(key("r"))

	if !sess.HandleKey(key("f")) {
		t.Fatal("add should be consumed")
	}
	if !media.paused {
		t.Fatal("add should pause the video")
	}
	if len(dialogs.drafts) != 1 || dialogs.drafts[0].Timestamp != 12.3 || dialogs.drafts[0].Mode != editsession.ModeAdd {
		t.Fatalf("unexpected draft %+v", dialogs.drafts)
	}

	dialogs.submit(editsession.CueDraft{Mode: editsession.ModeAdd, Timestamp: 12.3, Text: " hi "})
	if got := texts(store.CurrentTracks()); got != "0:a,12.3:hi" {
		t.Fatalf("unexpected tracks %s", got)
	}
	if last, ok := sess.LastPlayed(); !ok || last != 12.3 {
		t.Fatalf("pointer not set: %v %v", last, ok)
	}
	if media.paused || media.now != 12.3-3 {
		t.Fatalf("expected resume 3s before cue, got now=%v paused=%v", media.now, media.paused)
	}
}

func TestAddFlowUsesMarkerAndClearsIt(t *testing.T) {
	sess, store, media, dialogs := newSession(t, nil)
	sess.HandleKey(key("r"))
	media.now = 1.5
	sess.HandleKey(key("d"))
	if m, ok := sess.Marker(); !ok || m != 1.5 {
		t.Fatalf("marker not set: %v %v", m, ok)
	}
	media.now = 40
	sess.HandleKey(key("f"))
	if dialogs.drafts[0].Timestamp != 1.5 {
		t.Fatalf("expected marker prefill, got %v", dialogs.drafts[0].Timestamp)
	}
	dialogs.submit(editsession.CueDraft{Timestamp: 1.5, Text: "marked"})
	if _, ok := sess.Marker(); ok {
		t.Fatal("marker should clear after submit")
	}
	if media.now != 0 {
		t.Fatalf("seek should clamp at zero, got %v", media.now)
	}
	if got := texts(store.CurrentTracks()); got != "1.5:marked" {
		t.Fatalf("unexpected tracks %s", got)
	}
}

func TestAddFlowRoundsMarker(t *testing.T) {
	sess, _, media, dialogs := newSession(t, nil)
	sess.HandleKey(key("r"))
	media.now = 7.26
	sess.HandleKey(key("d"))
	media.now = 30
	sess.HandleKey(key("f"))
	if len(dialogs.drafts) != 1 || dialogs.drafts[0].Timestamp != 7.3 {
		t.Fatalf("expected marker rounded to 7.3, got %+v", dialogs.drafts)
	}
}

func TestHeadlessSessionIgnoresDialogKeys(t *testing.T) {
	store := trackstore.New(nil)
	store.LoadData([]cue.Cue{{Timestamp: 2, Text: "a"}})
	media := &fakeMedia{now: 2}
	sess := editsession.New(store, media, nil)
	sess.SetLastPlayed(2)

	if !sess.HandleKey(key("t")) {
		t.Fatal("transcript key should be consumed while idle")
	}
	sess.HandleKey(key("r"))
	for _, k := range []string{"f", "e", "h", "m", "n", "p"} {
		if !sess.HandleKey(key(k)) {
			t.Fatalf("key %q should be consumed", k)
		}
	}
	if got := texts(store.CurrentTracks()); got != "2:a" {
		t.Fatalf("headless dialogs must not change cues, got %s", got)
	}
}

func TestEmptySubmitIgnored(t *testing.T) {
	sess, store, _, dialogs := newSession(t, nil)
	sess.HandleKey(key("r"))
	sess.HandleKey(key("f"))
	dialogs.submit(editsession.CueDraft{Timestamp: 1, Text: "   "})
	if len(store.CurrentTracks()) != 0 {
		t.Fatal("blank text should not add a cue")
	}
}

func TestEditFlow(t *testing.T) {
	sess, store, media, dialogs := newSession(t, []cue.Cue{{Timestamp: 5, Text: "old"}})
	sess.HandleKey(key("r"))

	sess.HandleKey(key("e"))
	if len(dialogs.drafts) != 0 {
		t.Fatal("edit without a pointer is a no-op")
	}

	sess.SetLastPlayed(5)
	sess.HandleKey(key("e"))
	if len(dialogs.drafts) != 1 || dialogs.drafts[0].Text != "old" || dialogs.drafts[0].Mode != editsession.ModeEdit {
		t.Fatalf("unexpected edit draft %+v", dialogs.drafts)
	}
	dialogs.submit(editsession.CueDraft{Mode: editsession.ModeEdit, Timestamp: 5, Text: "new"})
	if got := texts(store.CurrentTracks()); got != "5:new" {
		t.Fatalf("unexpected tracks %s", got)
	}
	if media.now != 2 {
		t.Fatalf("expected resume at 2, got %v", media.now)
	}

	sess.SetLastPlayed(9)
	sess.HandleKey(key("e"))
	if len(dialogs.drafts) != 1 {
		t.Fatal("edit of a vanished cue is a no-op")
	}
}

func TestMoveRetargetsPointer(t *testing.T) {
	sess, store, _, _ := newSession(t, []cue.Cue{{Timestamp: 5, Text: "a"}, {Timestamp: 8, Text: "b"}})
	sess.HandleKey(key("r"))

	sess.HandleKey(key("c"))
	if got := texts(store.CurrentTracks()); got != "5:a,8:b" {
		t.Fatalf("move without pointer must be a no-op: %s", got)
	}

	sess.SetLastPlayed(5)
	sess.HandleKey(key("c"))
	sess.HandleKey(editsession.KeyEvent{Key: "C", Shift: true})
	sess.HandleKey(key("x"))
	if got := texts(store.CurrentTracks()); got != "5.1:a,8:b" {
		t.Fatalf("unexpected tracks %s", got)
	}
	if last, _ := sess.LastPlayed(); last != 5.1 {
		t.Fatalf("pointer should follow the cue, got %v", last)
	}
}

func TestJumpAndNavigate(t *testing.T) {
	sess, _, media, _ := newSession(t, []cue.Cue{{Timestamp: 2, Text: "a"}, {Timestamp: 10, Text: "b"}, {Timestamp: 20, Text: "c"}})
	sess.HandleKey(key("r"))
	media.now = 30

	sess.HandleKey(key("a"))
	sess.HandleKey(editsession.KeyEvent{Key: "a", Alt: true})
	if media.now != 24 {
		t.Fatalf("expected 24 after jumps, got %v", media.now)
	}
	media.now = 3
	sess.HandleKey(key("a"))
	if media.now != 0 {
		t.Fatalf("jump should clamp at zero, got %v", media.now)
	}
	sess.HandleKey(key("s"))
	if media.now != 5 {
		t.Fatalf("expected 5, got %v", media.now)
	}

	sess.HandleKey(key("q"))
	if _, ok := sess.LastPlayed(); ok {
		t.Fatal("previous without pointer is a no-op")
	}
	sess.HandleKey(key("w"))
	if last, _ := sess.LastPlayed(); last != 2 || media.now != 2 {
		t.Fatalf("next without pointer goes to first cue, got %v at %v", last, media.now)
	}
	sess.HandleKey(key("w"))
	sess.HandleKey(key("w"))
	sess.HandleKey(key("w"))
	if last, _ := sess.LastPlayed(); last != 20 {
		t.Fatalf("expected to stop at last cue, got %v", last)
	}
	sess.HandleKey(key("q"))
	if last, _ := sess.LastPlayed(); last != 10 || media.paused {
		t.Fatalf("expected previous cue and playback, got %v paused=%v", last, media.paused)
	}
}

func TestDialogFocusGuard(t *testing.T) {
	sess, _, _, dialogs := newSession(t, nil)
	sess.HandleKey(key("r"))
	dialogs.focused = true
	if sess.HandleKey(key("f")) || sess.HandleKey(key("r")) {
		t.Fatal("keys must be ignored while a dialog has focus")
	}
	if sess.State() != editsession.Armed || len(dialogs.drafts) != 0 {
		t.Fatal("dialog focus must block all actions")
	}
}

func TestAuxiliaryDialogs(t *testing.T) {
	sess, _, _, dialogs := newSession(t, nil)
	sess.HandleKey(key("r"))
	for _, k := range []string{"h", "m", "n", "p"} {
		if !sess.HandleKey(key(k)) {
			t.Fatalf("%s should be consumed", k)
		}
	}
	if len(dialogs.help) != len(editsession.Actions()) {
		t.Fatalf("expected full help, got %d entries", len(dialogs.help))
	}
	if strings.Join(dialogs.calls, ",") != "metadata,notes,export" {
		t.Fatalf("unexpected dialog calls %v", dialogs.calls)
	}
	if sess.HandleKey(editsession.KeyEvent{Key: "h", Ctrl: true}) {
		t.Fatal("modifier combos belong to the host")
	}
	if sess.HandleKey(key("Enter")) || sess.HandleKey(key("z")) {
		t.Fatal("unbound keys should pass through")
	}
}

func TestCustomShortcuts(t *testing.T) {
	shortcuts, err := editsession.ParseShortcuts(map[string]string{"toggleEditMode": "Y", "addTrack": "r"})
	if err != nil {
		t.Fatalf("ParseShortcuts: %v", err)
	}
	store := trackstore.New(nil)
	dialogs := &fakeDialogs{}
	sess := editsession.New(store, &fakeMedia{}, dialogs, editsession.WithShortcuts(shortcuts))
	sess.HandleKey(key("y"))
	sess.HandleKey(key("r"))
	if len(dialogs.drafts) != 1 {
		t.Fatal("rebound add key should open the add dialog")
	}
}

func TestParseShortcutsErrors(t *testing.T) {
	tests := []map[string]string{
		{"fly": "z"},
		{"addTrack": "zz"},
		{"addTrack": "e"},
	}
	for _, overrides := range tests {
		if _, err := editsession.ParseShortcuts(overrides); err == nil {
			t.Fatalf("expected error for %v", overrides)
		}
	}
	if err := editsession.DefaultShortcuts().Validate(); err != nil {
		t.Fatalf("defaults must be valid: %v", err)
	}
}
