package trackstore_test

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"cuebridge/internal/cue"
	"cuebridge/internal/trackstore"
)

func sequentialIDs() trackstore.Option {
	n := 0
	return trackstore.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("cue-%d", n)
	})
}

func countChanges(s *trackstore.Store) *int {
	count := new(int)
	s.Changes().Subscribe(func(trackstore.Change) { *count++ })
	return count
}

func texts(list []cue.Cue) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Text
	}
	return out
}

func TestSetterShortCircuitsOnEqualList(t *testing.T) {
	store := trackstore.New(nil, sequentialIDs())
	changes := countChanges(store)

	list := []cue.Cue{{Timestamp: 0, Text: "a"}, {Timestamp: 5, Text: "b"}}
	changed, err := store.SetCurrentTracks(list)
	if err != nil || !changed {
		t.Fatalf("first set: changed=%v err=%v", changed, err)
	}
	changed, err = store.SetCurrentTracks(list)
	if err != nil || changed {
		t.Fatalf("second set: changed=%v err=%v", changed, err)
	}
	if *changes != 1 {
		t.Fatalf("expected exactly one notification, got %d", *changes)
	}
}

func TestMutationsKeepListSorted(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	store := trackstore.New(nil, sequentialIDs())
	var stamps []float64
	for i := 0; i < 200; i++ {
		switch op := rng.Intn(4); {
		case op == 0 || len(stamps) == 0:
			ts := float64(rng.Intn(100)) / 2
			if err := store.AddTrack(ts, fmt.Sprintf("cue %d", i)); err != nil {
				t.Fatalf("AddTrack: %v", err)
			}
			stamps = append(stamps, ts)
		case op == 1:
			idx := rng.Intn(len(stamps))
			if err := store.EditTrack(stamps[idx], fmt.Sprintf("edit %d", i)); err != nil {
				t.Fatalf("EditTrack: %v", err)
			}
		case op == 2:
			idx := rng.Intn(len(stamps))
			moved, err := store.MoveTrack(stamps[idx], float64(rng.Intn(21)-10)/10)
			if err != nil {
				t.Fatalf("MoveTrack: %v", err)
			}
			stamps[idx] = moved
		default:
			idx := rng.Intn(len(stamps))
			if err := store.DeleteTrack(stamps[idx]); err != nil {
				t.Fatalf("DeleteTrack: %v", err)
			}
			stamps = append(stamps[:idx], stamps[idx+1:]...)
		}
		if !cue.IsSorted(store.CurrentTracks()) {
			t.Fatalf("list unsorted after step %d: %v", i, store.CurrentTracks())
		}
	}
	if got := len(store.CurrentTracks()); got != len(stamps) {
		t.Fatalf("expected %d cues, got %d", len(stamps), got)
	}
}

func TestMoveTrackReturnsNewTimestampAndTouchesNothingElse(t *testing.T) {
	store := trackstore.New(nil, sequentialIDs())
	if _, err := store.SetCurrentTracks([]cue.Cue{{Timestamp: 0, Text: "a"}, {Timestamp: 5, Text: "b"}, {Timestamp: 9, Text: "c"}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	before := store.CurrentTracks()

	moved, err := store.MoveTrack(5, 0.1)
	if err != nil {
		t.Fatalf("MoveTrack: %v", err)
	}
	if moved != 5.1 {
		t.Fatalf("expected 5.1, got %v", moved)
	}
	after := store.CurrentTracks()
	if after[1].Timestamp != 5.1 || after[1].ID != before[1].ID || after[1].Text != "b" {
		t.Fatalf("moved cue wrong: %+v", after[1])
	}
	if after[0] != before[0] || after[2] != before[2] {
		t.Fatalf("other cues changed: before=%v after=%v", before, after)
	}
	if store.LastTouched() != 5.1 {
		t.Fatalf("expected last touched 5.1, got %v", store.LastTouched())
	}

	moved, err = store.MoveTrack(0, -1)
	if err != nil || moved != 0 {
		t.Fatalf("expected clamp at zero, got %v %v", moved, err)
	}
}

func TestMoveTrackClampsAtZero(t *testing.T) {
	store := trackstore.New(nil, sequentialIDs())
	if _, err := store.SetCurrentTracks([]cue.Cue{{Timestamp: 0.5, Text: "a"}, {Timestamp: 5, Text: "b"}}); err != nil {
		t.Fatalf("set: %v", err)
	}

	moved, err := store.MoveTrack(0.5, -1)
	if err != nil {
		t.Fatalf("MoveTrack: %v", err)
	}
	if moved != 0 {
		t.Fatalf("expected the move to stop at 0, got %v", moved)
	}
	got := store.CurrentTracks()
	if got[0].Timestamp != 0 || got[0].Text != "a" || got[1].Timestamp != 5 {
		t.Fatalf("unexpected list after clamp: %+v", got)
	}
}

func TestMissingCueErrors(t *testing.T) {
	store := trackstore.New(nil)
	changes := countChanges(store)
	if err := store.EditTrack(3, "x"); !errors.Is(err, trackstore.ErrCueNotFound) {
		t.Fatalf("expected ErrCueNotFound, got %v", err)
	}
	if err := store.DeleteTrack(3); !errors.Is(err, trackstore.ErrCueNotFound) {
		t.Fatalf("expected ErrCueNotFound, got %v", err)
	}
	if moved, err := store.MoveTrack(3, 1); !errors.Is(err, trackstore.ErrCueNotFound) || moved != 3 {
		t.Fatalf("expected ErrCueNotFound and original ts, got %v %v", moved, err)
	}
	if *changes != 0 {
		t.Fatalf("failed mutations must not notify, got %d", *changes)
	}
}

func TestDuplicateTimestampsKeptInInsertionOrder(t *testing.T) {
	store := trackstore.New(nil, sequentialIDs())
	for _, text := range []string{"one", "two"} {
		if err := store.AddTrack(2, text); err != nil {
			t.Fatalf("AddTrack: %v", err)
		}
	}
	got := texts(store.CurrentTracks())
	if len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Fatalf("unexpected order %v", got)
	}
	if err := store.EditTrack(2, "edited"); err != nil {
		t.Fatalf("EditTrack: %v", err)
	}
	if got := texts(store.CurrentTracks()); got[0] != "edited" || got[1] != "two" {
		t.Fatalf("edit should hit the first match: %v", got)
	}
}

func TestTracksToGoAndLookup(t *testing.T) {
	store := trackstore.New(nil)
	store.LoadData([]cue.Cue{{Timestamp: 5, Text: "b"}, {Timestamp: 0, Text: "a"}})
	if got := texts(store.TracksToGo(3)); len(got) != 1 || got[0] != "b" {
		t.Fatalf("unexpected tracks to go %v", got)
	}
	if got := texts(store.TracksToGo(0)); len(got) != 2 || got[0] != "a" {
		t.Fatalf("unexpected tracks to go %v", got)
	}
	if c, ok := store.TrackByTimestamp(5); !ok || c.Text != "b" || c.ID == "" {
		t.Fatalf("unexpected lookup %+v %v", c, ok)
	}
	if _, ok := store.TrackByTimestamp(1); ok {
		t.Fatal("expected miss")
	}
}

func TestLoadDataNotifiesOnceAndShortCircuits(t *testing.T) {
	store := trackstore.New(nil)
	changes := countChanges(store)
	list := []cue.Cue{{Timestamp: 1, Text: "a"}}
	if !store.LoadData(list) {
		t.Fatal("expected load to apply")
	}
	if store.LoadData(list) {
		t.Fatal("expected identical load to short-circuit")
	}
	if *changes != 1 {
		t.Fatalf("expected one notification, got %d", *changes)
	}
}

func TestDirectApplyCommitsAndRelays(t *testing.T) {
	var relayed []trackstore.Snapshot
	now := time.UnixMilli(1_700_000_000_000)
	store := trackstore.New(trackstore.NewDirectApply(func(s trackstore.Snapshot) error {
		relayed = append(relayed, s)
		return errors.New("partner gone")
	}), trackstore.WithNow(func() time.Time { return now }))

	if err := store.AddTrack(4, "x"); err != nil {
		t.Fatalf("relay errors must not fail the mutation: %v", err)
	}
	if len(store.CurrentTracks()) != 1 {
		t.Fatal("expected local commit")
	}
	if len(relayed) != 1 || relayed[0].LastTouched != 4 || relayed[0].Timestamp != now.UnixMilli() {
		t.Fatalf("unexpected relay payload %+v", relayed)
	}
}

func TestBridgedPersistWaitsForEcho(t *testing.T) {
	var written []trackstore.Snapshot
	store := trackstore.New(trackstore.NewBridgedPersist(func(s trackstore.Snapshot) error {
		written = append(written, s)
		return nil
	}))
	var kinds []trackstore.Kind
	store.Changes().Subscribe(func(c trackstore.Change) { kinds = append(kinds, c.Kind) })

	if err := store.AddTrack(1, "a"); err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	if len(store.CurrentTracks()) != 0 {
		t.Fatal("bridged mutation must not commit locally")
	}
	if !store.AwaitingEcho() {
		t.Fatal("expected pending echo")
	}
	if err := store.AddTrack(2, "b"); err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	if len(written) != 2 || len(written[1].Tracks) != 2 {
		t.Fatalf("second write should build on the pending list: %+v", written)
	}

	store.LoadData(written[1].Tracks)
	if got := texts(store.CurrentTracks()); len(got) != 2 || got[1] != "b" {
		t.Fatalf("echo not committed: %v", got)
	}
	if store.AwaitingEcho() {
		t.Fatal("echo should clear pending state")
	}
	if len(kinds) != 3 || kinds[0] != trackstore.BridgedPersist {
		t.Fatalf("unexpected notifications %v", kinds)
	}
}

func TestBridgedPersistFailureRollsBack(t *testing.T) {
	store := trackstore.New(trackstore.NewBridgedPersist(func(trackstore.Snapshot) error {
		return errors.New("storage offline")
	}))
	changes := countChanges(store)
	if err := store.AddTrack(1, "a"); err == nil {
		t.Fatal("expected persist error")
	}
	if store.AwaitingEcho() || *changes != 0 || store.LastTouched() != 0 {
		t.Fatalf("failed write must leave no trace: pending=%v changes=%d", store.AwaitingEcho(), *changes)
	}
}

func TestSynchronousEchoDuringPersist(t *testing.T) {
	var store *trackstore.Store
	store = trackstore.New(trackstore.NewBridgedPersist(func(s trackstore.Snapshot) error {
		store.LoadData(s.Tracks)
		return nil
	}))
	if err := store.AddTrack(3, "echoed"); err != nil {
		t.Fatalf("AddTrack: %v", err)
	}
	if got := texts(store.CurrentTracks()); len(got) != 1 || got[0] != "echoed" {
		t.Fatalf("expected echoed commit, got %v", got)
	}
}

func TestScenarioSetAddEditDelete(t *testing.T) {
	store := trackstore.New(nil)
	if _, err := store.SetCurrentTracks([]cue.Cue{{Timestamp: 0, Text: "a"}, {Timestamp: 5, Text: "b"}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.AddTrack(3, "c"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := texts(store.CurrentTracks()); fmt.Sprint(got) != "[a c b]" {
		t.Fatalf("unexpected order after add: %v", got)
	}
	if err := store.EditTrack(3, "C"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := store.DeleteTrack(0); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := texts(store.CurrentTracks()); fmt.Sprint(got) != "[C b]" {
		t.Fatalf("unexpected final list: %v", got)
	}
}
