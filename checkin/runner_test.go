package checkin

import (
	"context"
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"
)

type failingStore struct {
	saves int
	err   error
}

func (s *failingStore) Exists(string) (bool, error) { return false, nil }
func (s *failingStore) Load(name string) (*UserProfile, error) { return NewUserProfile(name), nil }
func (s *failingStore) Save(*UserProfile) error {
	s.saves++
	return s.err
}

func steppingClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}

func testCatalog() *Catalog {
	return NewCatalog([]string{"ansioso", "calmo"}, map[string]CatalogEntry{
		"ansioso": {Buckets: map[int][]string{
			3: numberedMessages("ansioso-3", 10),
			4: numberedMessages("ansioso-4", 10),
			5: numberedMessages("ansioso-5", 10),
		}},
		"calmo": {Flat: numberedMessages("calmo", 10)},
	})
}

func TestRunSession_FullFlowPersistsAndRecords(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	history := NewMemoryHistory(0)
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	r, err := NewRunner(testCatalog(), store, history, WithClock(steppingClock(start, time.Second)))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	p, err := store.Load("Ana")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx := context.Background()
	first, err := r.RunSession(ctx, p, "ansioso")
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}
	if first.Intensity != 3 || !strings.HasPrefix(first.Text, "ansioso-3 ") {
		t.Fatalf("first=%+v", first)
	}

	want := Select(testCatalog(), "ansioso", SessionInput{State: "ansioso", Intensity: 3, User: "Ana", Timestamp: start.UnixNano()})
	if first.Text != want {
		t.Fatalf("Text=%q, want %q", first.Text, want)
	}

	second, err := r.RunSession(ctx, p, "ansioso")
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}
	if second.Intensity != 3 {
		t.Fatalf("second intensity=%d", second.Intensity)
	}

	third, err := r.RunSession(ctx, p, "ansioso")
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}
	// 3.9375 * 1.15 = 4.528...
	if third.Intensity != 4 || !strings.HasPrefix(third.Text, "ansioso-4 ") {
		t.Fatalf("third=%+v", third)
	}

	recs, _ := history.LastN(0)
	if len(recs) != 3 || recs[2].ID != third.Record.ID || recs[0].Intensity != 3 {
		t.Fatalf("history=%+v", recs)
	}
	if !recs[1].Timestamp.Equal(start.Add(time.Second)) {
		t.Fatalf("second timestamp=%v", recs[1].Timestamp)
	}

	stored, err := store.Load("ana")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.TotalSessions != 3 || stored.CountByState["ansioso"] != 3 || stored.StateStreak != 3 {
		t.Fatalf("stored=%+v", stored)
	}
	if !approx(stored.MeanIntensity("ansioso"), 10.0/3.0) {
		t.Fatalf("mean=%v", stored.MeanIntensity("ansioso"))
	}
	if got := Stats(stored, "ansioso"); got != "total=3, ansioso=3, mean_intensity=3.33" {
		t.Fatalf("Stats=%q", got)
	}
}

func TestRunSession_UnknownStateGetsFallback(t *testing.T) {
	t.Parallel()

	store, _ := newTestStore(t)
	r, err := NewRunner(testCatalog(), store, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	p := NewUserProfile("Rui")

	res, err := r.RunSession(context.Background(), p, "feliz")
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}
	if res.Text != FallbackMessage {
		t.Fatalf("Text=%q", res.Text)
	}
	if p.CountByState["feliz"] != 1 {
		t.Fatalf("session not registered: %v", p.CountByState)
	}
	recs, _ := r.History().LastN(1)
	if len(recs) != 1 || recs[0].Message != FallbackMessage {
		t.Fatalf("history=%+v", recs)
	}
}

func TestRunSession_SaveFailureKeepsInMemoryProgress(t *testing.T) {
	t.Parallel()

	store := &failingStore{err: &StorageError{Op: "write", Path: "x.json", Err: fs.ErrPermission}}
	r, err := NewRunner(testCatalog(), store, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	p := NewUserProfile("Ana")

	res, err := r.RunSession(context.Background(), p, "calmo")
	if err == nil {
		t.Fatalf("expected error")
	}
	var se *StorageError
	if !errors.As(err, &se) || !errors.Is(err, fs.ErrPermission) {
		t.Fatalf("err=%v, want StorageError wrapping ErrPermission", err)
	}
	if res.Text == "" || res.Intensity != 3 {
		t.Fatalf("result=%+v", res)
	}
	if p.TotalSessions != 1 {
		t.Fatalf("TotalSessions=%d, want in-memory progress kept", p.TotalSessions)
	}

	// The next session retries the save with everything accumulated so far.
	store.err = nil
	if _, err := r.RunSession(context.Background(), p, "calmo"); err != nil {
		t.Fatalf("RunSession retry: %v", err)
	}
	if store.saves != 2 || p.TotalSessions != 2 {
		t.Fatalf("saves=%d TotalSessions=%d", store.saves, p.TotalSessions)
	}
}

func TestRunSession_CancelledContextLeavesProfileUntouched(t *testing.T) {
	t.Parallel()

	store := &failingStore{}
	r, _ := NewRunner(testCatalog(), store, nil)
	p := NewUserProfile("Ana")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.RunSession(ctx, p, "calmo"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v", err)
	}
	if p.TotalSessions != 0 || p.LastState != "" || store.saves != 0 {
		t.Fatalf("profile advanced: %+v saves=%d", p, store.saves)
	}
}

func TestNewRunner_RequiresCatalogAndStore(t *testing.T) {
	t.Parallel()

	if _, err := NewRunner(nil, &failingStore{}, nil); err == nil {
		t.Fatalf("expected error for nil catalog")
	}
	if _, err := NewRunner(testCatalog(), nil, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestRunSession_CustomPipelineShapesTextAndRecord(t *testing.T) {
	t.Parallel()

	var last LastText
	shout := Pipeline{CollapseWhitespace, strings.ToUpper, last.Stage()}
	r, err := NewRunner(testCatalog(), &failingStore{}, nil, WithPipeline(shout))
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	res, err := r.RunSession(context.Background(), NewUserProfile("Ana"), "calmo")
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}
	if !strings.HasPrefix(res.Text, "CALMO ") || last.Text() != res.Text || res.Record.Message != res.Text {
		t.Fatalf("res=%+v last=%q", res, last.Text())
	}
}

func TestRunSession_RejectsEmptyState(t *testing.T) {
	t.Parallel()

	store := &failingStore{}
	r, _ := NewRunner(testCatalog(), store, nil)
	p := NewUserProfile("Ana")

	for _, state := range []string{"", "   "} {
		if _, err := r.RunSession(context.Background(), p, state); err == nil {
			t.Fatalf("RunSession(%q): expected error", state)
		}
	}
	if p.TotalSessions != 0 || len(p.Ledger) != 0 || store.saves != 0 {
		t.Fatalf("profile advanced: %+v saves=%d", p, store.saves)
	}
}
