package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shaiso/Refresher/internal/domain"
	"github.com/shaiso/Refresher/internal/repo"
)

// --- Fakes ---

// flakyStore fails the first failures calls of every method, then succeeds.
type flakyStore struct {
	failures int
	calls    map[string]int

	insertRuns    int
	statusUpdates []domain.ExecutionStatus
	masterUpdates []string
	missingRow    bool
}

func newFlakyStore(failures int) *flakyStore {
	return &flakyStore{
		failures: failures,
		calls:    make(map[string]int),
	}
}

func (s *flakyStore) attempt(method string) error {
	s.calls[method]++
	if s.calls[method] <= s.failures {
		return errors.New("transient db error")
	}
	return nil
}

func (s *flakyStore) InsertRunLog(ctx context.Context, run *domain.RunContext) error {
	if err := s.attempt("insert"); err != nil {
		return err
	}
	s.insertRuns++
	s.missingRow = false
	return nil
}

func (s *flakyStore) UpdateRunStatus(ctx context.Context, run *domain.RunContext, status domain.ExecutionStatus) error {
	if s.missingRow {
		return repo.ErrNotFound
	}
	if err := s.attempt("status"); err != nil {
		return err
	}
	s.statusUpdates = append(s.statusUpdates, status)
	return nil
}

func (s *flakyStore) UpdateRunEnd(ctx context.Context, run *domain.RunContext, outcome *domain.RunOutcome) error {
	return s.attempt("end")
}

func (s *flakyStore) AnnotateDelay(ctx context.Context, run *domain.RunContext, reason string) error {
	return s.attempt("delay")
}

func (s *flakyStore) UpdateMasterStart(ctx context.Context, region, identifier string, at time.Time) error {
	return s.attempt("masterStart")
}

func (s *flakyStore) UpdateMasterStatus(ctx context.Context, region, identifier, status string) error {
	if err := s.attempt("masterStatus"); err != nil {
		return err
	}
	s.masterUpdates = append(s.masterUpdates, status)
	return nil
}

func testRun() *domain.RunContext {
	return &domain.RunContext{
		Region:       "AMS",
		BatchDate:    time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC),
		ReportSource: "SPDST",
	}
}

func newTestRecorder(store Store) *Recorder {
	return New(Config{
		Store:    store,
		Attempts: 3,
		Backoff:  time.Millisecond,
	})
}

// --- Recorder Tests ---

func TestRecordStart_WritesRunLogAndMaster(t *testing.T) {
	store := newFlakyStore(0)

	if err := newTestRecorder(store).RecordStart(context.Background(), testRun()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.statusUpdates) != 1 || store.statusUpdates[0] != domain.StatusInProgress {
		t.Errorf("expected InProgress status update, got %v", store.statusUpdates)
	}
	if store.calls["masterStart"] != 1 {
		t.Error("master start should be written")
	}
}

func TestRecordStart_CreatesMissingRow(t *testing.T) {
	store := newFlakyStore(0)
	store.missingRow = true

	if err := newTestRecorder(store).RecordStart(context.Background(), testRun()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.insertRuns != 1 {
		t.Error("missing run log row should be created in place")
	}
	if len(store.statusUpdates) != 1 || store.statusUpdates[0] != domain.StatusInProgress {
		t.Errorf("expected InProgress after insert, got %v", store.statusUpdates)
	}
}

func TestRecordEnd_RetriesTransientFailures(t *testing.T) {
	// Two failures per method, three attempts: everything lands.
	store := newFlakyStore(2)
	outcome := domain.NewRunOutcome()
	outcome.MarkInProgress()
	outcome.MarkFinished()

	if err := newTestRecorder(store).RecordEnd(context.Background(), testRun(), outcome); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if store.calls["end"] != 3 {
		t.Errorf("expected 3 attempts on run log end, got %d", store.calls["end"])
	}
	if len(store.masterUpdates) != 1 || store.masterUpdates[0] != "Completed" {
		t.Errorf("expected master status Completed, got %v", store.masterUpdates)
	}
}

func TestRecordEnd_ExhaustionReturnsSentinel(t *testing.T) {
	store := newFlakyStore(10)
	outcome := domain.NewRunOutcome()
	outcome.MarkInProgress()
	outcome.MarkFinished()

	err := newTestRecorder(store).RecordEnd(context.Background(), testRun(), outcome)
	if !errors.Is(err, ErrWriteExhausted) {
		t.Fatalf("expected ErrWriteExhausted, got %v", err)
	}

	if store.calls["end"] != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", store.calls["end"])
	}
}

func TestRecordDelay_Passthrough(t *testing.T) {
	store := newFlakyStore(0)

	err := newTestRecorder(store).RecordDelay(context.Background(), testRun(), "Other Region Report Refresh is already running")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.calls["delay"] != 1 {
		t.Errorf("expected 1 delay write, got %d", store.calls["delay"])
	}
}

func TestWithRetry_ContextCancelStopsBackoff(t *testing.T) {
	store := newFlakyStore(10)
	rec := New(Config{
		Store:    store,
		Attempts: 3,
		Backoff:  time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- rec.RecordDelay(ctx, testRun(), "reason")
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("recorder did not stop after context cancel")
	}
}
