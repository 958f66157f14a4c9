package trigger

import (
	"context"
	"testing"
	"time"

	"github.com/shaiso/Refresher/internal/domain"
	"github.com/shaiso/Refresher/internal/readiness"
	"github.com/shaiso/Refresher/internal/repo"
)

// --- Fakes ---

type gateStore struct {
	status        domain.ExecutionStatus
	hasRow        bool
	inserted      int
	submitted     int
	inFlightOther bool
}

func (s *gateStore) GetRunLog(ctx context.Context, region string, batchDate time.Time, source string) (*repo.RunLogRow, error) {
	if !s.hasRow {
		return nil, repo.ErrNotFound
	}
	return &repo.RunLogRow{
		Region:       region,
		BatchDate:    batchDate,
		ReportSource: source,
		Status:       s.status,
	}, nil
}

func (s *gateStore) InsertRunLog(ctx context.Context, run *domain.RunContext) error {
	s.inserted++
	s.hasRow = true
	s.status = domain.StatusYetToStart
	return nil
}

func (s *gateStore) MarkSubmitted(ctx context.Context, run *domain.RunContext, at time.Time) error {
	s.submitted++
	s.status = domain.StatusSubmitted
	return nil
}

func (s *gateStore) AnyInFlight(ctx context.Context, batchDate time.Time, source, excludeRegion string) (bool, error) {
	return s.inFlightOther, nil
}

type delayLog struct {
	reasons []string
}

func (d *delayLog) RecordDelay(ctx context.Context, run *domain.RunContext, reason string) error {
	d.reasons = append(d.reasons, reason)
	return nil
}

type delayNotes struct {
	reasons []string
}

func (d *delayNotes) NotifyDelay(ctx context.Context, run *domain.RunContext, reason string) error {
	d.reasons = append(d.reasons, reason)
	return nil
}

type fixedPriority struct {
	files []string
}

func (p *fixedPriority) ListPriorityFiles(ctx context.Context, region, dataSource string) ([]string, error) {
	return p.files, nil
}

// fixedLister serves object keys per prefix for the readiness checker.
type fixedLister struct {
	objects map[string][]string
}

func (l *fixedLister) List(ctx context.Context, prefix string) ([]string, error) {
	return l.objects[prefix], nil
}

type launchLog struct {
	runs []*domain.RunContext
}

func (l *launchLog) Launch(ctx context.Context, run *domain.RunContext) error {
	l.runs = append(l.runs, run)
	return nil
}

type gateFixture struct {
	store    *gateStore
	delays   *delayLog
	notes    *delayNotes
	launches *launchLog
	trigger  *Trigger
}

func newGateFixture(t *testing.T, cfg func(*Config)) *gateFixture {
	t.Helper()

	f := &gateFixture{
		store:    &gateStore{},
		delays:   &delayLog{},
		notes:    &delayNotes{},
		launches: &launchLog{},
	}

	c := Config{
		Store:        f.store,
		Delays:       f.delays,
		Notifier:     f.notes,
		Launcher:     f.launches,
		Region:       "EMEA",
		ReportSource: "SPDST",
		DataSource:   "BMT",
		Clock: func() time.Time {
			return time.Date(2026, 8, 28, 3, 0, 0, 0, time.UTC)
		},
	}
	if cfg != nil {
		cfg(&c)
	}

	f.trigger = New(c)
	return f
}

// --- Tick Tests ---

func TestTick_CreatesRowAndLaunches(t *testing.T) {
	f := newGateFixture(t, nil)

	if err := f.trigger.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.store.inserted != 1 {
		t.Error("missing run log row should be created")
	}
	if f.store.submitted != 1 {
		t.Error("run should be marked Submitted")
	}
	if len(f.launches.runs) != 1 {
		t.Fatalf("expected 1 launch, got %d", len(f.launches.runs))
	}
	if f.launches.runs[0].Region != "EMEA" {
		t.Errorf("unexpected run region: %s", f.launches.runs[0].Region)
	}
}

func TestTick_SkipsInFlightDuplicate(t *testing.T) {
	f := newGateFixture(t, nil)
	f.store.hasRow = true
	f.store.status = domain.StatusInProgress

	if err := f.trigger.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.launches.runs) != 0 {
		t.Error("in-flight run must not be launched again")
	}
	if f.store.submitted != 0 {
		t.Error("in-flight run must not be re-submitted")
	}
}

func TestTick_SkipsTerminalRun(t *testing.T) {
	f := newGateFixture(t, nil)
	f.store.hasRow = true
	f.store.status = domain.StatusFinished

	if err := f.trigger.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.launches.runs) != 0 {
		t.Error("finished run must not be launched again")
	}
}

func TestTick_OtherRegionInFlightDelays(t *testing.T) {
	f := newGateFixture(t, nil)
	f.store.inFlightOther = true

	if err := f.trigger.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.launches.runs) != 0 {
		t.Error("run must not launch while another region is in flight")
	}
	if len(f.delays.reasons) != 1 || f.delays.reasons[0] != reasonOtherRegionInFlight {
		t.Errorf("expected delay annotation, got %v", f.delays.reasons)
	}
	if len(f.notes.reasons) != 1 {
		t.Errorf("expected 1 delay notification, got %d", len(f.notes.reasons))
	}
}

func TestTick_NoNotifierStillDelays(t *testing.T) {
	// Notifications disabled: the Notifier field stays nil.
	f := newGateFixture(t, func(c *Config) {
		c.Notifier = nil
	})
	f.store.inFlightOther = true

	if err := f.trigger.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.delays.reasons) != 1 {
		t.Errorf("delay annotation should still be written, got %v", f.delays.reasons)
	}
	if len(f.launches.runs) != 0 {
		t.Error("run must not launch while another region is in flight")
	}
}

func TestTick_DelayNotificationDeduped(t *testing.T) {
	f := newGateFixture(t, nil)
	f.store.inFlightOther = true

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := f.trigger.Tick(ctx); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
	}

	// Annotation is re-written every tick, the notification only once.
	if len(f.notes.reasons) != 1 {
		t.Errorf("expected 1 notification across ticks, got %d", len(f.notes.reasons))
	}
}

func withFiles(files []string, loaded []string, received []string) func(*Config) {
	return func(c *Config) {
		c.Priority = &fixedPriority{files: files}
		c.Checker = readiness.New(readiness.Config{
			Lister: &fixedLister{objects: map[string][]string{
				"archive/": loaded,
				"landing/": received,
			}},
			LandingPrefix: "landing/",
			ArchivePrefix: "archive/",
		})
	}
}

func TestTick_WaitsForPriorityFilesBeforeCutoff(t *testing.T) {
	window, err := NewWindow("0 2 * * *", "UTC", 2*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := newGateFixture(t, func(c *Config) {
		withFiles([]string{"sales.csv"}, nil, []string{"landing/sales.csv"})(c)
		c.Cutoff = window
		// Clock at 03:00, cutoff at 04:00: still waiting.
	})

	if err := f.trigger.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.launches.runs) != 0 {
		t.Error("run must wait for priority files before cutoff")
	}
	if f.store.submitted != 0 {
		t.Error("waiting run must not be marked Submitted")
	}
}

func TestTick_ProceedsAfterCutoffWithDelay(t *testing.T) {
	window, err := NewWindow("0 2 * * *", "UTC", 30*time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := newGateFixture(t, func(c *Config) {
		withFiles([]string{"sales.csv"}, nil, nil)(c)
		c.Cutoff = window
		// Clock at 03:00, cutoff at 02:30: proceed late.
	})

	if err := f.trigger.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.launches.runs) != 1 {
		t.Fatal("run should launch after cutoff despite pending files")
	}
	if len(f.delays.reasons) != 1 {
		t.Fatalf("expected delay annotation, got %v", f.delays.reasons)
	}
}

func TestTick_LaunchesWhenFilesLoaded(t *testing.T) {
	f := newGateFixture(t, withFiles(
		[]string{"sales.csv", "stock.csv"},
		[]string{"archive/sales.csv", "archive/stock.csv"},
		nil,
	))

	if err := f.trigger.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.launches.runs) != 1 {
		t.Error("run should launch once all priority files are loaded")
	}
	if len(f.delays.reasons) != 0 {
		t.Errorf("no delay expected, got %v", f.delays.reasons)
	}
}

func TestTick_NoPriorityFilesLaunches(t *testing.T) {
	f := newGateFixture(t, withFiles(nil, nil, nil))

	if err := f.trigger.Tick(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(f.launches.runs) != 1 {
		t.Error("run should launch when no priority files are configured")
	}
}
