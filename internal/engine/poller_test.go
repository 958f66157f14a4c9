package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Fakes ---

// scriptedClient replays a fixed sequence of describe results.
type scriptedClient struct {
	results []describeResult
	calls   int
}

type describeResult struct {
	status Status
	detail string
	err    error
}

func (c *scriptedClient) Submit(ctx context.Context, sql string) (string, error) {
	return "id-1", nil
}

func (c *scriptedClient) Describe(ctx context.Context, id string) (Status, string, error) {
	if c.calls >= len(c.results) {
		return StatusFinished, "", nil
	}
	res := c.results[c.calls]
	c.calls++
	return res.status, res.detail, res.err
}

func newTestPoller(client Client) *Poller {
	return NewPoller(PollerConfig{
		Client:   client,
		Interval: time.Millisecond,
	})
}

// --- Status Tests ---

func TestStatus_IsTerminal(t *testing.T) {
	terminal := []Status{StatusFinished, StatusFailed, StatusAborted}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}

	inflight := []Status{StatusSubmitted, StatusPicked, StatusStarted}
	for _, s := range inflight {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

// --- Poller Tests ---

func TestAwaitTerminal_PollsUntilTerminal(t *testing.T) {
	client := &scriptedClient{results: []describeResult{
		{status: StatusSubmitted},
		{status: StatusPicked},
		{status: StatusStarted},
		{status: StatusFinished},
	}}

	status, detail, err := newTestPoller(client).AwaitTerminal(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusFinished {
		t.Errorf("expected FINISHED, got %s", status)
	}
	if detail != "" {
		t.Errorf("expected empty detail, got %q", detail)
	}
	if client.calls != 4 {
		t.Errorf("expected 4 describe calls, got %d", client.calls)
	}
}

func TestAwaitTerminal_ReturnsEngineErrorDetail(t *testing.T) {
	client := &scriptedClient{results: []describeResult{
		{status: StatusStarted},
		{status: StatusFailed, detail: "ERROR: division by zero"},
	}}

	status, detail, err := newTestPoller(client).AwaitTerminal(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != StatusFailed {
		t.Errorf("expected FAILED, got %s", status)
	}
	if detail != "ERROR: division by zero" {
		t.Errorf("unexpected detail: %q", detail)
	}
}

func TestAwaitTerminal_DescribeErrorIsSyntheticFailure(t *testing.T) {
	boom := errors.New("describe blew up")
	client := &scriptedClient{results: []describeResult{
		{err: boom},
	}}

	status, detail, err := newTestPoller(client).AwaitTerminal(context.Background(), "id-1")
	if err != nil {
		t.Fatalf("describe error must not surface as poll error: %v", err)
	}
	if status != StatusFailed {
		t.Errorf("expected synthetic FAILED, got %s", status)
	}
	if detail != boom.Error() {
		t.Errorf("detail should carry the describe error, got %q", detail)
	}
	// One describe call only: the synthetic failure consumes the attempt.
	if client.calls != 1 {
		t.Errorf("expected 1 describe call, got %d", client.calls)
	}
}

func TestAwaitTerminal_ContextCancel(t *testing.T) {
	client := &scriptedClient{results: []describeResult{
		{status: StatusStarted},
		{status: StatusStarted},
	}}

	poller := NewPoller(PollerConfig{
		Client:   client,
		Interval: time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := poller.AwaitTerminal(ctx, "id-1")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop after context cancel")
	}
}
