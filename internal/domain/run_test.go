package domain

import (
	"testing"
	"time"
)

// --- ExecutionStatus Tests ---

func TestExecutionStatus_IsTerminal(t *testing.T) {
	if !StatusFinished.IsTerminal() || !StatusFailed.IsTerminal() {
		t.Error("Finished and Failed should be terminal")
	}
	for _, s := range []ExecutionStatus{StatusYetToStart, StatusSubmitted, StatusInProgress, StatusDelay} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestExecutionStatus_InFlight(t *testing.T) {
	if !StatusSubmitted.InFlight() || !StatusInProgress.InFlight() {
		t.Error("Submitted and InProgress should be in flight")
	}
	for _, s := range []ExecutionStatus{StatusYetToStart, StatusFinished, StatusFailed, StatusDelay} {
		if s.InFlight() {
			t.Errorf("%s should not be in flight", s)
		}
	}
}

func TestExecutionStatus_MasterStatus(t *testing.T) {
	cases := map[ExecutionStatus]string{
		StatusFinished:   "Completed",
		StatusFailed:     "Failed",
		StatusInProgress: "InProgress",
		StatusDelay:      "Delay",
	}
	for status, want := range cases {
		if got := status.MasterStatus(); got != want {
			t.Errorf("%s: expected %q, got %q", status, want, got)
		}
	}
}

// --- WorkUnit Tests ---

func TestWorkUnit_CallStatement(t *testing.T) {
	u := WorkUnit{Name: "sp_refresh_sales"}
	if got := u.CallStatement(); got != "CALL sp_refresh_sales;" {
		t.Errorf("unexpected statement: %q", got)
	}
}

func TestWorkUnit_DataSourceLabel(t *testing.T) {
	if got := (WorkUnit{DataSource: "SPDST"}).DataSourceLabel(); got != "SPDST" {
		t.Errorf("expected SPDST, got %q", got)
	}
	if got := (WorkUnit{DataSource: "BMT"}).DataSourceLabel(); got != "SPDST/Others" {
		t.Errorf("expected SPDST/Others, got %q", got)
	}
}

// --- RunOutcome Tests ---

func TestRunOutcome_Lifecycle(t *testing.T) {
	o := NewRunOutcome()
	if o.Status != StatusYetToStart {
		t.Errorf("fresh outcome should be Yet to start, got %s", o.Status)
	}
	if o.ErrorMessage != NullErrorMessage {
		t.Errorf("fresh outcome error message should be %q, got %q", NullErrorMessage, o.ErrorMessage)
	}

	o.MarkInProgress()
	if o.Status != StatusInProgress || o.StartedAt == nil {
		t.Error("MarkInProgress should set status and start time")
	}

	o.MarkFinished()
	if o.Status != StatusFinished || o.FinishedAt == nil {
		t.Error("MarkFinished should set status and end time")
	}
	if o.ErrorMessage != NullErrorMessage {
		t.Errorf("finished outcome should reset error message, got %q", o.ErrorMessage)
	}
	if o.Duration() < 0 {
		t.Error("duration should be non-negative")
	}
}

func TestRunOutcome_MarkFailed(t *testing.T) {
	o := NewRunOutcome()
	o.MarkInProgress()
	o.MarkFailed(FailureRecord{
		Unit:   WorkUnit{Name: "sp_x"},
		Error:  "ERROR: relation does not exist",
		Region: "APJ",
	})

	if o.Status != StatusFailed {
		t.Errorf("expected Failed, got %s", o.Status)
	}
	if o.ErrorMessage != "relation does not exist" {
		t.Errorf("expected fragment after colon, got %q", o.ErrorMessage)
	}
	if len(o.FailedUnits) != 1 {
		t.Errorf("expected 1 failed unit, got %d", len(o.FailedUnits))
	}
}

// --- RunContext Tests ---

func TestRunContext_Key(t *testing.T) {
	run := &RunContext{
		Region:       "EMEA",
		BatchDate:    time.Date(2026, 8, 28, 14, 30, 0, 0, time.UTC),
		ReportSource: "SPDST",
	}
	if got := run.Key(); got != "EMEA/2026-08-28/SPDST" {
		t.Errorf("unexpected key: %q", got)
	}
}

// --- ErrorFragment Tests ---

func TestErrorFragment(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ERROR: permission denied", "permission denied"},
		{"code 42: detail: more", "detail: more"},
		{"no colon here", "no colon here"},
		{"", ""},
	}
	for _, c := range cases {
		if got := ErrorFragment(c.in); got != c.want {
			t.Errorf("ErrorFragment(%q): expected %q, got %q", c.in, c.want, got)
		}
	}
}
