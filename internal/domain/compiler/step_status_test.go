package compiler

import (
	"testing"
)

func TestStepStatus_Values(t *testing.T) {
	statuses := []StepStatus{
		StatusSatisfied,
		StatusNeedsApply,
		StatusUnknown,
		StatusFailed,
		StatusSkipped,
	}

	expected := []string{
		"satisfied",
		"needs-apply",
		"unknown",
		"failed",
		"skipped",
	}

	for i, status := range statuses {
		if status.String() != expected[i] {
			t.Errorf("status %d: got %q, want %q", i, status.String(), expected[i])
		}
	}
}

func TestStepStatus_NeedsActionAndTerminal(t *testing.T) {
	tests := []struct {
		status      StepStatus
		needsAction bool
		terminal    bool
		symbol      string
	}{
		{StatusSatisfied, false, true, "✓"},
		{StatusNeedsApply, true, false, "+"},
		{StatusUnknown, true, false, "?"},
		{StatusFailed, true, true, "✗"},
		{StatusSkipped, false, true, "-"},
	}

	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			if got := tt.status.NeedsAction(); got != tt.needsAction {
				t.Errorf("NeedsAction() = %v, want %v", got, tt.needsAction)
			}
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
			if got := tt.status.Symbol(); got != tt.symbol {
				t.Errorf("Symbol() = %q, want %q", got, tt.symbol)
			}
		})
	}
}
