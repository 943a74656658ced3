package audit

import (
	"log/slog"
	"testing"
)

func TestSeverityAtLeast(t *testing.T) {
	tests := []struct {
		name string
		sev  Severity
		min  Severity
		want bool
	}{
		{"alert clears warning minimum", SeverityAlert, SeverityWarning, true},
		{"warning clears warning minimum", SeverityWarning, SeverityWarning, true},
		{"info does not clear warning minimum", SeverityInfo, SeverityWarning, false},
		{"debug does not clear info minimum", SeverityDebug, SeverityInfo, false},
		{"emergency clears every minimum", SeverityEmergency, SeverityDebug, true},
		{"unknown severity never clears", Severity("bogus"), SeverityDebug, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sev.AtLeast(tt.min); got != tt.want {
				t.Errorf("%s.AtLeast(%s) = %t, want %t", tt.sev, tt.min, got, tt.want)
			}
		})
	}
}

func TestSeveritySlogLevel(t *testing.T) {
	tests := []struct {
		sev  Severity
		want slog.Level
	}{
		{SeverityDebug, slog.LevelDebug},
		{SeverityInfo, slog.LevelInfo},
		{SeverityNotice, slog.LevelInfo},
		{SeverityWarning, slog.LevelWarn},
		{SeverityError, slog.LevelError},
		{SeverityCritical, slog.LevelError},
		{SeverityAlert, slog.LevelError},
		{SeverityEmergency, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(string(tt.sev), func(t *testing.T) {
			if got := tt.sev.SlogLevel(); got != tt.want {
				t.Errorf("SlogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeverityKnown(t *testing.T) {
	if !SeverityNotice.Known() {
		t.Error("notice must be a known severity")
	}
	if Severity("verbose").Known() {
		t.Error("verbose must not be a known severity")
	}
}
