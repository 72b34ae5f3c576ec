package main

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"skillguard/internal/finding"
	"skillguard/internal/history"
)

func resetHistoryFlags(t *testing.T) {
	t.Helper()
	oldLimit, oldJSON := historyLimit, historyJSON
	t.Cleanup(func() { historyLimit, historyJSON = oldLimit, oldJSON })
	historyLimit = 10
	historyJSON = false
}

func seedHistory(t *testing.T, dbPath string) {
	t.Helper()
	store, err := history.NewStore(history.StoreConfig{Backend: "sqlite", ConnectionString: dbPath})
	if err != nil {
		t.Fatalf("cannot open history store: %v", err)
	}
	defer store.Close()

	records := []history.Record{
		{Path: "/tmp/alpha", RiskScore: 87, RiskLevel: finding.RiskCritical, CodeFindings: 3, DependencyFindings: 2, ScannedFiles: 12, DurationMS: 900},
		{Path: "/tmp/beta", RiskScore: 0, RiskLevel: finding.RiskSafe, ScannedFiles: 4, DurationMS: 120},
	}
	for _, rec := range records {
		if err := store.SaveScan(rec); err != nil {
			t.Fatalf("SaveScan failed: %v", err)
		}
	}
}

func TestRunHistoryEmpty(t *testing.T) {
	defer viper.Reset()
	viper.Reset()
	viper.Set("history.backend", "sqlite")
	viper.Set("history.path", filepath.Join(t.TempDir(), "history.db"))
	resetHistoryFlags(t)

	cmd, buf := newTestCommand()
	if err := runHistory(cmd, nil); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}

	if !strings.Contains(buf.String(), "No scans recorded yet.") {
		t.Errorf("expected empty message, got:\n%s", buf.String())
	}
}

func TestRunHistoryTable(t *testing.T) {
	defer viper.Reset()
	viper.Reset()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	viper.Set("history.backend", "sqlite")
	viper.Set("history.path", dbPath)
	resetHistoryFlags(t)

	seedHistory(t, dbPath)

	cmd, buf := newTestCommand()
	if err := runHistory(cmd, nil); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"WHEN", "PATH", "/tmp/alpha", "87/100", "critical", "/tmp/beta", "safe"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"Zero Time", time.Time{}, "N/A"},
		{"Seconds", now.Add(-30 * time.Second), "30s ago"},
		{"Minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"Hours", now.Add(-3 * time.Hour), "3h ago"},
		{"Days", now.Add(-48 * time.Hour), "2d ago"},
		{"Future Clamped", now.Add(time.Minute), "0s ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAge(tt.t); got != tt.want {
				t.Errorf("formatAge() = %q, want %q", got, tt.want)
			}
		})
	}

	old := now.Add(-90 * 24 * time.Hour)
	if got := formatAge(old); got != old.Format("2006-01-02") {
		t.Errorf("formatAge() = %q, want date for scans older than a month", got)
	}
}

func TestRunHistoryJSON(t *testing.T) {
	defer viper.Reset()
	viper.Reset()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	viper.Set("history.backend", "sqlite")
	viper.Set("history.path", dbPath)
	resetHistoryFlags(t)
	historyJSON = true

	seedHistory(t, dbPath)

	cmd, buf := newTestCommand()
	if err := runHistory(cmd, nil); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}

	var records []history.Record
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}

func TestRunHistoryLimit(t *testing.T) {
	defer viper.Reset()
	viper.Reset()
	dbPath := filepath.Join(t.TempDir(), "history.db")
	viper.Set("history.backend", "sqlite")
	viper.Set("history.path", dbPath)
	resetHistoryFlags(t)
	historyJSON = true
	historyLimit = 1

	seedHistory(t, dbPath)

	cmd, buf := newTestCommand()
	if err := runHistory(cmd, nil); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}

	var records []history.Record
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected limit to cap records at 1, got %d", len(records))
	}
}
