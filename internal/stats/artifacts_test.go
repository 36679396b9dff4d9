package stats

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"darksingularity/internal/scape"
)

func TestWriteAndReadRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	runID := "run-123"
	windows := []scape.Window{{End: 20, Accuracy: 0.25}, {End: 40, Accuracy: 0.75}, {End: 60, Accuracy: 0.5}}

	runDir, err := WriteRunArtifacts(baseDir, RunArtifacts{
		Config: RunConfig{
			RunID:       runID,
			Scape:       "law",
			Steps:       60,
			ReportEvery: 20,
			Seed:        7,
			Topology:    "continuous",
		},
		Summary: BenchmarkSummary{Scape: "law", Fitness: 0.5, Steps: 60},
		Windows: windows,
		Trace:   scape.Trace{"scape": "law", "hits": 30},
		Engine:  []byte("DSYM"),
	})
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	for _, file := range []string{configFile, summaryFile, seriesFile, traceFile, engineFileName} {
		if _, err := os.Stat(filepath.Join(runDir, file)); err != nil {
			t.Fatalf("expected file %s: %v", file, err)
		}
	}
	if got := EnginePath(baseDir, runID); got != filepath.Join(runDir, engineFileName) {
		t.Fatalf("unexpected engine path: %s", got)
	}

	cfg, ok, err := ReadRunConfig(baseDir, runID)
	if err != nil || !ok {
		t.Fatalf("read config ok=%t err=%v", ok, err)
	}
	if cfg.Seed != 7 || cfg.Topology != "continuous" {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	summary, ok, err := ReadBenchmarkSummary(baseDir, runID)
	if err != nil || !ok {
		t.Fatalf("read summary ok=%t err=%v", ok, err)
	}
	if summary.RunID != runID || summary.Windows != 3 || summary.BestWindow != 0.75 || summary.FinalWindow != 0.5 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	series, ok, err := ReadAccuracySeries(baseDir, runID)
	if err != nil || !ok {
		t.Fatalf("read series ok=%t err=%v", ok, err)
	}
	if len(series) != len(windows) {
		t.Fatalf("expected %d windows, got %d", len(windows), len(series))
	}
	for i := range windows {
		if series[i] != windows[i] {
			t.Fatalf("window %d mismatch: got=%+v want=%+v", i, series[i], windows[i])
		}
	}
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	if _, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{}); !errors.Is(err, ErrMissingRunID) {
		t.Fatalf("expected missing run id error, got %v", err)
	}
	if err := AppendRunIndex(t.TempDir(), RunIndexEntry{}); !errors.Is(err, ErrMissingRunID) {
		t.Fatalf("expected missing run id error, got %v", err)
	}
}

func TestReadMissingRun(t *testing.T) {
	baseDir := t.TempDir()
	if _, ok, err := ReadBenchmarkSummary(baseDir, "absent"); err != nil || ok {
		t.Fatalf("expected missing summary, ok=%t err=%v", ok, err)
	}
	if _, ok, err := ReadAccuracySeries(baseDir, "absent"); err != nil || ok {
		t.Fatalf("expected missing series, ok=%t err=%v", ok, err)
	}
}

func TestRunIndexOrderingAndReplace(t *testing.T) {
	baseDir := t.TempDir()

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list empty index: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty index, got %d", len(entries))
	}

	for _, entry := range []RunIndexEntry{
		{RunID: "a", Scape: "law", CreatedAtUTC: "2026-01-01T00:00:00Z", Fitness: 0.2},
		{RunID: "b", Scape: "shift", CreatedAtUTC: "2026-01-02T00:00:00Z", Fitness: 0.3},
		{RunID: "c", Scape: "chaos", CreatedAtUTC: "2026-01-02T00:00:00Z", Fitness: 0.4},
	} {
		if err := AppendRunIndex(baseDir, entry); err != nil {
			t.Fatalf("append %s: %v", entry.RunID, err)
		}
	}

	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(entries) != 3 || entries[0].RunID != "c" || entries[1].RunID != "b" || entries[2].RunID != "a" {
		t.Fatalf("unexpected order: %+v", entries)
	}

	if err := AppendRunIndex(baseDir, RunIndexEntry{RunID: "a", Scape: "law", CreatedAtUTC: "2026-01-03T00:00:00Z", Fitness: 0.9}); err != nil {
		t.Fatalf("replace a: %v", err)
	}
	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list index: %v", err)
	}
	if len(entries) != 3 || entries[0].RunID != "a" || entries[0].Fitness != 0.9 {
		t.Fatalf("expected replaced entry first, got %+v", entries)
	}
}
