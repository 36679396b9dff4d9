// Package stats records benchmark runs on disk: the run configuration, the
// per-window accuracy series and a summary, plus an index of every run under
// a base directory.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"darksingularity/internal/scape"
)

const (
	runIndexFile   = "run_index.json"
	configFile     = "config.json"
	summaryFile    = "benchmark_summary.json"
	seriesFile     = "accuracy_series.csv"
	traceFile      = "trace.json"
	engineFileName = "engine.dsym"
)

var ErrMissingRunID = errors.New("run id is required")

type RunConfig struct {
	RunID       string `json:"run_id"`
	Scape       string `json:"scape"`
	Steps       int    `json:"steps"`
	ReportEvery int    `json:"report_every"`
	Seed        int64  `json:"seed"`
	Topology    string `json:"topology"`
}

type BenchmarkSummary struct {
	RunID            string  `json:"run_id"`
	Scape            string  `json:"scape"`
	Fitness          float64 `json:"fitness"`
	Steps            int     `json:"steps"`
	Windows          int     `json:"windows"`
	BestWindow       float64 `json:"best_window"`
	FinalWindow      float64 `json:"final_window"`
	Temperature      float64 `json:"temperature"`
	ResonanceDensity float64 `json:"resonance_density"`
}

// RunArtifacts is everything written for one run. Engine, when set, is the
// trained engine snapshot and is stored next to the JSON files.
type RunArtifacts struct {
	Config  RunConfig
	Summary BenchmarkSummary
	Windows []scape.Window
	Trace   scape.Trace
	Engine  []byte
}

type RunIndexEntry struct {
	RunID        string  `json:"run_id"`
	Scape        string  `json:"scape"`
	Steps        int     `json:"steps"`
	Seed         int64   `json:"seed"`
	Fitness      float64 `json:"fitness"`
	CreatedAtUTC string  `json:"created_at_utc"`
}

// Summarize fills the window-derived fields of a summary.
func Summarize(summary BenchmarkSummary, windows []scape.Window) BenchmarkSummary {
	summary.Windows = len(windows)
	summary.BestWindow = 0
	summary.FinalWindow = 0
	for _, w := range windows {
		if w.Accuracy > summary.BestWindow {
			summary.BestWindow = w.Accuracy
		}
	}
	if len(windows) > 0 {
		summary.FinalWindow = windows[len(windows)-1].Accuracy
	}
	return summary
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", ErrMissingRunID
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	summary := artifacts.Summary
	summary.RunID = artifacts.Config.RunID
	if err := writeJSON(filepath.Join(runDir, summaryFile), Summarize(summary, artifacts.Windows)); err != nil {
		return "", err
	}
	if err := WriteAccuracySeries(runDir, artifacts.Windows); err != nil {
		return "", err
	}
	if artifacts.Trace != nil {
		if err := writeJSON(filepath.Join(runDir, traceFile), artifacts.Trace); err != nil {
			return "", err
		}
	}
	if len(artifacts.Engine) > 0 {
		if err := os.WriteFile(filepath.Join(runDir, engineFileName), artifacts.Engine, 0o644); err != nil {
			return "", err
		}
	}
	return runDir, nil
}

// EnginePath returns where WriteRunArtifacts stores the engine snapshot.
func EnginePath(baseDir, runID string) string {
	return filepath.Join(baseDir, runID, engineFileName)
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return ErrMissingRunID
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the runs newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, runIndexFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// later appends win ties
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadBenchmarkSummary(baseDir, runID string) (BenchmarkSummary, bool, error) {
	var summary BenchmarkSummary
	ok, err := readJSON(filepath.Join(baseDir, runID, summaryFile), &summary)
	return summary, ok, err
}

func WriteAccuracySeries(runDir string, windows []scape.Window) error {
	file, err := os.Create(filepath.Join(runDir, seriesFile))
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"step", "accuracy"}); err != nil {
		return err
	}
	for _, w := range windows {
		if err := writer.Write([]string{
			strconv.Itoa(w.End),
			strconv.FormatFloat(w.Accuracy, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func ReadAccuracySeries(baseDir, runID string) ([]scape.Window, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, seriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []scape.Window{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("accuracy series header must have at least 2 columns")
	}

	series := make([]scape.Window, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("accuracy series row must have at least 2 columns")
		}
		end, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, false, err
		}
		accuracy, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, scape.Window{End: end, Accuracy: accuracy})
	}
	return series, true, nil
}

func readJSON(path string, value any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, value); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}
