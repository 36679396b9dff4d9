package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"darksingularity/internal/config"
	"darksingularity/internal/nn"
	"darksingularity/internal/scape"
	"darksingularity/internal/scapeid"
	"darksingularity/internal/stats"
	"darksingularity/internal/storage"
	"darksingularity/pkg/singularity"
)

func runBench(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	scapeName := fs.String("scape", "", fmt.Sprintf("benchmark scape: %v (default from config)", scapeid.Names()))
	steps := fs.Int("steps", 0, "steps to run (0 = config, then the scape default)")
	reportEvery := fs.Int("report-every", 0, "steps per progress window (0 = config, then the scape default)")
	seed := fs.Int64("seed", 0, "exploration seed (0 = config)")
	topology := fs.String("topology", "", fmt.Sprintf("node topology strategy: %v (default from config)", nn.ListTopologies()))
	out := fs.String("out", "", "save the trained engine to this DSYM file")
	checkpoint := fs.String("checkpoint", "", "store the trained engine in the snapshot store under this id")
	logLevel := fs.String("log-level", "", "log level: debug|info|warn|error (default from config)")
	logFormat := fs.String("log-format", "", "log format: auto|text|json (default from config)")
	runsDir := fs.String("runs-dir", "", "write run artifacts under this directory (default from config)")
	runID := fs.String("run-id", "", "run artifact id (default: random uuid)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := sf.resolve()
	if err != nil {
		return err
	}
	if *scapeName != "" {
		cfg.Bench.Scape = *scapeName
	}
	if *steps > 0 {
		cfg.Bench.Steps = *steps
	}
	if *reportEvery > 0 {
		cfg.Bench.ReportEvery = *reportEvery
	}
	if *seed != 0 {
		cfg.Engine.Seed = *seed
	}
	if *topology != "" {
		cfg.Engine.Topology = *topology
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *runsDir != "" {
		cfg.Bench.RunsDir = *runsDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	engineCfg := cfg.Engine.AgentConfig()
	client, err := singularity.New(singularity.Options{
		Engine:    &engineCfg,
		StoreKind: cfg.Store.Backend,
		StorePath: cfg.Store.Path,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Bench(ctx, singularity.BenchRequest{
		Scape:       cfg.Bench.Scape,
		Steps:       cfg.Bench.Steps,
		ReportEvery: cfg.Bench.ReportEvery,
		OnWindow: func(w scape.Window) {
			fmt.Fprintf(stdout, "steps=%s accuracy=%.1f%%\n", humanize.Comma(int64(w.End)), 100*w.Accuracy)
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "scape=%s steps=%s fitness=%.4f temperature=%.3f resonance=%.3f\n",
		summary.Scape,
		humanize.Comma(int64(summary.Steps)),
		summary.Fitness,
		summary.Temperature,
		summary.ResonanceDensity,
	)

	if *out != "" {
		if err := client.Save(summary.Handle, *out); err != nil {
			return err
		}
		info, err := os.Stat(*out)
		if err != nil {
			return fmt.Errorf("%w: stat %s: %w", storage.ErrIOFailure, *out, err)
		}
		fmt.Fprintf(stdout, "saved=%s size=%s\n", *out, humanize.Bytes(uint64(info.Size())))
	}
	if *checkpoint != "" {
		id, err := client.Checkpoint(ctx, summary.Handle, *checkpoint)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "checkpoint=%s store=%s\n", id, cfg.Store.Backend)
	}
	if cfg.Bench.RunsDir != "" {
		id := *runID
		if id == "" {
			id = uuid.NewString()
		}
		engine, err := client.Snapshot(summary.Handle)
		if err != nil {
			return err
		}
		runDir, err := stats.WriteRunArtifacts(cfg.Bench.RunsDir, stats.RunArtifacts{
			Config: stats.RunConfig{
				RunID:       id,
				Scape:       summary.Scape,
				Steps:       summary.Steps,
				ReportEvery: cfg.Bench.ReportEvery,
				Seed:        cfg.Engine.Seed,
				Topology:    cfg.Engine.Topology,
			},
			Summary: stats.BenchmarkSummary{
				Scape:            summary.Scape,
				Fitness:          summary.Fitness,
				Steps:            summary.Steps,
				Temperature:      float64(summary.Temperature),
				ResonanceDensity: summary.ResonanceDensity,
			},
			Windows: summary.Windows,
			Trace:   summary.Trace,
			Engine:  engine,
		})
		if err != nil {
			return fmt.Errorf("write run artifacts: %w", err)
		}
		if err := stats.AppendRunIndex(cfg.Bench.RunsDir, stats.RunIndexEntry{
			RunID:        id,
			Scape:        summary.Scape,
			Steps:        summary.Steps,
			Seed:         cfg.Engine.Seed,
			Fitness:      summary.Fitness,
			CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
		}); err != nil {
			return fmt.Errorf("append run index: %w", err)
		}
		fmt.Fprintf(stdout, "run_id=%s artifacts=%s\n", id, runDir)
	}
	return nil
}

func runRuns(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file layered over the defaults")
	runsDir := fs.String("runs-dir", "", "run artifact directory (default from config)")
	show := fs.String("show", "", "print the config, summary and accuracy series of one run")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *runsDir != "" {
		cfg.Bench.RunsDir = *runsDir
	}
	if cfg.Bench.RunsDir == "" {
		return errors.New("runs requires --runs-dir or bench.runs_dir in the config")
	}
	if *show != "" {
		return showRun(cfg.Bench.RunsDir, *show)
	}

	entries, err := stats.ListRunIndex(cfg.Bench.RunsDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "no runs")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("run_id=%s scape=%s steps=%s fitness=%.4f", e.RunID, e.Scape, humanize.Comma(int64(e.Steps)), e.Fitness)
		if created, err := time.Parse(time.RFC3339Nano, e.CreatedAtUTC); err == nil {
			line += " created=" + humanize.Time(created)
		}
		fmt.Fprintln(stdout, line)
	}
	return nil
}

func showRun(runsDir, runID string) error {
	runCfg, ok, err := stats.ReadRunConfig(runsDir, runID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("run not found: %s", runID)
	}
	fmt.Fprintf(stdout, "run_id=%s scape=%s steps=%s report_every=%d seed=%d topology=%s\n",
		runCfg.RunID, runCfg.Scape, humanize.Comma(int64(runCfg.Steps)), runCfg.ReportEvery, runCfg.Seed, runCfg.Topology)

	summary, ok, err := stats.ReadBenchmarkSummary(runsDir, runID)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintf(stdout, "fitness=%.4f windows=%d best_window=%.4f final_window=%.4f temperature=%.4f resonance_density=%.4f\n",
			summary.Fitness, summary.Windows, summary.BestWindow, summary.FinalWindow, summary.Temperature, summary.ResonanceDensity)
	}

	series, ok, err := stats.ReadAccuracySeries(runsDir, runID)
	if err != nil {
		return err
	}
	if ok {
		for _, w := range series {
			fmt.Fprintf(stdout, "step=%d accuracy=%.4f\n", w.End, w.Accuracy)
		}
	}
	return nil
}
