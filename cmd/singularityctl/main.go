package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"darksingularity/internal/config"
)

var (
	stdout io.Writer = os.Stdout
	stderr *os.File  = os.Stderr
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "bench":
		return runBench(ctx, args[1:])
	case "inspect":
		return runInspect(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "import":
		return runImport(ctx, args[1:])
	case "checkpoints":
		return runCheckpoints(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "config":
		return runConfig(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: singularityctl <bench|inspect|export|import|checkpoints|runs|config> [flags]", msg)
}

// storeFlags are shared by every command that touches a snapshot store.
type storeFlags struct {
	configPath *string
	kind       *string
	path       *string
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		configPath: fs.String("config", "", "YAML config file layered over the defaults"),
		kind:       fs.String("store", "", "store backend: memory|sqlite|dir (default from config)"),
		path:       fs.String("db-path", "", "sqlite database file or snapshot directory (default from config)"),
	}
}

// resolve loads the config file and applies the store flag overrides.
func (f storeFlags) resolve() (*config.Config, error) {
	cfg, err := config.Load(*f.configPath)
	if err != nil {
		return nil, err
	}
	if *f.kind != "" {
		cfg.Store.Backend = *f.kind
	}
	if *f.path != "" {
		cfg.Store.Path = *f.path
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runConfig(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file layered over the defaults")
	out := fs.String("out", "", "write the effective config to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *out != "" {
		if err := cfg.WriteYAML(*out); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote config=%s\n", *out)
		return nil
	}
	data, err := cfg.Encode()
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}
