package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"darksingularity/internal/model"
	"darksingularity/internal/storage"
	"darksingularity/pkg/singularity"
)

func runInspect(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	in := fs.String("in", "", "DSYM file to inspect")
	stateSize := fs.Int("state-size", 0, "engine state size, needed for version 2-4 files")
	categories := fs.String("categories", "", "comma-separated category sizes, needed for version 2-4 files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("inspect requires --in")
	}
	sizes, err := parseCategories(*categories)
	if err != nil {
		return err
	}

	data, err := storage.ReadSnapshotFile(*in)
	if err != nil {
		return err
	}
	s, err := storage.DecodeSnapshot(data, model.Shape{StateSize: *stateSize, CategorySizes: sizes})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "file=%s size=%s version=%d state_size=%d categories=%v\n",
		*in, humanize.Bytes(uint64(len(data))), s.Version, s.StateSize, s.CategorySizes)
	fmt.Fprintf(stdout, "temperature=%.4f adrenaline=%.4f frustration=%.4f morale=%.4f patience=%.4f velocity_trust=%.4f\n",
		s.Temperature, s.Adrenaline, s.Frustration, s.Morale, s.Patience, s.VelocityTrust)
	fmt.Fprintf(stdout, "exploration_beta=%.4f glutamate_buffer=%.4f reward_baseline=%.4f\n",
		s.ExplorationBeta, s.GlutamateBuffer, s.RewardBaseline)
	fmt.Fprintf(stdout, "substrate_dim=%d theta=%d memory=%d penalty=%d\n",
		s.Dim, len(s.Theta), len(s.MemoryReal), len(s.Penalty))
	fmt.Fprintf(stdout, "nodes=%d learned_rules=%d knowledge_rules=%d entanglements=%d\n",
		len(s.Nodes), len(s.LearnedRules), len(s.Knowledge), len(s.Entanglements))
	return nil
}

func parseCategories(raw string) ([]int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	sizes := make([]int, 0, len(parts))
	for _, part := range parts {
		size, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("invalid category size %q", part)
		}
		sizes = append(sizes, size)
	}
	return sizes, nil
}

func openStore(ctx context.Context, sf storeFlags) (storage.Store, error) {
	cfg, err := sf.resolve()
	if err != nil {
		return nil, err
	}
	store, err := storage.NewStore(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}
	return store, nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	id := fs.String("id", "", "snapshot id to export")
	out := fs.String("out", "", "destination DSYM file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" || *out == "" {
		return errors.New("export requires --id and --out")
	}

	store, err := openStore(ctx, sf)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	data, ok, err := store.GetSnapshot(ctx, *id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: snapshot not found: %s", storage.ErrInvalidSnapshotID, *id)
	}
	if err := storage.WriteSnapshotFile(*out, data); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "exported id=%s out=%s size=%s\n", *id, *out, humanize.Bytes(uint64(len(data))))
	return nil
}

func runImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	in := fs.String("in", "", "DSYM file to import")
	id := fs.String("id", "", "snapshot id (default: file name without extension)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("import requires --in")
	}
	if *id == "" {
		*id = strings.TrimSuffix(filepath.Base(*in), filepath.Ext(*in))
	}

	data, err := storage.ReadSnapshotFile(*in)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, sf)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()

	if err := store.SaveSnapshot(ctx, *id, data); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported id=%s size=%s\n", *id, humanize.Bytes(uint64(len(data))))
	return nil
}

func runCheckpoints(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("checkpoints", flag.ContinueOnError)
	sf := addStoreFlags(fs)
	del := fs.String("delete", "", "checkpoint id to delete")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := sf.resolve()
	if err != nil {
		return err
	}
	client, err := singularity.New(singularity.Options{StoreKind: cfg.Store.Backend, StorePath: cfg.Store.Path})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if *del != "" {
		if err := client.DeleteCheckpoint(ctx, *del); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "deleted id=%s\n", *del)
		return nil
	}

	records, err := client.Checkpoints(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, "no snapshots")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(stdout, "id=%s version=%d state_size=%d size=%s\n",
			r.ID, r.Version, r.StateSize, humanize.Bytes(uint64(r.Size)))
	}
	return nil
}
