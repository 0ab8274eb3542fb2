package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"diagsync/internal/config"
	"diagsync/internal/diagfmt"
	"diagsync/internal/notify"
	"diagsync/internal/observ"
	"diagsync/internal/reconcile"
	"diagsync/internal/state"
	"diagsync/internal/workspace"
)

// app bundles what every command needs: settings, the loaded workspace, an
// open store and a controller over them.
type app struct {
	cfg       config.Config
	ws        *workspace.Workspace
	store     state.Store
	registry  *state.Registry
	ctrl      *reconcile.Controller
	events    *notify.Recorder
	scheduler *logScheduler
	metrics   *reconcile.Metrics
	promReg   *prometheus.Registry
	timer     *observ.Timer
	timings   bool
}

// openApp loads configuration, the manifest and the store. Callers must
// call close when done.
func openApp(cmd *cobra.Command, sinks ...notify.Sink) (*app, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return nil, fmt.Errorf("failed to get timings flag: %w", err)
	}

	a := &app{cfg: cfg, timer: observ.NewTimer(), timings: timings}

	if err := a.timer.Measure("load manifest", func() error {
		a.ws, err = loadWorkspace(cfg.Manifest)
		return err
	}); err != nil {
		return nil, err
	}
	open, err := cmd.Root().PersistentFlags().GetStringSlice("open")
	if err != nil {
		return nil, fmt.Errorf("failed to get open flag: %w", err)
	}
	if err := markOpen(a.ws, open); err != nil {
		return nil, err
	}

	if err := a.timer.Measure("open store", func() error {
		a.store, err = openStore(cmd.Context(), cfg.Store, a.ws.Root())
		return err
	}); err != nil {
		return nil, err
	}

	a.registry = state.NewRegistry(a.store)
	a.events = &notify.Recorder{}
	a.scheduler = &logScheduler{out: cmd.ErrOrStderr()}
	a.promReg = prometheus.NewRegistry()
	a.metrics = reconcile.NewMetrics(a.promReg)

	a.ctrl, err = reconcile.New(reconcile.Config{
		Registry:  a.registry,
		Options:   config.NewOptions(v),
		Workspace: a.ws,
		Analyzers: a.ws,
		Scheduler: a.scheduler,
		Sink:      notify.Fanout(append([]notify.Sink{a.events}, sinks...)...),
		Jobs:      cfg.Jobs,
		Metrics:   a.metrics,
	})
	if err != nil {
		a.store.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) close(cmd *cobra.Command) {
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "store: close error: %v\n", err)
	}
	if a.timings {
		fmt.Fprint(cmd.ErrOrStderr(), a.timer.Summary())
	}
}

// loadWorkspace reads manifestPath, or the nearest diagsync.toml above the
// working directory when manifestPath is the default.
func loadWorkspace(manifestPath string) (*workspace.Workspace, error) {
	if manifestPath != "" && manifestPath != workspace.ManifestName {
		return workspace.Load(manifestPath)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	found, ok, err := workspace.Find(cwd)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no %s found in %s or any parent directory", workspace.ManifestName, cwd)
	}
	return workspace.Load(found)
}

// markOpen marks "project/document" entries as open on top of the
// manifest's open list.
func markOpen(ws *workspace.Workspace, entries []string) error {
	for _, entry := range entries {
		project, doc, ok := splitArtifact(entry)
		if !ok || doc == "" {
			return fmt.Errorf("invalid --open entry %q (expected project/document)", entry)
		}
		ws.SetOpen(project, doc, true)
	}
	return nil
}

// openStore opens the configured backend. Relative store paths resolve
// against the workspace root.
func openStore(ctx context.Context, sc config.StoreConfig, root string) (state.Store, error) {
	p := sc.Path
	if p != "" && !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	switch sc.Backend {
	case config.BackendMemory:
		return state.NewMemoryStore(), nil
	case config.BackendDisk:
		if p == "" {
			dir, err := state.DefaultDiskDir("diagsync")
			if err != nil {
				return nil, err
			}
			p = dir
		}
		return state.OpenDiskStore(p)
	case config.BackendSQLite:
		if p == "" {
			dir, err := state.DefaultDiskDir("diagsync")
			if err != nil {
				return nil, err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
			p = filepath.Join(dir, "cells.db")
		}
		return state.OpenSQLiteStore(ctx, p)
	default:
		return nil, errors.New("unknown store backend " + sc.Backend)
	}
}

// loadCells reads every persisted cell matching f.
func loadCells(ctx context.Context, store state.Store, f cellFilter) ([]diagfmt.Cell, error) {
	keys, err := store.Keys(ctx)
	if err != nil {
		return nil, err
	}
	cells := make([]diagfmt.Cell, 0, len(keys))
	for _, k := range keys {
		if !f.match(k) {
			continue
		}
		ex, err := store.Load(ctx, k)
		if err != nil {
			return nil, err
		}
		if b, ok := ex.Get(); ok {
			cells = append(cells, diagfmt.Cell{Key: k, Batch: b})
		}
	}
	return cells, nil
}
