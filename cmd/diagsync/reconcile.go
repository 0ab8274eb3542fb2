package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"diagsync/internal/buildreport"
	"diagsync/internal/diag"
	"diagsync/internal/diagfmt"
	"diagsync/internal/notify"
	"diagsync/internal/reconcile"
	"diagsync/internal/state"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [flags] <report.json|report.toml|report.msgpack>",
	Short: "Apply one build report to the store",
	Long: `Reconcile a build report against the persisted cells. Build diagnostics are
converted through the analyzers' descriptors, merged with hidden findings
already stored and persisted per cell.`,
	Args: cobra.ExactArgs(1),
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().String("format", "pretty", "output format for changed cells (pretty|json|none)")
	reconcileCmd.Flags().Bool("diff", false, "print a unified diff of every changed cell")
	reconcileCmd.Flags().Bool("events", false, "print every change notification")
	reconcileCmd.Flags().Int("max-diagnostics", 0, "maximum records per cell in json output (0 = all)")
	reconcileCmd.Flags().Bool("fail-on-error", false, "exit with an error when a changed cell holds error diagnostics")
}

// errCellsHoldErrors is returned under --fail-on-error.
var errCellsHoldErrors = errors.New("changed cells hold error diagnostics")

func runReconcile(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	format = strings.ToLower(format)
	switch format {
	case "pretty", "json", "none":
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, json or none)", format)
	}
	showDiff, err := cmd.Flags().GetBool("diff")
	if err != nil {
		return fmt.Errorf("failed to get diff flag: %w", err)
	}
	showEvents, err := cmd.Flags().GetBool("events")
	if err != nil {
		return fmt.Errorf("failed to get events flag: %w", err)
	}
	maxDiagnostics, err := cmd.Flags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	failOnError, err := cmd.Flags().GetBool("fail-on-error")
	if err != nil {
		return fmt.Errorf("failed to get fail-on-error flag: %w", err)
	}
	colorize, err := useColor(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(cmd)

	var rep *buildreport.Report
	if err := a.timer.Measure("read report", func() error {
		rep, err = buildreport.ReadFile(args[0])
		return err
	}); err != nil {
		return err
	}
	if rep.Workspace != "" && rep.Workspace != a.ws.Name() {
		return fmt.Errorf("%s: report is for workspace %q, manifest declares %q", args[0], rep.Workspace, a.ws.Name())
	}

	var before map[state.Key][]diag.Record
	if showDiff {
		if before, err = snapshot(cmd, a); err != nil {
			return err
		}
	}

	var res *reconcile.Result
	if err := a.timer.Measure("apply build", func() error {
		res, err = a.ctrl.ApplyBuild(cmd.Context(), rep.Event())
		return err
	}); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	events := a.events.Events()
	if showEvents {
		for _, ev := range events {
			printEvent(out, ev)
		}
	}
	changed, err := changedCells(cmd.Context(), a.store, events)
	if err != nil {
		return err
	}

	if showDiff {
		for _, c := range changed {
			if err := diagfmt.Diff(out, c.Key.String(), before[c.Key], c.Batch.Items, diagfmt.DiffOpts{}); err != nil {
				return err
			}
		}
	}
	switch format {
	case "pretty":
		if err := diagfmt.Pretty(out, changed, diagfmt.PrettyOpts{Color: colorize}); err != nil {
			return err
		}
	case "json":
		if err := diagfmt.JSON(out, changed, diagfmt.JSONOpts{Max: maxDiagnostics, Indent: true}); err != nil {
			return err
		}
	}
	if format != "json" {
		printResult(out, args[0], res)
		if err := diagfmt.Summary(out, changed, colorize); err != nil {
			return err
		}
	}
	if failOnError {
		return failingCells(changed)
	}
	return nil
}

// failingCells names the cells holding error diagnostics, wrapping
// errCellsHoldErrors, or returns nil.
func failingCells(cells []diagfmt.Cell) error {
	var keys []string
	for _, c := range cells {
		if diag.HasErrors(c.Batch.Items) {
			keys = append(keys, c.Key.String())
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", errCellsHoldErrors, strings.Join(keys, ", "))
}

// snapshot reads the current content of every cell before an event runs.
func snapshot(cmd *cobra.Command, a *app) (map[state.Key][]diag.Record, error) {
	cells, err := loadCells(cmd.Context(), a.store, cellFilter{})
	if err != nil {
		return nil, err
	}
	out := make(map[state.Key][]diag.Record, len(cells))
	for _, c := range cells {
		out[c.Key] = c.Batch.Items
	}
	return out, nil
}

// changedCells loads the current content of every cell the notifications
// touched, ordered by key.
func changedCells(ctx context.Context, store state.Store, events []notify.Event) ([]diagfmt.Cell, error) {
	seen := make(map[state.Key]bool, len(events))
	cells := make([]diagfmt.Cell, 0, len(events))
	for _, ev := range events {
		k := ev.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		ex, err := store.Load(ctx, k)
		if err != nil {
			return nil, err
		}
		b, _ := ex.Get()
		cells = append(cells, diagfmt.Cell{Key: k, Batch: b})
	}
	diagfmt.SortCells(cells)
	return cells, nil
}
