package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"diagsync/internal/diagfmt"
)

var showCmd = &cobra.Command{
	Use:   "show [flags]",
	Short: "Print persisted diagnostic cells",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

func init() {
	addFilterFlags(showCmd)
	showCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	showCmd.Flags().Bool("empty", false, "include cells persisted with no records")
	showCmd.Flags().Bool("props", false, "print record properties")
	showCmd.Flags().Bool("basename", false, "print file names without directories")
	showCmd.Flags().Int("width", 0, "truncate messages to this many columns (0 = no limit)")
	showCmd.Flags().Int("max-diagnostics", 0, "maximum records per cell in json output (0 = all)")
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	filter, err := filterFromFlags(cmd)
	if err != nil {
		return err
	}
	opts, err := prettyOptsFromFlags(cmd)
	if err != nil {
		return err
	}
	maxDiagnostics, err := cmd.Flags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(cmd)

	cells, err := loadCells(cmd.Context(), a.store, filter)
	if err != nil {
		return err
	}
	diagfmt.SortCells(cells)

	out := cmd.OutOrStdout()
	switch strings.ToLower(format) {
	case "pretty":
		if err := diagfmt.Pretty(out, cells, opts); err != nil {
			return err
		}
		return diagfmt.Summary(out, cells, opts.Color)
	case "json":
		return diagfmt.JSON(out, cells, diagfmt.JSONOpts{Max: maxDiagnostics, Indent: true})
	default:
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
}

func prettyOptsFromFlags(cmd *cobra.Command) (diagfmt.PrettyOpts, error) {
	var opts diagfmt.PrettyOpts
	var err error
	if opts.Color, err = useColor(cmd); err != nil {
		return opts, err
	}
	if opts.ShowEmpty, err = cmd.Flags().GetBool("empty"); err != nil {
		return opts, fmt.Errorf("failed to get empty flag: %w", err)
	}
	if opts.ShowProps, err = cmd.Flags().GetBool("props"); err != nil {
		return opts, fmt.Errorf("failed to get props flag: %w", err)
	}
	basename, err := cmd.Flags().GetBool("basename")
	if err != nil {
		return opts, fmt.Errorf("failed to get basename flag: %w", err)
	}
	if basename {
		opts.PathMode = diagfmt.PathModeBasename
	}
	if opts.Width, err = cmd.Flags().GetInt("width"); err != nil {
		return opts, fmt.Errorf("failed to get width flag: %w", err)
	}
	return opts, nil
}
