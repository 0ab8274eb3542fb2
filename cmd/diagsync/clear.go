package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear [flags]",
	Short: "Delete persisted cells",
	Long: `Delete persisted cells. Without filters every cell is removed. With
--artifact or --analyzer the matching indices are torn down through the
controller, which also reports the removed cells.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().String("analyzer", "", "only cells of this analyzer")
	clearCmd.Flags().String("artifact", "", "only cells of this project or project/document")
}

// dropper is implemented by stores that can wipe themselves in one step.
type dropper interface {
	DropAll() error
}

func runClear(cmd *cobra.Command, args []string) error {
	analyzer, err := cmd.Flags().GetString("analyzer")
	if err != nil {
		return fmt.Errorf("failed to get analyzer flag: %w", err)
	}
	artifact, err := cmd.Flags().GetString("artifact")
	if err != nil {
		return fmt.Errorf("failed to get artifact flag: %w", err)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(cmd)

	ctx := cmd.Context()
	var removed int
	switch {
	case artifact != "":
		project, document, ok := splitArtifact(artifact)
		if !ok {
			return fmt.Errorf("invalid artifact %q", artifact)
		}
		if document == "" {
			gone, err := a.ctrl.RemoveProject(ctx, project)
			if err != nil {
				return err
			}
			removed = len(gone)
		} else {
			gone, err := a.ctrl.RemoveDocument(ctx, project, document)
			if err != nil {
				return err
			}
			removed = len(gone)
		}
	case analyzer != "":
		gone, err := a.ctrl.RemoveAnalyzer(ctx, analyzer)
		if err != nil {
			return err
		}
		removed = len(gone)
	default:
		keys, err := a.store.Keys(ctx)
		if err != nil {
			return err
		}
		if d, ok := a.store.(dropper); ok {
			if err := d.DropAll(); err != nil {
				return err
			}
		} else {
			for _, k := range keys {
				if err := a.store.Delete(ctx, k); err != nil {
					return err
				}
			}
		}
		removed = len(keys)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %d cells\n", removed)
	return nil
}
