package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"diagsync/internal/buildreport"
	"diagsync/internal/diag"
	"diagsync/internal/reconcile"
	"diagsync/internal/state"
	"diagsync/internal/workspace"
)

var liveCmd = &cobra.Command{
	Use:   "live [flags] <report>",
	Short: "Record a live analysis result for one cell",
	Long: `Record the diagnostics of one artifact from a report as a live result. The
cell is replaced entirely and stamped with the given text version, so a
repeated run with the same versions is a no-op.`,
	Args: cobra.ExactArgs(1),
	RunE: runLive,
}

func init() {
	liveCmd.Flags().String("analyzer", "", "analyzer that produced the result (required)")
	liveCmd.Flags().String("artifact", "", "project or project/document the result is for (required)")
	liveCmd.Flags().String("kind", "document", "cell kind (syntax|document|project)")
	liveCmd.Flags().Uint64("text-version", 0, "text version of the analysed content (0 = now)")
	_ = liveCmd.MarkFlagRequired("analyzer")
	_ = liveCmd.MarkFlagRequired("artifact")
}

func runLive(cmd *cobra.Command, args []string) error {
	analyzer, err := cmd.Flags().GetString("analyzer")
	if err != nil {
		return fmt.Errorf("failed to get analyzer flag: %w", err)
	}
	artifactStr, err := cmd.Flags().GetString("artifact")
	if err != nil {
		return fmt.Errorf("failed to get artifact flag: %w", err)
	}
	project, document, ok := splitArtifact(artifactStr)
	if !ok {
		return fmt.Errorf("invalid artifact %q", artifactStr)
	}
	kindStr, err := cmd.Flags().GetString("kind")
	if err != nil {
		return fmt.Errorf("failed to get kind flag: %w", err)
	}
	kind, err := state.ParseKind(kindStr)
	if err != nil {
		return err
	}
	textVersion, err := cmd.Flags().GetUint64("text-version")
	if err != nil {
		return fmt.Errorf("failed to get text-version flag: %w", err)
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close(cmd)

	rep, err := buildreport.ReadFile(args[0])
	if err != nil {
		return err
	}

	artifact := state.DocumentArtifact(project, document)
	lookup := diag.NewLookup(diagnosticsFor(rep, artifact))
	items := reconcile.Convert(lookup, a.ws.Descriptors(analyzer), nil)

	semantic, err := a.ws.DependentSemanticVersion(cmd.Context(), artifact)
	if err != nil {
		return err
	}
	text := state.Stamp(textVersion)
	if text.IsDefault() {
		text = state.StampFromTime(time.Now())
	}

	var persisted bool
	if err := a.timer.Measure("apply live", func() error {
		persisted, err = a.ctrl.ApplyLive(cmd.Context(), &reconcile.LiveResult{
			Analyzer:        analyzer,
			Artifact:        artifact,
			Kind:            kind,
			TextVersion:     text,
			SemanticVersion: semantic,
			Items:           items,
		})
		return err
	}); err != nil {
		return err
	}

	key := state.Key{Analyzer: analyzer, Artifact: artifact, Kind: kind}
	if !persisted {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: up to date (text=%s sem=%s)\n", key, text, semantic)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d items (text=%s sem=%s)\n", key, len(items), text, semantic)
	return nil
}

// diagnosticsFor picks the report's diagnostics owned by artifact.
func diagnosticsFor(rep *buildreport.Report, artifact state.Artifact) []diag.External {
	var out []diag.External
	for _, d := range rep.Diagnostics {
		if d.Project == artifact.Project && workspace.CanonicalPath(d.Document) == artifact.Document {
			out = append(out, d)
		}
	}
	return out
}
