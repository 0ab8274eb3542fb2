package reconcile

import (
	"context"
	"fmt"
	"slices"
	"strconv"

	"diagsync/internal/diag"
	"diagsync/internal/notify"
	"diagsync/internal/state"
	"diagsync/internal/trace"
)

// ApplyLive persists a batch computed by live analysis. The batch replaces
// the cell outright, hidden records included. A result stamped with the
// versions the cell already holds is dropped and ApplyLive reports false.
func (c *Controller) ApplyLive(ctx context.Context, r *LiveResult) (bool, error) {
	if !r.Kind.Valid() {
		return false, fmt.Errorf("%w: %d", ErrInvalidKind, r.Kind)
	}
	if !c.hasArtifact(r.Artifact) {
		return false, fmt.Errorf("%w: %s", ErrMissingArtifact, r.Artifact)
	}
	if !slices.Contains(c.analyzers.Analyzers(r.Artifact.Project), r.Analyzer) {
		return false, fmt.Errorf("%w: %s on %s", ErrNoAnalyzer, r.Analyzer, r.Artifact.Project)
	}

	ctx, span := trace.Start(ctx, trace.ScopeEvent, "live")
	span.Set("artifact", r.Artifact.String()).Set("kind", r.Kind.String())

	cell := c.registry.Attach(r.Analyzer, r.Artifact).Cell(r.Kind)
	existing, err := cell.Existing(ctx)
	if err != nil {
		c.metrics.storeFailure()
		span.End("error")
		return false, err
	}
	if existing.UpToDate(r.TextVersion, r.SemanticVersion) {
		span.End("up-to-date")
		return false, nil
	}

	items := make([]diag.Record, len(r.Items))
	copy(items, r.Items)
	b := state.Batch{TextVersion: r.TextVersion, SemanticVersion: r.SemanticVersion, Items: items}
	var res Result
	if err := c.persistAndNotify(ctx, cell, b, notify.OriginLive, "persist", &res); err != nil {
		span.End("error")
		return false, err
	}
	span.Set("items", strconv.Itoa(len(items))).End("ok")
	return true, nil
}

func (c *Controller) hasArtifact(a state.Artifact) bool {
	if !c.workspace.HasProject(a.Project) {
		return false
	}
	if a.IsProject() {
		return true
	}
	return slices.Contains(c.workspace.Documents(a.Project), a.Document)
}
