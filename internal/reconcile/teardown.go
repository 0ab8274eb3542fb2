package reconcile

import (
	"context"

	"diagsync/internal/notify"
	"diagsync/internal/state"
	"diagsync/internal/trace"
)

// RemoveDocument tears down every analyzer's cells for one document.
func (c *Controller) RemoveDocument(ctx context.Context, project, document string) ([]state.Key, error) {
	target := state.DocumentArtifact(project, document)
	return c.teardown(ctx, "remove-document", func(_ string, a state.Artifact) bool {
		return a == target
	})
}

// RemoveProject tears down the cells of a project and all its documents.
func (c *Controller) RemoveProject(ctx context.Context, project string) ([]state.Key, error) {
	return c.teardown(ctx, "remove-project", func(_ string, a state.Artifact) bool {
		return a.Project == project
	})
}

// RemoveAnalyzer tears down every cell of analyzer and forgets its
// descriptors.
func (c *Controller) RemoveAnalyzer(ctx context.Context, analyzer string) ([]state.Key, error) {
	c.InvalidateDescriptors(analyzer)
	return c.teardown(ctx, "remove-analyzer", func(name string, _ state.Artifact) bool {
		return name == analyzer
	})
}

// teardown deletes the matching cells and publishes an empty batch for each
// one that held data. On a store failure the keys removed so far are
// returned with the error and have already been published.
func (c *Controller) teardown(ctx context.Context, name string, match func(string, state.Artifact) bool) ([]state.Key, error) {
	ctx, span := trace.Start(ctx, trace.ScopeEvent, name)
	removed, err := c.registry.Teardown(ctx, match)
	for _, k := range removed {
		trace.Mark(ctx, trace.ScopeCell, "removed", "", "cell", k.String())
		c.publish(k, nil, notify.OriginRemoved)
	}
	if err != nil {
		c.metrics.storeFailure()
		span.End("error")
		return removed, err
	}
	span.End("ok")
	return removed, nil
}
