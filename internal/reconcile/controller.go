package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"diagsync/internal/diag"
	"diagsync/internal/notify"
	"diagsync/internal/state"
	"diagsync/internal/trace"
)

// Config wires a Controller to its collaborators.
type Config struct {
	Registry  *state.Registry
	Options   Options
	Workspace Workspace
	Analyzers AnalyzerRegistry
	Scheduler Scheduler
	// Sink receives change notifications; nil discards them.
	Sink notify.Sink
	// Jobs bounds how many projects of one event run at once. Values below
	// 2 process projects sequentially.
	Jobs    int
	Metrics *Metrics
}

// Controller reconciles build and live diagnostics into state cells.
//
// The controller takes no locks on cells. Integrators must not run two
// events that touch the same (analyzer, artifact, kind) cell at the same
// time; serialising ApplyBuild, ApplyLive and the Remove methods per
// workspace is enough.
type Controller struct {
	registry  *state.Registry
	options   Options
	workspace Workspace
	analyzers AnalyzerRegistry
	scheduler Scheduler
	sink      notify.Sink
	jobs      int
	metrics   *Metrics

	descMu      sync.Mutex
	descriptors map[string][]diag.Descriptor
}

// New validates cfg and creates a Controller.
func New(cfg Config) (*Controller, error) {
	switch {
	case cfg.Registry == nil:
		return nil, errors.New("reconcile: config: registry is required")
	case cfg.Options == nil:
		return nil, errors.New("reconcile: config: options are required")
	case cfg.Workspace == nil:
		return nil, errors.New("reconcile: config: workspace is required")
	case cfg.Analyzers == nil:
		return nil, errors.New("reconcile: config: analyzer registry is required")
	case cfg.Scheduler == nil:
		return nil, errors.New("reconcile: config: scheduler is required")
	}
	sink := cfg.Sink
	if sink == nil {
		sink = notify.Discard
	}
	jobs := cfg.Jobs
	if jobs < 1 {
		jobs = 1
	}
	return &Controller{
		registry:    cfg.Registry,
		options:     cfg.Options,
		workspace:   cfg.Workspace,
		analyzers:   cfg.Analyzers,
		scheduler:   cfg.Scheduler,
		sink:        sink,
		jobs:        jobs,
		metrics:     cfg.Metrics,
		descriptors: make(map[string][]diag.Descriptor),
	}, nil
}

// PreferBuild reports whether build diagnostics are accepted at all.
func (c *Controller) PreferBuild() bool {
	return c.options.Bool(OptPreferBuildAlways) || c.options.Bool(OptPreferBuildOverLive)
}

// ApplyBuild reconciles one build event. Unknown projects and documents are
// skipped and listed in the result. The first store failure stops the event
// and is returned; cells persisted before it stay persisted.
func (c *Controller) ApplyBuild(ctx context.Context, ev *BuildEvent) (*Result, error) {
	ctx, span := trace.Start(ctx, trace.ScopeEvent, "build")
	if t := c.metrics.timer(); t != nil {
		defer t.ObserveDuration()
	}

	res := &Result{}
	if ev == nil || !c.PreferBuild() {
		res.Gated = true
		c.metrics.event("gated")
		span.End("gated")
		return res, nil
	}

	projects := ev.Projects()
	results := make([]Result, len(projects))
	errs := make([]error, len(projects))

	if c.jobs < 2 || len(projects) < 2 {
		for i, p := range projects {
			if errs[i] = c.applyProject(ctx, p, ev.Diagnostics[p], &results[i]); errs[i] != nil {
				break
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(c.jobs, len(projects)))
		for i, p := range projects {
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return nil
				default:
				}
				errs[i] = c.applyProject(ctx, p, ev.Diagnostics[p], &results[i])
				return errs[i]
			})
		}
		_ = g.Wait() // the first failure is picked from errs below
	}

	for i := range results {
		res.add(&results[i])
	}
	for _, err := range errs {
		if err != nil {
			c.metrics.event("failed")
			span.Set("persists", strconv.Itoa(res.Persists)).End("error")
			return res, err
		}
	}
	c.metrics.event("applied")
	span.Set("projects", strconv.Itoa(len(projects))).
		Set("persists", strconv.Itoa(res.Persists)).
		End("ok")
	return res, nil
}

// applyProject runs the project cell and then the project's documents in
// workspace order.
func (c *Controller) applyProject(ctx context.Context, project string, items []diag.External, res *Result) error {
	if !c.workspace.HasProject(project) {
		c.skip(ctx, state.ProjectArtifact(project), res)
		return nil
	}

	byDoc := make(map[string][]diag.External)
	for i := range items {
		byDoc[items[i].Document] = append(byDoc[items[i].Document], items[i])
	}
	analyzers := c.analyzers.Analyzers(project)

	if projectItems, ok := byDoc[""]; ok {
		if err := c.applyArtifact(ctx, state.ProjectArtifact(project), analyzers, projectItems, res); err != nil {
			return err
		}
		delete(byDoc, "")
	}
	for _, doc := range c.workspace.Documents(project) {
		docItems, ok := byDoc[doc]
		if !ok {
			continue
		}
		delete(byDoc, doc)
		if err := c.applyArtifact(ctx, state.DocumentArtifact(project, doc), analyzers, docItems, res); err != nil {
			return err
		}
	}

	// whatever is left names documents the workspace does not have
	unknown := make([]string, 0, len(byDoc))
	for doc := range byDoc {
		unknown = append(unknown, doc)
	}
	sort.Strings(unknown)
	for _, doc := range unknown {
		c.skip(ctx, state.DocumentArtifact(project, doc), res)
	}
	return nil
}

func (c *Controller) skip(ctx context.Context, a state.Artifact, res *Result) {
	res.Skipped = append(res.Skipped, a)
	c.metrics.skip()
	trace.Mark(ctx, trace.ScopeArtifact, "skip", ErrMissingArtifact.Error(), "artifact", a.String())
}

// applyArtifact is one artifact pass: every analyzer of the project shapes
// the artifact's diagnostics with one shared seen set.
func (c *Controller) applyArtifact(ctx context.Context, a state.Artifact, analyzers []string, items []diag.External, res *Result) error {
	cellCtx, span := trace.Start(ctx, trace.ScopeArtifact, "artifact")
	span.Set("artifact", a.String())
	kind := targetKind(a)
	policy := policyFor(kind)

	if policy.liveOnOpen && c.options.Bool(OptPreferLiveOnOpenFiles) && c.workspace.IsOpen(a) {
		c.scheduler.Reanalyze(a, true)
		res.Reanalyzed = append(res.Reanalyzed, a)
		c.metrics.reanalyzed()
		trace.Mark(cellCtx, trace.ScopeCell, "override", "", "artifact", a.String())
		span.End("live")
		return nil
	}

	semantic, err := c.workspace.DependentSemanticVersion(cellCtx, a)
	if err != nil {
		span.End("error")
		return fmt.Errorf("reconcile: semantic version of %s: %w", a, err)
	}

	seen := acquireSeen()
	defer releaseSeen(seen)

	lookup := diag.NewLookup(items)
	for _, analyzer := range analyzers {
		ix := c.registry.Attach(analyzer, a)
		for _, k := range policy.clears {
			if err := c.persistAndNotify(cellCtx, ix.Cell(k), state.Batch{}, notify.OriginBuild, "clear", res); err != nil {
				span.End("error")
				return err
			}
		}

		next := Convert(lookup, c.descriptorsFor(analyzer), seen)
		cell := ix.Cell(kind)
		existing, err := cell.Existing(cellCtx)
		if err != nil {
			c.metrics.storeFailure()
			span.End("error")
			return err
		}
		b := state.Batch{
			TextVersion:     state.DefaultStamp,
			SemanticVersion: semantic,
			Items:           Merge(next, existing),
		}
		if err := c.persistAndNotify(cellCtx, cell, b, notify.OriginBuild, "persist", res); err != nil {
			span.End("error")
			return err
		}
	}

	excluded := unclaimed(lookup, seen)
	res.Excluded += excluded
	c.metrics.exclude(excluded)
	span.Set("analyzers", strconv.Itoa(len(analyzers))).End("ok")
	return nil
}

// persistAndNotify writes b to cell and publishes it once the write is done.
func (c *Controller) persistAndNotify(ctx context.Context, cell *state.Cell, b state.Batch, origin notify.Origin, step string, res *Result) error {
	if b.Items == nil {
		b.Items = []diag.Record{}
	}
	if err := cell.Persist(ctx, b); err != nil {
		c.metrics.storeFailure()
		return err
	}
	key := cell.Key()
	res.Persists++
	c.metrics.persist(key.Kind.String(), origin.String())
	trace.Mark(ctx, trace.ScopeCell, step, "",
		"analyzer", key.Analyzer, "kind", key.Kind.String(), "items", strconv.Itoa(len(b.Items)))

	c.publish(key, b.Items, origin)
	res.Notifications++
	return nil
}

func (c *Controller) publish(key state.Key, items []diag.Record, origin notify.Origin) {
	c.sink.Publish(notify.Event{
		Kind:     key.Kind,
		Artifact: key.Artifact,
		Analyzer: key.Analyzer,
		Scope:    notify.Scope{Workspace: c.workspace.Name(), Project: key.Artifact.Project},
		Origin:   origin,
		Items:    items,
	})
	c.metrics.notify(key.Kind.String())
}

// descriptorsFor returns the analyzer's descriptors, asking the registry once
// per analyzer until InvalidateDescriptors.
func (c *Controller) descriptorsFor(analyzer string) []diag.Descriptor {
	c.descMu.Lock()
	defer c.descMu.Unlock()
	if d, ok := c.descriptors[analyzer]; ok {
		return d
	}
	d := c.analyzers.Descriptors(analyzer)
	c.descriptors[analyzer] = d
	return d
}

// InvalidateDescriptors drops the cached descriptors of analyzer, or of
// every analyzer when analyzer is empty.
func (c *Controller) InvalidateDescriptors(analyzer string) {
	c.descMu.Lock()
	defer c.descMu.Unlock()
	if analyzer == "" {
		clear(c.descriptors)
		return
	}
	delete(c.descriptors, analyzer)
}
