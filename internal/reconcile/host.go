package reconcile

import (
	"context"

	"diagsync/internal/diag"
	"diagsync/internal/state"
)

// Option keys read by the controller.
const (
	OptPreferBuildAlways     = "prefer_build_always"
	OptPreferBuildOverLive   = "prefer_build_over_live"
	OptPreferLiveOnOpenFiles = "prefer_live_on_open_files"
)

// Options is workspace-wide option storage. Bool must return the registered
// default when a key is unset; a key without a default is a programming
// error and implementations panic.
type Options interface {
	Bool(key string) bool
}

// Workspace is the host's view of projects, documents and editor state.
type Workspace interface {
	// Name identifies the workspace in notifications.
	Name() string
	HasProject(project string) bool
	// Documents lists a project's documents in the host's natural order.
	Documents(project string) []string
	IsOpen(artifact state.Artifact) bool
	// DependentSemanticVersion returns the semantic version of artifact and
	// everything it depends on. It may block.
	DependentSemanticVersion(ctx context.Context, artifact state.Artifact) (state.Stamp, error)
}

// Scheduler accepts requests to re-run live analysis.
type Scheduler interface {
	Reanalyze(artifact state.Artifact, highPriority bool)
}

// AnalyzerRegistry supplies the analyzers attached to a project and the
// descriptors each analyzer declares.
type AnalyzerRegistry interface {
	// Analyzers lists analyzer names for project in a stable order.
	Analyzers(project string) []string
	// Descriptors lists the analyzer's descriptors in declared order.
	Descriptors(analyzer string) []diag.Descriptor
}
