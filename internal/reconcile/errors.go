package reconcile

import "errors"

var (
	// ErrMissingArtifact reports a project or document unknown to the
	// workspace. Build events skip such entries; ApplyLive returns it.
	ErrMissingArtifact = errors.New("reconcile: artifact not in workspace")

	// ErrNoAnalyzer reports a live result for an analyzer the registry does
	// not attach to the project.
	ErrNoAnalyzer = errors.New("reconcile: analyzer not attached to project")

	// ErrInvalidKind reports a live result for an undeclared state kind.
	ErrInvalidKind = errors.New("reconcile: invalid state kind")
)
