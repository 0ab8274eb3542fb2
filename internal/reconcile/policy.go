package reconcile

import "diagsync/internal/state"

// kindPolicy says how a build event treats the cell of one kind.
type kindPolicy struct {
	// liveOnOpen hands open artifacts back to live analysis instead.
	liveOnOpen bool
	// clears lists the artifact's cells emptied before this kind is written.
	clears []state.Kind
}

// buildPolicies is indexed by the kind a build pass writes. Syntax cells are
// never written from a build, only cleared.
var buildPolicies = [...]kindPolicy{
	state.KindSyntax:   {},
	state.KindDocument: {liveOnOpen: true, clears: []state.Kind{state.KindProject, state.KindSyntax}},
	state.KindProject:  {},
}

// targetKind returns the cell a build pass writes for artifact.
func targetKind(a state.Artifact) state.Kind {
	if a.IsProject() {
		return state.KindProject
	}
	return state.KindDocument
}

func policyFor(k state.Kind) kindPolicy {
	if !k.Valid() {
		panic("reconcile: no build policy for kind " + k.String())
	}
	return buildPolicies[k]
}
