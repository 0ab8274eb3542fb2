// Package reconcile decides the next persisted content of every
// (analyzer, artifact, kind) cell when a build completes or a live analysis
// pass finishes.
//
// A build event goes through a policy gate, then for each project the
// project cell is reconciled before the project's documents, in the order
// the workspace enumerates them. Per document the controller may hand the
// document back to live analysis (open files), otherwise it clears the
// document's project and syntax cells, shapes the build diagnostics with the
// analyzer's descriptors, merges them with the persisted batch, persists and
// notifies.
package reconcile
