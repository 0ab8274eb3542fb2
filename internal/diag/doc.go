// Package diag defines the diagnostic model shared by the state store, the
// reconciliation controller and the CLI.
//
// # Data model
//
// Record is the persisted finding. It carries the analyzer-declared metadata
// (category, title, description, help link, default severity, enablement,
// custom tags) next to the per-finding data (message, effective severity,
// warning level, properties, locations, suppression). Records are values and
// are never mutated once built.
//
// External is what an out-of-band build reports for one finding: the id, the
// message, the severity it was reported at and where. Builds do not know the
// descriptor metadata, so Descriptor.Shape fills it in.
//
// Descriptor is one entry of an analyzer's declared id set.
//
// Lookup groups a build batch by id so conversion can fetch all findings of
// a descriptor in one map access.
//
// # Severity
//
// Severity has four tiers: Hidden, Info, Warning, Error. Hidden findings are
// never shown to users but are kept for tooling (suppressions, code fix
// eligibility); the merge step in internal/reconcile treats them specially.
//
// Package diag performs no IO and no formatting. Rendering lives in
// internal/diagfmt.
package diag
