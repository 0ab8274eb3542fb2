// Package trace follows a reconciliation pass from the build event down to
// every cell it persists. It is how a stuck store, an unexpected open
// document override or a skipped artifact is diagnosed after the fact.
//
// A tracer travels in the context. Spans nest through the context too, so
// code deep in a pass only needs ctx:
//
//	ctx = trace.WithTracer(ctx, trace.NewStream(os.Stderr, trace.LevelDebug, trace.FormatText))
//	ctx, span := trace.Start(ctx, trace.ScopeEvent, "build")
//	defer span.End("ok")
//	trace.Mark(ctx, trace.ScopeCell, "persist", "", "kind", "document")
//
// Levels, from quiet to verbose: off, error, event (one span per build
// event, live result or teardown), artifact (plus one span per project or
// document pass) and debug (plus cell-level marks for persist, clear and
// skip).
//
// Tracers: Nop, Stream (text or NDJSON to a writer), Ring (last N events in
// memory, dumped on exit) and Tee (fan-out).
package trace
