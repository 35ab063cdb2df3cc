// Package dispatch drives per-target packaging operations: downloading
// pre-built package bundles, uploading release candidates and promoting
// them to releases.
//
// Targets are processed in declaration order and any failure is fatal;
// no partial-success bookkeeping is kept within one invocation. Publishing
// tools receive a tailored environment overlay and never see mutations of
// the orchestrator's own environment.
package dispatch
