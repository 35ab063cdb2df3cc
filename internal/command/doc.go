// Package command wraps external program execution behind a small Runner
// interface so release workflows can sequence tool invocations and tests can
// record them without spawning processes.
//
// Environment tailoring is expressed as per-invocation overlays; the global
// process environment is never mutated.
package command
