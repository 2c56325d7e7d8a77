// Package console is the state core of the operator console. It owns the
// selection tree, the entity stores, the review run orchestrator and the
// filtered projections, and knows nothing about rendering.
//
// The core is a single-threaded state machine. Session.Update applies one
// message and returns the commands to run next. Commands perform network
// calls off the loop and report back with a message. Bubble Tea drives the
// core in the TUI; Run drives it for CLI commands.
package console
