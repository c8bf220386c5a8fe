// Package progress defines the diagnostic/progress port used by the core
// packages (dzfmt, codec, model, pipeline, volume). None of those packages
// log or print on their own; they emit events through an Observer, and
// callers decide whether those events end up on a terminal, in a log file,
// or nowhere at all.
package progress

// Observer receives progress and diagnostic events from one operation
// (an unpack or a pack run). Implementations must be safe for concurrent
// use: Inc, Info, and Warn may be called from any worker goroutine.
type Observer interface {
	// Start announces the total number of work items (chunks, typically)
	// about to be processed.
	Start(total int)
	// Inc advances the running count by n.
	Inc(n int)
	// Info reports a non-warning, human-readable status message.
	Info(msg string)
	// Warn reports a tolerated anomaly (a legacy fixup, a skipped file).
	Warn(msg string)
	// Finish marks the operation complete with a final summary message.
	Finish(msg string)
}
