// Package trace records the execution of a conflict-driven search procedure
// into a compact, append-only binary log.
//
// The search procedure calls one Tracer method per event as it happens
// (new decision level, backtrack, branch, assignment, conflict, restart,
// clause learning and unlearning). The Tracer appends a fixed-shape record for
// each call, checks decision-level nesting, and counts restarts. When tracing
// ends the restart count is backpatched into a header that was reserved at the
// start of the file.
//
// # Core Interface
//
// Recorder is the protocol a search procedure drives:
//
//	type Recorder interface {
//	    PushLevel(level int32) error
//	    Backtrack(level int32) error
//	    Branch(lit types.Literal) error
//	    SetVariable(lit types.Literal) error
//	    Conflict(lit types.Literal) error
//	    Restart() error
//	    LearnClause(id int32, clause types.Clause) error
//	    UnlearnClause(id int32) error
//	}
//
// Tracer is the file-backed implementation, NopRecorder discards everything.
//
// # File Format
//
// All integers are 4-byte signed values in native byte order.
//
//	[headerSize int32][restartCount int32][zero padding to a multiple of 5]
//	[tag byte][payload int32]
//	[tag byte][payload int32]
//	...
//
// The header occupies HeaderSize bytes (10 on every platform: two int32
// fields padded to the event width). Tags:
//
//	'<' backtrack to level      '>' push decision level
//	'B' branch literal          '+' assigned literal
//	'C' conflict literal        'R' restart index (0-based)
//	'L' learnt clause id        'S' learnt clause size
//	'x' learnt clause literal   'U' unlearnt clause id
//
// A learnt clause is always written as one contiguous group:
// L id, S k, then exactly k x records.
//
// # Lifecycle
//
//	t, err := trace.Create("out.trace")
//	if err != nil {
//	    return err
//	}
//	defer t.Close() // finalizes if nothing else did
//
//	t.PushLevel(1)
//	t.Branch(types.Pos(5))
//	...
//	return t.Finalize()
//
// Create writes a zero-filled header placeholder. Finalize flushes the event
// stream, reopens the file for read/write, seeks to offset 0 and overwrites
// the placeholder. A file whose header is still all zeros was never finalized.
//
// # Failures
//
// A level transition that breaks nesting, or an invalid literal, is reported
// as ErrProtocolViolation before any byte of that call is written. An I/O
// failure is reported wrapped in ErrIO. Either one aborts the tracer: all
// later calls fail with ErrAborted and Finalize leaves the placeholder header
// in place so readers can tell the trace is incomplete.
//
// # Thread Safety
//
// Events are expected from the single goroutine driving the search, in
// order. Tracer still serializes calls internally so that Finalize can run
// from a signal handling goroutine.
package trace
