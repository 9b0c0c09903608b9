package trace

import "github.com/blockberries/satrace/types"

// Recorder is the event protocol a search procedure drives, one call per
// observed event, in the order the events happen.
type Recorder interface {
	// PushLevel opens decision level `level`, which must be current+1.
	PushLevel(level int32) error

	// Backtrack returns to `level`, which must be below the current level
	// or 0.
	Backtrack(level int32) error

	// Branch records a decision on lit.
	Branch(lit types.Literal) error

	// SetVariable records a non-decision assignment.
	SetVariable(lit types.Literal) error

	// Conflict records a conflict touching lit.
	Conflict(lit types.Literal) error

	// Restart records a restart with the next 0-based restart index.
	Restart() error

	// LearnClause records a learnt clause as one L/S/x group.
	LearnClause(id int32, clause types.Clause) error

	// UnlearnClause records that a learnt clause was discarded.
	UnlearnClause(id int32) error
}

// Metrics receives notifications about recorded events.
type Metrics interface {
	EventRecorded(tag Tag)
	LevelChanged(level int32)
	Finalized(restarts int32, aborted bool)
}

// NopRecorder is a no-op recorder for hosts running without tracing.
type NopRecorder struct{}

func (NopRecorder) PushLevel(int32) error                 { return nil }
func (NopRecorder) Backtrack(int32) error                 { return nil }
func (NopRecorder) Branch(types.Literal) error            { return nil }
func (NopRecorder) SetVariable(types.Literal) error       { return nil }
func (NopRecorder) Conflict(types.Literal) error          { return nil }
func (NopRecorder) Restart() error                        { return nil }
func (NopRecorder) LearnClause(int32, types.Clause) error { return nil }
func (NopRecorder) UnlearnClause(int32) error             { return nil }

// Ensure NopRecorder implements Recorder
var _ Recorder = NopRecorder{}

type nopMetrics struct{}

func (nopMetrics) EventRecorded(Tag)     {}
func (nopMetrics) LevelChanged(int32)    {}
func (nopMetrics) Finalized(int32, bool) {}
