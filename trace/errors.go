package trace

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrProtocolViolation = errors.New("trace protocol violation")
	ErrIO                = errors.New("trace I/O failure")
	ErrAborted           = errors.New("trace aborted")
	ErrAlreadyFinalized  = errors.New("trace already finalized")
	ErrTracerClosed      = errors.New("tracer is closed")
	ErrHeaderOverflow    = errors.New("trace header exceeds reserved size")
	ErrTraceCorrupted    = errors.New("trace is corrupted")
)

// LevelError describes a decision level transition that breaks nesting.
type LevelError struct {
	Op        string
	Current   int32
	Requested int32
}

func (e *LevelError) Error() string {
	return fmt.Sprintf("%s: %s to level %d from level %d",
		ErrProtocolViolation, e.Op, e.Requested, e.Current)
}

// Unwrap allows errors.Is(err, ErrProtocolViolation).
func (e *LevelError) Unwrap() error {
	return ErrProtocolViolation
}
