package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/blockberries/satrace/types"
)

const (
	traceFilePerm  = 0644
	traceDirPerm   = 0755
	defaultBufSize = 64 * 1024 // 64KB buffer
)

// Tracer is the file-backed Recorder. It owns the trace file from Create
// until Finalize.
type Tracer struct {
	mu   sync.Mutex
	path string
	file *os.File
	buf  *bufio.Writer
	enc  *encoder

	bufSize int
	sync    bool

	// Decision level cursor, used only to validate '<' and '>'.
	level    int32
	restarts int32
	events   int64

	finalized bool
	// Sticky cause of an abort. Once set nothing more is appended and the
	// header is never backpatched.
	err error

	logger  *zap.Logger
	metrics Metrics
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Tracer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(t *Tracer) {
		if m != nil {
			t.metrics = m
		}
	}
}

// WithBufferSize sets the size of the append buffer. Values <= 0 keep the default.
func WithBufferSize(n int) Option {
	return func(t *Tracer) {
		if n > 0 {
			t.bufSize = n
		}
	}
}

// WithSync makes Finalize fsync the event stream before and the header after
// backpatching.
func WithSync(enabled bool) Option {
	return func(t *Tracer) {
		t.sync = enabled
	}
}

// Create creates (or truncates) the trace file at path and reserves the
// header. Events can be recorded as soon as it returns.
func Create(path string, opts ...Option) (*Tracer, error) {
	t := &Tracer{
		path:    path,
		bufSize: defaultBufSize,
		logger:  zap.NewNop(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(t)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, traceDirPerm); err != nil {
			return nil, fmt.Errorf("%w: failed to create trace directory: %w", ErrIO, err)
		}
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND, traceFilePerm)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create trace file: %w", ErrIO, err)
	}

	t.file = file
	t.buf = bufio.NewWriterSize(file, t.bufSize)
	t.enc = newEncoder(t.buf)

	if err := t.reserveHeader(); err != nil {
		file.Close()
		return nil, err
	}

	t.logger.Debug("trace created",
		zap.String("path", path),
		zap.Int32("header_size", HeaderSize))
	return t, nil
}

// reserveHeader writes the zero placeholder so events start at HeaderSize.
func (t *Tracer) reserveHeader() error {
	if _, err := t.buf.Write(make([]byte, HeaderSize)); err != nil {
		return fmt.Errorf("%w: failed to reserve header: %w", ErrIO, err)
	}
	return nil
}

// Path returns the trace file path.
func (t *Tracer) Path() string {
	return t.path
}

// Level returns the current decision level.
func (t *Tracer) Level() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.level
}

// Restarts returns the number of restarts recorded so far.
func (t *Tracer) Restarts() int32 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.restarts
}

// Events returns the number of events recorded so far.
func (t *Tracer) Events() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.events
}

// Err returns the cause of an abort, or nil.
func (t *Tracer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// PushLevel records '>' level. level must be exactly one above the current level.
func (t *Tracer) PushLevel(level int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkWritable(); err != nil {
		return err
	}
	if t.level == math.MaxInt32 || level != t.level+1 {
		return t.abort(&LevelError{Op: "push", Current: t.level, Requested: level})
	}
	if err := t.write(TagPushLevel, level); err != nil {
		return err
	}
	t.setLevel(level)
	return nil
}

// Backtrack records '<' level. level must be below the current level, or 0.
// Backtracking to 0 while already at 0 is allowed.
func (t *Tracer) Backtrack(level int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkWritable(); err != nil {
		return err
	}
	if level < 0 || (level >= t.level && level != 0) {
		return t.abort(&LevelError{Op: "backtrack", Current: t.level, Requested: level})
	}
	if err := t.write(TagBacktrack, level); err != nil {
		return err
	}
	t.setLevel(level)
	return nil
}

// Branch records 'B' for a decision literal.
func (t *Tracer) Branch(lit types.Literal) error {
	return t.recordLiteral(TagBranch, lit)
}

// SetVariable records '+' for an implied assignment.
func (t *Tracer) SetVariable(lit types.Literal) error {
	return t.recordLiteral(TagSetVariable, lit)
}

// Conflict records 'C' for a literal involved in a conflict.
func (t *Tracer) Conflict(lit types.Literal) error {
	return t.recordLiteral(TagConflict, lit)
}

// Restart records 'R' with the current restart index, then increments it.
func (t *Tracer) Restart() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkWritable(); err != nil {
		return err
	}
	if t.restarts == math.MaxInt32 {
		return t.abort(fmt.Errorf("%w: restart count exceeds %d", ErrProtocolViolation, int32(math.MaxInt32)))
	}
	if err := t.write(TagRestart, t.restarts); err != nil {
		return err
	}
	t.restarts++
	return nil
}

// LearnClause records L id, S len(clause) and one x per literal, in the
// given order. The group is validated completely before anything is written.
func (t *Tracer) LearnClause(id int32, clause types.Clause) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkWritable(); err != nil {
		return err
	}
	if len(clause) > math.MaxInt32 {
		return t.abort(fmt.Errorf("%w: learnt clause %d has %d literals", ErrProtocolViolation, id, len(clause)))
	}
	if err := clause.Validate(); err != nil {
		return t.abort(fmt.Errorf("%w: learnt clause %d: %w", ErrProtocolViolation, id, err))
	}

	group := make([]Event, 0, len(clause)+2)
	group = append(group,
		Event{Tag: TagLearnClause, Payload: id},
		Event{Tag: TagClauseSize, Payload: int32(len(clause))},
	)
	for _, lit := range clause {
		group = append(group, Event{Tag: TagClauseLiteral, Payload: lit.Encode()})
	}
	return t.writeGroup(group)
}

// UnlearnClause records 'U' id. Whether id was ever learnt is the caller's concern.
func (t *Tracer) UnlearnClause(id int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkWritable(); err != nil {
		return err
	}
	return t.write(TagUnlearnClause, id)
}

func (t *Tracer) recordLiteral(tag Tag, lit types.Literal) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkWritable(); err != nil {
		return err
	}
	if err := lit.Validate(); err != nil {
		return t.abort(fmt.Errorf("%w: %s: %w", ErrProtocolViolation, tag.Name(), err))
	}
	return t.write(tag, lit.Encode())
}

// checkWritable assumes the lock is held
func (t *Tracer) checkWritable() error {
	if t.finalized {
		return ErrTracerClosed
	}
	if t.err != nil {
		return fmt.Errorf("%w: %w", ErrAborted, t.err)
	}
	return nil
}

func (t *Tracer) write(tag Tag, payload int32) error {
	if _, err := t.enc.Encode(tag, payload); err != nil {
		return t.abort(fmt.Errorf("%w: failed to append %s event: %w", ErrIO, tag.Name(), err))
	}
	t.events++
	t.metrics.EventRecorded(tag)
	return nil
}

func (t *Tracer) writeGroup(group []Event) error {
	if _, err := t.enc.EncodeGroup(group); err != nil {
		return t.abort(fmt.Errorf("%w: failed to append clause group: %w", ErrIO, err))
	}
	t.events += int64(len(group))
	for _, ev := range group {
		t.metrics.EventRecorded(ev.Tag)
	}
	return nil
}

func (t *Tracer) setLevel(level int32) {
	t.level = level
	t.metrics.LevelChanged(level)
}

// abort records the first failure and returns err
func (t *Tracer) abort(err error) error {
	if t.err == nil {
		t.err = err
		t.logger.Error("trace aborted",
			zap.String("path", t.path),
			zap.Int64("events", t.events),
			zap.Error(err))
	}
	return err
}

// Finalize ends tracing: it flushes the event stream, closes it, reopens the
// file for read/write and overwrites the header placeholder with the final
// restart count. It must be called exactly once; a second call returns
// ErrAlreadyFinalized.
//
// If the tracer was aborted the file is closed without backpatching, so the
// header stays all zeros, and the abort cause is returned.
func (t *Tracer) Finalize() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.finalized {
		return ErrAlreadyFinalized
	}
	t.finalized = true

	if t.err != nil {
		// Records before the failure are whole events; keep what we can.
		flushErr := t.buf.Flush()
		closeErr := t.file.Close()
		t.metrics.Finalized(t.restarts, true)
		return errors.Join(fmt.Errorf("%w: header not written", ErrAborted), t.err, flushErr, closeErr)
	}

	if err := t.closeStream(); err != nil {
		t.err = err
		t.metrics.Finalized(t.restarts, true)
		return err
	}
	if err := t.backpatchHeader(); err != nil {
		t.err = err
		t.metrics.Finalized(t.restarts, true)
		return err
	}

	t.metrics.Finalized(t.restarts, false)
	t.logger.Debug("trace finalized",
		zap.String("path", t.path),
		zap.Int64("events", t.events),
		zap.Int32("restarts", t.restarts))
	return nil
}

// Close finalizes the tracer unless that already happened. It is meant for
// defer statements on paths where Finalize may not have run.
func (t *Tracer) Close() error {
	err := t.Finalize()
	if errors.Is(err, ErrAlreadyFinalized) {
		return nil
	}
	return err
}

// closeStream flushes and closes the append handle
func (t *Tracer) closeStream() error {
	if err := t.buf.Flush(); err != nil {
		t.file.Close()
		return fmt.Errorf("%w: failed to flush trace: %w", ErrIO, err)
	}
	if t.sync {
		if err := t.file.Sync(); err != nil {
			t.file.Close()
			return fmt.Errorf("%w: failed to sync trace: %w", ErrIO, err)
		}
	}
	if err := t.file.Close(); err != nil {
		return fmt.Errorf("%w: failed to close trace: %w", ErrIO, err)
	}
	return nil
}

// backpatchHeader reopens the trace and overwrites the reserved block at offset 0.
func (t *Tracer) backpatchHeader() (err error) {
	data, err := NewHeader(t.restarts).MarshalBinary()
	if err != nil {
		return err
	}

	file, err := os.OpenFile(t.path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("%w: failed to reopen trace for header: %w", ErrIO, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: failed to close trace after header: %w", ErrIO, cerr)
		}
	}()

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: failed to seek to header: %w", ErrIO, err)
	}
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("%w: failed to write header: %w", ErrIO, err)
	}

	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("%w: failed to read header position: %w", ErrIO, err)
	}
	if pos > int64(HeaderSize) {
		return fmt.Errorf("%w: wrote %d bytes into %d reserved", ErrHeaderOverflow, pos, HeaderSize)
	}

	if t.sync {
		if err := file.Sync(); err != nil {
			return fmt.Errorf("%w: failed to sync header: %w", ErrIO, err)
		}
	}
	return nil
}

// Ensure Tracer implements Recorder
var _ Recorder = (*Tracer)(nil)
