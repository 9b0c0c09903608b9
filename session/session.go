// Package session ties a trace and a snapshot of the same run together and
// guarantees the trace header is finalized on every exit path.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/blockberries/satrace/snapshot"
	"github.com/blockberries/satrace/trace"
	"github.com/blockberries/satrace/types"
)

// Session owns one Tracer and the snapshot target of one run.
type Session struct {
	cfg    *Config
	tracer *trace.Tracer
	logger *zap.Logger

	mu              sync.Mutex
	snapshotWritten bool

	closeOnce sync.Once
	closeErr  error
}

// Option configures a Session.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	metrics trace.Metrics
}

// WithLogger sets the session logger. The tracer logs under the "trace" name.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics passes a metrics sink to the tracer.
func WithMetrics(m trace.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// Open validates cfg and creates the trace file.
func Open(cfg *Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}

	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}

	tracer, err := trace.Create(cfg.TracePath,
		trace.WithLogger(o.logger.Named("trace")),
		trace.WithMetrics(o.metrics),
		trace.WithBufferSize(cfg.BufferSize),
		trace.WithSync(cfg.Sync),
	)
	if err != nil {
		return nil, err
	}

	o.logger.Info("writing trace", zap.String("path", cfg.TracePath))
	if cfg.SnapshotPath != "" {
		o.logger.Info("writing simplified problem", zap.String("path", cfg.SnapshotPath))
	}

	return &Session{
		cfg:    cfg,
		tracer: tracer,
		logger: o.logger,
	}, nil
}

// Recorder returns the event protocol the search procedure should drive.
func (s *Session) Recorder() trace.Recorder {
	return s.tracer
}

// Tracer returns the underlying tracer.
func (s *Session) Tracer() *trace.Tracer {
	return s.tracer
}

// Config returns the session configuration.
func (s *Session) Config() *Config {
	return s.cfg
}

// WriteSnapshot writes the simplified instance. It may be called at most once
// and is independent of the trace state.
func (s *Session) WriteSnapshot(inst types.Instance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.SnapshotPath == "" {
		return ErrSnapshotDisabled
	}
	if s.snapshotWritten {
		return ErrSnapshotWritten
	}
	s.snapshotWritten = true

	if err := snapshot.Write(s.cfg.SnapshotPath, s.cfg.Source, inst); err != nil {
		return err
	}
	s.logger.Info("simplified problem written",
		zap.String("path", s.cfg.SnapshotPath),
		zap.Int("variables", inst.NumVars),
		zap.Int("clauses", inst.NumClauses()))
	return nil
}

// Close finalizes the trace. Only the first call does any work; every call
// returns the result of that first finalization.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.tracer.Close()
		if s.closeErr != nil {
			s.logger.Error("trace not finalized", zap.String("path", s.cfg.TracePath), zap.Error(s.closeErr))
			return
		}
		s.logger.Info("trace finalized",
			zap.String("path", s.cfg.TracePath),
			zap.Int64("events", s.tracer.Events()),
			zap.Int32("restarts", s.tracer.Restarts()))
	})
	return s.closeErr
}

// Run opens a session, calls fn, and finalizes the trace when fn returns,
// fails, or panics. If ctx is cancelled first (for example by an interrupt
// signal) the trace is finalized right away; later recorder calls from fn
// then fail with trace.ErrTracerClosed.
func Run(ctx context.Context, cfg *Config, fn func(context.Context, *Session) error, opts ...Option) (err error) {
	s, err := Open(cfg, opts...)
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() {
		s.logger.Warn("interrupted, finalizing trace", zap.Error(context.Cause(ctx)))
		s.Close()
	})

	defer func() {
		stop()
		if r := recover(); r != nil {
			s.Close()
			panic(r)
		}
		err = errors.Join(err, s.Close())
		if cause := context.Cause(ctx); cause != nil {
			err = errors.Join(cause, err)
		}
	}()

	return fn(ctx, s)
}
