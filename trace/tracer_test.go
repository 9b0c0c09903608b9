package trace

import (
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/satrace/types"
)

func newTestTracer(t *testing.T, opts ...Option) (*Tracer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.trace")
	tr, err := Create(path, opts...)
	require.NoError(t, err)
	return tr, path
}

func readTrace(t *testing.T, path string) (Header, []Event) {
	t.Helper()
	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	events, err := r.ReadAll()
	require.NoError(t, err)
	return r.Header(), events
}

func TestTracerEndToEnd(t *testing.T) {
	tr, path := newTestTracer(t)

	require.NoError(t, tr.PushLevel(1))
	require.NoError(t, tr.Branch(types.Pos(5)))
	require.NoError(t, tr.SetVariable(types.Neg(3)))
	require.NoError(t, tr.Conflict(types.Pos(5)))
	require.NoError(t, tr.Backtrack(0))
	require.NoError(t, tr.Restart())
	require.NoError(t, tr.Finalize())

	header, events := readTrace(t, path)
	assert.Equal(t, Header{HeaderSize: HeaderSize, RestartCount: 1}, header)

	want := []Event{
		{TagPushLevel, 1},
		{TagBranch, 5},
		{TagSetVariable, -3},
		{TagConflict, 5},
		{TagBacktrack, 0},
		{TagRestart, 0},
	}
	assert.Equal(t, want, events)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(HeaderSize)+6*EventSize, info.Size())
}

func TestTracerEmptyTrace(t *testing.T) {
	tr, path := newTestTracer(t)
	require.NoError(t, tr.Finalize())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, int(HeaderSize))

	header, events := readTrace(t, path)
	assert.Equal(t, HeaderSize, header.HeaderSize)
	assert.Zero(t, header.RestartCount)
	assert.Empty(t, events)
}

func TestTracerRestartCount(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100} {
		tr, path := newTestTracer(t)
		for i := 0; i < n; i++ {
			require.NoError(t, tr.Restart())
		}
		assert.Equal(t, int32(n), tr.Restarts())
		require.NoError(t, tr.Finalize())

		header, events := readTrace(t, path)
		assert.Equal(t, int32(n), header.RestartCount)
		require.Len(t, events, n)
		for i, ev := range events {
			assert.Equal(t, Event{TagRestart, int32(i)}, ev)
		}
	}
}

func TestTracerLevelCursor(t *testing.T) {
	tr, _ := newTestTracer(t)
	defer tr.Close()

	steps := []struct {
		push  bool
		level int32
	}{
		{true, 1}, {true, 2}, {true, 3},
		{false, 1},
		{true, 2},
		{false, 0},
		{false, 0}, // root backtrack at root is allowed
		{true, 1},
	}
	for _, s := range steps {
		if s.push {
			require.NoError(t, tr.PushLevel(s.level))
		} else {
			require.NoError(t, tr.Backtrack(s.level))
		}
		assert.Equal(t, s.level, tr.Level())
	}
}

func TestTracerProtocolViolations(t *testing.T) {
	tests := []struct {
		name string
		run  func(tr *Tracer) error
	}{
		{"push skips a level", func(tr *Tracer) error { return tr.PushLevel(3) }},
		{"push same level", func(tr *Tracer) error { return tr.PushLevel(1) }},
		{"backtrack to current", func(tr *Tracer) error { return tr.Backtrack(1) }},
		{"backtrack upward", func(tr *Tracer) error { return tr.Backtrack(2) }},
		{"backtrack negative", func(tr *Tracer) error { return tr.Backtrack(-1) }},
		{"branch on variable 0", func(tr *Tracer) error { return tr.Branch(types.Literal{}) }},
		{"learn clause with variable 0", func(tr *Tracer) error {
			return tr.LearnClause(4, types.Clause{types.Pos(1), {Var: 0}})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, path := newTestTracer(t)
			require.NoError(t, tr.PushLevel(1))

			err := tt.run(tr)
			require.ErrorIs(t, err, ErrProtocolViolation)
			assert.Equal(t, int64(1), tr.Events(), "nothing may be written for a rejected call")

			// The tracer is now aborted.
			require.ErrorIs(t, tr.Restart(), ErrAborted)

			err = tr.Finalize()
			require.ErrorIs(t, err, ErrAborted)
			require.ErrorIs(t, err, ErrProtocolViolation)

			header, events := readTrace(t, path)
			assert.True(t, header.IsPlaceholder())
			assert.Equal(t, []Event{{TagPushLevel, 1}}, events)
		})
	}
}

func TestTracerLevelError(t *testing.T) {
	tr, _ := newTestTracer(t)
	defer tr.Close()

	err := tr.PushLevel(2)
	var levelErr *LevelError
	require.True(t, errors.As(err, &levelErr))
	assert.Equal(t, "push", levelErr.Op)
	assert.Equal(t, int32(0), levelErr.Current)
	assert.Equal(t, int32(2), levelErr.Requested)
	assert.Contains(t, err.Error(), "push to level 2 from level 0")
}

func TestTracerLearnClause(t *testing.T) {
	tr, path := newTestTracer(t)

	clause := types.Clause{types.Neg(4), types.Pos(2), types.Neg(4), types.Pos(9)}
	require.NoError(t, tr.LearnClause(17, clause))
	require.NoError(t, tr.LearnClause(18, types.Clause{}))
	require.NoError(t, tr.UnlearnClause(17))
	require.NoError(t, tr.UnlearnClause(99)) // never learnt; not our concern
	require.NoError(t, tr.Finalize())

	_, events := readTrace(t, path)
	want := []Event{
		{TagLearnClause, 17},
		{TagClauseSize, 4},
		{TagClauseLiteral, -4},
		{TagClauseLiteral, 2},
		{TagClauseLiteral, -4},
		{TagClauseLiteral, 9},
		{TagLearnClause, 18},
		{TagClauseSize, 0},
		{TagUnlearnClause, 17},
		{TagUnlearnClause, 99},
	}
	assert.Equal(t, want, events)
}

func TestTracerLifecycle(t *testing.T) {
	tr, path := newTestTracer(t)
	require.NoError(t, tr.Restart())
	require.NoError(t, tr.Finalize())

	require.ErrorIs(t, tr.Finalize(), ErrAlreadyFinalized)
	require.NoError(t, tr.Close())
	require.ErrorIs(t, tr.Restart(), ErrTracerClosed)
	require.ErrorIs(t, tr.PushLevel(1), ErrTracerClosed)

	header, events := readTrace(t, path)
	assert.Equal(t, int32(1), header.RestartCount)
	assert.Len(t, events, 1)
}

func TestTracerCloseFinalizes(t *testing.T) {
	tr, path := newTestTracer(t, WithSync(true), WithBufferSize(EventSize))
	require.NoError(t, tr.Restart())
	require.NoError(t, tr.Restart())
	require.NoError(t, tr.Close())

	header, _ := readTrace(t, path)
	assert.Equal(t, int32(2), header.RestartCount)
}

func TestTracerCreateTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "run.trace")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, make([]byte, 1000), 0644))

	tr, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, tr.Finalize())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(HeaderSize), info.Size())
}

var errDiskFull = errors.New("disk full")

// quotaWriter forwards whole writes until its byte budget would be exceeded,
// then fails without writing anything.
type quotaWriter struct {
	w         io.Writer
	remaining int
}

func (q *quotaWriter) Write(p []byte) (int, error) {
	if len(p) > q.remaining {
		return 0, errDiskFull
	}
	q.remaining -= len(p)
	return q.w.Write(p)
}

func TestTracerWriteFailureAborts(t *testing.T) {
	tests := []struct {
		name       string
		fail       func(tr *Tracer) error
		wantEvents []Event
	}{
		{
			name: "branch",
			fail: func(tr *Tracer) error {
				if err := tr.Branch(types.Pos(2)); err != nil {
					return err
				}
				return tr.Branch(types.Neg(3))
			},
			wantEvents: []Event{{TagPushLevel, 1}, {TagBranch, 2}},
		},
		{
			name: "learn clause group",
			fail: func(tr *Tracer) error {
				return tr.LearnClause(9, types.Clause{types.Pos(1), types.Neg(2), types.Pos(3)})
			},
			wantEvents: []Event{{TagPushLevel, 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, path := newTestTracer(t)
			tr.enc = newEncoder(&quotaWriter{w: tr.buf, remaining: 2 * EventSize})

			require.NoError(t, tr.PushLevel(1))

			err := tt.fail(tr)
			require.ErrorIs(t, err, ErrIO)
			require.ErrorIs(t, err, errDiskFull)
			assert.Equal(t, int64(len(tt.wantEvents)), tr.Events())

			require.ErrorIs(t, tr.Restart(), ErrAborted)
			require.ErrorIs(t, tr.PushLevel(2), ErrAborted)

			err = tr.Finalize()
			require.ErrorIs(t, err, ErrAborted)
			require.ErrorIs(t, err, ErrIO)
			require.ErrorIs(t, err, errDiskFull)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(data), int(HeaderSize))
			assert.Equal(t, make([]byte, HeaderSize), data[:HeaderSize])

			header, events := readTrace(t, path)
			assert.True(t, header.IsPlaceholder())
			assert.Equal(t, tt.wantEvents, events)
		})
	}
}

func TestTracerRestartOverflow(t *testing.T) {
	tr, path := newTestTracer(t)
	tr.restarts = math.MaxInt32

	err := tr.Restart()
	require.ErrorIs(t, err, ErrProtocolViolation)
	assert.Equal(t, int32(math.MaxInt32), tr.Restarts())
	assert.Zero(t, tr.Events())

	require.ErrorIs(t, tr.Finalize(), ErrAborted)

	header, events := readTrace(t, path)
	assert.True(t, header.IsPlaceholder())
	assert.Empty(t, events)
}

func TestCreateFailsOnDirectory(t *testing.T) {
	_, err := Create(t.TempDir())
	require.ErrorIs(t, err, ErrIO)
}

type recordingMetrics struct {
	tags      []Tag
	levels    []int32
	restarts  int32
	aborted   bool
	finalized int
}

func (m *recordingMetrics) EventRecorded(tag Tag) { m.tags = append(m.tags, tag) }
func (m *recordingMetrics) LevelChanged(l int32)  { m.levels = append(m.levels, l) }
func (m *recordingMetrics) Finalized(r int32, a bool) {
	m.restarts, m.aborted = r, a
	m.finalized++
}

func TestTracerMetrics(t *testing.T) {
	m := &recordingMetrics{}
	tr, _ := newTestTracer(t, WithMetrics(m))

	require.NoError(t, tr.PushLevel(1))
	require.NoError(t, tr.LearnClause(1, types.Clause{types.Pos(1)}))
	require.NoError(t, tr.Backtrack(0))
	require.NoError(t, tr.Restart())
	require.NoError(t, tr.Finalize())

	assert.Equal(t, []Tag{TagPushLevel, TagLearnClause, TagClauseSize, TagClauseLiteral, TagBacktrack, TagRestart}, m.tags)
	assert.Equal(t, []int32{1, 0}, m.levels)
	assert.Equal(t, int32(1), m.restarts)
	assert.False(t, m.aborted)
	assert.Equal(t, 1, m.finalized)
}

func TestNopRecorder(t *testing.T) {
	var r Recorder = NopRecorder{}
	assert.NoError(t, r.PushLevel(5))
	assert.NoError(t, r.Backtrack(9))
	assert.NoError(t, r.LearnClause(1, nil))
}
