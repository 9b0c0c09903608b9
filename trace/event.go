package trace

import (
	"encoding/binary"
	"fmt"
	"io"
)

// EventSize is the encoded size of one event: a tag byte and an int32 payload.
const EventSize = 1 + 4

// Tag labels an event record.
type Tag byte

const (
	TagBacktrack     Tag = '<'
	TagPushLevel     Tag = '>'
	TagBranch        Tag = 'B'
	TagSetVariable   Tag = '+'
	TagConflict      Tag = 'C'
	TagRestart       Tag = 'R'
	TagLearnClause   Tag = 'L'
	TagClauseSize    Tag = 'S'
	TagClauseLiteral Tag = 'x'
	TagUnlearnClause Tag = 'U'
)

// Tags lists every tag in the vocabulary.
var Tags = []Tag{
	TagBacktrack, TagPushLevel, TagBranch, TagSetVariable, TagConflict,
	TagRestart, TagLearnClause, TagClauseSize, TagClauseLiteral, TagUnlearnClause,
}

// Valid reports whether t belongs to the vocabulary.
func (t Tag) Valid() bool {
	for _, known := range Tags {
		if t == known {
			return true
		}
	}
	return false
}

// Name returns a human readable name for the tag.
func (t Tag) Name() string {
	switch t {
	case TagBacktrack:
		return "backtrack"
	case TagPushLevel:
		return "push-level"
	case TagBranch:
		return "branch"
	case TagSetVariable:
		return "set-variable"
	case TagConflict:
		return "conflict"
	case TagRestart:
		return "restart"
	case TagLearnClause:
		return "learn-clause"
	case TagClauseSize:
		return "clause-size"
	case TagClauseLiteral:
		return "clause-literal"
	case TagUnlearnClause:
		return "unlearn-clause"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(t))
	}
}

func (t Tag) String() string {
	return string(rune(t))
}

// Event is a single trace record.
type Event struct {
	Tag     Tag
	Payload int32
}

func (e Event) String() string {
	return fmt.Sprintf("%c %d", byte(e.Tag), e.Payload)
}

// appendEvent appends the wire form of an event to dst.
func appendEvent(dst []byte, tag Tag, payload int32) []byte {
	dst = append(dst, byte(tag))
	return binary.NativeEndian.AppendUint32(dst, uint32(payload))
}

// encoder writes events to the trace stream
type encoder struct {
	w       io.Writer
	scratch []byte
}

func newEncoder(w io.Writer) *encoder {
	return &encoder{
		w:       w,
		scratch: make([]byte, 0, 16*EventSize),
	}
}

// Encode writes one event and returns the number of bytes written.
func (e *encoder) Encode(tag Tag, payload int32) (int, error) {
	e.scratch = appendEvent(e.scratch[:0], tag, payload)
	return e.w.Write(e.scratch)
}

// EncodeGroup writes several events with a single Write call so a group is
// never split by a partial failure on our side.
func (e *encoder) EncodeGroup(events []Event) (int, error) {
	e.scratch = e.scratch[:0]
	for _, ev := range events {
		e.scratch = appendEvent(e.scratch, ev.Tag, ev.Payload)
	}
	return e.w.Write(e.scratch)
}

// decoder reads events from the trace stream
type decoder struct {
	r   io.Reader
	buf [EventSize]byte
}

func newDecoder(r io.Reader) *decoder {
	return &decoder{r: r}
}

// Decode reads the next event. It returns io.EOF at a clean end of stream.
func (d *decoder) Decode() (Event, error) {
	n, err := io.ReadFull(d.r, d.buf[:])
	if err == io.EOF {
		return Event{}, io.EOF
	}
	if err == io.ErrUnexpectedEOF {
		return Event{}, fmt.Errorf("%w: truncated event (%d of %d bytes)", ErrTraceCorrupted, n, EventSize)
	}
	if err != nil {
		return Event{}, err
	}

	ev := Event{
		Tag:     Tag(d.buf[0]),
		Payload: int32(binary.NativeEndian.Uint32(d.buf[1:])),
	}
	if !ev.Tag.Valid() {
		return Event{}, fmt.Errorf("%w: unknown tag 0x%02x", ErrTraceCorrupted, d.buf[0])
	}
	return ev, nil
}
