package trace

import (
	"encoding/binary"
	"fmt"
)

// Header is the fixed block at offset 0 of a trace.
type Header struct {
	HeaderSize   int32
	RestartCount int32
}

// HeaderSize is the number of bytes reserved for the header: the encoded
// size of Header rounded up to a multiple of EventSize.
var HeaderSize = reservedHeaderSize()

func reservedHeaderSize() int32 {
	size := int32(binary.Size(Header{}))
	if rem := size % EventSize; rem != 0 {
		size += EventSize - rem
	}
	return size
}

// NewHeader returns the final header for a trace with the given restart count.
func NewHeader(restarts int32) Header {
	return Header{HeaderSize: HeaderSize, RestartCount: restarts}
}

// IsPlaceholder reports whether h is the zero block written at creation,
// i.e. the trace was never finalized.
func (h Header) IsPlaceholder() bool {
	return h.HeaderSize == 0 && h.RestartCount == 0
}

// MarshalBinary encodes the header into a block of exactly HeaderSize bytes,
// padding included.
func (h Header) MarshalBinary() ([]byte, error) {
	if fields := int32(binary.Size(h)); fields > HeaderSize {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrHeaderOverflow, fields, HeaderSize)
	}
	buf := make([]byte, HeaderSize)
	binary.NativeEndian.PutUint32(buf[0:4], uint32(h.HeaderSize))
	binary.NativeEndian.PutUint32(buf[4:8], uint32(h.RestartCount))
	return buf, nil
}

// UnmarshalBinary decodes a header block. data must hold at least the two
// fields; padding bytes are not inspected.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("%w: header needs 8 bytes, got %d", ErrTraceCorrupted, len(data))
	}
	h.HeaderSize = int32(binary.NativeEndian.Uint32(data[0:4]))
	h.RestartCount = int32(binary.NativeEndian.Uint32(data[4:8]))
	return nil
}

// Validate checks a decoded header against the layout this package writes.
func (h Header) Validate() error {
	if h.IsPlaceholder() {
		return nil
	}
	if h.HeaderSize != HeaderSize {
		return fmt.Errorf("%w: header size %d, expected %d", ErrTraceCorrupted, h.HeaderSize, HeaderSize)
	}
	if h.RestartCount < 0 {
		return fmt.Errorf("%w: negative restart count %d", ErrTraceCorrupted, h.RestartCount)
	}
	return nil
}
