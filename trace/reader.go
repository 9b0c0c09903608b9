package trace

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Reader decodes a trace: the header first, then events in file order.
// It does not check decision-level nesting or clause grouping.
type Reader struct {
	closer io.Closer
	dec    *decoder
	header Header
}

// Open opens the trace file at path for reading.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open trace: %w", ErrIO, err)
	}

	r, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// NewReader reads the header from r and returns a Reader positioned at the
// first event.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)

	block := make([]byte, HeaderSize)
	if _, err := io.ReadFull(br, block); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("%w: file shorter than the %d byte header", ErrTraceCorrupted, HeaderSize)
		}
		return nil, fmt.Errorf("%w: failed to read header: %w", ErrIO, err)
	}

	var h Header
	if err := h.UnmarshalBinary(block); err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}

	return &Reader{
		dec:    newDecoder(br),
		header: h,
	}, nil
}

// Header returns the decoded header. Check IsPlaceholder before trusting
// RestartCount.
func (r *Reader) Header() Header {
	return r.header
}

// Read returns the next event, or io.EOF after the last one.
func (r *Reader) Read() (Event, error) {
	return r.dec.Decode()
}

// ReadAll reads every remaining event.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		ev, err := r.Read()
		if err == io.EOF {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

// Close closes the underlying file when the Reader was created by Open.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}
