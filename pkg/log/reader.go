package log

import (
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events while reading a capture. Zero-valued fields
// match everything, so the zero Filter passes all events through.
type Filter struct {
	// ConnectionID selects one session's events.
	ConnectionID string

	// Direction selects inbound or outbound events.
	Direction *Direction

	// Layer selects one protocol layer.
	Layer *Layer

	// Category selects one event category.
	Category *Category

	// TimeStart drops events before this instant.
	TimeStart *time.Time

	// TimeEnd drops events at or after this instant.
	TimeEnd *time.Time

	// Subsystem selects message events targeting one subsystem, e.g.
	// "stage" or "acquisition".
	Subsystem string
}

// accepts reports whether the event passes every set criterion.
func (f *Filter) accepts(e Event) bool {
	switch {
	case f.ConnectionID != "" && e.ConnectionID != f.ConnectionID:
		return false
	case f.Direction != nil && e.Direction != *f.Direction:
		return false
	case f.Layer != nil && e.Layer != *f.Layer:
		return false
	case f.Category != nil && e.Category != *f.Category:
		return false
	case f.TimeStart != nil && e.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !e.Timestamp.Before(*f.TimeEnd):
		return false
	case f.Subsystem != "" && (e.Message == nil || e.Message.Subsystem != f.Subsystem):
		return false
	}
	return true
}

// Reader streams events out of a capture, applying a Filter as it
// goes. Captures from long sessions can be large, so events are
// decoded one at a time rather than loaded up front.
type Reader struct {
	dec    *cbor.Decoder
	filter Filter
	closer io.Closer
}

// NewReader opens a capture file and reads every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a capture file and reads the events matching
// the filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := NewReaderFrom(f, filter)
	r.closer = f
	return r, nil
}

// NewReaderFrom reads events from an arbitrary stream, such as an
// in-memory capture. Close is a no-op for readers created this way.
func NewReaderFrom(src io.Reader, filter Filter) *Reader {
	return &Reader{dec: NewDecoder(src), filter: filter}
}

// Next returns the next matching event, or io.EOF at the end of the
// capture.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.dec.Decode(&event); err != nil {
			if err == io.EOF {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.accepts(event) {
			return event, nil
		}
	}
}

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
