package telemetry

import (
	"github.com/mpapenbr/lapboard/log"
	"github.com/mpapenbr/lapboard/pkg/model"
)

// Segment is a read-only view on an externally owned memory block
type Segment interface {
	// Window returns the current bytes of the segment.
	// The returned slice is only valid until the next call.
	Window() []byte
	Close() error
}

// staleSegment is implemented by segments that notice when the producer
// replaced the underlying memory block
type staleSegment interface {
	Stale() bool
}

// Opener opens the segment identified by name expecting at least size bytes
type Opener func(name string, size int) (Segment, error)

type Reader struct {
	name   string
	layout Layout
	open   Opener
	seg    Segment
	buf    []byte
	l      *log.Logger
}

type ReaderOption func(r *Reader)

func WithLayout(layout Layout) ReaderOption {
	return func(r *Reader) {
		r.layout = layout
	}
}

func WithSegmentName(name string) ReaderOption {
	return func(r *Reader) {
		r.name = name
	}
}

func WithOpener(open Opener) ReaderOption {
	return func(r *Reader) {
		r.open = open
	}
}

func WithLogger(l *log.Logger) ReaderOption {
	return func(r *Reader) {
		r.l = l
	}
}

func NewReader(opts ...ReaderOption) (*Reader, error) {
	r := &Reader{
		name:   DefaultSegmentName,
		layout: DefaultLayout(),
		open:   OpenSegment,
		l:      log.Default().Named("telemetry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.layout.Validate(); err != nil {
		return nil, err
	}
	r.buf = make([]byte, r.layout.RecordSize)
	return r, nil
}

// Read decodes the current record of the segment.
// The segment is opened on demand, so a missing segment is retried on every call.
// A replaced segment is closed and opened again.
func (r *Reader) Read() (model.Frame, error) {
	if st, ok := r.seg.(staleSegment); ok && st.Stale() {
		r.l.Info("segment replaced, reopening", log.String("name", r.name))
		if err := r.seg.Close(); err != nil {
			r.l.Warn("could not close segment", log.ErrorField(err))
		}
		r.seg = nil
	}
	if r.seg == nil {
		seg, err := r.open(r.name, r.layout.RecordSize)
		if err != nil {
			return model.Frame{}, err
		}
		r.l.Info("segment opened", log.String("name", r.name))
		r.seg = seg
	}
	n := copy(r.buf, r.seg.Window())
	return Decode(r.layout, r.buf[:n])
}

func (r *Reader) Layout() Layout {
	return r.layout
}

func (r *Reader) Close() error {
	if r.seg == nil {
		return nil
	}
	err := r.seg.Close()
	r.seg = nil
	return err
}
