package topology

import (
	"io"

	"github.com/driftloom/evbuf/internal/buffer"
	"github.com/driftloom/evbuf/internal/vfs"
)

// Options adds batching-specific configuration on top of buffer.Config.
type Options struct {
	buffer.Config
	// MaxBatchEvents caps how many events ReadStream.Next coalesces into
	// one array. Zero selects DefaultMaxBatchEvents.
	MaxBatchEvents int
}

// Open opens a buffer directory and wraps it in the batching topology.
func Open(fsys vfs.FS, dir string, opts Options) (*WriteSink, *ReadStream, *Acker, buffer.LedgerView, io.Closer, error) {
	w, r, a, view, closer, err := buffer.Open(fsys, dir, opts.Config)
	if err != nil {
		return nil, nil, nil, buffer.LedgerView{}, nil, err
	}

	sink := newWriteSink(w)
	stream := newReadStream(r, opts.Config.Logger, opts.MaxBatchEvents)
	acker := newAcker(a)

	return sink, stream, acker, view, closer, nil
}
