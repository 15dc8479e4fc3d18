// Package topology adapts the raw Writer/Reader/Acker triad in
// internal/buffer into a batching pipeline: a WriteSink that tolerates
// per-event admission failures without aborting a whole batch, and a
// ReadStream that coalesces individually-framed records into arrays so a
// downstream consumer processes many events per call instead of one.
package topology

import (
	"context"
	"errors"

	"github.com/driftloom/evbuf/event"
	"github.com/driftloom/evbuf/internal/buffer"
	"github.com/driftloom/evbuf/internal/logging"
	"github.com/driftloom/evbuf/internal/testutil"
)

// DefaultMaxBatchEvents caps how many events ReadStream.Next coalesces
// into one array before flushing, even if more are immediately available.
const DefaultMaxBatchEvents = 4096

// SendResult reports how a batch was admitted.
type SendResult struct {
	// Written is the number of events durably appended.
	Written int
	// Dropped is the number of events rejected by the overflow policy
	// (ErrFull) rather than a hard failure.
	Dropped int
}

// WriteSink wraps a Writer so a caller can push a batch of events without
// having an overflow rejection of one event abort the rest of the batch.
type WriteSink struct {
	w *buffer.Writer
}

func newWriteSink(w *buffer.Writer) *WriteSink {
	return &WriteSink{w: w}
}

// Send writes each event in order. An ErrFull admission failure is
// recorded in the result and does not stop the batch; any other error
// aborts immediately and is returned alongside the partial result.
func (s *WriteSink) Send(ctx context.Context, events []event.Event) (SendResult, error) {
	var res SendResult
	for _, e := range events {
		err := s.w.Write(ctx, e)
		switch {
		case err == nil:
			res.Written++
		case errors.Is(err, buffer.ErrFull):
			res.Dropped++
		default:
			return res, err
		}
	}
	return res, nil
}

// Flush forwards to the underlying Writer's Flush.
func (s *WriteSink) Flush() error { return s.w.Flush() }

// Close forwards to the underlying Writer's Close.
func (s *WriteSink) Close() error { return s.w.Close() }

// ReadStream pulls events from a Reader and groups them into batches: it
// blocks for the first event of a batch, then keeps pulling
// non-blockingly until either the batch reaches maxBatch events or the
// Reader has no more data immediately available, at which point the
// partial batch is flushed to the caller.
type ReadStream struct {
	r          *buffer.Reader
	logger     logging.Logger
	maxBatch   int
	pendingErr error
}

func newReadStream(r *buffer.Reader, logger logging.Logger, maxBatch int) *ReadStream {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchEvents
	}
	return &ReadStream{r: r, logger: logging.OrDefault(logger), maxBatch: maxBatch}
}

// Next blocks until at least one event is available, then greedily
// coalesces more without blocking. It returns a nil, empty batch (with a
// nil error) once the underlying buffer is drained after the Writer is
// closed. An error encountered after a partial batch has already been
// collected is stashed and returned on the following call, so the
// caller still gets to process what was already pulled.
func (s *ReadStream) Next(ctx context.Context) ([]event.Event, error) {
	if s.pendingErr != nil {
		err := s.pendingErr
		s.pendingErr = nil
		s.logger.Debugf(logging.NSTopology + "returning stashed read error from a prior partial batch: " + err.Error())
		return nil, err
	}

	_ = testutil.SP(testutil.SPTopologyBatchPull)

	first, ok, err := s.r.Next(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil // drained
	}

	batch := make([]event.Event, 0, s.maxBatch)
	batch = append(batch, first)

	for len(batch) < s.maxBatch {
		ev, ok, wouldBlock, err := s.r.TryNext(ctx)
		if err != nil {
			s.pendingErr = err
			break
		}
		if wouldBlock || !ok {
			_ = testutil.SP(testutil.SPTopologyBatchFlush)
			break
		}
		batch = append(batch, ev)
	}

	_ = testutil.SP(testutil.SPTopologyBatchComplete)
	return batch, nil
}

// Close forwards to the underlying Reader's Close.
func (s *ReadStream) Close() error { return s.r.Close() }

// Acker wraps an Acker to acknowledge a whole batch at once.
type Acker struct {
	a *buffer.Acker
}

func newAcker(a *buffer.Acker) *Acker {
	return &Acker{a: a}
}

// AcknowledgeBatch acknowledges the oldest n still-pending records,
// where n is normally len(batch) for a batch just processed by a sink
// downstream of ReadStream.Next.
func (a *Acker) AcknowledgeBatch(n int) {
	a.a.AcknowledgeRecords(uint64(n))
}
