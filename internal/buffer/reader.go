package buffer

import (
	"context"
	"sync"

	"github.com/driftloom/evbuf/event"
	"github.com/driftloom/evbuf/internal/checksum"
	"github.com/driftloom/evbuf/internal/ledger"
	"github.com/driftloom/evbuf/internal/logging"
	"github.com/driftloom/evbuf/internal/record"
	"github.com/driftloom/evbuf/internal/segment"
	"github.com/driftloom/evbuf/internal/testutil"
	"github.com/driftloom/evbuf/internal/vfs"
)

// Reader owns the active read file. It delivers records strictly in id
// order, crosses segment boundaries as it drains them, and deletes
// fully-acked segments behind it.
type Reader struct {
	dir    string
	fsys   vfs.FS
	ledger *ledger.Ledger
	logger logging.Logger

	notify   <-chan struct{} // woken by Writer: "new data in the active segment"
	writer   *Writer         // consulted for IsClosed() to detect Drained

	mu           sync.Mutex
	active       *segment.DataFile
	activeFileID uint64
	nextRecordID uint64

	delivered *deliveredQueue // FIFO of delivered-but-unacked (id, size)
	csType    checksum.Type
}

func newReader(dir string, fsys vfs.FS, l *ledger.Ledger, notify <-chan struct{}, w *Writer, delivered *deliveredQueue, cfg Config) (*Reader, error) {
	st := l.Snapshot()
	active, err := openReadSegmentSkipping(fsys, dir, st.ReaderFileID, st.ReaderNextRecordID, cfg.ChecksumAlgorithm)
	if err != nil {
		return nil, err
	}
	return &Reader{
		dir:          dir,
		fsys:         fsys,
		ledger:       l,
		logger:       logging.OrDefault(cfg.Logger),
		notify:       notify,
		writer:       w,
		active:       active,
		activeFileID: st.ReaderFileID,
		nextRecordID: st.ReaderNextRecordID,
		delivered:    delivered,
		csType:       cfg.ChecksumAlgorithm,
	}, nil
}

// openReadSegmentSkipping opens fileID for reading and discards records
// whose id < fromRecordID by counting from the segment's first_record_id,
// so a restart resumes exactly where the ledger left off.
func openReadSegmentSkipping(fsys vfs.FS, dir string, fileID, fromRecordID uint64, csType checksum.Type) (*segment.DataFile, error) {
	path := segmentPath(dir, fileID)
	d, err := segment.OpenForRead(fsys, path, fileID, csType)
	if err != nil {
		return nil, err
	}
	id := d.FirstRecordID()
	for id < fromRecordID {
		frame, err := d.ReadNext()
		if err != nil {
			return nil, err
		}
		if frame == nil {
			break // segment drained before reaching fromRecordID: nothing to skip
		}
		id++
	}
	return d, nil
}

// Next returns the next Event in delivery order, or ok=false once the
// buffer is fully drained after Close. It blocks (respecting ctx) when
// caught up with an open Writer.
func (r *Reader) Next(ctx context.Context) (event.Event, bool, error) {
	_ = testutil.SP(testutil.SPReaderNext)

	for {
		ev, ok, wouldBlock, err := r.step()
		if err != nil || !wouldBlock {
			return ev, ok, err
		}

		select {
		case <-ctx.Done():
			return event.Event{}, false, ErrCancelled
		case <-r.notify:
			// loop and retry the read
		}
	}
}

// TryNext is Next's non-blocking counterpart: it makes exactly one
// attempt to produce an Event and reports wouldBlock=true instead of
// waiting when the active segment has no more data yet and the Writer is
// still open. Callers that want to batch several records without ever
// suspending on an empty buffer use this in a loop.
func (r *Reader) TryNext(ctx context.Context) (ev event.Event, ok bool, wouldBlock bool, err error) {
	_ = testutil.SP(testutil.SPReaderNext)
	return r.step()
}

// step makes one non-blocking attempt to advance the read position. It
// only returns wouldBlock=true when the reader has caught up with an open
// Writer's active segment and no corrupt-frame skipping or segment
// crossing applies.
func (r *Reader) step() (event.Event, bool, bool, error) {
	for {
		r.mu.Lock()
		frame, err := r.active.ReadNext()
		r.mu.Unlock()
		if err != nil {
			return event.Event{}, false, false, err
		}

		if frame != nil {
			ev, _, derr := record.Decode(frame, r.csType)
			if derr != nil {
				// Corrupt frame mid-segment: only this record is skipped
				// (its id is consumed); reading continues with the next
				// frame of the same segment, so the rest of the segment is
				// not discarded.
				r.logger.Warnf(logging.NSReader+"corrupt record in segment %d, skipping it: %v", r.activeFileID, derr)
				r.advanceLedgerPastCorruption()
				continue
			}

			recordID := r.nextRecordID
			r.nextRecordID++
			r.ledger.RecordRead(r.activeFileID, r.nextRecordID)
			r.delivered.push(recordID, uint64(len(frame)))

			_ = testutil.SP(testutil.SPReaderNextComplete)
			return ev, true, false, nil
		}

		// Clean EOF of the active segment.
		_ = testutil.SP(testutil.SPReaderSegmentEOF)
		writerFileID := r.ledger.Snapshot().WriterFileID

		if r.activeFileID < writerFileID {
			if err := r.crossToNextSegment(); err != nil {
				return event.Event{}, false, false, err
			}
			continue
		}

		// Caught up with the writer's active segment.
		if r.writer != nil && r.writer.IsClosed() {
			return event.Event{}, false, false, nil // Drained
		}

		return event.Event{}, false, true, nil
	}
}

func (r *Reader) advanceLedgerPastCorruption() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextRecordID++
	r.ledger.RecordRead(r.activeFileID, r.nextRecordID)
}

// crossToNextSegment deletes the exhausted segment (iff fully acked) and
// opens activeFileID+1.
func (r *Reader) crossToNextSegment() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	oldFileID := r.activeFileID
	if err := r.active.Close(); err != nil {
		return err
	}

	if r.ledger.Snapshot().LastAckedRecordID >= r.nextRecordID-1 || r.nextRecordID == 0 {
		r.maybeDeleteSegmentLocked(oldFileID)
	}

	next, err := segment.OpenForRead(r.fsys, segmentPath(r.dir, oldFileID+1), oldFileID+1, r.csType)
	if err != nil {
		return err
	}
	r.active = next
	r.activeFileID = oldFileID + 1
	r.ledger.RecordRead(r.activeFileID, r.nextRecordID)
	return nil
}

// maybeDeleteSegmentLocked removes a segment file once its final record id
// has been acked. Called with r.mu held.
func (r *Reader) maybeDeleteSegmentLocked(fileID uint64) {
	testutil.MaybeKill(testutil.KPReaderDelete0)
	_ = testutil.SP(testutil.SPReaderDeleteSegment)

	path := segmentPath(r.dir, fileID)
	if err := r.fsys.Remove(path); err != nil {
		r.logger.Warnf(logging.NSReader+"failed to delete exhausted segment %d: %v", fileID, err)
		return
	}

	testutil.MaybeKill(testutil.KPReaderDelete1)
	_ = testutil.SP(testutil.SPReaderDeleteSegmentOK)
}

// Close releases the active segment handle.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active.Close()
}
