package buffer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/driftloom/evbuf/event"
	"github.com/driftloom/evbuf/internal/checksum"
	"github.com/driftloom/evbuf/internal/ledger"
	"github.com/driftloom/evbuf/internal/logging"
	"github.com/driftloom/evbuf/internal/record"
	"github.com/driftloom/evbuf/internal/segment"
	"github.com/driftloom/evbuf/internal/testutil"
	"github.com/driftloom/evbuf/internal/vfs"
)

// Writer owns the active data file and admission control. State is a
// single active segment plus the counters mirrored into the shared
// Ledger. mu serialises appends, rotation, Flush and Close on the active
// segment; admission control runs before mu is taken.
type Writer struct {
	dir    string
	fsys   vfs.FS
	ledger *ledger.Ledger
	cfg    Config
	logger logging.Logger

	notify chan struct{} // capacity 1: "new data in the active segment"

	mu           sync.Mutex
	active       *segment.DataFile
	activeFileID uint64

	spaceFreed chan struct{} // capacity 1: woken by Acker under Block policy

	closed   atomic.Bool
	poisoned atomic.Bool
}

func newWriter(dir string, fsys vfs.FS, l *ledger.Ledger, cfg Config, notify chan struct{}) (*Writer, error) {
	st := l.Snapshot()
	active, err := openOrCreateActiveSegment(fsys, dir, st.WriterFileID, st.WriterNextRecordID, cfg.MaxDataFileSizeBytes, cfg.ChecksumAlgorithm)
	if err != nil {
		return nil, err
	}
	return &Writer{
		dir:          dir,
		fsys:         fsys,
		ledger:       l,
		cfg:          cfg,
		logger:       logging.OrDefault(cfg.Logger),
		notify:       notify,
		active:       active,
		activeFileID: st.WriterFileID,
		spaceFreed:   make(chan struct{}, 1),
	}, nil
}

func openOrCreateActiveSegment(fsys vfs.FS, dir string, fileID, nextRecordID uint64, maxSize int64, csType checksum.Type) (*segment.DataFile, error) {
	path := segmentPath(dir, fileID)
	if fsys.Exists(path) {
		return segment.OpenForAppend(fsys, path, fileID, maxSize, csType)
	}
	return segment.CreateForWrite(fsys, path, fileID, nextRecordID, maxSize, csType)
}

// Write encodes e and admits it into the buffer, applying the configured
// OverflowPolicy if total_buffer_size would exceed MaxBufferSizeBytes.
func (w *Writer) Write(ctx context.Context, e event.Event) error {
	if w.closed.Load() {
		return ErrClosed
	}
	if w.poisoned.Load() {
		return ErrPoisoned
	}

	_ = testutil.SP(testutil.SPWriterWrite)

	frame, err := record.Encode(e, w.cfg.Compression, w.cfg.ChecksumAlgorithm)
	if err != nil {
		return fmt.Errorf("buffer: encode: %w", err)
	}
	defer record.Release(frame)

	if int64(len(frame))+segment.HeaderSize > w.cfg.MaxDataFileSizeBytes {
		return ErrRecordTooLarge
	}

	if err := w.admit(ctx, uint64(len(frame))); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	_ = testutil.SP(testutil.SPWriterWriteBeforeAppend)
	recordID, err := w.appendLocked(frame)
	if err != nil {
		w.poisoned.Store(true)
		return fmt.Errorf("%w: %w", ErrPoisoned, err)
	}
	_ = testutil.SP(testutil.SPWriterWriteAfterAppend)

	w.ledger.RecordWrite(w.activeFileID, recordID, uint64(len(frame)))
	w.wakeReader()

	_ = testutil.SP(testutil.SPWriterWriteComplete)
	return nil
}

// admit applies the overflow policy. DropOldest is implemented without
// rewriting segments: new writes fail open with ErrFull until the Reader
// naturally advances and frees space, identical in code terms to
// DropNewest, but documented distinctly because the *intended* caller
// behaviour differs (callers are expected to keep retrying, not to treat
// ErrFull as final).
func (w *Writer) admit(ctx context.Context, size uint64) error {
	if w.cfg.MaxBufferSizeBytes == 0 {
		return nil // unbounded
	}

	for {
		if w.ledger.Snapshot().TotalBufferSizeBytes+size <= w.cfg.MaxBufferSizeBytes {
			return nil
		}

		switch w.cfg.OverflowPolicy {
		case DropNewest, DropOldest:
			return ErrFull
		case Block:
			_ = testutil.SP(testutil.SPWriterBlockOnFull)
			select {
			case <-ctx.Done():
				return ErrCancelled
			case <-w.spaceFreed:
				// loop and recheck
			}
		default:
			return ErrFull
		}
	}
}

// notifySpaceFreed is called by the Acker after folding acks into the
// ledger, to wake any Writer blocked in admit under the Block policy.
func (w *Writer) notifySpaceFreed() {
	select {
	case w.spaceFreed <- struct{}{}:
	default:
	}
}

func (w *Writer) appendLocked(frame []byte) (uint64, error) {
	recordID := w.ledger.Snapshot().WriterNextRecordID

	_, err := w.active.Append(frame)
	if errors.Is(err, segment.ErrFull) {
		if err := w.rotateLocked(); err != nil {
			return 0, err
		}
		recordID = w.ledger.Snapshot().WriterNextRecordID
		if _, err := w.active.Append(frame); err != nil {
			return 0, err
		}
		return recordID, nil
	}
	if err != nil {
		return 0, err
	}
	return recordID, nil
}

func (w *Writer) rotateLocked() error {
	testutil.MaybeKill(testutil.KPWriterRotate0)
	_ = testutil.SP(testutil.SPWriterRotate)

	if err := w.active.Sync(); err != nil {
		return err
	}
	if err := w.active.Close(); err != nil {
		return err
	}

	nextFileID := w.activeFileID + 1
	nextRecordID := w.ledger.Snapshot().WriterNextRecordID

	seg, err := segment.CreateForWrite(w.fsys, segmentPath(w.dir, nextFileID), nextFileID, nextRecordID, w.cfg.MaxDataFileSizeBytes, w.cfg.ChecksumAlgorithm)
	if err != nil {
		return err
	}

	testutil.MaybeKill(testutil.KPWriterRotate1)
	w.active = seg
	w.activeFileID = nextFileID
	_ = testutil.SP(testutil.SPWriterRotateComplete)
	return nil
}

func (w *Writer) wakeReader() {
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Flush issues a data-file sync then a ledger flush. After Flush returns,
// all prior Write calls are durable.
func (w *Writer) Flush() error {
	if w.closed.Load() {
		return ErrClosed
	}
	_ = testutil.SP(testutil.SPWriterFlush)

	w.mu.Lock()
	err := w.active.Sync()
	w.mu.Unlock()
	if err != nil {
		w.poisoned.Store(true)
		return fmt.Errorf("%w: %w", ErrPoisoned, err)
	}

	if err := w.ledger.Flush(); err != nil {
		return err
	}
	_ = testutil.SP(testutil.SPWriterFlushComplete)
	return nil
}

// Close flushes and signals EOF to the Reader.
func (w *Writer) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = testutil.SP(testutil.SPWriterClose)

	w.mu.Lock()
	err := w.active.Sync()
	if cerr := w.active.Close(); err == nil {
		err = cerr
	}
	w.mu.Unlock()
	if ferr := w.ledger.Flush(); err == nil {
		err = ferr
	}

	w.wakeReader() // let a blocked Reader observe closed and re-check

	_ = testutil.SP(testutil.SPWriterCloseComplete)
	return err
}

// IsPoisoned reports whether a prior unrecoverable I/O error has occurred.
func (w *Writer) IsPoisoned() bool { return w.poisoned.Load() }

// IsClosed reports whether Close has been called.
func (w *Writer) IsClosed() bool { return w.closed.Load() }
