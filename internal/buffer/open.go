package buffer

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/deckarep/golang-set/v2"

	"github.com/driftloom/evbuf/internal/ledger"
	"github.com/driftloom/evbuf/internal/logging"
	"github.com/driftloom/evbuf/internal/vfs"
)

// Open opens (creating if necessary) a buffer directory and wires up the
// Writer, Reader, Acker, and LedgerView.
//
// The data directory is exclusively owned by the returned handles for
// their lifetime, enforced by an advisory lockfile.
func Open(fsys vfs.FS, dir string, cfg Config) (*Writer, *Reader, *Acker, LedgerView, io.Closer, error) {
	cfg = cfg.withDefaults()
	if cfg.MaxBufferSizeBytes != 0 && cfg.MaxBufferSizeBytes < uint64(cfg.MaxDataFileSizeBytes) {
		return nil, nil, nil, LedgerView{}, nil, ErrInvalidConfig
	}

	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, nil, LedgerView{}, nil, fmt.Errorf("buffer: mkdir %s: %w", dir, err)
	}

	lockCloser, err := fsys.Lock(lockPath(dir))
	if err != nil {
		return nil, nil, nil, LedgerView{}, nil, fmt.Errorf("buffer: acquire lock: %w", err)
	}

	hasExistingData, err := hasDataFiles(fsys, dir)
	if err != nil {
		lockCloser.Close()
		return nil, nil, nil, LedgerView{}, nil, err
	}

	l, err := ledger.Load(fsys, ledgerPath(dir), hasExistingData, ledger.Options{
		FlushEveryNWrites: cfg.LedgerFlushEveryNWrites,
		FlushInterval:     time.Duration(cfg.LedgerFlushIntervalMs) * time.Millisecond,
		ChecksumAlgorithm: cfg.ChecksumAlgorithm,
		Logger:            cfg.Logger,
	})
	if err != nil {
		lockCloser.Close()
		return nil, nil, nil, LedgerView{}, nil, err
	}

	notify := make(chan struct{}, 1)

	w, err := newWriter(dir, fsys, l, cfg, notify)
	if err != nil {
		lockCloser.Close()
		return nil, nil, nil, LedgerView{}, nil, err
	}

	delivered := newDeliveredQueue()
	r, err := newReader(dir, fsys, l, notify, w, delivered, cfg)
	if err != nil {
		w.Close()
		lockCloser.Close()
		return nil, nil, nil, LedgerView{}, nil, err
	}

	a := newAcker(l, delivered, w)

	reportOrphanedSegments(fsys, dir, l.Snapshot(), cfg.Logger)

	return w, r, a, LedgerView{l: l}, lockCloser, nil
}

// reportOrphanedSegments compares the segment ids the ledger's live range
// implies against the segment files actually present in dir, and warns
// about each present file outside that range rather than acting on it: a
// segment below ReaderFileID is one the Reader did not delete when it
// crossed past it (for example a crash mid-delete); one above WriterFileID
// should never exist. Neither is fatal and neither is removed here or by
// any later pass, but both are worth surfacing since they usually mean a
// crash landed mid-rotation or mid-delete.
func reportOrphanedSegments(fsys vfs.FS, dir string, st ledger.State, logger logging.Logger) {
	logger = logging.OrDefault(logger)

	entries, err := fsys.ListDir(dir)
	if err != nil {
		return
	}

	present := mapset.NewSet[uint64]()
	for _, name := range entries {
		if !strings.HasPrefix(name, SegmentFilePrefix) {
			continue
		}
		idStr := strings.TrimSuffix(strings.TrimPrefix(name, SegmentFilePrefix), ".dat")
		id, err := strconv.ParseUint(idStr, 10, 64)
		if err != nil {
			continue
		}
		present.Add(id)
	}

	live := mapset.NewSet[uint64]()
	for id := st.ReaderFileID; id <= st.WriterFileID; id++ {
		live.Add(id)
	}

	for id := range present.Difference(live).Iter() {
		logger.Warnf("%sorphaned segment file outside ledger's live range [%d,%d]: %s",
			logging.NSLedger, st.ReaderFileID, st.WriterFileID, SegmentPath(dir, id))
	}
}

func hasDataFiles(fsys vfs.FS, dir string) (bool, error) {
	entries, err := fsys.ListDir(dir)
	if err != nil {
		return false, nil // fresh directory: ListDir may fail before anything exists
	}
	for _, name := range entries {
		if len(name) > len(SegmentFilePrefix) && name[:len(SegmentFilePrefix)] == SegmentFilePrefix {
			return true, nil
		}
	}
	return false, nil
}
