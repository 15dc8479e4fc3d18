// Package ledger implements the durability oracle for the buffer: a
// single small file recording where the Writer and Reader each stand and
// how much data is outstanding, rewritten in place and fsynced on a
// schedule.
//
// The file is a fixed set of counters plus a trailing CRC32C, the same
// "serialize fixed fields, append a trailing checksum, rewrite the whole
// file in place" shape used elsewhere in this codebase for small
// persisted state. The hot fields mutated on every Write/Read/Ack are
// atomic.Uint64 so Writer, Reader, and Acker can advance them without
// taking a lock on the hot path.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/driftloom/evbuf/internal/checksum"
	"github.com/driftloom/evbuf/internal/encoding"
	"github.com/driftloom/evbuf/internal/logging"
	"github.com/driftloom/evbuf/internal/testutil"
	"github.com/driftloom/evbuf/internal/vfs"
)

// Magic identifies a valid ledger file.
const Magic uint32 = 0xB0FFE201

// FormatVer is the only ledger layout this build writes or reads.
const FormatVer uint16 = 1

// payloadSize is the fixed payload: magic, format_ver, and flags headers
// plus the seven u64 counters.
const (
	headerSize  = 4 + 2 + 2 // magic + format_ver + flags
	fieldsSize  = 8 * 7     // seven u64 counters
	payloadSize = headerSize + fieldsSize
	fileSize    = payloadSize + 4 // trailing crc32c
)

// ErrCorruptLedger is returned by Load when the ledger file exists, fails
// its CRC check, and data files are already present — recovery cannot
// safely assume a fresh ledger in that case and requires operator
// intervention.
var ErrCorruptLedger = errors.New("ledger: corrupt ledger file with existing data")

// State is a point-in-time, read-only snapshot of the ledger's fields.
type State struct {
	WriterFileID        uint64
	WriterNextRecordID  uint64
	ReaderFileID        uint64
	ReaderNextRecordID  uint64
	LastAckedRecordID   uint64
	TotalBufferSizeBytes uint64
	TotalRecords        uint64
}

// Ledger is the durability oracle shared by the Writer, Reader, and
// Acker. All exported methods are safe for concurrent use.
type Ledger struct {
	fsys   vfs.FS
	path   string
	logger logging.Logger

	writerFileID       atomic.Uint64
	writerNextRecordID atomic.Uint64
	readerFileID       atomic.Uint64
	readerNextRecordID atomic.Uint64
	lastAckedRecordID  atomic.Uint64
	totalBufferSize    atomic.Uint64
	totalRecords       atomic.Uint64

	flags  uint16
	csType checksum.Type

	mu            sync.Mutex // serialises flush() against concurrent flush()
	writesSinceFlush atomic.Uint64
	lastFlush     time.Time

	flushEveryNWrites uint32
	flushInterval     time.Duration
}

// Options configures flush cadence and the checksum algorithm guarding
// the ledger's trailing integrity check.
type Options struct {
	FlushEveryNWrites uint32
	FlushInterval     time.Duration
	ChecksumAlgorithm checksum.Type
	Logger            logging.Logger
}

// Load reads dir/buffer.ledger, verifying its CRC. If the file is absent
// and hasExistingData is false, a fresh ledger is initialised in memory
// (first flush() creates the file). If the file is corrupt, Load returns
// ErrCorruptLedger when hasExistingData is true; otherwise it falls back
// to a fresh ledger, since a missing/corrupt ledger with no data files is
// indistinguishable from a buffer that was never written to.
func Load(fsys vfs.FS, path string, hasExistingData bool, opts Options) (*Ledger, error) {
	testutil.MaybeKill(testutil.KPLedgerFlush0)
	_ = testutil.SP(testutil.SPLedgerLoad)

	l := newLedger(fsys, path, opts)

	if !fsys.Exists(path) {
		_ = testutil.SP(testutil.SPLedgerLoadComplete)
		return l, nil
	}

	raw, err := readFile(fsys, path)
	if err != nil {
		if hasExistingData {
			return nil, fmt.Errorf("%w: %v", ErrCorruptLedger, err)
		}
		return l, nil
	}

	st, err := decode(raw, l.csType)
	if err != nil {
		_ = testutil.SP(testutil.SPLedgerCrcMismatch)
		if hasExistingData {
			return nil, fmt.Errorf("%w: %v", ErrCorruptLedger, err)
		}
		return l, nil
	}

	l.writerFileID.Store(st.WriterFileID)
	l.writerNextRecordID.Store(st.WriterNextRecordID)
	l.readerFileID.Store(st.ReaderFileID)
	l.readerNextRecordID.Store(st.ReaderNextRecordID)
	l.lastAckedRecordID.Store(st.LastAckedRecordID)
	l.totalBufferSize.Store(st.TotalBufferSizeBytes)
	l.totalRecords.Store(st.TotalRecords)

	_ = testutil.SP(testutil.SPLedgerLoadComplete)
	return l, nil
}

func newLedger(fsys vfs.FS, path string, opts Options) *Ledger {
	flushEveryN := opts.FlushEveryNWrites
	if flushEveryN == 0 {
		flushEveryN = 1000
	}
	flushInterval := opts.FlushInterval
	if flushInterval == 0 {
		flushInterval = time.Second
	}
	csType := opts.ChecksumAlgorithm
	if csType == checksum.TypeNoChecksum {
		csType = checksum.TypeCRC32C
	}
	return &Ledger{
		fsys:              fsys,
		path:              path,
		logger:            logging.OrDefault(opts.Logger),
		csType:            csType,
		flushEveryNWrites: flushEveryN,
		flushInterval:     flushInterval,
		lastFlush:         time.Time{},
	}
}

// Snapshot returns a cheap, consistent-enough read of the in-memory state
// for observability. It is not a transactional read across fields: a
// concurrent writer may advance one field between two of the loads here,
// which is acceptable for reporting purposes (see LedgerView).
func (l *Ledger) Snapshot() State {
	return State{
		WriterFileID:         l.writerFileID.Load(),
		WriterNextRecordID:   l.writerNextRecordID.Load(),
		ReaderFileID:         l.readerFileID.Load(),
		ReaderNextRecordID:   l.readerNextRecordID.Load(),
		LastAckedRecordID:    l.lastAckedRecordID.Load(),
		TotalBufferSizeBytes: l.totalBufferSize.Load(),
		TotalRecords:         l.totalRecords.Load(),
	}
}

// RecordWrite advances the writer's position and counters after a Record
// of onDiskBytes has been appended to fileID, assigning it recordID.
func (l *Ledger) RecordWrite(fileID, recordID uint64, onDiskBytes uint64) {
	l.writerFileID.Store(fileID)
	l.writerNextRecordID.Store(recordID + 1)
	l.totalBufferSize.Add(onDiskBytes)
	l.totalRecords.Add(1)

	if l.writesSinceFlush.Add(1) >= uint64(l.flushEveryNWrites) {
		_ = l.maybeFlush(false)
	}
}

// RecordRead advances the reader's in-memory position.
func (l *Ledger) RecordRead(fileID, nextRecordID uint64) {
	l.readerFileID.Store(fileID)
	l.readerNextRecordID.Store(nextRecordID)
}

// RecordAck advances last_acked_record_id and decrements the outstanding
// byte/record counters. upToRecordID must be monotonically non-decreasing
// across calls; the Acker is responsible for enforcing that ordering.
func (l *Ledger) RecordAck(upToRecordID uint64, freedBytes uint64, freedRecords uint64) {
	l.lastAckedRecordID.Store(upToRecordID)
	subtractSaturating(&l.totalBufferSize, freedBytes)
	subtractSaturating(&l.totalRecords, freedRecords)
}

func subtractSaturating(v *atomic.Uint64, delta uint64) {
	for {
		cur := v.Load()
		next := cur - delta
		if delta > cur {
			next = 0
		}
		if v.CompareAndSwap(cur, next) {
			return
		}
	}
}

// MaybeFlushOnSchedule flushes if either the write-count or time-interval
// threshold has elapsed since the last flush. Nothing in the buffer
// polls it: RecordWrite checks the write-count threshold itself, and
// Flush is called directly by Writer.Flush and Writer.Close.
func (l *Ledger) MaybeFlushOnSchedule() error {
	return l.maybeFlush(false)
}

func (l *Ledger) maybeFlush(force bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	due := force || l.writesSinceFlush.Load() >= uint64(l.flushEveryNWrites) ||
		time.Since(l.lastFlush) >= l.flushInterval
	if !due {
		return nil
	}
	return l.flushLocked()
}

// Flush serialises the current state and fsyncs the ledger file. It is
// called unconditionally before the Writer reports a flush() success, and
// on graceful shutdown.
func (l *Ledger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushLocked()
}

func (l *Ledger) flushLocked() error {
	testutil.MaybeKill(testutil.KPLedgerFlush0)
	_ = testutil.SP(testutil.SPLedgerFlush)

	buf := encode(l.Snapshot(), l.flags, l.csType)

	testutil.MaybeKill(testutil.KPLedgerSync0)
	if err := writeFileAtomic(l.fsys, l.path, buf); err != nil {
		return fmt.Errorf("ledger: flush: %w", err)
	}
	testutil.MaybeKill(testutil.KPLedgerSync1)

	l.writesSinceFlush.Store(0)
	l.lastFlush = time.Now()
	_ = testutil.SP(testutil.SPLedgerFlushComplete)
	return nil
}

func encode(st State, flags uint16, csType checksum.Type) []byte {
	buf := make([]byte, 0, fileSize)
	buf = encoding.AppendFixed32(buf, Magic)
	buf = encoding.AppendFixed16(buf, FormatVer)
	buf = encoding.AppendFixed16(buf, flags)
	buf = encoding.AppendFixed64(buf, st.WriterFileID)
	buf = encoding.AppendFixed64(buf, st.WriterNextRecordID)
	buf = encoding.AppendFixed64(buf, st.ReaderFileID)
	buf = encoding.AppendFixed64(buf, st.ReaderNextRecordID)
	buf = encoding.AppendFixed64(buf, st.LastAckedRecordID)
	buf = encoding.AppendFixed64(buf, st.TotalBufferSizeBytes)
	buf = encoding.AppendFixed64(buf, st.TotalRecords)
	crc := checksum.Of(csType, buf)
	buf = encoding.AppendFixed32(buf, crc)
	return buf
}

func decode(buf []byte, csType checksum.Type) (State, error) {
	if len(buf) != fileSize {
		return State{}, fmt.Errorf("ledger: bad file size %d, want %d", len(buf), fileSize)
	}
	payload := buf[:payloadSize]
	wantCRC := encoding.DecodeFixed32(buf[payloadSize:])
	if checksum.Of(csType, payload) != wantCRC {
		return State{}, errors.New("ledger: crc mismatch")
	}

	magic := encoding.DecodeFixed32(payload[0:4])
	if magic != Magic {
		return State{}, fmt.Errorf("ledger: bad magic %#x", magic)
	}
	formatVer := encoding.DecodeFixed16(payload[4:6])
	if formatVer != FormatVer {
		return State{}, fmt.Errorf("ledger: unsupported format version %d", formatVer)
	}

	f := payload[headerSize:]
	return State{
		WriterFileID:         encoding.DecodeFixed64(f[0:8]),
		WriterNextRecordID:   encoding.DecodeFixed64(f[8:16]),
		ReaderFileID:         encoding.DecodeFixed64(f[16:24]),
		ReaderNextRecordID:   encoding.DecodeFixed64(f[24:32]),
		LastAckedRecordID:    encoding.DecodeFixed64(f[32:40]),
		TotalBufferSizeBytes: encoding.DecodeFixed64(f[40:48]),
		TotalRecords:         encoding.DecodeFixed64(f[48:56]),
	}, nil
}

func readFile(fsys vfs.FS, path string) ([]byte, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := fsys.Stat(path)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, info.Size())
	if _, err := f.Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeFileAtomic rewrites the ledger file in place. Ledger files are
// small and fixed-size, so a direct truncate-and-rewrite plus fsync is
// sufficient; a crash mid-write is caught by the next Load's CRC check.
func writeFileAtomic(fsys vfs.FS, path string, buf []byte) error {
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Append(buf); err != nil {
		return err
	}
	return f.Sync()
}
