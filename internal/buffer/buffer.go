// Package buffer implements the Writer, Reader, and Acker triad: the
// admission-controlled append path, the segment-crossing read path, and
// the delivery-acknowledgement path that together turn a directory of
// DataFiles plus a Ledger into a crash-safe bounded event queue.
package buffer

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/driftloom/evbuf/internal/checksum"
	"github.com/driftloom/evbuf/internal/compression"
	"github.com/driftloom/evbuf/internal/ledger"
	"github.com/driftloom/evbuf/internal/logging"
)

// OverflowPolicy selects what happens when a Write would push
// total_buffer_size past MaxBufferSizeBytes.
type OverflowPolicy uint8

const (
	// Block awaits space (the Writer suspends until the Acker frees bytes).
	Block OverflowPolicy = iota
	// DropNewest rejects the incoming event with ErrFull.
	DropNewest
	// DropOldest rejects the incoming event with ErrFull, exactly as
	// DropNewest does, until the Reader advances and acks free space; no
	// already-written records are discarded.
	DropOldest
)

// DefaultMaxDataFileSizeBytes is used when Config.MaxDataFileSizeBytes is zero.
const DefaultMaxDataFileSizeBytes = 128 << 20 // 128 MiB

// Config collects the recognised configuration options for a buffer.
type Config struct {
	MaxBufferSizeBytes      uint64
	MaxDataFileSizeBytes    int64
	OverflowPolicy          OverflowPolicy
	LedgerFlushEveryNWrites uint32
	LedgerFlushIntervalMs   uint32
	WhenFullFlushTimeoutMs  uint32
	Compression             compression.Type
	ChecksumAlgorithm       checksum.Type
	Logger                  logging.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxDataFileSizeBytes == 0 {
		c.MaxDataFileSizeBytes = DefaultMaxDataFileSizeBytes
	}
	if c.ChecksumAlgorithm == checksum.TypeNoChecksum {
		c.ChecksumAlgorithm = checksum.TypeCRC32C
	}
	return c
}

var (
	// ErrFull is returned to a writer under DropNewest or DropOldest when
	// admission is denied.
	ErrFull = errors.New("buffer: full")
	// ErrClosed indicates an operation after Close.
	ErrClosed = errors.New("buffer: closed")
	// ErrCancelled indicates the caller's context was cancelled.
	ErrCancelled = errors.New("buffer: cancelled")
	// ErrRecordTooLarge indicates an event's encoded Record would never
	// fit in a single data file, regardless of rotation.
	ErrRecordTooLarge = errors.New("buffer: record too large for a data file")
	// ErrPoisoned indicates a prior unrecoverable I/O error; the Writer
	// refuses all subsequent writes until process restart.
	ErrPoisoned = errors.New("buffer: poisoned")
	// ErrInvalidConfig is returned by Open when MaxBufferSizeBytes is
	// smaller than MaxDataFileSizeBytes: such a configuration could never
	// admit even a single full segment, so it is rejected up front rather
	// than left to surface confusingly at the first write.
	ErrInvalidConfig = errors.New("buffer: max_buffer_size must be >= max_data_file_size")
)

// LedgerView is the read-only accessor to Ledger state exposed to the
// surrounding pipeline for observability.
type LedgerView struct {
	l *ledger.Ledger
}

// TotalRecords returns the current outstanding record count.
func (v LedgerView) TotalRecords() uint64 { return v.l.Snapshot().TotalRecords }

// TotalBufferSize returns the current outstanding byte count.
func (v LedgerView) TotalBufferSize() uint64 { return v.l.Snapshot().TotalBufferSizeBytes }

// LastAckedRecordID returns the highest record id acknowledged so far.
func (v LedgerView) LastAckedRecordID() uint64 { return v.l.Snapshot().LastAckedRecordID }

func segmentPath(dir string, id uint64) string {
	return SegmentPath(dir, id)
}

func ledgerPath(dir string) string {
	return LedgerPath(dir)
}

func lockPath(dir string) string {
	return filepath.Join(dir, "buffer.lock")
}

// SegmentPath returns the on-disk path of data segment id within dir, the
// same naming scheme Open uses internally. Exported for external tooling
// (e.g. cmd/evbufctl) that needs to inspect a buffer directory without
// opening it for writing.
func SegmentPath(dir string, id uint64) string {
	return filepath.Join(dir, fmt.Sprintf("buffer-data-%d.dat", id))
}

// LedgerPath returns the on-disk path of dir's ledger file.
func LedgerPath(dir string) string {
	return filepath.Join(dir, "buffer.ledger")
}

// SegmentFilePrefix is the filename prefix shared by all data segments in
// a buffer directory, useful for filtering ListDir results.
const SegmentFilePrefix = "buffer-data-"
