// Package evbuf implements a crash-safe, bounded, on-disk buffer of
// structured events. A buffer directory holds a sequence of append-only
// data segments plus a small ledger tracking how far the writer and
// reader have each progressed; Open wires the two together with an
// Acker so a downstream consumer can only drop already-delivered data
// once it has confirmed durable handling.
package evbuf

import (
	"io"

	"github.com/driftloom/evbuf/event"
	"github.com/driftloom/evbuf/internal/buffer"
	"github.com/driftloom/evbuf/internal/checksum"
	"github.com/driftloom/evbuf/internal/compression"
	"github.com/driftloom/evbuf/internal/logging"
	"github.com/driftloom/evbuf/internal/topology"
	"github.com/driftloom/evbuf/internal/vfs"
)

// Event is the unit of data a buffer stores.
type Event = event.Event

// OverflowPolicy selects what happens when a write would push the
// buffer's total size past Config.MaxBufferSizeBytes.
type OverflowPolicy = buffer.OverflowPolicy

const (
	// Block suspends the writer until the acker frees space.
	Block = buffer.Block
	// DropNewest rejects the incoming event with ErrFull.
	DropNewest = buffer.DropNewest
	// DropOldest fails writes open with ErrFull until the reader
	// naturally advances and frees space, rather than rewriting segments.
	DropOldest = buffer.DropOldest
)

// Compression selects the payload compression codec used when encoding
// events for storage.
type Compression = compression.Type

const (
	NoCompression     = compression.NoCompression
	SnappyCompression = compression.SnappyCompression
	LZ4Compression    = compression.LZ4Compression
	ZstdCompression   = compression.ZstdCompression
)

// ChecksumAlgorithm selects the integrity checksum folded into Record
// frames and the Ledger's trailer.
type ChecksumAlgorithm = checksum.Type

const (
	// CRC32C is the default: Castagnoli CRC32, cheap and widely
	// hardware-accelerated.
	CRC32C = checksum.TypeCRC32C
	// XXH3 trades CRC32C's hardware acceleration for higher throughput on
	// platforms without it.
	XXH3 = checksum.TypeXXH3
)

// Logger is the structured logging interface a Config may supply; see
// internal/logging for the default implementation.
type Logger = logging.Logger

var (
	// ErrFull is returned to a writer when admission is denied under
	// DropNewest or DropOldest.
	ErrFull = buffer.ErrFull
	// ErrClosed indicates an operation after Close.
	ErrClosed = buffer.ErrClosed
	// ErrCancelled indicates the caller's context was cancelled.
	ErrCancelled = buffer.ErrCancelled
	// ErrRecordTooLarge indicates an event's encoded size would never fit
	// in a single data file, regardless of rotation.
	ErrRecordTooLarge = buffer.ErrRecordTooLarge
	// ErrPoisoned indicates a prior unrecoverable I/O error; the writer
	// refuses all subsequent writes until process restart.
	ErrPoisoned = buffer.ErrPoisoned
	// ErrInvalidConfig is returned by Open for a Config that can never be
	// satisfied, such as MaxBufferSizeBytes < MaxDataFileSizeBytes.
	ErrInvalidConfig = buffer.ErrInvalidConfig
)

// Config collects the recognised configuration options for a buffer.
type Config struct {
	// MaxBufferSizeBytes bounds the total on-disk size of undelivered
	// plus delivered-but-unacked records. Zero means unbounded.
	MaxBufferSizeBytes uint64
	// MaxDataFileSizeBytes bounds a single segment's size before the
	// writer rotates to a new one. Zero selects a 128 MiB default.
	MaxDataFileSizeBytes int64
	// OverflowPolicy selects writer behaviour when the buffer is full.
	OverflowPolicy OverflowPolicy
	// Compression selects the payload codec; NoCompression by default.
	Compression Compression
	// ChecksumAlgorithm selects the integrity checksum for Record frames
	// and the Ledger trailer; CRC32C by default. A buffer directory must
	// always be reopened with the same algorithm it was written with: the
	// fixed Record header carries no algorithm tag, so a mismatch reads
	// back existing data as corrupt rather than failing explicitly.
	ChecksumAlgorithm ChecksumAlgorithm
	// LedgerFlushEveryNWrites forces a ledger fsync after this many
	// writes since the last flush. Zero selects a built-in default.
	LedgerFlushEveryNWrites uint32
	// LedgerFlushIntervalMs is the elapsed-time threshold of the ledger's
	// scheduled-flush check. Zero selects a built-in default. Writes
	// trigger ledger fsyncs by count only and nothing polls that check on
	// a timer, so this interval does not by itself cause a flush.
	LedgerFlushIntervalMs uint32
	// WhenFullFlushTimeoutMs is carried into the buffer's configuration
	// but not read by the Writer: a Block-policy writer waits for space
	// until the Acker frees it or the caller's context ends.
	WhenFullFlushTimeoutMs uint32
	// MaxBatchEvents caps how many events Reader.Next coalesces into one
	// batch. Zero selects topology.DefaultMaxBatchEvents.
	MaxBatchEvents int
	// Logger receives structured log messages; nil selects a default
	// WARN-level logger writing to stderr.
	Logger Logger
}

func (c Config) toOptions() topology.Options {
	return topology.Options{
		Config: buffer.Config{
			MaxBufferSizeBytes:      c.MaxBufferSizeBytes,
			MaxDataFileSizeBytes:    c.MaxDataFileSizeBytes,
			OverflowPolicy:          c.OverflowPolicy,
			Compression:             c.Compression,
			ChecksumAlgorithm:       c.ChecksumAlgorithm,
			LedgerFlushEveryNWrites: c.LedgerFlushEveryNWrites,
			LedgerFlushIntervalMs:   c.LedgerFlushIntervalMs,
			WhenFullFlushTimeoutMs:  c.WhenFullFlushTimeoutMs,
			Logger:                  c.Logger,
		},
		MaxBatchEvents: c.MaxBatchEvents,
	}
}

// Writer accepts batches of events for durable, admission-controlled
// append to the buffer.
type Writer = topology.WriteSink

// Reader pulls batches of events back out of the buffer in delivery
// order, blocking for the first event of a batch and then coalescing
// whatever else is immediately available.
type Reader = topology.ReadStream

// Acker confirms that a batch pulled from a Reader has been durably
// handled downstream, letting the buffer reclaim the space it occupied.
type Acker = topology.Acker

// LedgerView is a read-only accessor to the buffer's outstanding size
// and progress, for observability.
type LedgerView = buffer.LedgerView

// Open opens (creating if necessary) a buffer rooted at dir on the local
// filesystem and wires up a Writer, Reader, Acker, and LedgerView. The
// returned io.Closer releases the directory's advisory lock; it should
// be closed after the Writer and Reader are done (Writer.Close and
// Reader.Close release their own file handles first).
func Open(dir string, cfg Config) (*Writer, *Reader, *Acker, LedgerView, io.Closer, error) {
	return topology.Open(vfs.Default(), dir, cfg.toOptions())
}
