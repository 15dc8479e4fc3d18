// Package testutil provides test utilities for stress testing and verification.
//
// This file defines sync point names used throughout the codebase.
// These are plain string constants with zero runtime overhead.
//
// Sync points allow tests to inject deterministic behavior into concurrent code.
// In production builds (without -tags synctest), SP() calls are no-ops.
package testutil

// Common sync point names used throughout the codebase, following the
// convention "Component::Function:Location".
const (
	// Buffer lifecycle
	SPBufferOpen           = "Buffer::Open:Start"
	SPBufferOpenComplete   = "Buffer::Open:Complete"
	SPBufferClose          = "Buffer::Close:Start"
	SPBufferCloseComplete  = "Buffer::Close:Complete"
	SPBufferRecoverStart   = "Buffer::Recover:Start"
	SPBufferRecoverDone    = "Buffer::Recover:Complete"
	SPBufferLockAcquire    = "Buffer::Lock:Acquire"
	SPBufferLockRelease    = "Buffer::Lock:Release"

	// Writer path
	SPWriterWrite              = "Writer::Write:Start"
	SPWriterWriteBeforeAppend  = "Writer::Write:BeforeAppend"
	SPWriterWriteAfterAppend   = "Writer::Write:AfterAppend"
	SPWriterWriteComplete      = "Writer::Write:Complete"
	SPWriterRotate             = "Writer::Rotate:Start"
	SPWriterRotateComplete     = "Writer::Rotate:Complete"
	SPWriterBlockOnFull        = "Writer::Write:BlockOnFull"
	SPWriterPoisoned           = "Writer::Write:Poisoned"
	SPWriterFlush              = "Writer::Flush:Start"
	SPWriterFlushComplete      = "Writer::Flush:Complete"
	SPWriterClose              = "Writer::Close:Start"
	SPWriterCloseComplete      = "Writer::Close:Complete"

	// Reader path
	SPReaderNext            = "Reader::Next:Start"
	SPReaderNextComplete    = "Reader::Next:Complete"
	SPReaderWaitNotify      = "Reader::Next:WaitNotify"
	SPReaderSegmentEOF      = "Reader::Next:SegmentEOF"
	SPReaderSkipCorruptTail = "Reader::Next:SkipCorruptTail"
	SPReaderDeleteSegment   = "Reader::DeleteSegment:Start"
	SPReaderDeleteSegmentOK = "Reader::DeleteSegment:Complete"

	// Ledger flush/recovery
	SPLedgerFlush         = "Ledger::Flush:Start"
	SPLedgerFlushComplete = "Ledger::Flush:Complete"
	SPLedgerLoad          = "Ledger::Load:Start"
	SPLedgerLoadComplete  = "Ledger::Load:Complete"
	SPLedgerCrcMismatch   = "Ledger::Load:CrcMismatch"

	// Acker path
	SPAckerAcknowledge       = "Acker::Acknowledge:Start"
	SPAckerAcknowledgeDone   = "Acker::Acknowledge:Complete"
	SPAckerFoldIntoLedger    = "Acker::Fold:Start"
	SPAckerFoldIntoLedgerOK  = "Acker::Fold:Complete"

	// Segment (data file)
	SPSegmentOpenForWrite = "Segment::OpenForWrite:Start"
	SPSegmentOpenForRead  = "Segment::OpenForRead:Start"
	SPSegmentAppend       = "Segment::Append:Start"
	SPSegmentAppendFull   = "Segment::Append:Full"
	SPSegmentReadNext     = "Segment::ReadNext:Start"
	SPSegmentSync         = "Segment::Sync:Start"
	SPSegmentSyncComplete = "Segment::Sync:Complete"

	// Topology adapter (read_stream batching)
	SPTopologyBatchPull     = "Topology::ReadStream:Pull"
	SPTopologyBatchFlush    = "Topology::ReadStream:FlushOnPend"
	SPTopologyBatchComplete = "Topology::ReadStream:Complete"
)
