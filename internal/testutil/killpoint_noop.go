//go:build !crashtest

// Package testutil provides test utilities for stress testing and verification.
//
// This file provides no-op implementations of kill point functions for
// production builds. When built without the "crashtest" tag, all kill point
// calls are effectively eliminated by the compiler.
package testutil

// KillPointEnvVar is the environment variable used to set the kill point target.
// In production builds, this is defined but ignored.
const KillPointEnvVar = "EVBUF_KILL_POINT"

// SetKillPoint is a no-op in production builds.
func SetKillPoint(_ string) {}

// ClearKillPoint is a no-op in production builds.
func ClearKillPoint() {}

// ArmKillPoint is a no-op in production builds.
func ArmKillPoint() {}

// DisarmKillPoint is a no-op in production builds.
func DisarmKillPoint() {}

// IsKillPointArmed always returns false in production builds.
func IsKillPointArmed() bool { return false }

// GetKillPointTarget always returns empty string in production builds.
func GetKillPointTarget() string { return "" }

// GetKillPointHitCount always returns 0 in production builds.
func GetKillPointHitCount(_ string) int64 { return 0 }

// ResetKillPointCounts is a no-op in production builds.
func ResetKillPointCounts() {}

// MaybeKill is a no-op in production builds.
// The compiler should inline and eliminate this entirely.
func MaybeKill(_ string) {}

// Kill point name constants - defined for API compatibility even in prod builds.
const (
	// Segment (data file) kill points
	KPSegmentAppend0 = "Segment.Append:0"
	KPSegmentSync0   = "Segment.Sync:0"
	KPSegmentSync1   = "Segment.Sync:1"

	// Ledger kill points
	KPLedgerFlush0 = "Ledger.Flush:0"
	KPLedgerSync0  = "Ledger.Sync:0"
	KPLedgerSync1  = "Ledger.Sync:1"

	// Writer kill points
	KPWriterRotate0 = "Writer.Rotate:0"
	KPWriterRotate1 = "Writer.Rotate:1"

	// Reader kill points
	KPReaderDelete0 = "Reader.Delete:0"
	KPReaderDelete1 = "Reader.Delete:1"

	// Acker kill points
	KPAckerFold0 = "Acker.Fold:0"

	// Generic file kill points
	KPFileSync0 = "File.Sync:0"
	KPFileSync1 = "File.Sync:1"

	// Directory sync kill points
	KPDirSync0 = "Dir.Sync:0"
	KPDirSync1 = "Dir.Sync:1"
)
