//go:build synctest

package testutil

// SP processes a sync point against the global SyncPointManager. It is the
// production call site's entry point; tests install a manager with
// EnableSyncPoints and configure callbacks/blocks/delays on it.
func SP(name string) error {
	return SyncPointProcess(name)
}

// SPCallback is like SP with an extra data argument, which is ignored;
// callbacks receive only the sync point name.
func SPCallback(name string, data any) error {
	return SyncPointProcessWithData(name, data)
}

// ProcessSyncPoint is an alias for SP, kept for call sites that read more
// naturally with the longer name.
func ProcessSyncPoint(name string) error {
	return SyncPointProcess(name)
}

// EnableSyncPoints creates a new SyncPointManager, installs it as the
// global manager used by SP/SPCallback, enables processing, and returns it
// so the caller can register callbacks, blocks, and error injections.
func EnableSyncPoints() *SyncPointManager {
	mgr := NewSyncPointManager()
	mgr.EnableProcessing()
	mgr.SetGlobal()
	return mgr
}

// DisableSyncPoints clears the global SyncPointManager, returning SP and
// SPCallback to no-ops.
func DisableSyncPoints() {
	ClearGlobal()
}
