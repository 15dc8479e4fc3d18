package ledger

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/driftloom/evbuf/internal/vfs"
)

func TestLoadFreshWhenAbsent(t *testing.T) {
	fsys := vfs.Default()
	path := filepath.Join(t.TempDir(), "buffer.ledger")

	l, err := Load(fsys, path, false, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	st := l.Snapshot()
	if st.TotalRecords != 0 || st.WriterNextRecordID != 0 {
		t.Errorf("fresh ledger state = %+v, want zero values", st)
	}
}

func TestFlushThenReload(t *testing.T) {
	fsys := vfs.Default()
	path := filepath.Join(t.TempDir(), "buffer.ledger")

	l, err := Load(fsys, path, false, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	l.RecordWrite(0, 0, 100)
	l.RecordWrite(0, 1, 100)
	l.RecordRead(0, 2)
	l.RecordAck(1, 100, 1)

	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reloaded, err := Load(fsys, path, true, Options{})
	if err != nil {
		t.Fatalf("reload Load: %v", err)
	}

	want := l.Snapshot()
	got := reloaded.Snapshot()
	if got != want {
		t.Errorf("reloaded state = %+v, want %+v", got, want)
	}
}

func TestLoadCorruptWithExistingDataFails(t *testing.T) {
	fsys := vfs.Default()
	path := filepath.Join(t.TempDir(), "buffer.ledger")

	l, err := Load(fsys, path, false, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	l.RecordWrite(0, 0, 100)
	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	// Flip a bit in the on-disk file without touching its size.
	f, err := fsys.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	buf := make([]byte, fileSize)
	if _, err := f.Read(buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	f.Close()
	buf[10] ^= 0xFF

	wf, err := fsys.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := wf.Append(buf); err != nil {
		t.Fatalf("Append: %v", err)
	}
	wf.Close()

	if _, err := Load(fsys, path, true, Options{}); !errors.Is(err, ErrCorruptLedger) {
		t.Errorf("Load error = %v, want ErrCorruptLedger", err)
	}

	// Without existing data files, the same corruption falls back to fresh.
	if _, err := Load(fsys, path, false, Options{}); err != nil {
		t.Errorf("Load with no existing data = %v, want nil (fresh fallback)", err)
	}
}

func TestRecordAckDoesNotUnderflow(t *testing.T) {
	fsys := vfs.Default()
	path := filepath.Join(t.TempDir(), "buffer.ledger")

	l, err := Load(fsys, path, false, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	l.RecordWrite(0, 0, 10)
	l.RecordAck(0, 1000, 1000) // ack more than was ever written

	st := l.Snapshot()
	if st.TotalBufferSizeBytes != 0 || st.TotalRecords != 0 {
		t.Errorf("counters went negative: %+v", st)
	}
}

func TestAutoFlushAfterNWrites(t *testing.T) {
	fsys := vfs.Default()
	path := filepath.Join(t.TempDir(), "buffer.ledger")

	l, err := Load(fsys, path, false, Options{FlushEveryNWrites: 2})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	l.RecordWrite(0, 0, 10)
	if fsys.Exists(path) {
		t.Fatalf("ledger flushed before reaching the write threshold")
	}
	l.RecordWrite(0, 1, 10)
	if !fsys.Exists(path) {
		t.Errorf("ledger not flushed after reaching the write threshold")
	}
}
