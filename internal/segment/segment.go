// Package segment implements DataFile, the append-only on-disk file that
// holds a contiguous run of Record frames, one Record per append with no
// block padding: a Record already frames itself (internal/record), so
// DataFile only needs to track how many bytes it has written against its
// size cap and hand back individual frames on read. A trailing frame that
// fails to parse or checksum is treated as the clean end of the file
// rather than an error, since that is exactly what a crash mid-append
// looks like on disk.
package segment

import (
	"errors"
	"fmt"
	"io"

	"github.com/driftloom/evbuf/internal/checksum"
	"github.com/driftloom/evbuf/internal/encoding"
	"github.com/driftloom/evbuf/internal/record"
	"github.com/driftloom/evbuf/internal/testutil"
	"github.com/driftloom/evbuf/internal/vfs"
)

// MagicWrite identifies a valid data-file header.
const MagicWrite uint32 = 0xB0FFE202

// FormatVer is the only data-file header version this build writes or reads.
const FormatVer uint16 = 1

// HeaderSize is the size in bytes of the fixed data-file header: magic +
// format_ver + reserved + first_record_id.
const HeaderSize = 4 + 2 + 2 + 8

var (
	// ErrFull is returned by Append when record_bytes would exceed max_size.
	// No partial write occurs.
	ErrFull = errors.New("segment: data file full")
	// ErrBadMagic indicates the file's header does not begin with MagicWrite.
	ErrBadMagic = errors.New("segment: bad header magic")
	// ErrUnsupportedVersion indicates a format_ver this build does not understand.
	ErrUnsupportedVersion = errors.New("segment: unsupported format version")
)

// DataFile is the append-only abstraction over one `buffer-data-<id>.dat`
// file. A DataFile is opened either for writing (CreateForWrite) or for
// reading (OpenForRead); the two modes never share an instance.
type DataFile struct {
	id            uint64
	firstRecordID uint64
	maxSize       int64
	csType        checksum.Type

	w         vfs.WritableFile
	writeSize int64 // bytes written so far, including the header

	r        vfs.SequentialFile
	readSize int64 // bytes consumed so far, including the header
}

// CreateForWrite creates (or truncates) the data file at path, writes its
// header, and positions for appending. id is the segment's own file id;
// firstRecordID is the record id the first appended Record will carry.
// csType must match the checksum algorithm the caller's Record frames were
// encoded with, since ReadNext uses it to find a segment's clean end.
func CreateForWrite(fsys vfs.FS, path string, id, firstRecordID uint64, maxSize int64, csType checksum.Type) (*DataFile, error) {
	f, err := fsys.Create(path)
	if err != nil {
		return nil, fmt.Errorf("segment: create %s: %w", path, err)
	}

	header := make([]byte, HeaderSize)
	encoding.EncodeFixed32(header[0:4], MagicWrite)
	encoding.EncodeFixed16(header[4:6], FormatVer)
	encoding.EncodeFixed16(header[6:8], 0)
	encoding.EncodeFixed64(header[8:16], firstRecordID)

	if err := f.Append(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: write header %s: %w", path, err)
	}

	return &DataFile{
		id:            id,
		firstRecordID: firstRecordID,
		maxSize:       maxSize,
		csType:        csType,
		w:             f,
		writeSize:     int64(HeaderSize),
	}, nil
}

// OpenForRead opens an existing data file, verifies its header, and
// positions the cursor just past the header for ReadNext. csType must
// match the algorithm the segment's Records were encoded with.
func OpenForRead(fsys vfs.FS, path string, id uint64, csType checksum.Type) (*DataFile, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("segment: open %s: %w", path, err)
	}

	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: read header %s: %w", path, err)
	}

	magic := encoding.DecodeFixed32(header[0:4])
	if magic != MagicWrite {
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrBadMagic, path)
	}
	formatVer := encoding.DecodeFixed16(header[4:6])
	if formatVer != FormatVer {
		f.Close()
		return nil, fmt.Errorf("%w: %s has version %d", ErrUnsupportedVersion, path, formatVer)
	}
	firstRecordID := encoding.DecodeFixed64(header[8:16])

	return &DataFile{
		id:            id,
		firstRecordID: firstRecordID,
		csType:        csType,
		r:             f,
		readSize:      int64(HeaderSize),
	}, nil
}

// OpenForAppend reopens an existing data file for continued writing after
// a restart, preserving its already-written records. vfs.FS only exposes
// truncating creation and read-only opens, so this reads the file's
// current bytes and rewrites them through Create before resuming appends
// -- the same "rewrite in place" shape the ledger uses for its much
// smaller file, traded here against the simplicity of not widening the
// vfs.FS interface for a rare, restart-only code path.
func OpenForAppend(fsys vfs.FS, path string, id uint64, maxSize int64, csType checksum.Type) (*DataFile, error) {
	existing, err := readWholeFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("segment: reopen %s: %w", path, err)
	}
	if len(existing) < HeaderSize {
		return nil, fmt.Errorf("%w: %s truncated below header size", ErrBadMagic, path)
	}

	magic := encoding.DecodeFixed32(existing[0:4])
	if magic != MagicWrite {
		return nil, fmt.Errorf("%w: %s", ErrBadMagic, path)
	}
	formatVer := encoding.DecodeFixed16(existing[4:6])
	if formatVer != FormatVer {
		return nil, fmt.Errorf("%w: %s has version %d", ErrUnsupportedVersion, path, formatVer)
	}
	firstRecordID := encoding.DecodeFixed64(existing[8:16])

	f, err := fsys.Create(path)
	if err != nil {
		return nil, fmt.Errorf("segment: recreate %s: %w", path, err)
	}
	if err := f.Append(existing); err != nil {
		f.Close()
		return nil, fmt.Errorf("segment: rewrite %s: %w", path, err)
	}

	return &DataFile{
		id:            id,
		firstRecordID: firstRecordID,
		maxSize:       maxSize,
		csType:        csType,
		w:             f,
		writeSize:     int64(len(existing)),
	}, nil
}

func readWholeFile(fsys vfs.FS, path string) ([]byte, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, err
	}
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, info.Size())
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ID returns the segment's own file id.
func (d *DataFile) ID() uint64 { return d.id }

// FirstRecordID returns the record id the segment's first Record carries.
func (d *DataFile) FirstRecordID() uint64 { return d.firstRecordID }

// WriteSize returns the number of bytes written so far, including the header.
func (d *DataFile) WriteSize() int64 { return d.writeSize }

// Append writes one already-framed Record (as produced by record.Encode)
// to the file. It returns ErrFull, with no partial write, when appending
// would exceed the file's size cap.
func (d *DataFile) Append(frameBytes []byte) (int, error) {
	testutil.MaybeKill(testutil.KPSegmentAppend0)

	if d.maxSize > 0 && d.writeSize+int64(len(frameBytes)) > d.maxSize {
		return 0, ErrFull
	}

	if err := d.w.Append(frameBytes); err != nil {
		return 0, fmt.Errorf("segment: append: %w", err)
	}
	d.writeSize += int64(len(frameBytes))
	return len(frameBytes), nil
}

// ReadNext returns the next Record frame's raw bytes, or (nil, nil) at a
// clean end of file. A malformed or truncated trailing frame is also
// reported as (nil, nil): the writer guarantees it never leaves a torn
// record followed by valid data, so any parse failure here means "this is
// as far as a crash let the writer get."
func (d *DataFile) ReadNext() ([]byte, error) {
	header := make([]byte, record.HeaderSize)
	n, err := io.ReadFull(d.r, header)
	if err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return nil, nil
		}
		// Partial header: truncated tail, treat as EOF.
		return nil, nil
	}

	payloadLen := encoding.DecodeFixed32(header[2:6])
	frame := make([]byte, record.HeaderSize+int(payloadLen))
	copy(frame, header)
	if _, err := io.ReadFull(d.r, frame[record.HeaderSize:]); err != nil {
		// Truncated payload: torn write, treat as EOF.
		return nil, nil
	}

	wantCRC := encoding.DecodeFixed32(header[6:10])
	if checksum.Of(d.csType, frame[record.HeaderSize:]) != wantCRC {
		// Corrupt payload at the tail: treat as EOF.
		return nil, nil
	}

	d.readSize += int64(len(frame))
	return frame, nil
}

// Sync flushes the data file to durable storage.
func (d *DataFile) Sync() error {
	testutil.MaybeKill(testutil.KPSegmentSync0)
	if d.w == nil {
		return nil
	}
	if err := d.w.Sync(); err != nil {
		return fmt.Errorf("segment: sync: %w", err)
	}
	testutil.MaybeKill(testutil.KPSegmentSync1)
	return nil
}

// Close closes the underlying file handle.
func (d *DataFile) Close() error {
	if d.w != nil {
		return d.w.Close()
	}
	if d.r != nil {
		return d.r.Close()
	}
	return nil
}
