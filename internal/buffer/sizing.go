package buffer

import (
	"github.com/driftloom/evbuf/event"
	"github.com/driftloom/evbuf/internal/checksum"
	"github.com/driftloom/evbuf/internal/record"
	"github.com/driftloom/evbuf/internal/segment"
)

// frameSizeOf returns the on-disk size of e encoded as an uncompressed
// Record frame, letting callers size a data file to hold an exact number
// of fixed-size records.
func frameSizeOf(e event.Event) (int, error) {
	frame, err := record.Encode(e, 0, checksum.TypeCRC32C)
	if err != nil {
		return 0, err
	}
	return len(frame), nil
}

// segmentHeaderSize returns the fixed size of a data file's header.
func segmentHeaderSize() int {
	return segment.HeaderSize
}
