// Package record implements the on-disk framing for a single buffered
// Event: a small fixed header, a checksum over the payload, and the
// payload itself. It is the unit DataFile appends and reads back.
//
// Frame layout (little-endian):
//
//	schema_ver  u16
//	payload_len u32
//	checksum    u32   (over payload only, algorithm chosen by the caller)
//	payload     [payload_len]byte
package record

import (
	"errors"
	"math"

	"github.com/driftloom/evbuf/event"
	"github.com/driftloom/evbuf/internal/checksum"
	"github.com/driftloom/evbuf/internal/compression"
	"github.com/driftloom/evbuf/internal/encoding"
	"github.com/driftloom/evbuf/internal/mempool"
)

// SchemaVer is the only payload schema this build understands. A Reader
// encountering a higher value surfaces ErrUnknownSchema rather than
// guessing at the layout.
const SchemaVer uint16 = 1

// HeaderSize is the size in bytes of the fixed frame header (schema_ver +
// payload_len + crc32c), preceding the payload.
const HeaderSize = 2 + 4 + 4

var (
	// ErrTruncated indicates buf did not contain a complete frame.
	ErrTruncated = errors.New("record: truncated")
	// ErrBadCRC indicates the payload's CRC32C does not match the stored value.
	ErrBadCRC = errors.New("record: bad crc")
	// ErrUnknownSchema indicates a schema_ver this build does not understand.
	ErrUnknownSchema = errors.New("record: unknown schema version")
	// ErrMalformed indicates a structurally invalid frame (e.g. a payload_len
	// that does not fit in the remaining bytes even before Truncated applies).
	ErrMalformed = errors.New("record: malformed")
	// ErrTooLarge indicates the encoded payload would exceed the maximum
	// representable payload_len.
	ErrTooLarge = errors.New("record: event too large to encode")
)

// Encode encodes e into a freshly allocated frame: header, then the
// (possibly compressed) payload. The checksum is computed over the
// payload and folded into the header before Encode returns.
//
// comp selects payload compression (see payload.go); compression.NoCompression
// keeps the codec's default self-describing behaviour. csType selects the
// checksum algorithm folded into the header; it must match the csType a
// corresponding Decode call uses, since the header carries no algorithm tag.
func Encode(e event.Event, comp compression.Type, csType checksum.Type) ([]byte, error) {
	payload, err := encodePayload(e, comp)
	if err != nil {
		return nil, err
	}
	if len(payload) > math.MaxUint32 {
		return nil, ErrTooLarge
	}

	buf := mempool.GlobalPool.Get(HeaderSize + len(payload))
	buf = buf[:HeaderSize+len(payload)]
	encoding.EncodeFixed16(buf[0:2], SchemaVer)
	encoding.EncodeFixed32(buf[2:6], uint32(len(payload)))
	encoding.EncodeFixed32(buf[6:10], checksum.Of(csType, payload))
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// Release returns a frame previously produced by Encode to the shared
// buffer pool. Callers that hand the frame to a DataFile.Append (which
// copies or synchronously writes it) can call Release once the append
// completes to avoid a fresh allocation on the next Encode of a similar
// size. Release is optional: passing a frame not obtained from Encode, or
// not calling Release at all, is always safe.
func Release(frame []byte) {
	mempool.GlobalPool.Put(frame)
}

// Decode parses one frame from the front of buf, returning the decoded
// Event and the number of bytes consumed. It returns ErrTruncated if buf
// does not yet contain a full frame (the caller should read more, or, for
// a DataFile at EOF, treat this as a clean end). csType must match the
// algorithm the frame was encoded with.
func Decode(buf []byte, csType checksum.Type) (event.Event, int, error) {
	if len(buf) < HeaderSize {
		return event.Event{}, 0, ErrTruncated
	}

	schemaVer := encoding.DecodeFixed16(buf[0:2])
	payloadLen := encoding.DecodeFixed32(buf[2:6])
	wantCRC := encoding.DecodeFixed32(buf[6:10])

	if schemaVer != SchemaVer {
		return event.Event{}, 0, ErrUnknownSchema
	}

	total := HeaderSize + int(payloadLen)
	if total < HeaderSize {
		// payloadLen overflowed int on a 32-bit platform.
		return event.Event{}, 0, ErrMalformed
	}
	if len(buf) < total {
		return event.Event{}, 0, ErrTruncated
	}

	payload := buf[HeaderSize:total]
	if checksum.Of(csType, payload) != wantCRC {
		return event.Event{}, 0, ErrBadCRC
	}

	ev, err := decodePayload(payload)
	if err != nil {
		return event.Event{}, 0, ErrMalformed
	}
	return ev, total, nil
}
