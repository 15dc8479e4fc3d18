package record

import (
	"github.com/driftloom/evbuf/event"
	"github.com/driftloom/evbuf/internal/compression"
	"github.com/driftloom/evbuf/internal/encoding"
)

// encodePayload produces a Record's payload: a one-byte compression tag,
// followed (when compressed) by a varint of the uncompressed length LZ4
// needs to size its decode buffer, followed by the (possibly compressed)
// Event encoding. Compression is off by default so the codec remains
// self-describing and round-trips by value equality regardless of the
// selected algorithm.
func encodePayload(e event.Event, comp compression.Type) ([]byte, error) {
	raw, err := e.MarshalBinary()
	if err != nil {
		return nil, err
	}

	if comp == compression.NoCompression {
		out := make([]byte, 0, 1+len(raw))
		out = append(out, byte(comp))
		out = append(out, raw...)
		return out, nil
	}

	compressed, err := compression.Compress(comp, raw)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, 1+encoding.MaxVarint64Length+len(compressed))
	out = append(out, byte(comp))
	out = encoding.AppendVarint64(out, uint64(len(raw)))
	out = append(out, compressed...)
	return out, nil
}

// decodePayload reverses encodePayload.
func decodePayload(payload []byte) (event.Event, error) {
	if len(payload) < 1 {
		return event.Event{}, ErrMalformed
	}
	tag := compression.Type(payload[0])
	body := payload[1:]

	raw := body
	if tag != compression.NoCompression {
		uncompressedLen, n, err := encoding.DecodeVarint64(body)
		if err != nil {
			return event.Event{}, ErrMalformed
		}
		decompressed, err := compression.DecompressWithSize(tag, body[n:], int(uncompressedLen))
		if err != nil {
			return event.Event{}, err
		}
		raw = decompressed
	}

	var ev event.Event
	if err := ev.UnmarshalBinary(raw); err != nil {
		return event.Event{}, err
	}
	return ev, nil
}
