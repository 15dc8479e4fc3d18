// compression_adversarial_test.go exercises corrupted/garbage input against
// every supported compression algorithm, to make sure a bad payload fails
// cleanly instead of panicking the Reader.
package compression

import (
	"bytes"
	"testing"
)

// TestAdversarial_AllCompressionTypesWithCorruptedInput tests that all
// compression types handle corrupted input gracefully.
func TestAdversarial_AllCompressionTypesWithCorruptedInput(t *testing.T) {
	types := []Type{
		SnappyCompression,
		LZ4Compression,
		ZstdCompression,
	}

	garbage := bytes.Repeat([]byte{0xDE, 0xAD, 0xBE, 0xEF}, 100)

	for _, ct := range types {
		t.Run(ct.String(), func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Panic with corrupted %s input: %v", ct, r)
				}
			}()

			_, err := Decompress(ct, garbage)
			// Should fail but not panic
			if err != nil {
				t.Logf("%s with garbage: error = %v (expected)", ct, err)
			}
		})
	}
}

// TestAdversarial_TruncatedLZ4Block tests LZ4 decompression of a truncated
// compressed block with a known expected size.
func TestAdversarial_TruncatedLZ4Block(t *testing.T) {
	data := bytes.Repeat([]byte("test data for compression "), 100)

	compressed, err := Compress(LZ4Compression, data)
	if err != nil {
		t.Fatalf("Compress error: %v", err)
	}

	truncPoints := []int{1, 5, 10, len(compressed) / 2, len(compressed) - 1}
	for _, truncAt := range truncPoints {
		if truncAt >= len(compressed) {
			continue
		}
		truncated := compressed[:truncAt]
		_, err := DecompressWithSize(LZ4Compression, truncated, len(data))
		if err == nil {
			t.Errorf("truncation at %d bytes: expected error, got none", truncAt)
		}
	}
}

// TestAdversarial_TruncatedZstdFrame tests zstd decompression of a
// truncated frame.
func TestAdversarial_TruncatedZstdFrame(t *testing.T) {
	data := bytes.Repeat([]byte("test data for compression "), 100)

	compressed, err := Compress(ZstdCompression, data)
	if err != nil {
		t.Fatalf("Compress error: %v", err)
	}

	truncated := compressed[:len(compressed)/2]
	if _, err := Decompress(ZstdCompression, truncated); err == nil {
		t.Errorf("expected error decompressing truncated zstd frame")
	}
}
