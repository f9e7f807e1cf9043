package hashing

import (
	"bytes"
	"strings"
	"testing"
)

func TestSumDeterministic(t *testing.T) {
	payload := []byte("the same bytes every time")
	first := Sum(payload)
	second := Sum(append([]byte(nil), payload...))
	if first != second {
		t.Fatalf("equal buffers produced different fingerprints: %s vs %s", first, second)
	}
	if len(first) != DigestHexLen {
		t.Fatalf("fingerprint length = %d, want %d", len(first), DigestHexLen)
	}
	if strings.ToLower(first) != first {
		t.Fatalf("fingerprint is not lowercase hex: %s", first)
	}
}

func TestSumDistinctBuffers(t *testing.T) {
	seen := make(map[string][]byte)
	buffers := [][]byte{
		[]byte(""),
		[]byte("a"),
		[]byte("b"),
		bytes.Repeat([]byte{0x89, 0x50, 0x4e, 0x47}, 300),
		bytes.Repeat([]byte{0x89, 0x50, 0x4e, 0x47}, 301),
		bytes.Repeat([]byte{0xff, 0xd8, 0xff}, 400),
	}
	for _, buf := range buffers {
		sum := Sum(buf)
		if prev, ok := seen[sum]; ok && !bytes.Equal(prev, buf) {
			t.Fatalf("distinct buffers collided on fingerprint %s", sum)
		}
		seen[sum] = buf
	}
}

func TestSumReaderMatchesSum(t *testing.T) {
	payload := bytes.Repeat([]byte("image-bytes"), 4096)
	fromReader, err := SumReader(bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("SumReader: %v", err)
	}
	if direct := Sum(payload); direct != fromReader {
		t.Fatalf("streaming fingerprint %s != buffered fingerprint %s", fromReader, direct)
	}
}
