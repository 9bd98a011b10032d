package engine

import (
	"bytes"
	"testing"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	src := bytes.Repeat([]byte("the quick brown fox "), 50)
	out, ok := compressTag(src, 6)
	if !ok {
		t.Fatal("expected repetitive input to compress")
	}
	if len(out) >= len(src) {
		t.Fatalf("compressed size %d not smaller than %d", len(out), len(src))
	}
	dec, err := decompressTag(out)
	if err != nil {
		t.Fatalf("decompressTag: %v", err)
	}
	if !bytes.Equal(dec, src) {
		t.Fatal("round trip mismatch")
	}
}

func TestCompressRejectsIncompressibleData(t *testing.T) {
	src := []byte{0x01, 0x9f, 0x3c, 0x77, 0xd2, 0x5e, 0x8a, 0x13, 0xc4, 0x6b, 0xf0, 0x27, 0x99, 0x4d, 0xb8, 0x62}
	if _, ok := compressTag(src, 6); ok {
		t.Fatal("did not expect tiny/incompressible input to compress")
	}
}

func TestCompressSkipsShortPayloads(t *testing.T) {
	if _, ok := compressTag([]byte("ab"), 6); ok {
		t.Fatal("expected payload shorter than compressMin to be skipped")
	}
}

func TestCompressSkipsPayloadExactlyAtMinimum(t *testing.T) {
	src := bytes.Repeat([]byte{0xaa}, compressMin)
	if _, ok := compressTag(src, 6); ok {
		t.Fatal("expected a payload of exactly compressMin bytes to be skipped")
	}
}
