package rle_test

import (
	"bytes"
	"testing"

	"reactornet/internal/compress"
	"reactornet/internal/compress/rle"
	"reactornet/internal/frame"
)

func deflateAll(t *testing.T, input []byte) []byte {
	t.Helper()
	var enc rle.Encoder
	var ctx compress.DeflateContext
	var out []byte

	if err := enc.DeflateBegin(&ctx, &out); err != nil {
		t.Fatalf("DeflateBegin: %v", err)
	}
	if err := enc.DeflateNext(&ctx, &out, input); err != nil {
		t.Fatalf("DeflateNext: %v", err)
	}
	if err := enc.DeflateEnd(&ctx, &out); err != nil {
		t.Fatalf("DeflateEnd: %v", err)
	}
	return out
}

func inflateAll(t *testing.T, chunks [][]byte) []byte {
	t.Helper()
	dec := rle.NewDecoder()
	var ctx compress.InflateContext
	var out []byte
	for _, c := range chunks {
		if err := dec.InflateNext(&ctx, &out, c); err != nil {
			t.Fatalf("InflateNext: %v", err)
		}
	}
	return out
}

// Scenario 1: RLE round trip, spec.md §8.
func TestRLERoundTripLiteral(t *testing.T) {
	input := []byte("abbcccddddeeeffg")
	deflated := deflateAll(t, input)

	var hdr frame.Header
	if _, err := hdr.Decode(deflated); err != nil {
		t.Fatalf("header decode: %v", err)
	}
	if hdr.Length != uint32(len(input)) {
		t.Fatalf("header length = %d, want %d", hdr.Length, len(input))
	}

	got := inflateAll(t, [][]byte{deflated})
	if !bytes.Equal(got, input) {
		t.Fatalf("round trip = %q, want %q", got, input)
	}
}

// Scenario 2: chunked inflate, one byte at a time, spec.md §8.
func TestChunkedInflateOneByteAtATime(t *testing.T) {
	input := []byte("abbcccddddeeeffg")
	deflated := deflateAll(t, input)

	var chunks [][]byte
	for _, b := range deflated {
		chunks = append(chunks, []byte{b})
	}
	got := inflateAll(t, chunks)
	if !bytes.Equal(got, input) {
		t.Fatalf("chunked round trip = %q, want %q", got, input)
	}
}

func TestRoundTripArbitraryInputs(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		{0x42},
		[]byte("aaaaaaaaaa"),
		[]byte("abcdefghij"),
		[]byte("aabbccddeeffgg"),
		bytes.Repeat([]byte{0xFF}, 70000), // exceeds a uint16 RLE run length
		[]byte("xyzyxyzyx"),
	}
	for i, c := range cases {
		deflated := deflateAll(t, c)
		got := inflateAll(t, [][]byte{deflated})
		if !bytes.Equal(got, c) {
			t.Fatalf("case %d: round trip = %q, want %q", i, got, c)
		}
	}
}

func TestChunkedInflateInvarianceAcrossPartitions(t *testing.T) {
	input := []byte("the quick brown fox jumps over the lazy dog, 11222333")
	deflated := deflateAll(t, input)

	whole := inflateAll(t, [][]byte{deflated})

	partitionSizes := []int{1, 2, 3, 5, 7}
	for _, size := range partitionSizes {
		var chunks [][]byte
		for i := 0; i < len(deflated); i += size {
			end := i + size
			if end > len(deflated) {
				end = len(deflated)
			}
			chunks = append(chunks, deflated[i:end])
		}
		got := inflateAll(t, chunks)
		if !bytes.Equal(got, whole) {
			t.Fatalf("partition size %d diverged from whole-feed output", size)
		}
	}
}

func TestHeaderChecksumEqualsPayloadChecksum(t *testing.T) {
	input := []byte("abbcccddddeeeffg")
	var enc rle.Encoder
	var ctx compress.DeflateContext
	var out []byte
	enc.DeflateBegin(&ctx, &out)
	enc.DeflateNext(&ctx, &out, input)
	enc.DeflateEnd(&ctx, &out)

	var hdr frame.Header
	hdr.Decode(out)

	expected := compress.CRC32C(0, input)
	if hdr.Checksum != expected {
		t.Fatalf("header checksum = %x, want %x", hdr.Checksum, expected)
	}
	if ctx.Checksum != expected {
		t.Fatalf("ctx.Checksum = %x, want %x", ctx.Checksum, expected)
	}
}

func TestCorruptedChecksumRejected(t *testing.T) {
	input := []byte("abbcccddddeeeffg")
	deflated := deflateAll(t, input)

	// Flip a byte inside the footer checksum.
	corrupt := append([]byte(nil), deflated...)
	corrupt[len(corrupt)-1] ^= 0xFF

	dec := rle.NewDecoder()
	var ctx compress.InflateContext
	var out []byte
	err := dec.InflateNext(&ctx, &out, corrupt)
	if err == nil {
		t.Fatal("expected an error from a corrupted footer checksum")
	}
	if dec.Err() == nil {
		t.Fatal("decoder should be stuck in the Error state")
	}

	// Further input must be refused once in the Error state.
	err2 := dec.InflateNext(&ctx, &out, []byte{0})
	if err2 == nil {
		t.Fatal("decoder should keep refusing input after entering Error")
	}
}

func TestIdempotentEmptyDeflateNext(t *testing.T) {
	var enc rle.Encoder
	var ctx compress.DeflateContext
	var out []byte
	enc.DeflateBegin(&ctx, &out)
	before := append([]byte(nil), out...)
	enc.DeflateNext(&ctx, &out, nil)
	enc.DeflateNext(&ctx, &out, []byte{})
	if !bytes.Equal(out, before) {
		t.Fatal("DeflateNext with empty input must not change out")
	}
}
