package frame_test

import (
	"testing"

	"reactornet/internal/frame"
	"reactornet/nterr"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := frame.Header{Length: 16, Flags: 0, Checksum: 0xdeadbeef}
	buf := make([]byte, frame.HeaderSize)
	n, err := h.Encode(buf)
	if err != nil || n != frame.HeaderSize {
		t.Fatalf("Encode() = %d,%v", n, err)
	}

	var got frame.Header
	n, err = got.Decode(buf)
	if err != nil || n != frame.HeaderSize {
		t.Fatalf("Decode() = %d,%v", n, err)
	}
	if got != h {
		t.Fatalf("Decode() = %+v, want %+v", got, h)
	}
}

func TestHeaderDecodeWouldBlock(t *testing.T) {
	var h frame.Header
	_, err := h.Decode(make([]byte, frame.HeaderSize-1))
	if !nterr.Is(err, nterr.WouldBlock) {
		t.Fatalf("Decode() short buffer = %v, want WouldBlock", err)
	}
}

func TestHeaderDecodeInvalidMagic(t *testing.T) {
	buf := make([]byte, frame.HeaderSize)
	var h frame.Header
	_, err := h.Decode(buf) // all zero, wrong magic
	if !nterr.Is(err, nterr.Invalid) {
		t.Fatalf("Decode() bad magic = %v, want Invalid", err)
	}
}

func TestBlockRoundTripRaw(t *testing.T) {
	b := frame.Block{Length: 10, Flags: frame.BlockFlagRaw}
	buf := make([]byte, frame.BlockSize)
	if _, err := b.Encode(buf); err != nil {
		t.Fatal(err)
	}
	var got frame.Block
	if _, err := got.Decode(buf); err != nil {
		t.Fatal(err)
	}
	if !got.IsRaw() || got.Length != 10 {
		t.Fatalf("got %+v", got)
	}
}

func TestBlockDecodeInvalidFlags(t *testing.T) {
	buf := []byte{0, 0, 0, 0xFF}
	var b frame.Block
	_, err := b.Decode(buf)
	if !nterr.Is(err, nterr.Invalid) {
		t.Fatalf("Decode() bad flags = %v, want Invalid", err)
	}
}

func TestFooterRoundTrip(t *testing.T) {
	f := frame.Footer{Checksum: 0x1234}
	buf := make([]byte, frame.FooterSize)
	if _, err := f.Encode(buf); err != nil {
		t.Fatal(err)
	}
	var got frame.Footer
	if _, err := got.Decode(buf); err != nil {
		t.Fatal(err)
	}
	if got != f {
		t.Fatalf("got %+v, want %+v", got, f)
	}
}
