package lz_test

import (
	"testing"

	"reactornet/internal/compress"
	"reactornet/internal/compress/lz"
	"reactornet/nterr"
)

func TestEncoderIsUnsupported(t *testing.T) {
	var enc lz.Encoder
	var ctx compress.DeflateContext
	var out []byte
	if err := enc.DeflateBegin(&ctx, &out); !nterr.Is(err, nterr.Unsupported) {
		t.Fatalf("DeflateBegin = %v, want Unsupported", err)
	}
}

func TestDecoderIsUnsupported(t *testing.T) {
	var dec lz.Decoder
	var ctx compress.InflateContext
	var out []byte
	if err := dec.InflateNext(&ctx, &out, []byte("x")); !nterr.Is(err, nterr.Unsupported) {
		t.Fatalf("InflateNext = %v, want Unsupported", err)
	}
}
