package codec_test

import (
	"bytes"
	"testing"

	"reactornet/internal/compress"
	"reactornet/internal/compress/codec"
)

func TestNewDeflaterRLERoundTrip(t *testing.T) {
	enc := codec.NewDeflater(compress.Config{Type: compress.TypeRLE})
	dec := codec.NewInflater(compress.Config{Type: compress.TypeRLE})

	var dctx compress.DeflateContext
	var buf []byte
	enc.DeflateBegin(&dctx, &buf)
	enc.DeflateNext(&dctx, &buf, []byte("aabbccdd"))
	enc.DeflateEnd(&dctx, &buf)

	var ictx compress.InflateContext
	var out []byte
	if err := dec.InflateNext(&ictx, &out, buf); err != nil {
		t.Fatalf("InflateNext: %v", err)
	}
	if !bytes.Equal(out, []byte("aabbccdd")) {
		t.Fatalf("got %q", out)
	}
}

func TestNewDeflaterLZIsUnsupported(t *testing.T) {
	enc := codec.NewDeflater(compress.Config{Type: compress.TypeLZ})
	var dctx compress.DeflateContext
	var buf []byte
	if err := enc.DeflateBegin(&dctx, &buf); err == nil {
		t.Fatal("expected the LZ variant to report Unsupported")
	}
}
