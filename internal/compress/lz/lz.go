// Package lz declares the LZ-family compression variant's surface per
// spec.md §4.4: "interface only" — the on-wire token layout (literal-run
// length plus {offset, length} match) is fixed so it shares a frame
// envelope with the RLE variant, but the sliding-window match finder
// itself is out of scope for this core and is not implemented.
package lz

import (
	"reactornet/internal/compress"
	"reactornet/nterr"
)

// Token is one emission of the LZ token stream: a run of literal bytes
// followed by an optional back-reference match.
type Token struct {
	LiteralLen uint16
	MatchOffset uint16 // 0 when there is no trailing match
	MatchLen    uint16
}

// Window and MinMatch are the sliding-window parameters named in
// spec.md §4.4; they constrain the wire-compatible token layout even
// though the match finder that would use them is unimplemented here.
const (
	Window   = 65536
	MinMatch = 4
)

// Encoder would implement compress.Deflater for the LZ variant. Every
// method returns Unsupported: the match-finder body is explicitly out of
// this core's scope (spec.md §4.4 names it "interface only").
type Encoder struct{}

var _ compress.Deflater = (*Encoder)(nil)

func (e *Encoder) DeflateBegin(ctx *compress.DeflateContext, out *[]byte) error {
	return nterr.New("lz.Encoder.DeflateBegin", nterr.Unsupported)
}

func (e *Encoder) DeflateNext(ctx *compress.DeflateContext, out *[]byte, in []byte) error {
	return nterr.New("lz.Encoder.DeflateNext", nterr.Unsupported)
}

func (e *Encoder) DeflateEnd(ctx *compress.DeflateContext, out *[]byte) error {
	return nterr.New("lz.Encoder.DeflateEnd", nterr.Unsupported)
}

// Decoder would implement compress.Inflater for the LZ variant; same
// scope note as Encoder.
type Decoder struct{}

var _ compress.Inflater = (*Decoder)(nil)

func (d *Decoder) InflateNext(ctx *compress.InflateContext, out *[]byte, in []byte) error {
	return nterr.New("lz.Decoder.InflateNext", nterr.Unsupported)
}

func (d *Decoder) Err() error { return nterr.New("lz.Decoder", nterr.Unsupported) }

func (d *Decoder) Reset() {}
