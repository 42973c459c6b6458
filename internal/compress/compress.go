// Package compress defines the incremental deflate/inflate state machine
// surface shared by the RLE and LZ variants (spec.md §4.4). The engine is
// purely transformational: it is driven by three calls per message and
// never blocks.
package compress

// Type selects which algorithm a frame's blocks use. Per spec.md §9 Open
// Question (c), the two are not interchangeable within one stream; a
// frame's Type is fixed for its whole lifetime.
type Type int

const (
	TypeRLE Type = iota
	TypeLZ
)

// Config configures a Deflater/Inflater pair.
type Config struct {
	Type Type
}

// DeflateContext accumulates progress across deflateBegin/Next/End calls.
type DeflateContext struct {
	BytesRead    int
	BytesWritten int
	Checksum     uint32
}

// InflateContext accumulates progress across InflateNext calls.
type InflateContext struct {
	BytesRead    int
	BytesWritten int
}

// Deflater is the incremental compressor surface. Implementations must
// be safe to reuse for many frames provided Begin/Next/End are called in
// order and End is always reached before the next Begin.
type Deflater interface {
	// DeflateBegin records the header position in out and resets the
	// running checksum/length accumulators.
	DeflateBegin(ctx *DeflateContext, out *[]byte) error

	// DeflateNext consumes in and appends encoded blocks to out. It is
	// idempotent for an empty in.
	DeflateNext(ctx *DeflateContext, out *[]byte, in []byte) error

	// DeflateEnd patches the header in place with the final length and
	// checksum and appends the footer.
	DeflateEnd(ctx *DeflateContext, out *[]byte) error
}

// Inflater is the incremental decompressor surface. Feeding it the bytes
// produced by a matching Deflater in any chunking must reproduce the
// original input exactly (spec.md §8 "Chunked inflation invariance").
type Inflater interface {
	// InflateNext appends any available input to the engine's internal
	// queue and drains as much decoded output as the current state
	// permits, appending it to out.
	InflateNext(ctx *InflateContext, out *[]byte, in []byte) error

	// Err returns the sticky error if the engine has entered the Error
	// state, or nil otherwise.
	Err() error

	// Reset clears the engine back to WantHeader, discarding any
	// buffered partial frame. Used after an Err() to recover for a new
	// stream.
	Reset()
}
