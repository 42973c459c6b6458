// Package rle implements the run-length compression variant described in
// spec.md §4.4, grounded on the three-state deflate machine (START / SAME
// / DIFFERENT) and the four-state inflate machine (WantHeader / WantBlock
// / WantFooter / Error) from the original ntcd_compression.cpp
// CompressionEncoderRle/CompressionDecoderRle.
package rle

import (
	"reactornet/internal/bytequeue"
	"reactornet/internal/compress"
	"reactornet/internal/frame"
	"reactornet/nterr"
)

type runMode int

const (
	modeDefault runMode = iota // exactly one byte buffered (runStart), mode undetermined
	modeSame
	modeDifferent
)

// maxBlockLength is the largest run a single block can describe; the
// wire length field is a u16.
const maxBlockLength = 65535

// Encoder is the RLE Deflater. The zero value is ready to use.
type Encoder struct {
	headerPos    int
	contentBytes int
	crc          uint32
	started      bool
	mode         runMode

	runStart byte   // first byte of the currently open run
	runLen   int    // valid when mode == modeSame: count of identical bytes so far
	diffBuf  []byte // valid when mode == modeDifferent: raw bytes of the open run so far
}

var _ compress.Deflater = (*Encoder)(nil)

// DeflateBegin implements compress.Deflater.
func (e *Encoder) DeflateBegin(ctx *compress.DeflateContext, out *[]byte) error {
	e.headerPos = len(*out)
	e.contentBytes = 0
	e.crc = 0
	e.started = false
	e.mode = modeDefault
	e.runLen = 0
	e.diffBuf = nil

	placeholder := make([]byte, frame.HeaderSize)
	*out = append(*out, placeholder...)
	ctx.BytesWritten += frame.HeaderSize
	return nil
}

// DeflateNext implements compress.Deflater, running the per-run state
// machine documented in spec.md §4.4.
func (e *Encoder) DeflateNext(ctx *compress.DeflateContext, out *[]byte, in []byte) error {
	if len(in) == 0 {
		return nil
	}

	e.crc = compress.CRC32C(e.crc, in)
	ctx.BytesRead += len(in)

	for _, b := range in {
		if !e.started {
			e.started = true
			e.mode = modeDefault
			e.runStart = b
			continue
		}

		switch e.mode {
		case modeDefault:
			if b == e.runStart {
				e.mode = modeSame
				e.runLen = 2
			} else {
				e.mode = modeDifferent
				e.diffBuf = []byte{e.runStart, b}
			}

		case modeSame:
			if b == e.runStart {
				e.runLen++
				// A block's length field is a u16; split a run that
				// hits the limit into successive RLE blocks rather
				// than truncating or overflowing it.
				if e.runLen == maxBlockLength {
					e.emitRLE(ctx, out, e.runStart, e.runLen)
					e.runLen = 0
				}
			} else {
				// Run of identical bytes just ended: emit one RLE
				// block and start a fresh undetermined run at b.
				if e.runLen > 0 {
					e.emitRLE(ctx, out, e.runStart, e.runLen)
				}
				e.mode = modeDefault
				e.runStart = b
			}

		case modeDifferent:
			prev := e.diffBuf[len(e.diffBuf)-1]
			if b == prev {
				// Two consecutive equal bytes close the open RAW run
				// up to (but excluding) the previous byte, then a
				// SAME run begins at the previous byte.
				e.emitRaw(ctx, out, e.diffBuf[:len(e.diffBuf)-1])
				e.mode = modeSame
				e.runStart = prev
				e.runLen = 2
				e.diffBuf = nil
			} else {
				e.diffBuf = append(e.diffBuf, b)
				if len(e.diffBuf) == maxBlockLength {
					// The run's last byte is always provisional: it may
					// yet turn out to start the next SAME run, so only
					// the bytes before it are committed to this block.
					e.emitRaw(ctx, out, e.diffBuf[:len(e.diffBuf)-1])
					e.diffBuf = []byte{b}
				}
			}
		}
	}

	return nil
}

// DeflateEnd implements compress.Deflater: flush any open run, patch the
// header in place, and append the footer.
func (e *Encoder) DeflateEnd(ctx *compress.DeflateContext, out *[]byte) error {
	if e.started {
		switch e.mode {
		case modeSame:
			if e.runLen > 0 {
				e.emitRLE(ctx, out, e.runStart, e.runLen)
			}
		case modeDifferent:
			if len(e.diffBuf) > 0 {
				e.emitRaw(ctx, out, e.diffBuf)
			}
		default: // modeDefault: a single byte was never compared to a follower
			e.emitRaw(ctx, out, []byte{e.runStart})
		}
		e.started = false
		e.mode = modeDefault
		e.runLen = 0
		e.diffBuf = nil
	}

	ctx.Checksum = e.crc

	hdr := frame.Header{Length: uint32(e.contentBytes), Flags: 0, Checksum: e.crc}
	hdrBuf := make([]byte, frame.HeaderSize)
	if _, err := hdr.Encode(hdrBuf); err != nil {
		return err
	}
	copy((*out)[e.headerPos:e.headerPos+frame.HeaderSize], hdrBuf)

	footer := frame.Footer{Checksum: e.crc}
	footerBuf := make([]byte, frame.FooterSize)
	n, err := footer.Encode(footerBuf)
	if err != nil {
		return err
	}
	*out = append(*out, footerBuf[:n]...)
	ctx.BytesWritten += n

	e.contentBytes = 0
	e.crc = 0
	return nil
}

// emitRLE appends one RLE block. The header's payload-length field counts
// logical (decoded) bytes, so it accrues by the run length, not by the
// four wire bytes the block record itself occupies.
func (e *Encoder) emitRLE(ctx *compress.DeflateContext, out *[]byte, literal byte, length int) {
	block := frame.Block{Length: uint16(length), Literal: literal, Flags: frame.BlockFlagRLE}
	buf := make([]byte, frame.BlockSize)
	n, _ := block.Encode(buf)
	*out = append(*out, buf[:n]...)
	e.contentBytes += length
	ctx.BytesWritten += n
}

func (e *Encoder) emitRaw(ctx *compress.DeflateContext, out *[]byte, data []byte) {
	block := frame.Block{Length: uint16(len(data)), Flags: frame.BlockFlagRaw}
	buf := make([]byte, frame.BlockSize)
	n, _ := block.Encode(buf)
	*out = append(*out, buf[:n]...)
	*out = append(*out, data...)
	e.contentBytes += len(data)
	ctx.BytesWritten += n + len(data)
}

// inflateState is the four-state machine documented in spec.md §4.4.
type inflateState int

const (
	stateWantHeader inflateState = iota
	stateWantBlock
	stateWantFooter
	stateError
)

// Decoder is the RLE Inflater. Use NewDecoder; the zero value is not
// ready to use (it needs an initialized input queue).
type Decoder struct {
	state inflateState
	err   error

	input *bytequeue.Queue

	header      frame.Header
	contentLeft uint32
	runningCRC  uint32
}

var _ compress.Inflater = (*Decoder)(nil)

// NewDecoder returns a ready-to-use RLE Inflater.
func NewDecoder() *Decoder {
	return &Decoder{input: bytequeue.New(0)}
}

// Err implements compress.Inflater.
func (d *Decoder) Err() error { return d.err }

// Reset implements compress.Inflater.
func (d *Decoder) Reset() {
	d.state = stateWantHeader
	d.err = nil
	d.input = bytequeue.New(0)
	d.header = frame.Header{}
	d.contentLeft = 0
	d.runningCRC = 0
}

func (d *Decoder) fail(err error) error {
	d.state = stateError
	d.err = err
	return err
}

// InflateNext implements compress.Inflater.
func (d *Decoder) InflateNext(ctx *compress.InflateContext, out *[]byte, in []byte) error {
	if d.state == stateError {
		return d.err
	}
	if len(in) > 0 {
		d.input.Append(in)
		ctx.BytesRead += len(in)
	}

	for {
		switch d.state {
		case stateWantHeader:
			if d.input.Length() < frame.HeaderSize {
				return nil
			}
			raw := d.input.Pop(frame.HeaderSize)
			if _, err := d.header.Decode(raw); err != nil {
				return d.fail(err)
			}
			d.contentLeft = d.header.Length
			d.runningCRC = 0
			if d.contentLeft > 0 {
				d.state = stateWantBlock
			} else {
				d.state = stateWantFooter
			}

		case stateWantBlock:
			if d.input.Length() < frame.BlockSize {
				return nil
			}
			var blockHeader frame.Block
			if view, ok := d.input.PeekContiguous(0, frame.BlockSize); ok {
				if _, err := blockHeader.Decode(view); err != nil {
					return d.fail(err)
				}
			} else {
				tmp := make([]byte, frame.BlockSize)
				for i := 0; i < frame.BlockSize; i++ {
					tmp[i] = d.input.Peek(i)
				}
				if _, err := blockHeader.Decode(tmp); err != nil {
					return d.fail(err)
				}
			}

			if blockHeader.IsRaw() {
				need := frame.BlockSize + int(blockHeader.Length)
				if d.input.Length() < need {
					return nil
				}
				d.input.Discard(frame.BlockSize)
				raw := d.input.Pop(int(blockHeader.Length))
				*out = append(*out, raw...)
				d.runningCRC = compress.CRC32C(d.runningCRC, raw)
				ctx.BytesWritten += len(raw)
				d.contentLeft -= uint32(len(raw))
			} else {
				if d.input.Length() < frame.BlockSize {
					return nil
				}
				d.input.Discard(frame.BlockSize)
				expansion := make([]byte, blockHeader.Length)
				for i := range expansion {
					expansion[i] = blockHeader.Literal
				}
				*out = append(*out, expansion...)
				d.runningCRC = compress.CRC32C(d.runningCRC, expansion)
				ctx.BytesWritten += len(expansion)
				d.contentLeft -= uint32(blockHeader.Length)
			}

			if d.contentLeft == 0 {
				d.state = stateWantFooter
			}

		case stateWantFooter:
			if d.input.Length() < frame.FooterSize {
				return nil
			}
			raw := d.input.Pop(frame.FooterSize)
			var footer frame.Footer
			if _, err := footer.Decode(raw); err != nil {
				return d.fail(err)
			}
			if footer.Checksum != d.runningCRC {
				return d.fail(nterr.New("rle.Decoder.InflateNext", nterr.Invalid))
			}
			d.state = stateWantHeader
			d.runningCRC = 0
			d.contentLeft = 0

		case stateError:
			return d.err
		}
	}
}
