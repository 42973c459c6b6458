// Package frame implements the three fixed-layout little-endian records
// that make up a compression frame: header, block, and footer. See
// spec.md §4.3 and §6 for the wire layout.
package frame

import (
	"encoding/binary"

	"reactornet/nterr"
)

// HeaderMagic is the compile-time constant stored in every frame header,
// "HDR\0" read as a little-endian u32.
const HeaderMagic uint32 = 0x00524448 // 'H' 'D' 'R' 0x00, little-endian

// FooterMagic is the compile-time constant stored in every frame footer.
const FooterMagic uint32 = 0x00525446 // 'F' 'T' 'R' 0x00, little-endian

const (
	HeaderSize = 16
	BlockSize  = 4
	FooterSize = 8
)

// Block flags.
const (
	BlockFlagRaw = 1
	BlockFlagRLE = 2
)

// Header is the 16-byte frame preamble: magic, payload length, flags,
// checksum.
type Header struct {
	Length   uint32
	Flags    uint32
	Checksum uint32
}

// Encode writes the header into dest (which must have at least
// HeaderSize bytes of capacity from offset 0) and returns the number of
// bytes written.
func (h Header) Encode(dest []byte) (int, error) {
	if len(dest) < HeaderSize {
		return 0, nterr.New("frame.Header.Encode", nterr.Invalid)
	}
	binary.LittleEndian.PutUint32(dest[0:4], HeaderMagic)
	binary.LittleEndian.PutUint32(dest[4:8], h.Length)
	binary.LittleEndian.PutUint32(dest[8:12], h.Flags)
	binary.LittleEndian.PutUint32(dest[12:16], h.Checksum)
	return HeaderSize, nil
}

// Decode parses a header from the front of src. It returns
// (0, WouldBlock) if src is shorter than HeaderSize, or (0, Invalid) if
// the magic is wrong.
func (h *Header) Decode(src []byte) (int, error) {
	if len(src) < HeaderSize {
		return 0, nterr.New("frame.Header.Decode", nterr.WouldBlock)
	}
	magic := binary.LittleEndian.Uint32(src[0:4])
	if magic != HeaderMagic {
		return 0, nterr.New("frame.Header.Decode", nterr.Invalid)
	}
	h.Length = binary.LittleEndian.Uint32(src[4:8])
	h.Flags = binary.LittleEndian.Uint32(src[8:12])
	h.Checksum = binary.LittleEndian.Uint32(src[12:16])
	return HeaderSize, nil
}

// Block is the 4-byte record describing one compressed block: a length,
// a literal byte (meaningful only for RLE blocks), and a type flag.
type Block struct {
	Length  uint16
	Literal byte
	Flags   byte
}

// IsRaw reports whether the block is a RAW (literal bytes follow) block.
func (b Block) IsRaw() bool { return b.Flags == BlockFlagRaw }

// IsRLE reports whether the block is a run-length-encoded block.
func (b Block) IsRLE() bool { return b.Flags == BlockFlagRLE }

func (b Block) Encode(dest []byte) (int, error) {
	if len(dest) < BlockSize {
		return 0, nterr.New("frame.Block.Encode", nterr.Invalid)
	}
	binary.LittleEndian.PutUint16(dest[0:2], b.Length)
	dest[2] = b.Literal
	dest[3] = b.Flags
	return BlockSize, nil
}

func (b *Block) Decode(src []byte) (int, error) {
	if len(src) < BlockSize {
		return 0, nterr.New("frame.Block.Decode", nterr.WouldBlock)
	}
	flags := src[3]
	if flags != BlockFlagRaw && flags != BlockFlagRLE {
		return 0, nterr.New("frame.Block.Decode", nterr.Invalid)
	}
	b.Length = binary.LittleEndian.Uint16(src[0:2])
	b.Literal = src[2]
	b.Flags = flags
	return BlockSize, nil
}

// Footer is the 8-byte frame trailer: magic and checksum, the latter
// required to equal the header's checksum.
type Footer struct {
	Checksum uint32
}

func (f Footer) Encode(dest []byte) (int, error) {
	if len(dest) < FooterSize {
		return 0, nterr.New("frame.Footer.Encode", nterr.Invalid)
	}
	binary.LittleEndian.PutUint32(dest[0:4], FooterMagic)
	binary.LittleEndian.PutUint32(dest[4:8], f.Checksum)
	return FooterSize, nil
}

func (f *Footer) Decode(src []byte) (int, error) {
	if len(src) < FooterSize {
		return 0, nterr.New("frame.Footer.Decode", nterr.WouldBlock)
	}
	magic := binary.LittleEndian.Uint32(src[0:4])
	if magic != FooterMagic {
		return 0, nterr.New("frame.Footer.Decode", nterr.Invalid)
	}
	f.Checksum = binary.LittleEndian.Uint32(src[4:8])
	return FooterSize, nil
}
