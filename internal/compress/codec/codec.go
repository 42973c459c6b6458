// Package codec selects the concrete Deflater/Inflater implementation
// for a compress.Config, keeping the leaf interface package
// (internal/compress) free of any dependency on the rle/lz variants.
package codec

import (
	"reactornet/internal/compress"
	"reactornet/internal/compress/lz"
	"reactornet/internal/compress/rle"
)

// NewDeflater returns the Deflater for cfg.Type.
func NewDeflater(cfg compress.Config) compress.Deflater {
	switch cfg.Type {
	case compress.TypeLZ:
		return &lz.Encoder{}
	default:
		return &rle.Encoder{}
	}
}

// NewInflater returns the Inflater for cfg.Type.
func NewInflater(cfg compress.Config) compress.Inflater {
	switch cfg.Type {
	case compress.TypeLZ:
		return &lz.Decoder{}
	default:
		return rle.NewDecoder()
	}
}
