// Package codec defines the caller-provided encode/decode contract for
// headers, blocks, and level metadata, plus a default JSON
// implementation. The tree depends only on the interfaces; any codec
// satisfying them — RLP, protobuf, whatever the surrounding client
// uses on the wire — can replace JSONCodec without touching the tree.
package codec

import "github.com/mezonai/blocktree/block"

// HeaderCodec encodes/decodes block.Header.
type HeaderCodec interface {
	EncodeHeader(h *block.Header) ([]byte, error)
	DecodeHeader(b []byte) (*block.Header, error)
}

// BlockCodec encodes/decodes block.Block bodies.
type BlockCodec interface {
	EncodeBlock(blk *block.Block) ([]byte, error)
	DecodeBlock(b []byte) (*block.Block, error)
}

// LevelCodec encodes/decodes block.LevelInfo. The binary form must
// round-trip (HasBlockOnMainChain, BlockInfos) losslessly: production
// databases are opened by this format across restarts.
type LevelCodec interface {
	EncodeLevel(l *block.LevelInfo) ([]byte, error)
	DecodeLevel(b []byte) (*block.LevelInfo, error)
}

// Codec bundles all three round-trips the tree needs.
type Codec interface {
	HeaderCodec
	BlockCodec
	LevelCodec
}
