package codec

import (
	"encoding/json"
	"fmt"

	"github.com/mezonai/blocktree/block"
	"github.com/mezonai/blocktree/hashx"
)

// JSONCodec is the default Codec, grounded on the teacher's pervasive
// use of encoding/json for on-disk records (blockstore/leveldb_store.go).
// A production client with its own wire format (RLP, protobuf) supplies
// its own Codec instead.
type JSONCodec struct{}

// NewJSONCodec returns the default JSON Codec.
func NewJSONCodec() *JSONCodec { return &JSONCodec{} }

// jsonHeader omits TotalDifficulty: per spec.md §3, total difficulty
// is canonically recorded in the block's BlockInfo, not in the
// header's own bytes — the tree attaches it to an in-memory Header
// from the BlockInfo on every load, synthesizing one via lazy repair
// if it's missing.
type jsonHeader struct {
	Number     uint64
	Hash       hashx.Hash
	ParentHash hashx.Hash
	Difficulty uint64
}

func (c *JSONCodec) EncodeHeader(h *block.Header) ([]byte, error) {
	return json.Marshal(jsonHeader{
		Number:     h.Number,
		Hash:       h.Hash,
		ParentHash: h.ParentHash,
		Difficulty: h.Difficulty,
	})
}

func (c *JSONCodec) DecodeHeader(b []byte) (*block.Header, error) {
	var jh jsonHeader
	if err := json.Unmarshal(b, &jh); err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	return &block.Header{
		Number:     jh.Number,
		Hash:       jh.Hash,
		ParentHash: jh.ParentHash,
		Difficulty: jh.Difficulty,
	}, nil
}

// rawTransaction is the concrete Transaction implementation used when
// the JSON codec decodes a body: it carries only what the tree needs
// (the hash), since the transaction payload itself is opaque to it.
type rawTransaction struct {
	TxHash hashx.Hash
}

func (t *rawTransaction) Hash() hashx.Hash { return t.TxHash }

type jsonBody struct {
	TxHashes []hashx.Hash
}

type jsonBlock struct {
	Header jsonHeader
	Body   *jsonBody
}

func (c *JSONCodec) EncodeBlock(blk *block.Block) ([]byte, error) {
	jb := jsonBlock{Header: jsonHeader{
		Number:     blk.Header.Number,
		Hash:       blk.Header.Hash,
		ParentHash: blk.Header.ParentHash,
		Difficulty: blk.Header.Difficulty,
	}}
	if blk.Body != nil {
		hashes := make([]hashx.Hash, len(blk.Body.Transactions))
		for i, tx := range blk.Body.Transactions {
			hashes[i] = tx.Hash()
		}
		jb.Body = &jsonBody{TxHashes: hashes}
	}
	return json.Marshal(jb)
}

func (c *JSONCodec) DecodeBlock(b []byte) (*block.Block, error) {
	var jb jsonBlock
	if err := json.Unmarshal(b, &jb); err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	h := &block.Header{
		Number:     jb.Header.Number,
		Hash:       jb.Header.Hash,
		ParentHash: jb.Header.ParentHash,
		Difficulty: jb.Header.Difficulty,
	}
	var body *block.Body
	if jb.Body != nil {
		txs := make([]block.Transaction, len(jb.Body.TxHashes))
		for i, h := range jb.Body.TxHashes {
			txs[i] = &rawTransaction{TxHash: h}
		}
		body = &block.Body{Transactions: txs}
	}
	return block.NewBlock(h, body), nil
}

type jsonBlockInfo struct {
	BlockHash       hashx.Hash
	TotalDifficulty uint64
	WasProcessed    bool
}

type jsonLevel struct {
	HasBlockOnMainChain bool
	BlockInfos          []jsonBlockInfo
}

func (c *JSONCodec) EncodeLevel(l *block.LevelInfo) ([]byte, error) {
	jl := jsonLevel{HasBlockOnMainChain: l.HasBlockOnMainChain}
	for _, bi := range l.BlockInfos {
		jl.BlockInfos = append(jl.BlockInfos, jsonBlockInfo{
			BlockHash:       bi.BlockHash,
			TotalDifficulty: bi.TotalDifficulty,
			WasProcessed:    bi.WasProcessed,
		})
	}
	return json.Marshal(jl)
}

func (c *JSONCodec) DecodeLevel(b []byte) (*block.LevelInfo, error) {
	var jl jsonLevel
	if err := json.Unmarshal(b, &jl); err != nil {
		return nil, fmt.Errorf("decode level: %w", err)
	}
	l := &block.LevelInfo{HasBlockOnMainChain: jl.HasBlockOnMainChain}
	for _, bi := range jl.BlockInfos {
		l.BlockInfos = append(l.BlockInfos, block.Info{
			BlockHash:       bi.BlockHash,
			TotalDifficulty: bi.TotalDifficulty,
			WasProcessed:    bi.WasProcessed,
		})
	}
	return l, nil
}
