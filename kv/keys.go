package kv

import (
	"encoding/binary"

	"github.com/mezonai/blocktree/hashx"
)

// HeadKey is the meta-store sentinel key under which the current
// head's hash is recorded. It doubles as the reserved zero hash so it
// can never collide with a level number key.
var HeadKey = hashx.ZeroHash.Bytes()

// DeletePointerKey is the meta-store sentinel key recording the
// in-flight descendant hash during CleanInvalidBlocks, so a crash
// mid-cleanup is resumable on restart.
var DeletePointerKey = hashx.MaxHash.Bytes()

// LevelKey encodes a height as an 8-byte big-endian meta-store key.
func LevelKey(number uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, number)
	return b
}
