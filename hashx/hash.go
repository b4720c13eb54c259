// Package hashx provides the 32-byte content-address type shared by
// every block tree component. The tree treats hashes as opaque byte
// arrays; it never computes one itself.
package hashx

import (
	"encoding/hex"
	"errors"
)

// Size is the length in bytes of a Hash.
const Size = 32

var errInvalidHashLength = errors.New("hashx: decoded hash has wrong length")

// Hash is a Keccak-shaped 32-byte content address.
type Hash [Size]byte

// ZeroHash is the reserved all-zero sentinel, used as the meta store's
// HEAD_KEY and as the parent hash of a genesis header.
var ZeroHash = Hash{}

// MaxHash is the reserved all-one sentinel, used as the meta store's
// DELETE_POINTER_KEY.
var MaxHash = func() Hash {
	var h Hash
	for i := range h {
		h[i] = 0xFF
	}
	return h
}()

// IsZero reports whether h equals ZeroHash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Bytes returns a copy of h as a byte slice.
func (h Hash) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, h[:])
	return out
}

// String renders h as a 0x-prefixed hex string.
func (h Hash) String() string {
	return "0x" + hex.EncodeToString(h[:])
}

// FromBytes copies b into a Hash. b must be exactly Size bytes long.
func FromBytes(b []byte) (Hash, bool) {
	var h Hash
	if len(b) != Size {
		return h, false
	}
	copy(h[:], b)
	return h, true
}

// MarshalText renders h as hex for JSON/YAML encoding.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(h[:])), nil
}

// UnmarshalText parses a hex string produced by MarshalText.
func (h *Hash) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return err
	}
	decoded, ok := FromBytes(b)
	if !ok {
		return errInvalidHashLength
	}
	*h = decoded
	return nil
}
