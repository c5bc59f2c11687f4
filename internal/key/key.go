// Package key implements the fixed-width circular identifier space the
// ring is built on: big-endian byte identifiers, modular arithmetic, and
// the three interval predicates routing is expressed in terms of.
package key

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidID is returned when a byte slice is not a well-formed
// identifier of the space it is checked against.
var ErrInvalidID = errors.New("key: invalid id")

// Space is the identifier space [0, 2^Bits) identifiers live on.
// The reference ring uses Bits=256 (SHA-256, hex-encoded on the wire);
// tests use small bit widths to make rings of size N enumerable.
type Space struct {
	Bits    int
	ByteLen int
}

// NewSpace validates and constructs an identifier space of the given width.
func NewSpace(bits int) (Space, error) {
	if bits <= 0 {
		return Space{}, fmt.Errorf("key: invalid bit width %d (must be > 0)", bits)
	}
	return Space{Bits: bits, ByteLen: (bits + 7) / 8}, nil
}

// ID is a big-endian unsigned integer on the ring, always ByteLen bytes.
type ID []byte

func (sp Space) mask(id ID) {
	extra := sp.ByteLen*8 - sp.Bits
	if extra > 0 {
		id[0] &= 0xFF >> uint(extra)
	}
}

// Zero returns the all-zero identifier for this space.
func (sp Space) Zero() ID {
	return make(ID, sp.ByteLen)
}

// IDFromString derives an identifier from an arbitrary string (the
// node's "host:port" or an application key), the way every Chord
// deployment hashes its addressable entities: H(s) = SHA-256(s),
// truncated to the space's byte length and masked to its bit width.
func (sp Space) IDFromString(s string) ID {
	sum := sha256.Sum256([]byte(s))
	buf := make(ID, sp.ByteLen)
	copy(buf, sum[:]) // truncates if ByteLen < 32, zero-pads at the low end if wider
	sp.mask(buf)
	return buf
}

// IsValid reports whether id has this space's byte length and has no
// set bits above Bits.
func (sp Space) IsValid(id ID) error {
	if len(id) != sp.ByteLen {
		return ErrInvalidID
	}
	extra := sp.ByteLen*8 - sp.Bits
	if extra > 0 {
		if id[0]&(0xFF<<uint(8-extra)) != 0 {
			return ErrInvalidID
		}
	}
	return nil
}

// Hex returns the lowercase hex encoding, the wire representation of
// an identifier, optionally "0x"-prefixed for logging.
func (x ID) Hex(prefix bool) string {
	s := hex.EncodeToString(x)
	if prefix {
		return "0x" + s
	}
	return s
}

// IDFromHex parses the wire hex representation of a key, rejecting
// values that overflow the space's bit width.
func (sp Space) IDFromHex(s string) (ID, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, fmt.Errorf("key: empty hex string")
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key: invalid hex %q: %w", s, err)
	}
	if len(raw) > sp.ByteLen {
		for _, b := range raw[:len(raw)-sp.ByteLen] {
			if b != 0 {
				return nil, fmt.Errorf("key: value exceeds %d-bit space", sp.Bits)
			}
		}
		raw = raw[len(raw)-sp.ByteLen:]
	}
	id := make(ID, sp.ByteLen)
	copy(id[sp.ByteLen-len(raw):], raw)
	if err := sp.IsValid(id); err != nil {
		return nil, fmt.Errorf("key: value exceeds %d-bit space", sp.Bits)
	}
	return id, nil
}

// Cmp orders two identifiers as unsigned big-endian integers.
func (x ID) Cmp(y ID) int { return bytes.Compare(x, y) }

// Equal reports byte-for-byte equality.
func (x ID) Equal(y ID) bool { return bytes.Equal(x, y) }

// Add returns (x + y) mod 2^Bits.
func (sp Space) Add(x, y ID) ID {
	res := make(ID, sp.ByteLen)
	carry := 0
	for i := sp.ByteLen - 1; i >= 0; i-- {
		sum := int(x[i]) + int(y[i]) + carry
		res[i] = byte(sum & 0xFF)
		carry = sum >> 8
	}
	sp.mask(res)
	return res
}

// Sub returns (x - y) mod 2^Bits.
func (sp Space) Sub(x, y ID) ID {
	res := make(ID, sp.ByteLen)
	borrow := 0
	for i := sp.ByteLen - 1; i >= 0; i-- {
		diff := int(x[i]) - int(y[i]) - borrow
		if diff < 0 {
			diff += 256
			borrow = 1
		} else {
			borrow = 0
		}
		res[i] = byte(diff)
	}
	sp.mask(res)
	return res
}

// Pow2 returns 2^i mod 2^Bits as an identifier, for i in [0, Bits).
func (sp Space) Pow2(i int) ID {
	res := make(ID, sp.ByteLen)
	if i >= 0 && i < sp.Bits {
		byteIdx := sp.ByteLen - 1 - i/8
		res[byteIdx] = 1 << uint(i%8)
	}
	sp.mask(res)
	return res
}

// IsBetweenExclu reports whether x lies strictly on the clockwise arc
// from a to b, both endpoints excluded. The degenerate case a == b
// covers the whole ring minus the point a: true for any x != a.
func (x ID) IsBetweenExclu(a, b ID) bool {
	if a.Equal(b) {
		return !x.Equal(a)
	}
	if a.Cmp(b) < 0 {
		return a.Cmp(x) < 0 && x.Cmp(b) < 0
	}
	return x.Cmp(a) > 0 || x.Cmp(b) < 0
}

// IsBetweenRIncl is IsBetweenExclu with the upper endpoint included:
// the arc (a, b]. The degenerate case a == b covers the whole ring.
func (x ID) IsBetweenRIncl(a, b ID) bool {
	if a.Equal(b) {
		return true
	}
	if a.Cmp(b) < 0 {
		return a.Cmp(x) < 0 && x.Cmp(b) <= 0
	}
	return x.Cmp(a) > 0 || x.Cmp(b) <= 0
}

// IsBetween is the open interval (a, b), both endpoints excluded, and
// the degenerate case a == b collapses to an empty arc (always false).
// Used by callers that have already handled the a == b case themselves.
func (x ID) IsBetween(a, b ID) bool {
	if a.Equal(b) {
		return false
	}
	if a.Cmp(b) < 0 {
		return a.Cmp(x) < 0 && x.Cmp(b) < 0
	}
	return x.Cmp(a) > 0 || x.Cmp(b) < 0
}
