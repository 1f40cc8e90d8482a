package ids

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/mr-tron/base58"
)

// PeerIDLen is the fixed byte length of a peer id (BEP 20 style).
const PeerIDLen = 20

// PeerId identifies a client instance on the wire. Always exactly PeerIDLen
// bytes; not guaranteed to be valid UTF-8.
type PeerId [PeerIDLen]byte

// base58Alphabet is the Bitcoin alphabet: no '0', 'O', 'I', or 'l', to avoid
// visual confusion in the rendered peer id. This is also mr-tron/base58's
// default alphabet.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// PeerIdFromBytes builds a PeerId from a 20-byte slice, copying it.
func PeerIdFromBytes(b []byte) (PeerId, error) {
	var p PeerId
	if len(b) != PeerIDLen {
		return p, fmt.Errorf("peer id must be %d bytes, got %d", PeerIDLen, len(b))
	}
	copy(p[:], b)
	return p, nil
}

// Bytes returns the raw 20 bytes.
func (p PeerId) Bytes() []byte {
	return p[:]
}

// String renders the peer id as close to its intended text form as
// possible, substituting the Unicode replacement character for any invalid
// UTF-8, mirroring Rust's String::from_utf8_lossy.
func (p PeerId) String() string {
	return strings.ToValidUTF8(string(p[:]), "�")
}

// Debug renders the value prefixed with its type name, as PeerId(<text>).
func (p PeerId) Debug() string {
	return fmt.Sprintf("PeerId(%s)", p.String())
}

// PeerIdRandom builds a peer id in the common "-XXvvvv-" Azureus-style
// convention: a 2-byte client tag, a major/minor/patch version each encoded
// as base58 characters, and 12 random base58 characters as a per-instance
// nonce.
//
// major and patch must each fit in a single base58 digit (0-57); minor must
// fit in two base58 digits (0-3363). Any version component that doesn't fit
// returns an error naming the offending component, mirroring the original
// parser's bail! messages.
func PeerIdRandom(tag [2]byte, major byte, minor uint16, patch byte) (PeerId, error) {
	var out [PeerIDLen]byte
	out[0] = '-'
	out[1] = tag[0]
	out[2] = tag[1]

	majorStr := base58.Encode([]byte{major})
	if len(majorStr) != 1 {
		return PeerId{}, fmt.Errorf("couldn't parse major version %d as a single base58 character (was: %q)", major, majorStr)
	}
	out[3] = majorStr[0]

	minorHi := []byte{byte(minor / 58)}
	if minor/58 > 0xFF {
		minorHi = []byte{byte((minor / 58) >> 8), byte(minor / 58)}
	}
	minorHiStr := base58.Encode(minorHi)
	minorLoStr := base58.Encode([]byte{byte(minor % 58)})
	if len(minorHiStr) != 1 || len(minorLoStr) != 1 {
		return PeerId{}, fmt.Errorf("couldn't parse minor version %d as two base58 characters (was: %q)", minor, minorHiStr+minorLoStr)
	}
	out[4] = minorHiStr[0]
	out[5] = minorLoStr[0]

	patchStr := base58.Encode([]byte{patch})
	if len(patchStr) != 1 {
		return PeerId{}, fmt.Errorf("couldn't parse patch version %d as a single base58 character (was: %q)", patch, patchStr)
	}
	out[6] = patchStr[0]

	out[7] = '-'

	suffix, err := randomBase58Bytes(PeerIDLen - 8)
	if err != nil {
		return PeerId{}, fmt.Errorf("failed to generate random peer id suffix: %w", err)
	}
	copy(out[8:], suffix)

	return PeerId(out), nil
}

// randomBase58Bytes draws n bytes uniformly from base58Alphabet using
// crypto/rand, rejecting modulo bias via big.Int sampling rather than a raw
// byte-mod-58 reduction.
func randomBase58Bytes(n int) ([]byte, error) {
	out := make([]byte, n)
	alphabetSize := big.NewInt(int64(len(base58Alphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return nil, err
		}
		out[i] = base58Alphabet[idx.Int64()]
	}
	return out, nil
}
