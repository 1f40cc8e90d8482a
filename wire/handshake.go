package wire

import (
	"bytes"
	"fmt"

	"github.com/lindqvist/peeractor/ids"
)

const protocolString = "BitTorrent protocol"

// handshakeLen is the fixed wire size: 1 (pstrlen) + 19 (pstr) + 8 (reserved)
// + 20 (info hash) + 20 (peer id).
const handshakeLen = 1 + len(protocolString) + 8 + ids.InfoHashLen + ids.PeerIDLen

// Handshake is the fixed-size opening frame of a peer connection.
type Handshake struct {
	InfoHash ids.InfoHash
	PeerID   ids.PeerId
}

func (h Handshake) Encode() []byte {
	buf := make([]byte, 0, handshakeLen)
	buf = append(buf, byte(len(protocolString)))
	buf = append(buf, protocolString...)
	buf = append(buf, make([]byte, 8)...)
	buf = append(buf, h.InfoHash.Bytes()...)
	buf = append(buf, h.PeerID.Bytes()...)
	return buf
}

// decodeHandshake matches the 0x13 pstrlen tag, then the 19-byte protocol
// string tag, then reads the fixed remainder. Once both tags fully match,
// any further shortfall is ErrIncomplete, never errNotApplicable: a
// truncated handshake is never handed off to the KeepAlive or Unknown
// decoders.
func decodeHandshake(buf []byte) (consumed int, hs Handshake, err error) {
	if len(buf) == 0 {
		return 0, Handshake{}, ErrIncomplete
	}
	if buf[0] != byte(len(protocolString)) {
		return 0, Handshake{}, errNotApplicable
	}

	avail := buf[1:]
	cmpLen := min(len(avail), len(protocolString))
	if !bytes.Equal(avail[:cmpLen], []byte(protocolString)[:cmpLen]) {
		return 0, Handshake{}, errNotApplicable
	}
	if len(avail) < len(protocolString) {
		return 0, Handshake{}, ErrIncomplete
	}

	if len(buf) < handshakeLen {
		return 0, Handshake{}, ErrIncomplete
	}

	infoHashStart := 1 + len(protocolString) + 8
	infoHash, err := ids.InfoHashFromBytes(buf[infoHashStart : infoHashStart+ids.InfoHashLen])
	if err != nil {
		return 0, Handshake{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	peerIDStart := infoHashStart + ids.InfoHashLen
	peerID, err := ids.PeerIdFromBytes(buf[peerIDStart : peerIDStart+ids.PeerIDLen])
	if err != nil {
		return 0, Handshake{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return handshakeLen, Handshake{InfoHash: infoHash, PeerID: peerID}, nil
}
