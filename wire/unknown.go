package wire

import (
	"encoding/binary"
	"fmt"
)

// maxFrameLen rejects any declared length at or beyond 1 MiB outright,
// regardless of how much of the frame has actually arrived.
const maxFrameLen = 1024 * 1024

// Unknown is any length-prefixed frame this module doesn't give special
// meaning to: a 1-byte message id plus an opaque payload. Piece exchange,
// choke/interested, and extension messages all arrive as Unknown, since
// interpreting them is out of scope here.
type Unknown struct {
	ID      byte
	Payload []byte
}

func (u Unknown) Encode() []byte {
	length := uint32(1 + len(u.Payload))
	buf := make([]byte, 0, 4+len(u.Payload)+1)
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], length)
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, u.ID)
	buf = append(buf, u.Payload...)
	return buf
}

// decodeUnknown is the last candidate tried by FromPartialBuffer, so it has
// no errNotApplicable branch: every buffer that reaches here either
// completes, needs more bytes, or is malformed.
func decodeUnknown(buf []byte) (consumed int, u Unknown, err error) {
	if len(buf) < 4 {
		return 0, Unknown{}, ErrIncomplete
	}
	length := binary.BigEndian.Uint32(buf[:4])
	if length >= maxFrameLen {
		return 0, Unknown{}, fmt.Errorf("%w: declared frame length %d exceeds the 1 MiB cap", ErrMalformed, length)
	}

	total := 4 + int(length)
	if len(buf) < total {
		return 0, Unknown{}, ErrIncomplete
	}
	if length == 0 {
		// Only reached via a standalone call; Message-level decoding never
		// gets here with length 0, since decodeKeepAlive claims it first.
		return total, Unknown{}, nil
	}

	id := buf[4]
	payload := append([]byte(nil), buf[5:total]...)
	return total, Unknown{ID: id, Payload: payload}, nil
}
