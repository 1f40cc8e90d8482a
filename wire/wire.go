// Package wire is a sans-I/O codec for the BitTorrent peer wire protocol.
// Every decoder here takes a byte slice and tells the caller whether it saw
// a complete message, needs more bytes, or saw something malformed; none of
// them read from or write to a socket.
package wire

import "errors"

// ErrIncomplete means the buffer doesn't yet hold a full frame. More bytes
// may resolve this. FromPartialBuffer never returns it: it reports an
// incomplete buffer as (nil, nil).
var ErrIncomplete = errors.New("wire: incomplete frame")

// ErrMalformed wraps every decode error caused by bytes that can never form
// a valid frame (as opposed to merely being truncated).
var ErrMalformed = errors.New("wire: malformed frame")

// errNotApplicable signals, internally, that a message type's leading tag
// does not match the buffer: it is not this type, so decoding should move on
// to the next candidate type rather than fail outright.
var errNotApplicable = errors.New("wire: message type does not match")

// Message is any decoded frame: Handshake, KeepAlive, or Unknown.
type Message interface {
	Encode() []byte
}

// DecodedMessage is the successful result of FromPartialBuffer: the message
// itself, plus how many leading bytes of the buffer it consumed.
type DecodedMessage struct {
	ConsumedBytes int
	Message       Message
}

// FromPartialBuffer tries, in order, to decode a Handshake, a KeepAlive, or
// an Unknown frame from the front of buf.
//
// It returns (nil, nil) if buf does not yet contain a complete frame of any
// kind — the caller should read more bytes and try again with the same
// (extended) buffer. It returns (msg, nil) on success. It returns (nil, err)
// if the bytes can never form a valid frame.
//
// Handshake and KeepAlive each commit once their fixed leading tag matches:
// from that point on, a short buffer reports incomplete rather than falling
// through to try Unknown, so a truncated handshake never gets
// misinterpreted as an unknown frame.
func FromPartialBuffer(buf []byte) (*DecodedMessage, error) {
	if consumed, hs, err := decodeHandshake(buf); err == nil {
		return &DecodedMessage{ConsumedBytes: consumed, Message: hs}, nil
	} else if errors.Is(err, ErrIncomplete) {
		return nil, nil
	} else if !errors.Is(err, errNotApplicable) {
		return nil, err
	}

	if consumed, ka, err := decodeKeepAlive(buf); err == nil {
		return &DecodedMessage{ConsumedBytes: consumed, Message: ka}, nil
	} else if errors.Is(err, ErrIncomplete) {
		return nil, nil
	} else if !errors.Is(err, errNotApplicable) {
		return nil, err
	}

	consumed, u, err := decodeUnknown(buf)
	if err == nil {
		return &DecodedMessage{ConsumedBytes: consumed, Message: u}, nil
	}
	if errors.Is(err, ErrIncomplete) {
		return nil, nil
	}
	return nil, err
}
