// Package streamconn turns a raw io.Reader/io.Writer pair into a pair of
// message-shaped halves: a ConnectionWrite that encodes and flushes whole
// frames, and a ConnectionRead backed by a dedicated goroutine that grows a
// buffer, decodes as many frames as it can from the bytes on hand, and
// hands each one off through a bounded channel.
package streamconn

import (
	"errors"
	"io"
	"sync"

	"github.com/lindqvist/peeractor/logging"
	"github.com/lindqvist/peeractor/wire"
)

// maxBufferSize is the hard cap the grow-and-slide buffer never exceeds: a
// peer that cannot complete a frame within 64 KiB is misbehaving, and the
// reader gives up on the connection rather than growing forever.
const maxBufferSize = 64 * 1024

// maxBufferedMessages bounds how many decoded messages may sit in the
// channel before the reader goroutine blocks trying to hand off the next
// one, providing backpressure against a slow consumer.
const maxBufferedMessages = 10

// ConnectionRead is the receiving half of a framed connection.
type ConnectionRead interface {
	// Receive blocks for the next decoded message, returning an error once
	// the connection is closed and no further messages are coming.
	Receive() (wire.Message, error)
	// Close tells the underlying reader goroutine to stop delivering
	// messages even if none have been read yet, e.g. because the owning
	// session has already torn down.
	Close()
}

// ConnectionWrite is the sending half of a framed connection.
type ConnectionWrite interface {
	Send(msg wire.Message) error
}

// New wraps r and w as a framed connection. initialBufferSize is the
// starting size of the read-side buffer, which doubles (up to
// maxBufferSize) whenever a read fills it without completing a frame.
func New(initialBufferSize int, r io.Reader, w io.Writer) (ConnectionWrite, ConnectionRead) {
	messages := make(chan wire.Message, maxBufferedMessages)
	quit := make(chan struct{})
	go receiveLoop(initialBufferSize, r, messages, quit)
	return &connWrite{w: w}, &connRead{messages: messages, quit: quit}
}

type connWrite struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *connWrite) Send(msg wire.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.w.Write(msg.Encode()); err != nil {
		return err
	}
	if flusher, ok := c.w.(interface{ Flush() error }); ok {
		return flusher.Flush()
	}
	return nil
}

type connRead struct {
	messages <-chan wire.Message
	quit     chan struct{}
	once     sync.Once
}

func (c *connRead) Receive() (wire.Message, error) {
	msg, ok := <-c.messages
	if !ok {
		return nil, errors.New("connection closed, no more messages coming")
	}
	return msg, nil
}

func (c *connRead) Close() {
	c.once.Do(func() { close(c.quit) })
}

// receiveLoop implements the grow-and-slide buffer: read into the unused
// tail of buf, try to decode a frame from the front, and on success slide
// the remaining bytes down to offset 0 before trying to decode again (one
// read can deliver more than one frame). On incomplete, keep reading into
// the same buffer; only grow it once a read exactly fills the buffer
// without completing a frame.
func receiveLoop(initialBufferSize int, r io.Reader, out chan<- wire.Message, quit <-chan struct{}) {
	defer close(out)

	buf := make([]byte, initialBufferSize)
	offset := 0

	for {
		n, err := r.Read(buf[offset:])
		if err != nil {
			logging.Received("connection read error: %v", err)
			return
		}
		if n == 0 {
			return
		}
		offset += n

		for {
			decoded, err := wire.FromPartialBuffer(buf[:offset])
			if err != nil {
				logging.Received("unexpected error decoding a frame: %v", err)
				return
			}
			if decoded == nil {
				break
			}
			copy(buf, buf[decoded.ConsumedBytes:offset])
			offset -= decoded.ConsumedBytes
			if !trySend(out, quit, decoded.Message) {
				return
			}
		}

		if offset == len(buf) {
			if len(buf) == maxBufferSize {
				logging.Received("peer exceeded the maximum buffer size without completing a frame")
				return
			}
			grown := make([]byte, min(len(buf)*2, maxBufferSize))
			copy(grown, buf[:offset])
			buf = grown
		}
	}
}

func trySend(out chan<- wire.Message, quit <-chan struct{}, msg wire.Message) bool {
	select {
	case out <- msg:
		return true
	case <-quit:
		return false
	default:
	}
	logging.Received("receiver is full, waiting")
	select {
	case out <- msg:
		return true
	case <-quit:
		return false
	}
}
