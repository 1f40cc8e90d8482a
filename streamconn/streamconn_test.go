package streamconn_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindqvist/peeractor/ids"
	"github.com/lindqvist/peeractor/streamconn"
	"github.com/lindqvist/peeractor/wire"
)

// recordingReader hands back at most len(p) bytes per call (never more than
// it actually has), and records how many bytes each call delivered.
type recordingReader struct {
	data      []byte
	readSizes []int
}

func (r *recordingReader) Read(p []byte) (int, error) {
	n := len(p)
	if n > len(r.data) {
		n = len(r.data)
	}
	r.readSizes = append(r.readSizes, n)
	if n == 0 {
		return 0, nil
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}

func mustInfoHash(t *testing.T, b byte) ids.InfoHash {
	t.Helper()
	h, err := ids.InfoHashFromBytes(bytes.Repeat([]byte{b}, ids.InfoHashLen))
	require.NoError(t, err)
	return h
}

func mustPeerID(t *testing.T, b byte) ids.PeerId {
	t.Helper()
	p, err := ids.PeerIdFromBytes(bytes.Repeat([]byte{b}, ids.PeerIDLen))
	require.NoError(t, err)
	return p
}

func TestReaderBufferGrowth(t *testing.T) {
	hs := wire.Handshake{InfoHash: mustInfoHash(t, 1), PeerID: mustPeerID(t, 2)}
	reader := &recordingReader{data: hs.Encode()}

	_, read := streamconn.New(1, reader, new(bytes.Buffer))
	msg, err := read.Receive()
	require.NoError(t, err)
	assert.Equal(t, hs, msg)

	// Give the reader goroutine a moment to attempt its next (blocking, or
	// here zero-byte) read after delivering the handshake.
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, []int{1, 1, 2, 4, 8, 16, 32, 4}, reader.readSizes[:8])
}

func TestTwoFramesFromOneRead(t *testing.T) {
	ka := wire.KeepAlive{}
	u := wire.Unknown{ID: 3, Payload: []byte("hi")}
	reader := &recordingReader{data: append(ka.Encode(), u.Encode()...)}

	_, read := streamconn.New(4096, reader, new(bytes.Buffer))

	first, err := read.Receive()
	require.NoError(t, err)
	assert.Equal(t, ka, first)

	second, err := read.Receive()
	require.NoError(t, err)
	assert.Equal(t, u, second)
}

func TestSendEncodesAndWrites(t *testing.T) {
	var buf bytes.Buffer
	write, _ := streamconn.New(4096, bytes.NewReader(nil), &buf)

	ka := wire.KeepAlive{}
	require.NoError(t, write.Send(ka))
	assert.Equal(t, ka.Encode(), buf.Bytes())
}

func TestCloseStopsDelivery(t *testing.T) {
	reader := &recordingReader{data: nil}
	_, read := streamconn.New(64, reader, new(bytes.Buffer))
	read.Close()

	done := make(chan struct{})
	go func() {
		_, _ = read.Receive()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("receive never unblocked after close")
	}
}
