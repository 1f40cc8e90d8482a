package torrent

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lindqvist/peeractor/actor"
	"github.com/lindqvist/peeractor/ids"
	"github.com/lindqvist/peeractor/streamconn"
)

func mustPeerID(t *testing.T, seed byte) ids.PeerId {
	t.Helper()
	p, err := ids.PeerIdFromBytes(repeat(seed, ids.PeerIDLen))
	require.NoError(t, err)
	return p
}

func mustInfoHash(t *testing.T, seed byte) ids.InfoHash {
	t.Helper()
	h, err := ids.InfoHashFromBytes(repeat(seed, ids.InfoHashLen))
	require.NoError(t, err)
	return h
}

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// hasConnectionForTest asks t's TorrentActor (via a reply-channel action,
// the same pattern Send uses) whether peerID is registered.
func (t *Torrent) hasConnectionForTest(peerID ids.PeerId) bool {
	reply := make(chan bool, 1)
	_ = t.handle.Act(func(ta *TorrentActor) (actor.Outcome, error) {
		reply <- ta.hasConnection(peerID)
		return actor.Continue, nil
	})
	return <-reply
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestOutboundHandshakeEstablishesAndRegisters(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	clientPeerID := mustPeerID(t, 1)
	serverPeerID := mustPeerID(t, 2)
	infoHash := mustInfoHash(t, 9)

	client := New(clientPeerID, infoHash)
	server := New(serverPeerID, infoHash)
	defer client.Close()
	defer server.Close()

	clientWrite, clientRead := streamconn.New(4096, clientConn, clientConn)
	serverWrite, serverRead := streamconn.New(4096, serverConn, serverConn)

	require.NoError(t, server.AcceptPeerConnection(nil, serverRead, serverWrite))
	require.NoError(t, client.ConnectToPeer(&serverPeerID, clientRead, clientWrite))

	ok := waitUntil(t, time.Second, func() bool {
		return client.hasConnectionForTest(serverPeerID) && server.hasConnectionForTest(clientPeerID)
	})
	assert.True(t, ok, "expected both sides to register the session")
}

func TestInfoHashMismatchNeverRegisters(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	clientPeerID := mustPeerID(t, 3)
	serverPeerID := mustPeerID(t, 4)

	client := New(clientPeerID, mustInfoHash(t, 10))
	server := New(serverPeerID, mustInfoHash(t, 11))
	defer client.Close()
	defer server.Close()

	clientWrite, clientRead := streamconn.New(4096, clientConn, clientConn)
	serverWrite, serverRead := streamconn.New(4096, serverConn, serverConn)

	require.NoError(t, server.AcceptPeerConnection(nil, serverRead, serverWrite))
	require.NoError(t, client.ConnectToPeer(nil, clientRead, clientWrite))

	time.Sleep(100 * time.Millisecond)
	assert.False(t, client.hasConnectionForTest(serverPeerID))
	assert.False(t, server.hasConnectionForTest(clientPeerID))
}

func TestHandshakeRejectionOnExpectedPeerIDMismatch(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	clientPeerID := mustPeerID(t, 5)
	serverPeerID := mustPeerID(t, 6)
	wrongExpectedID := mustPeerID(t, 7)
	infoHash := mustInfoHash(t, 12)

	client := New(clientPeerID, infoHash)
	server := New(serverPeerID, infoHash)
	defer client.Close()
	defer server.Close()

	clientWrite, clientRead := streamconn.New(4096, clientConn, clientConn)
	serverWrite, serverRead := streamconn.New(4096, serverConn, serverConn)

	require.NoError(t, server.AcceptPeerConnection(nil, serverRead, serverWrite))
	require.NoError(t, client.ConnectToPeer(&wrongExpectedID, clientRead, clientWrite))

	time.Sleep(100 * time.Millisecond)
	assert.False(t, client.hasConnectionForTest(serverPeerID))
}

func TestSendToUnknownPeerFails(t *testing.T) {
	tr := New(mustPeerID(t, 20), mustInfoHash(t, 21))
	defer tr.Close()

	err := tr.Send(mustPeerID(t, 22), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")
}

func TestKeepAliveFanOut(t *testing.T) {
	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	clientPeerID := mustPeerID(t, 30)
	serverPeerID := mustPeerID(t, 31)
	infoHash := mustInfoHash(t, 32)

	client := New(clientPeerID, infoHash)
	server := New(serverPeerID, infoHash)
	defer client.Close()
	defer server.Close()

	clientWrite, clientRead := streamconn.New(4096, clientConn, clientConn)
	serverWrite, serverRead := streamconn.New(4096, serverConn, serverConn)

	require.NoError(t, server.AcceptPeerConnection(nil, serverRead, serverWrite))
	require.NoError(t, client.ConnectToPeer(&serverPeerID, clientRead, clientWrite))

	require.True(t, waitUntil(t, time.Second, func() bool {
		return client.hasConnectionForTest(serverPeerID)
	}))

	require.NoError(t, client.SendKeepAlive())
}
