package torrent

import (
	"github.com/lindqvist/peeractor/actor"
	"github.com/lindqvist/peeractor/ids"
	"github.com/lindqvist/peeractor/logging"
	"github.com/lindqvist/peeractor/streamconn"
)

// Torrent is the public handle to a running TorrentActor: the one entry
// point for connecting to peers, accepting their connections, and sending
// to them by peer id.
type Torrent struct {
	handle *actor.Handle[TorrentActor]
}

// New spawns a TorrentActor for infoHash, identifying ourselves as
// ownPeerID on every handshake this torrent performs.
func New(ownPeerID ids.PeerId, infoHash ids.InfoHash) *Torrent {
	h := actor.Spawn[TorrentActor](*newTorrentActor(ownPeerID, infoHash))
	return &Torrent{handle: h}
}

// ConnectToPeer spawns a session over an already-dialed connection and
// begins the outbound handshake. expectedPeerID, if non-nil, is validated
// against the peer's handshake; a mismatch terminates the session without
// ever registering it.
func (t *Torrent) ConnectToPeer(expectedPeerID *ids.PeerId, read streamconn.ConnectionRead, write streamconn.ConnectionWrite) error {
	return t.handle.Act(func(ta *TorrentActor) (actor.Outcome, error) {
		if err := ta.connectToPeer(expectedPeerID, read, write); err != nil {
			logging.Sent("failed to connect to peer: %v", err)
		}
		return actor.Continue, nil
	})
}

// AcceptPeerConnection spawns a session over an already-accepted connection
// and waits for the peer's inbound handshake.
func (t *Torrent) AcceptPeerConnection(expectedPeerID *ids.PeerId, read streamconn.ConnectionRead, write streamconn.ConnectionWrite) error {
	return t.handle.Act(func(ta *TorrentActor) (actor.Outcome, error) {
		if err := ta.acceptPeerConnection(expectedPeerID, read, write); err != nil {
			logging.Sent("failed to accept peer connection: %v", err)
		}
		return actor.Continue, nil
	})
}

// Send delivers message to peerID's session. Unlike most of this API, the
// "peer not connected" case is surfaced synchronously to the caller via a
// reply channel, rather than only logged: it is a routine, non-fatal
// condition that must never take down the torrent's own worker goroutine.
func (t *Torrent) Send(peerID ids.PeerId, message string) error {
	reply := make(chan error, 1)
	if err := t.handle.Act(func(ta *TorrentActor) (actor.Outcome, error) {
		reply <- ta.send(peerID, message)
		return actor.Continue, nil
	}); err != nil {
		return err
	}
	return <-reply
}

// SendKeepAlive fans a keep-alive out to every connected peer.
func (t *Torrent) SendKeepAlive() error {
	reply := make(chan error, 1)
	if err := t.handle.Act(func(ta *TorrentActor) (actor.Outcome, error) {
		reply <- ta.sendKeepAlive()
		return actor.Continue, nil
	}); err != nil {
		return err
	}
	return <-reply
}

// Close stops every peer session and then the torrent aggregate itself.
func (t *Torrent) Close() error {
	return t.handle.Stop()
}
