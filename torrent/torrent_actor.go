package torrent

import (
	"errors"

	"github.com/lindqvist/peeractor/actor"
	"github.com/lindqvist/peeractor/ids"
	"github.com/lindqvist/peeractor/logging"
	"github.com/lindqvist/peeractor/streamconn"
)

// TorrentActor owns the live set of peer sessions for a single info hash.
// Its connections map is only ever touched from its own worker goroutine.
type TorrentActor struct {
	handle *actor.Handle[TorrentActor]

	ownPeerID ids.PeerId
	infoHash  ids.InfoHash

	connections map[ids.PeerId]*actor.Handle[connectionActor]
}

func newTorrentActor(ownPeerID ids.PeerId, infoHash ids.InfoHash) *TorrentActor {
	return &TorrentActor{
		ownPeerID:   ownPeerID,
		infoHash:    infoHash,
		connections: make(map[ids.PeerId]*actor.Handle[connectionActor]),
	}
}

func (t *TorrentActor) SetHandle(h *actor.Handle[TorrentActor]) {
	t.handle = h
}

// Stop tears down every live connection when the torrent itself stops.
func (t *TorrentActor) Stop() {
	for _, conn := range t.connections {
		_ = conn.Stop()
	}
}

func (t *TorrentActor) connectToPeer(expectedPeerID *ids.PeerId, read streamconn.ConnectionRead, write streamconn.ConnectionWrite) error {
	if t.handle == nil {
		return errors.New("torrent handle not set")
	}
	conn := newConnectionActor(t.ownPeerID, expectedPeerID, t.infoHash, t.handle, read, write)
	h := actor.Spawn[connectionActor](*conn)
	return h.Act(func(c *connectionActor) (actor.Outcome, error) { return c.initiateHandshake() })
}

func (t *TorrentActor) acceptPeerConnection(expectedPeerID *ids.PeerId, read streamconn.ConnectionRead, write streamconn.ConnectionWrite) error {
	if t.handle == nil {
		return errors.New("torrent handle not set")
	}
	conn := newConnectionActor(t.ownPeerID, expectedPeerID, t.infoHash, t.handle, read, write)
	h := actor.Spawn[connectionActor](*conn)
	return h.Act(func(c *connectionActor) (actor.Outcome, error) { return c.awaitHandshake() })
}

// send enqueues message for delivery to peerID's session, returning an
// error immediately (not via the worker loop) if that peer isn't connected,
// so a single bad Send can never tear down the whole torrent.
func (t *TorrentActor) send(peerID ids.PeerId, message string) error {
	conn, ok := t.connections[peerID]
	if !ok {
		return errors.New("peer not connected")
	}
	return conn.Act(func(c *connectionActor) (actor.Outcome, error) { return c.send(message) })
}

func (t *TorrentActor) register(peerID ids.PeerId, h *actor.Handle[connectionActor]) {
	t.connections[peerID] = h
	logging.Sent("torrent registered connection to peer %s", peerID)
}

func (t *TorrentActor) unregister(peerID ids.PeerId) {
	delete(t.connections, peerID)
	logging.Sent("torrent unregistered connection to peer %s", peerID)
}

func (t *TorrentActor) sendKeepAlive() error {
	for _, conn := range t.connections {
		if err := conn.Act(func(c *connectionActor) (actor.Outcome, error) { return c.sendKeepAlive() }); err != nil {
			return err
		}
	}
	return nil
}

// hasConnection is a test-only helper, kept visible only within this
// package, mirroring the #[cfg(test)] helper in the original source.
func (t *TorrentActor) hasConnection(peerID ids.PeerId) bool {
	_, ok := t.connections[peerID]
	return ok
}
