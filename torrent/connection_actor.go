// Package torrent implements the two peer-session actor roles: a
// connectionActor that drives one peer's handshake and frame pump, and a
// TorrentActor that owns the live set of those sessions for one info hash.
// They live in one package, not two, because each needs a handle to the
// other's type — the same reason the original kept both in a single module.
package torrent

import (
	"errors"
	"fmt"

	"github.com/lindqvist/peeractor/actor"
	"github.com/lindqvist/peeractor/ids"
	"github.com/lindqvist/peeractor/logging"
	"github.com/lindqvist/peeractor/streamconn"
	"github.com/lindqvist/peeractor/wire"
)

type connectionState int

const (
	stateFresh connectionState = iota
	stateHandshaking
	stateEstablished
	stateTerminated
)

// connectionActor owns one peer connection's handshake and, once
// established, a dedicated goroutine draining its frames. Its state is only
// ever touched by its own worker goroutine, per the actor runtime's
// contract.
type connectionActor struct {
	handle *actor.Handle[connectionActor]

	ownPeerID ids.PeerId
	infoHash  ids.InfoHash

	// expectedPeerID is the caller's prior expectation of the peer's id,
	// if any, for an outbound or an inbound connection. peerID is filled in once a handshake actually
	// validates, and may differ in identity even when equal in value.
	expectedPeerID *ids.PeerId
	peerID         *ids.PeerId
	registered     bool

	torrentHandle *actor.Handle[TorrentActor]

	read  streamconn.ConnectionRead
	write streamconn.ConnectionWrite

	state connectionState
}

func newConnectionActor(
	ownPeerID ids.PeerId,
	expectedPeerID *ids.PeerId,
	infoHash ids.InfoHash,
	torrentHandle *actor.Handle[TorrentActor],
	read streamconn.ConnectionRead,
	write streamconn.ConnectionWrite,
) *connectionActor {
	return &connectionActor{
		ownPeerID:      ownPeerID,
		expectedPeerID: expectedPeerID,
		infoHash:       infoHash,
		torrentHandle:  torrentHandle,
		read:           read,
		write:          write,
		state:          stateFresh,
	}
}

func (c *connectionActor) SetHandle(h *actor.Handle[connectionActor]) {
	c.handle = h
}

// Stop runs when the connection's worker goroutine is about to exit for any
// non-panic reason. If the session ever completed a validated handshake and
// registered with the torrent, it unregisters; either way it tells the read
// half to give up so its goroutine doesn't leak.
func (c *connectionActor) Stop() {
	if c.registered && c.peerID != nil {
		peerID := *c.peerID
		_ = c.torrentHandle.Act(func(t *TorrentActor) (actor.Outcome, error) {
			t.unregister(peerID)
			return actor.Continue, nil
		})
	}
	c.state = stateTerminated
	if c.read != nil {
		c.read.Close()
	}
}

// initiateHandshake is the first action run on an outbound connection: send
// our handshake, wait for the peer's, validate it, and on success register
// with the torrent and start the frame-pump goroutine.
func (c *connectionActor) initiateHandshake() (actor.Outcome, error) {
	c.state = stateHandshaking
	if err := c.write.Send(wire.Handshake{InfoHash: c.infoHash, PeerID: c.ownPeerID}); err != nil {
		c.state = stateTerminated
		return actor.Stop, fmt.Errorf("failed to send handshake: %w", err)
	}

	msg, err := c.read.Receive()
	if err != nil {
		c.state = stateTerminated
		return actor.Stop, fmt.Errorf("failed to receive handshake response: %w", err)
	}
	hs, ok := msg.(wire.Handshake)
	if !ok {
		c.state = stateTerminated
		return actor.Stop, fmt.Errorf("expected a handshake, peer sent something else first")
	}

	if err := c.validateAndRegister(hs); err != nil {
		c.state = stateTerminated
		return actor.Stop, err
	}

	c.state = stateEstablished
	c.spawnFramePump()
	return actor.Continue, nil
}

// awaitHandshake is the first action run on an inbound connection: wait for
// the peer's handshake, validate it and register with the torrent, then
// reply with ours and start the frame pump. If the reply cannot be sent,
// the session stops and Stop unregisters it.
func (c *connectionActor) awaitHandshake() (actor.Outcome, error) {
	c.state = stateHandshaking
	msg, err := c.read.Receive()
	if err != nil {
		c.state = stateTerminated
		return actor.Stop, fmt.Errorf("failed to receive handshake: %w", err)
	}
	hs, ok := msg.(wire.Handshake)
	if !ok {
		c.state = stateTerminated
		return actor.Stop, fmt.Errorf("expected a handshake, peer sent something else first")
	}

	if err := c.validateAndRegister(hs); err != nil {
		c.state = stateTerminated
		return actor.Stop, err
	}

	if err := c.write.Send(wire.Handshake{InfoHash: c.infoHash, PeerID: c.ownPeerID}); err != nil {
		c.state = stateTerminated
		return actor.Stop, fmt.Errorf("failed to send handshake response: %w", err)
	}

	c.state = stateEstablished
	c.spawnFramePump()
	return actor.Continue, nil
}

func (c *connectionActor) validateAndRegister(hs wire.Handshake) error {
	if hs.InfoHash != c.infoHash {
		return errors.New("peer sent an incorrect info hash")
	}
	if c.expectedPeerID != nil && *c.expectedPeerID != hs.PeerID {
		return errors.New("peer sent an incorrect peer id")
	}

	peerID := hs.PeerID
	c.peerID = &peerID

	if c.handle == nil {
		return errors.New("connection handle not set before handshake completed")
	}
	handle := c.handle
	if err := c.torrentHandle.Act(func(t *TorrentActor) (actor.Outcome, error) {
		t.register(peerID, handle)
		return actor.Continue, nil
	}); err != nil {
		return fmt.Errorf("failed to register with torrent: %w", err)
	}
	c.registered = true
	logging.Sent("connection established with peer %s", peerID)
	return nil
}

// spawnFramePump starts the goroutine that drains decoded messages after
// the handshake, per the "one dedicated receiver goroutine per established
// connection" design. It drains the same read half the handshake came from,
// so any frames decoded from bytes that arrived together with the handshake
// are kept and are the first messages this goroutine receives.
func (c *connectionActor) spawnFramePump() {
	read := c.read
	handle := c.handle
	go func() {
		for {
			msg, err := read.Receive()
			if err != nil {
				break
			}
			logging.Received("received message: %v", msg)
		}
		_ = handle.Stop()
	}()
}

// send is the no-op placeholder the public API exposes: it only logs, since
// nothing beyond the handshake and keep-alive is implemented here.
func (c *connectionActor) send(message string) (actor.Outcome, error) {
	logging.Sent("sending message to peer %v: %s", c.peerID, message)
	return actor.Continue, nil
}

func (c *connectionActor) sendKeepAlive() (actor.Outcome, error) {
	if err := c.write.Send(wire.KeepAlive{}); err != nil {
		return actor.Stop, fmt.Errorf("failed to send keep-alive: %w", err)
	}
	return actor.Continue, nil
}
