package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lindqvist/peeractor/ids"
	"github.com/lindqvist/peeractor/logging"
	"github.com/lindqvist/peeractor/streamconn"
	"github.com/lindqvist/peeractor/torrent"
)

const initialReadBufferSize = 4096

func newLeechCommand() *cobra.Command {
	var (
		ip           string
		port         uint16
		infoHashHex  string
		peerIDHex    string
		keepAliveSec int
	)

	cmd := &cobra.Command{
		Use:   "leech",
		Short: "Dial a peer and complete a handshake",
		RunE: func(*cobra.Command, []string) error {
			infoHash, err := ids.InfoHashFromHex(infoHashHex)
			if err != nil {
				return err
			}
			expectedPeerID, err := parsePeerID(peerIDHex)
			if err != nil {
				return err
			}

			ownPeerID, err := ids.PeerIdRandom([2]byte{'b', 'p'}, 0, 1, 0)
			if err != nil {
				return fmt.Errorf("failed to generate our own peer id: %w", err)
			}

			addr := net.JoinHostPort(ip, fmt.Sprintf("%d", port))
			conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
			if err != nil {
				return fmt.Errorf("failed to dial %s: %w", addr, err)
			}
			defer conn.Close()

			write, read := streamconn.New(initialReadBufferSize, conn, conn)
			tr := torrent.New(ownPeerID, infoHash)
			defer tr.Close()

			if err := tr.ConnectToPeer(expectedPeerID, read, write); err != nil {
				return fmt.Errorf("failed to start handshake: %w", err)
			}
			logging.Sent("handshake with %s initiated", addr)

			waitForSignalOrKeepAlive(tr, keepAliveSec)
			return nil
		},
	}

	cmd.Flags().StringVar(&ip, "ip", "", "peer IP address")
	cmd.Flags().Uint16Var(&port, "port", 0, "peer TCP port")
	cmd.Flags().StringVar(&infoHashHex, "info-hash", "", "40-character hex info hash")
	cmd.Flags().StringVar(&peerIDHex, "peer-id", "", "40-character hex peer id the remote must present")
	cmd.Flags().IntVar(&keepAliveSec, "keep-alive-interval", 0, "seconds between keep-alives sent to the peer; 0 disables")
	_ = cmd.MarkFlagRequired("ip")
	_ = cmd.MarkFlagRequired("port")
	_ = cmd.MarkFlagRequired("info-hash")

	return cmd
}

// waitForSignalOrKeepAlive blocks until SIGINT/SIGTERM, sending periodic
// keep-alives if keepAliveSec > 0.
func waitForSignalOrKeepAlive(tr *torrent.Torrent, keepAliveSec int) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	if keepAliveSec <= 0 {
		<-sigCh
		return
	}

	ticker := time.NewTicker(time.Duration(keepAliveSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-sigCh:
			return
		case <-ticker.C:
			if err := tr.SendKeepAlive(); err != nil {
				logging.Sent("keep-alive failed: %v", err)
			}
		}
	}
}
