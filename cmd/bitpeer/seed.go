package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lindqvist/peeractor/ids"
	"github.com/lindqvist/peeractor/logging"
	"github.com/lindqvist/peeractor/streamconn"
	"github.com/lindqvist/peeractor/torrent"
)

func newSeedCommand() *cobra.Command {
	var (
		ip          string
		port        uint16
		infoHashHex string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Listen and accept handshakes from peers",
		RunE: func(*cobra.Command, []string) error {
			infoHash, err := ids.InfoHashFromHex(infoHashHex)
			if err != nil {
				return err
			}
			ownPeerID, err := ids.PeerIdRandom([2]byte{'b', 'p'}, 0, 1, 0)
			if err != nil {
				return fmt.Errorf("failed to generate our own peer id: %w", err)
			}

			addr := net.JoinHostPort(ip, fmt.Sprintf("%d", port))
			listener, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}
			defer listener.Close()
			logging.Sent("listening on %s", listener.Addr())

			tr := torrent.New(ownPeerID, infoHash)
			defer tr.Close()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			group, ctx := errgroup.WithContext(ctx)
			group.Go(func() error { return acceptLoop(ctx, listener, tr) })
			group.Go(func() error { return waitForShutdownSignal(ctx, listener) })

			if err := group.Wait(); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ip, "ip", "0.0.0.0", "address to listen on")
	cmd.Flags().Uint16Var(&port, "port", 0, "TCP port to listen on; 0 picks any free port")
	cmd.Flags().StringVar(&infoHashHex, "info-hash", "", "40-character hex info hash")
	_ = cmd.MarkFlagRequired("info-hash")

	return cmd
}

func acceptLoop(ctx context.Context, listener net.Listener, tr *torrent.Torrent) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		write, read := streamconn.New(initialReadBufferSize, conn, conn)
		if err := tr.AcceptPeerConnection(nil, read, write); err != nil {
			logging.Received("failed to accept connection from %s: %v", conn.RemoteAddr(), err)
			conn.Close()
			continue
		}
		logging.Received("accepted connection from %s", conn.RemoteAddr())
	}
}

func waitForShutdownSignal(ctx context.Context, listener net.Listener) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		return listener.Close()
	case <-ctx.Done():
		return nil
	}
}
