// Command bitpeer is a thin CLI over the peeractor library: it dials one
// peer (leech) or accepts any number of incoming peer connections (seed),
// drives each handshake through a Torrent, and then idles until
// interrupted; leech can also send periodic keep-alives. It is
// a proof of usability for the library's public surface, not a download
// client — piece exchange is out of scope.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lindqvist/peeractor/ids"
	"github.com/lindqvist/peeractor/logging"
)

var (
	logLevel string
	logSent  bool
	logRecv  bool
)

func main() {
	root := &cobra.Command{
		Use:     "bitpeer",
		Short:   "A minimal BitTorrent peer-session client",
		Long:    "bitpeer drives BitTorrent peer-wire sessions (handshake, keep-alive) over TCP, as a usability check on the peeractor library.",
		Version: "0.1.0",
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&logSent, "log-sent", false, "log every frame sent to a peer")
	root.PersistentFlags().BoolVar(&logRecv, "log-recv", false, "log every frame received from a peer")
	root.PersistentPreRunE = func(*cobra.Command, []string) error {
		return logging.Setup(logLevel, logSent, logRecv)
	}

	root.AddCommand(newLeechCommand(), newSeedCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parsePeerID(hexStr string) (*ids.PeerId, error) {
	if hexStr == "" {
		return nil, nil
	}
	if len(hexStr) != ids.PeerIDLen*2 {
		return nil, fmt.Errorf("peer id hex string must be %d characters, got %d", ids.PeerIDLen*2, len(hexStr))
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("invalid peer id hex string %q: %w", hexStr, err)
	}
	p, err := ids.PeerIdFromBytes(b)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
