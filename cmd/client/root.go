// Package main is the demo CLI client: a headless Go process that joins a
// room via the signaling server and negotiates real RTCPeerConnections
// with every other member, using internal/session, internal/peer, and
// internal/negotiation. Grounded on the teacher's cli/cmd package: a cobra
// root command with signal-driven shutdown, subcommands wiring config and
// a connection context.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/nordcall/signalcore/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "signalcore-client",
	Short:   "Join a signalcore room and negotiate WebRTC peer connections from the command line",
	Long:    "signalcore-client is a headless WebRTC participant: it joins a room on a signalcore signaling server, negotiates real RTCPeerConnections with every other member via the Perfect Negotiation pattern, and relays chat messages.",
	Version: version.Version,
}

// Execute installs the interrupt handler and runs the root command; each
// subcommand adds itself to rootCmd in its own init. Called once from
// main.main.
func Execute() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		<-sig
		fmt.Println("\nshutting down")
		os.Exit(0)
	}()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func main() {
	Execute()
}
