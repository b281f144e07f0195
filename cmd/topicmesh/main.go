// Command topicmesh hosts agents on a local topic ledger and talks to them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "topicmesh",
		Short: "Agent-to-agent messaging over append-only topics",
		Long: "topicmesh hosts agents that accept connections and answer queries over a polled,\n" +
			"append-only topic ledger stored locally in Pebble. The ledger directory is locked\n" +
			"by a single process at a time.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "config file (default ./"+defaultConfigName+" when present)")
	rootCmd.PersistentFlags().String("data-dir", "", "ledger data directory (overrides config)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug|info|warn|error")
	rootCmd.PersistentFlags().String("log-format", "", "log format: text|json")
	rootCmd.PersistentFlags().Bool("metrics", false, "print counter totals to stderr on exit")

	rootCmd.AddCommand(
		newRunCmd(),
		newTopicCmd(),
		newSendCmd(),
		newAskCmd(),
		newConnectCmd(),
		newTailCmd(),
	)

	return rootCmd
}
