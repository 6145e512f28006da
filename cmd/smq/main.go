// Command smq runs the smq message queue server and talks to it.
//
// Usage:
//
//	smq serve [--config path/to/config.yaml]
//	smq push <channel> [payload]      (payload read from stdin when omitted)
//	smq pop  <channel>
//	smq info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "smq: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "smq",
		Short:         "Ephemeral multi-channel HTTP message queue",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("server", envOr("SMQ_SERVER", "http://localhost:8080"), "smq server base URL")
	root.PersistentFlags().String("auth", os.Getenv("SMQ_AUTH_KEY"), "shared secret sent as x-auth")

	root.AddCommand(newServeCmd())
	root.AddCommand(newPushCmd())
	root.AddCommand(newPopCmd())
	root.AddCommand(newInfoCmd())
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
