// Package cli implements thumbctl, a command-line client for thumbor.
//
// The encode and decode commands convert between operation lists and
// pipeline tokens without any network access. The get and post commands are
// a small HTTP client for talking to a running server: they print the status
// line, the headers and the body, pretty-printing JSON.
package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var version = "dev" // set with -ldflags "-X github.com/aliskhannn/thumbor/internal/cli.version=..."

// NewRootCommand builds the thumbctl command tree.
func NewRootCommand() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "thumbctl",
		Short:        "thumbctl builds pipeline tokens and talks to a thumbor server",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newEncodeCmd())
	root.AddCommand(newDecodeCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newPostCmd())

	return root
}

// Execute runs thumbctl with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
