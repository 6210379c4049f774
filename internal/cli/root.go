// Package cli holds the cobra commands of the celsus binary.
package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/celsus/core/config"
)

// Version is set at build time with -ldflags "-X github.com/celsus/core/internal/cli.Version=...".
var Version = "dev"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string

	// LookupEnv resolves environment variables; tests replace it.
	LookupEnv func(string) (string, bool)
}

// NewRootCommand creates the root command reading the process environment.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{LookupEnv: os.LookupEnv})
}

// NewRootCommandWithOptions creates the root command on the given options.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "celsus",
		Short:         "celsus - personal book catalog",
		Long:          "Serves the book catalog over REST and processes lending messages from the core queue.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewConsumeCommand(opts))
	cmd.AddCommand(NewDispatchCommand(opts))
	cmd.AddCommand(NewSendCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig() (config.Config, error) {
	lookup := o.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	return config.LoadWith(o.ConfigPath, lookup)
}

func printLine(w io.Writer, line string) {
	_, _ = io.WriteString(w, line+"\n")
}
