// Package cmd implements tablecat's cobra-based CLI: serve, reload,
// query, status, and history subcommands over one or more configured
// datasets.
package cmd

import (
	"github.com/spf13/cobra"
)

// Version is the tablecat version reported by --version; cmd/tablecat's
// main sets it from its own Version constant before building the root
// command.
var Version = "dev"

// NewRootCommand creates the root cobra command for tablecat.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "tablecat",
		Short: "Aggregating tabular dataset engine",
		Long: `tablecat catalogs directories of tabular data files, serving range-pruned
queries over them without re-scanning the files on every request.

Datasets are declared as YAML configs under a config directory; each is
scanned on a reload cadence (and optionally on file-change notifications)
into an on-disk catalog that queries are served from.`,
		Version:      Version,
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config-dir", "datasets.d", "directory of dataset YAML configs")
	root.PersistentFlags().String("data-dir", ".tablecat/data", "directory catalogs are persisted under")
	root.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().String("notify-smtp-addr", "", "host:port of an SMTP relay to email quarantine notifications through (disabled if empty)")
	root.PersistentFlags().String("notify-smtp-from", "", "From address for SMTP notifications")
	root.PersistentFlags().StringSlice("notify-smtp-to", nil, "recipient addresses for SMTP notifications")

	root.AddCommand(NewServeCommand())
	root.AddCommand(NewReloadCommand())
	root.AddCommand(NewQueryCommand())
	root.AddCommand(NewStatusCommand())
	root.AddCommand(NewHistoryCommand())

	return root
}
