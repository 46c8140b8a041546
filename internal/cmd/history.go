package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewHistoryCommand creates the history command, which prints a
// dataset's durable quarantine/schema-mismatch event log.
func NewHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history <datasetId>",
		Short: "Show a dataset's quarantine and schema-mismatch history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, args[0])
		},
	}
}

func runHistory(cmd *cobra.Command, datasetID string) error {
	mgr, auditStore, err := buildManager(cmd)
	if err != nil {
		return err
	}
	defer auditStore.Close()
	defer mgr.Close()

	ds, ok := mgr.Get(datasetID)
	if !ok {
		return fmt.Errorf("unknown dataset %q", datasetID)
	}

	events, err := ds.History(cmd.Context())
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if len(events) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: no recorded events\n", datasetID)
		return nil
	}

	for _, e := range events {
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s %s: %s\n", e.OccurredAt.Format("2006-01-02 15:04:05"), e.Kind, e.FileName, e.Reason)
	}

	return nil
}
