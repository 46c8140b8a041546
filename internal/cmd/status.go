package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command, which prints each
// configured dataset's published catalog size and quarantine count.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show catalog status for every configured dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	mgr, auditStore, err := buildManager(cmd)
	if err != nil {
		return err
	}
	defer auditStore.Close()
	defer mgr.Close()

	for _, ds := range mgr.All() {
		st := ds.Status()
		ready := "not yet updated"
		if st.Ready {
			ready = "ready"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s, files=%d quarantined=%d\n", st.DatasetID, ready, st.Files, st.Quarantined)
	}

	return nil
}
