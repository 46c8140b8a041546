package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/tablecat/internal/engine"
)

// NewReloadCommand creates the reload command, which runs one update
// pass for a single dataset (or every configured dataset, with
// --all) and exits.
func NewReloadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reload [datasetId]",
		Short: "Run one update pass for a dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReload(cmd, args)
		},
	}

	cmd.Flags().Bool("all", false, "reload every configured dataset")

	return cmd
}

func runReload(cmd *cobra.Command, args []string) error {
	all, err := cmd.Flags().GetBool("all")
	if err != nil {
		return err
	}
	if !all && len(args) != 1 {
		return fmt.Errorf("reload requires a datasetId or --all")
	}

	mgr, auditStore, err := buildManager(cmd)
	if err != nil {
		return err
	}
	defer auditStore.Close()
	defer mgr.Close()

	datasets := mgr.All()
	if !all {
		ds, ok := mgr.Get(args[0])
		if !ok {
			return fmt.Errorf("unknown dataset %q", args[0])
		}
		datasets = []*engine.Dataset{ds}
	}

	for _, ds := range datasets {
		res, err := ds.Update(cmd.Context())
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: update failed: %v\n", ds.ID(), err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: added=%d removed=%d rescanned=%d quarantined=%d\n",
			ds.ID(), res.Added, res.Removed, res.Rescanned, res.Quarantined)
	}

	return nil
}
