package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/tablecat/internal/engine"
	"github.com/harrison/tablecat/internal/watch"
)

// NewServeCommand creates the serve command, which loads every
// configured dataset and keeps each one's catalog current on its
// reload cadence (plus an out-of-cadence reload whenever fsnotify
// detects a change, when --watch is set) until interrupted.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load configured datasets and keep their catalogs current",
		Long: `serve loads every dataset config under --config-dir, runs an initial
update pass for each, and then reloads each dataset on its configured
reloadEveryNMinutes cadence until interrupted with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().Bool("watch", false, "also trigger an early reload when a dataset's files change on disk")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	watchEnabled, err := cmd.Flags().GetBool("watch")
	if err != nil {
		return err
	}

	mgr, auditStore, err := buildManager(cmd)
	if err != nil {
		return err
	}
	defer auditStore.Close()
	defer mgr.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(cmd.OutOrStdout(), "received interrupt signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	for _, ds := range mgr.All() {
		if _, err := ds.Update(ctx); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: initial update failed: %v\n", ds.ID(), err)
		}
		if watchEnabled {
			if err := ds.WatchForChanges(ctx, watch.DefaultDebounceDelay); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: watch setup failed: %v\n", ds.ID(), err)
			}
		}
		go scheduleReloads(ctx, ds)
	}

	<-ctx.Done()
	return nil
}

// scheduleReloads runs ds.Update on its configured reload cadence
// until ctx is canceled.
func scheduleReloads(ctx context.Context, ds *engine.Dataset) {
	ticker := time.NewTicker(ds.ReloadInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := ds.Update(ctx); err != nil {
				continue
			}
		}
	}
}
