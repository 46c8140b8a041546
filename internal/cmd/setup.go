package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrison/tablecat/internal/audit"
	"github.com/harrison/tablecat/internal/engine"
	"github.com/harrison/tablecat/internal/logger"
	"github.com/harrison/tablecat/internal/notify"
	"github.com/harrison/tablecat/internal/reader"
)

// buildManager loads every dataset config under --config-dir and
// returns a running engine.Manager plus the resources the caller is
// responsible for closing (audit store and manager).
func buildManager(cmd *cobra.Command) (*engine.Manager, *audit.Store, error) {
	configDir, err := cmd.Flags().GetString("config-dir")
	if err != nil {
		return nil, nil, err
	}
	dataDir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return nil, nil, err
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, nil, err
	}

	consoleLog := logger.NewConsoleLogger(cmd.OutOrStdout(), logLevel)

	auditStore, err := audit.Open(filepath.Join(dataDir, "audit.db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open audit log: %w", err)
	}

	notifier := notify.Multi{notify.NewConsole(cmd.OutOrStdout())}
	if smtpNotifier, err := smtpNotifierFromFlags(cmd); err != nil {
		return nil, nil, err
	} else if smtpNotifier != nil {
		notifier = append(notifier, smtpNotifier)
	}

	mgr, err := engine.LoadManager(configDir, dataDir, missingReader{}, consoleLog, notifier, auditStore)
	if err != nil {
		auditStore.Close()
		return nil, nil, err
	}

	return mgr, auditStore, nil
}

// smtpNotifierFromFlags builds an SMTP notifier from --notify-smtp-*
// flags, or returns a nil notifier if --notify-smtp-addr is unset.
func smtpNotifierFromFlags(cmd *cobra.Command) (notify.Notifier, error) {
	addr, err := cmd.Flags().GetString("notify-smtp-addr")
	if err != nil {
		return nil, err
	}
	if addr == "" {
		return nil, nil
	}
	from, err := cmd.Flags().GetString("notify-smtp-from")
	if err != nil {
		return nil, err
	}
	to, err := cmd.Flags().GetStringSlice("notify-smtp-to")
	if err != nil {
		return nil, err
	}
	if from == "" || len(to) == 0 {
		return nil, fmt.Errorf("--notify-smtp-addr requires --notify-smtp-from and --notify-smtp-to")
	}
	return notify.NewSMTP(addr, from, to, nil), nil
}

// missingReader is the file reader used until a concrete format (CSV,
// NetCDF, ...) is wired in for a deployment; every read fails with a
// clear message rather than silently returning empty data.
type missingReader struct{}

func (missingReader) Read(_ context.Context, _ reader.Request) (reader.Table, error) {
	return reader.Table{}, fmt.Errorf("no file reader configured for this deployment")
}
