package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/helixml/openflights"
	"github.com/helixml/openflights/internal/log"
)

func loadCmd() *cobra.Command {
	var (
		envFile    string
		datasetDir string
		dumpDir    string
		noDump     bool
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load the OpenFlights datasets",
		Long: `Load airports.dat, airlines.dat and routes.dat into the database.

Airports and airlines are upserted by id. Duplicate routes collapse to one
row per route key. Description dumps (airports_desc.csv, airlines_desc.csv)
are written to the dump directory unless --no-dump is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(cmd, envFile, datasetDir, dumpDir, noDump)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVar(&datasetDir, "data-dir", "data", "Directory holding the OpenFlights .dat files")
	cmd.Flags().StringVar(&dumpDir, "dump-dir", "", "Directory for description dumps (default: {DATA_DIR}/dumps)")
	cmd.Flags().BoolVar(&noDump, "no-dump", false, "Skip writing description dumps")

	return cmd
}

func runLoad(cmd *cobra.Command, envFile, datasetDir, dumpDir string, noDump bool) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	switch {
	case noDump:
		dumpDir = ""
	case dumpDir == "":
		dumpDir = cfg.DumpDir()
	}

	slogger := log.NewLogger(cfg).Slog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := openflights.New(clientOptions(cfg, slogger)...)
	if err != nil {
		return fmt.Errorf("create openflights client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close openflights client", slog.Any("error", err))
		}
	}()

	result, err := client.Loader.LoadDir(ctx, datasetDir, dumpDir)
	if err != nil {
		return fmt.Errorf("load %s: %w", datasetDir, err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "airports: %d\nairlines: %d\nroutes:   %d (%d duplicates removed)\n",
		result.Airports, result.Airlines, result.Routes, result.DuplicateRoutes)
	if result.SkippedRows > 0 {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "skipped:  %d malformed rows\n", result.SkippedRows)
	}
	return nil
}
