package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/helixml/openflights"
	"github.com/helixml/openflights/application/service"
	"github.com/helixml/openflights/domain/flight"
	"github.com/helixml/openflights/domain/search"
	"github.com/helixml/openflights/internal/log"
)

func indexCmd() *cobra.Command {
	var (
		envFile string
		only    string
		limit   int
		tz      string
		batch   int
		page    int
		status  bool
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed rows that have no embedding yet",
		Long: `Embed every airport, airline and route that has no embedding yet.

Runs are restartable: rows embedded by an earlier run, even one that was
interrupted, are skipped. With --force every row in scope is embedded again
and its stored description and vector are overwritten. Batches are clamped to 16..512 texts and the page
size is raised to at least the batch size.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, err := parseOnly(only)
			if err != nil {
				return err
			}
			opts := []service.IndexOption{
				service.WithBatchSize(batch),
				service.WithPageSize(page),
				service.WithRowLimit(limit),
				service.WithTZFilter(tz),
			}
			if force {
				opts = append(opts, service.WithForce())
			}
			return runIndex(cmd, envFile, kinds, opts, status)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")
	cmd.Flags().StringVar(&only, "only", "all", "Kind to index: airports, airlines, routes or all")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop each kind after this many rows (0: no limit)")
	cmd.Flags().StringVar(&tz, "tz", "", "Only index airports whose timezone starts with this prefix")
	cmd.Flags().IntVar(&batch, "batch", service.DefaultBatchSize, "Texts per embedding request")
	cmd.Flags().IntVar(&page, "page", service.DefaultPageSize, "Rows fetched per page")
	cmd.Flags().BoolVar(&force, "force", false, "Re-embed rows that already have an embedding")
	cmd.Flags().BoolVar(&status, "status", false, "Print index coverage and exit")

	return cmd
}

// parseOnly maps the --only flag to kinds in indexing order.
func parseOnly(only string) ([]flight.Kind, error) {
	if strings.EqualFold(strings.TrimSpace(only), "all") || strings.TrimSpace(only) == "" {
		return flight.Kinds(), nil
	}
	kind, err := flight.ParseKind(only)
	if err != nil {
		return nil, fmt.Errorf("--only: %w", err)
	}
	return []flight.Kind{kind}, nil
}

func runIndex(cmd *cobra.Command, envFile string, kinds []flight.Kind, opts []service.IndexOption, statusOnly bool) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
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

	if !statusOnly {
		if !client.Search.TextAvailable() {
			return fmt.Errorf("index: %w", search.ErrMissingCredential)
		}
		results, err := client.Indexer.RunAll(ctx, kinds, opts...)
		printResults(cmd.OutOrStdout(), results)
		if err != nil {
			return err
		}
	}

	statuses, err := client.Indexer.Status(ctx)
	if err != nil {
		return err
	}
	printStatus(cmd.OutOrStdout(), statuses)
	return nil
}

func printResults(out io.Writer, results []service.IndexResult) {
	for _, r := range results {
		_, _ = fmt.Fprintf(out, "%s: indexed %d, skipped %d in %s\n",
			r.Kind.Plural(), r.Indexed, r.Skipped, r.Duration.Round(time.Millisecond))
	}
}

func printStatus(out io.Writer, statuses []search.IndexStatus) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KIND\tTOTAL\tEMBEDDED\tPENDING")
	for _, s := range statuses {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", s.Kind.Plural(), s.Total, s.Embedded, s.Pending())
	}
	_ = w.Flush()
}
