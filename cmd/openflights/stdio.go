package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/helixml/openflights"
	"github.com/helixml/openflights/internal/log"
	"github.com/helixml/openflights/internal/mcp"
)

func stdioCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "stdio",
		Short: "Start MCP server on stdio",
		Long: `Start the MCP (Model Context Protocol) server on stdio.

This lets AI assistants search for similar airports, airlines and routes.
Configuration is loaded from environment variables and .env file. Logs go
to stderr so stdout carries only protocol messages.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStdio(envFile)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file")

	return cmd
}

func runStdio(envFile string) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.NewLogger(cfg)
	slogger := logger.Slog()

	slogger.Info("starting MCP server",
		slog.String("version", version),
		slog.String("data_dir", cfg.DataDir()),
	)

	client, err := openflights.New(clientOptions(cfg, slogger)...)
	if err != nil {
		return fmt.Errorf("create openflights client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close openflights client", slog.Any("error", err))
		}
	}()

	if !client.Search.TextAvailable() {
		slogger.Warn("no embedding credential configured - only query_vec searches will work")
	}

	mcpServer := mcp.NewServer(client.Search, client.Indexer, version, slogger)

	return mcpServer.ServeStdio()
}
