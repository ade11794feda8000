// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/axite-ai/mcp-gpt-proxy/pkg/config"
	"github.com/axite-ai/mcp-gpt-proxy/pkg/proxy"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "mcp-gpt-proxy",
		Short: "MCP gateway that adds ChatGPT widget metadata and relays OAuth discovery",
		Long: `mcp-gpt-proxy sits between an MCP client and an upstream MCP server.

It forwards JSON-RPC calls, decorates tool results with widget metadata,
serves widget resources from a renderer, and relays the upstream OAuth
endpoints under the gateway's own origin.`,
		Version:      version,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runServe,
	}
	root.SetVersionTemplate("mcp-gpt-proxy version {{.Version}}\n")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway (default)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	for _, cmd := range []*cobra.Command{root, serveCmd} {
		cmd.Flags().String("listen", "", "address to listen on (overrides MCP_LISTEN_ADDR)")
		cmd.Flags().String("widgets", "", "YAML widget mappings file (overrides MCP_WIDGETS_FILE)")
		cmd.Flags().String("upstream", "", "upstream MCP endpoint URL (overrides MCP_SERVER_URL)")
	}

	root.AddCommand(serveCmd)
	root.AddCommand(&cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the widget mappings file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := config.WidgetsSchema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return err
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mcp-gpt-proxy version %s\n", version)
		},
	})

	return root
}

// runServe resolves configuration from the environment, applies flag
// overrides, and runs the gateway until the command context ends.
func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.ListenAddr, _ = flags.GetString("listen")
	}
	if flags.Changed("upstream") {
		raw, _ := flags.GetString("upstream")
		if cfg.MCPServerURL, err = config.ParseServerURL(raw); err != nil {
			log.Error().Err(err).Str("upstream", raw).Msg("invalid upstream URL")
			return err
		}
	}
	if flags.Changed("widgets") {
		path, _ := flags.GetString("widgets")
		if cfg.Widgets, err = config.LoadWidgetsFile(path); err != nil {
			log.Error().Err(err).Str("file", path).Msg("failed to load widget mappings")
			return err
		}
	}

	if err := setupLogging(cfg); err != nil {
		return err
	}
	return serve(cmd.Context(), cfg)
}

func setupLogging(cfg config.Config) error {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Error().Err(err).Str("log_level", cfg.LogLevel).Msg("invalid log level")
		return err
	}
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.Level(level)
	return nil
}

func serve(ctx context.Context, cfg config.Config) error {
	gateway, err := proxy.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("failed to construct proxy")
		return err
	}

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      gateway,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("listen_addr", cfg.ListenAddr).
			Str("upstream", cfg.MCPServerURL.String()).
			Int("widgets", gateway.Registry().Len()).
			Msg("starting MCP GPT proxy")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("proxy server exited unexpectedly")
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdown(server, cfg.GracefulShutdownTimeout)
		return nil
	})

	return g.Wait()
}

func shutdown(srv *http.Server, timeout time.Duration) {
	log.Info().Msg("shutting down MCP GPT proxy")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed; forcing close")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("forced close failed")
		}
	}

	log.Info().Msg("proxy stopped")
}
