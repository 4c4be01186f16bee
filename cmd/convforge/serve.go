package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dusk-indust/convforge/internal/llm"
	"github.com/dusk-indust/convforge/internal/mcptools"
	"github.com/dusk-indust/convforge/internal/pipeline"
)

func newServeMCPCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve-mcp",
		Short: "Run as an MCP server",
		Long: `Run as an MCP server exposing validate_conversation,
filter_conversation, dataset_status and generate_batch. Serves stdio by
default, or streamable HTTP when --http is given.

generate_batch needs api.model; the other tools work without a model
endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var transport llm.Transport
			if t, err := pipeline.NewTransport(a.cfg); err == nil {
				transport = t
			} else {
				a.log.WithError(err).Warn("generate_batch disabled")
			}

			server := mcptools.NewMCPServer(mcptools.NewService(a.cfg, transport, a.log))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if addr != "" {
				a.log.WithField("addr", addr).Info("serving MCP over HTTP")
				return mcptools.RunHTTP(ctx, server, addr)
			}
			return mcptools.RunStdio(ctx, server)
		},
	}
	cmd.Flags().StringVar(&addr, "http", "", "listen address for streamable HTTP (e.g. :8080)")
	return cmd
}
