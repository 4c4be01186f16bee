// Package mcptools exposes conversation validation, filtering, dataset
// status and batch generation as MCP tools.
package mcptools

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server with the 4 convforge tools registered.
func NewMCPServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "convforge",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "validate_conversation",
		Description: "Check raw model output against the alternating human/gpt conversation schema. Returns the normalized conversation when valid, or the reason a reformat is needed.",
	}, svc.ValidateConversation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "filter_conversation",
		Description: "Scan the gpt turns of a conversation for excluded phrases. Returns whether the conversation is allowed and the first offending phrase.",
	}, svc.FilterConversation)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dataset_status",
		Description: "Summarize the seed scenarios, scheduled generations and the conversations already in the dataset file.",
	}, svc.DatasetStatus)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_batch",
		Description: "Generate conversations for every seed scenario, validating, repairing and filtering each one before appending it to the dataset. Returns the batch tally.",
	}, svc.GenerateBatch)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP server over streamable HTTP on addr until ctx is
// cancelled.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
