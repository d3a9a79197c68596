package cmd

import (
	"github.com/spf13/cobra"

	"github.com/veracite/veracite/internal/mcp"
)

func newServeCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the corpus to AI clients over MCP",
		Long: `Start the Model Context Protocol server on stdio.

AI clients call the legal_search tool to get grounded answers with
citations, reindex to rebuild documents, and corpus_status to inspect
the index. Stdout carries JSON-RPC exclusively; logs go to the data
directory.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "MCP transport (stdio)")
	return cmd
}

func runServe(cmd *cobra.Command, transport string) error {
	// Stdout belongs to JSON-RPC from here on; nothing may print to it.
	a, err := buildApp(resolveRoot(), false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	a.checkModelDrift(ctx)
	a.warmANN(ctx)

	srv, err := mcp.NewServer(a.service, a.store, a.embedder, a.logger)
	if err != nil {
		return err
	}
	return srv.Serve(ctx, transport)
}
