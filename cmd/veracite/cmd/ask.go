package cmd

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veracite/veracite/internal/output"
)

// askOptions holds CLI flags for ask.
type askOptions struct {
	scope         string
	clientContext string
	format        string // "text", "json"
}

func newAskCmd() *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question over the indexed corpus",
		Long: `Ask a natural-language question over the indexed corpus.

The answer is drafted from the most similar passages and grounded in
page- and line-level citations back to the source documents.

Examples:
  veracite ask "when is rent due under the lease?" --scope acct-a
  veracite ask "what damages were claimed?" --scope acct-a --context "Acme v. Bolt"
  veracite ask "key filing deadlines" --scope acct-a --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runAsk(cmd, query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.scope, "scope", "s", "", "Account scope to search (required)")
	cmd.Flags().StringVarP(&opts.clientContext, "context", "c", "", "Client or matter framing for the answer")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	_ = cmd.MarkFlagRequired("scope")

	return cmd
}

func runAsk(cmd *cobra.Command, query string, opts askOptions) error {
	a, err := buildApp(resolveRoot(), false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	a.checkModelDrift(ctx)
	a.warmANN(ctx)

	resp, err := a.service.Search(ctx, query, opts.scope, opts.clientContext)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	out := output.New(cmd.OutOrStdout(), noColor)
	out.Response(resp)
	return nil
}
