package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/veracite/veracite/internal/output"
	"github.com/veracite/veracite/internal/store"
)

// statusInfo is the JSON shape of the status command.
type statusInfo struct {
	CorpusDir      string `json:"corpus_dir"`
	DataDir        string `json:"data_dir"`
	Documents      int    `json:"documents"`
	Chunks         int    `json:"chunks"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	Dimensions     string `json:"dimensions,omitempty"`
}

func newStatusCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")
	return cmd
}

func runStatus(cmd *cobra.Command, format string) error {
	a, err := buildApp(resolveRoot(), false)
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return err
	}
	model, _ := a.store.GetState(ctx, store.StateKeyModel)
	dims, _ := a.store.GetState(ctx, store.StateKeyDimensions)

	info := statusInfo{
		CorpusDir:      a.cfg.Paths.CorpusDir,
		DataDir:        a.cfg.Paths.DataDir,
		Documents:      stats.Documents,
		Chunks:         stats.Chunks,
		EmbeddingModel: model,
		Dimensions:     dims,
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	out := output.New(cmd.OutOrStdout(), noColor)
	out.Statusf("Corpus:     %s", info.CorpusDir)
	out.Statusf("Data:       %s", info.DataDir)
	out.Statusf("Documents:  %d", info.Documents)
	out.Statusf("Chunks:     %d", info.Chunks)
	if info.EmbeddingModel != "" {
		out.Statusf("Model:      %s (%s dims)", info.EmbeddingModel, info.Dimensions)
	}
	return nil
}
