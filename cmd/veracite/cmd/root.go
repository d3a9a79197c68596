// Package cmd provides the CLI commands for Veracite.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/veracite/veracite/pkg/version"
)

// Global flags shared by all commands.
var (
	corpusRoot string
	noColor    bool
	debugMode  bool
)

// NewRootCmd creates the root command for the veracite CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "veracite",
		Short: "Grounded legal document search with verifiable citations",
		Long: `Veracite indexes a directory of legal documents and answers
natural-language questions over them. Every answer is grounded in
page- and line-level citations back to the source documents.

Run 'veracite index' once, then 'veracite ask "your question"'.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("veracite version {{.Version}}\n")

	cmd.PersistentFlags().StringVarP(&corpusRoot, "corpus", "C", "", "Corpus directory (default: current directory)")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// resolveRoot returns the corpus root from the flag or the working directory.
func resolveRoot() string {
	if corpusRoot != "" {
		return corpusRoot
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
