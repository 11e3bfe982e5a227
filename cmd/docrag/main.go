package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/docrag/internal/cli"
	"github.com/cloo-solutions/docrag/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "docrag",
		Short: "docrag CLI - Arabic and English document retrieval",
		Long: `docrag CLI uploads documents, inspects their chunking and asks questions answered
from the indexed content.

Environment variables:
  DOCRAG_API_KEY   API key sent as a bearer token (optional when the server has no key)
  DOCRAG_API_URL   API base URL (default: http://localhost:8080)`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.AuthCmd())
	rootCmd.AddCommand(client.IngestCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.DocsCmd())
	rootCmd.AddCommand(client.AnalyzeCmd())
	rootCmd.AddCommand(client.StatsCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
