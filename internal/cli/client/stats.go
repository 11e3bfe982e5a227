package client

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docrag/internal/api/handlers"
)

// StatsCmd creates the stats command
func StatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show document and chunk totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := c.Get("/stats")
			if err != nil {
				return err
			}
			var st handlers.StatsResponse
			if err := resp.Decode(&st); err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), st)
			}
			printStats(cmd.OutOrStdout(), &st)
			return nil
		},
	}
}

func printStats(w io.Writer, st *handlers.StatsResponse) {
	fmt.Fprintf(w, "Documents: %d (%d Arabic)\n", st.TotalDocuments, st.ArabicDocuments)
	fmt.Fprintf(w, "Chunks:    %d (%d embedded)\n", st.TotalChunks, st.EmbeddedChunks)
}
