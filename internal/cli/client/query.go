package client

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docrag/internal/api/handlers"
)

type queryFlags struct {
	topK        int
	documentID  string
	language    string
	showContext bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.topK, "top-k", "k", 0, "Number of fused candidates (server default when 0)")
	cmd.Flags().StringVar(&f.documentID, "document", "", "Restrict retrieval to one document")
	cmd.Flags().StringVar(&f.language, "language", "", "Query language hint (ar or en)")
	cmd.Flags().BoolVar(&f.showContext, "show-context", false, "Print the assembled context")
}

func (f *queryFlags) request(query string) handlers.QueryRequest {
	return handlers.QueryRequest{
		Query:      query,
		TopK:       f.topK,
		DocumentID: f.documentID,
		Language:   f.language,
	}
}

// AskCmd asks a question answered from the indexed documents
func AskCmd() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := c.Post("/query", flags.request(strings.Join(args, " ")))
			if err != nil {
				return err
			}

			var answer handlers.AnswerResponse
			if err := resp.Decode(&answer); err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), answer)
			}
			printAnswer(cmd.OutOrStdout(), &answer, flags.showContext)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

// SearchCmd runs hybrid retrieval without answer generation
func SearchCmd() *cobra.Command {
	var flags queryFlags

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Show the fused retrieval candidates for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := c.Post("/search", flags.request(strings.Join(args, " ")))
			if err != nil {
				return err
			}

			var result handlers.SearchResponse
			if err := resp.Decode(&result); err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printCandidates(cmd.OutOrStdout(), result.Candidates)
			if flags.showContext {
				printContext(cmd.OutOrStdout(), result.Context.Text, result.Context.Size, result.Context.Budget)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func printAnswer(w io.Writer, a *handlers.AnswerResponse, showContext bool) {
	fmt.Fprintln(w, a.Answer)
	if !a.Grounded {
		fmt.Fprintln(w, "\n(no relevant context found)")
		return
	}

	fmt.Fprintf(w, "\nSources (%s, %dms):\n", a.Language, a.LatencyMs)
	for _, cc := range a.Context.Chunks {
		fmt.Fprintf(w, "  %s  score=%.3f\n", cc.ChunkID, cc.Score)
	}
	if showContext {
		printContext(w, a.Context.Text, a.Context.Size, a.Context.Budget)
	}
}

func printCandidates(w io.Writer, candidates []*handlers.CandidateResponse) {
	if len(candidates) == 0 {
		fmt.Fprintln(w, "No results")
		return
	}
	for i, c := range candidates {
		fmt.Fprintf(w, "%2d. %s  fused=%.3f vector=%.3f lexical=%.3f [%s]\n",
			i+1, c.ChunkID, c.FusedScore, c.VectorScore, c.LexicalScore, strings.Join(c.Sources, "+"))
		if c.Heading != "" {
			fmt.Fprintf(w, "    %s\n", c.Heading)
		}
	}
}

func printContext(w io.Writer, text string, size, budget int) {
	fmt.Fprintf(w, "\nContext (%d/%d runes):\n%s\n", size, budget, text)
}
