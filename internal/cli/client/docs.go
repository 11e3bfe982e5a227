package client

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docrag/internal/api/handlers"
)

// DocsCmd creates the docs parent command
func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Inspect and manage ingested documents",
	}

	cmd.AddCommand(
		docsListCmd(),
		docsGetCmd(),
		docsDeleteCmd(),
		docsChunksCmd(),
		docsDecisionCmd(),
		docsSourceCmd(),
	)
	return cmd
}

func docsListCmd() *cobra.Command {
	var limit int
	var cursor string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			q := url.Values{}
			if limit > 0 {
				q.Set("limit", strconv.Itoa(limit))
			}
			if cursor != "" {
				q.Set("cursor", cursor)
			}
			path := "/documents"
			if len(q) > 0 {
				path += "?" + q.Encode()
			}

			resp, err := c.Get(path)
			if err != nil {
				return err
			}
			var list handlers.DocumentListResponse
			if err := resp.Decode(&list); err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), list)
			}
			printDocumentList(cmd.OutOrStdout(), &list)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum documents to return")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")
	return cmd
}

func docsGetCmd() *cobra.Command {
	var withText bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			path := "/documents/" + url.PathEscape(args[0])
			if withText {
				path += "?include_text=true"
			}

			resp, err := c.Get(path)
			if err != nil {
				return err
			}
			var doc handlers.DocumentResponse
			if err := resp.Decode(&doc); err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), doc)
			}
			printDocument(cmd.OutOrStdout(), &doc)
			return nil
		},
	}

	cmd.Flags().BoolVar(&withText, "text", false, "Include the normalized text")
	return cmd
}

func docsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a document with its chunks and source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if _, err := c.Delete("/documents/" + url.PathEscape(args[0])); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func docsChunksCmd() *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "chunks <id>",
		Short: "List the chunks of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := c.Get("/documents/" + url.PathEscape(args[0]) + "/chunks")
			if err != nil {
				return err
			}
			var chunks []*handlers.ChunkResponse
			if err := resp.Decode(&chunks); err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), chunks)
			}
			printChunks(cmd.OutOrStdout(), chunks, full)
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Print complete chunk texts")
	return cmd
}

func docsDecisionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decision <id>",
		Short: "Show the chunking decision recorded for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			resp, err := c.Get("/documents/" + url.PathEscape(args[0]) + "/decision")
			if err != nil {
				return err
			}
			var d handlers.DecisionResponse
			if err := resp.Decode(&d); err != nil {
				return err
			}
			if outputJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), d)
			}
			printDecision(cmd.OutOrStdout(), &d)
			return nil
		},
	}
}

func docsSourceCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "source <id>",
		Short: "Print a download link for the original upload, or save it with -o",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			link, err := c.SourceURL(url.PathEscape(args[0]))
			if err != nil {
				return err
			}
			if output == "" {
				fmt.Fprintln(cmd.OutOrStdout(), link)
				return nil
			}

			errOut := cmd.ErrOrStderr()
			err = c.DownloadFileWithProgress(link, output, func(current, total int64) {
				if total > 0 {
					fmt.Fprintf(errOut, "\rDownloading... %d%%", current*100/total)
				}
			})
			fmt.Fprintln(errOut)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output-file", "o", "", "Save the original file to this path")
	return cmd
}

func printDocumentList(w io.Writer, list *handlers.DocumentListResponse) {
	if len(list.Items) == 0 {
		fmt.Fprintln(w, "No documents")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tLANG\tSTATUS\tCHUNKS\tCREATED")
	for _, d := range list.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", d.ID, d.Filename, d.Language, d.Status, d.ChunkCount, d.CreatedAt)
	}
	_ = tw.Flush()
	if list.HasMore {
		fmt.Fprintf(w, "\nMore results: --cursor %s\n", list.Cursor)
	}
}

func printDocument(w io.Writer, d *handlers.DocumentResponse) {
	fmt.Fprintf(w, "ID:        %s\n", d.ID)
	fmt.Fprintf(w, "Filename:  %s (%s)\n", d.Filename, d.Format)
	fmt.Fprintf(w, "Language:  %s\n", d.Language)
	fmt.Fprintf(w, "Status:    %s\n", d.Status)
	fmt.Fprintf(w, "Chunks:    %d\n", d.ChunkCount)
	fmt.Fprintf(w, "Structure: score=%.3f headings=%d paragraphs=%d markers=%d\n",
		d.Structure.Score, d.Structure.HeadingCount, d.Structure.ParagraphCount, d.Structure.SectionMarkerCount)
	fmt.Fprintf(w, "Created:   %s\n", d.CreatedAt)
	if d.Text != "" {
		fmt.Fprintf(w, "\n%s\n", d.Text)
	}
}

func printChunks(w io.Writer, chunks []*handlers.ChunkResponse, full bool) {
	for _, c := range chunks {
		embedded := ""
		if !c.Embedded {
			embedded = " (not embedded)"
		}
		fmt.Fprintf(w, "#%d [%d,%d) %s%s\n", c.Sequence, c.SpanStart, c.SpanEnd, c.Heading, embedded)
		text := c.Text
		if !full {
			text = truncateRunes(text, 160)
		}
		fmt.Fprintf(w, "  %s\n", text)
	}
}

func printDecision(w io.Writer, d *handlers.DecisionResponse) {
	fmt.Fprintf(w, "Strategy: %s (%s)\n", d.Strategy, d.Reason)
	fmt.Fprintf(w, "Score:    %.3f (heading density %.3f, paragraph variance %.3f, markers %d)\n",
		d.Score.Score, d.Score.HeadingDensity, d.Score.ParagraphVariance, d.Score.SectionMarkerCount)
	if d.Fixed != nil {
		fmt.Fprintf(w, "Fixed:    target=%d overlap=%d min_viable=%d\n", d.Fixed.TargetSize, d.Fixed.Overlap, d.Fixed.MinViable)
	}
	if d.Dynamic != nil {
		fmt.Fprintf(w, "Dynamic:  min=%d max=%d\n", d.Dynamic.MinSize, d.Dynamic.MaxSize)
	}
}

func truncateRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n]) + "..."
}
