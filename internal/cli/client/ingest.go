package client

import (
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cloo-solutions/docrag/internal/api/handlers"
	"github.com/cloo-solutions/docrag/internal/cli"
	"github.com/cloo-solutions/docrag/internal/domain"
)

type ingestOptions struct {
	recursive bool
	strategy  string
	language  string
	format    string
	parallel  int
}

type ingestOutcome struct {
	Path      string                   `json:"path"`
	Result    *handlers.IngestResponse `json:"result,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Duplicate bool                     `json:"duplicate"`
}

// IngestCmd uploads documents to the server
func IngestCmd() *cobra.Command {
	var opts ingestOptions

	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Upload documents for chunking and indexing",
		Long: `Upload text, Markdown, PDF and DOCX files. Directories contribute the supported
files they contain; use -r to descend into subdirectories.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := domain.ParseStrategy(opts.strategy); err != nil {
				return err
			}
			if opts.parallel < 1 {
				return fmt.Errorf("--parallel must be at least 1")
			}

			files, err := cli.CollectFiles(args, opts.recursive)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no supported documents found")
			}

			c, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			outcomes := uploadAll(c, files, opts)
			return reportIngest(cmd.OutOrStdout(), outcomes, outputJSON(cmd))
		},
	}

	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Force a chunking strategy (fixed or dynamic)")
	cmd.Flags().StringVar(&opts.language, "language", "", "Language hint (ar or en)")
	cmd.Flags().StringVar(&opts.format, "format", "", "Override format detection (text, markdown, pdf, docx)")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 4, "Concurrent uploads")
	return cmd
}

func uploadAll(c *APIClient, files []string, opts ingestOptions) []ingestOutcome {
	outcomes := make([]ingestOutcome, len(files))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(opts.parallel)
	for i, path := range files {
		g.Go(func() error {
			out := ingestOutcome{Path: path}
			resp, err := c.UploadDocument(path, UploadOptions{
				Format:   opts.format,
				Language: opts.language,
				Strategy: opts.strategy,
			})
			if err == nil {
				var res handlers.IngestResponse
				if err = resp.Decode(&res); err == nil {
					out.Result = &res
					out.Duplicate = res.Duplicate
				}
			}
			if err != nil {
				out.Error = err.Error()
			}

			mu.Lock()
			outcomes[i] = out
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func reportIngest(w io.Writer, outcomes []ingestOutcome, asJSON bool) error {
	failed := 0
	for _, o := range outcomes {
		if o.Error != "" {
			failed++
		}
	}

	if asJSON {
		if err := printJSON(w, outcomes); err != nil {
			return err
		}
	} else {
		for _, o := range outcomes {
			switch {
			case o.Error != "":
				fmt.Fprintf(w, "FAIL %s: %s\n", o.Path, o.Error)
			case o.Duplicate:
				fmt.Fprintf(w, "SKIP %s (duplicate of %s)\n", o.Path, o.Result.Document.ID)
			default:
				strategy := ""
				if o.Result.Decision != nil {
					strategy = o.Result.Decision.Strategy
				}
				fmt.Fprintf(w, "OK   %s -> %s (%s, %d chunks, %d embedded)\n",
					o.Path, o.Result.Document.ID, strategy, o.Result.ChunkCount, o.Result.EmbeddedCount)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(outcomes))
	}
	return nil
}
