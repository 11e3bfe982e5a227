package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docrag/internal/api/handlers"
	"github.com/cloo-solutions/docrag/internal/cli"
	"github.com/cloo-solutions/docrag/internal/config"
	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/extract"
	"github.com/cloo-solutions/docrag/internal/memindex"
	"github.com/cloo-solutions/docrag/internal/openai"
	"github.com/cloo-solutions/docrag/internal/retrieval"
	"github.com/cloo-solutions/docrag/internal/service"
)

type analyzeOptions struct {
	recursive  bool
	strategy   string
	language   string
	format     string
	tuning     string
	showChunks bool
	ask        string
	topK       int
}

// analyzeReport is the chunking outcome of one local file
type analyzeReport struct {
	Path      string                   `json:"path"`
	Error     string                   `json:"error,omitempty"`
	Format    domain.DocumentFormat    `json:"format,omitempty"`
	Language  domain.Language          `json:"language,omitempty"`
	Runes     int                      `json:"runes"`
	Structure domain.DocumentStructure `json:"structure"`
	Strategy  domain.Strategy          `json:"strategy,omitempty"`
	Reason    domain.DecisionReason    `json:"reason,omitempty"`
	Chunks    chunkStats               `json:"chunks"`

	preview *service.PreviewResult
}

type chunkStats struct {
	Count int `json:"count"`
	Min   int `json:"min"`
	Max   int `json:"max"`
	Mean  int `json:"mean"`
}

// AnalyzeCmd runs the chunking pipeline locally, without a server or database
func AnalyzeCmd() *cobra.Command {
	var opts analyzeOptions

	cmd := &cobra.Command{
		Use:   "analyze <path>...",
		Short: "Preview structure analysis and chunking of local files",
		Long: `Extract, normalize, analyze and chunk local files exactly as the server would, and
report the chosen strategy with chunk statistics. Nothing is uploaded.

With --ask the chunks are embedded into an in-memory index and the question is answered
from it. This requires DOCRAG_OPENAI_API_KEY.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := domain.ParseStrategy(opts.strategy)
			if err != nil {
				return err
			}
			lang, err := domain.ParseLanguageHint(opts.language)
			if err != nil {
				return fmt.Errorf("invalid language %q (expected ar, en, mixed or unknown)", opts.language)
			}

			cfg, err := config.LoadLocal()
			if err != nil {
				return err
			}
			chunkingCfg, retrievalCfg := cfg.ChunkingConfig(), cfg.RetrievalConfig()
			if opts.tuning != "" {
				t, err := config.LoadTuning(opts.tuning)
				if err != nil {
					return err
				}
				chunkingCfg, retrievalCfg = t.ApplyChunking(chunkingCfg), t.ApplyRetrieval(retrievalCfg)
			}
			if err := chunkingCfg.Validate(); err != nil {
				return fmt.Errorf("invalid chunking config: %w", err)
			}
			if opts.ask != "" && !cfg.HasOpenAI() {
				return fmt.Errorf("--ask requires DOCRAG_OPENAI_API_KEY")
			}

			files, err := cli.CollectFiles(args, opts.recursive)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no supported documents found")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			ingestion := service.NewIngestionService(extract.New(), nil, nil, nil, nil, nil, nil,
				chunkingCfg, cfg.IngestionConfig())
			reports := analyzeFiles(ctx, ingestion, files, service.IngestInput{
				Format:       opts.format,
				LanguageHint: lang,
				Strategy:     strategy,
			})

			out := cmd.OutOrStdout()
			if opts.ask == "" {
				return writeAnalyzeReports(out, reports, opts.showChunks, outputJSON(cmd))
			}
			if err := writeAnalyzeReports(cmd.ErrOrStderr(), reports, false, false); err != nil {
				return err
			}

			answer, err := askLocal(ctx, cfg, retrievalCfg, reports, service.SearchInput{
				Query:        opts.ask,
				TopK:         opts.topK,
				LanguageHint: lang,
			})
			if err != nil {
				return err
			}
			resp := handlers.NewAnswerResponse(answer)
			if outputJSON(cmd) {
				return printJSON(out, resp)
			}
			printAnswer(out, resp, false)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.recursive, "recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "Force a chunking strategy (fixed or dynamic)")
	cmd.Flags().StringVar(&opts.language, "language", "", "Language hint (ar or en)")
	cmd.Flags().StringVar(&opts.format, "format", "", "Override format detection (text, markdown, pdf, docx)")
	cmd.Flags().StringVar(&opts.tuning, "tuning", "", "YAML tuning profile applied on top of the environment")
	cmd.Flags().BoolVar(&opts.showChunks, "show-chunks", false, "Print every chunk")
	cmd.Flags().StringVar(&opts.ask, "ask", "", "Answer a question from the analyzed files")
	cmd.Flags().IntVarP(&opts.topK, "top-k", "k", 0, "Number of fused candidates for --ask")
	return cmd
}

func analyzeFiles(ctx context.Context, ingestion *service.IngestionService, files []string, base service.IngestInput) []*analyzeReport {
	reports := make([]*analyzeReport, 0, len(files))
	for _, path := range files {
		r := &analyzeReport{Path: path}
		reports = append(reports, r)

		data, err := os.ReadFile(path)
		if err != nil {
			r.Error = err.Error()
			continue
		}
		input := base
		input.Filename = filepath.Base(path)
		input.Data = data

		p, err := ingestion.Preview(ctx, input)
		if err != nil {
			r.Error = err.Error()
			continue
		}
		r.preview = p
		r.Format = p.Format
		r.Language = p.Language
		r.Runes = p.Runes
		r.Structure = p.Structure
		r.Strategy = p.Decision.Strategy
		r.Reason = p.Decision.Reason
		r.Chunks = statsOf(p.Chunks)
	}
	return reports
}

func statsOf(chunks []domain.Chunk) chunkStats {
	s := chunkStats{Count: len(chunks)}
	if len(chunks) == 0 {
		return s
	}
	total := 0
	s.Min = chunks[0].Span.Len()
	for _, c := range chunks {
		n := c.Span.Len()
		total += n
		s.Min = min(s.Min, n)
		s.Max = max(s.Max, n)
	}
	s.Mean = total / len(chunks)
	return s
}

func writeAnalyzeReports(w io.Writer, reports []*analyzeReport, showChunks, asJSON bool) error {
	if asJSON {
		if err := printJSON(w, reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			if r.Error != "" {
				fmt.Fprintf(w, "FAIL %s: %s\n", r.Path, r.Error)
				continue
			}
			fmt.Fprintf(w, "%s\n", r.Path)
			fmt.Fprintf(w, "  format=%s language=%s runes=%d diacritics=%t\n",
				r.Format, r.Language, r.Runes, r.Structure.HasDiacritics)
			fmt.Fprintf(w, "  score=%.3f (headings=%d paragraphs=%d variance=%.3f markers=%d)\n",
				r.Structure.Score, r.Structure.HeadingCount, r.Structure.ParagraphCount,
				r.Structure.ParagraphVariance, r.Structure.SectionMarkerCount)
			fmt.Fprintf(w, "  strategy=%s reason=%s chunks=%d size min/mean/max=%d/%d/%d\n",
				r.Strategy, r.Reason, r.Chunks.Count, r.Chunks.Min, r.Chunks.Mean, r.Chunks.Max)
			if showChunks {
				for _, c := range r.preview.Chunks {
					fmt.Fprintf(w, "  #%d [%d,%d) %s\n    %s\n", c.Sequence, c.Span.Start, c.Span.End, c.Heading,
						truncateRunes(c.Text, 160))
				}
			}
		}
	}

	for _, r := range reports {
		if r.Error != "" {
			return fmt.Errorf("some files could not be analyzed")
		}
	}
	return nil
}

// askLocal embeds the previewed chunks into an in-memory index and answers input from it.
func askLocal(ctx context.Context, cfg *config.Config, rc retrieval.Config, reports []*analyzeReport, input service.SearchInput) (*service.Answer, error) {
	idx, err := memindex.New()
	if err != nil {
		return nil, err
	}

	client := openai.NewClientWithConfig(cfg.OpenAIConfig())
	embeddings := service.NewEmbeddingService(client, cfg.EmbeddingConfig())

	for i, r := range reports {
		if r.preview == nil {
			continue
		}
		docID := fmt.Sprintf("local-%d", i+1)
		chunks := restamp(r.preview.Chunks, docID)
		if _, err := embeddings.EmbedChunks(ctx, chunks); err != nil {
			return nil, fmt.Errorf("failed to embed %s: %w", r.Path, err)
		}
		if err := idx.ReplaceChunks(ctx, docID, chunks); err != nil {
			return nil, err
		}
	}

	query := service.NewQueryService(client, idx, idx, openai.NewGenerator(cfg.GeneratorConfig()), nil, rc)
	return query.Ask(ctx, input)
}

// restamp assigns previewed chunks to documentID so that files do not collide in one index.
func restamp(chunks []domain.Chunk, documentID string) []domain.Chunk {
	out := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		c.DocumentID = documentID
		c.ID = domain.ChunkID(documentID, c.Sequence)
		out[i] = c
	}
	return out
}
