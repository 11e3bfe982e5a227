package admin

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/docrag/internal/cli"
	"github.com/cloo-solutions/docrag/internal/config"
	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/service"
)

// IngestCmd returns the ingest command, which loads local files straight into the store.
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <path>...",
		Short: "Ingest local files without going through the API",
		Long: `Ingest files or directories directly into the database using the server configuration.
Directories contribute .txt, .md, .pdf and .docx files.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().BoolP("recursive", "r", false, "Descend into subdirectories")
	cmd.Flags().String("strategy", "auto", "Chunking strategy: auto, fixed or dynamic")
	cmd.Flags().String("language", "", "Language hint: ar, en or mixed")
	cmd.Flags().String("format", "", "Force the input format: txt, md, pdf or docx")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	recursive, _ := cmd.Flags().GetBool("recursive")
	strategyFlag, _ := cmd.Flags().GetString("strategy")
	languageFlag, _ := cmd.Flags().GetString("language")
	format, _ := cmd.Flags().GetString("format")

	strategy, err := domain.ParseStrategy(strategyFlag)
	if err != nil {
		return err
	}
	language, err := parseLanguageFlag(languageFlag)
	if err != nil {
		return err
	}

	files, err := cli.CollectFiles(args, recursive)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no documents found")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	shutdownTelemetry := initTelemetry()
	defer shutdownTelemetry()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	inputs := make([]service.IngestInput, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", f, err)
		}
		inputs = append(inputs, service.IngestInput{
			Filename:     filepath.Base(f),
			Data:         data,
			Format:       format,
			LanguageHint: language,
			Strategy:     strategy,
		})
	}

	results := a.ingestion.IngestBatch(ctx, inputs)

	out := cmd.OutOrStdout()
	failed := 0
	for i, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(out, "FAIL  %s: %v\n", files[i], r.Err)
		case r.Result.Duplicate:
			fmt.Fprintf(out, "SKIP  %s: already stored as %s\n", files[i], r.Result.Document.ID)
		default:
			fmt.Fprintf(out, "OK    %s: %s, %s, %d chunks (%d embedded, %s)\n",
				files[i], r.Result.Document.ID, r.Result.Decision.Strategy,
				r.Result.ChunkCount, r.Result.EmbeddedCount, r.Result.Document.Status)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(results))
	}
	return nil
}

func parseLanguageFlag(s string) (domain.Language, error) {
	lang, err := domain.ParseLanguageHint(s)
	if err != nil {
		return "", fmt.Errorf("invalid language %q (expected ar, en, mixed or unknown)", s)
	}
	return lang, nil
}
