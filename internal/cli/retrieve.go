package cli

import (
	"fmt"
	"mime"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/deckgen/internal/bootstrap"
	"github.com/kirillkom/deckgen/internal/core/domain"
	"github.com/kirillkom/deckgen/internal/core/usecase"
	"github.com/kirillkom/deckgen/internal/infrastructure/storage/localfs"
)

type retrieveOptions struct {
	file         string
	topic        string
	instructions string
	plain        bool
}

func newRetrieveCmd() *cobra.Command {
	opts := &retrieveOptions{}
	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Run retrieval against a local document and print the fused chunks",
		Long: `Index a local document, expand the topic into query variants, search
each variant and print the fused result as JSON.

Examples:
  deckgen retrieve -f notes.txt -t "onboarding"
  deckgen retrieve -f budget.xlsx -t "2026 budget" -i "focus on capex"
  deckgen retrieve -f notes.txt -t "onboarding" --plain`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRetrieve(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "source document (required)")
	cmd.Flags().StringVarP(&opts.topic, "topic", "t", "", "deck topic (required)")
	cmd.Flags().StringVarP(&opts.instructions, "instructions", "i", "", "extra instructions folded into the query")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "print only the fused chunks, without scores")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func runRetrieve(cmd *cobra.Command, opts *retrieveOptions) error {
	ctx := cmd.Context()

	abs, err := filepath.Abs(opts.file)
	if err != nil {
		return fmt.Errorf("resolve file: %w", err)
	}
	storage, err := localfs.New(filepath.Dir(abs))
	if err != nil {
		return err
	}

	retrieval, err := bootstrap.NewRetrieval(cfg, storage, nil)
	if err != nil {
		return err
	}

	name := filepath.Base(abs)
	job := &domain.DeckJob{
		ID:          "local",
		Filename:    name,
		MimeType:    mime.TypeByExtension(filepath.Ext(name)),
		StoragePath: name,
	}
	pages, err := retrieval.Extractor.Extract(ctx, job)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	chunks := usecase.SplitPages(name, pages, retrieval.Chunker)
	if len(chunks) == 0 {
		return fmt.Errorf("%s has no extractable text", name)
	}

	index, err := retrieval.Indexes.Build(ctx, chunks)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	defer index.Close()

	result, err := retrieval.Pipeline.Retrieve(ctx, usecase.InstructionQuery(opts.topic, opts.instructions), index)
	if err != nil {
		return err
	}
	if opts.plain {
		return writeJSON(cmd.OutOrStdout(), result.Plain())
	}
	return writeJSON(cmd.OutOrStdout(), result)
}
