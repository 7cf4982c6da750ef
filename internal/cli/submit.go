package cli

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kirillkom/deckgen/internal/bootstrap"
	"github.com/kirillkom/deckgen/internal/core/domain"
)

type submitOptions struct {
	file    string
	request domain.DeckRequest
}

func newSubmitCmd() *cobra.Command {
	opts := &submitOptions{}
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue a deck job for the worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSubmit(cmd, opts)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "source document (required)")
	flags.StringVarP(&opts.request.Topic, "topic", "t", "", "deck topic (required)")
	flags.StringVarP(&opts.request.Presenter, "presenter", "p", "", "presenter name (required)")
	flags.StringVarP(&opts.request.Instructions, "instructions", "i", "", "extra instructions")
	flags.StringVar(&opts.request.Style, "style", "", "presentation style, e.g. professional")
	flags.StringVar(&opts.request.Audience, "audience", "", "target audience")
	flags.IntVarP(&opts.request.NumSlides, "slides", "n", 0, "number of slides (default 10)")
	flags.BoolVar(&opts.request.IncludeExecutiveSummary, "executive-summary", false, "add an executive summary slide")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("presenter")
	return cmd
}

func runSubmit(cmd *cobra.Command, opts *submitOptions) error {
	ctx := cmd.Context()

	f, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("open source document: %w", err)
	}
	defer f.Close()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	name := filepath.Base(opts.file)
	job, err := app.SubmitUC.Submit(ctx, opts.request, name, mime.TypeByExtension(filepath.Ext(name)), f)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), job)
}
