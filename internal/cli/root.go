package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kirillkom/deckgen/internal/config"
	"github.com/kirillkom/deckgen/internal/observability/logging"
)

var (
	cfgFile string
	cfg     config.Config
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deckgen",
		Short: "Ground presentation decks in a source document",
		Long: `deckgen indexes a source document, expands the deck topic into query
variants, fuses their rankings and generates slides from the result.

Example usage:
  deckgen retrieve -f report.pdf -t "Q3 results"
  deckgen submit -f report.pdf -t "Q3 results" -p "Ann Lee"
  deckgen show <job-id>`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			path := cfgFile
			if path == "" {
				path = os.Getenv("DECKGEN_CONFIG")
			}
			loaded, err := config.LoadFrom(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			cfg = loaded
			slog.SetDefault(logging.NewJSONLoggerTo(cmd.ErrOrStderr(), "deckgen-cli", cfg.LogLevel))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (default $DECKGEN_CONFIG)")
	cmd.AddCommand(newRetrieveCmd(), newSubmitCmd(), newShowCmd())
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
