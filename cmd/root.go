package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/user/pagesum/internal/config"
	"github.com/user/pagesum/internal/digest"
	"github.com/user/pagesum/internal/ui"
)

// targetURL is the page summarized on every run.
const targetURL = "https://openai.com"

// errReported means the failure was already printed; only the exit status is left.
var errReported = errors.New("run failed")

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "pagesum",
	Short:         "Summarize a web page rendered in a headless browser",
	Long:          "Render " + targetURL + " in headless Chrome, strip it to readable text and print a short LLM summary.",
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return run(cmd.Context(), cfg, cmd.OutOrStdout(), setupLogger(verbose))
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log browser and API diagnostics to stderr")
}

func run(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	printer := ui.NewPrinter(out)

	scraper := digest.NewScraper(cfg, digest.WithLogger(logger), digest.WithReporter(printer))
	summarizer := digest.NewSummarizer(cfg, digest.WithLogger(logger), digest.WithReporter(printer))

	_, err := digest.Run(ctx, cfg, targetURL, scraper, summarizer, printer)
	return report(printer, err)
}

// report prints the console line for a failed run and returns errReported, or
// returns err untouched when it is not one of the known failures.
func report(p *ui.Printer, err error) error {
	if err == nil {
		return nil
	}

	var missing *config.MissingCredentialError
	switch {
	case errors.As(err, &missing):
		p.Failure("Error: "+missing.Error()+".", missing.Hint())
	case errors.Is(err, digest.ErrFetch):
		p.Failure("Failed to scrape the website.", "")
	case errors.Is(err, digest.ErrSummarize):
		p.Failure(fmt.Sprintf("Error: %v", err), "")
	default:
		return err
	}
	return errReported
}

// setupLogger creates a structured logger based on verbosity setting.
func setupLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(os.Stderr, opts)
	return slog.New(handler)
}
