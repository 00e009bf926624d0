package digest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"
	"github.com/user/pagesum/internal/config"
)

// Reporter receives the user-facing console output of a run.
type Reporter interface {
	Progress(format string, args ...any)
	Warn(format string, args ...any)
	Title(title string)
	Summary(summary string)
}

// PageFetcher is satisfied by *Scraper.
type PageFetcher interface {
	Scrape(ctx context.Context, url string) (*Page, error)
}

// PageSummarizer is satisfied by *Summarizer.
type PageSummarizer interface {
	Summarize(ctx context.Context, content string) (string, error)
}

// Option configures a Scraper or a Summarizer.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	reporter  Reporter
	allocOpts []chromedp.ExecAllocatorOption
}

func newOptions(opts []Option) options {
	o := options{
		logger:   slog.New(slog.DiscardHandler),
		reporter: nopReporter{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithReporter(r Reporter) Option {
	return func(o *options) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithAllocatorOptions appends Chrome launch options after the defaults. Only
// the Scraper uses them.
func WithAllocatorOptions(opts ...chromedp.ExecAllocatorOption) Option {
	return func(o *options) {
		o.allocOpts = append(o.allocOpts, opts...)
	}
}

type nopReporter struct{}

func (nopReporter) Progress(string, ...any) {}
func (nopReporter) Warn(string, ...any)     {}
func (nopReporter) Title(string)            {}
func (nopReporter) Summary(string)          {}

// Run performs one fetch-then-summarize pass over url. The credential check comes
// first, so a missing key returns before the fetcher or the summarizer is touched.
// Errors match config.ErrMissingCredential, ErrFetch or ErrSummarize.
func Run(ctx context.Context, cfg *config.Config, url string, fetcher PageFetcher, summarizer PageSummarizer, rep Reporter) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rep == nil {
		rep = nopReporter{}
	}

	page, err := fetcher.Scrape(ctx, url)
	if err != nil {
		if !errors.Is(err, ErrFetch) {
			err = &FetchError{URL: url, Stage: StageNavigate, Err: err}
		}
		return nil, err
	}
	if page == nil {
		return nil, &FetchError{URL: url, Stage: StageExtract, Err: errors.New("no page returned")}
	}

	rep.Title(page.Title)

	summary, err := summarizer.Summarize(ctx, page.BodyText)
	if err != nil {
		if !errors.Is(err, ErrSummarize) {
			err = fmt.Errorf("%w: %w", ErrSummarize, err)
		}
		return &Result{Page: page}, err
	}

	rep.Summary(summary)
	return &Result{Page: page, Summary: summary}, nil
}
