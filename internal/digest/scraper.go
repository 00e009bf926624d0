package digest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/user/pagesum/internal/config"
)

// Scraper renders pages in a headless Chrome that lives for a single Scrape call.
type Scraper struct {
	cfg       *config.Config
	extractor *Extractor
	opts      options
}

func NewScraper(cfg *config.Config, opts ...Option) *Scraper {
	return &Scraper{
		cfg:       cfg,
		extractor: NewExtractor(),
		opts:      newOptions(opts),
	}
}

// Scrape renders targetURL and returns its cleaned content. Any error is a
// *FetchError and the browser is gone by the time it is returned.
func (s *Scraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	s.opts.reporter.Progress("Scraping %s...", targetURL)

	r, err := s.render(ctx, targetURL)
	if err != nil {
		s.opts.logger.Warn("scrape failed", "url", targetURL, "error", err)
		return nil, err
	}

	p, err := s.pageFrom(targetURL, r)
	if err != nil {
		return nil, err
	}
	s.opts.logger.Debug("page extracted",
		"url", targetURL,
		"html_bytes", len(r.html),
		"text_chars", len([]rune(p.BodyText)),
		"settled", p.Settled,
	)
	return p, nil
}

// pageFrom extracts the text of a rendered document. An empty document.title
// falls back to the title readability finds in the markup.
func (s *Scraper) pageFrom(targetURL string, r *rendered) (*Page, error) {
	ext, err := s.extractor.Extract(r.html, targetURL)
	if err != nil {
		return nil, &FetchError{URL: targetURL, Stage: StageExtract, Err: err}
	}

	title := strings.TrimSpace(r.title)
	if title == "" {
		title = ext.Title
	}

	return &Page{
		URL:      targetURL,
		Title:    title,
		BodyText: ext.Text,
		Settled:  r.settled,
	}, nil
}

type rendered struct {
	title   string
	html    string
	settled bool
}

// render owns the browser process. Every return path goes through the deferred
// cancels, which close the tab, kill Chrome and remove its temporary profile.
func (s *Scraper) render(ctx context.Context, targetURL string) (*rendered, error) {
	logger := s.opts.logger

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, s.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "source", "chromedp")
		}),
		chromedp.WithErrorf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "source", "chromedp")
		}),
	)
	defer func() {
		cancelBrowser()
		logger.Debug("browser closed", "url", targetURL)
	}()

	idle := newIdleWatcher()
	chromedp.ListenTarget(browserCtx, idle.observe)

	// The first Run launches Chrome. It gets no timeout of its own: a deadline
	// on the launching context would tear the browser down with it.
	if err := chromedp.Run(browserCtx, page.SetLifecycleEventsEnabled(true)); err != nil {
		return nil, &FetchError{URL: targetURL, Stage: StageLaunch, Err: err}
	}
	if c := chromedp.FromContext(browserCtx); c != nil && c.Target != nil {
		idle.setFrame(string(c.Target.TargetID))
	}

	logger.Debug("navigating", "url", targetURL, "timeout", s.cfg.Browser.NavigationTimeout)
	navCtx, cancelNav := context.WithTimeout(browserCtx, s.cfg.Browser.NavigationTimeout)
	err := chromedp.Run(navCtx, chromedp.Navigate(targetURL))
	cancelNav()
	if err != nil {
		return nil, &FetchError{URL: targetURL, Stage: StageNavigate, Err: err}
	}

	s.opts.reporter.Progress("Waiting for network activity to settle...")
	settled, err := idle.wait(ctx, s.cfg.Browser.SettleTimeout)
	if err != nil {
		return nil, &FetchError{URL: targetURL, Stage: StageSettle, Err: err}
	}
	if !settled {
		s.opts.reporter.Warn("Warning: Network didn't settle, but proceeding with current content.")
	}

	r := &rendered{settled: settled}
	extractCtx, cancelExtract := context.WithTimeout(browserCtx, s.cfg.Browser.NavigationTimeout)
	defer cancelExtract()
	if err := chromedp.Run(extractCtx,
		chromedp.Title(&r.title),
		chromedp.OuterHTML("html", &r.html, chromedp.ByQuery),
	); err != nil {
		return nil, &FetchError{URL: targetURL, Stage: StageExtract, Err: err}
	}

	return r, nil
}

func (s *Scraper) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", s.cfg.Browser.Headless),
		chromedp.UserAgent(s.cfg.Browser.UserAgent),
	)
	if s.cfg.Browser.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.cfg.Browser.ExecPath))
	}
	return append(opts, s.opts.allocOpts...)
}

// idleWatcher turns CDP lifecycle events into a "network idle" signal for the
// current document of the main frame. An "init" event starts a new document and
// clears any idle signal left over from the previous one.
type idleWatcher struct {
	mu      sync.Mutex
	frameID string
	idle    chan struct{}
}

func newIdleWatcher() *idleWatcher {
	return &idleWatcher{idle: make(chan struct{}, 1)}
}

func (w *idleWatcher) setFrame(id string) {
	w.mu.Lock()
	w.frameID = id
	w.mu.Unlock()
}

func (w *idleWatcher) observe(ev any) {
	if e, ok := ev.(*page.EventLifecycleEvent); ok {
		w.lifecycle(string(e.FrameID), e.Name)
	}
}

func (w *idleWatcher) lifecycle(frameID, name string) {
	w.mu.Lock()
	main := w.frameID
	w.mu.Unlock()
	if main != "" && frameID != main {
		return
	}

	switch name {
	case "init":
		select {
		case <-w.idle:
		default:
		}
	case "networkIdle":
		select {
		case w.idle <- struct{}{}:
		default:
		}
	}
}

// wait reports whether the network went idle within timeout. It only returns an
// error when ctx ends first.
func (w *idleWatcher) wait(ctx context.Context, timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-w.idle:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
