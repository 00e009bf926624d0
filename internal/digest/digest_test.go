package digest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/user/pagesum/internal/config"
)

type fakeFetcher struct {
	calls int
	page  *Page
	err   error
}

func (f *fakeFetcher) Scrape(ctx context.Context, url string) (*Page, error) {
	f.calls++
	return f.page, f.err
}

type fakeSummarizer struct {
	calls int
	got   string
	reply string
	err   error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, content string) (string, error) {
	f.calls++
	f.got = content
	return f.reply, f.err
}

func TestRunMissingCredentialMakesNoCalls(t *testing.T) {
	cfg := testConfig(config.ProviderOpenAI, "")
	cfg.LLM.APIKey = ""

	fetcher := &fakeFetcher{page: &Page{URL: "https://example.com"}}
	summarizer := &fakeSummarizer{reply: "x"}

	_, err := Run(context.Background(), cfg, "https://example.com", fetcher, summarizer, nil)
	if !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("got %v, want ErrMissingCredential", err)
	}
	if fetcher.calls != 0 || summarizer.calls != 0 {
		t.Errorf("expected zero calls, got fetch=%d summarize=%d", fetcher.calls, summarizer.calls)
	}
}

func TestRunMissingCredentialNoNetwork(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	cfg := testConfig(config.ProviderOpenAI, srv.URL+"/v1")
	cfg.LLM.APIKey = "  "

	fetcher := &fakeFetcher{page: &Page{URL: srv.URL, BodyText: "text"}}
	_, err := Run(context.Background(), cfg, srv.URL, fetcher, NewSummarizer(cfg), nil)
	if !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("got %v, want ErrMissingCredential", err)
	}
	if hits != 0 {
		t.Errorf("network mock recorded %d calls, want 0", hits)
	}
}

func TestRunFetchFailureSkipsSummarizer(t *testing.T) {
	cases := []struct {
		name    string
		fetcher *fakeFetcher
		stage   Stage
	}{
		{
			name:    "navigation error",
			fetcher: &fakeFetcher{err: &FetchError{URL: "u", Stage: StageNavigate, Err: context.DeadlineExceeded}},
			stage:   StageNavigate,
		},
		{
			name:    "plain error is wrapped",
			fetcher: &fakeFetcher{err: errors.New("connection refused")},
			stage:   StageNavigate,
		},
		{
			name:    "nil page",
			fetcher: &fakeFetcher{},
			stage:   StageExtract,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summarizer := &fakeSummarizer{reply: "x"}
			rep := &recordingReporter{}

			res, err := Run(context.Background(), testConfig(config.ProviderOpenAI, ""), "u", tc.fetcher, summarizer, rep)
			if !errors.Is(err, ErrFetch) {
				t.Fatalf("got %v, want ErrFetch", err)
			}
			var fe *FetchError
			if !errors.As(err, &fe) {
				t.Fatalf("expected *FetchError, got %T", err)
			}
			if fe.Stage != tc.stage {
				t.Errorf("stage = %q, want %q", fe.Stage, tc.stage)
			}
			if res != nil {
				t.Errorf("expected nil result, got %+v", res)
			}
			if summarizer.calls != 0 {
				t.Errorf("summarizer called %d times after fetch failure", summarizer.calls)
			}
			if rep.title != "" || rep.summary != "" {
				t.Error("nothing should be printed after a fetch failure")
			}
		})
	}
}

func TestRunSuccess(t *testing.T) {
	page := &Page{URL: "https://example.com", Title: "Example", BodyText: "Hello World", Settled: true}
	fetcher := &fakeFetcher{page: page}
	summarizer := &fakeSummarizer{reply: "A greeting."}
	rep := &recordingReporter{}

	res, err := Run(context.Background(), testConfig(config.ProviderOpenAI, ""), page.URL, fetcher, summarizer, rep)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Page != page || res.Summary != "A greeting." {
		t.Errorf("unexpected result %+v", res)
	}
	if summarizer.got != "Hello World" {
		t.Errorf("summarizer got %q", summarizer.got)
	}
	if rep.title != "Example" || rep.summary != "A greeting." {
		t.Errorf("reported title=%q summary=%q", rep.title, rep.summary)
	}
}

func TestRunSummarizeFailure(t *testing.T) {
	page := &Page{URL: "https://example.com", Title: "Example", BodyText: "Hello"}
	rep := &recordingReporter{}

	res, err := Run(context.Background(), testConfig(config.ProviderOpenAI, ""), page.URL,
		&fakeFetcher{page: page}, &fakeSummarizer{err: errors.New("rate limited")}, rep)
	if !errors.Is(err, ErrSummarize) {
		t.Fatalf("got %v, want ErrSummarize", err)
	}
	if errors.Is(err, ErrFetch) {
		t.Error("summarize failure must not look like a fetch failure")
	}
	if res == nil || res.Page != page {
		t.Error("page should still be returned when only summarization failed")
	}
	if rep.summary != "" {
		t.Errorf("no summary should be printed, got %q", rep.summary)
	}
}

func TestRunSendsTruncatedBodyEndToEnd(t *testing.T) {
	fake := &fakeOpenAI{reply: "done"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	cfg := testConfig(config.ProviderOpenAI, srv.URL+"/v1")
	body := strings.Repeat("z", 5000)

	res, err := Run(context.Background(), cfg, "https://example.com",
		&fakeFetcher{page: &Page{URL: "https://example.com", BodyText: body}}, NewSummarizer(cfg), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Summary != "done" {
		t.Errorf("summary = %q", res.Summary)
	}
	payload := strings.TrimPrefix(fake.requests[0].Messages[1].Content, userPromptPrefix)
	if len(payload) != 4000 {
		t.Errorf("payload length = %d, want 4000", len(payload))
	}
}

func TestFetchErrorMatching(t *testing.T) {
	err := &FetchError{URL: "https://example.com", Stage: StageNavigate, Err: context.DeadlineExceeded}
	if !errors.Is(err, ErrFetch) {
		t.Error("FetchError should match ErrFetch")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("FetchError should unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "navigate https://example.com") {
		t.Errorf("error text = %q", err.Error())
	}
}
