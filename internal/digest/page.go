package digest

import (
	"errors"
	"fmt"
)

var (
	// ErrFetch is matched by every *FetchError.
	ErrFetch = errors.New("failed to scrape page")
	// ErrSummarize wraps any failure of the summarization call.
	ErrSummarize = errors.New("summarization failed")
)

// Page is the rendered content of one URL. It is not modified after Scrape returns it.
type Page struct {
	URL      string
	Title    string
	BodyText string

	// Settled is false when the page never reached network quiescence and the
	// content was captured as-is.
	Settled bool
}

// Stage identifies where in the browser session a fetch failed. StageSettle only
// happens when the caller's context ends during the idle wait; running out of
// settle time is not an error.
type Stage string

const (
	StageLaunch   Stage = "launch"
	StageNavigate Stage = "navigate"
	StageSettle   Stage = "settle"
	StageExtract  Stage = "extract"
)

// FetchError is returned by Scrape. The browser has already been closed when it is seen.
type FetchError struct {
	URL   string
	Stage Stage
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Stage, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// Result is the outcome of one successful pipeline run.
type Result struct {
	Page    *Page
	Summary string
}
