package digest

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// Elements whose whole subtree is dropped before text is collected.
const removedSelector = "script, style, header, footer, nav"

// Extraction is the text pulled out of one HTML document, plus the title
// readability found for it.
type Extraction struct {
	Text  string
	Title string
}

// Extractor turns rendered HTML into plain text plus a readability title.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the visible body text of rawHTML. The title is best effort: a
// readability failure leaves it empty and is not reported.
func (e *Extractor) Extract(rawHTML, pageURL string) (*Extraction, error) {
	text, err := ExtractText(rawHTML)
	if err != nil {
		return nil, err
	}

	out := &Extraction{Text: text}

	var base *url.URL
	if u, err := url.Parse(pageURL); err == nil {
		base = u
	}
	if article, err := readability.FromReader(strings.NewReader(rawHTML), base); err == nil {
		out.Title = strings.TrimSpace(article.Title)
	}

	return out, nil
}

// ExtractText parses rawHTML, drops script, style, header, footer and nav
// subtrees, and joins the remaining trimmed text nodes of <body> with single spaces.
func ExtractText(rawHTML string) (string, error) {
	// Scripting off so <noscript> children are parsed as markup, not raw text.
	root, err := html.ParseWithOptions(strings.NewReader(rawHTML), html.ParseOptionEnableScripting(false))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := goquery.NewDocumentFromNode(root)
	doc.Find(removedSelector).Remove()

	var parts []string
	for _, n := range doc.Find("body").Nodes {
		collectText(n, &parts)
	}
	return strings.Join(parts, " "), nil
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			*parts = append(*parts, t)
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
