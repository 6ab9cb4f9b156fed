package fetch

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
)

// Page holds the content extracted from one fetched document.
type Page struct {
	URL             string
	Title           string
	H1              string
	MetaDescription string
	Text            string
}

// Extract reduces an HTML document to the page fields the pipeline stores.
// The main text is taken from go-readability's article extraction when it
// finds a substantial article, otherwise from a heading/paragraph walk over
// the raw document.
func Extract(rawURL, html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &Page{
		URL:   rawURL,
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
		H1:    strings.TrimSpace(doc.Find("h1").First().Text()),
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		page.MetaDescription = strings.TrimSpace(desc)
	}

	if text := articleText(rawURL, html); text != "" {
		page.Text = text
		return page, nil
	}

	page.Text = blockText(doc)
	return page, nil
}

// articleText runs readability over the document and returns the article's
// text, or "" when no usable article was found.
func articleText(rawURL, html string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(html), parsedURL)
	if err != nil {
		return ""
	}
	text := strings.TrimSpace(article.TextContent)
	if len(text) < 200 {
		// Thin extractions are usually navigation chrome; fall back to
		// the block walk instead.
		return ""
	}
	return text
}

// blockText collects heading and paragraph text, preferring the document's
// main content region when one is marked up.
func blockText(doc *goquery.Document) string {
	root := doc.Selection
	if main := doc.Find("main, article, div.content, div.main").First(); main.Length() > 0 {
		main.Find("nav, header, footer, .navigation, .menu, .sidebar").Remove()
		root = main
	}

	var blocks []string
	root.Find("p, h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	return strings.Join(blocks, "\n\n")
}
