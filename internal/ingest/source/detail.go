package source

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	readability "github.com/go-shiori/go-readability"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
)

// field is one way of reading a value out of a detail page: the text of the
// first match for Selector, or its Attr attribute when set.
type field struct {
	Selector string
	Attr     string
}

var (
	titleFields = []field{
		{Selector: "h1.story-title"},
		{Selector: "h1.entry-title"},
		{Selector: "article h1"},
		{Selector: `meta[property="og:title"]`, Attr: "content"},
		{Selector: "h1"},
		{Selector: "title"},
	}

	authorFields = []field{
		{Selector: `meta[name="author"]`, Attr: "content"},
		{Selector: `[rel="author"]`},
		{Selector: "span.author"},
		{Selector: ".byline"},
		{Selector: ".author"},
	}

	dateFields = []field{
		{Selector: `meta[property="article:published_time"]`, Attr: "content"},
		{Selector: "time[datetime]", Attr: "datetime"},
		{Selector: `meta[itemprop="datePublished"]`, Attr: "content"},
		{Selector: "time"},
		{Selector: ".date"},
	}

	contentSelectors = []string{
		"div.articlebody",
		"#articlebody",
		"article .entry-content",
		"div.post-body",
		"article",
	}

	tagSelectors = []string{
		"span.p-tags",
		".postLabels a",
		`a[rel="tag"]`,
		".tags a",
	}
)

const minContentChars = 80

var (
	whitespace = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankLines = regexp.MustCompile(`\n\s*\n+`)
)

// parseDetail reads an article page. It returns ErrPartialParse when no title
// or no content could be found.
func parseDetail(body []byte, pageURL string, maxChars int) (domain.RawArticle, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.RawArticle{}, fmt.Errorf("parse detail: %w", err)
	}

	article := domain.RawArticle{
		URL:    pageURL,
		Title:  firstValue(doc, titleFields),
		Author: cleanAuthor(firstValue(doc, authorFields)),
		Tags:   extractTags(doc),
	}

	article.PublishedAt = extractDate(doc)
	article.Content = truncate(extractContent(doc, body, pageURL), maxChars)

	if article.Title == "" || article.Content == "" {
		return domain.RawArticle{}, fmt.Errorf("%w: title=%t content=%t", apperrors.ErrPartialParse, article.Title != "", article.Content != "")
	}

	return article, nil
}

func firstValue(doc *goquery.Document, fields []field) string {
	for _, f := range fields {
		sel := doc.Find(f.Selector).First()
		if sel.Length() == 0 {
			continue
		}

		var v string
		if f.Attr != "" {
			v, _ = sel.Attr(f.Attr)
		} else {
			v = sel.Text()
		}

		if v = normalizeSpace(v); v != "" {
			return v
		}
	}

	return ""
}

func extractDate(doc *goquery.Document) *time.Time {
	for _, f := range dateFields {
		v := firstValue(doc, []field{f})
		if v == "" {
			continue
		}

		if t, err := dateparse.ParseIn(v, time.UTC); err == nil {
			t = t.UTC()
			return &t
		}
	}

	return nil
}

// extractContent joins paragraph text from the first matching container, and
// falls back to readability when no container holds enough text.
func extractContent(doc *goquery.Document, body []byte, pageURL string) string {
	for _, sel := range contentSelectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}

		if text := paragraphs(container); utf8.RuneCountInString(text) >= minContentChars {
			return text
		}
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return ""
	}

	return normalizeBlock(article.TextContent)
}

func paragraphs(container *goquery.Selection) string {
	var parts []string

	container.Find("p, li, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if t := normalizeSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})

	if len(parts) == 0 {
		return normalizeBlock(container.Text())
	}

	return strings.Join(parts, "\n\n")
}

func extractTags(doc *goquery.Document) []string {
	var tags []string

	for _, sel := range tagSelectors {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			tags = append(tags, splitLabels(s.Text())...)
		})

		if len(tags) > 0 {
			return domain.MergeTags(tags, nil)
		}
	}

	doc.Find(`meta[property="article:tag"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok {
			tags = append(tags, v)
		}
	})

	if v, ok := doc.Find(`meta[name="keywords"]`).First().Attr("content"); ok {
		tags = append(tags, splitLabels(v)...)
	}

	return domain.MergeTags(tags, nil)
}

func splitLabels(s string) []string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '/' || r == '|' })
	for i, p := range parts {
		parts[i] = normalizeSpace(p)
	}

	return parts
}

var authorPrefix = regexp.MustCompile(`(?i)^(by|written by|posted by)\s+`)

func cleanAuthor(s string) string {
	return strings.TrimSpace(authorPrefix.ReplaceAllString(s, ""))
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func normalizeBlock(s string) string {
	s = whitespace.ReplaceAllString(s, " ")
	s = blankLines.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}

	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s
	}

	return string([]rune(s)[:maxChars])
}
