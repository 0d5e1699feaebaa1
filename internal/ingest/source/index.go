package source

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// linkSelectors are tried in order; the first one yielding links wins.
var linkSelectors = []string{
	"div.body-post a.story-link",
	"a.story-link",
	"article h2 a[href]",
	"h2.home-title a[href]",
	"h2.entry-title a[href]",
}

// articlePathPattern matches dated article paths such as /2026/03/some-story.html.
var articlePathPattern = regexp.MustCompile(`/\d{4}/\d{2}/[a-z0-9][a-z0-9-]*\.html?$`)

// indexLinks extracts detail-page links from the index page, falling back to
// a path pattern over every anchor when no structural selector matches.
func indexLinks(body []byte, base *url.URL, limit int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}

	for _, sel := range linkSelectors {
		if links := collectLinks(doc.Find(sel), base, limit, nil); len(links) > 0 {
			return links, nil
		}
	}

	return collectLinks(doc.Find("a[href]"), base, limit, articlePathPattern), nil
}

func collectLinks(s *goquery.Selection, base *url.URL, limit int, pattern *regexp.Regexp) []string {
	var links []string

	seen := make(map[string]struct{})

	s.EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, ok := a.Attr("href")
		if !ok {
			return true
		}

		link, ok := resolveLink(base, href)
		if !ok {
			return true
		}

		if pattern != nil && !pattern.MatchString(strings.ToLower(link)) {
			return true
		}

		if _, dup := seen[link]; dup {
			return true
		}

		seen[link] = struct{}{}
		links = append(links, link)

		return len(links) < limit
	})

	return links
}

// resolveLink makes href absolute against base and keeps only same-host
// http(s) links without fragments.
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}

	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	if !sameHost(u.Host, base.Host) {
		return "", false
	}

	u.Fragment = ""

	return u.String(), true
}

func sameHost(a, b string) bool {
	return strings.TrimPrefix(strings.ToLower(a), "www.") == strings.TrimPrefix(strings.ToLower(b), "www.")
}

// feedLinks reads item links from an RSS or Atom document.
func feedLinks(body []byte, limit int) ([]string, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	links := make([]string, 0, min(len(feed.Items), limit))
	seen := make(map[string]struct{})

	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}

		if _, dup := seen[link]; dup {
			continue
		}

		seen[link] = struct{}{}
		links = append(links, link)

		if len(links) == limit {
			break
		}
	}

	return links, nil
}
