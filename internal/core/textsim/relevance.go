package textsim

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/vukovicluka/sheepai/internal/core/domain"
)

// Relevance weights.
const (
	tagExactPoints    = 30
	tagContainsPoints = 20
	tagReversePoints  = 10
	tagCap            = 50
	minReverseTagLen  = 2

	titlePoints   = 40
	summaryPoints = 30

	contentOccurrencePoints = 5
	contentCap              = 20

	maxScore = 100
)

// Document is the text surface relevance is computed over.
type Document struct {
	Title   string
	Summary string
	Content string
	Tags    []string
}

// DocumentOf adapts a stored article.
func DocumentOf(a domain.EnrichedArticle) Document {
	return Document{Title: a.Title, Summary: a.Summary, Content: a.Content, Tags: a.Tags}
}

// Breakdown is the per-signal contribution behind a relevance score.
type Breakdown struct {
	Tags    int
	Title   int
	Summary int
	Content int
}

// Total is the clamped sum of all signals.
func (b Breakdown) Total() int {
	return clamp(b.Tags+b.Title+b.Summary+b.Content, 0, maxScore)
}

// Relevance scores doc against interest in [0,100]. An empty or whitespace
// interest yields nil: no relevance was requested.
func Relevance(doc Document, interest string) *int {
	b, ok := Explain(doc, interest)
	if !ok {
		return nil
	}

	score := b.Total()

	return &score
}

// Explain returns the signal breakdown. ok is false for an empty interest.
func Explain(doc Document, interest string) (Breakdown, bool) {
	needle := fold(strings.TrimSpace(interest))
	if needle == "" {
		return Breakdown{}, false
	}

	var b Breakdown

	for _, tag := range doc.Tags {
		t := fold(strings.TrimSpace(tag))
		switch {
		case t == "":
		case t == needle:
			b.Tags += tagExactPoints
		case strings.Contains(t, needle):
			b.Tags += tagContainsPoints
		case len(t) > minReverseTagLen && strings.Contains(needle, t):
			b.Tags += tagReversePoints
		}
	}

	b.Tags = min(b.Tags, tagCap)

	if strings.Contains(fold(doc.Title), needle) {
		b.Title = titlePoints
	}

	if strings.Contains(fold(doc.Summary), needle) {
		b.Summary = summaryPoints
	}

	b.Content = min(strings.Count(fold(doc.Content), needle)*contentOccurrencePoints, contentCap)

	return b, true
}

// ContainsFold reports whether needle occurs in any of the haystacks,
// ignoring case. An empty needle never matches.
func ContainsFold(needle string, haystacks ...string) bool {
	n := fold(strings.TrimSpace(needle))
	if n == "" {
		return false
	}

	for _, h := range haystacks {
		if strings.Contains(fold(h), n) {
			return true
		}
	}

	return false
}

// A Caser keeps state between calls, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
