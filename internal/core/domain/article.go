package domain

import (
	"strings"
	"time"
)

// Sentiment is the overall tone of an article.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// ParseSentiment clamps arbitrary model output to the three known values.
func ParseSentiment(s string) Sentiment {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive
	case SentimentNegative:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

// CredibilityMode records how a credibility score was produced.
type CredibilityMode string

const (
	// CredibilityFull means the AI rubric was parsed from structured JSON.
	CredibilityFull CredibilityMode = "full"
	// CredibilityHeuristic means the rubric was recovered by token extraction.
	CredibilityHeuristic CredibilityMode = "heuristic"
	// CredibilityDegraded means no AI model is configured; score is source x 5.
	CredibilityDegraded CredibilityMode = "degraded"
	// CredibilitySourceOnly means the scorer failed internally and fell back
	// to the deterministic source score.
	CredibilitySourceOnly CredibilityMode = "source_only"
)

// RawArticle is one scraped article before enrichment.
type RawArticle struct {
	URL         string
	Title       string
	Author      string
	PublishedAt *time.Time
	Content     string
	Tags        []string
}

// EnrichedArticle is the persisted form of an article.
type EnrichedArticle struct {
	ID string
	RawArticle

	Summary          string
	KeyPoints        []string
	Sentiment        Sentiment
	CredibilityScore *int
	CredibilityMode  CredibilityMode
	Embedding        []float32
	ScrapedAt        time.Time
	ProcessedAt      time.Time
}

// Enrichment is the set of fields derived from a RawArticle.
type Enrichment struct {
	Summary          string
	KeyPoints        []string
	Tags             []string
	Sentiment        Sentiment
	CredibilityScore *int
	CredibilityMode  CredibilityMode
	Embedding        []float32
}

// Apply builds the persisted article from a raw article and its enrichment.
func (e Enrichment) Apply(raw RawArticle, scrapedAt, processedAt time.Time) EnrichedArticle {
	article := EnrichedArticle{
		RawArticle:       raw,
		Summary:          e.Summary,
		KeyPoints:        e.KeyPoints,
		Sentiment:        e.Sentiment,
		CredibilityScore: e.CredibilityScore,
		CredibilityMode:  e.CredibilityMode,
		Embedding:        e.Embedding,
		ScrapedAt:        scrapedAt,
		ProcessedAt:      processedAt,
	}

	if len(e.Tags) > 0 {
		article.Tags = e.Tags
	}

	if article.Sentiment == "" {
		article.Sentiment = SentimentNeutral
	}

	return article
}

// URLs returns the url of every raw article, in order.
func URLs(articles []RawArticle) []string {
	urls := make([]string, 0, len(articles))
	for _, a := range articles {
		urls = append(urls, a.URL)
	}

	return urls
}

// MergeTags appends extra tags to base, skipping blanks and case-insensitive duplicates.
func MergeTags(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))

	for _, list := range [][]string{base, extra} {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}

			key := strings.ToLower(tag)
			if _, ok := seen[key]; ok {
				continue
			}

			seen[key] = struct{}{}
			out = append(out, tag)
		}
	}

	return out
}
