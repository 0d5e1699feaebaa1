// Package credibility scores how trustworthy an article is on a 0-100 scale.
//
// The score is the sum of a deterministic part (source reputation, recency,
// author signal) and an AI-judged rubric. Without an AI model the score is
// the source score scaled to 0-100 and marked degraded.
package credibility

import (
	"context"
	_ "embed"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	"github.com/vukovicluka/sheepai/internal/core/llm"
	"github.com/vukovicluka/sheepai/internal/platform/observability"
)

//go:embed rubric.schema.json
var rubricSchemaJSON string

var rubricSchema = llm.NewSchema("rubric.schema.json", rubricSchemaJSON)

// Score components.
const (
	TemporalRecent = 5
	TemporalStale  = 2

	AuthorBlank      = 0
	AuthorCredential = 5
	AuthorNamed      = 2

	MaxAIScore        = 80
	MaxScore          = 100
	degradedScale     = 5
	defaultRecentDays = 30

	rubricMaxTokens   = 300
	promptContentSize = 3000
)

// Neutral rubric values used when the AI reply cannot be parsed.
const (
	neutralFactualAccuracy = 65
	neutralSensationalism  = 35
	neutralBias            = 65
	neutralCitationQuality = 55
	heuristicAdjustment    = 5
)

var credentialPattern = regexp.MustCompile(`(?i)(\bdr\.?\s|\bph\.?d\b|\bprof(essor)?\b|\bm\.?d\.?\b|\bcissp\b|\boscp\b|\bcisa\b|\bresearcher\b|\banalyst\b|\beditor\b|\bcorrespondent\b|\bjournalist\b|\bexpert\b)`)

// Rubric is the AI-judged assessment, each field 0-100. Bias is "freedom
// from bias": higher is better.
type Rubric struct {
	FactualAccuracy float64 `json:"factualAccuracy"`
	Sensationalism  float64 `json:"sensationalism"`
	Bias            float64 `json:"bias"`
	CitationQuality float64 `json:"citationQuality"`
}

// Score combines the rubric into 0-80.
func (r Rubric) Score() int {
	weighted := 0.30*clampF(r.FactualAccuracy) +
		0.20*(100-clampF(r.Sensationalism)) +
		0.15*clampF(r.Bias) +
		0.15*clampF(r.CitationQuality)

	return clamp(int(math.Round(weighted)), 0, MaxAIScore)
}

// Input is the article surface the scorer looks at.
type Input struct {
	URL         string
	Title       string
	Content     string
	Author      string
	PublishedAt *time.Time
}

// InputOf adapts a raw article.
func InputOf(a domain.RawArticle) Input {
	return Input{URL: a.URL, Title: a.Title, Content: a.Content, Author: a.Author, PublishedAt: a.PublishedAt}
}

// Result is a credibility score with its decomposition.
type Result struct {
	Score    int
	Mode     domain.CredibilityMode
	Source   int
	Temporal int
	Author   int
	AI       int
}

// Scorer computes credibility scores.
type Scorer struct {
	reputation *Reputation
	client     llm.Client
	model      string
	recent     time.Duration
	now        func() time.Time
	logger     *zerolog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// WithRecentDays sets the window in which an article counts as recent.
func WithRecentDays(days int) Option {
	return func(s *Scorer) {
		if days > 0 {
			s.recent = time.Duration(days) * 24 * time.Hour
		}
	}
}

// WithModel sets the completion model used for the rubric.
func WithModel(model string) Option {
	return func(s *Scorer) { s.model = model }
}

// NewScorer creates a scorer. A nil client, or one reporting no providers,
// puts the scorer in degraded mode.
func NewScorer(reputation *Reputation, client llm.Client, logger *zerolog.Logger, opts ...Option) *Scorer {
	if reputation == nil {
		reputation = DefaultReputation()
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	s := &Scorer{
		reputation: reputation,
		client:     client,
		recent:     defaultRecentDays * 24 * time.Hour,
		now:        time.Now,
		logger:     logger,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Score never fails: internal errors fall back to the source-only score.
func (s *Scorer) Score(ctx context.Context, in Input) (res Result) {
	source := s.reputation.Score(in.URL)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("url", in.URL).Msg("credibility scoring panicked")
			res = Result{Score: source * degradedScale, Mode: domain.CredibilitySourceOnly, Source: source}
		}

		observability.CredibilityAssessments.WithLabelValues(string(res.Mode)).Inc()
		observability.CredibilityScores.Observe(float64(res.Score))
	}()

	if s.client == nil || !s.client.Available() {
		return Result{Score: source * degradedScale, Mode: domain.CredibilityDegraded, Source: source}
	}

	res = Result{
		Mode:     domain.CredibilityFull,
		Source:   source,
		Temporal: s.temporalScore(in.PublishedAt),
		Author:   authorScore(in.Author),
	}

	rubric, structured := s.assess(ctx, in)
	if !structured {
		res.Mode = domain.CredibilityHeuristic
	}

	res.AI = rubric.Score()
	res.Score = clamp(res.AI+res.Source+res.Temporal+res.Author, 0, MaxScore)

	return res
}

// SourceScore exposes the reputation lookup.
func (s *Scorer) SourceScore(rawURL string) int {
	return s.reputation.Score(rawURL)
}

func (s *Scorer) temporalScore(published *time.Time) int {
	if published == nil || published.IsZero() {
		return TemporalStale
	}

	if s.now().Sub(*published) <= s.recent {
		return TemporalRecent
	}

	return TemporalStale
}

func authorScore(author string) int {
	author = strings.TrimSpace(author)

	switch {
	case author == "":
		return AuthorBlank
	case credentialPattern.MatchString(author):
		return AuthorCredential
	default:
		return AuthorNamed
	}
}

// assess asks the model for the rubric. structured is false when the reply
// had to be recovered heuristically.
func (s *Scorer) assess(ctx context.Context, in Input) (Rubric, bool) {
	reply, err := s.client.Complete(ctx, buildPrompt(in), s.model, rubricMaxTokens)
	if err != nil {
		s.logger.Warn().Err(err).Str("url", in.URL).Msg("credibility rubric call failed, using heuristics")
		return s.heuristicRubric(reply, in), false
	}

	var rubric Rubric
	if err := rubricSchema.Decode(reply, &rubric); err != nil {
		s.logger.Debug().Err(err).Str("url", in.URL).Msg("credibility rubric not structured, using heuristics")
		return s.heuristicRubric(reply, in), false
	}

	return rubric, true
}

var rubricFieldPatterns = map[string]*regexp.Regexp{
	"factualAccuracy": regexp.MustCompile(`(?i)factual[\s_-]*accuracy"?\s*[:=]\s*"?(\d{1,3}(?:\.\d+)?)`),
	"sensationalism":  regexp.MustCompile(`(?i)sensationalism"?\s*[:=]\s*"?(\d{1,3}(?:\.\d+)?)`),
	"bias":            regexp.MustCompile(`(?i)"?bias"?\s*[:=]\s*"?(\d{1,3}(?:\.\d+)?)`),
	"citationQuality": regexp.MustCompile(`(?i)citation[\s_-]*quality"?\s*[:=]\s*"?(\d{1,3}(?:\.\d+)?)`),
}

// heuristicRubric pulls whatever fields it can out of free text and fills
// the rest with neutral values nudged by recency and author signals.
func (s *Scorer) heuristicRubric(reply string, in Input) Rubric {
	r := Rubric{
		FactualAccuracy: neutralFactualAccuracy,
		Sensationalism:  neutralSensationalism,
		Bias:            neutralBias,
		CitationQuality: neutralCitationQuality,
	}

	if s.temporalScore(in.PublishedAt) == TemporalRecent {
		r.FactualAccuracy += heuristicAdjustment
	}

	switch authorScore(in.Author) {
	case AuthorCredential:
		r.CitationQuality += heuristicAdjustment
	case AuthorBlank:
		r.CitationQuality -= heuristicAdjustment
	}

	fields := map[string]*float64{
		"factualAccuracy": &r.FactualAccuracy,
		"sensationalism":  &r.Sensationalism,
		"bias":            &r.Bias,
		"citationQuality": &r.CitationQuality,
	}

	for name, target := range fields {
		m := rubricFieldPatterns[name].FindStringSubmatch(reply)
		if m == nil {
			continue
		}

		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			*target = clampF(v)
		}
	}

	return r
}

func buildPrompt(in Input) string {
	published := "unknown"
	if in.PublishedAt != nil {
		published = in.PublishedAt.Format(time.DateOnly)
	}

	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = "unknown"
	}

	content := in.Content
	if runes := []rune(content); len(runes) > promptContentSize {
		content = string(runes[:promptContentSize])
	}

	return fmt.Sprintf(`You are assessing the credibility of a cybersecurity news article.
Score each criterion from 0 to 100:
- factualAccuracy: how verifiable and accurate the claims are (100 = fully accurate)
- sensationalism: how sensational or clickbait the framing is (100 = extremely sensational)
- bias: freedom from bias (100 = completely neutral and balanced)
- citationQuality: quality of sources, references and attribution (100 = excellent)

Respond with a single JSON object and nothing else:
{"factualAccuracy": <0-100>, "sensationalism": <0-100>, "bias": <0-100>, "citationQuality": <0-100>, "reasoning": "<one sentence>"}

Title: %s
URL: %s
Author: %s
Published: %s

Content:
%s`, in.Title, in.URL, author, published, content)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func clampF(v float64) float64 {
	return math.Max(0, math.Min(v, 100))
}
