package notify

import (
	"sort"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	"github.com/vukovicluka/sheepai/internal/core/textsim"
)

// Match is an article selected for a subscriber with its relevance score.
type Match struct {
	Article   domain.EnrichedArticle
	Relevance int
}

// MatchArticles selects the articles whose title or content contain the
// subscriber's interest string and whose credibility meets threshold, ranked
// by relevance (highest first, ties keep input order).
//
// Subscribers with only a semantic query are matched by the same substring
// test against the query text; embedding similarity is used at search time
// only.
func MatchArticles(sub domain.Subscriber, articles []domain.EnrichedArticle, threshold int) []Match {
	interest := sub.InterestString()
	if interest == "" {
		return nil
	}

	var matches []Match

	for _, a := range articles {
		if !meetsThreshold(a, threshold) {
			continue
		}

		if !textsim.ContainsFold(interest, a.Title, a.Content) {
			continue
		}

		score := 0
		if r := textsim.Relevance(textsim.DocumentOf(a), interest); r != nil {
			score = *r
		}

		matches = append(matches, Match{Article: a, Relevance: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Relevance > matches[j].Relevance
	})

	return matches
}

// meetsThreshold passes unscored articles only when no threshold is set.
func meetsThreshold(a domain.EnrichedArticle, threshold int) bool {
	if a.CredibilityScore == nil {
		return threshold <= 0
	}

	return *a.CredibilityScore >= threshold
}

// AverageRelevance is the mean relevance of matches, 0 for none.
func AverageRelevance(matches []Match) float64 {
	if len(matches) == 0 {
		return 0
	}

	total := 0
	for _, m := range matches {
		total += m.Relevance
	}

	return float64(total) / float64(len(matches))
}
