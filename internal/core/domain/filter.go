package domain

import "time"

// ArticleFilter narrows Store.FindAll. Zero values mean "no constraint".
type ArticleFilter struct {
	URLs           []string
	Category       string
	Sentiment      Sentiment
	MinCredibility int
	Since          time.Time
	HasEmbedding   bool
	Limit          int
	Offset         int
}

// Stats summarizes the stored article corpus.
type Stats struct {
	Total          int
	WithEmbedding  int
	BySentiment    map[Sentiment]int
	AvgCredibility float64
}

// ScoredArticle is an article ranked by a search score. For semantic search
// Score is cosine similarity in [-1, 1]; for keyword search it is the
// relevance score in [0, 100].
type ScoredArticle struct {
	Article EnrichedArticle
	Score   float64
}
