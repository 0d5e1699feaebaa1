package mongostore

import (
	"time"

	"github.com/vukovicluka/sheepai/internal/core/domain"
)

type articleDoc struct {
	ID               string     `bson:"_id"`
	URL              string     `bson:"url"`
	Title            string     `bson:"title"`
	Author           string     `bson:"author,omitempty"`
	PublishedAt      *time.Time `bson:"published_at"`
	Content          string     `bson:"content"`
	Summary          string     `bson:"summary"`
	KeyPoints        []string   `bson:"key_points"`
	Tags             []string   `bson:"tags"`
	Sentiment        string     `bson:"sentiment"`
	CredibilityScore *int       `bson:"credibility_score"`
	CredibilityMode  string     `bson:"credibility_mode,omitempty"`
	Embedding        []float32  `bson:"embedding"`
	ScrapedAt        time.Time  `bson:"scraped_at"`
	ProcessedAt      time.Time  `bson:"processed_at"`
}

func toArticleDoc(a domain.EnrichedArticle) articleDoc {
	return articleDoc{
		ID:               a.ID,
		URL:              a.URL,
		Title:            a.Title,
		Author:           a.Author,
		PublishedAt:      a.PublishedAt,
		Content:          a.Content,
		Summary:          a.Summary,
		KeyPoints:        nonNil(a.KeyPoints),
		Tags:             nonNil(a.Tags),
		Sentiment:        string(a.Sentiment),
		CredibilityScore: a.CredibilityScore,
		CredibilityMode:  string(a.CredibilityMode),
		Embedding:        a.Embedding,
		ScrapedAt:        a.ScrapedAt.UTC(),
		ProcessedAt:      a.ProcessedAt.UTC(),
	}
}

func (d articleDoc) toDomain() domain.EnrichedArticle {
	return domain.EnrichedArticle{
		ID: d.ID,
		RawArticle: domain.RawArticle{
			URL:         d.URL,
			Title:       d.Title,
			Author:      d.Author,
			PublishedAt: d.PublishedAt,
			Content:     d.Content,
			Tags:        d.Tags,
		},
		Summary:          d.Summary,
		KeyPoints:        d.KeyPoints,
		Sentiment:        domain.ParseSentiment(d.Sentiment),
		CredibilityScore: d.CredibilityScore,
		CredibilityMode:  domain.CredibilityMode(d.CredibilityMode),
		Embedding:        d.Embedding,
		ScrapedAt:        d.ScrapedAt,
		ProcessedAt:      d.ProcessedAt,
	}
}

type subscriberDoc struct {
	Email          string    `bson:"email"`
	Category       string    `bson:"category,omitempty"`
	SemanticQuery  string    `bson:"semantic_query,omitempty"`
	MinCredibility *int      `bson:"min_credibility"`
	CreatedAt      time.Time `bson:"created_at,omitempty"`
	UpdatedAt      time.Time `bson:"updated_at,omitempty"`
}

func toSubscriberDoc(s domain.Subscriber) subscriberDoc {
	return subscriberDoc{
		Email:          s.Email,
		Category:       s.Category,
		SemanticQuery:  s.SemanticQuery,
		MinCredibility: s.MinCredibility,
	}
}

func (d subscriberDoc) toDomain() domain.Subscriber {
	return domain.Subscriber{
		Email:          d.Email,
		Category:       d.Category,
		SemanticQuery:  d.SemanticQuery,
		MinCredibility: d.MinCredibility,
	}
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}

	return items
}
