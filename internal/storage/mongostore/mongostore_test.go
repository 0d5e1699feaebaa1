package mongostore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vukovicluka/sheepai/internal/core/domain"
)

func TestArticleQuery(t *testing.T) {
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	got := articleQuery(domain.ArticleFilter{
		URLs:           []string{"https://a"},
		Category:       " c++ ",
		Sentiment:      domain.SentimentPositive,
		MinCredibility: 70,
		Since:          since,
		HasEmbedding:   true,
	})

	assert.Equal(t, bson.M{
		"url": bson.M{"$in": []string{"https://a"}},
		"$or": bson.A{
			bson.M{"title": bson.M{"$regex": `c\+\+`, "$options": "i"}},
			bson.M{"content": bson.M{"$regex": `c\+\+`, "$options": "i"}},
		},
		"sentiment":         "positive",
		"credibility_score": bson.M{"$gte": 70},
		"scraped_at":        bson.M{"$gte": since},
		"embedding.0":       bson.M{"$exists": true},
	}, got)

	assert.Empty(t, articleQuery(domain.ArticleFilter{Limit: 5}))
}

func TestArticleDocRoundTripKeepsNullables(t *testing.T) {
	score := 80
	published := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	a := domain.EnrichedArticle{
		ID:               "id-1",
		RawArticle:       domain.RawArticle{URL: "u", Title: "t", PublishedAt: &published},
		Sentiment:        domain.SentimentNegative,
		CredibilityScore: &score,
	}

	doc := toArticleDoc(a)
	assert.Equal(t, []string{}, doc.KeyPoints)
	assert.Equal(t, []string{}, doc.Tags)
	assert.Nil(t, doc.Embedding)

	back := doc.toDomain()
	assert.Equal(t, "id-1", back.ID)
	assert.Equal(t, &score, back.CredibilityScore)
	assert.Equal(t, &published, back.PublishedAt)
	assert.Equal(t, domain.SentimentNegative, back.Sentiment)
}

func TestSubscriberDoc(t *testing.T) {
	minCred := 60
	s := domain.Subscriber{Email: "a@b.c", SemanticQuery: "supply chain", MinCredibility: &minCred}

	assert.Equal(t, s, toSubscriberDoc(s).toDomain())
}
