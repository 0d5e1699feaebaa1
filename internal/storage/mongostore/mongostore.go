// Package mongostore is the MongoDB article and subscriber store.
package mongostore

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
)

const (
	articlesCollection    = "articles"
	subscribersCollection = "subscribers"

	connectTimeout = 10 * time.Second
)

// Store keeps articles and subscribers in two collections with unique
// indexes on url and email.
type Store struct {
	client      *mongo.Client
	articles    *mongo.Collection
	subscribers *mongo.Collection
	logger      *zerolog.Logger
}

// New connects to uri, pings the server and ensures the unique indexes.
func New(ctx context.Context, uri, database string, logger *zerolog.Logger) (*Store, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetConnectTimeout(connectTimeout))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:      client,
		articles:    db.Collection(articlesCollection),
		subscribers: db.Collection(subscribersCollection),
		logger:      logger,
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	if _, err := s.articles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "url", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "published_at", Value: -1}, {Key: "scraped_at", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("create article indexes: %w", err)
	}

	if _, err := s.subscribers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create subscriber indexes: %w", err)
	}

	return nil
}

// Ping checks the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := s.client.Disconnect(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("mongo disconnect failed")
	}
}

// FindByURLs returns the subset of urls already stored.
func (s *Store) FindByURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(urls))
	if len(urls) == 0 {
		return existing, nil
	}

	cursor, err := s.articles.Find(ctx,
		bson.M{"url": bson.M{"$in": urls}},
		options.Find().SetProjection(bson.M{"url": 1, "_id": 0}))
	if err != nil {
		return nil, fmt.Errorf("find by urls: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			URL string `bson:"url"`
		}

		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode url: %w", err)
		}

		existing[row.URL] = struct{}{}
	}

	return existing, cursor.Err()
}

// ExistsByURL reports whether an article with url is stored.
func (s *Store) ExistsByURL(ctx context.Context, url string) (bool, error) {
	n, err := s.articles.CountDocuments(ctx, bson.M{"url": url}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("exists by url: %w", err)
	}

	return n > 0, nil
}

// InsertIfAbsent stores a new article and sets its ID. A duplicate url
// returns ErrAlreadyExists.
func (s *Store) InsertIfAbsent(ctx context.Context, a *domain.EnrichedArticle) error {
	doc := toArticleDoc(*a)
	doc.ID = uuid.NewString()

	if _, err := s.articles.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, a.URL)
		}

		return fmt.Errorf("insert article: %w", err)
	}

	a.ID = doc.ID

	return nil
}

// FindAll returns articles matching f, newest first.
func (s *Store) FindAll(ctx context.Context, f domain.ArticleFilter) ([]domain.EnrichedArticle, error) {
	opts := options.Find().SetSort(bson.D{{Key: "published_at", Value: -1}, {Key: "scraped_at", Value: -1}})

	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}

	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}

	return s.findArticles(ctx, articleQuery(f), opts)
}

// FindMissingEmbeddings returns up to limit articles without an embedding,
// oldest first.
func (s *Store) FindMissingEmbeddings(ctx context.Context, limit int) ([]domain.EnrichedArticle, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "scraped_at", Value: 1}}).
		SetLimit(int64(max(limit, 1)))

	return s.findArticles(ctx, bson.M{"embedding": bson.M{"$in": bson.A{nil, bson.A{}}}}, opts)
}

// SetEmbedding stores the embedding for the article with id.
func (s *Store) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	res, err := s.articles.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"embedding": embedding, "processed_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("set embedding: %w", err)
	}

	if res.MatchedCount == 0 {
		return fmt.Errorf("set embedding %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

// Stats summarizes the stored articles with one aggregation.
func (s *Store) Stats(ctx context.Context) (domain.Stats, error) {
	cursor, err := s.articles.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$facet", Value: bson.M{
			"totals": bson.A{
				bson.M{"$group": bson.M{
					"_id":   nil,
					"total": bson.M{"$sum": 1},
					"avg":   bson.M{"$avg": "$credibility_score"},
					"with_embedding": bson.M{"$sum": bson.M{
						"$cond": bson.A{bson.M{"$gt": bson.A{bson.M{"$size": bson.M{"$ifNull": bson.A{"$embedding", bson.A{}}}}, 0}}, 1, 0},
					}},
				}},
			},
			"sentiment": bson.A{
				bson.M{"$group": bson.M{"_id": "$sentiment", "count": bson.M{"$sum": 1}}},
			},
		}}},
	})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("article stats: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Totals []struct {
			Total         int      `bson:"total"`
			Avg           *float64 `bson:"avg"`
			WithEmbedding int      `bson:"with_embedding"`
		} `bson:"totals"`
		Sentiment []struct {
			ID    string `bson:"_id"`
			Count int    `bson:"count"`
		} `bson:"sentiment"`
	}

	if err := cursor.All(ctx, &result); err != nil {
		return domain.Stats{}, fmt.Errorf("decode stats: %w", err)
	}

	stats := domain.Stats{BySentiment: make(map[domain.Sentiment]int)}
	if len(result) == 0 {
		return stats, nil
	}

	if len(result[0].Totals) > 0 {
		t := result[0].Totals[0]
		stats.Total = t.Total
		stats.WithEmbedding = t.WithEmbedding

		if t.Avg != nil {
			stats.AvgCredibility = *t.Avg
		}
	}

	for _, row := range result[0].Sentiment {
		stats.BySentiment[domain.ParseSentiment(row.ID)] += row.Count
	}

	return stats, nil
}

// ListSubscribers returns every subscriber ordered by email.
func (s *Store) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	cursor, err := s.subscribers.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []subscriberDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode subscribers: %w", err)
	}

	out := make([]domain.Subscriber, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}

	return out, nil
}

// UpsertSubscriber creates a subscriber or replaces the interest profile of
// the existing one with the same email.
func (s *Store) UpsertSubscriber(ctx context.Context, sub domain.Subscriber) error {
	sub.Email = domain.NormalizeEmail(sub.Email)
	if err := sub.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	doc := toSubscriberDoc(sub)

	_, err := s.subscribers.UpdateOne(ctx,
		bson.M{"email": sub.Email},
		bson.M{
			"$set": bson.M{
				"category":        doc.Category,
				"semantic_query":  doc.SemanticQuery,
				"min_credibility": doc.MinCredibility,
				"updated_at":      now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, sub.Email)
		}

		return fmt.Errorf("upsert subscriber: %w", err)
	}

	return nil
}

func (s *Store) findArticles(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.EnrichedArticle, error) {
	cursor, err := s.articles.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find articles: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []articleDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode articles: %w", err)
	}

	out := make([]domain.EnrichedArticle, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}

	return out, nil
}

// articleQuery translates f into a Mongo filter document.
func articleQuery(f domain.ArticleFilter) bson.M {
	q := bson.M{}

	if len(f.URLs) > 0 {
		q["url"] = bson.M{"$in": f.URLs}
	}

	if c := strings.TrimSpace(f.Category); c != "" {
		pattern := containsPattern(c)
		q["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"content": pattern},
		}
	}

	if f.Sentiment != "" {
		q["sentiment"] = string(f.Sentiment)
	}

	if f.MinCredibility > 0 {
		q["credibility_score"] = bson.M{"$gte": f.MinCredibility}
	}

	if !f.Since.IsZero() {
		q["scraped_at"] = bson.M{"$gte": f.Since}
	}

	if f.HasEmbedding {
		q["embedding.0"] = bson.M{"$exists": true}
	}

	return q
}

func containsPattern(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}
