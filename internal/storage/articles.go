package db

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/vukovicluka/sheepai/internal/core/domain"
	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
)

// FindByURLs returns the subset of urls already stored.
func (db *DB) FindByURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(urls))
	if len(urls) == 0 {
		return existing, nil
	}

	rows, err := db.Pool.Query(ctx, `SELECT url FROM articles WHERE url = ANY($1)`, urls)
	if err != nil {
		return nil, fmt.Errorf("find by urls: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}

		existing[url] = struct{}{}
	}

	return existing, rows.Err()
}

// ExistsByURL reports whether an article with url is stored.
func (db *DB) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	if err := db.Pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM articles WHERE url = $1)`, url).Scan(&exists); err != nil {
		return false, fmt.Errorf("exists by url: %w", err)
	}

	return exists, nil
}

// InsertIfAbsent stores a new article and sets its ID. It returns
// ErrAlreadyExists when the url is already stored.
func (db *DB) InsertIfAbsent(ctx context.Context, a *domain.EnrichedArticle) error {
	var id pgtype.UUID

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO articles (
			url, title, author, published_at, content,
			summary, key_points, tags, sentiment,
			credibility_score, credibility_mode, embedding,
			scraped_at, processed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (url) DO NOTHING
		RETURNING id
	`,
		SanitizeUTF8(a.URL),
		SanitizeUTF8(a.Title),
		toText(a.Author),
		toTimestamptzPtr(a.PublishedAt),
		SanitizeUTF8(a.Content),
		SanitizeUTF8(a.Summary),
		sanitizeAll(a.KeyPoints),
		sanitizeAll(a.Tags),
		string(a.Sentiment),
		toInt4Ptr(a.CredibilityScore),
		toText(string(a.CredibilityMode)),
		toVector(a.Embedding),
		toTimestamptz(a.ScrapedAt),
		toTimestamptz(a.ProcessedAt),
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", apperrors.ErrAlreadyExists, a.URL)
	}

	if err != nil {
		return fmt.Errorf("insert article: %w", mapWriteError(err))
	}

	a.ID = fromUUID(id)

	return nil
}

// FindAll returns articles matching f, newest first.
func (db *DB) FindAll(ctx context.Context, f domain.ArticleFilter) ([]domain.EnrichedArticle, error) {
	query, args, err := findAllQuery(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find all: %w", err)
	}

	return db.queryArticles(ctx, query, args...)
}

// FindMissingEmbeddings returns up to limit articles without an embedding,
// oldest first.
func (db *DB) FindMissingEmbeddings(ctx context.Context, limit int) ([]domain.EnrichedArticle, error) {
	query, args, err := psql.Select(articleColumns...).
		From(articlesTable).
		Where(sq.Eq{"embedding": nil}).
		OrderBy("scraped_at ASC").
		Limit(uint64(max(limit, 1))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find missing embeddings: %w", err)
	}

	return db.queryArticles(ctx, query, args...)
}

// SetEmbedding stores the embedding for the article with id.
func (db *DB) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	tag, err := db.Pool.Exec(ctx, `UPDATE articles SET embedding = $2, processed_at = now() WHERE id = $1`, id, toVector(embedding))
	if err != nil {
		return fmt.Errorf("set embedding: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set embedding %s: %w", id, apperrors.ErrNotFound)
	}

	return nil
}

// NearestByEmbedding ranks articles matching f by cosine similarity to
// embedding with an exhaustive scan, returning at most limit results with
// similarity of at least minSimilarity.
func (db *DB) NearestByEmbedding(ctx context.Context, embedding []float32, f domain.ArticleFilter, minSimilarity float64, limit int) ([]domain.ScoredArticle, error) {
	f.HasEmbedding = true
	vec := pgvector.NewVector(embedding)

	query, args, err := applyFilter(
		psql.Select(articleColumns...).
			Column(sq.Expr("1 - (embedding <=> ?) AS similarity", vec)).
			From(articlesTable), f).
		Where(sq.Expr("1 - (embedding <=> ?) >= ?", vec, minSimilarity)).
		OrderBy("similarity DESC").
		Limit(uint64(max(limit, 1))).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build nearest: %w", err)
	}

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("nearest by embedding: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoredArticle

	for rows.Next() {
		var similarity float64

		a, err := scanArticle(rows, &similarity)
		if err != nil {
			return nil, err
		}

		out = append(out, domain.ScoredArticle{Article: a, Score: similarity})
	}

	return out, rows.Err()
}

// Stats summarizes the stored articles.
func (db *DB) Stats(ctx context.Context) (domain.Stats, error) {
	stats := domain.Stats{BySentiment: make(map[domain.Sentiment]int)}

	var avg pgtype.Float8

	err := db.Pool.QueryRow(ctx, `
		SELECT count(*), count(embedding), avg(credibility_score)::float8
		FROM articles
	`).Scan(&stats.Total, &stats.WithEmbedding, &avg)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("article stats: %w", err)
	}

	if avg.Valid {
		stats.AvgCredibility = avg.Float64
	}

	rows, err := db.Pool.Query(ctx, `SELECT sentiment, count(*) FROM articles GROUP BY sentiment`)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("sentiment stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sentiment string
			count     int
		)

		if err := rows.Scan(&sentiment, &count); err != nil {
			return domain.Stats{}, fmt.Errorf("scan sentiment stats: %w", err)
		}

		stats.BySentiment[domain.ParseSentiment(sentiment)] += count
	}

	return stats, rows.Err()
}

func (db *DB) queryArticles(ctx context.Context, query string, args ...interface{}) ([]domain.EnrichedArticle, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	var out []domain.EnrichedArticle

	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}

		out = append(out, a)
	}

	return out, rows.Err()
}

// scanArticle reads one row in articleColumns order, followed by extra columns.
func scanArticle(row pgx.Row, extra ...interface{}) (domain.EnrichedArticle, error) {
	var (
		a         domain.EnrichedArticle
		id        pgtype.UUID
		author    pgtype.Text
		published pgtype.Timestamptz
		sentiment string
		score     pgtype.Int4
		mode      pgtype.Text
		embedding *pgvector.Vector
		scraped   pgtype.Timestamptz
		processed pgtype.Timestamptz
	)

	dest := append([]interface{}{
		&id, &a.URL, &a.Title, &author, &published, &a.Content,
		&a.Summary, &a.KeyPoints, &a.Tags, &sentiment,
		&score, &mode, &embedding,
		&scraped, &processed,
	}, extra...)

	if err := row.Scan(dest...); err != nil {
		return domain.EnrichedArticle{}, fmt.Errorf("scan article: %w", err)
	}

	a.ID = fromUUID(id)
	a.Author = fromText(author)
	a.PublishedAt = fromTimestamptzPtr(published)
	a.Sentiment = domain.ParseSentiment(sentiment)
	a.CredibilityScore = fromInt4Ptr(score)
	a.CredibilityMode = domain.CredibilityMode(fromText(mode))
	a.ScrapedAt = fromTimestamptz(scraped)
	a.ProcessedAt = fromTimestamptz(processed)

	if embedding != nil {
		a.Embedding = embedding.Slice()
	}

	return a, nil
}

func toVector(embedding []float32) *pgvector.Vector {
	if len(embedding) == 0 {
		return nil
	}

	v := pgvector.NewVector(embedding)

	return &v
}
