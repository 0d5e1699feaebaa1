package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/vukovicluka/sheepai/internal/core/domain"
)

// ListSubscribers returns every subscriber ordered by email.
func (db *DB) ListSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT email, category, semantic_query, min_credibility
		FROM subscribers
		ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var out []domain.Subscriber

	for rows.Next() {
		var (
			s             domain.Subscriber
			category      pgtype.Text
			semanticQuery pgtype.Text
			minCred       pgtype.Int4
		)

		if err := rows.Scan(&s.Email, &category, &semanticQuery, &minCred); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}

		s.Category = fromText(category)
		s.SemanticQuery = fromText(semanticQuery)
		s.MinCredibility = fromInt4Ptr(minCred)

		out = append(out, s)
	}

	return out, rows.Err()
}

// UpsertSubscriber creates a subscriber or replaces the interest profile of
// the existing one with the same email.
func (db *DB) UpsertSubscriber(ctx context.Context, s domain.Subscriber) error {
	s.Email = domain.NormalizeEmail(s.Email)
	if err := s.Validate(); err != nil {
		return err
	}

	_, err := db.Pool.Exec(ctx, `
		INSERT INTO subscribers (email, category, semantic_query, min_credibility)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			category = EXCLUDED.category,
			semantic_query = EXCLUDED.semantic_query,
			min_credibility = EXCLUDED.min_credibility,
			updated_at = now()
	`, s.Email, toText(s.Category), toText(s.SemanticQuery), toInt4Ptr(s.MinCredibility))
	if err != nil {
		return fmt.Errorf("upsert subscriber: %w", mapWriteError(err))
	}

	return nil
}
