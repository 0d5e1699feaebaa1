package domain

import (
	"fmt"
	"strings"

	apperrors "github.com/vukovicluka/sheepai/internal/core/errors"
)

// Subscriber is a recipient of article notifications.
type Subscriber struct {
	Email          string
	Category       string
	SemanticQuery  string
	MinCredibility *int
}

// NormalizeEmail lowercases and trims an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the subscriber has an address and at least one interest.
func (s Subscriber) Validate() error {
	if !strings.Contains(s.Email, "@") {
		return fmt.Errorf("%w: email %q", apperrors.ErrInvalidSubscriber, s.Email)
	}

	if strings.TrimSpace(s.Category) == "" && strings.TrimSpace(s.SemanticQuery) == "" {
		return fmt.Errorf("%w: category or semantic query required", apperrors.ErrInvalidSubscriber)
	}

	if s.MinCredibility != nil && (*s.MinCredibility < 0 || *s.MinCredibility > 100) {
		return fmt.Errorf("%w: min credibility %d out of range", apperrors.ErrInvalidSubscriber, *s.MinCredibility)
	}

	return nil
}

// InterestString is the text used for matching and relevance: the category
// keyword when present, otherwise the semantic query.
func (s Subscriber) InterestString() string {
	if c := strings.TrimSpace(s.Category); c != "" {
		return c
	}

	return strings.TrimSpace(s.SemanticQuery)
}

// Threshold returns the subscriber's credibility threshold or the fallback.
func (s Subscriber) Threshold(fallback int) int {
	if s.MinCredibility != nil {
		return *s.MinCredibility
	}

	return fallback
}
