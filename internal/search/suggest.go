package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
)

// buildSuggestions merges product-name and category-name matches into one
// list capped at limit, products first.
func (s *Service) buildSuggestions(ctx context.Context, term string, limit int) ([]domain.Suggestion, error) {
	products, err := s.store.SuggestProducts(ctx, term, limit)
	if err != nil {
		return nil, fmt.Errorf("suggest products: %w", err)
	}

	suggestions := make([]domain.Suggestion, 0, limit)
	suggestions = append(suggestions, products...)

	if remaining := limit - len(suggestions); remaining > 0 {
		categories, err := s.store.SuggestCategories(ctx, term, remaining)
		if err != nil {
			return nil, fmt.Errorf("suggest categories: %w", err)
		}
		suggestions = append(suggestions, categories...)
	}

	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// degradedSuggestion forms the low-result fallback by dropping the last
// whitespace-delimited token of the query. Single-token queries have
// nothing to drop and yield no suggestion.
func degradedSuggestion(query string) *domain.Suggestion {
	tokens := strings.Fields(query)
	if len(tokens) < 2 {
		return nil
	}
	return &domain.Suggestion{
		Type: domain.SuggestionQuery,
		Name: strings.Join(tokens[:len(tokens)-1], " "),
	}
}
