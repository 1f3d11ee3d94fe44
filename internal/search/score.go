package search

import (
	"strings"

	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
)

// Relevance scoring weights. The score is an unbounded heuristic for
// relative ranking within one response; it is not normalized and not
// comparable across requests.
const (
	scoreNameMatch        = 100
	scoreDescriptionMatch = 50
	scoreReviewsCap       = 50
	scoreWishlistCap      = 30
	scoreFeatured         = 25
)

// scoreProduct computes the relevance score and matched fields for one
// product against a non-empty query.
func scoreProduct(p *domain.Product, query string) (int, []string) {
	queryLower := strings.ToLower(query)

	score := 0
	var matched []string

	if strings.Contains(strings.ToLower(p.Name), queryLower) {
		score += scoreNameMatch
		matched = append(matched, domain.MatchedFieldTitle)
	}
	if strings.Contains(strings.ToLower(p.Description), queryLower) {
		score += scoreDescriptionMatch
		matched = append(matched, domain.MatchedFieldDescription)
	}

	reviews := p.ReviewCount * 2
	if reviews > scoreReviewsCap {
		reviews = scoreReviewsCap
	}
	score += reviews

	wishlist := p.WishlistCount
	if wishlist > scoreWishlistCap {
		wishlist = scoreWishlistCap
	}
	score += wishlist

	if p.IsFeatured {
		score += scoreFeatured
	}

	return score, matched
}

// annotateResults projects products to search results, attaching discount
// percentages and, when a query is present, relevance annotations.
func annotateResults(products []domain.Product, query string) []domain.SearchResult {
	results := make([]domain.SearchResult, len(products))
	for i := range products {
		r := domain.SearchResult{
			Product:     products[i],
			DiscountPct: products[i].DiscountPercentage(),
		}
		if query != "" {
			r.RelevanceScore, r.MatchedFields = scoreProduct(&products[i], query)
		}
		results[i] = r
	}
	return results
}
