package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/domespa/digital-store-happykids-sub002/internal/catalog"
	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
	"github.com/domespa/digital-store-happykids-sub002/pkg/database"
	apperrors "github.com/domespa/digital-store-happykids-sub002/pkg/errors"
)

// productColumns is the standard SELECT column list for product rows with
// the joined category reference.
const productColumns = `p.id, p.name, p.slug, p.description, p.short_description,
	p.price, p.original_price, p.avg_rating, p.review_count, p.stock,
	p.is_digital, p.is_featured, p.is_active, p.track_inventory,
	p.wishlist_count, p.view_count, p.download_count, p.category_id, p.created_at,
	c.id, c.name, c.slug`

// productFrom always carries the category join so predicates and orderings
// may reference the category name or slug.
const productFrom = `FROM products p
	LEFT JOIN categories c ON c.id = p.category_id`

// Store implements catalog.Store using PostgreSQL.
type Store struct {
	pool database.DBTX
}

// NewStore creates a new PostgreSQL-backed catalog store.
func NewStore(pool database.DBTX) *Store {
	return &Store{pool: pool}
}

// --- predicate and ordering compilation ---

var textColumns = map[catalog.TextField]string{
	catalog.TextName:             "p.name",
	catalog.TextDescription:      "p.description",
	catalog.TextShortDescription: "p.short_description",
	catalog.TextCategoryName:     "c.name",
}

var intColumns = map[catalog.IntField]string{
	catalog.IntPrice:         "p.price",
	catalog.IntStock:         "p.stock",
	catalog.IntReviewCount:   "p.review_count",
	catalog.IntWishlistCount: "p.wishlist_count",
	catalog.IntViewCount:     "p.view_count",
}

var flagColumns = map[catalog.FlagField]string{
	catalog.FlagDigital:        "p.is_digital",
	catalog.FlagFeatured:       "p.is_featured",
	catalog.FlagActive:         "p.is_active",
	catalog.FlagTrackInventory: "p.track_inventory",
}

var orderColumns = map[catalog.OrderField]string{
	catalog.OrderPrice:            "p.price",
	catalog.OrderName:             "p.name",
	catalog.OrderRating:           "p.avg_rating",
	catalog.OrderReviewCount:      "p.review_count",
	catalog.OrderCreatedAt:        "p.created_at",
	catalog.OrderFeatured:         "p.is_featured",
	catalog.OrderWishlistCount:    "p.wishlist_count",
	catalog.OrderViewCount:        "p.view_count",
	catalog.OrderOriginalPriceSet: "(p.original_price IS NOT NULL)",
	catalog.OrderOriginalPrice:    "p.original_price",
}

// sqlBuilder accumulates positional arguments while compiling a predicate.
type sqlBuilder struct {
	args []any
}

func (b *sqlBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// where compiles the predicate into a WHERE clause body. An empty
// predicate compiles to TRUE so callers can always interpolate it.
func (b *sqlBuilder) where(pred catalog.Predicate) string {
	return b.conjunction(pred.Clauses)
}

func (b *sqlBuilder) conjunction(clauses []catalog.Clause) string {
	if len(clauses) == 0 {
		return "TRUE"
	}
	parts := make([]string, len(clauses))
	for i, c := range clauses {
		parts[i] = b.clause(c)
	}
	return strings.Join(parts, " AND ")
}

func (b *sqlBuilder) clause(c catalog.Clause) string {
	switch c := c.(type) {
	case catalog.ContainsAny:
		arg := b.bind("%" + c.Term + "%")
		parts := make([]string, len(c.Fields))
		for i, f := range c.Fields {
			parts[i] = fmt.Sprintf("%s ILIKE %s", textColumns[f], arg)
		}
		return "(" + strings.Join(parts, " OR ") + ")"

	case catalog.IntAtLeast:
		return fmt.Sprintf("%s >= %s", intColumns[c.Field], b.bind(c.Value))

	case catalog.IntAtMost:
		return fmt.Sprintf("%s <= %s", intColumns[c.Field], b.bind(c.Value))

	case catalog.RatingAtLeast:
		return fmt.Sprintf("p.avg_rating >= %s", b.bind(c.Value))

	case catalog.FlagIs:
		return fmt.Sprintf("%s = %s", flagColumns[c.Field], b.bind(c.Value))

	case catalog.CategoryIDIs:
		return fmt.Sprintf("p.category_id = %s", b.bind(c.ID))

	case catalog.CategorySlugIs:
		return fmt.Sprintf("c.slug = %s", b.bind(c.Slug))

	case catalog.CreatedAfter:
		return fmt.Sprintf("p.created_at >= %s", b.bind(c.At))

	case catalog.CreatedBefore:
		return fmt.Sprintf("p.created_at <= %s", b.bind(c.At))

	case catalog.TaggedAnySlug:
		return fmt.Sprintf(
			`EXISTS (SELECT 1 FROM product_tags pt JOIN tags t ON t.id = pt.tag_id
				WHERE pt.product_id = p.id AND t.slug = ANY(%s))`, b.bind(c.Slugs))

	case catalog.TaggedAnyID:
		return fmt.Sprintf(
			`EXISTS (SELECT 1 FROM product_tags pt
				WHERE pt.product_id = p.id AND pt.tag_id = ANY(%s))`, b.bind(c.IDs))

	case catalog.HasRelated:
		switch c.Rel {
		case catalog.RelVariants:
			return "EXISTS (SELECT 1 FROM product_variants v WHERE v.product_id = p.id)"
		default:
			return "EXISTS (SELECT 1 FROM product_images i WHERE i.product_id = p.id)"
		}

	case catalog.HasOriginalPrice:
		return "p.original_price IS NOT NULL"

	case catalog.NotID:
		return fmt.Sprintf("p.id <> %s", b.bind(c.ID))

	case catalog.AnyOf:
		if len(c.Clauses) == 0 {
			return "TRUE"
		}
		parts := make([]string, len(c.Clauses))
		for i, inner := range c.Clauses {
			parts[i] = b.clause(inner)
		}
		return "(" + strings.Join(parts, " OR ") + ")"

	case catalog.AllOf:
		return "(" + b.conjunction(c.Clauses) + ")"

	default:
		// The clause set is closed; reaching this means a new clause type
		// was added without a compiler case.
		panic(fmt.Sprintf("postgres: unsupported clause type %T", c))
	}
}

// orderBy compiles a multi-key ordering. An empty ordering falls back to
// newest-first.
func orderBy(order catalog.Ordering) string {
	if len(order) == 0 {
		return "p.created_at DESC"
	}
	parts := make([]string, len(order))
	for i, k := range order {
		dir := "ASC"
		if k.Desc {
			dir = "DESC"
		}
		expr := orderColumns[k.Field]
		if k.Field == catalog.OrderOriginalPrice {
			parts[i] = fmt.Sprintf("%s %s NULLS LAST", expr, dir)
			continue
		}
		parts[i] = fmt.Sprintf("%s %s", expr, dir)
	}
	return strings.Join(parts, ", ")
}

// --- catalog.Store implementation ---

// FindProducts returns the rows matching the predicate with category,
// images, and tags attached.
func (s *Store) FindProducts(ctx context.Context, pred catalog.Predicate, order catalog.Ordering, limit, offset int) (products []domain.Product, err error) {
	b := &sqlBuilder{}
	where := b.where(pred)
	query := fmt.Sprintf(`SELECT %s
		%s
		WHERE %s
		ORDER BY %s
		LIMIT %s OFFSET %s`,
		productColumns, productFrom, where, orderBy(order), b.bind(limit), b.bind(offset),
	)

	ctx, end := database.TraceQuery(ctx, "FindProducts", query)
	defer func() { end(err) }()

	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, scanErr := scanProduct(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan product row: %w", scanErr)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	if err := s.attachRelations(ctx, products); err != nil {
		return nil, err
	}

	return products, nil
}

// CountProducts returns the size of the candidate universe for the predicate.
func (s *Store) CountProducts(ctx context.Context, pred catalog.Predicate) (count int, err error) {
	b := &sqlBuilder{}
	query := fmt.Sprintf(`SELECT count(*) %s WHERE %s`, productFrom, b.where(pred))

	ctx, end := database.TraceQuery(ctx, "CountProducts", query)
	defer func() { end(err) }()

	if err := s.pool.QueryRow(ctx, query, b.args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// GroupByCategory returns matching row counts keyed by category id.
func (s *Store) GroupByCategory(ctx context.Context, pred catalog.Predicate) (counts map[string]int, err error) {
	b := &sqlBuilder{}
	query := fmt.Sprintf(`SELECT p.category_id, count(*)
		%s
		WHERE %s AND p.category_id IS NOT NULL
		GROUP BY p.category_id`, productFrom, b.where(pred))

	ctx, end := database.TraceQuery(ctx, "GroupByCategory", query)
	defer func() { end(err) }()

	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("group by category: %w", err)
	}
	defer rows.Close()

	counts = make(map[string]int)
	for rows.Next() {
		var (
			id string
			n  int
		)
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts[id] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category counts: %w", err)
	}
	return counts, nil
}

// CategoriesByID resolves category ids to their current name and slug.
func (s *Store) CategoriesByID(ctx context.Context, ids []string) ([]domain.Category, error) {
	if len(ids) == 0 {
		return []domain.Category{}, nil
	}

	query := `SELECT id, name, slug, product_count FROM categories WHERE id = ANY($1)`

	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0, len(ids))
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.ProductCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

// CategoryBySlug resolves a category slug.
func (s *Store) CategoryBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	query := `SELECT id, name, slug, product_count FROM categories WHERE slug = $1`

	var c domain.Category
	err := s.pool.QueryRow(ctx, query, slug).Scan(&c.ID, &c.Name, &c.Slug, &c.ProductCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFoundBy("category", "slug", slug)
		}
		return nil, fmt.Errorf("get category by slug: %w", err)
	}
	return &c, nil
}

// PriceStats returns min/max price and row count over the candidate set.
func (s *Store) PriceStats(ctx context.Context, pred catalog.Predicate) (stats catalog.PriceStats, err error) {
	b := &sqlBuilder{}
	query := fmt.Sprintf(`SELECT COALESCE(min(p.price), 0), COALESCE(max(p.price), 0), count(*)
		%s WHERE %s`, productFrom, b.where(pred))

	ctx, end := database.TraceQuery(ctx, "PriceStats", query)
	defer func() { end(err) }()

	if err := s.pool.QueryRow(ctx, query, b.args...).Scan(&stats.Min, &stats.Max, &stats.Count); err != nil {
		return catalog.PriceStats{}, fmt.Errorf("price stats: %w", err)
	}
	return stats, nil
}

// PriceHistogram buckets matching rows by (price-min)/step clamped to [0,4].
func (s *Store) PriceHistogram(ctx context.Context, pred catalog.Predicate, min, step int64) (buckets map[int]int, err error) {
	if step < 1 {
		step = 1
	}

	b := &sqlBuilder{}
	minArg := b.bind(min)
	stepArg := b.bind(step)
	query := fmt.Sprintf(`SELECT greatest(least((p.price - %s) / %s, 4), 0)::int AS bucket, count(*)
		%s
		WHERE %s
		GROUP BY bucket`, minArg, stepArg, productFrom, b.where(pred))

	ctx, end := database.TraceQuery(ctx, "PriceHistogram", query)
	defer func() { end(err) }()

	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("price histogram: %w", err)
	}
	defer rows.Close()

	buckets = make(map[int]int)
	for rows.Next() {
		var bucket, n int
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, fmt.Errorf("scan price bucket: %w", err)
		}
		buckets[bucket] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price buckets: %w", err)
	}
	return buckets, nil
}

// RatingHistogram groups matching rows by floor(avg_rating), ratings > 0 only.
func (s *Store) RatingHistogram(ctx context.Context, pred catalog.Predicate) (hist map[int]int, err error) {
	b := &sqlBuilder{}
	query := fmt.Sprintf(`SELECT floor(p.avg_rating)::int AS bucket, count(*)
		%s
		WHERE %s AND p.avg_rating > 0
		GROUP BY bucket`, productFrom, b.where(pred))

	ctx, end := database.TraceQuery(ctx, "RatingHistogram", query)
	defer func() { end(err) }()

	rows, err := s.pool.Query(ctx, query, b.args...)
	if err != nil {
		return nil, fmt.Errorf("rating histogram: %w", err)
	}
	defer rows.Close()

	hist = make(map[int]int)
	for rows.Next() {
		var bucket, n int
		if err := rows.Scan(&bucket, &n); err != nil {
			return nil, fmt.Errorf("scan rating bucket: %w", err)
		}
		hist[bucket] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating buckets: %w", err)
	}
	return hist, nil
}

// ProductByID loads one product with its category, images, and tags.
func (s *Store) ProductByID(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE p.id = $1`, productColumns, productFrom)

	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get product: %w", err)
		}
		return nil, apperrors.NotFound("product", id)
	}

	p, err := scanProduct(rows)
	if err != nil {
		return nil, fmt.Errorf("scan product: %w", err)
	}
	rows.Close()

	products := []domain.Product{*p}
	if err := s.attachRelations(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

// SuggestProducts returns product-name substring matches for autocomplete.
func (s *Store) SuggestProducts(ctx context.Context, term string, limit int) ([]domain.Suggestion, error) {
	query := `SELECT id, name, slug
		FROM products
		WHERE is_active AND name ILIKE $1
		ORDER BY is_featured DESC, review_count DESC
		LIMIT $2`

	return s.querySuggestions(ctx, query, domain.SuggestionProduct, "%"+term+"%", limit)
}

// SuggestCategories returns category-name substring matches ordered by
// product count.
func (s *Store) SuggestCategories(ctx context.Context, term string, limit int) ([]domain.Suggestion, error) {
	query := `SELECT id, name, slug
		FROM categories
		WHERE name ILIKE $1
		ORDER BY product_count DESC
		LIMIT $2`

	return s.querySuggestions(ctx, query, domain.SuggestionCategory, "%"+term+"%", limit)
}

func (s *Store) querySuggestions(ctx context.Context, query, kind string, args ...any) ([]domain.Suggestion, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("suggest %s: %w", kind, err)
	}
	defer rows.Close()

	suggestions := []domain.Suggestion{}
	for rows.Next() {
		sg := domain.Suggestion{Type: kind}
		if err := rows.Scan(&sg.ID, &sg.Name, &sg.Slug); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		suggestions = append(suggestions, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestions: %w", err)
	}
	return suggestions, nil
}

// scanProduct scans one product row including the nullable joined category.
func scanProduct(rows pgx.Rows) (*domain.Product, error) {
	var (
		p            domain.Product
		categoryID   *string
		categoryName *string
		categorySlug *string
	)

	if err := rows.Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.ShortDescription,
		&p.Price, &p.OriginalPrice, &p.AvgRating, &p.ReviewCount, &p.Stock,
		&p.IsDigital, &p.IsFeatured, &p.IsActive, &p.TrackInventory,
		&p.WishlistCount, &p.ViewCount, &p.DownloadCount, &p.CategoryID, &p.CreatedAt,
		&categoryID, &categoryName, &categorySlug,
	); err != nil {
		return nil, err
	}

	if categoryID != nil {
		p.Category = &domain.Category{
			ID:   *categoryID,
			Name: derefString(categoryName),
			Slug: derefString(categorySlug),
		}
	}

	return &p, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// attachRelations batch-loads main images and tags for the given products.
func (s *Store) attachRelations(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	ids := make([]string, len(products))
	index := make(map[string]*domain.Product, len(products))
	for i := range products {
		ids[i] = products[i].ID
		index[products[i].ID] = &products[i]
	}

	imageQuery := `SELECT product_id, id, url, COALESCE(alt_text, ''), is_primary, sort_order
		FROM product_images
		WHERE product_id = ANY($1)
		ORDER BY sort_order`

	rows, err := s.pool.Query(ctx, imageQuery, ids)
	if err != nil {
		return fmt.Errorf("load product images: %w", err)
	}
	for rows.Next() {
		var (
			productID string
			img       domain.ProductImage
		)
		if err := rows.Scan(&productID, &img.ID, &img.URL, &img.AltText, &img.IsPrimary, &img.SortOrder); err != nil {
			rows.Close()
			return fmt.Errorf("scan product image: %w", err)
		}
		if p, ok := index[productID]; ok {
			p.Images = append(p.Images, img)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate product images: %w", err)
	}

	tagQuery := `SELECT pt.product_id, t.id, t.name, t.slug
		FROM product_tags pt
		JOIN tags t ON t.id = pt.tag_id
		WHERE pt.product_id = ANY($1)`

	rows, err = s.pool.Query(ctx, tagQuery, ids)
	if err != nil {
		return fmt.Errorf("load product tags: %w", err)
	}
	for rows.Next() {
		var (
			productID string
			tag       domain.Tag
		)
		if err := rows.Scan(&productID, &tag.ID, &tag.Name, &tag.Slug); err != nil {
			rows.Close()
			return fmt.Errorf("scan product tag: %w", err)
		}
		if p, ok := index[productID]; ok {
			p.Tags = append(p.Tags, tag)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate product tags: %w", err)
	}

	return nil
}
