package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domespa/digital-store-happykids-sub002/internal/catalog"
	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
	"github.com/domespa/digital-store-happykids-sub002/pkg/database"
	apperrors "github.com/domespa/digital-store-happykids-sub002/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

func strPtr(s string) *string { return &s }
func int64Ptr(n int64) *int64 { return &n }

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

// Column list matching the SELECT in productColumns, category join included.
var productCols = []string{
	"id", "name", "slug", "description", "short_description",
	"price", "original_price", "avg_rating", "review_count", "stock",
	"is_digital", "is_featured", "is_active", "track_inventory",
	"wishlist_count", "view_count", "download_count", "category_id", "created_at",
	"c_id", "c_name", "c_slug",
}

func sampleProduct() domain.Product {
	return domain.Product{
		ID:               "prod-1",
		Name:             "Phonics Workbook",
		Slug:             "phonics-workbook",
		Description:      "A complete phonics workbook for early readers",
		ShortDescription: "Phonics for early readers",
		Price:            1999,
		OriginalPrice:    int64Ptr(2499),
		AvgRating:        4.5,
		ReviewCount:      12,
		Stock:            30,
		IsDigital:        true,
		IsFeatured:       true,
		IsActive:         true,
		TrackInventory:   false,
		WishlistCount:    8,
		ViewCount:        240,
		DownloadCount:    95,
		CategoryID:       strPtr("cat-1"),
		CreatedAt:        now,
	}
}

func productRow(p domain.Product) []any {
	row := []any{
		p.ID, p.Name, p.Slug, p.Description, p.ShortDescription,
		p.Price, p.OriginalPrice, p.AvgRating, p.ReviewCount, p.Stock,
		p.IsDigital, p.IsFeatured, p.IsActive, p.TrackInventory,
		p.WishlistCount, p.ViewCount, p.DownloadCount, p.CategoryID, p.CreatedAt,
	}
	if p.CategoryID != nil {
		return append(row, p.CategoryID, strPtr("Workbooks"), strPtr("workbooks"))
	}
	return append(row, nil, nil, nil)
}

// expectRelations sets up the image and tag batch loads FindProducts issues
// after scanning product rows.
func expectRelations(mock pgxmock.PgxPoolIface, ids []string) {
	mock.ExpectQuery("SELECT .+ FROM product_images").
		WithArgs(ids).
		WillReturnRows(pgxmock.NewRows([]string{
			"product_id", "id", "url", "alt_text", "is_primary", "sort_order",
		}))
	mock.ExpectQuery("SELECT .+ FROM product_tags").
		WithArgs(ids).
		WillReturnRows(pgxmock.NewRows([]string{
			"product_id", "id", "name", "slug",
		}))
}

// ─────────────────────────────────────────────────────────────────────────────
// FindProducts
// ─────────────────────────────────────────────────────────────────────────────

func TestStore_FindProducts_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	p := sampleProduct()
	pred := catalog.Predicate{Clauses: []catalog.Clause{
		catalog.FlagIs{Field: catalog.FlagActive, Value: true},
		catalog.ContainsAny{Fields: catalog.QueryFields(), Term: "phonics"},
	}}
	order := catalog.Ordering{{Field: catalog.OrderCreatedAt, Desc: true}}

	// is_active=$1, term=$2 (reused across the OR group), LIMIT $3 OFFSET $4
	mock.ExpectQuery("SELECT p.id, .+ FROM products").
		WithArgs(true, "%phonics%", 20, 0).
		WillReturnRows(
			pgxmock.NewRows(productCols).AddRow(productRow(p)...),
		)
	expectRelations(mock, []string{p.ID})

	products, err := store.FindProducts(context.Background(), pred, order, 20, 0)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, p.ID, products[0].ID)
	assert.Equal(t, p.Price, products[0].Price)
	require.NotNil(t, products[0].Category)
	assert.Equal(t, "cat-1", products[0].Category.ID)
	assert.Equal(t, "workbooks", products[0].Category.Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindProducts_AttachesRelations(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	p := sampleProduct()
	pred := catalog.Predicate{Clauses: []catalog.Clause{
		catalog.FlagIs{Field: catalog.FlagActive, Value: true},
	}}

	mock.ExpectQuery("SELECT p.id, .+ FROM products").
		WithArgs(true, 10, 0).
		WillReturnRows(
			pgxmock.NewRows(productCols).AddRow(productRow(p)...),
		)
	mock.ExpectQuery("SELECT .+ FROM product_images").
		WithArgs([]string{p.ID}).
		WillReturnRows(pgxmock.NewRows([]string{
			"product_id", "id", "url", "alt_text", "is_primary", "sort_order",
		}).AddRow(p.ID, "img-1", "https://cdn.example.com/p1.jpg", "cover", true, 0))
	mock.ExpectQuery("SELECT .+ FROM product_tags").
		WithArgs([]string{p.ID}).
		WillReturnRows(pgxmock.NewRows([]string{
			"product_id", "id", "name", "slug",
		}).AddRow(p.ID, "tag-1", "Phonics", "phonics"))

	products, err := store.FindProducts(context.Background(), pred, nil, 10, 0)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Len(t, products[0].Images, 1)
	assert.Equal(t, "img-1", products[0].Images[0].ID)
	assert.True(t, products[0].Images[0].IsPrimary)
	require.Len(t, products[0].Tags, 1)
	assert.Equal(t, "phonics", products[0].Tags[0].Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindProducts_Empty(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	pred := catalog.Predicate{Clauses: []catalog.Clause{
		catalog.FlagIs{Field: catalog.FlagActive, Value: true},
	}}

	mock.ExpectQuery("SELECT p.id, .+ FROM products").
		WithArgs(true, 20, 0).
		WillReturnRows(pgxmock.NewRows(productCols))

	products, err := store.FindProducts(context.Background(), pred, nil, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, []domain.Product{}, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindProducts_CompilesRichPredicate(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	p := sampleProduct()
	pred := catalog.Predicate{Clauses: []catalog.Clause{
		catalog.FlagIs{Field: catalog.FlagActive, Value: true},
		catalog.IntAtLeast{Field: catalog.IntPrice, Value: 1000},
		catalog.IntAtMost{Field: catalog.IntPrice, Value: 5000},
		catalog.TaggedAnySlug{Slugs: []string{"phonics", "math"}},
		catalog.HasOriginalPrice{},
	}}
	order := catalog.Ordering{
		{Field: catalog.OrderOriginalPriceSet, Desc: true},
		{Field: catalog.OrderOriginalPrice, Desc: true},
	}

	mock.ExpectQuery("SELECT p.id, .+ FROM products").
		WithArgs(true, int64(1000), int64(5000), []string{"phonics", "math"}, 20, 0).
		WillReturnRows(
			pgxmock.NewRows(productCols).AddRow(productRow(p)...),
		)
	expectRelations(mock, []string{p.ID})

	products, err := store.FindProducts(context.Background(), pred, order, 20, 0)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_FindProducts_QueryError(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	pred := catalog.Predicate{Clauses: []catalog.Clause{
		catalog.FlagIs{Field: catalog.FlagActive, Value: true},
	}}

	mock.ExpectQuery("SELECT p.id, .+ FROM products").
		WithArgs(true, 20, 0).
		WillReturnError(errors.New("connection refused"))

	products, err := store.FindProducts(context.Background(), pred, nil, 20, 0)
	assert.Nil(t, products)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─────────────────────────────────────────────────────────────────────────────
// counts and facets
// ─────────────────────────────────────────────────────────────────────────────

func TestStore_CountProducts(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	pred := catalog.Predicate{Clauses: []catalog.Clause{
		catalog.FlagIs{Field: catalog.FlagActive, Value: true},
		catalog.IntAtLeast{Field: catalog.IntStock, Value: 1},
	}}

	mock.ExpectQuery(`SELECT count\(\*\) FROM products`).
		WithArgs(true, int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	count, err := store.CountProducts(context.Background(), pred)
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GroupByCategory(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	pred := catalog.Predicate{Clauses: []catalog.Clause{
		catalog.FlagIs{Field: catalog.FlagActive, Value: true},
	}}

	mock.ExpectQuery("SELECT p.category_id, .+ FROM products").
		WithArgs(true).
		WillReturnRows(
			pgxmock.NewRows([]string{"category_id", "count"}).
				AddRow("cat-1", 7).
				AddRow("cat-2", 3),
		)

	counts, err := store.GroupByCategory(context.Background(), pred)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"cat-1": 7, "cat-2": 3}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_PriceStats(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	pred := catalog.Predicate{Clauses: []catalog.Clause{
		catalog.FlagIs{Field: catalog.FlagActive, Value: true},
	}}

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(true).
		WillReturnRows(
			pgxmock.NewRows([]string{"min", "max", "count"}).AddRow(int64(499), int64(9999), 25),
		)

	stats, err := store.PriceStats(context.Background(), pred)
	require.NoError(t, err)
	assert.Equal(t, catalog.PriceStats{Min: 499, Max: 9999, Count: 25}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_PriceStats_EmptyUniverse(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	pred := catalog.Predicate{Clauses: []catalog.Clause{
		catalog.FlagIs{Field: catalog.FlagActive, Value: true},
	}}

	// COALESCE keeps min/max at zero when no rows match.
	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(true).
		WillReturnRows(
			pgxmock.NewRows([]string{"min", "max", "count"}).AddRow(int64(0), int64(0), 0),
		)

	stats, err := store.PriceStats(context.Background(), pred)
	require.NoError(t, err)
	assert.Equal(t, catalog.PriceStats{}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_PriceHistogram(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	pred := catalog.Predicate{Clauses: []catalog.Clause{
		catalog.FlagIs{Field: catalog.FlagActive, Value: true},
	}}

	// min=$1, step=$2, then predicate args.
	mock.ExpectQuery("SELECT greatest").
		WithArgs(int64(499), int64(1900), true).
		WillReturnRows(
			pgxmock.NewRows([]string{"bucket", "count"}).
				AddRow(0, 10).
				AddRow(2, 5).
				AddRow(4, 1),
		)

	buckets, err := store.PriceHistogram(context.Background(), pred, 499, 1900)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{0: 10, 2: 5, 4: 1}, buckets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_PriceHistogram_GuardsZeroStep(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	pred := catalog.Predicate{}

	mock.ExpectQuery("SELECT greatest").
		WithArgs(int64(0), int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"bucket", "count"}))

	_, err := store.PriceHistogram(context.Background(), pred, 0, 0)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_RatingHistogram(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	pred := catalog.Predicate{Clauses: []catalog.Clause{
		catalog.FlagIs{Field: catalog.FlagActive, Value: true},
	}}

	mock.ExpectQuery("SELECT floor").
		WithArgs(true).
		WillReturnRows(
			pgxmock.NewRows([]string{"bucket", "count"}).
				AddRow(4, 12).
				AddRow(3, 4),
		)

	hist, err := store.RatingHistogram(context.Background(), pred)
	require.NoError(t, err)
	assert.Equal(t, map[int]int{4: 12, 3: 4}, hist)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─────────────────────────────────────────────────────────────────────────────
// categories
// ─────────────────────────────────────────────────────────────────────────────

func TestStore_CategoriesByID(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	mock.ExpectQuery("SELECT id, name, slug, product_count FROM categories").
		WithArgs([]string{"cat-1", "cat-2"}).
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "name", "slug", "product_count"}).
				AddRow("cat-1", "Workbooks", "workbooks", 7).
				AddRow("cat-2", "Flashcards", "flashcards", 3),
		)

	categories, err := store.CategoriesByID(context.Background(), []string{"cat-1", "cat-2"})
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, "workbooks", categories[0].Slug)
	assert.Equal(t, 3, categories[1].ProductCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CategoriesByID_Empty(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	// No query is issued for an empty id list.
	categories, err := store.CategoriesByID(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.Category{}, categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CategoryBySlug_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	mock.ExpectQuery("SELECT id, name, slug, product_count FROM categories WHERE slug").
		WithArgs("workbooks").
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "name", "slug", "product_count"}).
				AddRow("cat-1", "Workbooks", "workbooks", 7),
		)

	category, err := store.CategoryBySlug(context.Background(), "workbooks")
	require.NoError(t, err)
	assert.Equal(t, "cat-1", category.ID)
	assert.Equal(t, "Workbooks", category.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CategoryBySlug_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	mock.ExpectQuery("SELECT id, name, slug, product_count FROM categories WHERE slug").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	category, err := store.CategoryBySlug(context.Background(), "missing")
	assert.Nil(t, category)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─────────────────────────────────────────────────────────────────────────────
// ProductByID
// ─────────────────────────────────────────────────────────────────────────────

func TestStore_ProductByID_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	p := sampleProduct()
	mock.ExpectQuery("SELECT p.id, .+ FROM products .+ WHERE p.id").
		WithArgs(p.ID).
		WillReturnRows(
			pgxmock.NewRows(productCols).AddRow(productRow(p)...),
		)
	expectRelations(mock, []string{p.ID})

	result, err := store.ProductByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, result.ID)
	assert.Equal(t, p.Name, result.Name)
	require.NotNil(t, result.Category)
	assert.Equal(t, "cat-1", result.Category.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ProductByID_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	mock.ExpectQuery("SELECT p.id, .+ FROM products .+ WHERE p.id").
		WithArgs("missing-id").
		WillReturnRows(pgxmock.NewRows(productCols))

	result, err := store.ProductByID(context.Background(), "missing-id")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─────────────────────────────────────────────────────────────────────────────
// suggestions
// ─────────────────────────────────────────────────────────────────────────────

func TestStore_SuggestProducts(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	mock.ExpectQuery("SELECT id, name, slug FROM products").
		WithArgs("%phon%", 5).
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "name", "slug"}).
				AddRow("prod-1", "Phonics Workbook", "phonics-workbook"),
		)

	suggestions, err := store.SuggestProducts(context.Background(), "phon", 5)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, domain.SuggestionProduct, suggestions[0].Type)
	assert.Equal(t, "phonics-workbook", suggestions[0].Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SuggestCategories(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	mock.ExpectQuery("SELECT id, name, slug FROM categories").
		WithArgs("%work%", 3).
		WillReturnRows(
			pgxmock.NewRows([]string{"id", "name", "slug"}).
				AddRow("cat-1", "Workbooks", "workbooks"),
		)

	suggestions, err := store.SuggestCategories(context.Background(), "work", 3)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, domain.SuggestionCategory, suggestions[0].Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SuggestProducts_Empty(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	store := NewStore(mock)

	mock.ExpectQuery("SELECT id, name, slug FROM products").
		WithArgs("%zzz%", 5).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "slug"}))

	suggestions, err := store.SuggestProducts(context.Background(), "zzz", 5)
	require.NoError(t, err)
	assert.Equal(t, []domain.Suggestion{}, suggestions)
	assert.NoError(t, mock.ExpectationsWereMet())
}
