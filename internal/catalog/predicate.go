package catalog

import (
	"time"

	"github.com/domespa/digital-store-happykids-sub002/internal/domain"
)

// Text fields usable in substring matches.
type TextField string

const (
	TextName             TextField = "name"
	TextDescription      TextField = "description"
	TextShortDescription TextField = "short_description"
	TextCategoryName     TextField = "category_name"
)

// Integer fields usable in range comparisons.
type IntField string

const (
	IntPrice         IntField = "price"
	IntStock         IntField = "stock"
	IntReviewCount   IntField = "review_count"
	IntWishlistCount IntField = "wishlist_count"
	IntViewCount     IntField = "view_count"
)

// Boolean product flags.
type FlagField string

const (
	FlagDigital        FlagField = "is_digital"
	FlagFeatured       FlagField = "is_featured"
	FlagActive         FlagField = "is_active"
	FlagTrackInventory FlagField = "track_inventory"
)

// Relations usable in existential clauses.
type Relation string

const (
	RelImages   Relation = "images"
	RelVariants Relation = "variants"
)

// Clause is one typed condition over catalog rows. Clauses within a
// Predicate are AND-ed; OR composition is explicit via AnyOf and
// ContainsAny. The closed set of clause types keeps invalid filter
// combinations unrepresentable.
type Clause interface {
	isClause()
}

// ContainsAny matches rows where the term is a case-insensitive substring
// of at least one of the given text fields.
type ContainsAny struct {
	Fields []TextField
	Term   string
}

// IntAtLeast matches rows where the field is >= Value.
type IntAtLeast struct {
	Field IntField
	Value int64
}

// IntAtMost matches rows where the field is <= Value.
type IntAtMost struct {
	Field IntField
	Value int64
}

// RatingAtLeast matches rows with average rating >= Value.
type RatingAtLeast struct {
	Value float64
}

// FlagIs matches rows where the boolean flag equals Value.
type FlagIs struct {
	Field FlagField
	Value bool
}

// CategoryIDIs matches rows belonging to the category with the given id.
type CategoryIDIs struct {
	ID string
}

// CategorySlugIs matches rows whose joined category has the given slug.
type CategorySlugIs struct {
	Slug string
}

// CreatedAfter matches rows created at or after At.
type CreatedAfter struct {
	At time.Time
}

// CreatedBefore matches rows created at or before At.
type CreatedBefore struct {
	At time.Time
}

// TaggedAnySlug matches rows carrying at least one of the given tag slugs.
type TaggedAnySlug struct {
	Slugs []string
}

// TaggedAnyID matches rows carrying at least one of the given tag ids.
type TaggedAnyID struct {
	IDs []string
}

// HasRelated matches rows with at least one related row (image, variant).
type HasRelated struct {
	Rel Relation
}

// HasOriginalPrice matches rows with a non-null original price.
type HasOriginalPrice struct{}

// NotID excludes the row with the given product id.
type NotID struct {
	ID string
}

// AnyOf matches rows satisfying at least one of the inner clauses.
type AnyOf struct {
	Clauses []Clause
}

// AllOf matches rows satisfying every inner clause. Used to nest a
// conjunction inside an AnyOf group.
type AllOf struct {
	Clauses []Clause
}

func (ContainsAny) isClause()      {}
func (IntAtLeast) isClause()       {}
func (IntAtMost) isClause()        {}
func (RatingAtLeast) isClause()    {}
func (FlagIs) isClause()           {}
func (CategoryIDIs) isClause()     {}
func (CategorySlugIs) isClause()   {}
func (CreatedAfter) isClause()     {}
func (CreatedBefore) isClause()    {}
func (TaggedAnySlug) isClause()    {}
func (TaggedAnyID) isClause()      {}
func (HasRelated) isClause()       {}
func (HasOriginalPrice) isClause() {}
func (NotID) isClause()            {}
func (AnyOf) isClause()            {}
func (AllOf) isClause()            {}

// Predicate is a conjunction of clauses evaluated against catalog rows.
// The same predicate value drives the primary fetch, the total count, and
// every facet aggregation, so all of them see the same candidate universe.
type Predicate struct {
	Clauses []Clause
}

// And returns a copy of the predicate with the given clauses appended.
func (p Predicate) And(clauses ...Clause) Predicate {
	combined := make([]Clause, 0, len(p.Clauses)+len(clauses))
	combined = append(combined, p.Clauses...)
	combined = append(combined, clauses...)
	return Predicate{Clauses: combined}
}

// QueryFields is the OR-group of text fields a free-text query matches
// against. Ranking weight is applied later by the relevance scorer, not
// at the predicate level.
func QueryFields() []TextField {
	return []TextField{TextName, TextDescription, TextShortDescription, TextCategoryName}
}

// BuildPredicate deterministically maps a validated filter set to a
// predicate. It assumes the filters already passed normalization; it does
// not re-validate bounds.
func BuildPredicate(f *domain.SearchFilters) Predicate {
	var clauses []Clause

	// Active products unless the caller explicitly asked otherwise.
	active := true
	if f.IsActive != nil {
		active = *f.IsActive
	}
	clauses = append(clauses, FlagIs{Field: FlagActive, Value: active})

	if f.Query != "" {
		clauses = append(clauses, ContainsAny{Fields: QueryFields(), Term: f.Query})
	}

	switch {
	case f.CategoryID != nil:
		clauses = append(clauses, CategoryIDIs{ID: *f.CategoryID})
	case f.CategorySlug != nil:
		clauses = append(clauses, CategorySlugIs{Slug: *f.CategorySlug})
	}

	if f.MinPrice != nil {
		clauses = append(clauses, IntAtLeast{Field: IntPrice, Value: *f.MinPrice})
	}
	if f.MaxPrice != nil {
		clauses = append(clauses, IntAtMost{Field: IntPrice, Value: *f.MaxPrice})
	}
	if f.MinRating != nil {
		clauses = append(clauses, RatingAtLeast{Value: *f.MinRating})
	}
	if f.InStock != nil && *f.InStock {
		clauses = append(clauses, IntAtLeast{Field: IntStock, Value: 1})
	}
	if f.IsDigital != nil {
		clauses = append(clauses, FlagIs{Field: FlagDigital, Value: *f.IsDigital})
	}
	if f.IsFeatured != nil {
		clauses = append(clauses, FlagIs{Field: FlagFeatured, Value: *f.IsFeatured})
	}
	if f.TrackInventory != nil {
		clauses = append(clauses, FlagIs{Field: FlagTrackInventory, Value: *f.TrackInventory})
	}
	if f.HasReviews != nil && *f.HasReviews {
		clauses = append(clauses, IntAtLeast{Field: IntReviewCount, Value: 1})
	}
	if f.MinReviews != nil {
		clauses = append(clauses, IntAtLeast{Field: IntReviewCount, Value: int64(*f.MinReviews)})
	}
	if f.CreatedAfter != nil {
		clauses = append(clauses, CreatedAfter{At: *f.CreatedAfter})
	}
	if f.CreatedBefore != nil {
		clauses = append(clauses, CreatedBefore{At: *f.CreatedBefore})
	}
	// A product matching any one requested tag qualifies.
	if len(f.Tags) > 0 {
		clauses = append(clauses, TaggedAnySlug{Slugs: f.Tags})
	}
	if f.HasImages != nil && *f.HasImages {
		clauses = append(clauses, HasRelated{Rel: RelImages})
	}
	if f.HasVariants != nil && *f.HasVariants {
		clauses = append(clauses, HasRelated{Rel: RelVariants})
	}
	if f.OnSale != nil && *f.OnSale {
		clauses = append(clauses, HasOriginalPrice{})
	}

	return Predicate{Clauses: clauses}
}
