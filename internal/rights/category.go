package rights

import "strings"

// Category is the role a claimant plays in a work's ownership chain.
type Category string

const (
	CategoryOriginalPublisher Category = "original_publisher"
	CategorySubPublisher      Category = "sub_publisher"
	CategoryAdministrator     Category = "administrator"
	CategoryIncomeParticipant Category = "income_participant"
	CategoryComposer          Category = "composer"
	CategoryAuthor            Category = "author"
	CategoryComposerAuthor    Category = "composer_author"
	CategoryArranger          Category = "arranger"
	CategoryAdapter           Category = "adapter"
	CategoryTranslator        Category = "translator"
)

var allCategories = []Category{
	CategoryOriginalPublisher,
	CategorySubPublisher,
	CategoryAdministrator,
	CategoryIncomeParticipant,
	CategoryComposer,
	CategoryAuthor,
	CategoryComposerAuthor,
	CategoryArranger,
	CategoryAdapter,
	CategoryTranslator,
}

var publisherCategories = map[Category]struct{}{
	CategoryOriginalPublisher: {},
	CategorySubPublisher:      {},
	CategoryAdministrator:     {},
	CategoryIncomeParticipant: {},
}

var categorySet = func() map[Category]struct{} {
	set := make(map[Category]struct{}, len(allCategories))
	for _, category := range allCategories {
		set[category] = struct{}{}
	}
	return set
}()

// AllCategories returns the ordered list of known categories.
func AllCategories() []Category {
	cp := make([]Category, len(allCategories))
	copy(cp, allCategories)
	return cp
}

// ParseCategory converts a string into a known Category.
func ParseCategory(value string) (Category, bool) {
	normalized := Category(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := categorySet[normalized]
	return normalized, ok
}

// Valid reports whether the category is a known value.
func (c Category) Valid() bool {
	_, ok := categorySet[c]
	return ok
}

// IsPublisher reports whether the category describes a publishing role.
// Only publisher-category nodes may carry sub-publishing children.
func (c Category) IsPublisher() bool {
	_, ok := publisherCategories[c]
	return ok
}

// IsWriter reports whether the category describes a writer role
// (composer, author, arranger, adapter, translator).
func (c Category) IsWriter() bool {
	return c.Valid() && !c.IsPublisher()
}
