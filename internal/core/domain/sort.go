package domain

// SortOption is a closed set of (field, direction) pairs the storefront can sort by.
// Each option maps to one replica index on the backend.
type SortOption string

const (
	SortPriceAsc   SortOption = "minPrice:asc"
	SortPriceDesc  SortOption = "minPrice:desc"
	SortRatingAsc  SortOption = "avgRating:asc"
	SortRatingDesc SortOption = "avgRating:desc"
	SortNewest     SortOption = "createdAt:desc"
)

// replicaSuffixes maps each option to the suffix of its replica index
var replicaSuffixes = map[SortOption]string{
	SortPriceAsc:   "_price_asc",
	SortPriceDesc:  "_price_desc",
	SortRatingAsc:  "_rating_asc",
	SortRatingDesc: "_rating_desc",
	SortNewest:     "_newest",
}

// SortOptions returns every supported option in a stable order
func SortOptions() []SortOption {
	return []SortOption{SortPriceAsc, SortPriceDesc, SortRatingAsc, SortRatingDesc, SortNewest}
}

// MapSortOption returns the replica index serving opt for indexID.
// Unknown options return indexID unchanged; callers relying on a typo-free key
// should check ParseSortOption first.
func MapSortOption(indexID string, opt SortOption) string {
	suffix, ok := replicaSuffixes[opt]
	if !ok {
		return indexID
	}
	return indexID + suffix
}

// ParseSortOption reports whether s names a supported option
func ParseSortOption(s string) (SortOption, bool) {
	opt := SortOption(s)
	_, ok := replicaSuffixes[opt]
	return opt, ok
}
