package domain

import "testing"

func TestMapSortOption(t *testing.T) {
	tests := []struct {
		name  string
		index string
		opt   SortOption
		want  string
	}{
		{"price ascending", "products", "minPrice:asc", "products_price_asc"},
		{"price descending", "products", "minPrice:desc", "products_price_desc"},
		{"rating ascending", "products", "avgRating:asc", "products_rating_asc"},
		{"rating descending", "products", "avgRating:desc", "products_rating_desc"},
		{"newest", "products", "createdAt:desc", "products_newest"},
		{"unknown option falls back", "products", "price:sideways", "products"},
		{"empty option falls back", "products", "", "products"},
		{"wrong case falls back", "products", "MinPrice:asc", "products"},
		{"other index", "posts", SortNewest, "posts_newest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MapSortOption(tt.index, tt.opt); got != tt.want {
				t.Errorf("MapSortOption(%q, %q) = %q, want %q", tt.index, tt.opt, got, tt.want)
			}
		})
	}
}

func TestMapSortOption_CoversEveryOption(t *testing.T) {
	seen := make(map[string]bool)
	for _, opt := range SortOptions() {
		replica := MapSortOption("products", opt)
		if replica == "products" {
			t.Errorf("option %q has no replica", opt)
		}
		if seen[replica] {
			t.Errorf("replica %q mapped twice", replica)
		}
		seen[replica] = true
	}
}

func TestParseSortOption(t *testing.T) {
	if opt, ok := ParseSortOption("avgRating:desc"); !ok || opt != SortRatingDesc {
		t.Errorf("expected avgRating:desc to parse, got %q %v", opt, ok)
	}
	if _, ok := ParseSortOption("avgRating:sideways"); ok {
		t.Error("expected unknown option to be rejected")
	}
}
