package services

import (
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
)

// DecodeRecords converts opaque records into the shape the caller expects.
// Fields of T use json tags; unknown record attributes are ignored.
func DecodeRecords[T any](records []domain.Record) ([]T, error) {
	out := make([]T, 0, len(records))
	for i, r := range records {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("decode record %d (%s): %w", i, r.ObjectID(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeHits decodes the hits of a page
func DecodeHits[T any](page *domain.Page) ([]T, error) {
	if page == nil {
		return []T{}, nil
	}
	return DecodeRecords[T](page.Hits)
}
