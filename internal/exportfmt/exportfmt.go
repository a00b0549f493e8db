// Package exportfmt renders exported records as JSON or YAML documents.
package exportfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-catalog/internal/core/domain"
)

// Format is an output encoding for exported records
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml (case-insensitive)
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidInput, s)
	}
}

// Write encodes records to w. A nil slice is written as an empty list.
func Write(w io.Writer, format Format, records []domain.Record) error {
	if records == nil {
		records = []domain.Record{}
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(records); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidInput, format)
	}
}

// Read decodes records previously produced by Write, so a snapshot can be
// loaded back into an index.
func Read(r io.Reader, format Format) ([]domain.Record, error) {
	var records []domain.Record
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&records); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&records); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", domain.ErrInvalidInput, format)
	}
	return records, nil
}

// Extension returns the file extension for the format, without the dot
func (f Format) Extension() string {
	return string(f)
}
