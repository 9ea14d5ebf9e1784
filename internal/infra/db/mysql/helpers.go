package mysql

import (
	"encoding/json"
	"strings"

	domain "github.com/keepstack/keepstack/internal/domain/items"
)

// marshalJSON serializes a value for a JSON column; empty slices become "[]"
func marshalJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return []string{}
	}
	return tags
}

func unmarshalImages(raw string) []domain.Image {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var images []domain.Image
	if err := json.Unmarshal([]byte(raw), &images); err != nil {
		return nil
	}
	return images
}

func unmarshalAnalysis(raw string) *domain.Analysis {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var a domain.Analysis
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return nil
	}
	return &a
}

// escapeLikePattern escapes special characters in LIKE patterns to prevent SQL injection
func escapeLikePattern(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}
