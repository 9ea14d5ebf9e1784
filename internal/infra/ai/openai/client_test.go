package openai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domai "github.com/keepstack/keepstack/internal/domain/ai"
)

func TestParseAnalysis_Success(t *testing.T) {
	raw := `{
		"title": "Advanced React Patterns",
		"summary": "A guide to render props and hooks.",
		"keyPoints": ["render props", "custom hooks"],
		"tags": ["React", "JavaScript"],
		"category": "Development",
		"visualization": {"shouldVisualize": true, "chartType": "bar", "data": [{"label": "a", "value": 1}]}
	}`

	a, err := parseAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, "Advanced React Patterns", a.Title)
	assert.Equal(t, "Development", a.Category)
	assert.Len(t, a.KeyPoints, 2)
	assert.True(t, a.Visualization.ShouldVisualize)
	assert.Equal(t, "bar", a.Visualization.ChartType)
}

func TestParseAnalysis_SensitiveMarker(t *testing.T) {
	a, err := parseAnalysis(`{"error": "sensitive"}`)
	assert.Nil(t, a)
	assert.True(t, errors.Is(err, domai.ErrSensitiveContent))
}

func TestParseAnalysis_OtherServiceError(t *testing.T) {
	a, err := parseAnalysis(`{"error": "overloaded"}`)
	assert.Nil(t, a)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domai.ErrSensitiveContent))
}

func TestParseAnalysis_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "Error analyzing content."},
		{"truncated", `{"title": "x"`},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := parseAnalysis(tt.raw)
			assert.Nil(t, a)
			assert.Error(t, err)
		})
	}
}

func TestParseAnalysis_DefaultsChartType(t *testing.T) {
	a, err := parseAnalysis(`{"title": "T", "summary": "S", "visualization": {"shouldVisualize": false, "data": []}}`)
	require.NoError(t, err)
	assert.Equal(t, "none", a.Visualization.ChartType)
}
