package items

import (
	"time"
)

// ItemID identifies a ContentItem
type ItemID string

// Kind enum
type Kind string

const (
	KindText Kind = "text"
	KindLink Kind = "link"
	KindFile Kind = "file"
)

// Status enum: lifecycle of the analysis pipeline
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusError      Status = "error"
	StatusSensitive  Status = "sensitive"
)

// DefaultCategory is assigned at ingestion until analysis supplies one.
const DefaultCategory = "Uncategorized"

// Image is a binary payload attached at creation (immutable).
// Data carries the raw bytes for the analysis call; URL is set when the
// payload has been archived to object storage.
type Image struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}

// ChartPoint is a single datum in a suggested visualization.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Visualization is the chart suggestion portion of an analysis.
// ChartType is one of bar|line|pie|none.
type Visualization struct {
	ShouldVisualize bool         `json:"shouldVisualize"`
	ChartType       string       `json:"chartType"`
	Data            []ChartPoint `json:"data"`
}

// Analysis is the structured enrichment produced by the analysis service.
// Present on an item only once it reaches StatusProcessed.
type Analysis struct {
	Title         string        `json:"title"`
	Summary       string        `json:"summary"`
	KeyPoints     []string      `json:"keyPoints"`
	Tags          []string      `json:"tags"`
	Category      string        `json:"category"`
	Visualization Visualization `json:"visualization"`
}

// Aggregate Root: ContentItem
type ContentItem struct {
	ID         ItemID    `json:"id"`
	RawContent string    `json:"content"`
	Images     []Image   `json:"images,omitempty"`
	Kind       Kind      `json:"kind"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Tags       []string  `json:"tags"`
	Analysis   *Analysis `json:"analysis,omitempty"`
	Status     Status    `json:"status"`
	LastError  string    `json:"last_error,omitempty"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
}

// ValidKind reports whether k is one of the accepted kinds.
func ValidKind(k Kind) bool {
	switch k {
	case KindText, KindLink, KindFile:
		return true
	}
	return false
}
