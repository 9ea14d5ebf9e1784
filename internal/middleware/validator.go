package middleware

import (
	"fmt"
	"strings"
)

// Input validation and sanitization utilities for submissions

const (
	// MaxContentBytes bounds pasted text and extracted file text
	MaxContentBytes = 1 << 20 // 1 MiB
	// MaxImageBytes bounds a single decoded image payload
	MaxImageBytes = 10 << 20 // 10 MiB
	// MaxImages bounds attachments per submission
	MaxImages = 8
)

// allowedImageMimeTypes the analysis service accepts as inline payloads
var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateKind checks if the kind hint is in the allowed list. Empty is
// allowed: the kind is then detected from content.
func ValidateKind(kind string) error {
	if kind == "" {
		return nil
	}
	allowed := map[string]bool{
		"text": true,
		"link": true,
		"file": true,
	}

	if !allowed[strings.ToLower(kind)] {
		return fmt.Errorf("invalid kind: %s (allowed: text, link, file)", kind)
	}
	return nil
}

// ValidateContentSize rejects oversized raw content
func ValidateContentSize(content string) error {
	if len(content) > MaxContentBytes {
		return fmt.Errorf("content too large: %d bytes (max %d)", len(content), MaxContentBytes)
	}
	return nil
}

// ValidateImage checks mime type and payload size of one attachment
func ValidateImage(mimeType string, size int) error {
	if !allowedImageMimeTypes[strings.ToLower(mimeType)] {
		return fmt.Errorf("unsupported image mime type: %s", mimeType)
	}
	if size == 0 {
		return fmt.Errorf("empty image payload")
	}
	if size > MaxImageBytes {
		return fmt.Errorf("image too large: %d bytes (max %d)", size, MaxImageBytes)
	}
	return nil
}

// ValidateImageCount bounds attachments per submission
func ValidateImageCount(n int) error {
	if n > MaxImages {
		return fmt.Errorf("too many images: %d (max %d)", n, MaxImages)
	}
	return nil
}
