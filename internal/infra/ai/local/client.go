// Package local is an offline Analyzer for development and tests: it applies
// the same sensitivity-first contract as the remote service using secret
// detectors, and derives a best-effort analysis from simple heuristics.
package local

import (
	"context"
	"regexp"
	"strings"

	domai "github.com/keepstack/keepstack/internal/domain/ai"
	"github.com/keepstack/keepstack/internal/domain/items"
)

// Secret and credential detectors; any hit classifies the content sensitive.
var detectors = []*regexp.Regexp{
	regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH )?PRIVATE KEY-----`),
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{20,}`),
	regexp.MustCompile(`github_pat_[A-Za-z0-9_]{20,}`),
	regexp.MustCompile(`AIza[0-9A-Za-z\-_]{35}`),
	regexp.MustCompile(`xox[baprs]-[A-Za-z0-9\-]{10,}`),
	regexp.MustCompile(`sk_(?:live|test)_[0-9A-Za-z]{10,}`),
	regexp.MustCompile(`(?i)sk-[a-z0-9\-_]{20,}`),
	regexp.MustCompile(`[A-Za-z0-9-_]{8,}\.eyJ[A-Za-z0-9-_]{5,}\.[A-Za-z0-9-_]{10,}`),
	regexp.MustCompile(`(?i)authorization\s*[:=]\s*["']?bearer\s+[A-Za-z0-9\-\._~\+\/]+=*`),
	regexp.MustCompile(`(?i)(api[_-]?key|client[_-]?secret|password)\s*[:=]\s*["']?[^\s"']{12,}`),
	regexp.MustCompile(`://[^\s/:@]+:[^\s/@]+@`),
}

// keyword hints for category classification, checked in order
var categoryHints = []struct {
	category string
	words    []string
}{
	{"Development", []string{"code", "api", "react", "golang", "function", "deploy", "bug", "repository"}},
	{"Work", []string{"meeting", "deadline", "quarterly", "budget", "team", "project", "hire"}},
	{"Design", []string{"design", "figma", "typography", "color palette", "ui", "ux"}},
	{"Research", []string{"paper", "study", "research", "dataset", "survey"}},
	{"Personal", []string{"weekend", "reading list", "recipe", "travel", "workout"}},
}

type Client struct{}

func NewClient() *Client {
	return &Client{}
}

func (c *Client) Analyze(ctx context.Context, content string, images []items.Image) (*items.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, re := range detectors {
		if re.MatchString(content) {
			return nil, domai.ErrSensitiveContent
		}
	}

	a := &items.Analysis{
		Title:     deriveTitle(content),
		Summary:   truncate(strings.TrimSpace(content), 240),
		KeyPoints: keyPoints(content),
		Tags:      deriveTags(content),
		Category:  deriveCategory(content),
		Visualization: items.Visualization{
			ShouldVisualize: false,
			ChartType:       "none",
			Data:            []items.ChartPoint{},
		},
	}
	if a.Summary == "" && len(images) > 0 {
		a.Summary = "Image capture."
	}
	return a, nil
}

func deriveTitle(content string) string {
	line := strings.TrimSpace(content)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	words := strings.Fields(line)
	if len(words) > 8 {
		words = words[:8]
	}
	return strings.Join(words, " ")
}

func deriveCategory(content string) string {
	lower := strings.ToLower(content)
	for _, hint := range categoryHints {
		for _, w := range hint.words {
			if strings.Contains(lower, w) {
				return hint.category
			}
		}
	}
	return ""
}

func deriveTags(content string) []string {
	lower := strings.ToLower(content)
	var tags []string
	for _, hint := range categoryHints {
		for _, w := range hint.words {
			if strings.Contains(lower, w) {
				tags = append(tags, capitalize(w))
				if len(tags) == 5 {
					return tags
				}
				break
			}
		}
	}
	return tags
}

func keyPoints(content string) []string {
	var points []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		points = append(points, truncate(line, 120))
		if len(points) == 5 {
			break
		}
	}
	return points
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
