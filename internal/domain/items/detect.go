package items

import (
	"net/url"
	"path"
	"strings"
)

// extensions that mark pasted content as a file reference
var fileExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".svg": true, ".pdf": true, ".doc": true, ".docx": true,
	".xls": true, ".xlsx": true, ".ppt": true, ".pptx": true,
	".csv": true, ".txt": true, ".md": true,
}

// DetectKind classifies raw content as link, file, or text.
func DetectKind(content string) Kind {
	s := strings.TrimSpace(content)
	if s == "" {
		return KindText
	}

	// URL detection: either a parseable absolute URL or a bare www. prefix.
	// Only inspect the first token so "https://x.com - notes" still counts.
	first := s
	if i := strings.IndexAny(first, " \t\n"); i >= 0 {
		first = first[:i]
	}
	if u, err := url.Parse(first); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return KindLink
	}
	if strings.HasPrefix(strings.ToLower(first), "www.") {
		return KindLink
	}

	if fileExtensions[strings.ToLower(path.Ext(first))] {
		return KindFile
	}

	return KindText
}
