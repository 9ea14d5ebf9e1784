package items

import "testing"

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Kind
	}{
		{"plain text", "meeting notes from today", KindText},
		{"empty", "", KindText},
		{"whitespace only", "  \n\t ", KindText},
		{"https url", "https://blog.example.com/advanced-react-patterns", KindLink},
		{"http url", "http://example.com", KindLink},
		{"url with trailing notes", "https://example.com - notes", KindLink},
		{"bare www", "www.example.com some article", KindLink},
		{"ftp is not a link", "ftp://example.com/file", KindText},
		{"scheme without host", "https://", KindText},
		{"pdf file name", "design-system-v2.pdf", KindFile},
		{"docx file name", "report.docx attached below", KindFile},
		{"image file name", "screenshot.PNG", KindFile},
		{"dot but no known extension", "v2.1 release plan", KindText},
		{"url wins over extension", "https://cdn.example.com/design.pdf", KindLink},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectKind(tt.content); got != tt.want {
				t.Errorf("DetectKind(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
