package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestExtractFilePlainText(t *testing.T) {
	for _, name := range []string{"notes.txt", "notes.md", "notes.markdown"} {
		path := writeTempFile(t, name, "# Topic\nsome content")
		got, err := ExtractFile(path)
		if err != nil {
			t.Fatalf("ExtractFile(%s): %v", name, err)
		}
		if got != "# Topic\nsome content" {
			t.Errorf("ExtractFile(%s) = %q", name, got)
		}
	}
}

func TestExtractFileCSV(t *testing.T) {
	path := writeTempFile(t, "grades.csv", "name,score\nalice,92\nbob,85\n")
	got, err := ExtractFile(path)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	want := "name, score\nalice, 92\nbob, 85\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractFileCSVRaggedRows(t *testing.T) {
	path := writeTempFile(t, "ragged.csv", "a,b,c\nd,e\n")
	got, err := ExtractFile(path)
	if err != nil {
		t.Fatalf("ragged CSV should not fail: %v", err)
	}
	if !strings.Contains(got, "d, e") {
		t.Errorf("missing short row in %q", got)
	}
}

func TestExtractFileHTML(t *testing.T) {
	html := `<html><head><style>body { color: red }</style></head>
<body><script>alert("hi")</script><h1>Biology</h1><p>Cells divide.</p></body></html>`
	path := writeTempFile(t, "page.html", html)

	got, err := ExtractFile(path)
	if err != nil {
		t.Fatalf("ExtractFile: %v", err)
	}
	if !strings.Contains(got, "Biology") || !strings.Contains(got, "Cells divide.") {
		t.Errorf("missing body text in %q", got)
	}
	if strings.Contains(got, "alert") || strings.Contains(got, "color: red") {
		t.Errorf("script/style content leaked into %q", got)
	}
}

func TestExtractFileUnsupported(t *testing.T) {
	path := writeTempFile(t, "image.png", "not really an image")
	_, err := ExtractFile(path)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestExtractFileMissing(t *testing.T) {
	if _, err := ExtractFile(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCollapseBlankLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"squeezes runs", "a\n\n\n\nb", "a\n\nb"},
		{"trims lines", "  a  \n\tb\t", "a\nb"},
		{"drops leading and trailing blanks", "\n\na\n\n\n", "a"},
		{"empty input", "\n\n  \n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CollapseBlankLines(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
