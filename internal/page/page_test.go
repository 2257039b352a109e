package page

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgnsrekt/readaloud/tts"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "headings and paragraphs",
			input: "# Title\n\nFirst line\nwraps here.\n\nSecond paragraph.\n",
			want:  "Title\nFirst line wraps here.\nSecond paragraph.",
		},
		{
			name:  "code blocks dropped",
			input: "Before.\n\n```go\nfmt.Println(\"x\")\n```\n\n    indented code\n\nAfter.\n",
			want:  "Before.\nAfter.",
		},
		{
			name:  "images and html dropped",
			input: "See ![a diagram](d.png) below.\n\n<div>markup</div>\n\nText with <b>tags</b>.\n",
			want:  "See below.\nText with tags.",
		},
		{
			name:  "lists and quotes",
			input: "- one\n- two\n\n> quoted words\n",
			want:  "one\ntwo\nquoted words",
		},
		{
			name:  "inline formatting",
			input: "Some *emphasis*, `code` and a [link](http://x).\n",
			want:  "Some emphasis, code and a link.",
		},
		{
			name:  "front matter",
			input: "---\ntitle: hidden\n---\nVisible.\n",
			want:  "Visible.",
		},
		{
			name:  "nfc",
			input: "Cafe\u0301.\n",
			want:  "Caf\u00e9.",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Extract([]byte(tt.input)); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDocumentGetText(t *testing.T) {
	path := writeDoc(t, "# Doc\n\nBody text.\n")

	tests := []struct {
		name      string
		selection bool
		clip      string
		clipErr   error
		want      string
	}{
		{"document", false, "selected words", nil, "Doc\nBody text."},
		{"selection first", true, "  selected words \n", nil, "selected words"},
		{"empty clipboard", true, "   ", nil, "Doc\nBody text."},
		{"clipboard failure", true, "", errors.New("no xclip"), "Doc\nBody text."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDocument(1, path, WithSelection(tt.selection))
			d.readClipboard = func() (string, error) { return tt.clip, tt.clipErr }

			got, err := d.GetText(context.Background(), 1)
			if err != nil {
				t.Fatalf("GetText failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDocumentErrors(t *testing.T) {
	d := NewDocument(1, filepath.Join(t.TempDir(), "missing.md"))

	if _, err := d.GetText(context.Background(), 2); !errors.Is(err, ErrUnknownTab) {
		t.Errorf("Expected ErrUnknownTab, got %v", err)
	}
	if _, err := d.GetText(context.Background(), 1); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected a missing file error, got %v", err)
	}
	if err := d.Highlight(2, "x"); !errors.Is(err, ErrUnknownTab) {
		t.Errorf("Expected ErrUnknownTab, got %v", err)
	}
}

func TestDocumentHighlight(t *testing.T) {
	var got []string
	d := NewDocument(3, "unused.md", WithHighlightFunc(func(tab tts.TabID, text string) {
		if tab != 3 {
			t.Errorf("Expected tab 3, got %d", tab)
		}
		got = append(got, text)
	}))

	_ = d.Highlight(3, "First.")
	if d.Highlighted() != "First." {
		t.Errorf("Expected highlight, got %q", d.Highlighted())
	}
	_ = d.Highlight(3, "")
	if d.Highlighted() != "" {
		t.Errorf("Expected cleared highlight, got %q", d.Highlighted())
	}
	if len(got) != 2 || got[0] != "First." || got[1] != "" {
		t.Errorf("Expected forwarded highlights, got %q", got)
	}
}

func TestWatcher(t *testing.T) {
	path := writeDoc(t, "v1")
	other := filepath.Join(filepath.Dir(path), "other.md")

	w, err := NewWatcher(path)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func() { changed <- struct{}{} })
	}()

	if err := os.WriteFile(other, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("v2"), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("Expected a change notification")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected Run to return")
	}
}
