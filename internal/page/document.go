package page

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/dgnsrekt/readaloud/tts"
)

// ErrUnknownTab is returned for a tab the document is not bound to.
var ErrUnknownTab = errors.New("unknown tab")

// HighlightFunc receives highlight notifications for a document.
type HighlightFunc func(tab tts.TabID, text string)

// Document is a local file shown in one reader tab. It implements
// tts.TextSource and tts.Highlighter.
type Document struct {
	ID   tts.TabID
	Path string

	readClipboard func() (string, error)
	onHighlight   HighlightFunc

	mu        sync.Mutex
	selection bool
	highlight string
}

// DocumentOption configures a Document.
type DocumentOption func(*Document)

// WithSelection reads the clipboard before the document text.
func WithSelection(on bool) DocumentOption {
	return func(d *Document) { d.selection = on }
}

// WithHighlightFunc forwards highlight changes to fn.
func WithHighlightFunc(fn HighlightFunc) DocumentOption {
	return func(d *Document) { d.onHighlight = fn }
}

// NewDocument returns the document at path bound to tab id.
func NewDocument(id tts.TabID, path string, opts ...DocumentOption) *Document {
	d := &Document{
		ID:            id,
		Path:          path,
		readClipboard: clipboard.ReadAll,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnHighlight replaces the function receiving highlight changes.
func (d *Document) OnHighlight(fn HighlightFunc) {
	d.mu.Lock()
	d.onHighlight = fn
	d.mu.Unlock()
}

// SetSelection switches selection-first mode.
func (d *Document) SetSelection(on bool) {
	d.mu.Lock()
	d.selection = on
	d.mu.Unlock()
}

// Selection reports whether selection-first mode is on.
func (d *Document) Selection() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selection
}

// Body returns the extracted text of the file.
func (d *Document) Body() (string, error) {
	b, err := os.ReadFile(d.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", d.Path, err)
	}
	return Extract(b), nil
}

// GetText returns the clipboard selection when selection mode is on and
// the clipboard holds text, otherwise the document body.
func (d *Document) GetText(ctx context.Context, tab tts.TabID) (string, error) {
	if tab != d.ID {
		return "", fmt.Errorf("%w: %d", ErrUnknownTab, tab)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if d.Selection() && d.readClipboard != nil {
		sel, err := d.readClipboard()
		if err == nil && strings.TrimSpace(sel) != "" {
			return Normalize(strings.TrimSpace(sel)), nil
		}
	}
	return d.Body()
}

// Highlight records text as the chunk being spoken. An empty text clears it.
func (d *Document) Highlight(tab tts.TabID, text string) error {
	if tab != d.ID {
		return fmt.Errorf("%w: %d", ErrUnknownTab, tab)
	}

	d.mu.Lock()
	d.highlight = text
	fn := d.onHighlight
	d.mu.Unlock()

	if fn != nil {
		fn(tab, text)
	}
	return nil
}

// Highlighted returns the text currently highlighted.
func (d *Document) Highlighted() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.highlight
}
