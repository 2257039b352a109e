package ui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/readaloud/internal/page"
	"github.com/dgnsrekt/readaloud/tts"
)

type call struct {
	name  string
	text  string
	tab   tts.TabID
	rate  float64
	voice string
	flag  bool
}

// fakeController records the commands sent by the reader.
type fakeController struct {
	mu    sync.Mutex
	calls []call
	snap  tts.Snapshot
}

func (f *fakeController) record(c call) (tts.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.snap, nil
}

func (f *fakeController) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return call{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeController) Play(_ context.Context, req tts.PlayRequest) (tts.Snapshot, error) {
	return f.record(call{name: "play", text: req.Text, tab: req.TabID})
}

func (f *fakeController) Toggle(context.Context) (tts.Snapshot, error) {
	return f.record(call{name: "toggle"})
}

func (f *fakeController) Stop(context.Context) (tts.Snapshot, error) {
	return f.record(call{name: "stop"})
}

func (f *fakeController) GetState(context.Context) (tts.Snapshot, error) {
	return f.record(call{name: "getState"})
}

func (f *fakeController) SetRate(_ context.Context, rate float64) (tts.Snapshot, error) {
	return f.record(call{name: "setRate", rate: rate})
}

func (f *fakeController) SetVoice(_ context.Context, voice string) (tts.Snapshot, error) {
	return f.record(call{name: "setVoice", voice: voice})
}

func (f *fakeController) TabRemoved(_ context.Context, tab tts.TabID) (tts.Snapshot, error) {
	return f.record(call{name: "tabRemoved", tab: tab})
}

func (f *fakeController) TabUpdated(_ context.Context, tab tts.TabID, urlChanged bool) (tts.Snapshot, error) {
	return f.record(call{name: "tabUpdated", tab: tab, flag: urlChanged})
}

func newTestModel(t *testing.T, body string, voices ...tts.Voice) (model, *fakeController) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.md")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	ctrl := &fakeController{snap: tts.Snapshot{Rate: 1}}
	doc := page.NewDocument(1, path)
	m := newModel(context.Background(), Config{MaxWidth: 80}, ctrl, doc, voices, true)
	return m, ctrl
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

// run executes cmd and any batched commands, returning the messages.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, run(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func TestToggleReadsUnboundDocument(t *testing.T) {
	m, ctrl := newTestModel(t, "# Title\n\nFirst. Second.\n")

	_, cmd := update(t, m, key(" "))
	msgs := run(cmd)

	got := ctrl.last()
	if got.name != "play" || got.tab != 1 {
		t.Fatalf("Expected play for tab 1, got %+v", got)
	}
	if got.text != "Title\nFirst. Second." {
		t.Errorf("Expected the document text, got %q", got.text)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected one message, got %d", len(msgs))
	}
	if _, ok := msgs[0].(stateMsg); !ok {
		t.Errorf("Expected stateMsg, got %T", msgs[0])
	}
}

func TestToggleBoundDocument(t *testing.T) {
	m, ctrl := newTestModel(t, "Text.")
	m, _ = update(t, m, stateMsg(tts.Snapshot{TabID: 1, PlaybackState: tts.StatePlaying, Rate: 1}))

	_, cmd := update(t, m, key(" "))
	run(cmd)

	if got := ctrl.last(); got.name != "toggle" {
		t.Errorf("Expected toggle, got %+v", got)
	}
}

func TestToggleEmptyDocument(t *testing.T) {
	m, ctrl := newTestModel(t, "```\ncode only\n```\n")

	_, cmd := update(t, m, key(" "))
	msgs := run(cmd)

	if len(ctrl.calls) != 0 {
		t.Errorf("Expected no controller calls, got %+v", ctrl.calls)
	}
	if len(msgs) != 1 {
		t.Fatalf("Expected one message, got %d", len(msgs))
	}
	if _, ok := msgs[0].(statusMsg); !ok {
		t.Errorf("Expected statusMsg, got %T", msgs[0])
	}
}

func TestRateKeys(t *testing.T) {
	tests := []struct {
		key  string
		rate float64
		want float64
	}{
		{"+", 1, 1.1},
		{"=", 1.5, 1.6},
		{"-", 1, 0.9},
		{"-", 0.1, 0.1},
		{"+", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m, ctrl := newTestModel(t, "Text.")
			m.snap.Rate = tt.rate

			_, cmd := update(t, m, key(tt.key))
			run(cmd)

			got := ctrl.last()
			if got.name != "setRate" || got.rate != tt.want {
				t.Errorf("Expected setRate %v, got %+v", tt.want, got)
			}
		})
	}
}

func TestNextVoice(t *testing.T) {
	voices := []tts.Voice{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	tests := []struct {
		current string
		want    string
	}{
		{"a", "b"},
		{"c", "a"},
		{"", "a"},
		{"unknown", "a"},
	}

	for _, tt := range tests {
		t.Run(tt.current, func(t *testing.T) {
			m, ctrl := newTestModel(t, "Text.", voices...)
			m.snap.Voice = tt.current

			_, cmd := update(t, m, key("v"))
			run(cmd)

			if got := ctrl.last(); got.name != "setVoice" || got.voice != tt.want {
				t.Errorf("Expected setVoice %s, got %+v", tt.want, got)
			}
		})
	}

	m, ctrl := newTestModel(t, "Text.")
	_, cmd := update(t, m, key("v"))
	msgs := run(cmd)
	if len(ctrl.calls) != 0 || len(msgs) != 1 {
		t.Fatalf("Expected only a status message, got calls %+v", ctrl.calls)
	}
	if _, ok := msgs[0].(statusMsg); !ok {
		t.Errorf("Expected statusMsg, got %T", msgs[0])
	}
}

func TestStopKey(t *testing.T) {
	m, ctrl := newTestModel(t, "Text.")
	_, cmd := update(t, m, key("s"))
	run(cmd)

	if got := ctrl.last(); got.name != "stop" {
		t.Errorf("Expected stop, got %+v", got)
	}
}

func TestQuitRemovesTab(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m, ctrl := newTestModel(t, "Text.")
			_, cmd := update(t, m, key(k))
			msgs := run(cmd)

			if got := ctrl.last(); got.name != "tabRemoved" || got.tab != 1 {
				t.Errorf("Expected tabRemoved for tab 1, got %+v", got)
			}
			if len(msgs) != 1 {
				t.Fatalf("Expected one message, got %d", len(msgs))
			}
			if _, ok := msgs[0].(tea.QuitMsg); !ok {
				t.Errorf("Expected QuitMsg, got %T", msgs[0])
			}
		})
	}
}

func TestFileChanged(t *testing.T) {
	m, ctrl := newTestModel(t, "Updated text.")

	_, cmd := update(t, m, fileChangedMsg{})
	msgs := run(cmd)

	var updated bool
	for _, c := range ctrl.calls {
		if c.name == "tabUpdated" && c.tab == 1 && c.flag {
			updated = true
		}
	}
	if !updated {
		t.Errorf("Expected tabUpdated with a changed document, got %+v", ctrl.calls)
	}

	var reloaded bool
	for _, msg := range msgs {
		if c, ok := msg.(contentMsg); ok && string(c) == "Updated text." {
			reloaded = true
		}
	}
	if !reloaded {
		t.Errorf("Expected the document to be reloaded, got %v", msgs)
	}
}

func TestHighlightRefreshesState(t *testing.T) {
	m, ctrl := newTestModel(t, "One. Two.")
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 40, Height: 10})
	m, _ = update(t, m, contentMsg("One. Two."))

	m, cmd := update(t, m, highlightMsg("Two."))
	if m.highlight != "Two." {
		t.Errorf("Expected highlight to be stored, got %q", m.highlight)
	}
	run(cmd)
	if got := ctrl.last(); got.name != "getState" {
		t.Errorf("Expected a state refresh, got %+v", got)
	}

	m, _ = update(t, m, stateMsg(tts.Snapshot{PlaybackState: tts.StateStopped, Rate: 1}))
	if m.highlight != "" {
		t.Errorf("Expected stop to clear the highlight, got %q", m.highlight)
	}
}

func TestView(t *testing.T) {
	m, _ := newTestModel(t, "")
	if m.View() != "" {
		t.Error("Expected no view before the first resize")
	}

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 60, Height: 5})
	m, _ = update(t, m, contentMsg("Some words to read."))
	m, _ = update(t, m, stateMsg(tts.Snapshot{PlaybackState: tts.StatePaused, Chunks: []string{"a", "b"}, ChunkIndex: 1, Rate: 1.2, Voice: "en-us"}))

	view := m.View()
	if !strings.Contains(view, "Some words to read.") {
		t.Errorf("Expected document text in view:\n%s", view)
	}
	if !strings.Contains(view, "paused · 2/2 · 1.2x · en-us") {
		t.Errorf("Expected status in view:\n%s", view)
	}
}

func TestErrorMessage(t *testing.T) {
	m, _ := newTestModel(t, "")
	m, cmd := update(t, m, errMsg{os.ErrNotExist})
	if !m.messageErr || m.message == "" {
		t.Errorf("Expected an error message, got %q", m.message)
	}
	if cmd == nil {
		t.Fatal("Expected a timeout command")
	}

	m, _ = update(t, m, statusMessageTimeoutMsg{seq: m.messageSeq})
	if m.message != "" {
		t.Errorf("Expected the message to clear, got %q", m.message)
	}
}
