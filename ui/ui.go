// Package ui provides the terminal reader.
package ui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/page"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/muesli/termenv"
)

const statusMessageTimeout = 3 * time.Second

// Controller is the narration controller driven by the reader.
type Controller interface {
	Play(ctx context.Context, req tts.PlayRequest) (tts.Snapshot, error)
	Toggle(ctx context.Context) (tts.Snapshot, error)
	Stop(ctx context.Context) (tts.Snapshot, error)
	GetState(ctx context.Context) (tts.Snapshot, error)
	SetRate(ctx context.Context, rate float64) (tts.Snapshot, error)
	SetVoice(ctx context.Context, voice string) (tts.Snapshot, error)
	TabRemoved(ctx context.Context, tab tts.TabID) (tts.Snapshot, error)
	TabUpdated(ctx context.Context, tab tts.TabID, urlChanged bool) (tts.Snapshot, error)
}

type (
	errMsg         struct{ err error }
	stateMsg       tts.Snapshot
	contentMsg     string
	highlightMsg   string
	fileChangedMsg struct{}
	statusMsg      string
	watchingMsg    struct{ ch <-chan struct{} }

	statusMessageTimeoutMsg struct{ seq int }
)

func (e errMsg) Error() string { return e.err.Error() }

type model struct {
	cfg    Config
	ctx    context.Context
	ctrl   Controller
	doc    *page.Document
	voices []tts.Voice
	style  lipgloss.Style

	viewport viewport.Model
	width    int
	height   int
	ready    bool

	body      string
	snap      tts.Snapshot
	highlight string
	follow    bool

	message    string
	messageErr bool
	messageSeq int

	changes <-chan struct{}
}

// NewProgram returns a reader for doc. Highlights reported to doc are shown
// in the reader.
func NewProgram(ctx context.Context, cfg Config, ctrl Controller, doc *page.Document, voices []tts.Voice) *tea.Program {
	log.Debug("starting reader", "path", doc.Path, "selection", cfg.Selection)

	m := newModel(ctx, cfg, ctrl, doc, voices, termenv.HasDarkBackground())

	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(m, opts...)

	doc.OnHighlight(func(_ tts.TabID, text string) {
		p.Send(highlightMsg(text))
	})
	return p
}

func newModel(ctx context.Context, cfg Config, ctrl Controller, doc *page.Document, voices []tts.Voice, dark bool) model {
	if cfg.RateStep <= 0 {
		cfg.RateStep = 0.1
	}
	doc.SetSelection(cfg.Selection)
	return model{
		cfg:      cfg,
		ctx:      ctx,
		ctrl:     ctrl,
		doc:      doc,
		voices:   voices,
		style:    highlightStyle(cfg.HighlightColor, dark),
		viewport: viewport.New(0, 0),
		snap:     tts.Snapshot{Rate: tts.DefaultRate},
		follow:   true,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.loadContent(), m.getState(), m.watchFile())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(0, msg.Height-statusSize)
		m.ready = true
		m.render()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, m.quit()
		case " ":
			return m, m.toggle()
		case "s":
			return m, m.command(func(ctx context.Context) (tts.Snapshot, error) {
				return m.ctrl.Stop(ctx)
			})
		case "+", "=":
			return m, m.setRate(m.snap.Rate + m.cfg.RateStep)
		case "-", "_":
			return m, m.setRate(m.snap.Rate - m.cfg.RateStep)
		case "v":
			return m, m.nextVoice()
		case "F":
			m.follow = !m.follow
			return m, m.showStatusMessage(fmt.Sprintf("follow %s", onOff(m.follow)), false)
		}

	case contentMsg:
		m.body = string(msg)
		m.render()

	case stateMsg:
		m.snap = tts.Snapshot(msg)
		if m.snap.PlaybackState == tts.StateStopped {
			m.highlight = ""
		}
		m.render()

	case highlightMsg:
		m.highlight = string(msg)
		m.render()
		cmds = append(cmds, m.getState())

	case watchingMsg:
		m.changes = msg.ch
		return m, waitForChange(m.changes)

	case fileChangedMsg:
		log.Debug("document changed on disk", "path", m.doc.Path)
		cmds = append(cmds,
			m.command(func(ctx context.Context) (tts.Snapshot, error) {
				return m.ctrl.TabUpdated(ctx, m.doc.ID, true)
			}),
			m.loadContent(),
			waitForChange(m.changes),
		)
		return m, tea.Batch(cmds...)

	case statusMsg:
		cmds = append(cmds, m.showStatusMessage(string(msg), false))

	case errMsg:
		log.Error("reader", "error", msg.err)
		cmds = append(cmds, m.showStatusMessage(msg.Error(), true))

	case statusMessageTimeoutMsg:
		if msg.seq == m.messageSeq {
			m.message, m.messageErr = "", false
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	if !m.ready {
		return ""
	}
	return m.viewport.View() + "\n" + statusBarView(m.width, m.snap, m.message, m.messageErr)
}

// render refreshes the viewport content and keeps the highlight in view.
func (m *model) render() {
	if !m.ready {
		return
	}
	width := m.viewport.Width
	if m.cfg.MaxWidth > 0 {
		width = min(width, m.cfg.MaxWidth)
	}

	content := wrap(m.body, width)
	line := -1
	if m.highlight != "" {
		content, line = highlight(content, m.highlight, m.style)
	}
	m.viewport.SetContent(content)

	if m.follow && line >= 0 {
		if line < m.viewport.YOffset || line >= m.viewport.YOffset+m.viewport.Height {
			m.viewport.SetYOffset(max(0, line-m.viewport.Height/3))
		}
	}
}

func (m *model) showStatusMessage(text string, isError bool) tea.Cmd {
	m.message, m.messageErr = text, isError
	m.messageSeq++
	seq := m.messageSeq
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{seq: seq}
	})
}

// COMMANDS

func (m model) command(fn func(ctx context.Context) (tts.Snapshot, error)) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		snap, err := fn(ctx)
		if err != nil {
			return errMsg{err}
		}
		return stateMsg(snap)
	}
}

func (m model) getState() tea.Cmd {
	return m.command(m.ctrl.GetState)
}

// toggle plays the document when the session is not bound to it and
// otherwise toggles between playing and paused.
func (m model) toggle() tea.Cmd {
	if m.snap.TabID == m.doc.ID {
		return m.command(m.ctrl.Toggle)
	}

	ctx, ctrl, doc := m.ctx, m.ctrl, m.doc
	return func() tea.Msg {
		text, err := doc.GetText(ctx, doc.ID)
		if err != nil {
			return errMsg{err}
		}
		if strings.TrimSpace(text) == "" {
			return statusMsg("nothing to read")
		}
		snap, err := ctrl.Play(ctx, tts.PlayRequest{Text: text, TabID: doc.ID})
		if err != nil {
			return errMsg{err}
		}
		return stateMsg(snap)
	}
}

func (m model) setRate(rate float64) tea.Cmd {
	rate = math.Round(rate*10) / 10
	rate = math.Max(tts.MinRate, math.Min(tts.MaxRate, rate))
	return m.command(func(ctx context.Context) (tts.Snapshot, error) {
		return m.ctrl.SetRate(ctx, rate)
	})
}

func (m model) nextVoice() tea.Cmd {
	if len(m.voices) == 0 {
		return func() tea.Msg { return statusMsg("no voices to choose from") }
	}
	next := m.voices[0]
	for i, v := range m.voices {
		if v.ID == m.snap.Voice {
			next = m.voices[(i+1)%len(m.voices)]
			break
		}
	}
	return m.command(func(ctx context.Context) (tts.Snapshot, error) {
		return m.ctrl.SetVoice(ctx, next.ID)
	})
}

func (m model) quit() tea.Cmd {
	ctx, ctrl, tab := m.ctx, m.ctrl, m.doc.ID
	return func() tea.Msg {
		if _, err := ctrl.TabRemoved(ctx, tab); err != nil && !errors.Is(err, context.Canceled) {
			log.Debug("tab removed on quit", "error", err)
		}
		return tea.QuitMsg{}
	}
}

func (m model) loadContent() tea.Cmd {
	doc := m.doc
	return func() tea.Msg {
		body, err := doc.Body()
		if err != nil {
			return errMsg{err}
		}
		return contentMsg(body)
	}
}

// watchFile starts watching the document and reports the change channel.
func (m model) watchFile() tea.Cmd {
	ctx, path := m.ctx, m.doc.Path
	return func() tea.Msg {
		w, err := page.NewWatcher(path)
		if err != nil {
			log.Error("error watching document", "error", err)
			return nil
		}
		ch := make(chan struct{}, 1)
		go func() {
			_ = w.Run(ctx, func() {
				select {
				case ch <- struct{}{}:
				default:
				}
			})
		}()
		return watchingMsg{ch: ch}
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return fileChangedMsg{}
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
