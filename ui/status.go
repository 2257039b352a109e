package ui

import (
	"fmt"
	"strings"

	"github.com/dgnsrekt/readaloud/tts"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"
)

const (
	ellipsis   = "…"
	helpNote   = " space play/pause · s stop · +/- rate · v voice · q quit "
	logoText   = " readaloud "
	statusSize = 1
)

func playbackLabel(s tts.PlaybackState) string {
	switch s {
	case tts.StatePlaying:
		return "▶ playing"
	case tts.StatePaused:
		return "⏸ paused"
	default:
		return "■ stopped"
	}
}

// statusNote describes the narration session in one line.
func statusNote(snap tts.Snapshot) string {
	parts := []string{playbackLabel(snap.PlaybackState)}

	if snap.IsActive() && len(snap.Chunks) > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d", snap.ChunkIndex+1, len(snap.Chunks)))
	}
	parts = append(parts, fmt.Sprintf("%.1fx", snap.Rate))
	if snap.Voice != "" {
		parts = append(parts, snap.Voice)
	}
	return strings.Join(parts, " · ")
}

// statusBarView renders the status bar at the given width.
func statusBarView(width int, snap tts.Snapshot, message string, isError bool) string {
	logo := logoStyle(logoText)

	help := helpNote
	if width-runewidth.StringWidth(logoText) < 2*runewidth.StringWidth(helpNote) {
		help = " q quit "
	}
	help = statusBarHelpStyle(help)

	note := statusNote(snap)
	if message != "" {
		note = message
	}

	avail := max(0, width-ansi.PrintableRuneWidth(logo)-ansi.PrintableRuneWidth(help))
	note = truncate.StringWithTail(" "+note+" ", uint(avail), ellipsis) //nolint:gosec

	style := statusBarNoteStyle
	switch {
	case message != "" && isError:
		style = statusBarErrorStyle
	case message != "":
		style = statusBarMessageStyle
	}

	padding := max(0, avail-runewidth.StringWidth(note))

	return logo + style(note) + style(strings.Repeat(" ", padding)) + help
}
