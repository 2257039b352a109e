package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:     "voices [QUERY]",
	Short:   "List the voices of the speech engine",
	Long:    paragraph(fmt.Sprintf("\n%s the voices of the configured engine, fuzzy filtered by QUERY.", keyword("List"))),
	Example: paragraph("readaloud voices\nreadaloud voices --engine google wavenet"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		cfg.Cache.Enabled = false

		engine, name, err := newEngine(cmd.Context(), cfg, log.Default())
		if err != nil {
			return err
		}
		defer engine.Close() //nolint:errcheck

		lister, ok := engine.(tts.VoiceLister)
		if !ok {
			return fmt.Errorf("the %s engine cannot list voices", name)
		}
		voices, err := tts.LoadVoices(cmd.Context(), lister, tts.DefaultVoiceAttempts, tts.DefaultVoiceDelay)
		if err != nil {
			return err
		}

		var query string
		if len(args) > 0 {
			query = args[0]
		}
		matches := tts.MatchVoices(voices, query)
		if len(matches) == 0 {
			return fmt.Errorf("no %s voice matches %q", name, query)
		}
		fmt.Print(voiceTable(matches))
		return nil
	},
}

// voiceTable lays out voices in aligned columns.
func voiceTable(voices []tts.Voice) string {
	idWidth := 0
	for _, v := range voices {
		idWidth = max(idWidth, lipgloss.Width(v.ID))
	}
	id := lipgloss.NewStyle().Width(idWidth + 2)

	var b strings.Builder
	for _, v := range voices {
		b.WriteString(id.Render(v.ID))
		b.WriteString(v.Language)
		if v.Gender != "" {
			b.WriteString(faint(" " + v.Gender))
		}
		if v.Default {
			b.WriteString(" " + keyword("default"))
		}
		if v.Name != "" && v.Name != v.ID {
			b.WriteString(faint("  " + v.Name))
		}
		b.WriteString("\n")
	}
	return b.String()
}
