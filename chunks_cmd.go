package main

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/readaloud/internal/page"
	"github.com/dgnsrekt/readaloud/tts/sentence"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	chunkSize  int
	chunkWidth uint

	chunksCmd = &cobra.Command{
		Use:     "chunks FILE",
		Short:   "Show how a document is split for narration",
		Long:    paragraph(fmt.Sprintf("\n%s the readable text of FILE into the chunks that are spoken one at a time.", keyword("Split"))),
		Example: paragraph("readaloud chunks README.md\nreadaloud chunks --size 120 notes.md"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := documentFromArg(args[0])
			if err != nil {
				return err
			}
			b, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("unable to read file: %w", err)
			}

			chunks := sentence.ChunkSize(page.Extract(b), chunkSize)
			isTerminal := term.IsTerminal(int(os.Stdout.Fd()))

			style := styles.AutoStyle
			if !isTerminal {
				style = styles.NoTTYStyle
			}
			width := int(chunkWidth) //nolint:gosec
			if width == 0 {
				width = 80
				if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && isTerminal {
					width = min(w, 120)
				}
			}

			r, err := glamour.NewTermRenderer(
				glamour.WithColorProfile(lipgloss.ColorProfile()),
				glamour.WithStandardStyle(style),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return fmt.Errorf("unable to create renderer: %w", err)
			}
			out, err := r.Render(chunkPlan(path, chunks))
			if err != nil {
				return fmt.Errorf("unable to render markdown: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
)

func init() {
	chunksCmd.Flags().IntVar(&chunkSize, "size", sentence.MaxChunkSize, "soft limit of a chunk in characters")
	chunksCmd.Flags().UintVarP(&chunkWidth, "width", "w", 0, "word-wrap at width")
}

// chunkPlan describes chunks as a markdown document.
func chunkPlan(path string, chunks []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", markdownEscaper.Replace(path))

	if len(chunks) == 0 {
		b.WriteString("Nothing to read.\n")
		return b.String()
	}

	var total int
	for _, c := range chunks {
		total += utf8.RuneCountInString(c)
	}
	fmt.Fprintf(&b, "%d chunks, %d characters.\n\n", len(chunks), total)

	for i, c := range chunks {
		fmt.Fprintf(&b, "%d. %s *(%d)*\n", i+1, markdownEscaper.Replace(c), utf8.RuneCountInString(c))
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
	"#", `\#`,
)
