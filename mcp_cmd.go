package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/mcp"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve narration tools to an AI agent over stdio",
	Long: paragraph(fmt.Sprintf("\n%s the narration controller as Model Context Protocol tools on stdin and stdout. "+
		"Add it to an agent with the command %s.", keyword("Expose"), keyword("readaloud mcp"))),
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		runCtx, stop := a.start(ctx)
		defer stop()

		if err := a.applyFlags(runCtx, cmd); err != nil {
			return err
		}

		lister, _ := a.engine.(tts.VoiceLister)
		srv := mcp.NewServer(mcp.Config{ServerName: appName, ServerVersion: Version}, a.ctrl, lister, log.Default())
		if err := srv.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	},
}
