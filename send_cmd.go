package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dgnsrekt/readaloud/internal/bus"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	sendTab  int
	sendJSON bool

	sendCmd = &cobra.Command{
		Use:   "send ACTION [ARG]",
		Short: "Send a command to a running readaloud serve",
		Long: paragraph(fmt.Sprintf("\n%s a command over the message bus and print the resulting state. "+
			"Actions: play [TEXT], pause, stop, state, rate RATE, voice VOICE, toggle, closed, changed.", keyword("Send"))),
		Example: paragraph("readaloud send play \"Hello there.\"\nreadaloud send rate 1.5\nreadaloud send toggle"),
		Args:    cobra.RangeArgs(1, 2),
		RunE:    runSend,
	}
)

func init() {
	sendCmd.Flags().IntVar(&sendTab, "tab", 0, "tab the command refers to")
	sendCmd.Flags().BoolVar(&sendJSON, "json", false, "print the state as JSON")
}

// buildRequest maps the command line to a protocol request.
func buildRequest(action string, args []string, tab tts.TabID) (tts.Request, error) {
	arg := strings.Join(args, " ")
	req := tts.Request{TabID: tab}

	switch action {
	case "play":
		req.Action, req.Text = tts.ActionPlay, arg
	case "pause":
		req.Action = tts.ActionPause
	case "stop":
		req.Action = tts.ActionStop
	case "state":
		req.Action = tts.ActionGetState
	case "rate":
		rate, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return req, fmt.Errorf("invalid rate %q", arg)
		}
		req.Action, req.Rate = tts.ActionSetRate, rate
	case "voice":
		if arg == "" {
			return req, errors.New("missing voice")
		}
		req.Action, req.Voice = tts.ActionSetVoice, arg
	case "toggle":
		req.Action = tts.ActionToggle
	default:
		return req, fmt.Errorf("unknown action %q", action)
	}
	return req, nil
}

func runSend(cmd *cobra.Command, args []string) error {
	action, tab := args[0], tts.TabID(sendTab)
	tabEvent := action == "closed" || action == "changed"

	var req tts.Request
	if tabEvent {
		if !tab.Bound() {
			return fmt.Errorf("%s needs --tab", action)
		}
	} else {
		var err error
		if req, err = buildRequest(action, args[1:], tab); err != nil {
			return err
		}
	}

	cfg := bus.LoadConfig(viper.GetViper())
	conn, err := bus.Connect(cfg.URL, appName+"-send")
	if err != nil {
		return err
	}
	defer conn.Close()
	remote := bus.NewRemote(conn, cfg.Prefix)

	switch action {
	case "closed":
		return remote.TabRemoved(tab)
	case "changed":
		return remote.TabUpdated(tab, true)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
	defer cancel()

	var snap tts.Snapshot
	if req.Action == tts.ActionToggle {
		snap, err = remote.Shortcut(ctx, tts.ActionToggle)
	} else {
		snap, err = remote.Do(ctx, req)
	}
	if err != nil {
		return err
	}

	if sendJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	fmt.Println(describeState(snap))
	return nil
}

// describeState summarizes a snapshot on one line.
func describeState(snap tts.Snapshot) string {
	parts := []string{keyword(snap.PlaybackState.String())}
	if snap.IsActive() && len(snap.Chunks) > 0 {
		parts = append(parts, fmt.Sprintf("chunk %d of %d", snap.ChunkIndex+1, len(snap.Chunks)))
	}
	parts = append(parts, fmt.Sprintf("rate %.1f", snap.Rate))
	if snap.Voice != "" {
		parts = append(parts, "voice "+snap.Voice)
	}
	if snap.TabID.Bound() {
		parts = append(parts, fmt.Sprintf("tab %d", snap.TabID))
	}
	return strings.Join(parts, faint(" · "))
}
