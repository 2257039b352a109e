// Package mcp serves the narration controller as Model Context Protocol tools.
package mcp

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Controller is the part of tts.Controller exposed as tools.
type Controller interface {
	Dispatch(ctx context.Context, req tts.Request) (tts.Snapshot, error)
}

type Config struct {
	ServerName    string
	ServerVersion string
}

type Server struct {
	config    Config
	ctrl      Controller
	voices    tts.VoiceLister
	logger    *log.Logger
	mcpServer *sdk.Server
}

// NewServer registers the narration tools. voices may be nil when the
// engine cannot list voices.
func NewServer(cfg Config, ctrl Controller, voices tts.VoiceLister, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "readaloud"
	}

	s := &Server{
		config: cfg,
		ctrl:   ctrl,
		voices: voices,
		logger: logger.WithPrefix("mcp"),
	}

	s.mcpServer = sdk.NewServer(&sdk.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}, nil)

	s.registerTools()

	return s
}

// Run serves the tools over stdin and stdout until ctx is done or the
// client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving tools on stdio")
	return s.mcpServer.Run(ctx, &sdk.StdioTransport{})
}

// Connect serves the tools on t and returns without waiting.
func (s *Server) Connect(ctx context.Context, t sdk.Transport) (*sdk.ServerSession, error) {
	return s.mcpServer.Connect(ctx, t, nil)
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "play",
		Description: "Start reading text aloud, or resume paused narration when no text is given",
	}, s.handlePlay)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "pause",
		Description: "Pause narration",
	}, s.simple(tts.ActionPause))

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "stop",
		Description: "Stop narration and clear the text",
	}, s.simple(tts.ActionStop))

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "get_state",
		Description: "Return the narration state",
	}, s.simple(tts.ActionGetState))

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "set_rate",
		Description: "Set the speech rate (0.1 to 10, 1 is normal)",
	}, s.handleSetRate)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "set_voice",
		Description: "Set the voice by ID",
	}, s.handleSetVoice)

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "toggle",
		Description: "Toggle between playing and paused, reading the bound page when stopped",
	}, s.simple(tts.ActionToggle))

	sdk.AddTool(s.mcpServer, &sdk.Tool{
		Name:        "list_voices",
		Description: "List the voices of the speech engine, optionally filtered by a fuzzy query",
	}, s.handleListVoices)
}
