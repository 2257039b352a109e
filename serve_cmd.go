package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/internal/bus"
	"github.com/dgnsrekt/readaloud/internal/hotkey"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	noHotkey bool

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the narration controller on the message bus",
		Long: paragraph(fmt.Sprintf("\n%s the narration controller for pages connected over NATS. "+
			"Pages answer text requests and render highlights; any client can send commands.", keyword("Serve"))),
		Example: paragraph("readaloud serve\nreadaloud serve --no-hotkey"),
		Args:    cobra.NoArgs,
		RunE:    runServe,
	}
)

func init() {
	serveCmd.Flags().BoolVar(&noHotkey, "no-hotkey", false, "do not register the global shortcut")
	serveCmd.Flags().String("metrics", "", "serve prometheus metrics on this address")
	_ = viper.BindPFlag("metrics.listen", serveCmd.Flags().Lookup("metrics"))
}

// connectBus starts the embedded server when configured and connects to it.
// The returned function closes both.
func connectBus(cfg bus.Config, name string) (*nats.Conn, func(), error) {
	url := cfg.URL
	var srv *bus.EmbeddedServer
	if cfg.Embedded {
		var err error
		srv, err = bus.StartServer(cfg, log.Default())
		if err != nil {
			return nil, nil, err
		}
		url = srv.ClientURL()
	}

	conn, err := bus.Connect(url, name)
	if err != nil {
		if srv != nil {
			srv.Shutdown()
		}
		return nil, nil, err
	}
	return conn, func() {
		_ = conn.Drain()
		if srv != nil {
			srv.Shutdown()
		}
	}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	cfg := bus.LoadConfig(viper.GetViper())
	conn, closeBus, err := connectBus(cfg, appName+"-serve")
	if err != nil {
		return err
	}
	defer closeBus()

	pages := bus.NewPages(conn, cfg.Prefix, cfg.RequestTimeout)
	a, err := newApp(ctx, tts.WithTextSource(pages), tts.WithHighlighter(pages))
	if err != nil {
		return err
	}
	defer a.Close()

	runCtx, stop := a.start(ctx)
	defer stop()

	if err := a.applyFlags(runCtx, cmd); err != nil {
		return err
	}

	host := bus.NewHost(conn, a.ctrl, cfg.Prefix, cfg.RequestTimeout, log.Default())
	if err := host.Start(); err != nil {
		return err
	}
	defer host.Close()

	if addr := viper.GetString("metrics.listen"); addr != "" {
		go func() {
			if err := a.metrics.Serve(runCtx, addr, log.Default()); err != nil {
				log.Error("metrics server", "addr", addr, "err", err)
			}
		}()
	}

	if combo := viper.GetString("hotkey"); combo != "" && !noHotkey {
		l := hotkey.NewListener(combo, func() { toggle(runCtx, a.ctrl) }, log.Default())
		if err := l.Start(runCtx); err != nil {
			log.Warn("global shortcut disabled", "err", err)
		} else {
			defer l.Stop()
		}
	}

	fmt.Fprintf(os.Stderr, "%s on %s %s\n", keyword("serving"), conn.ConnectedUrl(),
		faint(fmt.Sprintf("(engine %s, subjects %s.*)", a.engineName, cfg.Prefix)))

	<-runCtx.Done()
	return nil
}

// toggle runs the shortcut command without blocking the caller.
func toggle(ctx context.Context, ctrl *tts.Controller) {
	go func() {
		if _, err := ctrl.Toggle(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("toggle from shortcut", "err", err)
		}
	}()
}
