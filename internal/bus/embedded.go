package bus

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedServer is a NATS server running inside the process.
type EmbeddedServer struct {
	ns     *server.Server
	logger *log.Logger
}

// StartServer starts an embedded NATS server listening on cfg.Host and
// cfg.Port. A port of -1 picks a free one.
func StartServer(cfg Config, logger *log.Logger) (*EmbeddedServer, error) {
	if logger == nil {
		logger = log.Default()
	}

	opts := &server.Options{
		ServerName: "readaloud",
		Host:       cfg.Host,
		Port:       cfg.Port,
		NoSigs:     true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create embedded NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start within 5 seconds")
	}

	logger.Info("embedded NATS server started", "url", ns.ClientURL())
	return &EmbeddedServer{ns: ns, logger: logger}, nil
}

// ClientURL is the URL clients connect to.
func (e *EmbeddedServer) ClientURL() string {
	return e.ns.ClientURL()
}

// Shutdown stops the server and waits for it to exit.
func (e *EmbeddedServer) Shutdown() {
	if e == nil || e.ns == nil {
		return
	}
	e.logger.Info("shutting down embedded NATS server")
	e.ns.Shutdown()
	e.ns.WaitForShutdown()
}
