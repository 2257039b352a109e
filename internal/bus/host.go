package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/nats-io/nats.go"
)

// Controller is the part of tts.Controller served on the bus.
type Controller interface {
	Respond(ctx context.Context, req tts.Request) tts.Response
	Toggle(ctx context.Context) (tts.Snapshot, error)
	TabRemoved(ctx context.Context, tab tts.TabID) (tts.Snapshot, error)
	TabUpdated(ctx context.Context, tab tts.TabID, urlChanged bool) (tts.Snapshot, error)
}

// Host subscribes the controller to the command and lifecycle subjects.
type Host struct {
	conn     *nats.Conn
	ctrl     Controller
	subjects Subjects
	timeout  time.Duration
	logger   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewHost returns a host for ctrl on conn. Commands time out after timeout.
func NewHost(conn *nats.Conn, ctrl Controller, prefix string, timeout time.Duration, logger *log.Logger) *Host {
	if logger == nil {
		logger = log.Default()
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Host{
		conn:     conn,
		ctrl:     ctrl,
		subjects: Subjects{Prefix: prefix},
		timeout:  timeout,
		logger:   logger.WithPrefix("bus"),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to all subjects.
func (h *Host) Start() error {
	handlers := map[string]nats.MsgHandler{
		h.subjects.Command():     h.handleCommand,
		h.subjects.Shortcut():    h.handleShortcut,
		h.subjects.TabsRemoved(): h.handleTabRemoved,
		h.subjects.TabsUpdated(): h.handleTabUpdated,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for subject, handler := range handlers {
		sub, err := h.conn.Subscribe(subject, handler)
		if err != nil {
			for _, s := range h.subs {
				_ = s.Unsubscribe()
			}
			h.subs = nil
			return fmt.Errorf("subscribe %s: %w", subject, err)
		}
		h.subs = append(h.subs, sub)
	}
	if err := h.conn.Flush(); err != nil {
		return fmt.Errorf("flush subscriptions: %w", err)
	}

	h.logger.Info("listening", "prefix", h.subjects.Prefix)
	return nil
}

// Close drains the subscriptions and cancels commands in flight.
func (h *Host) Close() {
	h.mu.Lock()
	subs := h.subs
	h.subs = nil
	h.mu.Unlock()

	for _, s := range subs {
		_ = s.Drain()
	}
	h.cancel()
}

func (h *Host) commandContext() (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(h.ctx)
	}
	return context.WithTimeout(h.ctx, h.timeout)
}

func (h *Host) handleCommand(msg *nats.Msg) {
	var resp tts.Response
	var req tts.Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		h.logger.Warn("failed to decode command", "err", err)
		resp = tts.Response{Error: fmt.Sprintf("invalid request: %v", err)}
	} else {
		ctx, cancel := h.commandContext()
		resp = h.ctrl.Respond(ctx, req)
		cancel()
		h.logger.Debug("command", "action", req.Action, "error", resp.Error)
	}
	h.reply(msg, resp)
}

func (h *Host) handleShortcut(msg *nats.Msg) {
	name := strings.TrimSpace(string(msg.Data))
	if name != tts.ActionToggle {
		h.logger.Debug("ignoring shortcut", "shortcut", name)
		return
	}

	ctx, cancel := h.commandContext()
	defer cancel()
	snap, err := h.ctrl.Toggle(ctx)
	h.reply(msg, response(snap, err))
}

func (h *Host) handleTabRemoved(msg *nats.Msg) {
	var ev TabEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		h.logger.Warn("failed to decode tab event", "err", err)
		return
	}

	ctx, cancel := h.commandContext()
	defer cancel()
	if _, err := h.ctrl.TabRemoved(ctx, ev.TabID); err != nil {
		h.logger.Warn("tab removed", "tab", ev.TabID, "err", err)
	}
}

func (h *Host) handleTabUpdated(msg *nats.Msg) {
	var ev TabEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		h.logger.Warn("failed to decode tab event", "err", err)
		return
	}

	ctx, cancel := h.commandContext()
	defer cancel()
	if _, err := h.ctrl.TabUpdated(ctx, ev.TabID, ev.URLChanged); err != nil {
		h.logger.Warn("tab updated", "tab", ev.TabID, "err", err)
	}
}

// reply answers msg when the sender asked for a reply.
func (h *Host) reply(msg *nats.Msg, resp tts.Response) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		h.logger.Warn("failed to encode response", "err", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		h.logger.Warn("failed to send response", "err", err)
	}
}

func response(snap tts.Snapshot, err error) tts.Response {
	if err != nil {
		return tts.Response{Error: err.Error()}
	}
	return tts.Response{State: &snap}
}
