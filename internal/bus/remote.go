package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgnsrekt/readaloud/tts"
	"github.com/nats-io/nats.go"
)

// ErrRemote wraps an error reported by a remote controller.
var ErrRemote = errors.New("remote controller")

// Remote sends commands to a controller served by a Host.
type Remote struct {
	conn     *nats.Conn
	subjects Subjects
}

// NewRemote returns a client for the controller under prefix.
func NewRemote(conn *nats.Conn, prefix string) *Remote {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Remote{conn: conn, subjects: Subjects{Prefix: prefix}}
}

// Do sends req and returns the resulting state.
func (r *Remote) Do(ctx context.Context, req tts.Request) (tts.Snapshot, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return tts.Snapshot{}, err
	}
	msg, err := r.conn.RequestWithContext(ctx, r.subjects.Command(), data)
	if err != nil {
		return tts.Snapshot{}, fmt.Errorf("send %s: %w", req.Action, err)
	}
	return decodeResponse(msg.Data)
}

// Shortcut triggers a shortcut and returns the resulting state.
func (r *Remote) Shortcut(ctx context.Context, name string) (tts.Snapshot, error) {
	msg, err := r.conn.RequestWithContext(ctx, r.subjects.Shortcut(), []byte(name))
	if err != nil {
		return tts.Snapshot{}, fmt.Errorf("send shortcut %s: %w", name, err)
	}
	return decodeResponse(msg.Data)
}

// TabRemoved announces that tab was closed.
func (r *Remote) TabRemoved(tab tts.TabID) error {
	return r.publish(r.subjects.TabsRemoved(), TabEvent{TabID: tab})
}

// TabUpdated announces that tab changed.
func (r *Remote) TabUpdated(tab tts.TabID, urlChanged bool) error {
	return r.publish(r.subjects.TabsUpdated(), TabEvent{TabID: tab, URLChanged: urlChanged})
}

func (r *Remote) publish(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := r.conn.Publish(subject, data); err != nil {
		return err
	}
	return r.conn.Flush()
}

func decodeResponse(data []byte) (tts.Snapshot, error) {
	var resp tts.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return tts.Snapshot{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != "" {
		return tts.Snapshot{}, fmt.Errorf("%w: %s", ErrRemote, resp.Error)
	}
	if resp.State == nil {
		return tts.Snapshot{}, fmt.Errorf("%w: empty response", ErrRemote)
	}
	return *resp.State, nil
}

// Connect dials the bus at url.
func Connect(url, name string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name(name))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return conn, nil
}
