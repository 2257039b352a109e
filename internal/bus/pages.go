package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgnsrekt/readaloud/tts"
	"github.com/nats-io/nats.go"
)

// ErrPage is returned when a page answers a text request with an error.
var ErrPage = errors.New("page error")

// Pages reaches pages that live on the other side of the bus. It implements
// tts.Highlighter and tts.TextSource.
type Pages struct {
	conn     *nats.Conn
	subjects Subjects
	timeout  time.Duration
}

// NewPages returns a Pages using conn. Text requests give up after timeout.
func NewPages(conn *nats.Conn, prefix string, timeout time.Duration) *Pages {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Pages{conn: conn, subjects: Subjects{Prefix: prefix}, timeout: timeout}
}

// Highlight publishes the chunk being spoken to the page.
func (p *Pages) Highlight(tab tts.TabID, text string) error {
	data, err := json.Marshal(HighlightMessage{Action: "highlight", Text: text})
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subjects.Highlight(tab), data)
}

// GetText asks the page for its readable text.
func (p *Pages) GetText(ctx context.Context, tab tts.TabID) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	data, err := json.Marshal(TextRequest{Action: "getText"})
	if err != nil {
		return "", err
	}
	msg, err := p.conn.RequestWithContext(ctx, p.subjects.GetText(tab), data)
	if err != nil {
		return "", fmt.Errorf("request text of tab %d: %w", tab, err)
	}

	var reply TextReply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return "", fmt.Errorf("decode text of tab %d: %w", tab, err)
	}
	if reply.Error != "" {
		return "", fmt.Errorf("%w: %s", ErrPage, reply.Error)
	}
	return reply.Text, nil
}
