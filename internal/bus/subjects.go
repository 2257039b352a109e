package bus

import (
	"fmt"

	"github.com/dgnsrekt/readaloud/tts"
)

// Subjects builds the subject names under a prefix.
type Subjects struct {
	Prefix string
}

// Command carries tts.Request messages and replies with tts.Response.
func (s Subjects) Command() string { return s.Prefix + ".command" }

// Shortcut carries keyboard shortcut names.
func (s Subjects) Shortcut() string { return s.Prefix + ".shortcut" }

// TabsRemoved announces closed pages.
func (s Subjects) TabsRemoved() string { return s.Prefix + ".tabs.removed" }

// TabsUpdated announces page navigation.
func (s Subjects) TabsUpdated() string { return s.Prefix + ".tabs.updated" }

// Highlight is where highlight notifications for tab are published.
func (s Subjects) Highlight(tab tts.TabID) string {
	return fmt.Sprintf("%s.tab.%d.highlight", s.Prefix, tab)
}

// GetText is where pages answer text extraction requests.
func (s Subjects) GetText(tab tts.TabID) string {
	return fmt.Sprintf("%s.tab.%d.getText", s.Prefix, tab)
}

// TabEvent is the payload of the tab lifecycle subjects.
type TabEvent struct {
	TabID      tts.TabID `json:"tabId"`
	URLChanged bool      `json:"urlChanged,omitempty"`
}

// HighlightMessage is published to a page when the spoken chunk changes.
type HighlightMessage struct {
	Action string `json:"action"`
	Text   string `json:"text"`
}

// TextRequest asks a page for its readable text.
type TextRequest struct {
	Action string `json:"action"`
}

// TextReply is a page's answer to a TextRequest.
type TextReply struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}
