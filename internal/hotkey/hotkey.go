// Package hotkey registers a system-wide shortcut that toggles narration.
//
// On macOS the hotkey event loop must run on the main thread.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.design/x/hotkey"
)

// Default is the shortcut used when none is configured.
const Default = "ctrl+shift+space"

var (
	ErrEmpty       = errors.New("empty hotkey")
	ErrNoKey       = errors.New("no key specified")
	ErrMultipleKey = errors.New("multiple keys specified")
	ErrUnknownKey  = errors.New("unknown key")
)

// Combo is a parsed shortcut.
type Combo struct {
	Mods []hotkey.Modifier
	Key  hotkey.Key
}

// binding is the registered shortcut. *hotkey.Hotkey implements it.
type binding interface {
	Register() error
	Unregister() error
	Keydown() <-chan hotkey.Event
}

func newHotkey(c Combo) binding {
	return hotkey.New(c.Mods, c.Key)
}

// Listener calls a function every time its shortcut is pressed.
type Listener struct {
	combo   string
	onPress func()
	logger  *log.Logger
	bind    func(Combo) binding

	mu     sync.Mutex
	hk     binding
	cancel context.CancelFunc
	done   chan struct{}
}

// NewListener returns a listener for combo, such as "ctrl+shift+space".
func NewListener(combo string, onPress func(), logger *log.Logger) *Listener {
	if logger == nil {
		logger = log.Default()
	}
	if combo == "" {
		combo = Default
	}
	return &Listener{
		combo:   combo,
		onPress: onPress,
		logger:  logger.WithPrefix("hotkey"),
		bind:    newHotkey,
	}
}

// Start registers the shortcut and listens until ctx is done or Stop is
// called.
func (l *Listener) Start(ctx context.Context) error {
	combo, err := Parse(l.combo)
	if err != nil {
		return fmt.Errorf("invalid hotkey %q: %w", l.combo, err)
	}

	hk := l.bind(combo)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("failed to register hotkey %q: %w", l.combo, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	l.mu.Lock()
	l.hk, l.cancel, l.done = hk, cancel, done
	l.mu.Unlock()

	l.logger.Info("registered", "hotkey", l.combo)

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-hk.Keydown():
				if !ok {
					return
				}
				l.logger.Debug("pressed", "hotkey", l.combo)
				if l.onPress != nil {
					l.onPress()
				}
			}
		}
	}()

	return nil
}

// Stop unregisters the shortcut and waits for the listener to exit.
func (l *Listener) Stop() {
	l.mu.Lock()
	hk, cancel, done := l.hk, l.cancel, l.done
	l.hk, l.cancel, l.done = nil, nil, nil
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if err := hk.Unregister(); err != nil {
		l.logger.Debug("unregister", "err", err)
	}
	<-done
}

// Parse parses a shortcut like "ctrl+shift+space".
func Parse(s string) (Combo, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Combo{}, ErrEmpty
	}

	var c Combo
	var keyFound bool
	for _, part := range strings.Split(s, "+") {
		part = strings.TrimSpace(part)
		switch part {
		case "ctrl", "control":
			c.Mods = append(c.Mods, hotkey.ModCtrl)
		case "shift":
			c.Mods = append(c.Mods, hotkey.ModShift)
		case "alt", "option":
			c.Mods = append(c.Mods, modAlt())
		case "cmd", "command", "super", "win":
			c.Mods = append(c.Mods, modSuper())
		default:
			if keyFound {
				return Combo{}, ErrMultipleKey
			}
			k, ok := keys[part]
			if !ok {
				return Combo{}, fmt.Errorf("%w: %q", ErrUnknownKey, part)
			}
			c.Key = k
			keyFound = true
		}
	}

	if !keyFound {
		return Combo{}, ErrNoKey
	}
	return c, nil
}
