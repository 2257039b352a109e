package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// ErrClosed is returned by a closed Player.
var ErrClosed = errors.New("player is closed")

// Format describes signed 16-bit little-endian PCM.
type Format struct {
	SampleRate int
	Channels   int
}

// Duration returns the play time of n bytes.
func (f Format) Duration(n int) time.Duration {
	frames := n / (2 * f.Channels)
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// stream is the part of *oto.Player the Player uses.
type stream interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// device creates streams. It is the oto context in production.
type device interface {
	newStream(r io.Reader) stream
}

type otoDevice struct{ ctx *oto.Context }

func (d otoDevice) newStream(r io.Reader) stream { return d.ctx.NewPlayer(r) }

// oto allows a single context per process.
var (
	otoOnce   sync.Once
	otoCtx    *oto.Context
	otoFormat Format
	otoErr    error
)

func sharedDevice(format Format) (device, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			otoErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready
		otoCtx, otoFormat = ctx, format
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if format != otoFormat {
		return nil, fmt.Errorf("audio device already opened at %d Hz with %d channels",
			otoFormat.SampleRate, otoFormat.Channels)
	}
	return otoDevice{ctx: otoCtx}, nil
}

// Player plays one clip at a time.
type Player struct {
	dev    device
	format Format
	poll   time.Duration

	mu     sync.Mutex
	cur    *clip
	closed bool
}

type clip struct {
	s      stream
	data   []byte // must stay alive while oto reads it
	paused bool
	onDone func()
}

// Open returns a Player on the system audio device.
func Open(format Format) (*Player, error) {
	if format.SampleRate <= 0 || (format.Channels != 1 && format.Channels != 2) {
		return nil, fmt.Errorf("unsupported format %+v", format)
	}
	dev, err := sharedDevice(format)
	if err != nil {
		return nil, err
	}
	return newPlayer(dev, format, 20*time.Millisecond), nil
}

func newPlayer(dev device, format Format, poll time.Duration) *Player {
	return &Player{dev: dev, format: format, poll: poll}
}

// Format returns the player's PCM format.
func (p *Player) Format() Format {
	return p.format
}

// Play stops the current clip and starts pcm. onDone is called from another
// goroutine once pcm has been played to the end. It is not called for a clip
// that was stopped.
func (p *Player) Play(pcm []byte, onDone func()) error {
	if len(pcm) == 0 {
		return errors.New("audio data is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.stopLocked()

	data := make([]byte, len(pcm))
	copy(data, pcm)
	c := &clip{data: data, onDone: onDone}
	c.s = p.dev.newStream(bytes.NewReader(data))
	c.s.Play()
	p.cur = c

	go p.watch(c)
	return nil
}

// Pause holds the current clip.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cur != nil && !p.cur.paused {
		p.cur.s.Pause()
		p.cur.paused = true
	}
}

// Resume continues a paused clip.
func (p *Player) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cur != nil && p.cur.paused {
		p.cur.s.Play()
		p.cur.paused = false
	}
}

// Stop discards the current clip without calling its onDone.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

// Playing reports whether a clip is loaded and not paused.
func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cur != nil && !p.cur.paused
}

// Close stops playback. The shared device stays open.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	p.closed = true
	return nil
}

func (p *Player) stopLocked() {
	if p.cur == nil {
		return
	}
	p.cur.s.Pause()
	_ = p.cur.s.Close()
	p.cur = nil
}

// watch reports the end of c. oto has no completion callback, so the stream
// is polled until it drains.
func (p *Player) watch(c *clip) {
	ticker := time.NewTicker(p.poll)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if p.cur != c {
			p.mu.Unlock()
			return
		}
		if c.paused || c.s.IsPlaying() {
			p.mu.Unlock()
			continue
		}
		p.cur = nil
		_ = c.s.Close()
		p.mu.Unlock()

		if c.onDone != nil {
			c.onDone()
		}
		return
	}
}
