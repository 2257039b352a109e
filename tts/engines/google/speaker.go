package google

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// Cloud TTS returns 24 kHz MP3 unless asked otherwise.
const defaultSampleRate = beep.SampleRate(24000)

var speakerOnce sync.Once
var speakerErr error

// speakerSink plays MP3 clips on the beep speaker.
type speakerSink struct {
	rate beep.SampleRate

	mu     sync.Mutex
	ctrl   *beep.Ctrl
	stream beep.StreamSeekCloser
}

func newSpeakerSink(rate beep.SampleRate) (*speakerSink, error) {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(rate, rate.N(time.Second/10))
	})
	if speakerErr != nil {
		return nil, speakerErr
	}
	return &speakerSink{rate: rate}, nil
}

func (s *speakerSink) Play(data []byte, onDone func()) error {
	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}

	var src beep.Streamer = streamer
	if format.SampleRate != s.rate {
		src = beep.Resample(4, format.SampleRate, s.rate, streamer)
	}
	ctrl := &beep.Ctrl{Streamer: src}

	s.Stop()
	s.mu.Lock()
	s.ctrl, s.stream = ctrl, streamer
	s.mu.Unlock()

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		// Runs under the speaker lock.
		go s.finished(ctrl, onDone)
	})))
	return nil
}

func (s *speakerSink) finished(ctrl *beep.Ctrl, onDone func()) {
	s.mu.Lock()
	if s.ctrl != ctrl {
		s.mu.Unlock()
		return
	}
	_ = s.stream.Close()
	s.ctrl, s.stream = nil, nil
	s.mu.Unlock()

	if onDone != nil {
		onDone()
	}
}

func (s *speakerSink) Pause()  { s.setPaused(true) }
func (s *speakerSink) Resume() { s.setPaused(false) }

func (s *speakerSink) setPaused(paused bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = paused
	speaker.Unlock()
}

func (s *speakerSink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl == nil {
		return
	}
	speaker.Clear()
	_ = s.stream.Close()
	s.ctrl, s.stream = nil, nil
}

func (s *speakerSink) Close() error {
	s.Stop()
	return nil
}
