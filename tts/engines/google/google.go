// Package google speaks through Google Cloud Text-to-Speech. Audio is
// requested as MP3 and played with beep.
package google

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readaloud/tts"
	"github.com/dgnsrekt/readaloud/tts/engines/pipeline"
	"golang.org/x/time/rate"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

// Name is the engine name.
const Name = tts.EngineGoogle

// Speaking rate bounds accepted by the API.
const (
	minSpeakingRate = 0.25
	maxSpeakingRate = 4.0
)

// client is the part of the Cloud API the engine uses.
type client interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)
	ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest) (*texttospeechpb.ListVoicesResponse, error)
	Close() error
}

type apiClient struct {
	c *texttospeech.Client
}

func (a apiClient) SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	return a.c.SynthesizeSpeech(ctx, req)
}

func (a apiClient) ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest) (*texttospeechpb.ListVoicesResponse, error) {
	return a.c.ListVoices(ctx, req)
}

func (a apiClient) Close() error { return a.c.Close() }

// Engine speaks with Google Cloud Text-to-Speech.
type Engine struct {
	*pipeline.Engine
	synth *synthesizer
}

var _ tts.VoiceLister = (*Engine)(nil)

type synthesizer struct {
	client   client
	language string
	limiter  *rate.Limiter
}

// New creates a Google engine using Application Default Credentials. cache
// may be nil.
func New(ctx context.Context, cfg tts.GoogleConfig, cache pipeline.Cache, logger *log.Logger) (*Engine, error) {
	c, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tts.ErrEngineNotAvailable, err)
	}
	sink, err := newSpeakerSink(defaultSampleRate)
	if err != nil {
		_ = c.Close()
		return nil, tts.NewEngineError(Name, "open audio", err)
	}
	return newEngine(cfg, apiClient{c: c}, sink, cache, logger), nil
}

func newEngine(cfg tts.GoogleConfig, c client, sink pipeline.Sink, cache pipeline.Cache, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default().WithPrefix(Name)
	}
	s := &synthesizer{
		client:   c,
		language: cfg.LanguageCode,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}
	opts := []pipeline.Option{pipeline.WithTimeout(cfg.Timeout), pipeline.WithLogger(logger)}
	if cache != nil {
		opts = append(opts, pipeline.WithCache(cache))
	}
	return &Engine{Engine: pipeline.New(Name, s, &closingSink{Sink: sink, client: c}, opts...), synth: s}
}

// Synthesize requests MP3 audio for text.
func (s *synthesizer) Synthesize(ctx context.Context, text string, opts tts.SpeakOptions) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := s.client.SynthesizeSpeech(ctx, s.request(text, opts))
	if err != nil {
		return nil, err
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, errors.New("empty audio content")
	}
	return resp.GetAudioContent(), nil
}

func (s *synthesizer) request(text string, opts tts.SpeakOptions) *texttospeechpb.SynthesizeSpeechRequest {
	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding: texttospeechpb.AudioEncoding_MP3,
	}
	// Chirp voices reject speaking rate.
	if !strings.Contains(strings.ToLower(opts.Voice), "chirp") {
		audioCfg.SpeakingRate = speakingRate(opts.Rate)
	}

	return &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voiceLanguage(opts.Voice, s.language),
			Name:         opts.Voice,
		},
		AudioConfig: audioCfg,
	}
}

// Voices lists the voices for the configured language.
func (e *Engine) Voices(ctx context.Context) ([]tts.Voice, error) {
	resp, err := e.synth.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: e.synth.language})
	if err != nil {
		return nil, tts.NewEngineError(Name, "voices", err)
	}

	voices := make([]tts.Voice, 0, len(resp.GetVoices()))
	for _, v := range resp.GetVoices() {
		lang := e.synth.language
		if codes := v.GetLanguageCodes(); len(codes) > 0 {
			lang = codes[0]
		}
		voices = append(voices, tts.Voice{
			ID:       v.GetName(),
			Name:     v.GetName(),
			Language: lang,
			Gender:   strings.ToLower(v.GetSsmlGender().String()),
		})
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].ID < voices[j].ID })
	return voices, nil
}

func speakingRate(r float64) float64 {
	if r <= 0 {
		return 1
	}
	return min(max(r, minSpeakingRate), maxSpeakingRate)
}

// voiceLanguage derives the language from a voice name like en-GB-Wavenet-A.
func voiceLanguage(voice, fallback string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) == 3 && len(parts[0]) == 2 && len(parts[1]) == 2 {
		return parts[0] + "-" + parts[1]
	}
	return fallback
}

// closingSink closes the API client with the sink.
type closingSink struct {
	pipeline.Sink
	client client
}

func (s *closingSink) Close() error {
	return errors.Join(s.Sink.Close(), s.client.Close())
}
