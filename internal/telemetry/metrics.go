package telemetry

import (
	"context"
	"errors"

	"github.com/dgnsrekt/readaloud/tts"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics counts controller activity. It implements tts.Observer.
type Metrics struct {
	commands metric.Int64Counter
	started  metric.Int64Counter
	finished metric.Int64Counter
	errors   metric.Int64Counter
	progress metric.Float64Histogram
}

var _ tts.Observer = (*Metrics)(nil)

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var m Metrics
	var err, e error

	m.commands, e = meter.Int64Counter("readaloud.commands",
		metric.WithDescription("Commands handled by the controller"))
	err = errors.Join(err, e)

	m.started, e = meter.Int64Counter("readaloud.utterances.started",
		metric.WithDescription("Chunks handed to the speech engine"))
	err = errors.Join(err, e)

	m.finished, e = meter.Int64Counter("readaloud.utterances.finished",
		metric.WithDescription("Chunk utterances by outcome"))
	err = errors.Join(err, e)

	m.errors, e = meter.Int64Counter("readaloud.playback.errors",
		metric.WithDescription("Utterances that failed in the engine"))
	err = errors.Join(err, e)

	m.progress, e = meter.Float64Histogram("readaloud.utterances.progress",
		metric.WithDescription("Position of the spoken chunk within its text, from 0 to 1"),
		metric.WithExplicitBucketBoundaries(0, 0.25, 0.5, 0.75, 1))
	err = errors.Join(err, e)

	if err != nil {
		return nil, err
	}
	return &m, nil
}

// CommandHandled counts a command and the state it left.
func (m *Metrics) CommandHandled(action string, state tts.PlaybackState) {
	m.commands.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("state", state.String()),
	))
}

// UtteranceStarted counts a chunk being spoken.
func (m *Metrics) UtteranceStarted(chunkIndex, chunkCount int) {
	ctx := context.Background()
	m.started.Add(ctx, 1)
	if chunkCount > 1 {
		m.progress.Record(ctx, float64(chunkIndex)/float64(chunkCount-1))
	} else {
		m.progress.Record(ctx, 1)
	}
}

// UtteranceFinished counts how an utterance ended.
func (m *Metrics) UtteranceFinished(outcome tts.EventType) {
	ctx := context.Background()
	m.finished.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome.String())))
	if outcome == tts.EventError {
		m.errors.Add(ctx, 1)
	}
}
