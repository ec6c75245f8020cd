package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voxloop/vox-core/core/audio"
	"github.com/voxloop/vox-core/core/events"
	"github.com/voxloop/vox-core/core/speech"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	maxPlaybackDuration = 2 * time.Minute

	// Simulated-wait bounds when no speech output is configured at all, so
	// the session cannot hang in the speaking state.
	simulatedWaitPerWord = 300 * time.Millisecond
	simulatedWaitFloor   = 500 * time.Millisecond
	simulatedWaitCeiling = 4 * time.Second
)

// responsePlayer renders one turn result audibly with deterministic
// fallback: backend audio first, speech synthesis of the response text when
// audio is absent or fails, and a bounded simulated wait when no speech
// output exists either. Exactly one playback-finished event is emitted per
// invocation on every path; playback failures are swallowed into the
// fallback and never surface as session errors.
type responsePlayer struct {
	output      AudioOutput
	synthesizer speech.Synthesizer

	emitEvent eventEmitter
}

func newResponsePlayer() *responsePlayer {
	return &responsePlayer{emitEvent: noopEventEmitter}
}

func (p *responsePlayer) setOutput(output AudioOutput) {
	if p != nil {
		p.output = output
	}
}

func (p *responsePlayer) setEventEmitter(emitEvent eventEmitter) {
	if p == nil {
		return
	}

	if emitEvent != nil {
		p.emitEvent = emitEvent
	} else {
		p.emitEvent = noopEventEmitter
	}
}

// play blocks until the reply has been rendered, then emits the single done
// signal.
func (p *responsePlayer) play(ctx context.Context, result TurnResult) {
	ctx, span := tracer.Start(ctx, "play response")
	defer span.End()

	done := oneShotGate{}
	finish := func(synthesized bool) {
		if done.Fire() {
			p.emitEvent(events.NewPlaybackFinished(synthesized))
		}
	}

	if len(result.ResponseAudio) > 0 && p.output != nil {
		err := p.playAudio(ctx, result.ResponseAudio)
		if err == nil {
			finish(false)
			return
		}

		// Recovered internally: fall back to speech output.
		span.AddEvent("playback failed, falling back to speech output")
		span.RecordError(err)
	}

	p.speakFallback(ctx, result.ResponseText, span)
	finish(true)
}

func (p *responsePlayer) playAudio(ctx context.Context, responseAudio []byte) error {
	if err := p.output.SendAudio(responseAudio); err != nil {
		return fmt.Errorf("failed to send response audio to output: %w", err)
	}

	if drainer, ok := p.output.(interface{ AwaitDrain() error }); ok {
		if err := drainer.AwaitDrain(); err != nil {
			return fmt.Errorf("failed to drain response audio: %w", err)
		}
		return nil
	}

	p.waitFor(ctx, playbackDuration(p.output.EncodingInfo(), len(responseAudio)))
	return nil
}

func (p *responsePlayer) speakFallback(ctx context.Context, text string, span trace.Span) {
	if p.synthesizer == nil {
		p.waitFor(ctx, simulatedWait(text))
		return
	}

	ended := make(chan struct{}, 1)
	signalEnded := func() {
		select {
		case ended <- struct{}{}:
		default:
		}
	}

	opts := []speech.Option{
		speech.WithEndCallback(signalEnded),
		speech.WithErrorCallback(func(err error) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}),
	}
	if p.output != nil {
		opts = append(opts,
			speech.WithEncodingInfo(p.output.EncodingInfo()),
			speech.WithAudioCallback(func(frame []byte) {
				if err := p.output.SendAudio(frame); err != nil {
					span.RecordError(fmt.Errorf("failed to send synthesized audio to output: %w", err))
				}
			}),
		)
	}

	controller, err := p.synthesizer.Speak(ctx, text, opts...)
	if err != nil {
		// Last resort: the speech device itself is unavailable; hold the
		// speaking state for a bounded moment instead of hanging or
		// surfacing an error.
		span.RecordError(fmt.Errorf("failed to start speech output: %w", err))
		p.waitFor(ctx, simulatedWait(text))
		return
	}

	select {
	case <-ended:
	case <-ctx.Done():
		_ = controller.Stop()
	case <-time.After(maxPlaybackDuration):
		_ = controller.Stop()
	}
}

func (p *responsePlayer) waitFor(ctx context.Context, duration time.Duration) {
	if duration <= 0 {
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(duration):
	}
}

func playbackDuration(encodingInfo audio.EncodingInfo, audioBytes int) time.Duration {
	bytesPerSecond := encodingInfo.BytesPerSecond()
	if bytesPerSecond <= 0 {
		bytesPerSecond = audio.GetDefaultEncodingInfo().BytesPerSecond()
	}

	duration := time.Duration(audioBytes) * time.Second / time.Duration(bytesPerSecond)
	return min(duration, maxPlaybackDuration)
}

func simulatedWait(text string) time.Duration {
	wait := time.Duration(len(strings.Fields(text))) * simulatedWaitPerWord
	return min(max(wait, simulatedWaitFloor), simulatedWaitCeiling)
}
