package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/voxloop/vox-core/core/backend"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// turnDispatcher turns one utterance into one turn result via the backend.
// Audio utterances take the transcribe-then-respond pipeline, text utterances
// go straight to respond. The dispatcher never mutates conversation state;
// the caller applies the result to history only after success.
type turnDispatcher struct {
	transcriber    backend.Transcriber
	responder      backend.Responder
	respondOptions []backend.RespondOption
}

func newTurnDispatcher() *turnDispatcher {
	return &turnDispatcher{}
}

// dispatch reports exactly one success or one failure per utterance.
func (d *turnDispatcher) dispatch(ctx context.Context, utterance Utterance, history []backend.Exchange) (*TurnResult, error) {
	ctx, span := tracer.Start(ctx, "dispatch turn")
	defer span.End()
	span.SetAttributes(
		attribute.Bool("turn.audio", utterance.IsAudio()),
		attribute.Int("turn.history_length", len(history)),
	)

	// A finalized capture with no audio at all can never transcribe to
	// anything; short-circuit it to the same failure.
	if utterance.MIMEType != "" && !utterance.IsAudio() {
		span.SetStatus(codes.Error, ErrEmptyTranscription.Error())
		return nil, ErrEmptyTranscription
	}

	result := TurnResult{}

	text := utterance.Text
	if utterance.IsAudio() {
		transcription, err := d.transcribe(ctx, utterance)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}

		result.Transcription = transcription
		text = transcription
	}

	if d.responder == nil {
		span.SetStatus(codes.Error, ErrNoResponder.Error())
		return nil, ErrNoResponder
	}

	reply, err := d.responder.Respond(ctx, text, history, d.respondOptions...)
	if err != nil {
		err = fmt.Errorf("failed to request response: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result.ResponseText = reply.Text
	result.ResponseAudio = reply.Audio
	return &result, nil
}

func (d *turnDispatcher) transcribe(ctx context.Context, utterance Utterance) (string, error) {
	if d.transcriber == nil {
		return "", ErrNoTranscriber
	}

	transcription, err := d.transcriber.Transcribe(ctx, utterance.Audio, utterance.MIMEType)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe utterance: %w", err)
	}

	transcription = strings.TrimSpace(transcription)
	if transcription == "" {
		return "", ErrEmptyTranscription
	}

	return transcription, nil
}
