package session

import "github.com/voxloop/vox-core/core/events"

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

// newCallbackEventEmitter bridges internal session events onto the
// observer callbacks registered at orchestrate time. State and conversation
// callbacks are not driven from here; the loop fires those at the exact
// mutation points so observers never see stale snapshots.
func newCallbackEventEmitter(opts OrchestrateOptions) eventEmitter {
	return func(event events.Event) {
		switch typedEvent := event.(type) {
		case events.SpeechEnded:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(false)
			}
		case events.SpeechResumed:
			if opts.onSpeakingStateChanged != nil {
				opts.onSpeakingStateChanged(true)
			}
		case events.CaptureFinalized:
			if opts.onCaptureFinalized != nil {
				opts.onCaptureFinalized(typedEvent.Audio, typedEvent.MIMEType)
			}
		case events.TurnCompleted:
			if opts.onTranscription != nil && typedEvent.Transcription != "" {
				opts.onTranscription(typedEvent.Transcription)
			}
		case events.PlaybackFinished:
			if opts.onPlaybackFinished != nil {
				opts.onPlaybackFinished(typedEvent.Synthesized)
			}
		}
	}
}
