package events

const (
	// KindSilenceGraceElapsed identifies the grace delay after a silence edge.
	KindSilenceGraceElapsed Kind = "timer.silence_grace_elapsed"
	// KindRecordingCeilingElapsed identifies the hard recording ceiling.
	KindRecordingCeilingElapsed Kind = "timer.recording_ceiling_elapsed"
	// KindErrorDisplayElapsed identifies the end of the error display window.
	KindErrorDisplayElapsed Kind = "timer.error_display_elapsed"
)

// SilenceGraceElapsed marks the end of the short grace window between a
// speech-ended edge and the automatic capture stop.
type SilenceGraceElapsed struct {
	Base
	Generation uint64
}

// NewSilenceGraceElapsed creates a silence grace elapsed event.
func NewSilenceGraceElapsed(generation uint64) SilenceGraceElapsed {
	return SilenceGraceElapsed{Base: NewBase(KindSilenceGraceElapsed), Generation: generation}
}

// RecordingCeilingElapsed marks the hard ceiling that forces an automatic
// stop of a recording the user never ended.
type RecordingCeilingElapsed struct {
	Base
	Generation uint64
}

// NewRecordingCeilingElapsed creates a recording ceiling elapsed event.
func NewRecordingCeilingElapsed(generation uint64) RecordingCeilingElapsed {
	return RecordingCeilingElapsed{Base: NewBase(KindRecordingCeilingElapsed), Generation: generation}
}

// ErrorDisplayElapsed marks the end of the bounded error display window
// after which the session self-heals back to idle.
type ErrorDisplayElapsed struct {
	Base
	Generation uint64
}

// NewErrorDisplayElapsed creates an error display elapsed event.
func NewErrorDisplayElapsed(generation uint64) ErrorDisplayElapsed {
	return ErrorDisplayElapsed{Base: NewBase(KindErrorDisplayElapsed), Generation: generation}
}
