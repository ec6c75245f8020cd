package events

const (
	// KindCaptureStarted identifies the start of an audio capture attempt.
	KindCaptureStarted Kind = "capture.started"
	// KindCaptureFinalized identifies a capture finalized into one utterance blob.
	KindCaptureFinalized Kind = "capture.finalized"
	// KindCaptureFailed identifies a capture attempt that failed.
	KindCaptureFailed Kind = "capture.failed"
)

// CaptureStarted marks when the capture device begins producing chunks.
type CaptureStarted struct{ Base }

// NewCaptureStarted creates a capture started event.
func NewCaptureStarted() CaptureStarted {
	return CaptureStarted{Base: NewBase(KindCaptureStarted)}
}

// CaptureFinalized carries the finalized audio blob of one recording attempt.
type CaptureFinalized struct {
	Base
	Audio    []byte
	MIMEType string
}

// NewCaptureFinalized creates a capture finalized event.
func NewCaptureFinalized(audio []byte, mimeType string) CaptureFinalized {
	return CaptureFinalized{Base: NewBase(KindCaptureFinalized), Audio: audio, MIMEType: mimeType}
}

// CaptureFailed carries the error that ended a capture attempt.
type CaptureFailed struct {
	Base
	Err error
}

// NewCaptureFailed creates a capture failed event.
func NewCaptureFailed(err error) CaptureFailed {
	return CaptureFailed{Base: NewBase(KindCaptureFailed), Err: err}
}
