package audio

import "errors"

// ErrDeviceUnavailable is returned when an audio device cannot be acquired,
// either because the platform does not support it or because access was
// denied.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// DeviceState is the lifecycle state of a capture device.
type DeviceState string

const (
	DeviceInactive  DeviceState = "inactive"
	DeviceRecording DeviceState = "recording"
	DevicePaused    DeviceState = "paused"
)
