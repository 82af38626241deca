package entities

import "time"

// RecordingState models the capture lifecycle
type RecordingState string

const (
	RecordingStateIdle      RecordingState = "idle"
	RecordingStateRecording RecordingState = "recording"
	RecordingStateStopping  RecordingState = "stopping"
)

// AudioConstraints describes how the microphone should be opened
type AudioConstraints struct {
	SampleRate       int  `json:"sample_rate"`
	Channels         int  `json:"channels"`
	EchoCancellation bool `json:"echo_cancellation"`
	NoiseSuppression bool `json:"noise_suppression"`
	AutoGainControl  bool `json:"auto_gain_control"`
}

// RecordingStatus summarizes a recorder for callers and logs
type RecordingStatus struct {
	State     RecordingState `json:"state"`
	Chunks    int            `json:"chunks"`
	Bytes     int            `json:"bytes"`
	StartedAt *time.Time     `json:"started_at,omitempty"`
}
