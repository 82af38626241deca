package entities

import "strings"

// JobStatus is the lifecycle stage of a remote batch job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// ParseJobStatus maps a vendor status string onto a JobStatus.
// Anything that is neither completed nor failed counts as pending.
func ParseJobStatus(raw string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "complete", "done", "succeeded":
		return JobStatusCompleted
	case "failed", "failure", "error", "cancelled", "canceled":
		return JobStatusFailed
	default:
		return JobStatusPending
	}
}

// JobRequest is the fixed model configuration submitted with the audio
type JobRequest struct {
	Audio              string
	Language           string
	TranscriptionModel string
	Analyzers          []string
}

// Prediction is a vendor result tagged with the model that produced it
type Prediction struct {
	Model         string         `json:"model"`
	Transcription string         `json:"transcription,omitempty"`
	Fields        map[string]any `json:"-"`
}

// BatchJob is a snapshot of a remote analysis job
type BatchJob struct {
	ID          string
	Status      JobStatus
	Message     string
	Predictions []Prediction
}

// IsDone reports whether the job reached a terminal state
func (j *BatchJob) IsDone() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// Prediction returns the first prediction tagged with model
func (j *BatchJob) Prediction(model string) (Prediction, bool) {
	if j == nil {
		return Prediction{}, false
	}
	for _, p := range j.Predictions {
		if p.Model == model {
			return p, true
		}
	}
	return Prediction{}, false
}

// SynthesisRequest asks a vendor for a spoken reply
type SynthesisRequest struct {
	Transcription string
	ReplyText     string
	Voice         string
}

// SynthesisResult holds the vendor's generated reply
type SynthesisResult struct {
	Audio string
}
