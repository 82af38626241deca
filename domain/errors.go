package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPermission is returned when the platform denies microphone access
	ErrPermission = errors.New("microphone permission denied")
	// ErrInvalidState is returned when a recording is started while one is active
	ErrInvalidState = errors.New("recording already in progress")
	// ErrNoActiveRecording is returned when stopping without an active recording
	ErrNoActiveRecording = errors.New("no active recording")
	// ErrNotConfigured is returned when a vendor credential is missing
	ErrNotConfigured = errors.New("voice processing is not configured")
)

// SubmissionError reports a rejected batch job submission
type SubmissionError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("batch job submission failed: %v", e.Err)
	}
	return fmt.Sprintf("batch job submission failed: %d - %s", e.StatusCode, e.Body)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// TimeoutError reports a job that did not complete within the poll budget
type TimeoutError struct {
	JobID    string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for job %s results after %d attempts", e.JobID, e.Attempts)
}

// JobFailedError reports a job the vendor marked as failed
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("job %s failed", e.JobID)
	}
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Message)
}

// SynthesisError reports a failed spoken reply generation
type SynthesisError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SynthesisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reply synthesis failed: %v", e.Err)
	}
	return fmt.Sprintf("reply synthesis failed: %d - %s", e.StatusCode, e.Body)
}

func (e *SynthesisError) Unwrap() error { return e.Err }
