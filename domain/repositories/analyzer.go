package repositories

import (
	"context"

	"github.com/satriahrh/mindful/domain/entities"
)

// BatchAnalyzer abstracts an asynchronous audio analysis vendor
type BatchAnalyzer interface {
	// SubmitJob creates a remote job for the audio and returns its identifier
	SubmitJob(ctx context.Context, req entities.JobRequest) (string, error)
	// JobStatus fetches the current snapshot of a job
	JobStatus(ctx context.Context, jobID string) (*entities.BatchJob, error)
}
