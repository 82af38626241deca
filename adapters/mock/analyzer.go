// Package mock provides offline stand-ins for the voice vendors.
package mock

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/domain/repositories"
)

const defaultTranscription = "I have been feeling a little stressed about work lately"

// AnalyzerConfig controls the canned results of the mock analyzer
type AnalyzerConfig struct {
	// CompleteAfter is the number of polls a job stays pending
	CompleteAfter      int
	Transcription      string
	TranscriptionModel string
	SentimentModel     string
}

// Analyzer pretends to be a batch analysis vendor
type Analyzer struct {
	cfg    AnalyzerConfig
	logger *zap.Logger

	mu   sync.Mutex
	jobs map[string]int
}

var _ repositories.BatchAnalyzer = (*Analyzer)(nil)

// NewAnalyzer creates a mock analyzer
func NewAnalyzer(cfg AnalyzerConfig, logger *zap.Logger) *Analyzer {
	if cfg.CompleteAfter <= 0 {
		cfg.CompleteAfter = 2
	}
	if cfg.Transcription == "" {
		cfg.Transcription = defaultTranscription
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = "whisper-large-v3"
	}
	if cfg.SentimentModel == "" {
		cfg.SentimentModel = "sentiment"
	}
	return &Analyzer{
		cfg:    cfg,
		logger: logger,
		jobs:   make(map[string]int),
	}
}

// SubmitJob registers a new pending job
func (a *Analyzer) SubmitJob(ctx context.Context, req entities.JobRequest) (string, error) {
	if req.Audio == "" {
		return "", errors.New("no audio in job request")
	}
	id := uuid.NewString()

	a.mu.Lock()
	a.jobs[id] = 0
	a.mu.Unlock()

	a.logger.Info("Mock batch job created", zap.String("jobID", id))
	return id, nil
}

// JobStatus reports pending until the job has been polled CompleteAfter times
func (a *Analyzer) JobStatus(ctx context.Context, jobID string) (*entities.BatchJob, error) {
	a.mu.Lock()
	polls, ok := a.jobs[jobID]
	if ok {
		polls++
		a.jobs[jobID] = polls
	}
	a.mu.Unlock()

	if !ok {
		return &entities.BatchJob{ID: jobID, Status: entities.JobStatusFailed, Message: "unknown job"}, nil
	}
	if polls < a.cfg.CompleteAfter {
		return &entities.BatchJob{ID: jobID, Status: entities.JobStatusPending}, nil
	}

	a.mu.Lock()
	delete(a.jobs, jobID)
	a.mu.Unlock()

	return &entities.BatchJob{
		ID:     jobID,
		Status: entities.JobStatusCompleted,
		Predictions: []entities.Prediction{
			{Model: a.cfg.TranscriptionModel, Transcription: a.cfg.Transcription},
			{
				Model: a.cfg.SentimentModel,
				Fields: map[string]any{
					"model":    a.cfg.SentimentModel,
					"polarity": "negative",
					"score":    0.35,
				},
			},
		},
	}, nil
}
