package stt

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"

	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/domain/repositories"
	"github.com/satriahrh/mindful/internal/audio"
)

const (
	defaultEncoding        = "LINEAR16"
	defaultSampleRate      = 16000
	defaultPredictionModel = "whisper-large-v3"
)

// GoogleConfig configures the Google Cloud long-running recognizer.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS as usual.
type GoogleConfig struct {
	Encoding        string
	SampleRate      int
	PredictionModel string // tag the pipeline looks the transcription up by
}

// NewGoogleConfigFromEnv reads GOOGLE_STT_ENCODING and GOOGLE_STT_SAMPLE_RATE
func NewGoogleConfigFromEnv() GoogleConfig {
	config := GoogleConfig{Encoding: os.Getenv("GOOGLE_STT_ENCODING")}
	if rate, err := strconv.Atoi(os.Getenv("GOOGLE_STT_SAMPLE_RATE")); err == nil && rate > 0 {
		config.SampleRate = rate
	}
	return config
}

// GoogleBatchAnalyzer submits clips as Google long-running recognize
// operations. It yields a transcription prediction only; sentiment stays empty.
type GoogleBatchAnalyzer struct {
	client          *speech.Client
	encoding        speechpb.RecognitionConfig_AudioEncoding
	sampleRate      int
	predictionModel string
	logger          *zap.Logger

	mu        sync.Mutex
	jobModels map[string]string
}

var _ repositories.BatchAnalyzer = (*GoogleBatchAnalyzer)(nil)

// NewGoogleBatchAnalyzer creates the speech client
func NewGoogleBatchAnalyzer(ctx context.Context, config GoogleConfig, logger *zap.Logger) (*GoogleBatchAnalyzer, error) {
	if config.Encoding == "" {
		config.Encoding = defaultEncoding
	}
	if config.SampleRate == 0 {
		config.SampleRate = defaultSampleRate
	}
	if config.PredictionModel == "" {
		config.PredictionModel = defaultPredictionModel
	}

	encoding, err := getAudioEncoding(config.Encoding)
	if err != nil {
		return nil, err
	}

	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech client: %w", err)
	}

	logger.Info("Google batch analyzer ready",
		zap.String("encoding", config.Encoding),
		zap.Int("sampleRate", config.SampleRate))

	return &GoogleBatchAnalyzer{
		client:          client,
		encoding:        encoding,
		sampleRate:      config.SampleRate,
		predictionModel: config.PredictionModel,
		logger:          logger,
		jobModels:       make(map[string]string),
	}, nil
}

// SubmitJob starts a long-running recognition and returns the operation name as job ID
func (g *GoogleBatchAnalyzer) SubmitJob(ctx context.Context, req entities.JobRequest) (string, error) {
	content, err := audio.DecodePayload(req.Audio)
	if err != nil {
		return "", err
	}

	op, err := g.client.LongRunningRecognize(ctx, &speechpb.LongRunningRecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.encoding,
			SampleRateHertz:            int32(g.sampleRate),
			LanguageCode:               req.Language,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: content},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to start long running recognize: %w", err)
	}

	g.trackJob(op.Name(), req.TranscriptionModel)
	g.logger.Debug("Long running recognize started",
		zap.String("operation", op.Name()),
		zap.String("model", req.TranscriptionModel))
	return op.Name(), nil
}

// JobStatus polls the operation once
func (g *GoogleBatchAnalyzer) JobStatus(ctx context.Context, jobID string) (*entities.BatchJob, error) {
	op := g.client.LongRunningRecognizeOperation(jobID)
	resp, err := op.Poll(ctx)
	if err != nil {
		if op.Done() {
			g.forgetJob(jobID)
			return &entities.BatchJob{ID: jobID, Status: entities.JobStatusFailed, Message: err.Error()}, nil
		}
		return nil, fmt.Errorf("failed to poll operation: %w", err)
	}
	if !op.Done() || resp == nil {
		return &entities.BatchJob{ID: jobID, Status: entities.JobStatusPending}, nil
	}
	return responseToJob(jobID, g.forgetJob(jobID), resp), nil
}

// trackJob remembers the transcription model a job was submitted with, so the
// prediction is tagged with the model the caller will look it up by
func (g *GoogleBatchAnalyzer) trackJob(jobID, model string) {
	if model == "" {
		return
	}
	g.mu.Lock()
	if g.jobModels == nil {
		g.jobModels = make(map[string]string)
	}
	g.jobModels[jobID] = model
	g.mu.Unlock()
}

// forgetJob returns the model tag for jobID and drops it. Jobs submitted
// elsewhere fall back to the configured prediction model.
func (g *GoogleBatchAnalyzer) forgetJob(jobID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	model, ok := g.jobModels[jobID]
	if !ok {
		return g.predictionModel
	}
	delete(g.jobModels, jobID)
	return model
}

// Close releases the underlying gRPC connection
func (g *GoogleBatchAnalyzer) Close() error {
	return g.client.Close()
}

// responseToJob joins the best alternative of every final result into one
// transcription tagged with model
func responseToJob(jobID, model string, resp *speechpb.LongRunningRecognizeResponse) *entities.BatchJob {
	var parts []string
	for _, result := range resp.GetResults() {
		if alts := result.GetAlternatives(); len(alts) > 0 {
			if text := strings.TrimSpace(alts[0].GetTranscript()); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return &entities.BatchJob{
		ID:     jobID,
		Status: entities.JobStatusCompleted,
		Predictions: []entities.Prediction{
			{Model: model, Transcription: strings.Join(parts, " ")},
		},
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "WAV", "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
