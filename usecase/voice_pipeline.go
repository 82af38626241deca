package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/mindful/domain"
	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/domain/repositories"
	"github.com/satriahrh/mindful/internal/poll"
)

const (
	defaultTranscriptionModel = "whisper-large-v3"
	defaultSentimentModel     = "sentiment"
	defaultPollInterval       = time.Second
	defaultPollAttempts       = 30
	defaultRequestTimeout     = 45 * time.Second
	defaultSinkTimeout        = 5 * time.Second

	// FallbackReply is used whenever the spoken reply cannot be generated
	FallbackReply = "I understand. How can I help you further?"
)

// PipelineConfig holds the fixed model configuration and poll policy
type PipelineConfig struct {
	TranscriptionModel string
	SentimentModel     string
	Analyzers          []string
	PollInterval       time.Duration
	PollAttempts       int
	RequestTimeout     time.Duration
	FallbackReply      string
}

// DefaultPipelineConfig returns the production poll policy: 30 attempts, 1s apart
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		TranscriptionModel: defaultTranscriptionModel,
		SentimentModel:     defaultSentimentModel,
		Analyzers:          []string{"language", "prosody", "sentiment"},
		PollInterval:       defaultPollInterval,
		PollAttempts:       defaultPollAttempts,
		RequestTimeout:     defaultRequestTimeout,
		FallbackReply:      FallbackReply,
	}
}

func (c PipelineConfig) withDefaults() PipelineConfig {
	def := DefaultPipelineConfig()
	if c.TranscriptionModel == "" {
		c.TranscriptionModel = def.TranscriptionModel
	}
	if c.SentimentModel == "" {
		c.SentimentModel = def.SentimentModel
	}
	if c.Analyzers == nil {
		c.Analyzers = def.Analyzers
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.PollAttempts <= 0 {
		c.PollAttempts = def.PollAttempts
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = def.RequestTimeout
	}
	if c.FallbackReply == "" {
		c.FallbackReply = def.FallbackReply
	}
	return c
}

// VoicePipeline turns an encoded recording into transcription, sentiment and a reply
type VoicePipeline struct {
	analyzer    repositories.BatchAnalyzer
	synthesizer repositories.ReplySynthesizer
	composer    *ResponseComposer
	sink        repositories.TranscriptSink
	cfg         PipelineConfig
	wait        func(ctx context.Context, d time.Duration) error
	logger      *zap.Logger
}

// PipelineOption customizes a VoicePipeline
type PipelineOption func(*VoicePipeline)

// WithTranscriptSink forwards successful transcriptions to sink
func WithTranscriptSink(sink repositories.TranscriptSink) PipelineOption {
	return func(p *VoicePipeline) { p.sink = sink }
}

// WithWaitFunc replaces the wait used between poll attempts
func WithWaitFunc(wait func(ctx context.Context, d time.Duration) error) PipelineOption {
	return func(p *VoicePipeline) { p.wait = wait }
}

// NewVoicePipeline creates a new voice pipeline. A nil synthesizer disables
// spoken replies; the composed text is returned on its own.
func NewVoicePipeline(
	analyzer repositories.BatchAnalyzer,
	synthesizer repositories.ReplySynthesizer,
	composer *ResponseComposer,
	cfg PipelineConfig,
	logger *zap.Logger,
	opts ...PipelineOption,
) *VoicePipeline {
	if composer == nil {
		composer = NewResponseComposer()
	}
	p := &VoicePipeline{
		analyzer:    analyzer,
		synthesizer: synthesizer,
		composer:    composer,
		cfg:         cfg.withDefaults(),
		wait:        poll.Sleep,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the effective configuration
func (p *VoicePipeline) Config() PipelineConfig {
	return p.cfg
}

// Process runs one voice interaction under a fresh session identifier
func (p *VoicePipeline) Process(ctx context.Context, req entities.VoiceRequest) entities.VoiceResult {
	return p.ProcessSession(ctx, uuid.NewString(), req)
}

// ProcessSession runs one voice interaction. Submission and polling failures
// produce an unsuccessful result; synthesis failures fall back to a fixed reply.
func (p *VoicePipeline) ProcessSession(ctx context.Context, sessionID string, req entities.VoiceRequest) entities.VoiceResult {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return entities.FailedResult(err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
	defer cancel()

	logger := p.logger.With(zap.String("sessionID", sessionID))
	logger.Info("Processing voice request",
		zap.Int("audioLength", len(req.Audio)),
		zap.String("model", req.Model),
		zap.String("voice", req.Voice),
		zap.String("language", req.Language))

	started := time.Now()

	jobID, err := p.submit(ctx, req)
	if err != nil {
		logger.Error("Batch job submission failed", zap.Error(err))
		return entities.FailedResult(err)
	}
	logger = logger.With(zap.String("jobID", jobID))
	logger.Info("Batch job created")

	job, err := p.awaitJob(ctx, jobID, logger)
	if err != nil {
		logger.Error("Batch job did not complete", zap.Error(err))
		return entities.FailedResult(err)
	}

	transcription := p.extractTranscription(job)
	sentiment := p.extractSentiment(job)
	logger.Info("Extracted transcription",
		zap.String("preview", preview(transcription)),
		zap.Bool("hasSentiment", len(sentiment) > 0))

	replyText := p.composer.Compose(transcription, sentiment)
	replyAudio, replyText := p.synthesize(ctx, transcription, replyText, req.Voice, logger)

	p.forward(ctx, sessionID, transcription, logger)

	logger.Info("Voice request completed",
		zap.Duration("elapsed", time.Since(started)),
		zap.Bool("hasReplyAudio", replyAudio != ""))

	return entities.VoiceResult{
		Success:       true,
		Transcription: transcription,
		Sentiment:     sentiment,
		ReplyText:     replyText,
		ReplyAudio:    replyAudio,
	}
}

func (p *VoicePipeline) submit(ctx context.Context, req entities.VoiceRequest) (string, error) {
	jobID, err := p.analyzer.SubmitJob(ctx, entities.JobRequest{
		Audio:              req.Audio,
		Language:           req.Language,
		TranscriptionModel: p.cfg.TranscriptionModel,
		Analyzers:          p.cfg.Analyzers,
	})
	if err != nil {
		var subErr *domain.SubmissionError
		if errors.As(err, &subErr) {
			return "", err
		}
		return "", &domain.SubmissionError{Err: err}
	}
	if jobID == "" {
		return "", &domain.SubmissionError{Err: errors.New("vendor returned no job identifier")}
	}
	return jobID, nil
}

// awaitJob polls until the job completes, fails, or the attempt ceiling is reached
func (p *VoicePipeline) awaitJob(ctx context.Context, jobID string, logger *zap.Logger) (*entities.BatchJob, error) {
	policy := poll.Policy{
		Interval:    p.cfg.PollInterval,
		MaxAttempts: p.cfg.PollAttempts,
		Wait:        p.wait,
	}

	job, attempts, err := poll.Until(ctx, policy, func(ctx context.Context, attempt int) (*entities.BatchJob, bool, error) {
		job, err := p.analyzer.JobStatus(ctx, jobID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, false, ctxErr
			}
			logger.Warn("Poll request failed", zap.Int("attempt", attempt), zap.Error(err))
			return nil, false, nil
		}

		logger.Debug("Poll attempt", zap.Int("attempt", attempt), zap.String("status", string(job.Status)))

		switch job.Status {
		case entities.JobStatusCompleted:
			return job, true, nil
		case entities.JobStatusFailed:
			return nil, false, &domain.JobFailedError{JobID: jobID, Message: job.Message}
		default:
			return nil, false, nil
		}
	})

	switch {
	case err == nil:
		logger.Info("Batch job completed", zap.Int("attempts", attempts))
		return job, nil
	case errors.Is(err, poll.ErrExhausted):
		return nil, &domain.TimeoutError{JobID: jobID, Attempts: attempts}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("waiting for job %s: %w", jobID, err)
	default:
		return nil, err
	}
}

func (p *VoicePipeline) extractTranscription(job *entities.BatchJob) string {
	prediction, ok := job.Prediction(p.cfg.TranscriptionModel)
	if !ok {
		p.logger.Warn("No transcription prediction in job results",
			zap.String("jobID", job.ID),
			zap.String("model", p.cfg.TranscriptionModel))
		return ""
	}
	return prediction.Transcription
}

func (p *VoicePipeline) extractSentiment(job *entities.BatchJob) map[string]any {
	prediction, ok := job.Prediction(p.cfg.SentimentModel)
	if !ok || prediction.Fields == nil {
		return map[string]any{}
	}
	sentiment := make(map[string]any, len(prediction.Fields))
	for k, v := range prediction.Fields {
		sentiment[k] = v
	}
	return sentiment
}

// synthesize returns the reply audio and the reply text to report
func (p *VoicePipeline) synthesize(ctx context.Context, transcription, replyText, voice string, logger *zap.Logger) (string, string) {
	if p.synthesizer == nil {
		return "", replyText
	}

	result, err := p.synthesizer.SynthesizeReply(ctx, entities.SynthesisRequest{
		Transcription: transcription,
		ReplyText:     replyText,
		Voice:         voice,
	})
	if err != nil {
		fields := []zap.Field{zap.Error(err)}
		var synthErr *domain.SynthesisError
		if errors.As(err, &synthErr) && synthErr.StatusCode != 0 {
			fields = append(fields,
				zap.Int("statusCode", synthErr.StatusCode),
				zap.String("response", synthErr.Body))
		}
		logger.Warn("Reply synthesis failed, using fallback reply", fields...)
		return "", p.cfg.FallbackReply
	}

	return result.Audio, replyText
}

func (p *VoicePipeline) forward(ctx context.Context, sessionID, transcription string, logger *zap.Logger) {
	if p.sink == nil || transcription == "" {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, defaultSinkTimeout)
	defer cancel()

	if err := p.sink.StoreTranscript(ctx, sessionID, transcription); err != nil {
		logger.Warn("Failed to forward transcript", zap.Error(err))
	}
}

func preview(text string) string {
	const limit = 50
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
