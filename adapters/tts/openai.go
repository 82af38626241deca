package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/satriahrh/mindful/domain"
	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/domain/repositories"
	"github.com/satriahrh/mindful/internal/httpx"
)

const defaultOpenAIModel = openai.SpeechModelGPT4oMiniTTS

// OpenAIConfig configures the OpenAI speech synthesizer
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Instructions string
	ProxyAddr    string
}

// NewOpenAIConfigFromEnv reads OPENAI_API_KEY, OPENAI_BASE_URL, OPENAI_TTS_MODEL and OPENAI_TTS_INSTRUCTIONS
func NewOpenAIConfigFromEnv() OpenAIConfig {
	return OpenAIConfig{
		APIKey:       os.Getenv("OPENAI_API_KEY"),
		BaseURL:      os.Getenv("OPENAI_BASE_URL"),
		Model:        os.Getenv("OPENAI_TTS_MODEL"),
		Instructions: os.Getenv("OPENAI_TTS_INSTRUCTIONS"),
	}
}

// OpenAISynthesizer speaks the reply text with the OpenAI speech endpoint.
// Its voice names match the request voice catalogue one to one.
type OpenAISynthesizer struct {
	client       openai.Client
	model        string
	instructions string
	logger       *zap.Logger
}

var _ repositories.ReplySynthesizer = (*OpenAISynthesizer)(nil)

// NewOpenAISynthesizer creates a new OpenAI speech synthesizer
func NewOpenAISynthesizer(config OpenAIConfig, logger *zap.Logger) (*OpenAISynthesizer, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required: %w", domain.ErrNotConfigured)
	}

	httpClient, err := httpx.NewClient(defaultTimeout, config.ProxyAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai http client: %w", err)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	model := config.Model
	if model == "" {
		model = string(defaultOpenAIModel)
		logger.Info("Using default speech model", zap.String("model", model))
	}

	return &OpenAISynthesizer{
		client:       openai.NewClient(opts...),
		model:        model,
		instructions: config.Instructions,
		logger:       logger,
	}, nil
}

// SynthesizeReply renders the reply text as mp3 speech in the requested voice
func (o *OpenAISynthesizer) SynthesizeReply(ctx context.Context, req entities.SynthesisRequest) (entities.SynthesisResult, error) {
	text := strings.TrimSpace(req.ReplyText)
	if text == "" {
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: fmt.Errorf("text cannot be empty")}
	}

	params := openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.model),
		Voice:          openai.AudioSpeechNewParamsVoice(req.Voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	}
	if o.instructions != "" {
		params.Instructions = openai.String(o.instructions)
	}

	resp, err := o.client.Audio.Speech.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return entities.SynthesisResult{}, &domain.SynthesisError{StatusCode: apiErr.StatusCode, Body: apiErr.RawJSON()}
		}
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: err}
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: fmt.Errorf("error reading speech body: %w", err)}
	}

	o.logger.Info("Received speech from OpenAI",
		zap.String("voice", req.Voice),
		zap.Int("totalBytes", len(audio)))
	return entities.SynthesisResult{Audio: dataURL("audio/mpeg", audio)}, nil
}
