package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/mindful/domain"
	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/domain/repositories"
	"github.com/satriahrh/mindful/internal/httpx"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "21m00Tcm4TlvDq8ikWAM" // Rachel voice
	defaultOutputFormat = "mp3_44100_128"
	defaultModelID      = "eleven_multilingual_v2"
	defaultStability    = 0.5
	defaultClarity      = 0.75
	defaultTimeout      = 30 * time.Second
)

// ElevenLabsConfig holds configuration for the ElevenLabs synthesizer
// Required fields:
// - APIKey: Your Eleven Labs API key
// Optional fields with defaults:
// - VoiceIDs: maps catalogue voice names (alloy, nova, ...) to ElevenLabs voice IDs
// - VoiceID: fallback voice ID (default: Rachel)
// - OutputFormat: default "mp3_44100_128"
// - Stability, Clarity: between 0 and 1
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	VoiceIDs     map[string]string
	ModelID      string
	OutputFormat string
	Stability    float64
	Clarity      float64
	ProxyAddr    string
}

// ElevenLabsSynthesizer speaks the composed reply text with ElevenLabs
type ElevenLabsSynthesizer struct {
	apiKey       string
	apiBaseURL   string
	voiceID      string
	voiceIDs     map[string]string
	modelID      string
	outputFormat string
	stability    float64
	clarity      float64
	httpClient   *http.Client
	logger       *zap.Logger
}

var _ repositories.ReplySynthesizer = (*ElevenLabsSynthesizer)(nil)

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required: %w", domain.ErrNotConfigured)
	}
	if config.Stability < 0 || config.Stability > 1 {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}
	if config.Clarity < 0 || config.Clarity > 1 {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}
	return nil
}

// NewElevenLabsSynthesizer creates a new ElevenLabs synthesizer
func NewElevenLabsSynthesizer(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsSynthesizer, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := strings.TrimRight(config.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}
	voiceID := config.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
		logger.Info("Using default voice ID", zap.String("voiceID", voiceID))
	}
	modelID := config.ModelID
	if modelID == "" {
		modelID = defaultModelID
	}
	outputFormat := config.OutputFormat
	if outputFormat == "" {
		outputFormat = defaultOutputFormat
	}
	stability := config.Stability
	if stability == 0 {
		stability = defaultStability
	}
	clarity := config.Clarity
	if clarity == 0 {
		clarity = defaultClarity
	}

	httpClient, err := httpx.NewClient(defaultTimeout, config.ProxyAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create eleven labs http client: %w", err)
	}

	return &ElevenLabsSynthesizer{
		apiKey:       config.APIKey,
		apiBaseURL:   apiBaseURL,
		voiceID:      voiceID,
		voiceIDs:     config.VoiceIDs,
		modelID:      modelID,
		outputFormat: outputFormat,
		stability:    stability,
		clarity:      clarity,
		httpClient:   httpClient,
		logger:       logger,
	}, nil
}

// SynthesizeReply renders the reply text as speech and returns it as a data URL
func (e *ElevenLabsSynthesizer) SynthesizeReply(ctx context.Context, req entities.SynthesisRequest) (entities.SynthesisResult, error) {
	text := strings.TrimSpace(req.ReplyText)
	if text == "" {
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: fmt.Errorf("text cannot be empty")}
	}

	voiceID := e.resolveVoice(req.Voice)
	requestBody, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: e.modelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	url := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s", e.apiBaseURL, voiceID, e.outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: fmt.Errorf("failed to create HTTP request: %w", err)}
	}
	httpReq.Header.Set("Accept", e.mimeType())
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	e.logger.Debug("Sending request to Eleven Labs API",
		zap.String("voiceID", voiceID),
		zap.String("modelID", e.modelID))

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: fmt.Errorf("failed to execute HTTP request: %w", err)}
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: fmt.Errorf("error reading response body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return entities.SynthesisResult{}, &domain.SynthesisError{StatusCode: resp.StatusCode, Body: string(audio)}
	}

	e.logger.Info("Received speech from Eleven Labs API", zap.Int("totalBytes", len(audio)))
	return entities.SynthesisResult{Audio: dataURL(e.mimeType(), audio)}, nil
}

func (e *ElevenLabsSynthesizer) resolveVoice(voice string) string {
	if id, ok := e.voiceIDs[voice]; ok && id != "" {
		return id
	}
	return e.voiceID
}

func (e *ElevenLabsSynthesizer) mimeType() string {
	switch {
	case strings.HasPrefix(e.outputFormat, "pcm"):
		return "audio/pcm"
	case strings.HasPrefix(e.outputFormat, "ulaw"):
		return "audio/basic"
	default:
		return "audio/mpeg"
	}
}

func dataURL(mime string, audio []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(audio)
}

// NewElevenLabsConfigFromEnv creates a new ElevenLabsConfig from environment variables.
// ELEVEN_LABS_VOICE_MAP holds "name=id" pairs separated by commas.
func NewElevenLabsConfigFromEnv() ElevenLabsConfig {
	config := ElevenLabsConfig{
		APIKey:       os.Getenv("ELEVEN_LABS_API_KEY"),
		APIBaseURL:   os.Getenv("ELEVEN_LABS_API_BASE_URL"),
		VoiceID:      os.Getenv("ELEVEN_LABS_VOICE_ID"),
		ModelID:      os.Getenv("ELEVEN_LABS_MODEL_ID"),
		OutputFormat: os.Getenv("ELEVEN_LABS_OUTPUT_FORMAT"),
		VoiceIDs:     parseVoiceMap(os.Getenv("ELEVEN_LABS_VOICE_MAP")),
	}

	if stabilityStr := os.Getenv("ELEVEN_LABS_STABILITY"); stabilityStr != "" {
		if stability, err := strconv.ParseFloat(stabilityStr, 64); err == nil && stability >= 0 && stability <= 1 {
			config.Stability = stability
		}
	}
	if clarityStr := os.Getenv("ELEVEN_LABS_CLARITY"); clarityStr != "" {
		if clarity, err := strconv.ParseFloat(clarityStr, 64); err == nil && clarity >= 0 && clarity <= 1 {
			config.Clarity = clarity
		}
	}
	return config
}

func parseVoiceMap(raw string) map[string]string {
	voices := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		name, id, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || name == "" || id == "" {
			continue
		}
		voices[strings.TrimSpace(name)] = strings.TrimSpace(id)
	}
	return voices
}
