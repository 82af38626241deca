package llm

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/mindful/domain"
	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/domain/repositories"
	"github.com/satriahrh/mindful/internal/audio"
)

const (
	defaultModel      = "gemini-2.5-flash-preview-tts"
	defaultSampleRate = 24000
	defaultVoiceName  = "Kore"
	defaultStyle      = "Say warmly and calmly, like a supportive friend"
)

// catalogueVoices maps the request voice names onto Gemini prebuilt voices
var catalogueVoices = map[string]string{
	"alloy":   "Kore",
	"echo":    "Puck",
	"fable":   "Fenrir",
	"onyx":    "Charon",
	"nova":    "Aoede",
	"shimmer": "Leda",
}

// GeminiConfig holds configuration for the Gemini speech synthesizer
type GeminiConfig struct {
	APIKey     string
	Model      string
	Style      string
	SampleRate int
}

// NewGeminiConfigFromEnv reads GEMINI_API_KEY, GEMINI_TTS_MODEL, GEMINI_TTS_STYLE and GEMINI_TTS_SAMPLE_RATE
func NewGeminiConfigFromEnv() GeminiConfig {
	config := GeminiConfig{
		APIKey: os.Getenv("GEMINI_API_KEY"),
		Model:  os.Getenv("GEMINI_TTS_MODEL"),
		Style:  os.Getenv("GEMINI_TTS_STYLE"),
	}
	if rate, err := strconv.Atoi(os.Getenv("GEMINI_TTS_SAMPLE_RATE")); err == nil && rate > 0 {
		config.SampleRate = rate
	}
	return config
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required: %w", domain.ErrNotConfigured)
	}
	if config.SampleRate < 0 {
		return fmt.Errorf("sample rate must be positive, got %d", config.SampleRate)
	}
	return nil
}

// GeminiSynthesizer speaks the composed reply with a Gemini speech model.
// Gemini returns raw 16-bit PCM, which is wrapped as WAV.
type GeminiSynthesizer struct {
	client     *genai.Client
	model      string
	style      string
	sampleRate int
	logger     *zap.Logger
}

var _ repositories.ReplySynthesizer = (*GeminiSynthesizer)(nil)

// NewGeminiSynthesizer creates a new Gemini speech synthesizer
func NewGeminiSynthesizer(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiSynthesizer, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultModel
		logger.Info("Using default model", zap.String("model", model))
	}
	style := config.Style
	if style == "" {
		style = defaultStyle
	}
	sampleRate := config.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}

	return &GeminiSynthesizer{
		client:     client,
		model:      model,
		style:      style,
		sampleRate: sampleRate,
		logger:     logger,
	}, nil
}

// SynthesizeReply renders the reply text in the mapped prebuilt voice
func (g *GeminiSynthesizer) SynthesizeReply(ctx context.Context, req entities.SynthesisRequest) (entities.SynthesisResult, error) {
	text := strings.TrimSpace(req.ReplyText)
	if text == "" {
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: fmt.Errorf("text cannot be empty")}
	}

	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: voiceName(req.Voice)},
			},
		},
	}
	prompt := fmt.Sprintf("%s: %s", g.style, text)

	response, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: err}
	}

	pcm := inlineAudio(response)
	if len(pcm) == 0 {
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: fmt.Errorf("no audio generated")}
	}

	wav, err := audio.WrapPCM16(pcm, g.sampleRate, 1)
	if err != nil {
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: err}
	}

	g.logger.Info("Received speech from Gemini",
		zap.String("voice", req.Voice),
		zap.Int("totalBytes", len(pcm)))
	return entities.SynthesisResult{Audio: "data:audio/wav;base64," + audio.EncodePayload(wav)}, nil
}

func voiceName(voice string) string {
	if name, ok := catalogueVoices[voice]; ok {
		return name
	}
	return defaultVoiceName
}

// inlineAudio concatenates the inline audio parts of the first candidate
func inlineAudio(response *genai.GenerateContentResponse) []byte {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return nil
	}
	var pcm []byte
	for _, part := range response.Candidates[0].Content.Parts {
		if part.InlineData != nil {
			pcm = append(pcm, part.InlineData.Data...)
		}
	}
	return pcm
}
