// Package config loads server settings from .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Analyzer providers
const (
	AnalyzerHume   = "hume"
	AnalyzerGoogle = "google"
	AnalyzerMock   = "mock"
)

// Synthesizer providers
const (
	SynthesizerHume       = "hume"
	SynthesizerElevenLabs = "elevenlabs"
	SynthesizerOpenAI     = "openai"
	SynthesizerGemini     = "gemini"
	SynthesizerMock       = "mock"
	SynthesizerNone       = "none"
)

// Config is the server configuration
type Config struct {
	Port            string
	AppEnv          string
	LogLevel        string
	ShutdownTimeout time.Duration

	Analyzer    string
	Synthesizer string

	PollInterval   time.Duration
	PollAttempts   int
	RequestTimeout time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	VendorProxy       string
	JournalBackendURL string
}

// Load reads envFile when it exists, then the environment. A missing env
// file is not an error.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables
func FromEnv() (Config, error) {
	cfg := Config{
		Port:              envOr("PORT", "8080"),
		AppEnv:            envOr("APP_ENV", "production"),
		LogLevel:          envOr("LOG_LEVEL", "info"),
		Analyzer:          strings.ToLower(envOr("VOICE_ANALYZER", AnalyzerHume)),
		Synthesizer:       strings.ToLower(envOr("VOICE_SYNTHESIZER", SynthesizerHume)),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		VendorProxy:       os.Getenv("VENDOR_PROXY"),
		JournalBackendURL: os.Getenv("JOURNAL_BACKEND_URL"),
	}

	var err error
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = durationEnv("POLL_INTERVAL", time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", 45*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.JWTTTL, err = durationEnv("JWT_TTL", 24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.PollAttempts, err = intEnv("POLL_ATTEMPTS", 30); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// Validate checks provider names and numeric bounds
func (c Config) Validate() error {
	switch c.Analyzer {
	case AnalyzerHume, AnalyzerGoogle, AnalyzerMock:
	default:
		return fmt.Errorf("unknown VOICE_ANALYZER %q", c.Analyzer)
	}
	switch c.Synthesizer {
	case SynthesizerHume, SynthesizerElevenLabs, SynthesizerOpenAI, SynthesizerGemini, SynthesizerMock, SynthesizerNone:
	default:
		return fmt.Errorf("unknown VOICE_SYNTHESIZER %q", c.Synthesizer)
	}
	if c.PollAttempts <= 0 {
		return fmt.Errorf("POLL_ATTEMPTS must be positive, got %d", c.PollAttempts)
	}
	if c.PollInterval <= 0 || c.RequestTimeout <= 0 {
		return errors.New("POLL_INTERVAL and REQUEST_TIMEOUT must be positive")
	}
	return nil
}

// IsDevelopment reports whether APP_ENV selects development mode
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}

// Credentials reports which vendor secrets are present. Values never leave
// this function. Keys with aliases are reported under their primary name.
func Credentials() map[string]bool {
	names := map[string][]string{
		"HUME_SECRET_KEY":                {"HUME_SECRET_KEY", "HUME_API_KEY"},
		"GOOGLE_APPLICATION_CREDENTIALS": {"GOOGLE_APPLICATION_CREDENTIALS"},
		"ELEVEN_LABS_API_KEY":            {"ELEVEN_LABS_API_KEY"},
		"OPENAI_API_KEY":                 {"OPENAI_API_KEY"},
		"GEMINI_API_KEY":                 {"GEMINI_API_KEY"},
		"JWT_SECRET":                     {"JWT_SECRET"},
	}
	present := make(map[string]bool, len(names))
	for name, keys := range names {
		present[name] = false
		for _, key := range keys {
			if os.Getenv(key) != "" {
				present[name] = true
				break
			}
		}
	}
	return present
}

// NewLogger builds the zap logger for the configured environment and level
func NewLogger(c Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}

	zc := zap.NewProductionConfig()
	if c.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
