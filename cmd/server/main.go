package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/satriahrh/mindful/adapters/backend"
	"github.com/satriahrh/mindful/adapters/hume"
	"github.com/satriahrh/mindful/adapters/llm"
	"github.com/satriahrh/mindful/adapters/mock"
	"github.com/satriahrh/mindful/adapters/stt"
	"github.com/satriahrh/mindful/adapters/tts"
	"github.com/satriahrh/mindful/domain/repositories"
	"github.com/satriahrh/mindful/internal/api"
	"github.com/satriahrh/mindful/internal/audio"
	"github.com/satriahrh/mindful/internal/auth"
	"github.com/satriahrh/mindful/internal/config"
	"github.com/satriahrh/mindful/internal/websocket"
	"github.com/satriahrh/mindful/usecase"
)

func main() {
	envFile := pflag.StringP("env", "e", ".env", "Env file path")
	port := pflag.StringP("port", "p", "", "Listen port (overrides PORT)")
	pflag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		// Logger settings come from the same config, so fall back to stderr
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if *port != "" {
		cfg.Port = *port
	}

	// Initialize logger
	logger, err := config.NewLogger(cfg)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	analyzer, closeAnalyzer := newAnalyzer(ctx, cfg, logger)
	defer closeAnalyzer()
	synthesizer := newSynthesizer(ctx, cfg, logger)

	var processor *usecase.VoicePipeline
	if analyzer != nil {
		pipelineCfg := usecase.DefaultPipelineConfig()
		pipelineCfg.PollInterval = cfg.PollInterval
		pipelineCfg.PollAttempts = cfg.PollAttempts
		pipelineCfg.RequestTimeout = cfg.RequestTimeout

		var opts []usecase.PipelineOption
		if sink := newTranscriptSink(cfg, logger); sink != nil {
			opts = append(opts, usecase.WithTranscriptSink(sink))
		}
		processor = usecase.NewVoicePipeline(analyzer, synthesizer, usecase.NewResponseComposer(), pipelineCfg, logger, opts...)
	}

	routes := api.RouteConfig{
		Service:     "mindful-voice",
		Credentials: config.Credentials(),
	}
	if processor != nil {
		routes.Processor = processor

		// Initialize WebSocket hub with the voice pipeline
		hub := websocket.NewHub(processor, audio.DefaultCaptureConfig(), logger)
		go hub.Run(ctx)
		routes.Hub = hub
	}
	if cfg.JWTSecret != "" {
		issuer, err := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL)
		if err != nil {
			logger.Fatal("Failed to create token issuer", zap.Error(err))
		}
		routes.Issuer = issuer
		logger.Info("JWT authentication enabled for voice endpoints")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("Request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("requestID", v.RequestID))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize API routes
	api.InitRoutes(e, routes, logger)

	// Graceful shutdown
	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("port", cfg.Port),
		zap.String("analyzer", cfg.Analyzer),
		zap.String("synthesizer", cfg.Synthesizer),
		zap.Bool("voiceConfigured", processor != nil))

	<-ctx.Done()
	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

// newAnalyzer returns nil when the selected vendor is not configured, which
// leaves voice processing disabled
func newAnalyzer(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.BatchAnalyzer, func()) {
	noop := func() {}

	switch cfg.Analyzer {
	case config.AnalyzerMock:
		return mock.NewAnalyzer(mock.AnalyzerConfig{}, logger), noop

	case config.AnalyzerGoogle:
		analyzer, err := stt.NewGoogleBatchAnalyzer(ctx, stt.NewGoogleConfigFromEnv(), logger)
		if err != nil {
			logger.Error("Google analyzer unavailable, voice processing disabled", zap.Error(err))
			return nil, noop
		}
		return analyzer, func() { analyzer.Close() }

	default:
		client, err := hume.NewClient(humeConfig(cfg), logger)
		if err != nil {
			logger.Error("Hume analyzer unavailable, voice processing disabled", zap.Error(err))
			return nil, noop
		}
		return client, noop
	}
}

// newSynthesizer returns nil when no spoken reply is wanted or the vendor
// cannot be set up; replies are then text only
func newSynthesizer(ctx context.Context, cfg config.Config, logger *zap.Logger) repositories.ReplySynthesizer {
	var (
		synthesizer repositories.ReplySynthesizer
		err         error
	)

	switch cfg.Synthesizer {
	case config.SynthesizerNone:
		return nil
	case config.SynthesizerMock:
		return mock.NewSynthesizer(logger)
	case config.SynthesizerElevenLabs:
		var s *tts.ElevenLabsSynthesizer
		if s, err = tts.NewElevenLabsSynthesizer(elevenLabsConfig(cfg), logger); err == nil {
			synthesizer = s
		}
	case config.SynthesizerOpenAI:
		var s *tts.OpenAISynthesizer
		if s, err = tts.NewOpenAISynthesizer(openAIConfig(cfg), logger); err == nil {
			synthesizer = s
		}
	case config.SynthesizerGemini:
		var s *llm.GeminiSynthesizer
		if s, err = llm.NewGeminiSynthesizer(ctx, llm.NewGeminiConfigFromEnv(), logger); err == nil {
			synthesizer = s
		}
	default:
		var s *hume.Client
		if s, err = hume.NewClient(humeConfig(cfg), logger); err == nil {
			synthesizer = s
		}
	}

	if err != nil {
		logger.Warn("Reply synthesizer unavailable, replies will be text only",
			zap.String("synthesizer", cfg.Synthesizer),
			zap.Error(err))
		return nil
	}
	return synthesizer
}

// Vendor configs come from their own env helpers; the outbound proxy is
// shared and set once in config.Config.
func humeConfig(cfg config.Config) hume.HumeConfig {
	c := hume.NewHumeConfigFromEnv()
	c.ProxyAddr = cfg.VendorProxy
	return c
}

func elevenLabsConfig(cfg config.Config) tts.ElevenLabsConfig {
	c := tts.NewElevenLabsConfigFromEnv()
	c.ProxyAddr = cfg.VendorProxy
	return c
}

func openAIConfig(cfg config.Config) tts.OpenAIConfig {
	c := tts.NewOpenAIConfigFromEnv()
	c.ProxyAddr = cfg.VendorProxy
	return c
}

func newTranscriptSink(cfg config.Config, logger *zap.Logger) repositories.TranscriptSink {
	if cfg.JournalBackendURL == "" {
		return nil
	}
	sink, err := backend.NewTranscriptSink(backend.Config{BaseURL: cfg.JournalBackendURL}, logger)
	if err != nil {
		logger.Warn("Transcript forwarding disabled", zap.Error(err))
		return nil
	}
	logger.Info("Forwarding transcripts", zap.String("backend", cfg.JournalBackendURL))
	return sink
}
