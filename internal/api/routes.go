package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/internal/auth"
	"github.com/satriahrh/mindful/internal/websocket"
)

// VoiceProcessor runs one voice interaction to completion
type VoiceProcessor interface {
	Process(ctx context.Context, req entities.VoiceRequest) entities.VoiceResult
}

// RouteConfig holds everything the routes depend on. A nil Processor means
// voice processing is not configured; a nil Hub disables the WebSocket
// endpoint; a nil Issuer leaves the voice endpoints unauthenticated.
type RouteConfig struct {
	Service     string
	Processor   VoiceProcessor
	Hub         *websocket.Hub
	Issuer      *auth.TokenIssuer
	Credentials map[string]bool
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, cfg RouteConfig, logger *zap.Logger) {
	if cfg.Service == "" {
		cfg.Service = "mindful-voice"
	}

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:  "ok",
			Service: cfg.Service,
		})
	})

	e.GET("/api/voice", func(c echo.Context) error {
		return voiceHealth(c, cfg)
	})

	var protected []echo.MiddlewareFunc
	if cfg.Issuer != nil {
		protected = append(protected, auth.Middleware(cfg.Issuer, logger))
	}

	e.POST("/api/voice", func(c echo.Context) error {
		return processVoice(c, cfg.Processor, logger)
	}, protected...)

	if cfg.Hub != nil {
		e.GET("/ws/voice", func(c echo.Context) error {
			clientID := "anonymous"
			if claims, ok := auth.ClaimsFrom(c); ok {
				clientID = claims.ClientID
			}
			return websocket.HandleWebSocket(cfg.Hub, c, clientID, logger)
		}, protected...)
	}
}

func voiceHealth(c echo.Context, cfg RouteConfig) error {
	credentials := make(map[string]bool, len(cfg.Credentials))
	for name, present := range cfg.Credentials {
		credentials[name] = present
	}

	status := "healthy"
	if cfg.Processor == nil {
		status = "unconfigured"
	}

	return c.JSON(http.StatusOK, VoiceHealthResponse{
		Message:     "Voice API is running",
		Status:      status,
		HasAPIKey:   cfg.Processor != nil,
		Credentials: credentials,
	})
}

func processVoice(c echo.Context, processor VoiceProcessor, logger *zap.Logger) error {
	if processor == nil {
		logger.Error("Voice request rejected: voice processing is not configured")
		return c.JSON(http.StatusInternalServerError, VoiceErrorResponse{
			Error: "Voice processing is not configured",
		})
	}

	var body entities.VoiceRequest
	if err := c.Bind(&body); err != nil {
		logger.Warn("Failed to bind voice request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, VoiceErrorResponse{
			Error: "Invalid request body",
		})
	}

	req := entities.NewVoiceRequest(body.Audio, body.Model, body.Voice, body.Language)
	if err := req.Validate(); err != nil {
		logger.Warn("Voice request rejected", zap.Error(err))
		return c.JSON(http.StatusBadRequest, VoiceErrorResponse{
			Error: capitalize(err.Error()),
		})
	}

	if claims, ok := auth.ClaimsFrom(c); ok {
		logger = logger.With(zap.String("clientID", claims.ClientID))
	}
	logger.Info("Voice request received",
		zap.Int("audioLength", len(req.Audio)),
		zap.String("voice", req.Voice))

	result := processor.Process(c.Request().Context(), req)
	return c.JSON(http.StatusOK, result)
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
