// Package voiceclient submits encoded recordings to the voice endpoint.
package voiceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/internal/httpx"
)

const (
	defaultBaseURL = "http://localhost:8080"
	defaultTimeout = 60 * time.Second
	voicePath      = "/api/voice"
)

// Config configures the client
type Config struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	ProxyAddr string
}

// Client delivers voice requests to a voice server. Every failure is folded
// into an unsuccessful VoiceResult; there are no retries.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zap.Logger
}

// HealthReport is the payload of GET /api/voice
type HealthReport struct {
	Message     string          `json:"message"`
	Status      string          `json:"status"`
	HasAPIKey   bool            `json:"hasApiKey"`
	Credentials map[string]bool `json:"credentials"`
}

// New creates a client
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient, err := httpx.NewClient(timeout, cfg.ProxyAddr)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    baseURL,
		token:      cfg.Token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// Send posts req and returns the server's result
func (c *Client) Send(ctx context.Context, req entities.VoiceRequest) entities.VoiceResult {
	req = req.WithDefaults()
	if strings.TrimSpace(req.Audio) == "" {
		return entities.FailedResult(errors.New("audio data is required"))
	}

	body, err := json.Marshal(req)
	if err != nil {
		return entities.FailedResult(fmt.Errorf("failed to marshal request: %w", err))
	}

	c.logger.Debug("Sending voice request",
		zap.Int("audioLength", len(req.Audio)),
		zap.String("voice", req.Voice))

	status, respBody, err := c.do(ctx, http.MethodPost, voicePath, body)
	if err != nil {
		c.logger.Error("Voice request failed", zap.Error(err))
		return entities.FailedResult(err)
	}

	if status < 200 || status >= 300 {
		err := statusError(status, respBody)
		c.logger.Error("Voice server returned an error",
			zap.Int("statusCode", status),
			zap.String("response", string(respBody)))
		return entities.FailedResult(err)
	}

	var result entities.VoiceResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		c.logger.Error("Malformed voice response", zap.Error(err))
		return entities.FailedResult(fmt.Errorf("malformed response: %w", err))
	}
	if !result.Success && result.Error == "" {
		c.logger.Error("Voice response carries no outcome", zap.String("response", string(respBody)))
		return entities.FailedResult(errors.New("malformed response: unsuccessful result without error"))
	}
	return result
}

// Health fetches the voice endpoint health report
func (c *Client) Health(ctx context.Context) (*HealthReport, error) {
	status, body, err := c.do(ctx, http.MethodGet, voicePath, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError(status, body)
	}

	var report HealthReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, fmt.Errorf("malformed health response: %w", err)
	}
	return &report, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// statusError builds the error for a non-2xx response, including the
// server's own error text when the body carries one
func statusError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("HTTP error! status: %d: %s", status, payload.Error)
	}
	return fmt.Errorf("HTTP error! status: %d", status)
}
