package hume

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/mindful/domain"
	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/domain/repositories"
	"github.com/satriahrh/mindful/internal/httpx"
)

const (
	defaultAPIBaseURL  = "https://api.hume.ai"
	defaultModel       = "evi"
	defaultTimeout     = 30 * time.Second
	defaultTemperature = 0.7
	defaultMaxTokens   = 150
	apiKeyHeader       = "X-Hume-Api-Key"
)

// HumeConfig holds configuration for the Hume client
// Required fields:
// - APIKey: Hume secret key
// Optional fields with defaults:
// - APIBaseURL: default "https://api.hume.ai"
// - Timeout: per request timeout (default: 30s)
// - ProxyAddr: SOCKS5 proxy for outbound vendor traffic
type HumeConfig struct {
	APIKey     string
	APIBaseURL string
	Timeout    time.Duration
	ProxyAddr  string
}

// NewHumeConfigFromEnv reads HUME_SECRET_KEY (or HUME_API_KEY) and HUME_API_BASE_URL
func NewHumeConfigFromEnv() HumeConfig {
	apiKey := os.Getenv("HUME_SECRET_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("HUME_API_KEY")
	}
	return HumeConfig{
		APIKey:     apiKey,
		APIBaseURL: os.Getenv("HUME_API_BASE_URL"),
	}
}

// ValidateHumeConfig validates the HumeConfig
func ValidateHumeConfig(config HumeConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("hume API key is required: %w", domain.ErrNotConfigured)
	}
	if config.APIBaseURL != "" {
		if _, err := url.ParseRequestURI(config.APIBaseURL); err != nil {
			return fmt.Errorf("invalid hume API base URL: %w", err)
		}
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// Client talks to the Hume batch job and chat completion endpoints
type Client struct {
	apiKey     string
	apiBaseURL string
	httpClient *http.Client
	logger     *zap.Logger
}

var (
	_ repositories.BatchAnalyzer    = (*Client)(nil)
	_ repositories.ReplySynthesizer = (*Client)(nil)
)

// NewClient creates a new Hume client
func NewClient(config HumeConfig, logger *zap.Logger) (*Client, error) {
	if err := ValidateHumeConfig(config); err != nil {
		return nil, err
	}

	apiBaseURL := strings.TrimRight(config.APIBaseURL, "/")
	if apiBaseURL == "" {
		apiBaseURL = defaultAPIBaseURL
		logger.Info("Using default API base URL", zap.String("apiBaseURL", apiBaseURL))
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	httpClient, err := httpx.NewClient(timeout, config.ProxyAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create hume http client: %w", err)
	}
	if config.ProxyAddr != "" {
		logger.Info("Routing Hume traffic through proxy")
	}

	return &Client{
		apiKey:     config.APIKey,
		apiBaseURL: apiBaseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

type transcriptionConfig struct {
	Model    string `json:"model"`
	Language string `json:"language"`
}

type jobRequest struct {
	Model         string                    `json:"model"`
	URLs          []string                  `json:"urls"`
	Data          []string                  `json:"data"`
	Transcription transcriptionConfig       `json:"transcription"`
	Models        map[string]map[string]any `json:"models"`
}

type jobCreated struct {
	JobID string `json:"job_id"`
}

type jobPredictions struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Results []struct {
		Predictions []map[string]any `json:"predictions"`
	} `json:"results"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Voice       string        `json:"voice"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// SubmitJob creates a batch job for transcription, language, prosody and sentiment analysis
func (c *Client) SubmitJob(ctx context.Context, req entities.JobRequest) (string, error) {
	models := make(map[string]map[string]any, len(req.Analyzers))
	for _, name := range req.Analyzers {
		models[name] = map[string]any{}
	}

	body := jobRequest{
		Model: defaultModel,
		URLs:  []string{},
		Data:  []string{req.Audio},
		Transcription: transcriptionConfig{
			Model:    req.TranscriptionModel,
			Language: req.Language,
		},
		Models: models,
	}

	c.logger.Debug("Submitting batch job",
		zap.Int("audioLength", len(req.Audio)),
		zap.String("language", req.Language))

	status, respBody, err := c.do(ctx, http.MethodPost, "/v0/batch/jobs", body)
	if err != nil {
		return "", &domain.SubmissionError{Err: err}
	}
	if status < 200 || status >= 300 {
		c.logger.Error("Hume API returned error",
			zap.Int("statusCode", status),
			zap.String("response", string(respBody)))
		return "", &domain.SubmissionError{StatusCode: status, Body: string(respBody)}
	}

	var created jobCreated
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", &domain.SubmissionError{Err: fmt.Errorf("failed to decode job response: %w", err)}
	}
	return created.JobID, nil
}

// JobStatus fetches the current status and predictions of a batch job
func (c *Client) JobStatus(ctx context.Context, jobID string) (*entities.BatchJob, error) {
	path := fmt.Sprintf("/v0/batch/jobs/%s/predictions", url.PathEscape(jobID))
	status, respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("poll request failed: %d - %s", status, strings.TrimSpace(string(respBody)))
	}

	var data jobPredictions
	if err := json.Unmarshal(respBody, &data); err != nil {
		return nil, fmt.Errorf("failed to decode job predictions: %w", err)
	}

	job := &entities.BatchJob{
		ID:      jobID,
		Status:  entities.ParseJobStatus(data.Status),
		Message: data.Message,
	}
	// predictions of the first result only, matching how the job is submitted
	if len(data.Results) > 0 {
		for _, raw := range data.Results[0].Predictions {
			job.Predictions = append(job.Predictions, toPrediction(raw))
		}
	}
	return job, nil
}

func toPrediction(raw map[string]any) entities.Prediction {
	p := entities.Prediction{Fields: raw}
	if model, ok := raw["model"].(string); ok {
		p.Model = model
	}
	if transcription, ok := raw["transcription"].(string); ok {
		p.Transcription = transcription
	}
	return p
}

// SynthesizeReply asks the empathic voice interface to answer the transcription
func (c *Client) SynthesizeReply(ctx context.Context, req entities.SynthesisRequest) (entities.SynthesisResult, error) {
	body := chatRequest{
		Model: defaultModel,
		Messages: []chatMessage{
			{Role: "user", Content: req.Transcription},
		},
		Voice:       req.Voice,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
	}

	status, respBody, err := c.do(ctx, http.MethodPost, "/v0/evi/chat/completions", body)
	if err != nil {
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: err}
	}
	if status < 200 || status >= 300 {
		return entities.SynthesisResult{}, &domain.SynthesisError{StatusCode: status, Body: string(respBody)}
	}

	var chat chatResponse
	if err := json.Unmarshal(respBody, &chat); err != nil {
		return entities.SynthesisResult{}, &domain.SynthesisError{Err: fmt.Errorf("failed to decode chat response: %w", err)}
	}

	result := entities.SynthesisResult{}
	if len(chat.Choices) > 0 {
		result.Audio = chat.Choices[0].Message.Content
	}
	c.logger.Debug("Reply synthesized", zap.Int("audioLength", len(result.Audio)))
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.apiBaseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set(apiKeyHeader, c.apiKey)
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
