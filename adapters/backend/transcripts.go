// Package backend forwards transcripts to the journal backend over REST.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/mindful/domain/repositories"
	"github.com/satriahrh/mindful/internal/httpx"
)

const defaultTimeout = 5 * time.Second

// Config points the sink at the journal backend
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewConfigFromEnv reads JOURNAL_BACKEND_URL
func NewConfigFromEnv() Config {
	return Config{BaseURL: os.Getenv("JOURNAL_BACKEND_URL")}
}

// TranscriptSink stores transcripts through POST /transcripts/add
type TranscriptSink struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.TranscriptSink = (*TranscriptSink)(nil)

type addTranscriptRequest struct {
	SessionID  string `json:"session_id"`
	Transcript string `json:"transcript"`
}

// NewTranscriptSink creates a sink. BaseURL is required.
func NewTranscriptSink(cfg Config, logger *zap.Logger) (*TranscriptSink, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("journal backend URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient, err := httpx.NewClient(timeout, "")
	if err != nil {
		return nil, err
	}
	return &TranscriptSink{baseURL: baseURL, httpClient: httpClient, logger: logger}, nil
}

// StoreTranscript implements repositories.TranscriptSink
func (s *TranscriptSink) StoreTranscript(ctx context.Context, sessionID, transcript string) error {
	body, err := json.Marshal(addTranscriptRequest{SessionID: sessionID, Transcript: transcript})
	if err != nil {
		return fmt.Errorf("failed to marshal transcript: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/transcripts/add", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("journal backend returned error %d: %s", resp.StatusCode, strings.TrimSpace(string(errorBody)))
	}

	s.logger.Debug("Transcript forwarded", zap.String("sessionID", sessionID))
	return nil
}
