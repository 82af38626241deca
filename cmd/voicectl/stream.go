package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/mindful/adapters/capture"
	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/internal/audio"
)

const (
	chunkSize     = 4096
	resultTimeout = 60 * time.Second
)

type serverMessage struct {
	Type      string               `json:"type"`
	SessionID string               `json:"session_id"`
	Code      string               `json:"error_code"`
	Message   string               `json:"message"`
	Details   string               `json:"details"`
	Result    entities.VoiceResult `json:"result"`
}

// runStream sends microphone PCM over /ws/voice as it is captured; the
// server wraps it as WAV when listening ends
func runStream(ctx context.Context, opts options, logger *zap.Logger) error {
	wsURL, err := websocketURL(opts.server)
	if err != nil {
		return err
	}

	headers := http.Header{}
	if opts.token != "" {
		headers.Add("Authorization", "Bearer "+opts.token)
	}

	logger.Info("Connecting", zap.String("url", wsURL))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	capCfg := audio.DefaultCaptureConfig()
	if err := conn.WriteJSON(map[string]interface{}{
		"type":        "listening_start",
		"model":       opts.model,
		"voice":       opts.voice,
		"language":    opts.language,
		"container":   audio.ContainerWAV,
		"sample_rate": capCfg.SampleRate,
		"channels":    capCfg.Channels,
	}); err != nil {
		return fmt.Errorf("send listening_start: %w", err)
	}

	started, err := readServerMessage(conn)
	if err != nil {
		return err
	}
	if started.Type != "listening_started" {
		return fmt.Errorf("unexpected reply %q: %s", started.Type, started.Message)
	}
	logger.Info("Listening started", zap.String("sessionID", started.SessionID))

	mic := capture.NewFFmpegMicrophone(capture.NewFFmpegConfigFromEnv(), logger)
	stream, err := mic.Open(ctx, capCfg.Constraints())
	if err != nil {
		return fmt.Errorf("failed to open microphone: %w", err)
	}

	pumpDone := make(chan error, 1)
	go func() {
		pumpDone <- pumpAudio(conn, stream, logger)
	}()

	waitForStop(ctx, opts.duration)
	if err := stream.Stop(); err != nil {
		logger.Warn("Microphone did not stop cleanly", zap.Error(err))
	}
	if err := <-pumpDone; err != nil {
		return err
	}

	if err := conn.WriteJSON(map[string]string{"type": "listening_end"}); err != nil {
		return fmt.Errorf("send listening_end: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(resultTimeout))
	for {
		msg, err := readServerMessage(conn)
		if err != nil {
			return err
		}
		switch msg.Type {
		case "voice_result":
			return report(msg.Result, opts.out)
		case "error":
			return fmt.Errorf("server error %s: %s %s", msg.Code, msg.Message, msg.Details)
		default:
			logger.Debug("Ignoring message", zap.String("type", msg.Type))
		}
	}
}

func pumpAudio(conn *websocket.Conn, stream io.Reader, logger *zap.Logger) error {
	buf := make([]byte, chunkSize)
	chunks := 0
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return fmt.Errorf("send audio chunk: %w", werr)
			}
			chunks++
		}
		if err != nil {
			logger.Debug("Microphone stream ended", zap.Int("chunks", chunks), zap.Error(err))
			return nil
		}
	}
}

func readServerMessage(conn *websocket.Conn) (*serverMessage, error) {
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("malformed server message: %w", err)
	}
	return &msg, nil
}

// websocketURL maps the HTTP base URL onto the voice WebSocket endpoint
func websocketURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", errors.New("server URL must be http(s) or ws(s)")
	}
	u.Path += "/ws/voice"
	return u.String(), nil
}
