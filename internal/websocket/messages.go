package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/satriahrh/mindful/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeListeningStart   MessageType = "listening_start"
	MessageTypeListeningEnd     MessageType = "listening_end"
	MessageTypeListeningStarted MessageType = "listening_started"
	MessageTypeVoiceResult      MessageType = "voice_result"
	MessageTypePing             MessageType = "ping"
	MessageTypePong             MessageType = "pong"
	MessageTypeError            MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
}

// ListeningStartMessage opens a recording on the connection. Binary frames
// that follow are audio; Container selects whether they are raw 16-bit PCM to
// be wrapped as WAV ("wav") or an already encoded stream ("raw").
type ListeningStartMessage struct {
	BaseMessage
	Model      string `json:"model,omitempty"`
	Voice      string `json:"voice,omitempty"`
	Language   string `json:"language,omitempty"`
	Container  string `json:"container,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

// ListeningEndMessage closes the recording and submits it
type ListeningEndMessage struct {
	BaseMessage
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ListeningStartedMessage acknowledges a listening_start
type ListeningStartedMessage struct {
	BaseMessage
	SessionID string `json:"session_id"`
}

// VoiceResultMessage carries the outcome of one voice interaction
type VoiceResultMessage struct {
	BaseMessage
	SessionID string               `json:"session_id"`
	Result    entities.VoiceResult `json:"result"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses and validates an incoming text message
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeListeningStart:
		var msg ListeningStartMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid listening_start message: %w", err)
		}
		if err := v.validateListeningStart(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypeListeningEnd:
		return &ListeningEndMessage{BaseMessage: base}, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	case "":
		return nil, fmt.Errorf("message type is required")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

func (v *MessageValidator) validateListeningStart(msg *ListeningStartMessage) error {
	if msg.Voice != "" && !entities.IsKnownVoice(msg.Voice) {
		return fmt.Errorf("unknown voice: %s", msg.Voice)
	}
	switch msg.Container {
	case "", "wav", "raw":
	default:
		return fmt.Errorf("container must be one of: wav, raw")
	}
	if msg.SampleRate != 0 && (msg.SampleRate < 8000 || msg.SampleRate > 48000) {
		return fmt.Errorf("sample_rate must be between 8000 and 48000")
	}
	if msg.Channels < 0 || msg.Channels > 2 {
		return fmt.Errorf("channels must be 1 or 2")
	}
	return nil
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().Format(time.RFC3339)}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Code:        code,
		Message:     message,
		Details:     details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{BaseMessage: newBase(MessageTypePong), Data: data}
}

// CreateListeningStartedMessage acknowledges a new recording
func CreateListeningStartedMessage(sessionID string) *ListeningStartedMessage {
	return &ListeningStartedMessage{BaseMessage: newBase(MessageTypeListeningStarted), SessionID: sessionID}
}

// CreateVoiceResultMessage wraps a pipeline result
func CreateVoiceResultMessage(sessionID string, result entities.VoiceResult) *VoiceResultMessage {
	return &VoiceResultMessage{
		BaseMessage: newBase(MessageTypeVoiceResult),
		SessionID:   sessionID,
		Result:      result,
	}
}
