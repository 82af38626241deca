package websocket

import (
	"encoding/json"
	"testing"

	"github.com/satriahrh/mindful/domain/entities"
)

func TestMessageValidator_ValidateMessage(t *testing.T) {
	validator := NewMessageValidator()

	tests := []struct {
		name    string
		message string
		want    interface{}
		wantErr bool
	}{
		{
			name:    "listening start with options",
			message: `{"type":"listening_start","voice":"nova","language":"fr","container":"raw"}`,
			want:    &ListeningStartMessage{},
		},
		{
			name:    "listening start defaults",
			message: `{"type":"listening_start"}`,
			want:    &ListeningStartMessage{},
		},
		{
			name:    "unknown voice",
			message: `{"type":"listening_start","voice":"robot"}`,
			wantErr: true,
		},
		{
			name:    "bad container",
			message: `{"type":"listening_start","container":"mp4"}`,
			wantErr: true,
		},
		{
			name:    "invalid sample rate",
			message: `{"type":"listening_start","sample_rate":100000}`,
			wantErr: true,
		},
		{
			name:    "listening end",
			message: `{"type":"listening_end"}`,
			want:    &ListeningEndMessage{},
		},
		{
			name:    "ping",
			message: `{"type":"ping","data":"x"}`,
			want:    &PingMessage{},
		},
		{
			name:    "missing type",
			message: `{"voice":"nova"}`,
			wantErr: true,
		},
		{
			name:    "unsupported type",
			message: `{"type":"audio_chunk"}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			message: `{"type":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validator.ValidateMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			switch tt.want.(type) {
			case *ListeningStartMessage:
				if _, ok := got.(*ListeningStartMessage); !ok {
					t.Errorf("got %T, want *ListeningStartMessage", got)
				}
			case *ListeningEndMessage:
				if _, ok := got.(*ListeningEndMessage); !ok {
					t.Errorf("got %T, want *ListeningEndMessage", got)
				}
			case *PingMessage:
				if _, ok := got.(*PingMessage); !ok {
					t.Errorf("got %T, want *PingMessage", got)
				}
			}
		})
	}
}

func TestCreateVoiceResultMessage(t *testing.T) {
	msg := CreateVoiceResultMessage("s-1", entities.VoiceResult{Success: true, Transcription: "hi", ReplyText: "hello"})

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["type"] != "voice_result" || decoded["session_id"] != "s-1" {
		t.Errorf("decoded = %v", decoded)
	}
	result, _ := decoded["result"].(map[string]interface{})
	if result["success"] != true || result["message"] != "hello" {
		t.Errorf("result = %v", result)
	}
	if decoded["timestamp"] == "" {
		t.Error("timestamp should be set")
	}
}

func TestCreateErrorMessage(t *testing.T) {
	msg := CreateErrorMessage("invalid_state", "busy", "details")
	if msg.Type != MessageTypeError || msg.Code != "invalid_state" || msg.Details != "details" {
		t.Errorf("msg = %+v", msg)
	}
}
