package entities

import (
	"errors"
	"strings"
)

const (
	DefaultModel    = "nova-2"
	DefaultVoice    = "alloy"
	DefaultLanguage = "en"
)

// Voices lists the voice identifiers accepted for spoken replies
var Voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// IsKnownVoice reports whether voice is part of the voice catalogue
func IsKnownVoice(voice string) bool {
	for _, v := range Voices {
		if v == voice {
			return true
		}
	}
	return false
}

// VoiceRequest is a single encoded recording submitted for processing
type VoiceRequest struct {
	Audio    string `json:"audio"`
	Model    string `json:"model,omitempty"`
	Voice    string `json:"voice,omitempty"`
	Language string `json:"language,omitempty"`
}

// NewVoiceRequest builds a request, filling model, voice and language defaults
func NewVoiceRequest(audio, model, voice, language string) VoiceRequest {
	req := VoiceRequest{
		Audio:    audio,
		Model:    strings.TrimSpace(model),
		Voice:    strings.TrimSpace(voice),
		Language: strings.TrimSpace(language),
	}
	return req.WithDefaults()
}

// WithDefaults returns a copy with empty fields replaced by defaults
func (r VoiceRequest) WithDefaults() VoiceRequest {
	if r.Model == "" {
		r.Model = DefaultModel
	}
	if r.Voice == "" {
		r.Voice = DefaultVoice
	}
	if r.Language == "" {
		r.Language = DefaultLanguage
	}
	return r
}

// Validate checks the request payload
func (r VoiceRequest) Validate() error {
	if strings.TrimSpace(r.Audio) == "" {
		return errors.New("audio data is required")
	}
	if r.Voice != "" && !IsKnownVoice(r.Voice) {
		return errors.New("unknown voice: " + r.Voice)
	}
	return nil
}

// VoiceResult is the terminal artifact of one voice interaction
type VoiceResult struct {
	Success       bool           `json:"success"`
	Transcription string         `json:"transcription,omitempty"`
	Sentiment     map[string]any `json:"sentiment,omitempty"`
	ReplyText     string         `json:"message,omitempty"`
	ReplyAudio    string         `json:"audioUrl,omitempty"`
	Error         string         `json:"error,omitempty"`
}

// FailedResult builds an unsuccessful result carrying only the error message
func FailedResult(err error) VoiceResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return VoiceResult{Success: false, Error: msg}
}
