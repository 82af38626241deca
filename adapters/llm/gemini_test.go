package llm

import (
	"bytes"
	"errors"
	"testing"

	"google.golang.org/genai"

	"github.com/satriahrh/mindful/domain"
)

func TestValidateGeminiConfig(t *testing.T) {
	if err := ValidateGeminiConfig(GeminiConfig{}); !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("missing key error = %v, want ErrNotConfigured", err)
	}
	if err := ValidateGeminiConfig(GeminiConfig{APIKey: "k", SampleRate: -1}); err == nil {
		t.Error("expected error for negative sample rate")
	}
	if err := ValidateGeminiConfig(GeminiConfig{APIKey: "k"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestVoiceName(t *testing.T) {
	tests := map[string]string{
		"alloy":   "Kore",
		"nova":    "Aoede",
		"shimmer": "Leda",
		"unknown": defaultVoiceName,
		"":        defaultVoiceName,
	}
	for in, want := range tests {
		if got := voiceName(in); got != want {
			t.Errorf("voiceName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInlineAudio(t *testing.T) {
	response := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: []byte{1, 2}, MIMEType: "audio/L16;rate=24000"}},
				{Text: "ignored"},
				{InlineData: &genai.Blob{Data: []byte{3, 4}}},
			}},
		}},
	}
	if got := inlineAudio(response); !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Errorf("inlineAudio() = %v", got)
	}
	if got := inlineAudio(&genai.GenerateContentResponse{}); got != nil {
		t.Errorf("inlineAudio(empty) = %v, want nil", got)
	}
}
