package stt

import (
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/domain/repositories"
)

var _ repositories.BatchAnalyzer = &GoogleBatchAnalyzer{}

func TestResponseToJob(t *testing.T) {
	resp := &speechpb.LongRunningRecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "I feel "}, {Transcript: "ignored"}}},
			{Alternatives: nil},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "a bit worried"}}},
		},
	}

	job := responseToJob("op-1", "whisper-large-v3", resp)
	if job.Status != entities.JobStatusCompleted {
		t.Errorf("Status = %s, want completed", job.Status)
	}
	p, ok := job.Prediction("whisper-large-v3")
	if !ok {
		t.Fatal("transcription prediction missing")
	}
	if p.Transcription != "I feel a bit worried" {
		t.Errorf("Transcription = %q", p.Transcription)
	}
	if _, ok := job.Prediction("sentiment"); ok {
		t.Error("google results should carry no sentiment prediction")
	}
}

func TestJobModelTracking(t *testing.T) {
	g := &GoogleBatchAnalyzer{predictionModel: "whisper-large-v3"}

	g.trackJob("op-1", "custom-stt")
	g.trackJob("op-2", "")

	if got := g.forgetJob("op-1"); got != "custom-stt" {
		t.Errorf("forgetJob(op-1) = %s, want the submitted model", got)
	}
	if got := g.forgetJob("op-1"); got != "whisper-large-v3" {
		t.Errorf("second forgetJob(op-1) = %s, want fallback", got)
	}
	if got := g.forgetJob("op-2"); got != "whisper-large-v3" {
		t.Errorf("forgetJob(op-2) = %s, want fallback for an empty model", got)
	}

	job := responseToJob("op-3", "custom-stt", &speechpb.LongRunningRecognizeResponse{
		Results: []*speechpb.SpeechRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "hello"}}},
		},
	})
	if p, ok := job.Prediction("custom-stt"); !ok || p.Transcription != "hello" {
		t.Errorf("prediction = %+v, %v", p, ok)
	}
}

func TestGetAudioEncoding(t *testing.T) {
	tests := []struct {
		in      string
		want    speechpb.RecognitionConfig_AudioEncoding
		wantErr bool
	}{
		{in: "wav", want: speechpb.RecognitionConfig_LINEAR16},
		{in: "LINEAR16", want: speechpb.RecognitionConfig_LINEAR16},
		{in: "WEBM_OPUS", want: speechpb.RecognitionConfig_WEBM_OPUS},
		{in: "aac", wantErr: true},
	}
	for _, tt := range tests {
		got, err := getAudioEncoding(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("getAudioEncoding(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("getAudioEncoding(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
