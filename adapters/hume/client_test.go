package hume

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/mindful/domain"
	"github.com/satriahrh/mindful/domain/entities"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(HumeConfig{APIKey: "test-key", APIBaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	os.Unsetenv("HUME_SECRET_KEY")
	os.Unsetenv("HUME_API_KEY")

	_, err := NewClient(NewHumeConfigFromEnv(), zaptest.NewLogger(t))
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("NewClient() error = %v, want ErrNotConfigured", err)
	}

	t.Setenv("HUME_SECRET_KEY", "secret")
	client, err := NewClient(NewHumeConfigFromEnv(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client.apiBaseURL != defaultAPIBaseURL {
		t.Errorf("apiBaseURL = %s, want %s", client.apiBaseURL, defaultAPIBaseURL)
	}
}

func TestClient_SubmitJob(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v0/batch/jobs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if key := r.Header.Get("X-Hume-Api-Key"); key != "test-key" {
			t.Errorf("api key header = %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"job_id":"job-123"}`))
	})

	jobID, err := client.SubmitJob(context.Background(), entities.JobRequest{
		Audio:              "QUJD",
		Language:           "en",
		TranscriptionModel: "whisper-large-v3",
		Analyzers:          []string{"language", "prosody", "sentiment"},
	})
	if err != nil {
		t.Fatalf("SubmitJob() error = %v", err)
	}
	if jobID != "job-123" {
		t.Errorf("jobID = %s, want job-123", jobID)
	}

	if got["model"] != "evi" {
		t.Errorf("model = %v, want evi", got["model"])
	}
	data, _ := got["data"].([]any)
	if len(data) != 1 || data[0] != "QUJD" {
		t.Errorf("data = %v, want [QUJD]", got["data"])
	}
	if urls, ok := got["urls"].([]any); !ok || len(urls) != 0 {
		t.Errorf("urls = %v, want empty list", got["urls"])
	}
	transcription, _ := got["transcription"].(map[string]any)
	if transcription["model"] != "whisper-large-v3" || transcription["language"] != "en" {
		t.Errorf("transcription = %v", transcription)
	}
	models, _ := got["models"].(map[string]any)
	for _, name := range []string{"language", "prosody", "sentiment"} {
		if _, ok := models[name]; !ok {
			t.Errorf("models missing %s", name)
		}
	}
}

func TestClient_SubmitJob_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Invalid API key"))
	})

	_, err := client.SubmitJob(context.Background(), entities.JobRequest{Audio: "QUJD"})
	var subErr *domain.SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("SubmitJob() error = %v, want SubmissionError", err)
	}
	if subErr.StatusCode != http.StatusUnauthorized || subErr.Body != "Invalid API key" {
		t.Errorf("SubmissionError = %+v", subErr)
	}
	if !strings.Contains(err.Error(), "401 - Invalid API key") {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestClient_JobStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus entities.JobStatus
		wantText   string
	}{
		{
			name:       "pending",
			body:       `{"status":"in_progress","results":[]}`,
			wantStatus: entities.JobStatusPending,
		},
		{
			name:       "completed",
			body:       `{"status":"completed","results":[{"predictions":[{"model":"whisper-large-v3","transcription":"I feel anxious"},{"model":"sentiment","score":0.3}]}]}`,
			wantStatus: entities.JobStatusCompleted,
			wantText:   "I feel anxious",
		},
		{
			name:       "failed",
			body:       `{"status":"failed","message":"unsupported media"}`,
			wantStatus: entities.JobStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v0/batch/jobs/job-1/predictions" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Write([]byte(tt.body))
			})

			job, err := client.JobStatus(context.Background(), "job-1")
			if err != nil {
				t.Fatalf("JobStatus() error = %v", err)
			}
			if job.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", job.Status, tt.wantStatus)
			}
			p, _ := job.Prediction("whisper-large-v3")
			if p.Transcription != tt.wantText {
				t.Errorf("transcription = %q, want %q", p.Transcription, tt.wantText)
			}
		})
	}
}

func TestClient_JobStatus_SentimentFields(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"completed","results":[{"predictions":[{"model":"sentiment","score":0.3}]}]}`))
	})

	job, err := client.JobStatus(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("JobStatus() error = %v", err)
	}
	p, ok := job.Prediction("sentiment")
	if !ok {
		t.Fatal("sentiment prediction missing")
	}
	if p.Fields["score"] != 0.3 {
		t.Errorf("score = %v, want 0.3", p.Fields["score"])
	}
}

func TestClient_JobStatus_HTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	})

	if _, err := client.JobStatus(context.Background(), "job-1"); err == nil {
		t.Fatal("JobStatus() expected error on 503")
	}
}

func TestClient_SynthesizeReply(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/evi/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"data:audio/mp3;base64,AAAA"}}]}`))
	})

	result, err := client.SynthesizeReply(context.Background(), entities.SynthesisRequest{
		Transcription: "hello there",
		ReplyText:     "hi",
		Voice:         "nova",
	})
	if err != nil {
		t.Fatalf("SynthesizeReply() error = %v", err)
	}
	if result.Audio != "data:audio/mp3;base64,AAAA" {
		t.Errorf("Audio = %q", result.Audio)
	}
	if got.Voice != "nova" || got.MaxTokens != 150 || got.Temperature != 0.7 {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "hello there" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestClient_SynthesizeReply_Error(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("upstream exploded"))
	})

	_, err := client.SynthesizeReply(context.Background(), entities.SynthesisRequest{Transcription: "hi", Voice: "alloy"})
	var synthErr *domain.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("SynthesizeReply() error = %v, want SynthesisError", err)
	}
	if synthErr.StatusCode != http.StatusInternalServerError || synthErr.Body != "upstream exploded" {
		t.Errorf("SynthesisError = %+v", synthErr)
	}
}
