package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestTranscriptSink_StoreTranscript(t *testing.T) {
	var got addTranscriptRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transcripts/add" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"message":"Transcript added successfully"}`))
	}))
	defer server.Close()

	sink, err := NewTranscriptSink(Config{BaseURL: server.URL + "/"}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewTranscriptSink() error = %v", err)
	}

	if err := sink.StoreTranscript(context.Background(), "session-1", "I feel calm today"); err != nil {
		t.Fatalf("StoreTranscript() error = %v", err)
	}
	if got.SessionID != "session-1" || got.Transcript != "I feel calm today" {
		t.Errorf("request = %+v", got)
	}
}

func TestTranscriptSink_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Failed to add transcript", http.StatusInternalServerError)
	}))
	defer server.Close()

	sink, err := NewTranscriptSink(Config{BaseURL: server.URL}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewTranscriptSink() error = %v", err)
	}

	err = sink.StoreTranscript(context.Background(), "s", "t")
	if err == nil || !strings.Contains(err.Error(), "500") {
		t.Fatalf("StoreTranscript() error = %v, want 500", err)
	}
}

func TestNewTranscriptSink_RequiresURL(t *testing.T) {
	if _, err := NewTranscriptSink(Config{}, zaptest.NewLogger(t)); err == nil {
		t.Error("expected error without base URL")
	}
}
