package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/internal/auth"
)

type stubProcessor struct {
	got    *entities.VoiceRequest
	result entities.VoiceResult
}

func (s *stubProcessor) Process(ctx context.Context, req entities.VoiceRequest) entities.VoiceResult {
	s.got = &req
	return s.result
}

func newTestEcho(t *testing.T, cfg RouteConfig) *echo.Echo {
	t.Helper()
	e := echo.New()
	InitRoutes(e, cfg, zaptest.NewLogger(t))
	return e
}

func doJSON(e *echo.Echo, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	e := newTestEcho(t, RouteConfig{Service: "mindful-test"})

	rec := doJSON(e, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body HealthResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Status != "ok" || body.Service != "mindful-test" {
		t.Errorf("body = %+v", body)
	}
}

func TestVoiceHealth(t *testing.T) {
	tests := []struct {
		name       string
		processor  VoiceProcessor
		wantStatus string
		wantKey    bool
	}{
		{name: "configured", processor: &stubProcessor{}, wantStatus: "healthy", wantKey: true},
		{name: "unconfigured", wantStatus: "unconfigured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho(t, RouteConfig{
				Processor:   tt.processor,
				Credentials: map[string]bool{"HUME_SECRET_KEY": tt.wantKey, "GEMINI_API_KEY": false},
			})
			rec := doJSON(e, http.MethodGet, "/api/voice", "", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var body VoiceHealthResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			if body.Status != tt.wantStatus || body.HasAPIKey != tt.wantKey {
				t.Errorf("body = %+v", body)
			}
			if body.Credentials["HUME_SECRET_KEY"] != tt.wantKey {
				t.Errorf("credentials = %v", body.Credentials)
			}
		})
	}
}

func TestProcessVoice(t *testing.T) {
	tests := []struct {
		name      string
		processor *stubProcessor
		body      string
		wantCode  int
		wantError string
	}{
		{
			name:      "unconfigured",
			body:      `{"audio":"AAAA"}`,
			wantCode:  http.StatusInternalServerError,
			wantError: "Voice processing is not configured",
		},
		{
			name:      "missing body",
			processor: &stubProcessor{},
			wantCode:  http.StatusBadRequest,
			wantError: "Audio data is required",
		},
		{
			name:      "missing audio",
			processor: &stubProcessor{},
			body:      `{"voice":"nova"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Audio data is required",
		},
		{
			name:      "malformed json",
			processor: &stubProcessor{},
			body:      `{"audio":`,
			wantCode:  http.StatusBadRequest,
			wantError: "Invalid request body",
		},
		{
			name:      "unknown voice",
			processor: &stubProcessor{},
			body:      `{"audio":"AAAA","voice":"robot"}`,
			wantCode:  http.StatusBadRequest,
			wantError: "Unknown voice: robot",
		},
		{
			name:      "pipeline failure is still 200",
			processor: &stubProcessor{result: entities.VoiceResult{Success: false, Error: "job timed out"}},
			body:      `{"audio":"AAAA"}`,
			wantCode:  http.StatusOK,
			wantError: "job timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := RouteConfig{}
			if tt.processor != nil {
				cfg.Processor = tt.processor
			}
			e := newTestEcho(t, cfg)

			rec := doJSON(e, http.MethodPost, "/api/voice", tt.body, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
			var body map[string]interface{}
			json.Unmarshal(rec.Body.Bytes(), &body)
			if body["success"] != false || body["error"] != tt.wantError {
				t.Errorf("body = %v", body)
			}
		})
	}
}

func TestProcessVoice_Success(t *testing.T) {
	processor := &stubProcessor{result: entities.VoiceResult{
		Success:       true,
		Transcription: "hello",
		ReplyText:     "Thank you for sharing that with me.",
		ReplyAudio:    "data:audio/mp3;base64,AAAA",
	}}
	e := newTestEcho(t, RouteConfig{Processor: processor})

	rec := doJSON(e, http.MethodPost, "/api/voice", `{"audio":"AAAA","language":"fr"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success"] != true || body["transcription"] != "hello" || body["audioUrl"] != "data:audio/mp3;base64,AAAA" {
		t.Errorf("body = %v", body)
	}

	if processor.got == nil {
		t.Fatal("processor was not called")
	}
	want := entities.VoiceRequest{Audio: "AAAA", Model: "nova-2", Voice: "alloy", Language: "fr"}
	if *processor.got != want {
		t.Errorf("request = %+v, want %+v", *processor.got, want)
	}
}

func TestProcessVoice_RequiresTokenWhenAuthEnabled(t *testing.T) {
	issuer, err := auth.NewTokenIssuer("s3cret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}
	processor := &stubProcessor{result: entities.VoiceResult{Success: true}}
	e := newTestEcho(t, RouteConfig{Processor: processor, Issuer: issuer})

	rec := doJSON(e, http.MethodPost, "/api/voice", `{"audio":"AAAA"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d", rec.Code)
	}

	token, _ := issuer.GenerateClientToken("laptop-1")
	rec = doJSON(e, http.MethodPost, "/api/voice", `{"audio":"AAAA"}`, http.Header{"Authorization": {"Bearer " + token}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status with token = %d (body %s)", rec.Code, rec.Body.String())
	}

	rec = doJSON(e, http.MethodGet, "/api/voice", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health should stay public, status = %d", rec.Code)
	}
}
