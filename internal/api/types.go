package api

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// VoiceErrorResponse is returned by POST /api/voice when the request never
// reaches the pipeline
type VoiceErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// HealthResponse represents the service liveness payload
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// VoiceHealthResponse reports whether voice processing is configured.
// Credentials only carry presence flags, never values.
type VoiceHealthResponse struct {
	Message     string          `json:"message"`
	Status      string          `json:"status"`
	HasAPIKey   bool            `json:"hasApiKey"`
	Credentials map[string]bool `json:"credentials"`
}
