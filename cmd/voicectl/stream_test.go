package main

import "testing"

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		base    string
		want    string
		wantErr bool
	}{
		{base: "http://localhost:8080", want: "ws://localhost:8080/ws/voice"},
		{base: "https://voice.example.com/", want: "wss://voice.example.com/ws/voice"},
		{base: "ws://10.0.0.2:9000", want: "ws://10.0.0.2:9000/ws/voice"},
		{base: "ftp://example.com", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := websocketURL(tt.base)
			if (err != nil) != tt.wantErr {
				t.Fatalf("websocketURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("websocketURL() = %s, want %s", got, tt.want)
			}
		})
	}
}
