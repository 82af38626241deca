package repositories

import "context"

// TranscriptSink receives finished transcriptions
type TranscriptSink interface {
	StoreTranscript(ctx context.Context, sessionID, transcript string) error
}
