package repositories

import (
	"context"
	"io"

	"github.com/satriahrh/mindful/domain/entities"
)

// Microphone grants access to an audio input
type Microphone interface {
	// Open requests permission and acquires the input stream.
	// A denied permission must be reported as domain.ErrPermission.
	Open(ctx context.Context, constraints entities.AudioConstraints) (AudioStream, error)
}

// AudioStream is a live input. Stop releases every underlying track.
type AudioStream interface {
	io.Reader
	Stop() error
}
