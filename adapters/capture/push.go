package capture

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/domain/repositories"
)

// ErrNotOpen is returned when audio is pushed with no open stream
var ErrNotOpen = errors.New("push microphone is not open")

// PushMicrophone is a microphone whose audio arrives from the caller, for
// example binary frames on a WebSocket connection.
type PushMicrophone struct {
	mu     sync.Mutex
	stream *pushStream
}

// NewPushMicrophone creates an unopened push microphone
func NewPushMicrophone() *PushMicrophone {
	return &PushMicrophone{}
}

// Open starts a new stream. Constraints are fixed by whoever produces the audio.
func (m *PushMicrophone) Open(ctx context.Context, _ entities.AudioConstraints) (repositories.AudioStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, w := io.Pipe()
	stream := &pushStream{r: r, w: w}

	m.mu.Lock()
	m.stream = stream
	m.mu.Unlock()
	return stream, nil
}

// Push hands one chunk to the open stream and blocks until it is read
func (m *PushMicrophone) Push(chunk []byte) error {
	m.mu.Lock()
	stream := m.stream
	m.mu.Unlock()

	if stream == nil {
		return ErrNotOpen
	}
	_, err := stream.w.Write(chunk)
	if errors.Is(err, io.ErrClosedPipe) {
		return ErrNotOpen
	}
	return err
}

type pushStream struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (s *pushStream) Read(p []byte) (int, error) {
	return s.r.Read(p)
}

func (s *pushStream) Stop() error {
	return s.w.Close()
}
