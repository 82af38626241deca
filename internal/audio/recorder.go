package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/mindful/domain"
	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/domain/repositories"
)

const (
	ContainerWAV = "wav"
	ContainerRaw = "raw"

	defaultSampleRate    = 16000
	defaultChannels      = 1
	defaultSliceInterval = time.Second
	defaultReadSize      = 4096
)

// CaptureConfig fixes the microphone constraints and chunking of a Recorder
type CaptureConfig struct {
	SampleRate       int
	Channels         int
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
	SliceInterval    time.Duration
	Container        string
	ReadSize         int
}

// DefaultCaptureConfig returns mono 16 kHz capture with echo cancellation and
// noise suppression, sliced every second and wrapped as WAV
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		SampleRate:       defaultSampleRate,
		Channels:         defaultChannels,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
		SliceInterval:    defaultSliceInterval,
		Container:        ContainerWAV,
		ReadSize:         defaultReadSize,
	}
}

// Constraints returns the microphone constraints for this config
func (c CaptureConfig) Constraints() entities.AudioConstraints {
	return entities.AudioConstraints{
		SampleRate:       c.SampleRate,
		Channels:         c.Channels,
		EchoCancellation: c.EchoCancellation,
		NoiseSuppression: c.NoiseSuppression,
		AutoGainControl:  c.AutoGainControl,
	}
}

// Recorder captures one clip at a time from a microphone.
// State moves idle -> recording -> stopping -> idle.
type Recorder struct {
	mic    repositories.Microphone
	cfg    CaptureConfig
	logger *zap.Logger

	mu      sync.Mutex
	state   entities.RecordingState
	opening bool
	session *recordingSession
}

type recordingSession struct {
	stream    repositories.AudioStream
	startedAt time.Time

	mu      sync.Mutex
	chunks  [][]byte
	pending bytes.Buffer
	bytes   int
	readErr error

	releaseOnce sync.Once
	releaseErr  error
	done        chan struct{}
}

// NewRecorder creates a recorder bound to mic
func NewRecorder(mic repositories.Microphone, cfg CaptureConfig, logger *zap.Logger) *Recorder {
	def := DefaultCaptureConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = def.Channels
	}
	if cfg.SliceInterval <= 0 {
		cfg.SliceInterval = def.SliceInterval
	}
	if cfg.Container == "" {
		cfg.Container = def.Container
	}
	if cfg.ReadSize <= 0 {
		cfg.ReadSize = def.ReadSize
	}
	return &Recorder{
		mic:    mic,
		cfg:    cfg,
		logger: logger,
		state:  entities.RecordingStateIdle,
	}
}

// State returns the current recording state
func (r *Recorder) State() entities.RecordingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status returns a snapshot of the recorder
func (r *Recorder) Status() entities.RecordingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := entities.RecordingStatus{State: r.state}
	if s := r.session; s != nil {
		started := s.startedAt
		status.StartedAt = &started
		s.mu.Lock()
		status.Chunks = len(s.chunks)
		status.Bytes = s.bytes
		s.mu.Unlock()
	}
	return status
}

// Start acquires the microphone and begins collecting chunks. The
// microphone is opened without holding the recorder lock; a concurrent Start
// is rejected while the open is in flight.
func (r *Recorder) Start(ctx context.Context) error {
	if err := validateContainer(r.cfg.Container); err != nil {
		return err
	}

	r.mu.Lock()
	if r.state != entities.RecordingStateIdle || r.opening {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("cannot start while %s: %w", state, domain.ErrInvalidState)
	}
	r.opening = true
	r.mu.Unlock()

	stream, err := r.mic.Open(ctx, r.cfg.Constraints())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.opening = false

	if err != nil {
		if errors.Is(err, domain.ErrPermission) {
			r.logger.Warn("Microphone permission denied", zap.Error(err))
			return fmt.Errorf("please check microphone permissions: %w", err)
		}
		return fmt.Errorf("failed to start audio recording: %w", err)
	}

	session := &recordingSession{
		stream:    stream,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	r.session = session
	r.state = entities.RecordingStateRecording

	go r.collect(session)

	r.logger.Info("Recording started",
		zap.Int("sampleRate", r.cfg.SampleRate),
		zap.Int("channels", r.cfg.Channels),
		zap.Duration("sliceInterval", r.cfg.SliceInterval))
	return nil
}

// collect reads the stream until it ends and slices it into ordered chunks
func (r *Recorder) collect(s *recordingSession) {
	defer close(s.done)

	buf := make([]byte, r.cfg.ReadSize)
	sliceStart := time.Now()

	for {
		n, err := s.stream.Read(buf)
		if n > 0 {
			s.mu.Lock()
			s.pending.Write(buf[:n])
			s.bytes += n
			if time.Since(sliceStart) >= r.cfg.SliceInterval {
				s.flushLocked()
				sliceStart = time.Now()
			}
			s.mu.Unlock()
		}
		if err != nil {
			s.mu.Lock()
			s.flushLocked()
			if !isEndOfStream(err) {
				s.readErr = err
			}
			s.mu.Unlock()
			return
		}
	}
}

func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed)
}

func (s *recordingSession) flushLocked() {
	if s.pending.Len() == 0 {
		return
	}
	chunk := make([]byte, s.pending.Len())
	copy(chunk, s.pending.Bytes())
	s.chunks = append(s.chunks, chunk)
	s.pending.Reset()
}

func (s *recordingSession) release() error {
	s.releaseOnce.Do(func() {
		s.releaseErr = s.stream.Stop()
	})
	return s.releaseErr
}

// Stop releases the microphone, waits for the last chunk and returns the
// clip as base64 text. The stream is released on every path.
func (r *Recorder) Stop(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.state != entities.RecordingStateRecording || r.session == nil {
		r.mu.Unlock()
		return "", domain.ErrNoActiveRecording
	}
	session := r.session
	r.state = entities.RecordingStateStopping
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.session = nil
		r.state = entities.RecordingStateIdle
		r.mu.Unlock()
	}()

	releaseErr := session.release()
	if releaseErr != nil {
		r.logger.Warn("Failed to release audio stream cleanly", zap.Error(releaseErr))
	}

	select {
	case <-session.done:
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for recording to finish: %w", ctx.Err())
	}

	session.mu.Lock()
	chunks := session.chunks
	total := session.bytes
	readErr := session.readErr
	session.chunks = nil
	session.mu.Unlock()

	if readErr != nil {
		r.logger.Warn("Audio stream ended with error", zap.Error(readErr))
	}

	clip := bytes.Join(chunks, nil)
	encoded, err := r.encode(clip)
	if err != nil {
		return "", fmt.Errorf("failed to encode recording: %w", err)
	}

	r.logger.Info("Recording stopped",
		zap.Int("chunks", len(chunks)),
		zap.Int("bytes", total),
		zap.Duration("duration", time.Since(session.startedAt)))
	return encoded, nil
}

func (r *Recorder) encode(clip []byte) (string, error) {
	switch r.cfg.Container {
	case ContainerRaw:
		return EncodePayload(clip), nil
	case ContainerWAV:
		wav, err := WrapPCM16(clip, r.cfg.SampleRate, r.cfg.Channels)
		if err != nil {
			return "", err
		}
		return EncodePayload(wav), nil
	default:
		return "", validateContainer(r.cfg.Container)
	}
}

func validateContainer(container string) error {
	switch container {
	case ContainerWAV, ContainerRaw:
		return nil
	default:
		return fmt.Errorf("unsupported container: %s", container)
	}
}
