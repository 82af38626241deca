package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/mindful/domain"
	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/domain/repositories"
)

const (
	defaultStartupGrace = 250 * time.Millisecond
	defaultStopGrace    = 1200 * time.Millisecond
)

// FFmpegConfig selects the ffmpeg binary and capture device
type FFmpegConfig struct {
	Command      string
	InputFormat  string
	InputDevice  string
	StartupGrace time.Duration
	StopGrace    time.Duration
}

// NewFFmpegConfigFromEnv reads FFMPEG_PATH, AUDIO_INPUT_FORMAT and AUDIO_INPUT_DEVICE
func NewFFmpegConfigFromEnv() FFmpegConfig {
	return FFmpegConfig{
		Command:     os.Getenv("FFMPEG_PATH"),
		InputFormat: os.Getenv("AUDIO_INPUT_FORMAT"),
		InputDevice: os.Getenv("AUDIO_INPUT_DEVICE"),
	}
}

// FFmpegMicrophone records signed 16-bit PCM from the system microphone
// through an ffmpeg child process.
type FFmpegMicrophone struct {
	cfg    FFmpegConfig
	logger *zap.Logger
}

// NewFFmpegMicrophone creates a microphone backed by ffmpeg
func NewFFmpegMicrophone(cfg FFmpegConfig, logger *zap.Logger) *FFmpegMicrophone {
	if cfg.Command == "" {
		cfg.Command = "ffmpeg"
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = defaultInputFormat()
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = defaultInputDevice(cfg.InputFormat)
	}
	if cfg.StartupGrace <= 0 {
		cfg.StartupGrace = defaultStartupGrace
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = defaultStopGrace
	}
	return &FFmpegMicrophone{cfg: cfg, logger: logger}
}

func defaultInputFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "pulse"
	}
}

func defaultInputDevice(format string) string {
	switch format {
	case "avfoundation":
		return ":0"
	case "dshow":
		return "audio=default"
	default:
		return "default"
	}
}

// Args builds the ffmpeg argument list for the given constraints
func (m *FFmpegMicrophone) Args(c entities.AudioConstraints) []string {
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", m.cfg.InputFormat,
		"-i", m.cfg.InputDevice,
	}
	if filters := audioFilters(c); filters != "" {
		args = append(args, "-af", filters)
	}
	return append(args,
		"-ac", strconv.Itoa(c.Channels),
		"-ar", strconv.Itoa(c.SampleRate),
		"-f", "s16le",
		"-",
	)
}

// audioFilters approximates browser capture processing with ffmpeg filters
func audioFilters(c entities.AudioConstraints) string {
	var filters []string
	if c.EchoCancellation {
		filters = append(filters, "highpass=f=100")
	}
	if c.NoiseSuppression {
		filters = append(filters, "afftdn")
	}
	if c.AutoGainControl {
		filters = append(filters, "dynaudnorm")
	}
	return strings.Join(filters, ",")
}

// Open starts ffmpeg and returns its stdout as the audio stream
func (m *FFmpegMicrophone) Open(ctx context.Context, c entities.AudioConstraints) (repositories.AudioStream, error) {
	cmd := exec.Command(m.cfg.Command, m.Args(c)...)
	stderr := &lockedBuffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	timer := time.NewTimer(m.cfg.StartupGrace)
	defer timer.Stop()

	select {
	case err := <-waitErr:
		msg := strings.TrimSpace(stderr.String())
		if isPermissionDenied(msg) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPermission, msg)
		}
		if err != nil {
			return nil, fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, msg)
		}
		return nil, errors.New("ffmpeg exited before capture started")
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-waitErr
		return nil, ctx.Err()
	case <-timer.C:
	}

	m.logger.Debug("ffmpeg capture started",
		zap.String("inputFormat", m.cfg.InputFormat),
		zap.String("inputDevice", m.cfg.InputDevice),
		zap.Int("pid", cmd.Process.Pid))

	return &ffmpegStream{
		stdout:    stdout,
		stderr:    stderr,
		process:   cmd.Process,
		waitErr:   waitErr,
		stopGrace: m.cfg.StopGrace,
	}, nil
}

func isPermissionDenied(stderr string) bool {
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "not authorized") ||
		strings.Contains(lower, "access denied")
}

type ffmpegStream struct {
	stdout io.ReadCloser
	stderr *lockedBuffer

	process   *os.Process
	waitErr   <-chan error
	stopGrace time.Duration

	stopOnce sync.Once
	stopErr  error
}

func (s *ffmpegStream) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

// Stop interrupts ffmpeg, killing it if it does not exit within the grace period
func (s *ffmpegStream) Stop() error {
	s.stopOnce.Do(func() {
		_ = s.process.Signal(os.Interrupt)

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeExitErr(err)
			}
		case <-time.After(s.stopGrace):
			_ = s.process.Kill()
			if err, ok := <-s.waitErr; ok {
				s.stopErr = normalizeExitErr(err)
			}
		}

		if s.stopErr != nil {
			if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
				s.stopErr = fmt.Errorf("%w: %s", s.stopErr, msg)
			}
		}
	})
	return s.stopErr
}

// normalizeExitErr treats a non-zero exit after interrupt as a clean stop
func normalizeExitErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
