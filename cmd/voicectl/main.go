// Command voicectl records a voice clip and sends it to a mindful server.
//
//	voicectl [flags]          record until Enter (or --duration) and send
//	voicectl --file clip.wav  send an existing recording
//	voicectl --stream         stream the microphone over /ws/voice
//	voicectl health           print the voice endpoint health report
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/satriahrh/mindful/adapters/capture"
	"github.com/satriahrh/mindful/domain/entities"
	"github.com/satriahrh/mindful/internal/audio"
	"github.com/satriahrh/mindful/internal/auth"
	"github.com/satriahrh/mindful/internal/voiceclient"
)

type options struct {
	server   string
	token    string
	secret   string
	clientID string
	model    string
	voice    string
	language string
	duration time.Duration
	file     string
	out      string
	stream   bool
	verbose  bool
}

func main() {
	var opts options
	envFile := pflag.StringP("env", "e", ".env", "Env file path")
	pflag.StringVarP(&opts.server, "server", "s", "http://localhost:8080", "Voice server base URL")
	pflag.StringVar(&opts.token, "token", "", "Bearer token for the voice endpoints")
	pflag.StringVar(&opts.secret, "jwt-secret", "", "Mint a client token with this secret (defaults to JWT_SECRET)")
	pflag.StringVar(&opts.clientID, "client-id", "voicectl", "Client ID for minted tokens")
	pflag.StringVarP(&opts.model, "model", "m", entities.DefaultModel, "Transcription model tag")
	pflag.StringVarP(&opts.voice, "voice", "v", entities.DefaultVoice, "Reply voice ("+strings.Join(entities.Voices, ", ")+")")
	pflag.StringVarP(&opts.language, "language", "l", entities.DefaultLanguage, "Language tag")
	pflag.DurationVarP(&opts.duration, "duration", "d", 0, "Stop recording after this long instead of waiting for Enter")
	pflag.StringVarP(&opts.file, "file", "f", "", "Send this audio file instead of recording")
	pflag.StringVarP(&opts.out, "out", "o", "", "Write the reply audio to this file")
	pflag.BoolVar(&opts.stream, "stream", false, "Stream microphone audio over the WebSocket endpoint")
	pflag.BoolVar(&opts.verbose, "verbose", false, "Debug logging")
	pflag.Parse()

	godotenv.Load(*envFile)

	logger := newLogger(opts.verbose)
	defer logger.Sync()

	if opts.token == "" {
		if opts.secret == "" {
			opts.secret = os.Getenv("JWT_SECRET")
		}
		if opts.secret != "" {
			token, err := mintToken(opts.secret, opts.clientID)
			if err != nil {
				logger.Fatal("Failed to mint token", zap.Error(err))
			}
			opts.token = token
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch pflag.Arg(0) {
	case "health":
		err = runHealth(ctx, opts, logger)
	case "", "send":
		if opts.stream {
			err = runStream(ctx, opts, logger)
		} else {
			err = runSend(ctx, opts, logger)
		}
	default:
		err = fmt.Errorf("unknown command %q", pflag.Arg(0))
	}
	if err != nil {
		logger.Error("voicectl failed", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func mintToken(secret, clientID string) (string, error) {
	issuer, err := auth.NewTokenIssuer(secret, time.Hour)
	if err != nil {
		return "", err
	}
	return issuer.GenerateClientToken(clientID)
}

func newClient(opts options, logger *zap.Logger) (*voiceclient.Client, error) {
	return voiceclient.New(voiceclient.Config{
		BaseURL: opts.server,
		Token:   opts.token,
	}, logger)
}

func runHealth(ctx context.Context, opts options, logger *zap.Logger) error {
	client, err := newClient(opts, logger)
	if err != nil {
		return err
	}
	report, err := client.Health(ctx)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func runSend(ctx context.Context, opts options, logger *zap.Logger) error {
	var payload string
	if opts.file != "" {
		clip, err := os.ReadFile(opts.file)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", opts.file, err)
		}
		payload = audio.EncodePayload(clip)
	} else {
		recorded, err := record(ctx, opts, logger)
		if err != nil {
			return err
		}
		payload = recorded
	}

	client, err := newClient(opts, logger)
	if err != nil {
		return err
	}

	logger.Info("Sending recording", zap.Int("payloadLength", len(payload)))
	result := client.Send(ctx, entities.NewVoiceRequest(payload, opts.model, opts.voice, opts.language))
	return report(result, opts.out)
}

// record captures one clip through ffmpeg
func record(ctx context.Context, opts options, logger *zap.Logger) (string, error) {
	mic := capture.NewFFmpegMicrophone(capture.NewFFmpegConfigFromEnv(), logger)
	recorder := audio.NewRecorder(mic, audio.DefaultCaptureConfig(), logger)

	if err := recorder.Start(ctx); err != nil {
		return "", fmt.Errorf("failed to start recording: %w", err)
	}
	waitForStop(ctx, opts.duration)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	payload, err := recorder.Stop(stopCtx)
	if err != nil {
		return "", fmt.Errorf("failed to stop recording: %w", err)
	}
	return payload, nil
}

// waitForStop blocks until Enter, the duration elapses, or ctx is done
func waitForStop(ctx context.Context, duration time.Duration) {
	var timer <-chan time.Time
	if duration > 0 {
		fmt.Fprintf(os.Stderr, "Recording for %s...\n", duration)
		timer = time.After(duration)
	} else {
		fmt.Fprintln(os.Stderr, "Recording... press Enter to stop")
	}

	enter := make(chan struct{})
	go func() {
		bufio.NewReader(os.Stdin).ReadString('\n')
		close(enter)
	}()

	select {
	case <-enter:
	case <-timer:
	case <-ctx.Done():
	}
}

func report(result entities.VoiceResult, out string) error {
	if out != "" && result.ReplyAudio != "" {
		clip, err := audio.DecodePayload(result.ReplyAudio)
		if err != nil {
			return fmt.Errorf("failed to decode reply audio: %w", err)
		}
		if err := os.WriteFile(out, clip, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Fprintf(os.Stderr, "Reply audio written to %s\n", out)
		result.ReplyAudio = out
	}
	if err := printJSON(result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("voice request failed: %s", result.Error)
	}
	return nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
