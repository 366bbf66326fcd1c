package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"deletutor/internal/domain"
	"deletutor/internal/ports"
)

type containerFormat struct {
	codec    string
	muxer    string
	mimeType string
}

var containers = map[string]containerFormat{
	"ogg":  {codec: "libopus", muxer: "ogg", mimeType: "audio/ogg"},
	"webm": {codec: "libopus", muxer: "webm", mimeType: "audio/webm"},
	"flac": {codec: "flac", muxer: "flac", mimeType: "audio/flac"},
}

var permissionMarkers = []string{
	"permission denied",
	"operation not permitted",
	"access denied",
	"not authorized",
}

// FFMPEGCapture records the microphone into an encoded container using ffmpeg.
type FFMPEGCapture struct {
	command string
}

func NewFFMPEGCapture(command string) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGCapture{command: command}
}

// MimeTypeFor reports the mime type produced for a container name.
func MimeTypeFor(container string) (string, bool) {
	format, ok := containers[strings.ToLower(container)]
	return format.mimeType, ok
}

func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.AudioSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	format, ok := containers[strings.ToLower(cfg.Container)]
	if !ok {
		format = containers["ogg"]
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", format.codec,
		"-f", format.muxer,
		"-",
	}

	// The read end is owned by the session, not by cmd.Wait, so the
	// container trailer written on shutdown is not lost.
	stdout, stdoutWriter, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Stdout = stdoutWriter

	if err := cmd.Start(); err != nil {
		_ = stdout.Close()
		_ = stdoutWriter.Close()
		return nil, fmt.Errorf("%w: failed to start ffmpeg: %v", domain.ErrDeviceUnavailable, err)
	}
	_ = stdoutWriter.Close()

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	select {
	case err := <-waitErr:
		_ = stdout.Close()
		return nil, classifyStartFailure(err, stderr.String())
	case <-time.After(250 * time.Millisecond):
	}

	return &ffmpegSession{
		stdout:   stdout,
		stderr:   &stderr,
		process:  cmd.Process,
		waitErr:  waitErr,
		mimeType: format.mimeType,
	}, nil
}

func classifyStartFailure(err error, stderr string) error {
	kind := domain.ErrDeviceUnavailable
	lowered := strings.ToLower(stderr)
	for _, marker := range permissionMarkers {
		if strings.Contains(lowered, marker) {
			kind = domain.ErrPermissionDenied
			break
		}
	}

	detail := stringsTrimSpaceSafe(stderr)
	if err != nil {
		return fmt.Errorf("%w: ffmpeg exited before capture started: %v: %s", kind, err, detail)
	}
	return fmt.Errorf("%w: ffmpeg exited before capture started", kind)
}

type ffmpegSession struct {
	stdout   *os.File
	stderr   *bytes.Buffer
	mimeType string

	process *os.Process
	waitErr <-chan error

	stopOnce  sync.Once
	stopErr   error
	closeOnce sync.Once
	closeErr  error
}

func (s *ffmpegSession) Read(p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *ffmpegSession) MimeType() string {
	return s.mimeType
}

// Close stops the recorder if needed and releases the pipe.
func (s *ffmpegSession) Close() error {
	stopErr := s.Stop()
	s.closeOnce.Do(func() {
		if err := s.stdout.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			s.closeErr = err
		}
	})
	if stopErr != nil {
		return stopErr
	}
	return s.closeErr
}

// Stop asks ffmpeg to finalize the container and waits for it to exit.
func (s *ffmpegSession) Stop() error {
	s.stopOnce.Do(func() {
		if s.process != nil {
			_ = s.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if s.process != nil {
				_ = s.process.Kill()
			}
			err, ok := <-s.waitErr
			if ok {
				s.stopErr = normalizeStopErr(err)
			}
		}

		if s.stopErr != nil && s.stderr != nil && s.stderr.Len() > 0 {
			s.stopErr = fmt.Errorf("%w: %s", s.stopErr, stringsTrimSpaceSafe(s.stderr.String()))
		}
	})

	return s.stopErr
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func stringsTrimSpaceSafe(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}
