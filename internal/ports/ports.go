package ports

import (
	"context"
	"io"
	"time"

	"deletutor/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
	Container   string
}

// AudioSession is a live capture session. Read yields encoded container
// bytes until the session is stopped and the encoder has flushed.
type AudioSession interface {
	io.ReadCloser
	Stop() error
	MimeType() string
}

// AudioCapture acquires the microphone and starts a capture session.
type AudioCapture interface {
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// Ticker delivers periodic ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates tickers for the elapsed-time counter.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Analyzer evaluates a finished recording against a topic context.
type Analyzer interface {
	Analyze(ctx context.Context, artifact domain.RecordingArtifact, topicContext string) (domain.AnalysisResult, error)
}

// Notifier raises a user-facing alert outside the page.
type Notifier interface {
	Alert(title string, message string)
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	StatusChanged(status domain.Status)
	RecorderTick(elapsed int, label string)
	SessionError(code domain.ErrorCode, detail string)
}
