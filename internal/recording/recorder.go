package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"deletutor/internal/domain"
	"deletutor/internal/ports"
)

const (
	headlineIdle      = "Prepara tu respuesta"
	headlineRecording = "Grabando tu respuesta..."
	headlineStopped   = "Grabación finalizada"
	hintSpeak         = "Intenta hablar durante al menos 30 segundos para obtener un buen análisis."
	hintReview        = "Escucha tu audio o envíalo para analizar."
)

var errAcquireAborted = errors.New("capture cancelled while acquiring the microphone")

// Config controls capture behavior.
type Config struct {
	Audio     ports.AudioConfig
	ChunkSize int
	Clock     ports.Clock
	// OnTick is called from the timer goroutine after every elapsed second.
	OnTick func(elapsed int)
}

// Recorder is the audio capture state machine:
// idle -> requesting_permission -> recording -> stopped -> idle.
type Recorder struct {
	capture ports.AudioCapture
	cfg     Config

	mu       sync.Mutex
	state    domain.RecorderState
	lease    *captureLease
	artifact *domain.RecordingArtifact
	playback string
	elapsed  int
}

func NewRecorder(capture ports.AudioCapture, cfg Config) *Recorder {
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	return &Recorder{capture: capture, cfg: cfg, state: domain.RecorderIdle}
}

// Start acquires the microphone and begins capturing. On failure the
// recorder stays idle and the error wraps ErrPermissionDenied or
// ErrDeviceUnavailable.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.state != domain.RecorderIdle {
		r.mu.Unlock()
		return domain.ErrRecorderBusy
	}
	r.state = domain.RecorderRequesting
	r.mu.Unlock()

	// Capture outlives the caller's request; only the lease cancels it.
	captureCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	session, err := r.capture.Start(captureCtx, r.cfg.Audio)
	if err != nil {
		cancel()
		r.mu.Lock()
		if r.state == domain.RecorderRequesting {
			r.state = domain.RecorderIdle
		}
		r.mu.Unlock()
		return classifyCaptureError(err)
	}

	lease := newCaptureLease(session, cancel, r.cfg.Clock.NewTicker(time.Second))

	r.mu.Lock()
	if r.state != domain.RecorderRequesting {
		r.mu.Unlock()
		lease.abort()
		return errAcquireAborted
	}
	r.state = domain.RecorderRecording
	r.lease = lease
	r.elapsed = 0
	lease.running = true
	r.mu.Unlock()

	go collectAudioChunks(lease, r.cfg.ChunkSize)
	go r.countSeconds(lease)
	return nil
}

// Stop finalizes the capture into an artifact and releases the microphone.
// It returns ErrNotRecording without side effects when not recording.
func (r *Recorder) Stop() (domain.RecordingArtifact, error) {
	r.mu.Lock()
	lease := r.lease
	if r.state != domain.RecorderRecording || lease == nil {
		r.mu.Unlock()
		return domain.RecordingArtifact{}, domain.ErrNotRecording
	}
	r.elapsed = int(lease.elapsed.Load())
	r.lease = nil
	r.mu.Unlock()

	elapsed := lease.stopTicker()
	r.mu.Lock()
	if r.state == domain.RecorderRecording {
		r.elapsed = elapsed
	}
	r.mu.Unlock()

	stopErr := lease.session.Stop()
	<-lease.pumpDone
	if err := lease.release(); err != nil && stopErr == nil {
		stopErr = err
	}
	if stopErr != nil {
		log.Printf("[recorder] capture did not stop cleanly: %v", stopErr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != domain.RecorderRecording {
		return domain.RecordingArtifact{}, domain.ErrNotRecording
	}
	if lease.buf.Len() == 0 {
		r.state = domain.RecorderIdle
		r.elapsed = 0
		if lease.pumpErr != nil {
			return domain.RecordingArtifact{}, fmt.Errorf("%w: no audio captured: %v", domain.ErrDeviceUnavailable, lease.pumpErr)
		}
		return domain.RecordingArtifact{}, fmt.Errorf("%w: no audio captured", domain.ErrDeviceUnavailable)
	}

	artifact := domain.RecordingArtifact{
		Data:            lease.buf.Bytes(),
		MimeType:        lease.session.MimeType(),
		DurationSeconds: elapsed,
	}
	r.artifact = &artifact
	r.elapsed = elapsed
	r.playback = uuid.NewString()
	r.state = domain.RecorderStopped
	return artifact, nil
}

// Reset discards a stopped recording and returns to idle.
func (r *Recorder) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != domain.RecorderStopped {
		return domain.ErrNoRecording
	}
	r.clearLocked()
	return nil
}

// Take hands the stopped artifact off to the caller. The recorder keeps
// no reference to it afterwards.
func (r *Recorder) Take() (domain.RecordingArtifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != domain.RecorderStopped || r.artifact == nil {
		return domain.RecordingArtifact{}, domain.ErrNoRecording
	}
	artifact := *r.artifact
	r.clearLocked()
	return artifact, nil
}

// Cancel releases the microphone if held and discards any partial or
// finished recording.
func (r *Recorder) Cancel() {
	r.mu.Lock()
	lease := r.lease
	r.lease = nil
	r.clearLocked()
	r.mu.Unlock()

	if lease != nil {
		lease.abort()
	}
}

// Close tears the recorder down.
func (r *Recorder) Close() {
	r.Cancel()
}

// Playback returns the finished audio while handle is current.
func (r *Recorder) Playback(handle string) ([]byte, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if handle == "" || handle != r.playback || r.artifact == nil {
		return nil, "", domain.ErrPlaybackNotCurrent
	}
	return r.artifact.Data, r.artifact.MimeType, nil
}

// Elapsed reports whole seconds recorded so far.
func (r *Recorder) Elapsed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsedLocked()
}

func (r *Recorder) State() domain.RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status summarizes the recorder for rendering.
func (r *Recorder) Status() domain.RecorderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	elapsed := r.elapsedLocked()
	status := domain.RecorderStatus{
		State:        r.state,
		Elapsed:      elapsed,
		ElapsedLabel: FormatElapsed(elapsed),
		Headline:     headlineIdle,
		Hint:         hintSpeak,
	}
	switch r.state {
	case domain.RecorderRecording:
		status.Headline = headlineRecording
	case domain.RecorderStopped:
		status.Headline = headlineStopped
		status.Hint = hintReview
		status.Playback = r.playback
	}
	return status
}

func (r *Recorder) elapsedLocked() int {
	if r.lease != nil {
		return int(r.lease.elapsed.Load())
	}
	return r.elapsed
}

func (r *Recorder) clearLocked() {
	r.artifact = nil
	r.playback = ""
	r.elapsed = 0
	r.state = domain.RecorderIdle
}

func (r *Recorder) countSeconds(lease *captureLease) {
	defer close(lease.tickDone)
	for {
		select {
		case <-lease.tickStop:
			return
		case <-lease.ticker.C():
			n := lease.elapsed.Add(1)
			if r.cfg.OnTick != nil {
				r.cfg.OnTick(int(n))
			}
		}
	}
}

func classifyCaptureError(err error) error {
	if errors.Is(err, domain.ErrPermissionDenied) || errors.Is(err, domain.ErrDeviceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
}

// captureLease owns one acquired microphone session. release runs exactly
// once whichever exit path reaches it first.
type captureLease struct {
	session ports.AudioSession
	cancel  context.CancelFunc

	buf      bytes.Buffer
	pumpErr  error
	pumpDone chan struct{}

	elapsed  atomic.Int64
	ticker   ports.Ticker
	tickOnce sync.Once
	tickStop chan struct{}
	tickDone chan struct{}

	running bool

	releaseOnce sync.Once
	releaseErr  error
}

func newCaptureLease(session ports.AudioSession, cancel context.CancelFunc, ticker ports.Ticker) *captureLease {
	return &captureLease{
		session:  session,
		cancel:   cancel,
		ticker:   ticker,
		pumpDone: make(chan struct{}),
		tickStop: make(chan struct{}),
		tickDone: make(chan struct{}),
	}
}

func (l *captureLease) stopTicker() int {
	l.tickOnce.Do(func() {
		close(l.tickStop)
		l.ticker.Stop()
	})
	<-l.tickDone
	return int(l.elapsed.Load())
}

func (l *captureLease) release() error {
	l.releaseOnce.Do(func() {
		l.releaseErr = l.session.Close()
		l.cancel()
	})
	return l.releaseErr
}

// abort is used on every exit path that discards the capture, including
// leases that never reached the recording state.
func (l *captureLease) abort() {
	if l.running {
		l.stopTicker()
	} else {
		l.tickOnce.Do(func() {
			close(l.tickStop)
			l.ticker.Stop()
		})
	}
	_ = l.session.Stop()
	if l.running {
		<-l.pumpDone
	}
	_ = l.release()
}

func collectAudioChunks(lease *captureLease, chunkSize int) {
	defer close(lease.pumpDone)

	buf := make([]byte, chunkSize)
	for {
		n, err := lease.session.Read(buf)
		if n > 0 {
			lease.buf.Write(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				lease.pumpErr = err
			}
			return
		}
	}
}
