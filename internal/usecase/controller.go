package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"deletutor/internal/analysis"
	"deletutor/internal/domain"
	"deletutor/internal/ports"
	"deletutor/internal/recording"
	"deletutor/internal/session"
	"deletutor/internal/topics"
	"deletutor/internal/view"
)

const (
	AnalysisErrorMessage = "Hubo un error al analizar tu audio. Por favor, asegúrate de haber configurado tu API Key y de que tu conexión es estable."
	MicrophoneAlertTitle = "No se pudo acceder al micrófono"
	MicrophoneAlertBody  = "Por favor, verifica los permisos."
	AudioStopMessage     = "No se pudo finalizar la grabación. Inténtalo de nuevo."
	HomeLabel            = "Inicio"

	DefaultAnalysisTimeout = 90 * time.Second
)

// ErrorTitle is the heading shown for an error pushed to the UI.
func ErrorTitle(code domain.ErrorCode) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Error al iniciar"
	case domain.ErrorCodeMicrophone:
		return "Micrófono no disponible"
	case domain.ErrorCodeAudioStop:
		return "Problema al detener la grabación"
	case domain.ErrorCodeAnalysis:
		return "Error de Análisis"
	default:
		return "Ocurrió un error desconocido."
	}
}

// Config controls session behavior.
type Config struct {
	Recording recording.Config
	// MinRecordingSeconds rejects shorter recordings at submit time. Zero
	// disables the check.
	MinRecordingSeconds int
	AnalysisTimeout     time.Duration
}

// SessionController sequences topic choice, recording, analysis and
// feedback for one learner.
type SessionController struct {
	catalog  *topics.Catalog
	recorder *recording.Recorder
	analyzer ports.Analyzer
	events   ports.EventSink
	notifier ports.Notifier
	display  view.Display
	cfg      Config

	// opMu serializes user operations.
	opMu sync.Mutex

	mu         sync.Mutex
	state      session.State
	generation uint64
	task       *analysisTask
	closed     bool
}

type analysisTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSessionController(
	catalog *topics.Catalog,
	audio ports.AudioCapture,
	analyzer ports.Analyzer,
	events ports.EventSink,
	notifier ports.Notifier,
	cfg Config,
) *SessionController {
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = DefaultAnalysisTimeout
	}
	if cfg.MinRecordingSeconds < 0 {
		cfg.MinRecordingSeconds = 0
	}

	c := &SessionController{
		catalog:  catalog,
		analyzer: analyzer,
		events:   events,
		notifier: notifier,
		cfg:      cfg,
		state:    session.Initial(),
	}

	recCfg := cfg.Recording
	onTick := recCfg.OnTick
	recCfg.OnTick = func(elapsed int) {
		events.RecorderTick(elapsed, recording.FormatElapsed(elapsed))
		if onTick != nil {
			onTick(elapsed)
		}
	}
	c.recorder = recording.NewRecorder(audio, recCfg)
	return c
}

// Topics lists the catalog in display order.
func (c *SessionController) Topics() []domain.Topic {
	return c.catalog.All()
}

// SelectTopic leaves topic selection for the recording screen of id.
func (c *SessionController) SelectTopic(id string) (domain.Status, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	topic, err := c.catalog.Lookup(id)
	if err != nil {
		return c.Status(), err
	}
	if err := c.apply(session.TopicChosen{Topic: topic}); err != nil {
		return c.Status(), err
	}
	return c.publish(), nil
}

// StartRecording acquires the microphone for the selected topic. Capture
// failures are reported to the user and leave the recorder idle.
func (c *SessionController) StartRecording(ctx context.Context) (domain.Status, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.onScreen(domain.ScreenRecording) {
		return c.Status(), domain.ErrInvalidTransition
	}
	if err := c.startCapture(ctx); err != nil {
		return c.publish(), err
	}
	return c.publish(), nil
}

// StopRecording finalizes the take. The artifact stays with the recorder
// for playback until it is submitted or discarded.
func (c *SessionController) StopRecording() (domain.Status, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.onScreen(domain.ScreenRecording) {
		return c.Status(), domain.ErrInvalidTransition
	}
	artifact, err := c.recorder.Stop()
	if errors.Is(err, domain.ErrNotRecording) {
		return c.Status(), err
	}
	if err != nil {
		log.Printf("[session] stop recording failed (kind=%s): %v", domain.KindOf(err), err)
		c.events.SessionError(domain.ErrorCodeAudioStop, AudioStopMessage)
		return c.publish(), err
	}

	log.Printf("[session] recorded %ds of %s (%d bytes)", artifact.DurationSeconds, artifact.MimeType, len(artifact.Data))
	return c.publish(), nil
}

// RepeatRecording discards the stopped take and records again on the same
// topic.
func (c *SessionController) RepeatRecording(ctx context.Context) (domain.Status, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.onScreen(domain.ScreenRecording) {
		return c.Status(), domain.ErrInvalidTransition
	}
	if err := c.recorder.Reset(); err != nil {
		return c.Status(), err
	}
	if err := c.startCapture(ctx); err != nil {
		return c.publish(), err
	}
	return c.publish(), nil
}

// ResetRecording discards the stopped take without recording again.
func (c *SessionController) ResetRecording() (domain.Status, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.onScreen(domain.ScreenRecording) {
		return c.Status(), domain.ErrInvalidTransition
	}
	if err := c.recorder.Reset(); err != nil {
		return c.Status(), err
	}
	return c.publish(), nil
}

// Analyze hands the stopped take to the analyzer and moves to the analyzing
// screen. The outcome arrives later through the event sink.
func (c *SessionController) Analyze() (domain.Status, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.onScreen(domain.ScreenRecording) {
		return c.Status(), domain.ErrInvalidTransition
	}
	if c.recorder.State() != domain.RecorderStopped {
		return c.Status(), domain.ErrNoRecording
	}
	if minimum := c.cfg.MinRecordingSeconds; minimum > 0 {
		if got := c.recorder.Elapsed(); got < minimum {
			return c.Status(), fmt.Errorf("%w: %ds recorded, %ds required", domain.ErrRecordingTooShort, got, minimum)
		}
	}

	artifact, err := c.recorder.Take()
	if err != nil {
		return c.Status(), err
	}

	c.mu.Lock()
	next, ok := session.Next(c.state, session.ArtifactProduced{Artifact: artifact})
	if !ok {
		c.mu.Unlock()
		return c.Status(), domain.ErrInvalidTransition
	}
	analyzing := next.(session.Analyzing)
	c.state = next
	c.generation++
	generation := c.generation
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.AnalysisTimeout)
	task := &analysisTask{cancel: cancel, done: make(chan struct{})}
	c.task = task
	status := c.statusLocked()
	c.mu.Unlock()

	c.events.StatusChanged(status)
	go c.runAnalysis(ctx, task, generation, analyzing)
	return status, nil
}

// Cancel abandons the current topic from the recording screen, releasing
// the microphone if held.
func (c *SessionController) Cancel() (domain.Status, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.apply(session.Cancelled{}); err != nil {
		return c.Status(), err
	}
	c.recorder.Cancel()
	c.display.Clear()
	return c.publish(), nil
}

// Reset returns to topic selection from the feedback or error screen.
func (c *SessionController) Reset() (domain.Status, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.apply(session.ResetRequested{}); err != nil {
		return c.Status(), err
	}
	c.recorder.Cancel()
	c.display.Clear()
	return c.publish(), nil
}

// Retry goes from the error screen straight back to recording the same
// topic.
func (c *SessionController) Retry() (domain.Status, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.apply(session.RetryRequested{}); err != nil {
		return c.Status(), err
	}
	c.recorder.Cancel()
	return c.publish(), nil
}

// Result returns the feedback screen model.
func (c *SessionController) Result() (view.Result, error) {
	if !c.onScreen(domain.ScreenFeedback) {
		return view.Result{}, domain.ErrInvalidTransition
	}
	result, ok := c.display.View()
	if !ok {
		return view.Result{}, domain.ErrInvalidTransition
	}
	return result, nil
}

// ToggleTranscript expands or collapses the transcription on the feedback
// screen.
func (c *SessionController) ToggleTranscript() (view.Result, error) {
	if !c.onScreen(domain.ScreenFeedback) {
		return view.Result{}, domain.ErrInvalidTransition
	}
	result, ok := c.display.ToggleTranscript()
	if !ok {
		return view.Result{}, domain.ErrInvalidTransition
	}
	return result, nil
}

// Playback returns the stopped take while handle is current.
func (c *SessionController) Playback(handle string) ([]byte, string, error) {
	return c.recorder.Playback(handle)
}

// Status returns a snapshot of the session.
func (c *SessionController) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked()
}

// Close cancels any analysis in flight and releases the microphone.
func (c *SessionController) Close() {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	c.closed = true
	c.generation++
	task := c.task
	c.task = nil
	c.mu.Unlock()

	if task != nil {
		task.cancel()
		<-task.done
	}
	c.recorder.Close()
}

func (c *SessionController) runAnalysis(ctx context.Context, task *analysisTask, generation uint64, analyzing session.Analyzing) {
	defer close(task.done)
	defer task.cancel()

	started := time.Now()
	result, err := c.analyzer.Analyze(ctx, analyzing.Artifact, analyzing.Topic.PromptContext)

	c.mu.Lock()
	if generation != c.generation || c.closed {
		c.mu.Unlock()
		log.Printf("[analysis] discarding superseded analysis for %s", analyzing.Topic.ID)
		return
	}
	c.task = nil

	elapsed := time.Since(started).Round(time.Millisecond)
	var event session.Event
	switch {
	case analysis.IsContractViolation(err):
		log.Printf("[analysis] contract violation after %s (rubric=%s kind=%s): %v", elapsed, analysis.RubricVersion, domain.KindOf(err), err)
		event = session.AnalysisRejected{Message: AnalysisErrorMessage}
	case err != nil:
		log.Printf("[analysis] analysis failed after %s (rubric=%s kind=%s): %v", elapsed, analysis.RubricVersion, domain.KindOf(err), err)
		event = session.AnalysisRejected{Message: AnalysisErrorMessage}
	default:
		log.Printf("[analysis] analysis finished after %s (rubric=%s score=%d)", elapsed, analysis.RubricVersion, result.Score)
		c.display.Show(result)
		event = session.AnalysisResolved{Result: result}
	}
	if next, ok := session.Next(c.state, event); ok {
		c.state = next
	}
	status := c.statusLocked()
	c.mu.Unlock()

	if err != nil {
		c.events.SessionError(domain.ErrorCodeAnalysis, AnalysisErrorMessage)
	}
	c.events.StatusChanged(status)
}

func (c *SessionController) startCapture(ctx context.Context) error {
	err := c.recorder.Start(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrRecorderBusy) {
		return err
	}

	log.Printf("[session] microphone unavailable (kind=%s): %v", domain.KindOf(err), err)
	c.events.SessionError(domain.ErrorCodeMicrophone, MicrophoneAlertTitle+". "+MicrophoneAlertBody)
	if c.notifier != nil {
		c.notifier.Alert(MicrophoneAlertTitle, MicrophoneAlertBody)
	}
	return err
}

func (c *SessionController) apply(event session.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, ok := session.Next(c.state, event)
	if !ok {
		return fmt.Errorf("%w: %T on %s", domain.ErrInvalidTransition, event, c.state.Screen())
	}
	c.state = next
	return nil
}

func (c *SessionController) onScreen(screen domain.Screen) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Screen() == screen
}

func (c *SessionController) publish() domain.Status {
	status := c.Status()
	c.events.StatusChanged(status)
	return status
}

func (c *SessionController) statusLocked() domain.Status {
	status := domain.Status{
		Screen:      c.state.Screen(),
		HeaderLabel: HomeLabel,
		Recorder:    c.recorder.Status(),
	}
	if topic, ok := session.TopicOf(c.state); ok {
		status.Topic = &topic
		status.HeaderLabel = topic.Label
	}
	switch s := c.state.(type) {
	case session.Feedback:
		result := s.Result
		status.Result = &result
	case session.Failed:
		status.Message = s.Message
	}
	return status
}
