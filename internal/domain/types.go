package domain

// Topic is one practice subject from the catalog.
type Topic struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	Description   string `json:"description"`
	PromptContext string `json:"promptContext"`
}

// RecordingArtifact is the finalized audio produced by one recording session.
type RecordingArtifact struct {
	Data            []byte `json:"-"`
	MimeType        string `json:"mimeType"`
	DurationSeconds int    `json:"durationSeconds"`
}

// Feedback holds per-criterion comments.
type Feedback struct {
	Grammar       string `json:"grammar"`
	Vocabulary    string `json:"vocabulary"`
	Pronunciation string `json:"pronunciation"`
	Fluency       string `json:"fluency"`
	Adequacy      string `json:"adequacy"`
}

// AnalysisResult is the structured evaluation of one recording.
type AnalysisResult struct {
	Transcription   string   `json:"transcription"`
	Feedback        Feedback `json:"feedback"`
	GeneralFeedback string   `json:"generalFeedback"`
	Scaffolding     []string `json:"scaffolding"`
	Score           int      `json:"score"`
}

// Screen identifies which of the five session states is active.
type Screen string

const (
	ScreenTopicSelection Screen = "topic_selection"
	ScreenRecording      Screen = "recording"
	ScreenAnalyzing      Screen = "analyzing"
	ScreenFeedback       Screen = "feedback"
	ScreenError          Screen = "error"
)

// RecorderState models the audio capture lifecycle.
type RecorderState string

const (
	RecorderIdle       RecorderState = "idle"
	RecorderRequesting RecorderState = "requesting_permission"
	RecorderRecording  RecorderState = "recording"
	RecorderStopped    RecorderState = "stopped"
)

// ErrorCode identifies the origin of an error pushed to the UI.
type ErrorCode string

const (
	ErrorCodeStartup    ErrorCode = "startup"
	ErrorCodeMicrophone ErrorCode = "microphone"
	ErrorCodeAudioStop  ErrorCode = "audio_stop"
	ErrorCodeAnalysis   ErrorCode = "analysis"
)

// RecorderStatus summarizes the capture state machine for rendering.
type RecorderStatus struct {
	State        RecorderState `json:"state"`
	Elapsed      int           `json:"elapsed"`
	ElapsedLabel string        `json:"elapsedLabel"`
	Playback     string        `json:"playback,omitempty"`
	Headline     string        `json:"headline"`
	Hint         string        `json:"hint"`
}

// Status is a snapshot of the whole session for the UI.
type Status struct {
	Screen      Screen          `json:"screen"`
	HeaderLabel string          `json:"headerLabel"`
	Topic       *Topic          `json:"topic,omitempty"`
	Recorder    RecorderStatus  `json:"recorder"`
	Result      *AnalysisResult `json:"result,omitempty"`
	Message     string          `json:"message,omitempty"`
}
