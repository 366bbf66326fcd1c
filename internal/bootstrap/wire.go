package bootstrap

import (
	"log"
	"strconv"

	"deletutor/internal/analysis"
	"deletutor/internal/audio"
	"deletutor/internal/config"
	"deletutor/internal/notify"
	"deletutor/internal/ports"
	"deletutor/internal/providers/gemini"
	"deletutor/internal/recording"
	"deletutor/internal/topics"
	"deletutor/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Controller *usecase.SessionController
	Config     config.Config
}

// Build loads configuration and wires all backend dependencies for the
// current runtime.
func Build(eventSink ports.EventSink) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	return BuildWithConfig(cfg, eventSink), nil
}

// BuildWithConfig wires the backend from an already loaded configuration.
func BuildWithConfig(cfg config.Config, eventSink ports.EventSink) Services {
	if cfg.Gemini.APIKey == "" {
		log.Printf("[config] GEMINI_API_KEY is not set; analysis requests will fail")
	}

	controller := usecase.NewSessionController(
		topics.Default(),
		audio.NewFFMPEGCapture(cfg.Audio.RecorderCommand),
		gemini.NewProvider(gemini.Config{
			APIKey:     cfg.Gemini.APIKey,
			Model:      cfg.Gemini.Model,
			APIBaseURL: cfg.Gemini.BaseURL,
		}),
		eventSink,
		notify.New(cfg.Notify.Enabled),
		usecase.Config{
			Recording: recording.Config{
				Audio: ports.AudioConfig{
					SampleRate:  cfg.Audio.SampleRate,
					Channels:    cfg.Audio.Channels,
					InputFormat: cfg.Audio.InputFormat,
					InputDevice: cfg.Audio.InputDevice,
					Container:   cfg.Audio.Container,
				},
				ChunkSize: cfg.Audio.ChunkSize,
			},
			MinRecordingSeconds: cfg.Session.MinRecordingSeconds,
			AnalysisTimeout:     cfg.Session.AnalysisTimeout(),
		},
	)

	return Services{Controller: controller, Config: cfg}
}

// RuntimeInfo returns non-sensitive configuration for the UI.
func RuntimeInfo(cfg config.Config) map[string]string {
	mimeType, _ := audio.MimeTypeFor(cfg.Audio.Container)
	return map[string]string{
		"provider":             "Gemini",
		"model":                cfg.Gemini.Model,
		"rubric":               analysis.RubricVersion,
		"credentialConfigured": strconv.FormatBool(cfg.Gemini.APIKey != ""),
		"audioInput":           cfg.Audio.InputDevice,
		"audioInputFormat":     cfg.Audio.InputFormat,
		"audioMimeType":        mimeType,
		"minRecordingSeconds":  strconv.Itoa(cfg.Session.MinRecordingSeconds),
		"configFile":           cfg.File,
	}
}
