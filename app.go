package main

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"deletutor/internal/bootstrap"
	"deletutor/internal/config"
	"deletutor/internal/domain"
	"deletutor/internal/usecase"
	"deletutor/internal/view"
)

const (
	eventSession = "dele:session"
	eventTick    = "dele:tick"
	eventError   = "dele:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	controller *usecase.SessionController
	cfg        config.Config
	bootErr    error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.controller = services.Controller
	a.StatusChanged(a.controller.Status())
}

func (a *App) shutdown(_ context.Context) {
	if a.controller != nil {
		a.controller.Close()
	}
}

// GetTopics returns the practice catalog in display order.
func (a *App) GetTopics() []domain.Topic {
	if a.controller == nil {
		return nil
	}
	return a.controller.Topics()
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		if a.bootErr != nil {
			return domain.Status{Screen: domain.ScreenError, HeaderLabel: usecase.HomeLabel, Message: a.bootErr.Error()}
		}
		return domain.Status{Screen: domain.ScreenTopicSelection, HeaderLabel: usecase.HomeLabel}
	}
	return a.controller.Status()
}

func (a *App) SelectTopic(id string) (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return a.GetStatus(), err
	}
	return a.controller.SelectTopic(id)
}

func (a *App) StartRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return a.GetStatus(), err
	}
	return a.controller.StartRecording(a.ctx)
}

func (a *App) StopRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return a.GetStatus(), err
	}
	return a.controller.StopRecording()
}

// RepeatRecording discards the current take and records a new one.
func (a *App) RepeatRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return a.GetStatus(), err
	}
	return a.controller.RepeatRecording(a.ctx)
}

func (a *App) ResetRecording() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return a.GetStatus(), err
	}
	return a.controller.ResetRecording()
}

// Analyze submits the finished take. The result arrives as a session event.
func (a *App) Analyze() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return a.GetStatus(), err
	}
	return a.controller.Analyze()
}

func (a *App) Cancel() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return a.GetStatus(), err
	}
	return a.controller.Cancel()
}

func (a *App) Reset() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return a.GetStatus(), err
	}
	return a.controller.Reset()
}

func (a *App) Retry() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return a.GetStatus(), err
	}
	return a.controller.Retry()
}

func (a *App) GetResult() (view.Result, error) {
	if err := a.requireReady(); err != nil {
		return view.Result{}, err
	}
	return a.controller.Result()
}

func (a *App) ToggleTranscript() (view.Result, error) {
	if err := a.requireReady(); err != nil {
		return view.Result{}, err
	}
	return a.controller.ToggleTranscript()
}

// GetPlayback returns the current take as a data URL the webview can play.
func (a *App) GetPlayback(handle string) (string, error) {
	if err := a.requireReady(); err != nil {
		return "", err
	}
	data, mimeType, err := a.controller.Playback(handle)
	if err != nil {
		return "", err
	}
	return dataURL(mimeType, data), nil
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}
	return bootstrap.RuntimeInfo(a.cfg)
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// StatusChanged emits session snapshots to the frontend.
func (a *App) StatusChanged(status domain.Status) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]any{
		"status":  status,
		"message": screenMessage(status),
	})
}

// RecorderTick emits the recording timer.
func (a *App) RecorderTick(elapsed int, label string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventTick, map[string]any{
		"elapsed": elapsed,
		"label":   label,
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func screenMessage(status domain.Status) string {
	switch status.Screen {
	case domain.ScreenTopicSelection:
		return "Elige un tema para practicar"
	case domain.ScreenRecording:
		return status.Recorder.Headline
	case domain.ScreenAnalyzing:
		return "Analizando tu respuesta..."
	case domain.ScreenFeedback:
		return view.Title
	case domain.ScreenError:
		return status.Message
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup, domain.ErrorCodeMicrophone, domain.ErrorCodeAudioStop, domain.ErrorCodeAnalysis:
		return usecase.ErrorTitle(code)
	default:
		if detail == "" {
			return usecase.ErrorTitle(code)
		}
		return detail
	}
}

func dataURL(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
