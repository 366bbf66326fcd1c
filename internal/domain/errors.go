package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied   = errors.New("microphone permission denied")
	ErrDeviceUnavailable  = errors.New("no capture device available")
	ErrMissingCredential  = errors.New("analysis service credential is not configured")
	ErrAnalysisFailed     = errors.New("analysis request failed")
	ErrAnalysisEmpty      = errors.New("analysis service returned no content")
	ErrAnalysisMalformed  = errors.New("analysis response is malformed")
	ErrNotRecording       = errors.New("recorder is not recording")
	ErrNoRecording        = errors.New("no finished recording")
	ErrRecorderBusy       = errors.New("recorder is busy")
	ErrRecordingTooShort  = errors.New("recording is shorter than the minimum duration")
	ErrInvalidTransition  = errors.New("action not available in the current state")
	ErrUnknownTopic       = errors.New("unknown topic")
	ErrPlaybackNotCurrent = errors.New("playback handle is no longer valid")
)

// ErrorKind is a stable name for an error class, used in logs and UI codes.
type ErrorKind string

const (
	KindPermissionDenied  ErrorKind = "permission_denied"
	KindDeviceUnavailable ErrorKind = "device_unavailable"
	KindMissingCredential ErrorKind = "missing_credential"
	KindAnalysisFailed    ErrorKind = "analysis_failed"
	KindAnalysisEmpty     ErrorKind = "analysis_empty"
	KindAnalysisMalformed ErrorKind = "analysis_malformed"
	KindUnknown           ErrorKind = "unknown"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrPermissionDenied, KindPermissionDenied},
	{ErrDeviceUnavailable, KindDeviceUnavailable},
	{ErrMissingCredential, KindMissingCredential},
	{ErrAnalysisEmpty, KindAnalysisEmpty},
	{ErrAnalysisMalformed, KindAnalysisMalformed},
	{ErrAnalysisFailed, KindAnalysisFailed},
}

// KindOf classifies err against the capture and analysis taxonomy.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// FailureReason distinguishes transport-level analysis failures.
type FailureReason string

const (
	ReasonUnreachable         FailureReason = "unreachable"
	ReasonCredentialsRejected FailureReason = "credentials_rejected"
	ReasonServiceStatus       FailureReason = "service_status"
	ReasonTimeout             FailureReason = "timeout"
	ReasonCancelled           FailureReason = "cancelled"
)

// AnalysisError wraps a failure of the analysis step with its kind and cause.
type AnalysisError struct {
	Kind       error
	Reason     FailureReason
	StatusCode int
	Err        error
}

func (e *AnalysisError) Error() string {
	msg := e.Kind.Error()
	if e.Reason != "" {
		msg += " (" + string(e.Reason)
		if e.StatusCode != 0 {
			msg += fmt.Sprintf(", status %d", e.StatusCode)
		}
		msg += ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AnalysisError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Malformed builds an AnalysisMalformed error around cause.
func Malformed(cause error) error {
	return &AnalysisError{Kind: ErrAnalysisMalformed, Err: cause}
}

// TransportFailure builds an AnalysisFailed error, deriving timeout and
// cancellation reasons from the context error when present.
func TransportFailure(reason FailureReason, status int, cause error) error {
	switch {
	case errors.Is(cause, context.DeadlineExceeded):
		reason = ReasonTimeout
	case errors.Is(cause, context.Canceled):
		reason = ReasonCancelled
	}
	return &AnalysisError{Kind: ErrAnalysisFailed, Reason: reason, StatusCode: status, Err: cause}
}
