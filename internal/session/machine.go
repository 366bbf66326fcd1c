// Package session defines the five practice screens as a closed sum type
// with a pure transition function.
package session

import "deletutor/internal/domain"

// State is one of TopicSelection, Recording, Analyzing, Feedback or Failed.
type State interface {
	Screen() domain.Screen
	isState()
}

type TopicSelection struct{}

type Recording struct {
	Topic domain.Topic
}

type Analyzing struct {
	Topic    domain.Topic
	Artifact domain.RecordingArtifact
}

type Feedback struct {
	Topic  domain.Topic
	Result domain.AnalysisResult
}

// Failed is the recoverable error screen. It keeps the topic so a retry
// goes straight back to recording.
type Failed struct {
	Message string
	Topic   domain.Topic
}

func (TopicSelection) Screen() domain.Screen { return domain.ScreenTopicSelection }
func (Recording) Screen() domain.Screen      { return domain.ScreenRecording }
func (Analyzing) Screen() domain.Screen      { return domain.ScreenAnalyzing }
func (Feedback) Screen() domain.Screen       { return domain.ScreenFeedback }
func (Failed) Screen() domain.Screen         { return domain.ScreenError }

func (TopicSelection) isState() {}
func (Recording) isState()      {}
func (Analyzing) isState()      {}
func (Feedback) isState()       {}
func (Failed) isState()         {}

// Event is an input to Next.
type Event interface {
	isEvent()
}

type TopicChosen struct {
	Topic domain.Topic
}

type ArtifactProduced struct {
	Artifact domain.RecordingArtifact
}

type Cancelled struct{}

type AnalysisResolved struct {
	Result domain.AnalysisResult
}

type AnalysisRejected struct {
	Message string
}

type ResetRequested struct{}

type RetryRequested struct{}

func (TopicChosen) isEvent()      {}
func (ArtifactProduced) isEvent() {}
func (Cancelled) isEvent()        {}
func (AnalysisResolved) isEvent() {}
func (AnalysisRejected) isEvent() {}
func (ResetRequested) isEvent()   {}
func (RetryRequested) isEvent()   {}

// Initial is the state at startup and after a reset.
func Initial() State { return TopicSelection{} }

// Next returns the state that follows current on event. Events the
// current state does not accept leave it unchanged and report false.
func Next(current State, event Event) (State, bool) {
	switch s := current.(type) {
	case TopicSelection:
		if e, ok := event.(TopicChosen); ok {
			return Recording{Topic: e.Topic}, true
		}
	case Recording:
		switch e := event.(type) {
		case ArtifactProduced:
			return Analyzing{Topic: s.Topic, Artifact: e.Artifact}, true
		case Cancelled:
			return TopicSelection{}, true
		}
	case Analyzing:
		switch e := event.(type) {
		case AnalysisResolved:
			return Feedback{Topic: s.Topic, Result: e.Result}, true
		case AnalysisRejected:
			return Failed{Message: e.Message, Topic: s.Topic}, true
		}
	case Feedback:
		if _, ok := event.(ResetRequested); ok {
			return TopicSelection{}, true
		}
	case Failed:
		switch event.(type) {
		case ResetRequested:
			return TopicSelection{}, true
		case RetryRequested:
			return Recording{Topic: s.Topic}, true
		}
	}
	return current, false
}

// TopicOf returns the topic a state retains, if any.
func TopicOf(state State) (domain.Topic, bool) {
	switch s := state.(type) {
	case Recording:
		return s.Topic, true
	case Analyzing:
		return s.Topic, true
	case Feedback:
		return s.Topic, true
	case Failed:
		return s.Topic, true
	}
	return domain.Topic{}, false
}
