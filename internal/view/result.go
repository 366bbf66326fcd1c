// Package view turns an AnalysisResult into what the feedback screen shows.
package view

import (
	"fmt"
	"sync"

	"deletutor/internal/domain"
)

// Band is the presentation tier of a score.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandFair      Band = "fair"
	BandNeedsWork Band = "needs_work"
)

const (
	Title              = "Análisis DELE B2"
	ScoreCaption       = "Estimación"
	TranscriptLabel    = "Ver Transcripción"
	ScaffoldingTitle   = "Para mejorar (Nivel B2/C1)"
	ScaffoldingIntro   = "Aquí tienes algunas estructuras o vocabulario avanzado que podrías usar en este contexto:"
	ResetLabel         = "Practicar otro tema"
	scoreLabelTemplate = "%d/100"
)

// BandFor maps a score to its tier. Used for styling only.
func BandFor(score int) Band {
	switch {
	case score >= 85:
		return BandExcellent
	case score >= 70:
		return BandGood
	case score >= 50:
		return BandFair
	default:
		return BandNeedsWork
	}
}

// Criterion is one feedback card.
type Criterion struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Suggestion is one numbered scaffolding entry.
type Suggestion struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Result is the render model of the feedback screen.
type Result struct {
	Title             string       `json:"title"`
	Score             int          `json:"score"`
	ScoreLabel        string       `json:"scoreLabel"`
	ScoreCaption      string       `json:"scoreCaption"`
	Band              Band         `json:"band"`
	GeneralFeedback   string       `json:"generalFeedback"`
	Criteria          []Criterion  `json:"criteria"`
	ScaffoldingTitle  string       `json:"scaffoldingTitle"`
	ScaffoldingIntro  string       `json:"scaffoldingIntro"`
	Scaffolding       []Suggestion `json:"scaffolding"`
	TranscriptLabel   string       `json:"transcriptLabel"`
	TranscriptVisible bool         `json:"transcriptVisible"`
	Transcription     string       `json:"transcription,omitempty"`
	ResetLabel        string       `json:"resetLabel"`
}

// Render builds the screen model. The transcription is only included when
// visible.
func Render(result domain.AnalysisResult, transcriptVisible bool) Result {
	out := Result{
		Title:           Title,
		Score:           result.Score,
		ScoreLabel:      fmt.Sprintf(scoreLabelTemplate, result.Score),
		ScoreCaption:    ScoreCaption,
		Band:            BandFor(result.Score),
		GeneralFeedback: result.GeneralFeedback,
		Criteria: []Criterion{
			{Key: "grammar", Label: "Gramática", Text: result.Feedback.Grammar},
			{Key: "vocabulary", Label: "Léxico", Text: result.Feedback.Vocabulary},
			{Key: "pronunciation", Label: "Pronunciación", Text: result.Feedback.Pronunciation},
			{Key: "fluency", Label: "Fluidez", Text: result.Feedback.Fluency},
			{Key: "adequacy", Label: "Adecuación a la Tarea", Text: result.Feedback.Adequacy},
		},
		ScaffoldingTitle:  ScaffoldingTitle,
		ScaffoldingIntro:  ScaffoldingIntro,
		Scaffolding:       make([]Suggestion, 0, len(result.Scaffolding)),
		TranscriptLabel:   TranscriptLabel,
		TranscriptVisible: transcriptVisible,
		ResetLabel:        ResetLabel,
	}
	for i, item := range result.Scaffolding {
		out.Scaffolding = append(out.Scaffolding, Suggestion{Number: i + 1, Text: item})
	}
	if transcriptVisible {
		out.Transcription = result.Transcription
	}
	return out
}

// Display holds the one piece of local state the feedback screen has: whether
// the transcription is expanded. Showing a new result collapses it.
type Display struct {
	mu             sync.Mutex
	result         *domain.AnalysisResult
	showTranscript bool
}

func (d *Display) Show(result domain.AnalysisResult) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = &result
	d.showTranscript = false
}

func (d *Display) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.result = nil
	d.showTranscript = false
}

// View returns the current render model, or false when nothing is shown.
func (d *Display) View() (Result, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.result == nil {
		return Result{}, false
	}
	return Render(*d.result, d.showTranscript), true
}

// ToggleTranscript flips transcript visibility.
func (d *Display) ToggleTranscript() (Result, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.result == nil {
		return Result{}, false
	}
	d.showTranscript = !d.showTranscript
	return Render(*d.result, d.showTranscript), true
}
