package gemini

import (
	"google.golang.org/genai"

	"deletutor/internal/analysis"
)

// ResponseSchema constrains the model output to the AnalysisResult shape.
func ResponseSchema() *genai.Schema {
	text := func(description string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: description}
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"transcription": text(analysis.DescTranscription),
			"feedback": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"grammar":       text(analysis.DescGrammar),
					"vocabulary":    text(analysis.DescVocabulary),
					"pronunciation": text(analysis.DescPronunciation),
					"fluency":       text(analysis.DescFluency),
					"adequacy":      text(analysis.DescAdequacy),
				},
				Required:         append([]string(nil), analysis.RequiredFeedbackFields...),
				PropertyOrdering: append([]string(nil), analysis.RequiredFeedbackFields...),
			},
			"generalFeedback": text(analysis.DescGeneralFeedback),
			"scaffolding": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: analysis.DescScaffolding,
			},
			"score": {
				Type:        genai.TypeInteger,
				Description: analysis.DescScore,
				Minimum:     genai.Ptr(float64(analysis.MinScore)),
				Maximum:     genai.Ptr(float64(analysis.MaxScore)),
			},
		},
		Required:         append([]string(nil), analysis.RequiredFields...),
		PropertyOrdering: append([]string(nil), analysis.RequiredFields...),
	}
}
