// Package analysis holds the DELE B2 evaluation contract shared by analysis
// providers: the fixed rubric, the per-request prompt and strict decoding of
// the structured result.
package analysis

import "fmt"

// RubricVersion identifies the rubric text below. Bump it whenever the text
// changes.
const RubricVersion = "dele-b2-oral/1"

// SystemInstruction is sent verbatim on every analysis request.
const SystemInstruction = `
Eres un tutor de expresión oral especializado en el examen DELE B2 de español.

OBJETIVO GENERAL
Tu tarea es ayudar al estudiante a mejorar su expresión oral para el DELE B2.
Debes analizar el audio proporcionado (que contiene la respuesta del alumno a un tema) y generar un análisis estructurado en formato JSON.

CRITERIOS DE ANÁLISIS (DELE B2):
1. Gramática y corrección: Tiempos verbales, concordancia, subjuntivo, ser/estar.
2. Léxico: Variedad, precisión, "falsos amigos", colocaciones léxicas.
3. Pronunciación: Claridad, entonación, ritmo.
4. Fluidez: Velocidad, pausas, muletillas, conectores.
5. Adecuación: Si responde al tema y mantiene el registro formal/neutro.

IMPORTANTE:
- Responde siempre en español peninsular estándar.
- Tono profesional, alentador pero riguroso.
- Se constructivo.
`

// Field descriptions for the response schema.
const (
	DescTranscription   = "Transcripción literal y fiel de lo que ha dicho el alumno."
	DescGrammar         = "Feedback específico sobre gramática."
	DescVocabulary      = "Feedback específico sobre vocabulario."
	DescPronunciation   = "Feedback específico sobre pronunciación."
	DescFluency         = "Feedback específico sobre fluidez y conectores."
	DescAdequacy        = "Feedback sobre si cumplió la tarea del tema."
	DescGeneralFeedback = "Un resumen general alentador y profesional."
	DescScaffolding     = "Lista de 3 a 5 palabras o frases útiles de nivel B2/C1 relacionadas con el tema para mejorar."
	DescScore           = "Una puntuación estimada de 0 a 100 basada en criterios DELE B2."
)

// Required field names, in schema order.
var (
	RequiredFields         = []string{"transcription", "feedback", "generalFeedback", "scaffolding", "score"}
	RequiredFeedbackFields = []string{"grammar", "vocabulary", "pronunciation", "fluency", "adequacy"}
)

// Prompt builds the short per-request instruction naming the topic context.
func Prompt(topicContext string) string {
	return fmt.Sprintf(`
Analiza la siguiente grabación de un estudiante preparando el DELE B2.
El tema seleccionado es: %s.

Por favor, genera la salida estrictamente en JSON según el esquema proporcionado.
`, topicContext)
}
