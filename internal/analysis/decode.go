package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"deletutor/internal/domain"
)

const (
	MinScore           = 0
	MaxScore           = 100
	minScaffoldingHint = 3
	maxScaffoldingHint = 5
)

// wireResult mirrors the response schema with pointers so that absent keys
// can be told apart from zero values.
type wireResult struct {
	Transcription   *string          `json:"transcription"`
	Feedback        *wireFeedback    `json:"feedback"`
	GeneralFeedback *string          `json:"generalFeedback"`
	Scaffolding     *[]string        `json:"scaffolding"`
	Score           *json.RawMessage `json:"score"`
}

type wireFeedback struct {
	Grammar       *string `json:"grammar"`
	Vocabulary    *string `json:"vocabulary"`
	Pronunciation *string `json:"pronunciation"`
	Fluency       *string `json:"fluency"`
	Adequacy      *string `json:"adequacy"`
}

// Decode parses model output into an AnalysisResult. Empty text is
// ErrAnalysisEmpty; anything that is not a complete result is
// ErrAnalysisMalformed. No partial result is ever returned.
func Decode(text string) (domain.AnalysisResult, error) {
	cleaned := cleanModelOutput(text)
	if cleaned == "" {
		return domain.AnalysisResult{}, &domain.AnalysisError{Kind: domain.ErrAnalysisEmpty}
	}

	decoder := json.NewDecoder(strings.NewReader(cleaned))

	var wire wireResult
	if err := decoder.Decode(&wire); err != nil {
		return domain.AnalysisResult{}, domain.Malformed(fmt.Errorf("invalid JSON: %w", err))
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return domain.AnalysisResult{}, domain.Malformed(errors.New("invalid JSON: trailing data after result"))
	}

	var missing []string
	require := func(name string, present bool) {
		if !present {
			missing = append(missing, name)
		}
	}
	require("transcription", wire.Transcription != nil)
	require("feedback", wire.Feedback != nil)
	if wire.Feedback != nil {
		require("feedback.grammar", wire.Feedback.Grammar != nil)
		require("feedback.vocabulary", wire.Feedback.Vocabulary != nil)
		require("feedback.pronunciation", wire.Feedback.Pronunciation != nil)
		require("feedback.fluency", wire.Feedback.Fluency != nil)
		require("feedback.adequacy", wire.Feedback.Adequacy != nil)
	}
	require("generalFeedback", wire.GeneralFeedback != nil)
	require("scaffolding", wire.Scaffolding != nil)
	require("score", wire.Score != nil)
	if len(missing) > 0 {
		return domain.AnalysisResult{}, domain.Malformed(fmt.Errorf("missing required fields: %s", strings.Join(missing, ", ")))
	}

	score, err := parseScore(*wire.Score)
	if err != nil {
		return domain.AnalysisResult{}, domain.Malformed(err)
	}

	scaffolding := append([]string(nil), (*wire.Scaffolding)...)
	if n := len(scaffolding); n < minScaffoldingHint || n > maxScaffoldingHint {
		log.Printf("[analysis] scaffolding has %d items, expected %d-%d", n, minScaffoldingHint, maxScaffoldingHint)
	}

	return domain.AnalysisResult{
		Transcription: *wire.Transcription,
		Feedback: domain.Feedback{
			Grammar:       *wire.Feedback.Grammar,
			Vocabulary:    *wire.Feedback.Vocabulary,
			Pronunciation: *wire.Feedback.Pronunciation,
			Fluency:       *wire.Feedback.Fluency,
			Adequacy:      *wire.Feedback.Adequacy,
		},
		GeneralFeedback: *wire.GeneralFeedback,
		Scaffolding:     scaffolding,
		Score:           score,
	}, nil
}

// parseScore accepts only a JSON number literal.
func parseScore(raw json.RawMessage) (int, error) {
	literal := bytes.TrimSpace(raw)
	if len(literal) == 0 || (literal[0] != '-' && (literal[0] < '0' || literal[0] > '9')) {
		return 0, fmt.Errorf("score %s is not a number", literal)
	}
	decoder := json.NewDecoder(bytes.NewReader(literal))
	decoder.UseNumber()
	var number json.Number
	if err := decoder.Decode(&number); err != nil {
		return 0, fmt.Errorf("score %s is not a number: %w", literal, err)
	}

	value, err := number.Int64()
	if err != nil {
		// Integral floats such as 78.0 are accepted.
		f, ferr := number.Float64()
		if ferr != nil || f != float64(int64(f)) {
			return 0, fmt.Errorf("score %q is not an integer", number.String())
		}
		value = int64(f)
	}
	if value < MinScore || value > MaxScore {
		return 0, fmt.Errorf("score %d outside [%d,%d]", value, MinScore, MaxScore)
	}
	return int(value), nil
}

func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// IsContractViolation reports whether err means the service answered but
// the answer was unusable.
func IsContractViolation(err error) bool {
	return errors.Is(err, domain.ErrAnalysisEmpty) || errors.Is(err, domain.ErrAnalysisMalformed)
}
