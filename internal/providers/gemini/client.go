package gemini

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"

	"deletutor/internal/analysis"
	"deletutor/internal/domain"
)

const (
	DefaultModel = "gemini-2.5-flash"
	// Temperature is kept low: the task is evaluative, not creative.
	Temperature     float32 = 0.4
	fallbackMimeType        = "audio/webm"
)

// Config controls the Gemini analysis client.
type Config struct {
	APIKey     string
	Model      string
	APIBaseURL string
	HTTPClient *http.Client
}

// Provider implements ports.Analyzer on top of the Gemini API.
type Provider struct {
	cfg Config

	mu     sync.Mutex
	client *genai.Client
}

func NewProvider(cfg Config) *Provider {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &Provider{cfg: cfg}
}

// Analyze sends the recording with the rubric and returns the validated
// result. A missing credential fails before any network call.
func (p *Provider) Analyze(ctx context.Context, artifact domain.RecordingArtifact, topicContext string) (domain.AnalysisResult, error) {
	if p.cfg.APIKey == "" {
		return domain.AnalysisResult{}, fmt.Errorf("%w: set GEMINI_API_KEY", domain.ErrMissingCredential)
	}
	if len(artifact.Data) == 0 {
		return domain.AnalysisResult{}, fmt.Errorf("%w: empty recording", domain.ErrAnalysisFailed)
	}

	client, err := p.getClient(ctx)
	if err != nil {
		return domain.AnalysisResult{}, domain.TransportFailure(domain.ReasonUnreachable, 0, fmt.Errorf("failed to create Gemini client: %w", err))
	}

	mimeType := artifact.MimeType
	if mimeType == "" {
		mimeType = fallbackMimeType
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(artifact.Data, mimeType),
			genai.NewPartFromText(analysis.Prompt(topicContext)),
		}, genai.RoleUser),
	}

	resp, err := client.Models.GenerateContent(ctx, p.cfg.Model, contents, generateConfig())
	if err != nil {
		return domain.AnalysisResult{}, classifyTransportError(err)
	}

	result, err := analysis.Decode(resp.Text())
	if err != nil {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			log.Printf("[analysis] prompt blocked: %s", resp.PromptFeedback.BlockReason)
		}
		return domain.AnalysisResult{}, err
	}
	return result, nil
}

func (p *Provider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	cc := &genai.ClientConfig{
		APIKey:     p.cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.cfg.HTTPClient,
	}
	if p.cfg.APIBaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: p.cfg.APIBaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

func generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(analysis.SystemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(Temperature),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    ResponseSchema(),
	}
}

func classifyTransportError(err error) error {
	status := 0
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.Code
	case errors.As(err, &apiErrPtr) && apiErrPtr != nil:
		status = apiErrPtr.Code
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.TransportFailure(domain.ReasonCredentialsRejected, status, err)
	case status == http.StatusBadRequest && strings.Contains(strings.ToLower(err.Error()), "api key"):
		return domain.TransportFailure(domain.ReasonCredentialsRejected, status, err)
	case status != 0:
		return domain.TransportFailure(domain.ReasonServiceStatus, status, err)
	default:
		return domain.TransportFailure(domain.ReasonUnreachable, 0, err)
	}
}
