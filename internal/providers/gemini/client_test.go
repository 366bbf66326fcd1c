package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"deletutor/internal/domain"
)

const modelJSON = `{"transcription":"Me encanta viajar.","feedback":{"grammar":"g","vocabulary":"v","pronunciation":"p","fluency":"f","adequacy":"a"},"generalFeedback":"Bien.","scaffolding":["a raíz de","compaginar","no obstante"],"score":72}`

func TestAnalyzeWithoutCredentialMakesNoCall(t *testing.T) {
	t.Parallel()

	server := newFakeGemini(t, http.StatusOK, modelJSON)
	provider := NewProvider(Config{APIKey: "  ", APIBaseURL: server.url()})

	_, err := provider.Analyze(context.Background(), sampleArtifact(), "viajes")
	if !errors.Is(err, domain.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if got := server.callCount(); got != 0 {
		t.Fatalf("expected no requests, got %d", got)
	}
}

func TestAnalyzeSendsAudioRubricAndSchema(t *testing.T) {
	t.Parallel()

	server := newFakeGemini(t, http.StatusOK, modelJSON)
	provider := NewProvider(Config{APIKey: "test-key", APIBaseURL: server.url()})

	result, err := provider.Analyze(context.Background(), sampleArtifact(), "Hablar de un viaje reciente.")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if result.Score != 72 || result.Transcription != "Me encanta viajar." {
		t.Fatalf("unexpected result: %+v", result)
	}
	if server.callCount() != 1 {
		t.Fatalf("expected one request, got %d", server.callCount())
	}

	body := server.lastBody()
	if !strings.Contains(body, base64.StdEncoding.EncodeToString([]byte("OggS-audio"))) {
		t.Fatalf("request is missing the inline audio: %s", body)
	}
	if !strings.Contains(body, `"audio/ogg"`) {
		t.Fatalf("request is missing the audio mime type: %s", body)
	}
	if !strings.Contains(body, "El tema seleccionado es: Hablar de un viaje reciente.") {
		t.Fatalf("request is missing the topic prompt: %s", body)
	}
	if !strings.Contains(body, "examen DELE B2") {
		t.Fatalf("request is missing the system instruction: %s", body)
	}
	if !strings.Contains(body, `"temperature":0.4`) {
		t.Fatalf("request is missing the temperature: %s", body)
	}
	if !strings.Contains(body, `"responseMimeType":"application/json"`) {
		t.Fatalf("request is missing the response mime type: %s", body)
	}
	if !strings.Contains(body, `"generalFeedback"`) {
		t.Fatalf("request is missing the response schema: %s", body)
	}
	if !strings.Contains(server.lastPath(), "gemini-2.5-flash:generateContent") {
		t.Fatalf("unexpected request path: %s", server.lastPath())
	}
}

func TestAnalyzeFallsBackToWebmMimeType(t *testing.T) {
	t.Parallel()

	server := newFakeGemini(t, http.StatusOK, modelJSON)
	provider := NewProvider(Config{APIKey: "test-key", APIBaseURL: server.url()})

	artifact := sampleArtifact()
	artifact.MimeType = ""
	if _, err := provider.Analyze(context.Background(), artifact, "viajes"); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if !strings.Contains(server.lastBody(), `"audio/webm"`) {
		t.Fatalf("expected audio/webm fallback: %s", server.lastBody())
	}
}

func TestAnalyzeEmptyTextIsAnalysisEmpty(t *testing.T) {
	t.Parallel()

	server := newFakeGemini(t, http.StatusOK, "")
	provider := NewProvider(Config{APIKey: "test-key", APIBaseURL: server.url()})

	_, err := provider.Analyze(context.Background(), sampleArtifact(), "viajes")
	if !errors.Is(err, domain.ErrAnalysisEmpty) {
		t.Fatalf("expected ErrAnalysisEmpty, got %v", err)
	}
}

func TestAnalyzeIncompleteResultIsMalformed(t *testing.T) {
	t.Parallel()

	server := newFakeGemini(t, http.StatusOK, `{"transcription":"hola","score":50}`)
	provider := NewProvider(Config{APIKey: "test-key", APIBaseURL: server.url()})

	result, err := provider.Analyze(context.Background(), sampleArtifact(), "viajes")
	if !errors.Is(err, domain.ErrAnalysisMalformed) {
		t.Fatalf("expected ErrAnalysisMalformed, got %v", err)
	}
	if result.Transcription != "" {
		t.Fatalf("expected no partial result, got %+v", result)
	}
}

func TestAnalyzeRejectedCredentialIsAnalysisFailed(t *testing.T) {
	t.Parallel()

	server := newFakeGemini(t, http.StatusUnauthorized, "")
	provider := NewProvider(Config{APIKey: "bad-key", APIBaseURL: server.url()})

	_, err := provider.Analyze(context.Background(), sampleArtifact(), "viajes")
	if !errors.Is(err, domain.ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
	if errors.Is(err, domain.ErrAnalysisMalformed) || errors.Is(err, domain.ErrAnalysisEmpty) {
		t.Fatalf("transport failure must not look like a contract violation: %v", err)
	}
}

func TestAnalyzeUnreachableService(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL + "/"
	server.Close()

	provider := NewProvider(Config{APIKey: "test-key", APIBaseURL: baseURL})
	_, err := provider.Analyze(context.Background(), sampleArtifact(), "viajes")
	if !errors.Is(err, domain.ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
	var analysisErr *domain.AnalysisError
	if !errors.As(err, &analysisErr) || analysisErr.Reason != domain.ReasonUnreachable {
		t.Fatalf("expected unreachable reason, got %v", err)
	}
}

func TestAnalyzeCancelledContext(t *testing.T) {
	t.Parallel()

	server := newFakeGemini(t, http.StatusOK, modelJSON)
	provider := NewProvider(Config{APIKey: "test-key", APIBaseURL: server.url()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := provider.Analyze(ctx, sampleArtifact(), "viajes")
	if !errors.Is(err, domain.ErrAnalysisFailed) {
		t.Fatalf("expected ErrAnalysisFailed, got %v", err)
	}
}

func TestResponseSchemaRequiresEveryField(t *testing.T) {
	t.Parallel()

	schema := ResponseSchema()
	if len(schema.Required) != 5 {
		t.Fatalf("unexpected required fields: %v", schema.Required)
	}
	feedback := schema.Properties["feedback"]
	if feedback == nil || len(feedback.Required) != 5 {
		t.Fatalf("feedback schema must require all criteria: %+v", feedback)
	}
	if schema.Properties["scaffolding"].Items == nil {
		t.Fatalf("scaffolding must be a list of strings")
	}
}

func sampleArtifact() domain.RecordingArtifact {
	return domain.RecordingArtifact{Data: []byte("OggS-audio"), MimeType: "audio/ogg", DurationSeconds: 12}
}

type fakeGemini struct {
	server *httptest.Server

	mu    sync.Mutex
	calls int
	body  string
	path  string
}

func newFakeGemini(t *testing.T, status int, text string) *fakeGemini {
	t.Helper()

	f := &fakeGemini{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls++
		f.body = string(raw)
		f.path = r.URL.Path
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"code":401,"message":"API key not valid","status":"UNAUTHENTICATED"}}`))
			return
		}

		parts := []map[string]any{}
		if text != "" {
			parts = append(parts, map[string]any{"text": text})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"role": "model", "parts": parts},
			}},
		})
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGemini) url() string { return f.server.URL + "/" }

func (f *fakeGemini) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeGemini) lastBody() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.body
}

func (f *fakeGemini) lastPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.path
}
