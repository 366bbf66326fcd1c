package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/gin-gonic/gin"

	"deletutor/internal/domain"
	"deletutor/internal/topics"
	"deletutor/internal/view"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterListsTopics(t *testing.T) {
	t.Parallel()

	router := NewRouter(&fakeSession{}, nil, nil, []string{"http://localhost:5173"})
	rec := serve(router, http.MethodGet, "/api/topics", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	var body struct {
		Topics []domain.Topic `json:"topics"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(body.Topics) != 6 || body.Topics[0].ID != "trabajo" {
		t.Fatalf("unexpected topics: %+v", body.Topics)
	}
}

func TestRouterSelectTopic(t *testing.T) {
	t.Parallel()

	session := &fakeSession{}
	router := NewRouter(session, nil, nil, nil)

	rec := serve(router, http.MethodPost, "/api/session/topic", `{"topicId":"viajes"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d %s", rec.Code, rec.Body.String())
	}
	if session.selected != "viajes" {
		t.Fatalf("controller did not receive the topic: %q", session.selected)
	}
	var status domain.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if status.Screen != domain.ScreenRecording {
		t.Fatalf("unexpected screen: %s", status.Screen)
	}

	rec = serve(router, http.MethodPost, "/api/session/topic", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without topicId, got %d", rec.Code)
	}
}

func TestRouterMapsDomainErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidTransition, http.StatusConflict},
		{domain.ErrNoRecording, http.StatusConflict},
		{domain.ErrRecordingTooShort, http.StatusUnprocessableEntity},
		{domain.ErrPermissionDenied, http.StatusForbidden},
		{domain.ErrDeviceUnavailable, http.StatusServiceUnavailable},
		{domain.ErrUnknownTopic, http.StatusNotFound},
	}
	for _, tc := range cases {
		router := NewRouter(&fakeSession{err: tc.err}, nil, nil, nil)
		rec := serve(router, http.MethodPost, "/api/session/recording/analyze", "")
		if rec.Code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"error"`) {
			t.Fatalf("%v: expected error body, got %s", tc.err, rec.Body.String())
		}
	}
}

func TestRouterPlayback(t *testing.T) {
	t.Parallel()

	session := &fakeSession{playbackHandle: "h-1", playbackData: []byte("OggS")}
	router := NewRouter(session, nil, nil, nil)

	rec := serve(router, http.MethodGet, "/api/recording/h-1", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "OggS" {
		t.Fatalf("unexpected playback: %d %q", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "audio/ogg" {
		t.Fatalf("unexpected content type: %q", got)
	}

	rec = serve(router, http.MethodGet, "/api/recording/stale", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for stale handle, got %d", rec.Code)
	}
}

func TestRouterResultAndTranscriptToggle(t *testing.T) {
	t.Parallel()

	session := &fakeSession{}
	router := NewRouter(session, nil, nil, nil)

	rec := serve(router, http.MethodGet, "/api/session/result", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"scoreLabel":"78/100"`) {
		t.Fatalf("unexpected result: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, http.MethodPost, "/api/session/result/transcript", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"transcriptVisible":true`) {
		t.Fatalf("unexpected toggle: %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouterServesFrontend(t *testing.T) {
	t.Parallel()

	assets := fstest.MapFS{"index.html": {Data: []byte("<h1>Tutor DELE B2</h1>")}}
	router := NewRouter(&fakeSession{}, nil, assets, nil)

	rec := serve(router, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Tutor DELE B2") {
		t.Fatalf("unexpected index: %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(router, http.MethodGet, "/api/nothing", "")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), `"error"`) {
		t.Fatalf("unknown api route must be a json 404, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouterCORSPreflight(t *testing.T) {
	t.Parallel()

	router := NewRouter(&fakeSession{}, nil, nil, []string{"http://localhost:5173"})
	req := httptest.NewRequest(http.MethodOptions, "/api/session/topic", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("unexpected preflight status: %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allow origin: %q", got)
	}
}

func TestRouterTrustsOnlyLoopbackProxy(t *testing.T) {
	t.Parallel()

	router := NewRouter(&fakeSession{}, nil, nil, nil)
	router.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, c.ClientIP()) })

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Body.String() != "203.0.113.7" {
		t.Fatalf("expected forwarded client from loopback proxy, got %q", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "198.51.100.9:5000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Body.String() != "198.51.100.9" {
		t.Fatalf("untrusted peer must not set the client ip, got %q", rec.Body.String())
	}
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type fakeSession struct {
	mu             sync.Mutex
	err            error
	selected       string
	playbackHandle string
	playbackData   []byte
	showTranscript bool
}

func (f *fakeSession) Topics() []domain.Topic { return topics.Default().All() }

func (f *fakeSession) Status() domain.Status {
	return domain.Status{Screen: domain.ScreenTopicSelection, HeaderLabel: "Inicio"}
}

func (f *fakeSession) SelectTopic(id string) (domain.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.Status(), f.err
	}
	f.selected = id
	return domain.Status{Screen: domain.ScreenRecording, HeaderLabel: id}, nil
}

func (f *fakeSession) action() (domain.Status, error) {
	if f.err != nil {
		return f.Status(), f.err
	}
	return domain.Status{Screen: domain.ScreenRecording}, nil
}

func (f *fakeSession) StartRecording(context.Context) (domain.Status, error)  { return f.action() }
func (f *fakeSession) StopRecording() (domain.Status, error)                  { return f.action() }
func (f *fakeSession) RepeatRecording(context.Context) (domain.Status, error) { return f.action() }
func (f *fakeSession) ResetRecording() (domain.Status, error)                 { return f.action() }
func (f *fakeSession) Analyze() (domain.Status, error)                        { return f.action() }
func (f *fakeSession) Cancel() (domain.Status, error)                         { return f.action() }
func (f *fakeSession) Reset() (domain.Status, error)                          { return f.action() }
func (f *fakeSession) Retry() (domain.Status, error)                          { return f.action() }

func (f *fakeSession) Result() (view.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return view.Render(domain.AnalysisResult{Score: 78, Transcription: "hola"}, f.showTranscript), nil
}

func (f *fakeSession) ToggleTranscript() (view.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.showTranscript = !f.showTranscript
	return view.Render(domain.AnalysisResult{Score: 78, Transcription: "hola"}, f.showTranscript), nil
}

func (f *fakeSession) Playback(handle string) ([]byte, string, error) {
	if handle == "" || handle != f.playbackHandle {
		return nil, "", domain.ErrPlaybackNotCurrent
	}
	return f.playbackData, "audio/ogg", nil
}
