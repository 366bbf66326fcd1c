package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"deletutor/internal/domain"
)

func TestHubBroadcastsSessionEvents(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	server := httptest.NewServer(NewRouter(&fakeSession{}, hub, nil, nil))
	defer server.Close()
	defer hub.Close()

	conn := dialHub(t, server, nil)
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.StatusChanged(domain.Status{Screen: domain.ScreenRecording, HeaderLabel: "Viajes y Turismo"})
	event := readEvent(t, conn)
	if event.Type != EventSession || event.Status == nil || event.Status.HeaderLabel != "Viajes y Turismo" {
		t.Fatalf("unexpected session event: %+v", event)
	}

	hub.RecorderTick(65, "1:05")
	event = readEvent(t, conn)
	if event.Type != EventTick || event.Elapsed != 65 || event.Label != "1:05" {
		t.Fatalf("unexpected tick event: %+v", event)
	}

	hub.SessionError(domain.ErrorCodeAnalysis, "detalle")
	event = readEvent(t, conn)
	if event.Type != EventError || event.Code != domain.ErrorCodeAnalysis || event.Message != "Error de Análisis" || event.Detail != "detalle" {
		t.Fatalf("unexpected error event: %+v", event)
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	t.Parallel()

	hub := NewHub(nil)
	server := httptest.NewServer(NewRouter(&fakeSession{}, hub, nil, nil))
	defer server.Close()

	conn := dialHub(t, server, nil)
	waitForClients(t, hub, 1)
	_ = conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubRejectsForeignOrigins(t *testing.T) {
	t.Parallel()

	hub := NewHub([]string{"http://localhost:5173"})
	server := httptest.NewServer(NewRouter(&fakeSession{}, hub, nil, nil))
	defer server.Close()

	header := http.Header{"Origin": []string{"http://evil.test"}}
	if _, _, err := websocket.DefaultDialer.Dial(wsURL(server), header); err == nil {
		t.Fatalf("expected foreign origin to be rejected")
	}

	conn := dialHub(t, server, http.Header{"Origin": []string{"http://localhost:5173"}})
	_ = conn.Close()
}

func dialHub(t *testing.T, server *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), header)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func waitForClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return event
}
