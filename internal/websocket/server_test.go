package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okorolev/tolmach/internal/pipeline"
	"github.com/okorolev/tolmach/internal/recognition"
	"github.com/okorolev/tolmach/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "console"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

func dialTestServer(t *testing.T, srv *Server) (*websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dial failed: %v", err)
	}
	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func waitForClients(t *testing.T, srv *Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if srv.ClientCount() == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", srv.ClientCount(), n)
}

func TestBroadcastReachesClient(t *testing.T) {
	srv := NewServer(testLogger(t))
	conn, cleanup := dialTestServer(t, srv)
	defer cleanup()

	waitForClients(t, srv, 1)

	srv.Deliver(pipeline.Item{
		Transcript: recognition.TranscriptSegment{Text: "Привет", Language: "ru"},
		CreatedAt:  time.Now().UTC(),
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read broadcast message: %v", err)
	}
	if msg.Type != "pipeline_item" {
		t.Errorf("message type = %q, want %q", msg.Type, "pipeline_item")
	}
	data, ok := msg.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("message data has unexpected shape: %T", msg.Data)
	}
	transcript, ok := data["transcript"].(map[string]interface{})
	if !ok {
		t.Fatalf("transcript missing from payload: %v", data)
	}
	if transcript["text"] != "Привет" {
		t.Errorf("transcript text = %v, want Привет", transcript["text"])
	}
}

func TestClientDisconnectIsObserved(t *testing.T) {
	srv := NewServer(testLogger(t))
	conn, cleanup := dialTestServer(t, srv)
	defer cleanup()

	waitForClients(t, srv, 1)
	conn.Close()
	waitForClients(t, srv, 0)
}

func TestCloseDisconnectsClients(t *testing.T) {
	srv := NewServer(testLogger(t))
	conn, cleanup := dialTestServer(t, srv)
	defer cleanup()

	waitForClients(t, srv, 1)
	srv.Close()

	if n := srv.ClientCount(); n != 0 {
		t.Errorf("client count after Close = %d, want 0", n)
	}

	// The server side closes; the client's next read fails
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 10; i++ {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
	t.Error("connection still readable after Close")
}

func TestClosedServerRefusesNewClients(t *testing.T) {
	srv := NewServer(testLogger(t))
	srv.Close()

	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	defer ts.Close()
	url := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		conn.Close()
		t.Fatal("dial succeeded against a closed hub")
	}
	if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("handshake response = %v, want 503", resp)
	}
	if n := srv.ClientCount(); n != 0 {
		t.Errorf("client count = %d, want 0", n)
	}
}

func TestBroadcastSkipsStalledClient(t *testing.T) {
	srv := NewServer(testLogger(t))
	_, cleanup := dialTestServer(t, srv)
	defer cleanup()

	waitForClients(t, srv, 1)

	// Far more messages than any client buffer holds; Broadcast must not block
	done := make(chan struct{})
	go func() {
		for i := 0; i < clientBufferSz*10; i++ {
			srv.Broadcast(Message{Type: "pipeline_item"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Broadcast blocked on a slow client")
	}
}
