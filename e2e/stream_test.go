package e2e

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	fws "github.com/fasthttp/websocket"
	"github.com/google/uuid"

	"github.com/reelcraft/api/internal/model"
)

// startServer binds the fiber app to a real loopback listener so the
// websocket route can be dialed over TCP.
func startServer(t *testing.T, ta *testApp) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	go func() { _ = ta.app.Listener(ln) }()
	t.Cleanup(func() { _ = ta.app.Shutdown() })

	return ln.Addr().String()
}

func dialStream(t *testing.T, addr, videoID string) *fws.Conn {
	t.Helper()

	url := "ws://" + addr + "/ws/videos/" + videoID
	var conn *fws.Conn
	var err error
	// The listener goroutine may not be accepting yet on the first dial.
	for attempt := 0; attempt < 20; attempt++ {
		conn, _, err = fws.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Cleanup(func() { conn.Close() })
			return conn
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("failed to dial %s: %v", url, err)
	return nil
}

func readStreamEvent(t *testing.T, conn *fws.Conn) (model.StreamEvent, error) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(3 * time.Second)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		return model.StreamEvent{}, err
	}

	var event model.StreamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		t.Fatalf("failed to parse stream event: %v\npayload: %s", err, data)
	}
	return event, nil
}

// readStreamEventSkippingHeartbeats reads until a non-heartbeat event or
// stream close.
func readStreamEventSkippingHeartbeats(t *testing.T, conn *fws.Conn) (model.StreamEvent, error) {
	t.Helper()
	for {
		event, err := readStreamEvent(t, conn)
		if err != nil {
			return event, err
		}
		if event.Type != model.StreamEventHeartbeat {
			return event, nil
		}
	}
}

func TestStream_CompletedVideo(t *testing.T) {
	ta := setupApp(t)
	addr := startServer(t, ta)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/videos/", validCreateBody())
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	created := parseJSON(t, resp)
	videoID := created["video"].(map[string]interface{})["id"].(string)

	waitForStatus(t, ta, videoID, "completed")

	conn := dialStream(t, addr, videoID)

	// First frame is always the status snapshot.
	event, err := readStreamEvent(t, conn)
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	if event.Type != model.StreamEventStatus {
		t.Fatalf("expected first event 'status', got %s", event.Type)
	}
	if event.Data == nil || event.Data.ID != videoID {
		t.Error("expected snapshot to carry the video record")
	}
	if event.Data.Status != model.VideoStatusCompleted {
		t.Errorf("expected completed snapshot, got %s", event.Data.Status)
	}

	// The retained terminal event follows, then the server closes.
	event, err = readStreamEventSkippingHeartbeats(t, conn)
	if err != nil {
		t.Fatalf("failed to read terminal event: %v", err)
	}
	if event.Type != model.StreamEventComplete {
		t.Errorf("expected complete event, got %s", event.Type)
	}

	if _, err := readStreamEvent(t, conn); err == nil {
		t.Error("expected the connection to close after the terminal event")
	}
}

func TestStream_HeartbeatsWhileQuiet(t *testing.T) {
	ta := setupApp(t)
	addr := startServer(t, ta)

	// A processing record with no worker attached: the stream stays open
	// and must emit heartbeats on its own.
	now := time.Now().UTC()
	video := &model.Video{
		ID:          uuid.New().String(),
		Title:       "stalled",
		Status:      model.VideoStatusProcessing,
		CurrentStep: model.StageGenerating,
		Progress:    25,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := ta.store.Create(context.Background(), video); err != nil {
		t.Fatalf("failed to seed video: %v", err)
	}

	conn := dialStream(t, addr, video.ID)

	event, err := readStreamEvent(t, conn)
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	if event.Type != model.StreamEventStatus {
		t.Fatalf("expected first event 'status', got %s", event.Type)
	}

	// With no publishes, the next frames can only be heartbeats, roughly
	// every 500ms.
	heartbeats := 0
	deadline := time.Now().Add(1500 * time.Millisecond)
	for time.Now().Before(deadline) && heartbeats < 2 {
		event, err := readStreamEvent(t, conn)
		if err != nil {
			t.Fatalf("stream closed while waiting for heartbeats: %v", err)
		}
		if event.Type == model.StreamEventHeartbeat {
			heartbeats++
		}
	}
	if heartbeats < 2 {
		t.Errorf("expected at least 2 heartbeats over a quiet period, got %d", heartbeats)
	}
}

func TestStream_UnknownVideo(t *testing.T) {
	ta := setupApp(t)
	addr := startServer(t, ta)

	conn := dialStream(t, addr, uuid.New().String())

	event, err := readStreamEvent(t, conn)
	if err != nil {
		t.Fatalf("failed to read error event: %v", err)
	}
	if event.Type != model.StreamEventError {
		t.Errorf("expected error event for unknown video, got %s", event.Type)
	}

	if _, err := readStreamEvent(t, conn); err == nil {
		t.Error("expected the connection to close after the error event")
	}
}

func TestStream_LiveProgressThenTerminal(t *testing.T) {
	ta := setupApp(t)
	addr := startServer(t, ta)

	now := time.Now().UTC()
	video := &model.Video{
		ID:        uuid.New().String(),
		Title:     "live",
		Status:    model.VideoStatusProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := ta.store.Create(context.Background(), video); err != nil {
		t.Fatalf("failed to seed video: %v", err)
	}

	conn := dialStream(t, addr, video.ID)
	if event, err := readStreamEvent(t, conn); err != nil || event.Type != model.StreamEventStatus {
		t.Fatalf("expected status snapshot, got %v (err %v)", event.Type, err)
	}

	// Publish through the hub as a worker would.
	ta.hub.Publish(video.ID, model.StreamEvent{
		Type:      model.StreamEventProgress,
		Progress:  45,
		Message:   "Reviewing and improving scenes",
		Timestamp: time.Now().UTC(),
	})

	event, err := readStreamEventSkippingHeartbeats(t, conn)
	if err != nil {
		t.Fatalf("failed to read progress event: %v", err)
	}
	if event.Type != model.StreamEventProgress || event.Progress != 45 {
		t.Errorf("expected progress 45, got %s/%d", event.Type, event.Progress)
	}

	ta.hub.Publish(video.ID, model.StreamEvent{
		Type:      model.StreamEventError,
		Message:   "scene generation failed",
		Timestamp: time.Now().UTC(),
	})

	event, err = readStreamEventSkippingHeartbeats(t, conn)
	if err != nil {
		t.Fatalf("failed to read terminal event: %v", err)
	}
	if event.Type != model.StreamEventError {
		t.Errorf("expected error event, got %s", event.Type)
	}

	if _, err := readStreamEvent(t, conn); err == nil {
		t.Error("expected the connection to close after the terminal event")
	}
}
