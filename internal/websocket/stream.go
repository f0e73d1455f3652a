package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/reelcraft/api/internal/broadcast"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/store"
)

const heartbeatInterval = 500 * time.Millisecond

// StreamHandler serves per-video event streams over WebSocket. Each
// connection gets an initial status snapshot, then live events from the
// broadcaster with heartbeats in between.
type StreamHandler struct {
	store store.VideoStore
	hub   *broadcast.Broadcaster
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(videoStore store.VideoStore, hub *broadcast.Broadcaster) *StreamHandler {
	return &StreamHandler{
		store: videoStore,
		hub:   hub,
	}
}

// HandleConnection handles a WebSocket connection for one video
func (h *StreamHandler) HandleConnection(c *websocket.Conn, videoID string) {
	video, err := h.store.Get(context.Background(), videoID)
	if err != nil {
		msg := "Failed to load video"
		if errors.Is(err, store.ErrNotFound) {
			msg = "Video not found"
		}
		writeEvent(c, model.StreamEvent{
			Type:      model.StreamEventError,
			Message:   msg,
			Timestamp: time.Now().UTC(),
		})
		c.WriteMessage(websocket.CloseMessage, []byte{})
		return
	}

	// Initial snapshot before any live events.
	if err := writeEvent(c, model.StreamEvent{
		Type:      model.StreamEventStatus,
		Data:      video,
		Progress:  video.Progress,
		Timestamp: time.Now().UTC(),
	}); err != nil {
		return
	}

	// Subscribing after the snapshot is safe: for finished jobs the
	// broadcaster replays the retained terminal event on subscribe.
	sub := h.hub.Subscribe(videoID)
	defer h.hub.Unsubscribe(sub)

	done := make(chan struct{})

	// Writer goroutine
	go func() {
		defer close(done)

		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-sub.C():
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := writeEvent(c, event); err != nil {
					return
				}
				if event.IsTerminal() {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}

			case <-ticker.C:
				if err := writeEvent(c, model.StreamEvent{
					Type:      model.StreamEventHeartbeat,
					Timestamp: time.Now().UTC(),
				}); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop for disconnect detection
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error for video %s: %v", videoID, err)
			}
			break
		}
	}

	<-done
}

func writeEvent(c *websocket.Conn, event model.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal stream event: %v", err)
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}
