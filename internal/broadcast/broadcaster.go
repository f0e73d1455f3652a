// Package broadcast fans out per-video progress events to live subscribers.
// Exactly one writer (the job's worker) publishes for a given video while
// any number of readers stream; readers never mutate, the writer never
// blocks on a slow reader.
package broadcast

import (
	"log"
	"sync"

	"github.com/reelcraft/api/internal/model"
)

// subscriberBuffer is the per-subscriber event queue. A subscriber that
// falls this far behind is dropped rather than blocking the writer.
const subscriberBuffer = 64

// Subscription is one reader's handle on a video's event stream. Events
// arrive on C; the channel is closed after a terminal event or on
// Unsubscribe.
type Subscription struct {
	videoID string
	ch      chan model.StreamEvent
	once    sync.Once
}

// C returns the event channel.
func (s *Subscription) C() <-chan model.StreamEvent {
	return s.ch
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

type videoChannel struct {
	subscribers map[*Subscription]bool
	lastStamp   string // timestamp of the last progress event, for dedupe
	terminal    *model.StreamEvent
}

// Broadcaster is a per-video registry of live subscribers. The terminal
// event of each video is retained so a subscriber that joins after
// completion still receives it exactly once.
type Broadcaster struct {
	mu     sync.RWMutex
	videos map[string]*videoChannel
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		videos: make(map[string]*videoChannel),
	}
}

// Subscribe attaches a reader to a video's stream. If the video already
// reached a terminal state the terminal event is delivered immediately and
// the subscription arrives pre-closed.
func (b *Broadcaster) Subscribe(videoID string) *Subscription {
	sub := &Subscription{
		videoID: videoID,
		ch:      make(chan model.StreamEvent, subscriberBuffer),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	vc := b.videos[videoID]
	if vc == nil {
		vc = &videoChannel{subscribers: make(map[*Subscription]bool)}
		b.videos[videoID] = vc
	}

	if vc.terminal != nil {
		sub.ch <- *vc.terminal
		sub.close()
		return sub
	}

	vc.subscribers[sub] = true
	return sub
}

// Unsubscribe releases a subscriber. Safe to call multiple times and after
// the stream already closed.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	b.mu.Lock()
	if vc, ok := b.videos[sub.videoID]; ok {
		if vc.subscribers[sub] {
			delete(vc.subscribers, sub)
			sub.close()
		}
		if len(vc.subscribers) == 0 && vc.terminal == nil {
			delete(b.videos, sub.videoID)
		}
	}
	b.mu.Unlock()
}

// Publish delivers an event to every subscriber of the video. Progress
// events with an unchanged timestamp are suppressed. A terminal event
// (complete or error) is retained for late joiners and closes every
// subscriber after delivery; publishes after the terminal event are
// discarded.
func (b *Broadcaster) Publish(videoID string, event model.StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	vc := b.videos[videoID]
	if vc == nil {
		vc = &videoChannel{subscribers: make(map[*Subscription]bool)}
		b.videos[videoID] = vc
	}
	if vc.terminal != nil {
		return
	}

	if event.Type == model.StreamEventProgress {
		stamp := event.Timestamp.String()
		if stamp == vc.lastStamp {
			return
		}
		vc.lastStamp = stamp
	}

	for sub := range vc.subscribers {
		select {
		case sub.ch <- event:
		default:
			// Slow consumer: drop it rather than stall the worker.
			log.Printf("Dropping slow subscriber for video %s", videoID)
			delete(vc.subscribers, sub)
			sub.close()
		}
	}

	if event.IsTerminal() {
		vc.terminal = &event
		for sub := range vc.subscribers {
			delete(vc.subscribers, sub)
			sub.close()
		}
	}
}

// Forget drops everything retained for a video, including its terminal
// event. Called when the video record is deleted.
func (b *Broadcaster) Forget(videoID string) {
	b.mu.Lock()
	if vc, ok := b.videos[videoID]; ok {
		for sub := range vc.subscribers {
			delete(vc.subscribers, sub)
			sub.close()
		}
		delete(b.videos, videoID)
	}
	b.mu.Unlock()
}

// SubscriberCount reports the current number of live subscribers for a
// video. Used by the health endpoint and tests.
func (b *Broadcaster) SubscriberCount(videoID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if vc, ok := b.videos[videoID]; ok {
		return len(vc.subscribers)
	}
	return 0
}
