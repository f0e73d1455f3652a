package broadcast

import (
	"fmt"
	"testing"
	"time"

	"github.com/reelcraft/api/internal/model"
)

func progressEvent(percent int, ts time.Time) model.StreamEvent {
	return model.StreamEvent{
		Type:      model.StreamEventProgress,
		Progress:  percent,
		Message:   fmt.Sprintf("at %d", percent),
		Timestamp: ts,
	}
}

func drain(sub *Subscription) []model.StreamEvent {
	var events []model.StreamEvent
	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				return events
			}
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestBroadcaster_Ordering(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe("vid-1")
	defer b.Unsubscribe(sub)

	base := time.Now()
	for i, p := range []int{25, 45, 65, 90} {
		b.Publish("vid-1", progressEvent(p, base.Add(time.Duration(i)*time.Second)))
	}

	events := drain(sub)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	for i, want := range []int{25, 45, 65, 90} {
		if events[i].Progress != want {
			t.Errorf("event %d: expected progress %d, got %d", i, want, events[i].Progress)
		}
	}
}

func TestBroadcaster_DedupeByTimestamp(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe("vid-1")
	defer b.Unsubscribe(sub)

	ts := time.Now()
	b.Publish("vid-1", progressEvent(25, ts))
	b.Publish("vid-1", progressEvent(25, ts))
	b.Publish("vid-1", progressEvent(45, ts.Add(time.Second)))

	events := drain(sub)
	if len(events) != 2 {
		t.Fatalf("expected duplicate timestamp to be suppressed, got %d events", len(events))
	}
}

func TestBroadcaster_TerminalClosesStream(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe("vid-1")

	b.Publish("vid-1", progressEvent(90, time.Now()))
	b.Publish("vid-1", model.StreamEvent{Type: model.StreamEventComplete, Timestamp: time.Now()})

	var got []model.StreamEvent
	for ev := range sub.C() {
		got = append(got, ev)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events before close, got %d", len(got))
	}
	if got[1].Type != model.StreamEventComplete {
		t.Errorf("expected terminal complete event, got %s", got[1].Type)
	}

	// Publishes after the terminal event are discarded.
	b.Publish("vid-1", progressEvent(10, time.Now()))
	if b.SubscriberCount("vid-1") != 0 {
		t.Error("expected no live subscribers after terminal event")
	}
}

func TestBroadcaster_LateSubscriberGetsTerminal(t *testing.T) {
	b := NewBroadcaster()
	b.Publish("vid-1", model.StreamEvent{Type: model.StreamEventError, Message: "generation failed", Timestamp: time.Now()})

	sub := b.Subscribe("vid-1")

	ev, ok := <-sub.C()
	if !ok {
		t.Fatal("expected retained terminal event before close")
	}
	if ev.Type != model.StreamEventError || ev.Message != "generation failed" {
		t.Errorf("unexpected replayed event: %+v", ev)
	}

	// Exactly once: the channel closes right after.
	if _, ok := <-sub.C(); ok {
		t.Error("expected stream to close after the replayed terminal event")
	}
}

func TestBroadcaster_UnsubscribeIdempotent(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe("vid-1")

	b.Unsubscribe(sub)
	b.Unsubscribe(sub)
	b.Unsubscribe(nil)

	if b.SubscriberCount("vid-1") != 0 {
		t.Error("expected zero subscribers after unsubscribe")
	}

	// Publishing to a fully unsubscribed video must not panic or block.
	b.Publish("vid-1", progressEvent(25, time.Now()))
}

func TestBroadcaster_MultipleSubscribers(t *testing.T) {
	b := NewBroadcaster()
	sub1 := b.Subscribe("vid-1")
	sub2 := b.Subscribe("vid-1")
	other := b.Subscribe("vid-2")
	defer b.Unsubscribe(sub1)
	defer b.Unsubscribe(sub2)
	defer b.Unsubscribe(other)

	b.Publish("vid-1", progressEvent(25, time.Now()))

	if got := len(drain(sub1)); got != 1 {
		t.Errorf("sub1: expected 1 event, got %d", got)
	}
	if got := len(drain(sub2)); got != 1 {
		t.Errorf("sub2: expected 1 event, got %d", got)
	}
	if got := len(drain(other)); got != 0 {
		t.Errorf("other video subscriber received %d stray events", got)
	}
}

func TestBroadcaster_SlowSubscriberDropped(t *testing.T) {
	b := NewBroadcaster()
	sub := b.Subscribe("vid-1")

	base := time.Now()
	// Never read: overflow the buffer by one.
	for i := 0; i <= subscriberBuffer; i++ {
		b.Publish("vid-1", progressEvent(i, base.Add(time.Duration(i)*time.Millisecond)))
	}

	if b.SubscriberCount("vid-1") != 0 {
		t.Error("expected slow subscriber to be dropped")
	}

	// The dropped stream is closed after its buffered events.
	events := drain(sub)
	if len(events) != subscriberBuffer {
		t.Errorf("expected %d buffered events, got %d", subscriberBuffer, len(events))
	}
	if _, ok := <-sub.C(); ok {
		t.Error("expected dropped subscription channel to be closed")
	}
}

func TestBroadcaster_Forget(t *testing.T) {
	b := NewBroadcaster()
	b.Publish("vid-1", model.StreamEvent{Type: model.StreamEventComplete, Timestamp: time.Now()})

	b.Forget("vid-1")

	// After Forget the terminal event is gone: a new subscriber gets a
	// live, open stream.
	sub := b.Subscribe("vid-1")
	defer b.Unsubscribe(sub)

	select {
	case _, ok := <-sub.C():
		if !ok {
			t.Error("expected open stream after Forget, channel was closed")
		} else {
			t.Error("expected no replayed event after Forget")
		}
	default:
	}
}
