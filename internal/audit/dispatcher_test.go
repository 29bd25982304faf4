package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

// gateSink blocks inside Emit until released, so tests can fill the
// dispatcher buffer deterministically.
type gateSink struct {
	started chan struct{}
	release chan struct{}

	mu     sync.Mutex
	events []Event
}

func newGateSink() *gateSink {
	return &gateSink{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (s *gateSink) Emit(_ context.Context, event Event) {
	s.started <- struct{}{}
	<-s.release

	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *gateSink) captured() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func TestDispatcherDeliversAndDrains(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 8, DropIfFull: true}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success", Success: true})
	}

	// Close drains whatever is still buffered before returning.
	d.Close()

	for i := 0; i < 5; i++ {
		select {
		case event := <-sink.Events():
			if event.EventType != "login_success" {
				t.Fatalf("event type = %s", event.EventType)
			}
		default:
			t.Fatalf("missing event %d after Close", i)
		}
	}
	if d.Dropped() != 0 {
		t.Fatalf("dropped = %d", d.Dropped())
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event reaches the sink, which blocks and empties the buffer.
	d.Emit(context.Background(), Event{EventType: "first"})
	select {
	case <-sink.started:
	case <-time.After(2 * time.Second):
		t.Fatal("sink never received the first event")
	}

	// Second event occupies the buffer, third has nowhere to go.
	d.Emit(context.Background(), Event{EventType: "second"})
	d.Emit(context.Background(), Event{EventType: "third"})

	if d.Dropped() != 1 {
		t.Fatalf("dropped = %d, want 1", d.Dropped())
	}

	close(sink.release)
	d.Close()

	events := sink.captured()
	if len(events) != 2 {
		t.Fatalf("delivered %d events, want 2", len(events))
	}
	if events[0].EventType != "first" || events[1].EventType != "second" {
		t.Fatalf("unexpected delivery order: %s, %s", events[0].EventType, events[1].EventType)
	}
}

func TestDispatcherCriticalWaitsForSpace(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	d.Emit(context.Background(), Event{EventType: "first"})
	select {
	case <-sink.started:
	case <-time.After(2 * time.Second):
		t.Fatal("sink never received the first event")
	}

	d.Emit(context.Background(), Event{EventType: "second"})

	// A critical event must not be shed; it waits for buffer space.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.Emit(context.Background(), Event{EventType: "refresh_reuse_detected", Severity: SeverityCritical})
	}()

	close(sink.release)
	wg.Wait()
	d.Close()

	events := sink.captured()
	if len(events) != 3 {
		t.Fatalf("delivered %d events, want 3", len(events))
	}
	if events[2].EventType != "refresh_reuse_detected" {
		t.Fatalf("last event = %s", events[2].EventType)
	}
	if d.Dropped() != 0 || d.DroppedCritical() != 0 {
		t.Fatalf("dropped = %d total, %d critical", d.Dropped(), d.DroppedCritical())
	}
}

func TestDispatcherCountsCriticalDropOnCancel(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	d.Emit(context.Background(), Event{EventType: "first"})
	select {
	case <-sink.started:
	case <-time.After(2 * time.Second):
		t.Fatal("sink never received the first event")
	}
	d.Emit(context.Background(), Event{EventType: "second"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Emit(ctx, Event{EventType: "refresh_reuse_detected", Severity: SeverityCritical})

	if d.DroppedCritical() != 1 {
		t.Fatalf("critical drops = %d, want 1", d.DroppedCritical())
	}
	if d.Dropped() != 1 {
		t.Fatalf("total drops = %d, want 1", d.Dropped())
	}

	close(sink.release)
	d.Close()
}

func TestDispatcherDisabledAndNil(t *testing.T) {
	if d := NewDispatcher(Config{Enabled: false}, NewChannelSink(1)); d != nil {
		t.Fatal("disabled config must produce a nil dispatcher")
	}

	var d *Dispatcher
	d.Emit(context.Background(), Event{EventType: "ignored"})
	d.Close()
	if d.Dropped() != 0 || d.DroppedCritical() != 0 {
		t.Fatal("nil dispatcher reported drops")
	}
}

func TestDispatcherEmitAfterClose(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: true}, sink)
	d.Close()

	d.Emit(context.Background(), Event{EventType: "late"})

	select {
	case event := <-sink.Events():
		t.Fatalf("unexpected event after close: %s", event.EventType)
	default:
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), Event{
		EventType: "login_failure",
		Severity:  SeverityWarning,
		UserID:    "user-1",
		Error:     "invalid_credentials",
	})

	var decoded Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.EventType != "login_failure" || decoded.Severity != SeverityWarning {
		t.Fatalf("decoded = %+v", decoded)
	}
	if decoded.Error != "invalid_credentials" {
		t.Fatalf("error = %q", decoded.Error)
	}
}

func TestMultiSinkFansOut(t *testing.T) {
	first := NewChannelSink(1)
	second := NewChannelSink(1)
	multi := NewMultiSink(first, nil, second)

	multi.Emit(context.Background(), Event{EventType: "session_created", Success: true})

	for _, sink := range []*ChannelSink{first, second} {
		select {
		case event := <-sink.Events():
			if event.EventType != "session_created" {
				t.Fatalf("event type = %s", event.EventType)
			}
		default:
			t.Fatal("sink did not receive the event")
		}
	}
}
