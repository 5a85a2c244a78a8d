package pubsub

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func receive(t *testing.T, sub Subscription) Event {
	t.Helper()
	select {
	case event := <-sub.Events():
		return event
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Timeout waiting for event")
	}
	return Event{}
}

func expectNone(t *testing.T, sub Subscription) {
	t.Helper()
	select {
	case event := <-sub.Events():
		t.Errorf("Received unexpected event version %d", event.Version)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestReportReplay(t *testing.T) {
	pub := NewRunPublisher()
	defer pub.Close()

	// Reports keep the last 10 and replay all of them
	for i := 1; i <= 12; i++ {
		if err := pub.Publish(TopicReport, "complete", map[string]int{"run": i}); err != nil {
			t.Fatalf("Failed to publish report %d: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicReport)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	for want := 3; want <= 12; want++ {
		event := receive(t, sub)
		if event.Version != want {
			t.Errorf("Expected version %d, got %d", want, event.Version)
		}
	}
	expectNone(t, sub)
}

func TestRunStatusReplaysLatest(t *testing.T) {
	pub := NewRunPublisher()
	defer pub.Close()

	for i, state := range []string{"building", "walking", "complete"} {
		status := RunStatus{RunID: "r1", State: state, Step: i + 1, Total: 3}
		if err := pub.Publish(TopicRunStatus, state, status); err != nil {
			t.Fatalf("Failed to publish status: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := pub.Subscribe(ctx, TopicRunStatus)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	event := receive(t, sub)
	if event.Type != "complete" || event.Version != 3 {
		t.Errorf("Expected latest status complete/3, got %s/%d", event.Type, event.Version)
	}

	var status RunStatus
	if err := json.Unmarshal(event.Data, &status); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}
	if status.RunID != "r1" || status.Step != 3 {
		t.Errorf("Unexpected status payload %+v", status)
	}
	expectNone(t, sub)
}

func TestUnbufferedTopic(t *testing.T) {
	pub := NewSSEPublisher()
	defer pub.Close()

	if err := pub.Publish("other", "event", 1); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sub, err := pub.Subscribe(ctx, "other")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	defer sub.Close()

	expectNone(t, sub)

	if err := pub.Publish("other", "event", 2); err != nil {
		t.Fatalf("Failed to publish: %v", err)
	}
	if event := receive(t, sub); event.Version != 2 {
		t.Errorf("Expected version 2, got %d", event.Version)
	}
}

func TestClosedPublisher(t *testing.T) {
	pub := NewRunPublisher()
	ctx := context.Background()

	sub, err := pub.Subscribe(ctx, TopicReport)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, ok := <-sub.Events(); ok {
		t.Error("Expected subscription channel to be closed")
	}
	if err := pub.Publish(TopicReport, "complete", nil); err == nil {
		t.Error("Expected error publishing to closed publisher")
	}
	if _, err := pub.Subscribe(ctx, TopicReport); err == nil {
		t.Error("Expected error subscribing to closed publisher")
	}
}

func TestWriteSSE(t *testing.T) {
	var buf bytes.Buffer
	event := Event{Topic: TopicReport, Type: "complete", Data: json.RawMessage(`{"score":0.1}`), Version: 7}

	if err := WriteSSE(&buf, event); err != nil {
		t.Fatalf("WriteSSE failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "event: complete\ndata: {") {
		t.Errorf("Unexpected SSE framing: %q", out)
	}
	if !strings.HasSuffix(out, "}\n\n") {
		t.Errorf("Expected blank line terminator, got %q", out)
	}
	if !strings.Contains(out, `"version":7`) {
		t.Errorf("Expected version in payload, got %q", out)
	}
}
