package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	want := Message{Type: TypeAttendanceMarked, Body: []byte("att-123")}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	select {
	case got := <-out:
		if got.Type != want.Type || string(got.Body) != string(want.Body) {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestInMemoryPublishRespectsContext(t *testing.T) {
	q := NewInMemory(1)
	ctx := context.Background()
	if err := q.Publish(ctx, Message{Type: TypeRegistration}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	if err := q.Publish(cancelled, Message{Type: TypeRegistration}); err == nil {
		t.Fatal("expected publish to fail once the queue is full and ctx cancelled")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	cases := []Message{
		{Type: TypeRegistration, Body: []byte("evt-1")},
		{Type: TypeAttendanceMarked, Body: []byte("att|with|pipes")},
		{Type: "custom", Body: nil},
	}
	for _, want := range cases {
		got, err := deserialize(serialize(want))
		if err != nil {
			t.Fatalf("deserialize %q: %v", serialize(want), err)
		}
		if got.Type != want.Type || string(got.Body) != string(want.Body) {
			t.Fatalf("round trip %+v gave %+v", want, got)
		}
	}
}

func TestDeserializeWithoutType(t *testing.T) {
	msg, err := deserialize("bare payload")
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if msg.Type != "" || string(msg.Body) != "bare payload" {
		t.Fatalf("unexpected message %+v", msg)
	}
}
