package pebblelog

import (
	"context"
	"testing"
	"time"

	"github.com/rzbill/mledger/internal/position"
)

func TestSubscribeAppendNotifies(t *testing.T) {
	l, cleanup := newTestLog(t, Options{})
	defer cleanup()

	notified := make(chan position.Position, 1)
	unsub := l.SubscribeAppend(func(newest position.Position) {
		notified <- newest
	})
	defer unsub()

	if _, err := l.Append(context.Background(), []AppendRecord{{Payload: []byte("x")}}); err != nil {
		t.Fatalf("append: %v", err)
	}

	select {
	case p := <-notified:
		if !p.Equal(position.Position{Segment: 0, Entry: 0}) {
			t.Fatalf("notified position = %v, want {0 0}", p)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for append notification")
	}
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	l, cleanup := newTestLog(t, Options{})
	defer cleanup()

	calls := 0
	unsub := l.SubscribeAppend(func(position.Position) { calls++ })
	unsub()

	if _, err := l.Append(context.Background(), []AppendRecord{{Payload: []byte("x")}}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no calls after unsubscribe, got %d", calls)
	}
}
