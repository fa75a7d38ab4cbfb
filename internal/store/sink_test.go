package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingStore struct {
	mu   sync.Mutex
	msgs []*ChatMessage
	err  error
}

func (r *recordingStore) SaveMessage(_ context.Context, msg *ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recordingStore) ListMessages(context.Context, string, int, *int64) ([]*ChatMessage, error) {
	return nil, nil
}

func (r *recordingStore) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func TestSinkWritesInBackground(t *testing.T) {
	rec := &recordingStore{}
	sink := NewSink(rec, 8, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)

	sink.Enqueue(&ChatMessage{Room: "support-1", Content: "hi"})
	sink.Enqueue(&ChatMessage{Room: "support-1", Content: "there"})

	deadline := time.Now().Add(2 * time.Second)
	for rec.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 persisted messages, got %d", rec.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSinkDropsWhenQueueFull(t *testing.T) {
	rec := &recordingStore{}
	sink := NewSink(rec, 1, nil)

	// No Run goroutine: the queue fills immediately and Enqueue must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			sink.Enqueue(&ChatMessage{Room: "support-1", Content: "overflow"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked on a full queue")
	}
}

func TestSinkLogsAndContinuesOnWriteError(t *testing.T) {
	rec := &recordingStore{err: errors.New("disk full")}
	sink := NewSink(rec, 8, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sink.Run(ctx)

	sink.Enqueue(&ChatMessage{Room: "support-1", Content: "hi"})

	// Writes fail but the sink keeps accepting work.
	time.Sleep(50 * time.Millisecond)
	sink.Enqueue(&ChatMessage{Room: "support-1", Content: "again"})
}
