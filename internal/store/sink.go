package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sink queues chat messages for background persistence so the relay's hot
// path never blocks on a database write. Failed or overflowing writes are
// logged and dropped; the broadcast has already happened by then.
type Sink struct {
	store MessageStore
	log   zerolog.Logger
	queue chan *ChatMessage
}

// NewSink creates a sink with the given queue depth.
func NewSink(st MessageStore, buffer int, logger *zerolog.Logger) *Sink {
	if buffer <= 0 {
		buffer = 256
	}
	lg := zerolog.Nop()
	if logger != nil {
		lg = *logger
	}
	return &Sink{
		store: st,
		log:   lg,
		queue: make(chan *ChatMessage, buffer),
	}
}

// Enqueue hands a message to the writer goroutine. Never blocks: when the
// queue is full the message is dropped with a log line.
func (s *Sink) Enqueue(msg *ChatMessage) {
	select {
	case s.queue <- msg:
	default:
		s.log.Warn().Str("room", msg.Room).Msg("persistence queue full, dropping chat message")
	}
}

// Run drains the queue until the context is cancelled.
func (s *Sink) Run(ctx context.Context) {
	for {
		select {
		case msg := <-s.queue:
			s.write(ctx, msg)
		case <-ctx.Done():
			// Flush whatever is already queued before exiting.
			for {
				select {
				case msg := <-s.queue:
					s.write(context.Background(), msg)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) write(ctx context.Context, msg *ChatMessage) {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.store.SaveMessage(writeCtx, msg); err != nil {
		s.log.Error().Err(err).Str("room", msg.Room).Msg("failed to persist chat message")
	}
}
