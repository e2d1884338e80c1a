package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultQueueSize = 256
	sendTimeout      = 30 * time.Second
)

// Queue sends messages on a single background worker.
type Queue struct {
	sender Sender
	log    zerolog.Logger
	jobs   chan Message

	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

func NewQueue(sender Sender, size int, log zerolog.Logger) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	q := &Queue{
		sender: sender,
		log:    log.With().Str("component", "notify").Logger(),
		jobs:   make(chan Message, size),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Enqueue schedules msg for delivery. When the buffer is full or the queue is
// closed the message is dropped and logged; the caller never blocks.
func (q *Queue) Enqueue(msg Message) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.log.Warn().Str("to", msg.To).Str("subject", msg.Subject).Msg("queue closed, email dropped")
		return
	}
	select {
	case q.jobs <- msg:
	default:
		q.log.Error().Str("to", msg.To).Str("subject", msg.Subject).Msg("queue full, email dropped")
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for msg := range q.jobs {
		q.deliver(msg)
	}
}

func (q *Queue) deliver(msg Message) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error().Interface("panic", r).Str("to", msg.To).Msg("email sender panicked")
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := q.sender.Send(ctx, msg); err != nil {
		q.log.Error().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("email delivery failed")
		return
	}
	q.log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (q *Queue) Close() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.jobs)
		q.mu.Unlock()
	})
	q.wg.Wait()
}
