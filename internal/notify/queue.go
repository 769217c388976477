// Package notify decouples outbound notifications from the state transitions
// that trigger them. Deliveries are best-effort: failures are logged and a
// full queue drops the message instead of blocking the caller.
package notify

import (
	"context"

	"github.com/rs/zerolog"
)

type Sender interface {
	Send(chatID int64, text string) error
}

type Message struct {
	ChatID int64
	Text   string
}

type Queue struct {
	ch  chan Message
	log zerolog.Logger
}

func NewQueue(size int, log zerolog.Logger) *Queue {
	return &Queue{
		ch:  make(chan Message, size),
		log: log,
	}
}

// Push enqueues a notification without blocking.
func (q *Queue) Push(chatID int64, text string) {
	select {
	case q.ch <- Message{ChatID: chatID, Text: text}:
	default:
		q.log.Warn().Int64("chat_id", chatID).Msg("notification queue full, dropping message")
	}
}

// Run consumes the queue until ctx is cancelled. A failed delivery never
// stops the consumer.
func (q *Queue) Run(ctx context.Context, sender Sender) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-q.ch:
			if err := sender.Send(m.ChatID, m.Text); err != nil {
				q.log.Warn().Err(err).Int64("chat_id", m.ChatID).Msg("notification delivery failed")
			}
		}
	}
}
