// Package gateway delivers rendered alerts and digests to subscribers.
// The pipeline only sees the Notifier interface; Telegram is the one
// concrete transport.
package gateway

import (
	"context"

	"github.com/lueurxax/news-radar/internal/core/domain"
)

// Message is one rendered notification.
type Message struct {
	// Kind mirrors the alert kind, or "digest" for digest deliveries.
	Kind string
	Text string
}

// Notifier sends a message to one subscriber.
type Notifier interface {
	Send(ctx context.Context, subscriber *domain.Subscriber, msg Message) error
}

// Mock records sent messages for tests.
type Mock struct {
	Sent []SentMessage

	// SendFunc overrides the default record-only behavior when set.
	SendFunc func(ctx context.Context, subscriber *domain.Subscriber, msg Message) error
}

type SentMessage struct {
	SubscriberID string
	Message      Message
}

func (m *Mock) Send(ctx context.Context, subscriber *domain.Subscriber, msg Message) error {
	if m.SendFunc != nil {
		return m.SendFunc(ctx, subscriber, msg)
	}

	m.Sent = append(m.Sent, SentMessage{SubscriberID: subscriber.ID, Message: msg})

	return nil
}
