package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/bazaar-backend/pkg/db/models"
)

// Sink delivers a single envelope somewhere.
type Sink interface {
	Publish(ctx context.Context, env Envelope) error
}

type publisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// PubSubSink publishes envelopes to the notification topic.
type PubSubSink struct {
	pub     publisher
	timeout time.Duration
}

func NewPubSubSink(pub *pubsub.Publisher, timeout time.Duration) (*PubSubSink, error) {
	if pub == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return &PubSubSink{pub: pub, timeout: timeout}, nil
}

func (s *PubSubSink) Publish(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res := s.pub.Publish(ctx, &pubsub.Message{
		Data: body,
		Attributes: map[string]string{
			"event_id":   env.EventID,
			"event_type": string(env.Event),
		},
	})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", env.Event, err)
	}
	return nil
}

// InboxSink writes one in-app notification per recipient of the payload.
type InboxSink struct {
	repo Repository
}

func NewInboxSink(repo Repository) (*InboxSink, error) {
	if repo == nil {
		return nil, errors.New("notifications repository required")
	}
	return &InboxSink{repo: repo}, nil
}

func (s *InboxSink) Publish(ctx context.Context, env Envelope) error {
	addressed, ok := env.payload.(recipientPayload)
	if !ok {
		return nil
	}

	var orderID *uuid.UUID
	if subject, ok := env.payload.(subjectPayload); ok {
		id, _ := subject.Subject()
		if id != uuid.Nil {
			orderID = &id
		}
	}
	message := string(env.Event)
	if summary, ok := env.payload.(summaryPayload); ok {
		message = summary.Summary()
	}

	seen := make(map[uuid.UUID]struct{})
	rows := make([]models.Notification, 0, 2)
	for _, userID := range addressed.Recipients() {
		if userID == uuid.Nil {
			continue
		}
		if _, dup := seen[userID]; dup {
			continue
		}
		seen[userID] = struct{}{}
		rows = append(rows, models.Notification{
			UserID:    userID,
			EventID:   env.EventID,
			Event:     env.Event,
			OrderID:   orderID,
			Title:     titleFor(env.Event),
			Message:   message,
			CreatedAt: env.OccurredAt,
		})
	}
	return s.repo.CreateMany(ctx, rows)
}

// fanout publishes to every sink and reports all failures together.
type fanout []Sink

func (f fanout) Publish(ctx context.Context, env Envelope) error {
	var errs error
	for _, sink := range f {
		if sink == nil {
			continue
		}
		errs = multierr.Append(errs, sink.Publish(ctx, env))
	}
	return errs
}
