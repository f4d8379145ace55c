package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/bazaar-backend/pkg/enums"
)

const envelopeVersion = 1

// Envelope is the stable structure published for every notification event.
type Envelope struct {
	Version    int                     `json:"version"`
	EventID    string                  `json:"eventId"`
	Event      enums.NotificationEvent `json:"event"`
	OccurredAt time.Time               `json:"occurredAt"`
	Data       json.RawMessage         `json:"data"`

	payload any
}

// recipientPayload is implemented by payloads that address users directly.
type recipientPayload interface {
	Recipients() []uuid.UUID
}

type subjectPayload interface {
	Subject() (uuid.UUID, string)
}

type summaryPayload interface {
	Summary() string
}

func newEnvelope(event enums.NotificationEvent, payload any, now time.Time) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", event, err)
	}
	return Envelope{
		Version:    envelopeVersion,
		EventID:    uuid.NewString(),
		Event:      event,
		OccurredAt: now.UTC(),
		Data:       data,
		payload:    payload,
	}, nil
}

// Payload returns the typed payload the envelope was built from.
func (e Envelope) Payload() any {
	return e.payload
}

func titleFor(event enums.NotificationEvent) string {
	switch event {
	case enums.NotificationEventOrderCreated:
		return "New order"
	case enums.NotificationEventOrderStatusChanged:
		return "Order updated"
	case enums.NotificationEventOrderPaid:
		return "Order paid"
	case enums.NotificationEventOrderRefunded:
		return "Order refunded"
	case enums.NotificationEventDisputeOpened:
		return "Dispute opened"
	case enums.NotificationEventDisputeUpdated:
		return "Dispute updated"
	case enums.NotificationEventReturnRequested:
		return "Return requested"
	case enums.NotificationEventReturnUpdated:
		return "Return updated"
	default:
		return string(event)
	}
}
