package enums

import "fmt"

// NotificationEvent names the order events pushed to the notification sink.
type NotificationEvent string

const (
	NotificationEventOrderCreated       NotificationEvent = "order.created"
	NotificationEventOrderStatusChanged NotificationEvent = "order.status_changed"
	NotificationEventOrderPaid          NotificationEvent = "order.paid"
	NotificationEventOrderRefunded      NotificationEvent = "order.refunded"
	NotificationEventDisputeOpened      NotificationEvent = "dispute.opened"
	NotificationEventDisputeUpdated     NotificationEvent = "dispute.updated"
	NotificationEventReturnRequested    NotificationEvent = "return.requested"
	NotificationEventReturnUpdated      NotificationEvent = "return.updated"
)

var validNotificationEvents = []NotificationEvent{
	NotificationEventOrderCreated,
	NotificationEventOrderStatusChanged,
	NotificationEventOrderPaid,
	NotificationEventOrderRefunded,
	NotificationEventDisputeOpened,
	NotificationEventDisputeUpdated,
	NotificationEventReturnRequested,
	NotificationEventReturnUpdated,
}

// String implements fmt.Stringer.
func (n NotificationEvent) String() string {
	return string(n)
}

// IsValid checks whether the given event matches a known event.
func (n NotificationEvent) IsValid() bool {
	for _, candidate := range validNotificationEvents {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationEvent converts raw strings into NotificationEvent.
func ParseNotificationEvent(value string) (NotificationEvent, error) {
	for _, candidate := range validNotificationEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification event %q", value)
}
