// Package notify is the notification sink for order lifecycle events.
// Delivery is best-effort and at-most-once-attempted per order and event;
// it is never a source of truth for order state.
package notify

import (
	"context"

	"github.com/luxecraft/atelier/internal/models"
)

type Event string

const (
	EventOrderPlaced      Event = "order-placed"
	EventPaymentConfirmed Event = "payment-confirmed"
	EventPaymentRejected  Event = "payment-rejected"
	EventStatusChanged    Event = "status-changed"
	EventOrderCancelled   Event = "order-cancelled"
	EventOrderRefunded    Event = "order-refunded"
	EventOrderDispatched  Event = "order-dispatched"
	EventOrderDelivered   Event = "order-delivered"
)

const (
	ChannelEmail    = "email"
	ChannelWhatsApp = "whatsapp"
)

// Message is a rendered notification ready for one delivery channel.
type Message struct {
	OrderNumber  string
	CustomerName string
	Email        string
	Phone        string
	Subject      string
	Body         string
}

// Provider delivers a message over a single channel.
type Provider interface {
	Channel() string
	Send(ctx context.Context, msg *Message) error
}

// EventForTransition maps a committed status transition to the customer
// notification it should produce.
func EventForTransition(to models.OrderStatus) Event {
	switch to {
	case models.StatusDispatched:
		return EventOrderDispatched
	case models.StatusDelivered:
		return EventOrderDelivered
	case models.StatusCancelled:
		return EventOrderCancelled
	case models.StatusRefunded:
		return EventOrderRefunded
	default:
		return EventStatusChanged
	}
}
