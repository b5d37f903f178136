package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/luxecraft/atelier/internal/models"
)

type messageData struct {
	OrderNumber  string
	CustomerName string
	Status       string
	TotalPKR     string
	Courier      string
	TrackingNo   string
}

var messageTemplates = map[Event]struct {
	subject string
	body    string
}{
	EventOrderPlaced: {
		subject: "Order received - {{.OrderNumber}}",
		body: `Dear {{.CustomerName}},

Thank you for your order {{.OrderNumber}} (PKR {{.TotalPKR}}). We will confirm your payment shortly and keep you posted at every step.`,
	},
	EventPaymentConfirmed: {
		subject: "Payment confirmed - {{.OrderNumber}}",
		body: `Dear {{.CustomerName}},

We have confirmed your payment for order {{.OrderNumber}}. Your outfit is now in the production queue.`,
	},
	EventPaymentRejected: {
		subject: "Payment could not be verified - {{.OrderNumber}}",
		body: `Dear {{.CustomerName}},

We could not verify the payment submitted for order {{.OrderNumber}}. Please resubmit your receipt or contact us for help.`,
	},
	EventStatusChanged: {
		subject: "Order update - {{.OrderNumber}}",
		body: `Dear {{.CustomerName}},

Your order {{.OrderNumber}} has moved to: {{.Status}}.`,
	},
	EventOrderDispatched: {
		subject: "Order dispatched - {{.OrderNumber}}",
		body: `Dear {{.CustomerName}},

Your order {{.OrderNumber}} is on its way{{if .Courier}} via {{.Courier}}{{end}}{{if .TrackingNo}} (tracking {{.TrackingNo}}){{end}}.`,
	},
	EventOrderDelivered: {
		subject: "Order delivered - {{.OrderNumber}}",
		body: `Dear {{.CustomerName}},

Your order {{.OrderNumber}} has been delivered. We hope it fits perfectly.`,
	},
	EventOrderCancelled: {
		subject: "Order cancelled - {{.OrderNumber}}",
		body: `Dear {{.CustomerName}},

Your order {{.OrderNumber}} has been cancelled. If a refund is due it will be processed separately.`,
	},
	EventOrderRefunded: {
		subject: "Refund processed - {{.OrderNumber}}",
		body: `Dear {{.CustomerName}},

A refund has been processed for your order {{.OrderNumber}}.`,
	},
}

// RenderMessage builds the channel-agnostic message for an order event.
func RenderMessage(order *models.Order, event Event) (*Message, error) {
	tmpl, ok := messageTemplates[event]
	if !ok {
		return nil, fmt.Errorf("no template for event %s", event)
	}

	data := messageData{
		OrderNumber:  order.Number,
		CustomerName: order.Customer.Name,
		Status:       string(order.Status),
		TotalPKR:     formatPaisa(order.Pricing.TotalPaisa),
	}
	if order.Tracking != nil {
		data.Courier = order.Tracking.Courier
		data.TrackingNo = order.Tracking.TrackingNumber
	}

	subject, err := renderTemplate(string(event)+"_subject", tmpl.subject, data)
	if err != nil {
		return nil, err
	}
	body, err := renderTemplate(string(event)+"_body", tmpl.body, data)
	if err != nil {
		return nil, err
	}

	return &Message{
		OrderNumber:  order.Number,
		CustomerName: order.Customer.Name,
		Email:        order.Customer.Email,
		Phone:        order.Customer.Phone,
		Subject:      subject,
		Body:         body,
	}, nil
}

func renderTemplate(name, text string, data messageData) (string, error) {
	tmpl, err := template.New(name).Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatPaisa(paisa int64) string {
	rupees := paisa / 100
	rem := paisa % 100
	if rem == 0 {
		return fmt.Sprintf("%d", rupees)
	}
	return fmt.Sprintf("%d.%02d", rupees, rem)
}
