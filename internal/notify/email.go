package notify

import (
	"context"
	"fmt"

	resend "github.com/resend/resend-go/v3"
)

// EmailProvider delivers notifications over email via the Resend API.
type EmailProvider struct {
	from   string
	client *resend.Client
}

func NewEmailProvider(apiKey, from string) *EmailProvider {
	return &EmailProvider{
		from:   from,
		client: resend.NewClient(apiKey),
	}
}

func (p *EmailProvider) Channel() string {
	return ChannelEmail
}

func (p *EmailProvider) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return fmt.Errorf("message is required")
	}
	if msg.Email == "" {
		return fmt.Errorf("message has no recipient email")
	}
	if msg.Body == "" {
		return fmt.Errorf("message body is empty")
	}

	params := &resend.SendEmailRequest{
		From:    p.from,
		To:      []string{msg.Email},
		Subject: msg.Subject,
		Text:    msg.Body,
	}

	if _, err := p.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("failed to send email via resend: %w", err)
	}
	return nil
}
