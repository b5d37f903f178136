package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/luxecraft/atelier/internal/observability"
)

// WhatsAppProvider delivers notifications through an HTTP message gateway.
type WhatsAppProvider struct {
	gatewayURL string
	token      string
	client     *http.Client
}

type whatsAppRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type whatsAppResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

func NewWhatsAppProvider(gatewayURL, token string) *WhatsAppProvider {
	return &WhatsAppProvider{
		gatewayURL: gatewayURL,
		token:      token,
		client:     observability.NewHTTPClient(15 * time.Second),
	}
}

func (p *WhatsAppProvider) Channel() string {
	return ChannelWhatsApp
}

func (p *WhatsAppProvider) Send(ctx context.Context, msg *Message) error {
	if msg == nil {
		return fmt.Errorf("message is required")
	}
	if msg.Phone == "" {
		return fmt.Errorf("message has no recipient phone")
	}

	payload, err := json.Marshal(whatsAppRequest{
		To:   msg.Phone,
		Body: msg.Subject + "\n\n" + msg.Body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.gatewayURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach whatsapp gateway: %w", err)
	}
	body, readErr := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("failed to read gateway response: %w", readErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close gateway response body: %w", closeErr)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		var errResp whatsAppResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Message != "" {
			return fmt.Errorf("whatsapp gateway error: %s", errResp.Message)
		}
		return fmt.Errorf("whatsapp gateway returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
