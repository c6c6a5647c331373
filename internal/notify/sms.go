package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// SMSGateway posts messages to an external SMS HTTP gateway. The gateway
// contract is a JSON body {"to": ..., "message": ...} with a bearer token.
type SMSGateway struct {
	url    string
	token  string
	sender string
	client *http.Client
}

func NewSMSGateway(url string, token string, sender string) *SMSGateway {
	return &SMSGateway{
		url:    url,
		token:  token,
		sender: sender,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type smsPayload struct {
	To      string `json:"to"`
	From    string `json:"from,omitempty"`
	Message string `json:"message"`
}

func (g *SMSGateway) Send(ctx context.Context, phone string, message string) error {
	body, err := json.Marshal(smsPayload{To: phone, From: g.sender, Message: message})
	if err != nil {
		return fmt.Errorf("marshal sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("post sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}
