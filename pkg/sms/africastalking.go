package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type atResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			StatusCode int    `json:"statusCode"`
			Number     string `json:"number"`
			Cost       string `json:"cost"`
			Status     string `json:"status"`
			MessageID  string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// AfricasTalking talks to the Africa's Talking bulk messaging REST endpoint.
type AfricasTalking struct {
	username string
	apiKey   string
	endpoint string
	senderID string
	client   *http.Client
}

func NewAfricasTalking(username, apiKey, endpoint, senderID string) *AfricasTalking {
	return &AfricasTalking{
		username: strings.TrimSpace(username),
		apiKey:   strings.TrimSpace(apiKey),
		endpoint: endpoint,
		senderID: senderID,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *AfricasTalking) IsConfigured() bool {
	return a.username != "" && a.apiKey != "" && a.endpoint != ""
}

func (a *AfricasTalking) SendSMS(ctx context.Context, msg Message) (*Response, error) {
	if !a.IsConfigured() {
		return nil, ErrNotConfigured
	}

	data := url.Values{}
	data.Set("username", a.username)
	data.Set("to", msg.To)
	data.Set("message", msg.Body)
	if a.senderID != "" {
		data.Set("from", a.senderID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create SMS request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apikey", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SMS send failed: %w", err)
	}
	defer resp.Body.Close()

	var out atResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		if decodeErr == nil && out.SMSMessageData.Message != "" {
			return nil, fmt.Errorf("SMS API returned status %d: %s", resp.StatusCode, out.SMSMessageData.Message)
		}
		return nil, fmt.Errorf("SMS API returned non-success status: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode SMS response: %w", decodeErr)
	}
	if len(out.SMSMessageData.Recipients) == 0 {
		return nil, fmt.Errorf("SMS rejected: %s", out.SMSMessageData.Message)
	}

	rcpt := out.SMSMessageData.Recipients[0]
	if !strings.EqualFold(rcpt.Status, "Success") {
		return nil, fmt.Errorf("SMS to %s not accepted: %s", rcpt.Number, rcpt.Status)
	}
	return &Response{MessageID: rcpt.MessageID, Provider: "africastalking", Status: rcpt.Status}, nil
}

var _ Provider = (*AfricasTalking)(nil)
