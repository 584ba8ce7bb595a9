package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/landsalelk/landsalelk-sub006/internal/config"
)

// Sender delivers a single SMS to one recipient. Implementations report the
// provider-side message ID when available.
type Sender interface {
	Send(ctx context.Context, recipient, message string) (providerID string, err error)
}

// TextLKSender implements Sender against the text.lk HTTP gateway.
type TextLKSender struct {
	cfg    *config.Config
	client *http.Client
}

// NewTextLKSender creates a Sender for the text.lk gateway. When no API
// token is configured it falls back to a logging sender so local runs do not
// need gateway credentials.
func NewTextLKSender(cfg *config.Config) Sender {
	if cfg.TextLKApiToken == "" {
		log.Println("TEXT_LK_API_TOKEN not configured, using logging SMS sender.")
		return &LoggingSender{}
	}
	return &TextLKSender{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

type textLKRequest struct {
	Recipient string `json:"recipient"`
	SenderID  string `json:"sender_id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

type textLKResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    *struct {
		ID json.Number `json:"id"`
	} `json:"data"`
}

// Send posts the message to text.lk and returns the gateway message ID.
func (s *TextLKSender) Send(ctx context.Context, recipient, message string) (string, error) {
	payload, err := json.Marshal(textLKRequest{
		Recipient: recipient,
		SenderID:  s.cfg.TextLKSenderID,
		Type:      "plain",
		Message:   message,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode SMS request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TextLKApiURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build SMS request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.TextLKApiToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sms gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("failed to read sms gateway response: %w", err)
	}

	var gatewayResp textLKResponse
	if err := json.Unmarshal(body, &gatewayResp); err != nil {
		return "", fmt.Errorf("unexpected sms gateway response (%d): %s", resp.StatusCode, string(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || (gatewayResp.Status != "success" && gatewayResp.Data == nil) {
		errMsg := gatewayResp.Message
		if errMsg == "" {
			errMsg = string(body)
		}
		return "", fmt.Errorf("sms gateway rejected message: %s", errMsg)
	}

	providerID := ""
	if gatewayResp.Data != nil {
		providerID = gatewayResp.Data.ID.String()
	}
	log.Printf("SMS sent successfully to %s (provider id: %s)", recipient, providerID)
	return providerID, nil
}

// LoggingSender is a mock implementation that just logs SMS details.
// Useful for development or when the gateway isn't configured.
type LoggingSender struct{}

func (s *LoggingSender) Send(ctx context.Context, recipient, message string) (string, error) {
	log.Printf("--- Sending SMS (Logged) ---")
	log.Printf("To: %s", recipient)
	log.Printf("Message: %s", message)
	log.Printf("--- End SMS ---")
	return "", nil
}
