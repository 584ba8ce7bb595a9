package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSender implements the Sender interface by storing SMS messages in
// Redis instead of hitting the gateway. Used when MOCK_SERVICES is enabled
// so integration tests can assert on dispatched messages.
type RedisSender struct {
	client *redis.Client
}

// NewRedisSender creates a new RedisSender.
func NewRedisSender(client *redis.Client) *RedisSender {
	return &RedisSender{client: client}
}

// Send stores a representation of the SMS in Redis under a per-recipient key.
func (s *RedisSender) Send(ctx context.Context, recipient, message string) (string, error) {
	smsData := map[string]interface{}{
		"to":      recipient,
		"message": message,
		"sent_at": time.Now().UTC().Format(time.RFC3339Nano),
	}

	jsonData, err := json.Marshal(smsData)
	if err != nil {
		return "", fmt.Errorf("failed to marshal sms data: %w", err)
	}

	key := fmt.Sprintf("mocksms:%s", recipient)
	ttl := 5 * time.Minute

	if err := s.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to store sms in Redis key '%s': %w", key, err)
	}

	log.Printf("Mock SMS stored in Redis key '%s' (TTL: %v)", key, ttl)
	return "", nil
}
