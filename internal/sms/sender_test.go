package sms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/landsalelk/landsalelk-sub006/internal/config"
)

func TestTextLKSender_Send(t *testing.T) {
	var gotAuth string
	var gotReq textLKRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"success","data":{"id":12345}}`))
	}))
	defer ts.Close()

	cfg := &config.Config{
		TextLKApiToken: "token123",
		TextLKSenderID: "LandSale",
		TextLKApiURL:   ts.URL,
	}
	sender := NewTextLKSender(cfg)

	providerID, err := sender.Send(context.Background(), "94771234567", "Hello owner")
	assert.NoError(t, err)
	assert.Equal(t, "12345", providerID)

	assert.Equal(t, "Bearer token123", gotAuth)
	assert.Equal(t, "94771234567", gotReq.Recipient)
	assert.Equal(t, "LandSale", gotReq.SenderID)
	assert.Equal(t, "plain", gotReq.Type)
	assert.Equal(t, "Hello owner", gotReq.Message)
}

func TestTextLKSender_GatewayError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"status":"error","message":"Insufficient balance"}`))
	}))
	defer ts.Close()

	sender := NewTextLKSender(&config.Config{
		TextLKApiToken: "token123",
		TextLKApiURL:   ts.URL,
	})

	_, err := sender.Send(context.Background(), "94771234567", "Hello")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Insufficient balance")
}

func TestNewTextLKSender_NoTokenFallsBackToLogging(t *testing.T) {
	sender := NewTextLKSender(&config.Config{})
	_, ok := sender.(*LoggingSender)
	assert.True(t, ok)
}

// stubSender records calls and optionally fails.
type stubSender struct {
	id    string
	err   error
	calls int
}

func (s *stubSender) Send(ctx context.Context, recipient, message string) (string, error) {
	s.calls++
	return s.id, s.err
}

func TestCompositeSender(t *testing.T) {
	primary := &stubSender{id: "primary-id"}
	secondary := &stubSender{id: "secondary-id"}
	cs := NewCompositeSender(primary)
	cs.AddSender(secondary)

	id, err := cs.Send(context.Background(), "94771234567", "Hello")
	assert.NoError(t, err)
	assert.Equal(t, "primary-id", id, "only the primary's provider ID is reported")
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, secondary.calls)
}

func TestCompositeSender_SecondaryFailureStillReported(t *testing.T) {
	primary := &stubSender{id: "primary-id"}
	secondary := &stubSender{err: errors.New("disk full")}
	cs := NewCompositeSender(primary, secondary)

	id, err := cs.Send(context.Background(), "94771234567", "Hello")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, "primary-id", id)
}

func TestCompositeSender_Empty(t *testing.T) {
	cs := NewCompositeSender()
	_, err := cs.Send(context.Background(), "94771234567", "Hello")
	assert.Error(t, err)
}
