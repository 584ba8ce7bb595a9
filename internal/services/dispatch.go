package services

import (
	"context"
)

// Dispatcher issues fire-and-forget notifications through the background
// task queue. The returned dispatch ID identifies the queued delivery task,
// not a delivery confirmation; no delivery status is ever consumed here.
type Dispatcher interface {
	DispatchSMS(ctx context.Context, phone, message, relatedTo, relatedType string) (dispatchID string, err error)
	DispatchEmail(ctx context.Context, to, subject, body string) (dispatchID string, err error)
}
