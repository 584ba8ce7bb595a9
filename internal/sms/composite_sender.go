package sms

import (
	"context"
	"fmt"
	"strings"
)

// CompositeSender delegates sending to multiple Senders. The provider ID of
// the first sender (the primary gateway) is the one reported back.
type CompositeSender struct {
	senders []Sender
}

// NewCompositeSender creates a new CompositeSender.
func NewCompositeSender(senders ...Sender) *CompositeSender {
	return &CompositeSender{senders: senders}
}

// AddSender adds a sender to the composite sender's list.
func (cs *CompositeSender) AddSender(sender Sender) {
	if sender != nil {
		cs.senders = append(cs.senders, sender)
	}
}

// Send iterates through all registered senders, collecting any errors.
func (cs *CompositeSender) Send(ctx context.Context, recipient, message string) (string, error) {
	if len(cs.senders) == 0 {
		return "", fmt.Errorf("no senders configured in CompositeSender")
	}

	var primaryID string
	var allErrors []string
	for i, sender := range cs.senders {
		providerID, err := sender.Send(ctx, recipient, message)
		if err != nil {
			allErrors = append(allErrors, err.Error())
			continue
		}
		if i == 0 {
			primaryID = providerID
		}
	}

	if len(allErrors) > 0 {
		return primaryID, fmt.Errorf("composite sms send failed: [ %s ]", strings.Join(allErrors, "; "))
	}
	return primaryID, nil
}
