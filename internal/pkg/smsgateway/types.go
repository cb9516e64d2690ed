package smsgateway

import (
	"context"
	"errors"
	"fmt"
)

// Message states reported by the gateway.
const (
	StatePending   = "Pending"
	StateProcessed = "Processed"
	StateSent      = "Sent"
	StateDelivered = "Delivered"
	StateFailed    = "Failed"
)

var (
	// ErrNotConfigured is returned when the gateway url or credentials are missing.
	ErrNotConfigured = errors.New("smsgateway: server is not configured for sending SMS")
	// ErrInvalidMessage is returned when a message has no recipient or no text.
	ErrInvalidMessage = errors.New("smsgateway: message requires recipients and text")
)

// Gateway sends text messages and reports their state.
type Gateway interface {
	// Send submits msg for delivery. It is never retried.
	Send(ctx context.Context, msg Message) (*Receipt, error)
	// GetState returns the current state of a submitted message.
	GetState(ctx context.Context, id string) (*Receipt, error)
}

// Message is an outgoing text message.
type Message struct {
	PhoneNumbers []string `json:"phoneNumbers"`
	Text         string   `json:"message"`
}

// RecipientState is the delivery state of one recipient.
type RecipientState struct {
	PhoneNumber string `json:"phoneNumber"`
	State       string `json:"state"`
	Error       string `json:"error,omitempty"`
}

// Receipt is the gateway's view of a submitted message.
type Receipt struct {
	ID         string           `json:"id"`
	State      string           `json:"state"`
	Recipients []RecipientState `json:"recipients"`
}

// HTTPError is returned for non-2xx gateway responses.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("smsgateway: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether the request may succeed when repeated.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
